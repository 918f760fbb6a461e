package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"fleetmaint/internal/model"
	"fleetmaint/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DTOs
type CreateEquipoRequest struct {
	Ficha       string `json:"ficha" binding:"required"`
	Nombre      string `json:"nombre" binding:"required"`
	Marca       string `json:"marca"`
	Modelo      string `json:"modelo"`
	NumeroSerie string `json:"numero_serie"`
	Placa       string `json:"placa"`
	Categoria   string `json:"categoria"`
	Empresa     string `json:"empresa"`
}

type UpdateEquipoRequest struct {
	Nombre            string `json:"nombre" binding:"required"`
	Marca             string `json:"marca"`
	Modelo            string `json:"modelo"`
	NumeroSerie       string `json:"numero_serie"`
	Placa             string `json:"placa"`
	Categoria         string `json:"categoria"`
	Empresa           string `json:"empresa"`
	Activo            *bool  `json:"activo"`
	MotivoInactividad string `json:"motivo_inactividad"`
}

type EquipoResponse struct {
	ID                string `json:"id"`
	Ficha             string `json:"ficha"`
	Nombre            string `json:"nombre"`
	Marca             string `json:"marca"`
	Modelo            string `json:"modelo"`
	NumeroSerie       string `json:"numero_serie"`
	Placa             string `json:"placa"`
	Categoria         string `json:"categoria"`
	Empresa           string `json:"empresa"`
	Activo            bool   `json:"activo"`
	Disponible        bool   `json:"disponible"`
	MotivoInactividad string `json:"motivo_inactividad,omitempty"`
}

type EquipoService interface {
	Create(ctx context.Context, userID string, req CreateEquipoRequest) (EquipoResponse, error)
	Update(ctx context.Context, userID string, id string, req UpdateEquipoRequest) (EquipoResponse, error)
	GetByID(ctx context.Context, id string) (EquipoResponse, error)
	List(ctx context.Context, page, limit int, search string, soloActivos bool) ([]EquipoResponse, int64, error)
	// ListSelectable returns equipment eligible for readings and work orders:
	// active and not sold.
	ListSelectable(ctx context.Context) ([]EquipoResponse, error)
}

type equipoService struct {
	equipoRepo repository.EquipoRepository
	auditRepo  repository.AuditRepository
	txManager  repository.TransactionManager
}

func NewEquipoService(
	equipoRepo repository.EquipoRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) EquipoService {
	return &equipoService{
		equipoRepo: equipoRepo,
		auditRepo:  auditRepo,
		txManager:  txManager,
	}
}

func (s *equipoService) Create(ctx context.Context, userID string, req CreateEquipoRequest) (EquipoResponse, error) {
	ficha := strings.TrimSpace(req.Ficha)
	if ficha == "" {
		return EquipoResponse{}, NewValidationError("ficha", "ficha is required")
	}

	if _, err := s.equipoRepo.FindByFicha(ctx, ficha); err == nil {
		return EquipoResponse{}, NewValidationError("ficha", "ficha already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return EquipoResponse{}, fmt.Errorf("database error: %w", err)
	}

	empresa := req.Empresa
	if empresa == "" {
		empresa = model.EmpresaAlitoGroup
	}

	equipo := model.Equipo{
		Ficha:       ficha,
		Nombre:      req.Nombre,
		Marca:       req.Marca,
		Modelo:      req.Modelo,
		NumeroSerie: req.NumeroSerie,
		Placa:       req.Placa,
		Categoria:   req.Categoria,
		Empresa:     empresa,
		Activo:      true,
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.equipoRepo.Create(txCtx, &equipo); createErr != nil {
			return fmt.Errorf("failed to create equipment: %w", createErr)
		}

		var uid *uuid.UUID
		if parsed, parseErr := uuid.Parse(userID); parseErr == nil {
			uid = &parsed
		}

		details, _ := json.Marshal(req)
		audit := &model.AuditLog{
			UserID:     uid,
			Action:     model.ActionCreateEquipo,
			EntityID:   equipo.ID.String(),
			EntityName: equipo.Ficha,
			Details:    string(details),
		}
		if auditErr := s.auditRepo.Log(txCtx, audit); auditErr != nil {
			return fmt.Errorf("failed to write audit log: %w", auditErr)
		}
		return nil
	})
	if err != nil {
		return EquipoResponse{}, err
	}

	return toEquipoResponse(equipo), nil
}

func (s *equipoService) Update(ctx context.Context, userID string, id string, req UpdateEquipoRequest) (EquipoResponse, error) {
	equipoID, err := uuid.Parse(id)
	if err != nil {
		return EquipoResponse{}, fmt.Errorf("invalid equipment id: %w", err)
	}

	equipo, err := s.equipoRepo.FindByID(ctx, equipoID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return EquipoResponse{}, errors.New("equipment not found")
		}
		return EquipoResponse{}, fmt.Errorf("database error: %w", err)
	}

	equipo.Nombre = req.Nombre
	equipo.Marca = req.Marca
	equipo.Modelo = req.Modelo
	equipo.NumeroSerie = req.NumeroSerie
	equipo.Placa = req.Placa
	equipo.Categoria = req.Categoria
	if req.Empresa != "" {
		equipo.Empresa = req.Empresa
	}
	if req.Activo != nil {
		equipo.Activo = *req.Activo
		if !equipo.Activo && strings.TrimSpace(req.MotivoInactividad) == "" {
			return EquipoResponse{}, NewValidationError("motivo_inactividad", "deactivation requires a reason")
		}
		equipo.MotivoInactividad = req.MotivoInactividad
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if updateErr := s.equipoRepo.Update(txCtx, equipo); updateErr != nil {
			return fmt.Errorf("failed to update equipment: %w", updateErr)
		}

		var uid *uuid.UUID
		if parsed, parseErr := uuid.Parse(userID); parseErr == nil {
			uid = &parsed
		}

		details, _ := json.Marshal(req)
		audit := &model.AuditLog{
			UserID:     uid,
			Action:     model.ActionUpdateEquipo,
			EntityID:   equipo.ID.String(),
			EntityName: equipo.Ficha,
			Details:    string(details),
		}
		if auditErr := s.auditRepo.Log(txCtx, audit); auditErr != nil {
			return fmt.Errorf("failed to write audit log: %w", auditErr)
		}
		return nil
	})
	if err != nil {
		return EquipoResponse{}, err
	}

	return toEquipoResponse(*equipo), nil
}

func (s *equipoService) GetByID(ctx context.Context, id string) (EquipoResponse, error) {
	equipoID, err := uuid.Parse(id)
	if err != nil {
		return EquipoResponse{}, fmt.Errorf("invalid equipment id: %w", err)
	}

	equipo, err := s.equipoRepo.FindByID(ctx, equipoID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return EquipoResponse{}, errors.New("equipment not found")
		}
		return EquipoResponse{}, fmt.Errorf("database error: %w", err)
	}

	return toEquipoResponse(*equipo), nil
}

func (s *equipoService) List(ctx context.Context, page, limit int, search string, soloActivos bool) ([]EquipoResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	equipos, total, err := s.equipoRepo.List(ctx, page, limit, search, soloActivos)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch equipment: %w", err)
	}

	res := make([]EquipoResponse, 0, len(equipos))
	for _, e := range equipos {
		res = append(res, toEquipoResponse(e))
	}
	return res, total, nil
}

func (s *equipoService) ListSelectable(ctx context.Context) ([]EquipoResponse, error) {
	equipos, err := s.equipoRepo.ListAllActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch equipment: %w", err)
	}

	res := make([]EquipoResponse, 0, len(equipos))
	for _, e := range equipos {
		res = append(res, toEquipoResponse(e))
	}
	return res, nil
}

func toEquipoResponse(e model.Equipo) EquipoResponse {
	return EquipoResponse{
		ID:                e.ID.String(),
		Ficha:             e.Ficha,
		Nombre:            e.Nombre,
		Marca:             e.Marca,
		Modelo:            e.Modelo,
		NumeroSerie:       e.NumeroSerie,
		Placa:             e.Placa,
		Categoria:         e.Categoria,
		Empresa:           e.Empresa,
		Activo:            e.Activo,
		Disponible:        e.Disponible(),
		MotivoInactividad: e.MotivoInactividad,
	}
}
