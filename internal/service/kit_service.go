package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"fleetmaint/internal/maintenance"
	"fleetmaint/internal/model"
	"fleetmaint/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DTOs
type KitPiezaRequest struct {
	Nombre       string `json:"nombre" binding:"required"`
	NumeroParte  string `json:"numero_parte"`
	Cantidad     int    `json:"cantidad" binding:"required,gt=0"`
	InventarioID string `json:"inventario_id"`
}

type CreateKitRequest struct {
	Marca       string            `json:"marca" binding:"required"`
	Modelo      string            `json:"modelo" binding:"required"`
	Intervalo   string            `json:"intervalo" binding:"required"`
	Tareas      []string          `json:"tareas"`
	Piezas      []KitPiezaRequest `json:"piezas"`
	Descripcion string            `json:"descripcion"`
}

type KitResponse struct {
	ID          string             `json:"id"`
	Marca       string             `json:"marca"`
	Modelo      string             `json:"modelo"`
	Intervalo   string             `json:"intervalo"`
	Tareas      []string           `json:"tareas"`
	Piezas      []KitPiezaResponse `json:"piezas"`
	Descripcion string             `json:"descripcion"`
}

type KitPiezaResponse struct {
	ID           string  `json:"id"`
	Nombre       string  `json:"nombre"`
	NumeroParte  string  `json:"numero_parte"`
	Cantidad     int     `json:"cantidad"`
	InventarioID *string `json:"inventario_id,omitempty"`
}

type IntervaloResponse struct {
	ID             string  `json:"id"`
	Codigo         string  `json:"codigo"`
	Nombre         string  `json:"nombre"`
	HorasIntervalo float64 `json:"horas_intervalo"`
	Descripcion    string  `json:"descripcion"`
}

type KitService interface {
	Create(ctx context.Context, userID string, req CreateKitRequest) (KitResponse, error)
	Update(ctx context.Context, userID string, id string, req CreateKitRequest) (KitResponse, error)
	Delete(ctx context.Context, userID string, id string) error
	GetByID(ctx context.Context, id string) (KitResponse, error)
	List(ctx context.Context, page, limit int) ([]KitResponse, int64, error)
	// Resolve finds the kit for a marca/modelo/intervalo, preferring the
	// admin-managed table and falling back to the built-in model catalogs.
	Resolve(ctx context.Context, marca, modelo, intervalo string) (maintenance.IntervalKit, error)
	ListIntervalos(ctx context.Context) ([]IntervaloResponse, error)
}

type kitService struct {
	kitRepo   repository.KitRepository
	auditRepo repository.AuditRepository
	txManager repository.TransactionManager
}

func NewKitService(
	kitRepo repository.KitRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) KitService {
	return &kitService{
		kitRepo:   kitRepo,
		auditRepo: auditRepo,
		txManager: txManager,
	}
}

func validIntervalo(intervalo string) bool {
	switch strings.ToUpper(intervalo) {
	case "PM1", "PM2", "PM3", "PM4":
		return true
	}
	return false
}

func (s *kitService) buildKit(req CreateKitRequest) (model.KitMantenimiento, error) {
	if !validIntervalo(req.Intervalo) {
		return model.KitMantenimiento{}, NewValidationError("intervalo", "intervalo must be PM1..PM4")
	}

	kit := model.KitMantenimiento{
		Marca:       req.Marca,
		Modelo:      req.Modelo,
		Intervalo:   strings.ToUpper(req.Intervalo),
		Tareas:      model.StringList(req.Tareas),
		Descripcion: req.Descripcion,
	}
	for _, p := range req.Piezas {
		pieza := model.KitPieza{
			Nombre:      p.Nombre,
			NumeroParte: p.NumeroParte,
			Cantidad:    p.Cantidad,
		}
		if p.InventarioID != "" {
			itemID, err := uuid.Parse(p.InventarioID)
			if err != nil {
				return model.KitMantenimiento{}, NewValidationError("piezas", "invalid inventario_id")
			}
			pieza.InventarioID = &itemID
		}
		kit.Piezas = append(kit.Piezas, pieza)
	}
	return kit, nil
}

func (s *kitService) Create(ctx context.Context, userID string, req CreateKitRequest) (KitResponse, error) {
	kit, err := s.buildKit(req)
	if err != nil {
		return KitResponse{}, err
	}

	if _, err := s.kitRepo.FindByModeloIntervalo(ctx, req.Marca, req.Modelo, kit.Intervalo); err == nil {
		return KitResponse{}, NewValidationError("intervalo", "a kit for this model and interval already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return KitResponse{}, fmt.Errorf("database error: %w", err)
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.kitRepo.Create(txCtx, &kit); createErr != nil {
			return fmt.Errorf("failed to create kit: %w", createErr)
		}
		return s.logKitAction(txCtx, userID, model.ActionCreateKit, kit, req)
	})
	if err != nil {
		return KitResponse{}, err
	}

	return toKitResponse(kit), nil
}

func (s *kitService) Update(ctx context.Context, userID string, id string, req CreateKitRequest) (KitResponse, error) {
	kitID, err := uuid.Parse(id)
	if err != nil {
		return KitResponse{}, fmt.Errorf("invalid kit id: %w", err)
	}

	existing, err := s.kitRepo.FindByID(ctx, kitID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return KitResponse{}, errors.New("kit not found")
		}
		return KitResponse{}, fmt.Errorf("database error: %w", err)
	}

	kit, err := s.buildKit(req)
	if err != nil {
		return KitResponse{}, err
	}
	kit.ID = existing.ID
	for i := range kit.Piezas {
		kit.Piezas[i].KitID = existing.ID
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if updateErr := s.kitRepo.Update(txCtx, &kit); updateErr != nil {
			return fmt.Errorf("failed to update kit: %w", updateErr)
		}
		return s.logKitAction(txCtx, userID, model.ActionUpdateKit, kit, req)
	})
	if err != nil {
		return KitResponse{}, err
	}

	return toKitResponse(kit), nil
}

func (s *kitService) Delete(ctx context.Context, userID string, id string) error {
	kitID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid kit id: %w", err)
	}

	kit, err := s.kitRepo.FindByID(ctx, kitID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errors.New("kit not found")
		}
		return fmt.Errorf("database error: %w", err)
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if delErr := s.kitRepo.Delete(txCtx, kitID); delErr != nil {
			return fmt.Errorf("failed to delete kit: %w", delErr)
		}

		var uid *uuid.UUID
		if parsed, parseErr := uuid.Parse(userID); parseErr == nil {
			uid = &parsed
		}
		audit := &model.AuditLog{
			UserID:     uid,
			Action:     model.ActionDeleteKit,
			EntityID:   kit.ID.String(),
			EntityName: fmt.Sprintf("%s %s %s", kit.Marca, kit.Modelo, kit.Intervalo),
			Details:    `{"deleted": true}`,
		}
		if auditErr := s.auditRepo.Log(txCtx, audit); auditErr != nil {
			return fmt.Errorf("failed to write audit log: %w", auditErr)
		}
		return nil
	})
}

func (s *kitService) GetByID(ctx context.Context, id string) (KitResponse, error) {
	kitID, err := uuid.Parse(id)
	if err != nil {
		return KitResponse{}, fmt.Errorf("invalid kit id: %w", err)
	}

	kit, err := s.kitRepo.FindByID(ctx, kitID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return KitResponse{}, errors.New("kit not found")
		}
		return KitResponse{}, fmt.Errorf("database error: %w", err)
	}

	return toKitResponse(*kit), nil
}

func (s *kitService) List(ctx context.Context, page, limit int) ([]KitResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	kits, total, err := s.kitRepo.List(ctx, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch kits: %w", err)
	}

	res := make([]KitResponse, 0, len(kits))
	for _, kit := range kits {
		res = append(res, toKitResponse(kit))
	}
	return res, total, nil
}

func (s *kitService) Resolve(ctx context.Context, marca, modelo, intervalo string) (maintenance.IntervalKit, error) {
	if !validIntervalo(intervalo) {
		return maintenance.IntervalKit{}, NewValidationError("intervalo", "intervalo must be PM1..PM4")
	}
	code := strings.ToUpper(intervalo)

	if kit, err := s.kitRepo.FindByModeloIntervalo(ctx, marca, modelo, code); err == nil {
		piezas := make([]maintenance.PartRef, 0, len(kit.Piezas))
		for _, p := range kit.Piezas {
			piezas = append(piezas, maintenance.PartRef{
				Nombre:      p.Nombre,
				NumeroParte: p.NumeroParte,
				Cantidad:    p.Cantidad,
			})
		}
		tareas := []string(kit.Tareas)
		if tareas == nil {
			tareas = []string{}
		}
		return maintenance.IntervalKit{Tareas: tareas, Piezas: piezas}, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return maintenance.IntervalKit{}, fmt.Errorf("database error: %w", err)
	}

	catalog := maintenance.FindModelCatalog(modelo)
	return maintenance.ResolveKitAndTasks(code, catalog), nil
}

func (s *kitService) ListIntervalos(ctx context.Context) ([]IntervaloResponse, error) {
	rows, err := s.kitRepo.ListIntervalos(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch intervals: %w", err)
	}

	if len(rows) == 0 {
		// Empty table: expose the factory tiers so screens always have the
		// PM1..PM4 set to offer.
		res := make([]IntervaloResponse, 0, len(maintenance.StandardIntervals))
		for _, iv := range maintenance.StandardIntervals {
			res = append(res, IntervaloResponse{
				Codigo:         iv.Codigo,
				Nombre:         iv.Nombre,
				HorasIntervalo: iv.HorasIntervalo,
				Descripcion:    iv.Descripcion,
			})
		}
		return res, nil
	}

	res := make([]IntervaloResponse, 0, len(rows))
	for _, r := range rows {
		res = append(res, IntervaloResponse{
			ID:             r.ID.String(),
			Codigo:         r.Codigo,
			Nombre:         r.Nombre,
			HorasIntervalo: r.HorasIntervalo,
			Descripcion:    r.Descripcion,
		})
	}
	return res, nil
}

func (s *kitService) logKitAction(ctx context.Context, userID, action string, kit model.KitMantenimiento, req CreateKitRequest) error {
	var uid *uuid.UUID
	if parsed, err := uuid.Parse(userID); err == nil {
		uid = &parsed
	}
	details, _ := json.Marshal(req)
	audit := &model.AuditLog{
		UserID:     uid,
		Action:     action,
		EntityID:   kit.ID.String(),
		EntityName: fmt.Sprintf("%s %s %s", kit.Marca, kit.Modelo, kit.Intervalo),
		Details:    string(details),
	}
	if err := s.auditRepo.Log(ctx, audit); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

func toKitResponse(kit model.KitMantenimiento) KitResponse {
	tareas := []string(kit.Tareas)
	if tareas == nil {
		tareas = []string{}
	}
	piezas := make([]KitPiezaResponse, 0, len(kit.Piezas))
	for _, p := range kit.Piezas {
		pr := KitPiezaResponse{
			ID:          p.ID.String(),
			Nombre:      p.Nombre,
			NumeroParte: p.NumeroParte,
			Cantidad:    p.Cantidad,
		}
		if p.InventarioID != nil {
			v := p.InventarioID.String()
			pr.InventarioID = &v
		}
		piezas = append(piezas, pr)
	}
	return KitResponse{
		ID:          kit.ID.String(),
		Marca:       kit.Marca,
		Modelo:      kit.Modelo,
		Intervalo:   kit.Intervalo,
		Tareas:      tareas,
		Piezas:      piezas,
		Descripcion: kit.Descripcion,
	}
}
