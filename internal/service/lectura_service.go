package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"fleetmaint/internal/maintenance"
	"fleetmaint/internal/model"
	"fleetmaint/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DTOs
type RegisterLecturaRequest struct {
	EquipoID      string  `json:"equipo_id" binding:"required"`
	Fecha         string  `json:"fecha" binding:"required"` // YYYY-MM-DD
	HorasKm       float64 `json:"horas_km"`
	Observaciones string  `json:"observaciones"`
}

type LecturaResponse struct {
	ID                 string  `json:"id"`
	EquipoID           string  `json:"equipo_id"`
	Ficha              string  `json:"ficha"`
	Fecha              string  `json:"fecha"`
	HorasKm            float64 `json:"horas_km"`
	Incremento         float64 `json:"incremento"`
	UsuarioResponsable string  `json:"usuario_responsable"`
	Observaciones      string  `json:"observaciones"`
}

type LecturaService interface {
	// Register appends a reading and refreshes the active scheduled-maintenance
	// row of the same equipment in the same transaction. Readings never
	// decrease: a value below the previous one is rejected.
	Register(ctx context.Context, userID string, req RegisterLecturaRequest) (LecturaResponse, error)
	ListByFicha(ctx context.Context, ficha string, page, limit int) ([]LecturaResponse, int64, error)
}

type lecturaService struct {
	lecturaRepo    repository.LecturaRepository
	equipoRepo     repository.EquipoRepository
	programadoRepo repository.ProgramadoRepository
	userRepo       repository.UserRepository
	auditRepo      repository.AuditRepository
	txManager      repository.TransactionManager
}

func NewLecturaService(
	lecturaRepo repository.LecturaRepository,
	equipoRepo repository.EquipoRepository,
	programadoRepo repository.ProgramadoRepository,
	userRepo repository.UserRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) LecturaService {
	return &lecturaService{
		lecturaRepo:    lecturaRepo,
		equipoRepo:     equipoRepo,
		programadoRepo: programadoRepo,
		userRepo:       userRepo,
		auditRepo:      auditRepo,
		txManager:      txManager,
	}
}

func (s *lecturaService) Register(ctx context.Context, userID string, req RegisterLecturaRequest) (LecturaResponse, error) {
	equipoID, err := uuid.Parse(req.EquipoID)
	if err != nil {
		return LecturaResponse{}, NewValidationError("equipo_id", "invalid equipment id")
	}

	equipo, err := s.equipoRepo.FindByID(ctx, equipoID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return LecturaResponse{}, NewValidationError("equipo_id", "equipment not found")
		}
		return LecturaResponse{}, fmt.Errorf("database error: %w", err)
	}
	if !equipo.Disponible() {
		return LecturaResponse{}, NewValidationError("equipo_id", "equipment is not available")
	}

	if req.HorasKm <= 0 {
		return LecturaResponse{}, NewValidationError("horas_km", "reading must be greater than zero")
	}

	fecha, err := time.Parse("2006-01-02", req.Fecha)
	if err != nil {
		return LecturaResponse{}, NewValidationError("fecha", "invalid date, expected YYYY-MM-DD")
	}

	actorID, _ := uuid.Parse(userID)
	responsable := userID
	if s.userRepo != nil {
		if user, userErr := s.userRepo.GetByID(ctx, userID); userErr == nil {
			responsable = user.Username
		}
	}

	var lectura model.ActualizacionHorasKm

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		incremento := req.HorasKm
		if last, lastErr := s.lecturaRepo.FindLastByFicha(txCtx, equipo.Ficha); lastErr == nil {
			if req.HorasKm < last.HorasKm {
				return NewValidationError("horas_km",
					fmt.Sprintf("reading %.2f is below the last recorded %.2f", req.HorasKm, last.HorasKm))
			}
			incremento = req.HorasKm - last.HorasKm
		} else if !errors.Is(lastErr, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to load last reading: %w", lastErr)
		}

		lectura = model.ActualizacionHorasKm{
			EquipoID:           equipoID,
			Ficha:              equipo.Ficha,
			Fecha:              fecha,
			HorasKm:            req.HorasKm,
			Incremento:         incremento,
			UsuarioResponsable: responsable,
			Observaciones:      req.Observaciones,
		}
		if createErr := s.lecturaRepo.Create(txCtx, &lectura); createErr != nil {
			return fmt.Errorf("failed to create reading: %w", createErr)
		}

		// Refresh the active scheduled row so list screens do not lag behind
		// the reading just taken.
		if prog, progErr := s.programadoRepo.FindActiveByEquipoForUpdate(txCtx, equipoID); progErr == nil {
			if req.HorasKm > prog.HorasKmActuales {
				prog.HorasKmActuales = req.HorasKm
			}
			prog.FechaUltimaActualizacion = time.Now()
			prog.ProximoMantenimiento, prog.HorasKmRestante = maintenance.ComputeRemaining(
				prog.HorasKmActuales, prog.HorasKmUltimoMantenimiento, prog.Frecuencia)
			if updateErr := s.programadoRepo.Update(txCtx, prog); updateErr != nil {
				return fmt.Errorf("failed to refresh scheduled maintenance: %w", updateErr)
			}
		} else if !errors.Is(progErr, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to load scheduled maintenance: %w", progErr)
		}

		details, _ := json.Marshal(map[string]interface{}{
			"ficha":      equipo.Ficha,
			"horas_km":   req.HorasKm,
			"incremento": incremento,
		})
		audit := &model.AuditLog{
			UserID:     &actorID,
			Action:     model.ActionRegisterReading,
			EntityID:   lectura.ID.String(),
			EntityName: equipo.Ficha,
			Details:    string(details),
		}
		if auditErr := s.auditRepo.Log(txCtx, audit); auditErr != nil {
			return fmt.Errorf("failed to write audit log: %w", auditErr)
		}
		return nil
	})
	if err != nil {
		return LecturaResponse{}, err
	}

	return toLecturaResponse(lectura), nil
}

func (s *lecturaService) ListByFicha(ctx context.Context, ficha string, page, limit int) ([]LecturaResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	lecturas, total, err := s.lecturaRepo.FindByFicha(ctx, ficha, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch readings: %w", err)
	}

	res := make([]LecturaResponse, 0, len(lecturas))
	for _, l := range lecturas {
		res = append(res, toLecturaResponse(l))
	}
	return res, total, nil
}

func toLecturaResponse(l model.ActualizacionHorasKm) LecturaResponse {
	return LecturaResponse{
		ID:                 l.ID.String(),
		EquipoID:           l.EquipoID.String(),
		Ficha:              l.Ficha,
		Fecha:              l.Fecha.Format("2006-01-02"),
		HorasKm:            l.HorasKm,
		Incremento:         l.Incremento,
		UsuarioResponsable: l.UsuarioResponsable,
		Observaciones:      l.Observaciones,
	}
}
