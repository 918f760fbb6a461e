package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"fleetmaint/internal/maintenance"
	"fleetmaint/internal/model"
	"fleetmaint/internal/repository"
	ws "fleetmaint/internal/websocket"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const minDescripcionLength = 20

// --- DTOs ---

type ParteUsadaRequest struct {
	Nombre        string `json:"nombre" binding:"required"`
	Cantidad      int    `json:"cantidad" binding:"required,gt=0"`
	Referencia    string `json:"referencia"`
	DelInventario bool   `json:"del_inventario"`
	InventarioID  string `json:"inventario_id"`
}

type CreateSubmissionRequest struct {
	EquipoID           string              `json:"equipo_id" binding:"required"`
	FechaMantenimiento string              `json:"fecha_mantenimiento" binding:"required"` // YYYY-MM-DD
	HorasKmActuales    float64             `json:"horas_km_actuales"`
	TipoMantenimiento  string              `json:"tipo_mantenimiento"`
	DescripcionTrabajo string              `json:"descripcion_trabajo"`
	Observaciones      string              `json:"observaciones"`
	PartesUsadas       []ParteUsadaRequest `json:"partes_usadas"`
}

type AttachmentRequest struct {
	StoragePath string `json:"storage_path" binding:"required"`
	Filename    string `json:"filename" binding:"required"`
	MimeType    string `json:"mime_type"`
	FileSize    int64  `json:"file_size"`
}

type SubmissionFilter struct {
	Status string // pending, approved, rejected, integrated or empty for all
	Page   int
	Limit  int
}

type RejectSubmissionRequest struct {
	Feedback string `json:"feedback"`
}

type ApproveSubmissionRequest struct {
	Feedback string `json:"feedback"`
}

type SubmissionResponse struct {
	ID                 string               `json:"id"`
	CreatedBy          string               `json:"created_by"`
	CreatorName        string               `json:"creator_name"`
	EquipoID           string               `json:"equipo_id"`
	Ficha              string               `json:"ficha"`
	EquipoNombre       string               `json:"equipo_nombre"`
	FechaMantenimiento string               `json:"fecha_mantenimiento"`
	HorasKmActuales    float64              `json:"horas_km_actuales"`
	TipoMantenimiento  string               `json:"tipo_mantenimiento"`
	IntervaloCodigo    string               `json:"intervalo_codigo"`
	DescripcionTrabajo string               `json:"descripcion_trabajo"`
	Observaciones      string               `json:"observaciones"`
	PartesUsadas       model.ParteUsadaList `json:"partes_usadas"`
	Status             string               `json:"status"`
	ReviewedBy         *string              `json:"reviewed_by"`
	ReviewerName       string               `json:"reviewer_name"`
	ReviewedAt         *string              `json:"reviewed_at"`
	AdminFeedback      string               `json:"admin_feedback"`
	CreatedAt          string               `json:"created_at"`
}

// SubmissionStats buckets approved and integrated together for the reviewer
// UI; programmatic consumers read the raw status off each submission row.
type SubmissionStats struct {
	Pending   int64 `json:"pending"`
	Approved  int64 `json:"approved"`
	Rejected  int64 `json:"rejected"`
	ThisMonth int64 `json:"this_month"`
}

// Websocket payload
type SubmissionEvent struct {
	Event string                 `json:"event"`
	Data  map[string]interface{} `json:"data"`
}

// --- Interface ---

// SubmissionService owns every status transition of a maintenance submission.
// Callers must never mutate submission status through any other path.
type SubmissionService interface {
	Submit(ctx context.Context, userID string, req CreateSubmissionRequest) (SubmissionResponse, error)
	Approve(ctx context.Context, id string, adminID string, feedback string) (SubmissionResponse, error)
	Reject(ctx context.Context, id string, adminID string, feedback string) (SubmissionResponse, error)
	ListSubmissions(ctx context.Context, filter SubmissionFilter) ([]SubmissionResponse, int64, error)
	ListMySubmissions(ctx context.Context, userID string) ([]SubmissionResponse, error)
	Stats(ctx context.Context, userID string) (SubmissionStats, error)
	AttachFile(ctx context.Context, id string, req AttachmentRequest) error
}

type submissionService struct {
	submissionRepo repository.SubmissionRepository
	equipoRepo     repository.EquipoRepository
	programadoRepo repository.ProgramadoRepository
	realizadoRepo  repository.RealizadoRepository
	inventarioRepo repository.InventarioRepository
	userRepo       repository.UserRepository
	auditRepo      repository.AuditRepository
	txManager      repository.TransactionManager
	hub            *ws.Hub
}

func NewSubmissionService(
	submissionRepo repository.SubmissionRepository,
	equipoRepo repository.EquipoRepository,
	programadoRepo repository.ProgramadoRepository,
	realizadoRepo repository.RealizadoRepository,
	inventarioRepo repository.InventarioRepository,
	userRepo repository.UserRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	hub *ws.Hub,
) SubmissionService {
	return &submissionService{
		submissionRepo: submissionRepo,
		equipoRepo:     equipoRepo,
		programadoRepo: programadoRepo,
		realizadoRepo:  realizadoRepo,
		inventarioRepo: inventarioRepo,
		userRepo:       userRepo,
		auditRepo:      auditRepo,
		txManager:      txManager,
		hub:            hub,
	}
}

// --- Implementation ---

func (s *submissionService) Submit(ctx context.Context, userID string, req CreateSubmissionRequest) (SubmissionResponse, error) {
	creatorID, err := uuid.Parse(userID)
	if err != nil {
		return SubmissionResponse{}, fmt.Errorf("invalid user id: %w", err)
	}

	equipoID, err := uuid.Parse(req.EquipoID)
	if err != nil {
		return SubmissionResponse{}, NewValidationError("equipo_id", "invalid equipment id")
	}

	equipo, err := s.equipoRepo.FindByID(ctx, equipoID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return SubmissionResponse{}, NewValidationError("equipo_id", "equipment not found")
		}
		return SubmissionResponse{}, fmt.Errorf("failed to load equipment: %w", err)
	}
	if !equipo.Disponible() {
		return SubmissionResponse{}, NewValidationError("equipo_id", "equipment is not available")
	}

	if req.HorasKmActuales <= 0 {
		return SubmissionResponse{}, NewValidationError("horas_km_actuales", "reading must be greater than zero")
	}

	if len(strings.TrimSpace(req.DescripcionTrabajo)) < minDescripcionLength {
		return SubmissionResponse{}, NewValidationError("descripcion_trabajo",
			fmt.Sprintf("description must be at least %d characters", minDescripcionLength))
	}

	fecha, err := time.Parse("2006-01-02", req.FechaMantenimiento)
	if err != nil {
		return SubmissionResponse{}, NewValidationError("fecha_mantenimiento", "invalid date, expected YYYY-MM-DD")
	}

	partes := make(model.ParteUsadaList, 0, len(req.PartesUsadas))
	for _, p := range req.PartesUsadas {
		parte := model.ParteUsada{
			Nombre:        p.Nombre,
			Cantidad:      p.Cantidad,
			Referencia:    p.Referencia,
			DelInventario: p.DelInventario,
		}
		if p.DelInventario {
			itemID, parseErr := uuid.Parse(p.InventarioID)
			if parseErr != nil {
				return SubmissionResponse{}, NewValidationError("partes_usadas", "inventory part requires a valid inventario_id")
			}
			parte.InventarioID = &itemID
		}
		partes = append(partes, parte)
	}

	sub := model.MaintenanceSubmission{
		CreatedBy:          creatorID,
		EquipoID:           equipoID,
		FechaMantenimiento: fecha,
		HorasKmActuales:    req.HorasKmActuales,
		TipoMantenimiento:  req.TipoMantenimiento,
		DescripcionTrabajo: req.DescripcionTrabajo,
		Observaciones:      req.Observaciones,
		PartesUsadas:       partes,
		Status:             model.SubmissionPending,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.submissionRepo.Create(txCtx, &sub); createErr != nil {
			return fmt.Errorf("failed to create submission: %w", createErr)
		}

		details, _ := json.Marshal(map[string]interface{}{
			"ficha":               equipo.Ficha,
			"horas_km_actuales":   req.HorasKmActuales,
			"tipo_mantenimiento":  req.TipoMantenimiento,
			"partes":              len(partes),
			"fecha_mantenimiento": req.FechaMantenimiento,
		})
		audit := &model.AuditLog{
			UserID:     &creatorID,
			Action:     model.ActionSubmitWorkOrder,
			EntityID:   sub.ID.String(),
			EntityName: equipo.Ficha,
			Details:    string(details),
		}
		if auditErr := s.auditRepo.Log(txCtx, audit); auditErr != nil {
			return fmt.Errorf("failed to write audit log: %w", auditErr)
		}

		return nil
	})
	if err != nil {
		return SubmissionResponse{}, err
	}

	s.notify("submission_created", map[string]interface{}{
		"id":     sub.ID.String(),
		"ficha":  equipo.Ficha,
		"status": sub.Status,
	})

	sub.Equipo = equipo
	return toSubmissionResponse(sub), nil
}

func (s *submissionService) Approve(ctx context.Context, id string, adminID string, feedback string) (SubmissionResponse, error) {
	submissionID, err := uuid.Parse(id)
	if err != nil {
		return SubmissionResponse{}, fmt.Errorf("invalid submission id: %w", err)
	}
	reviewerID, err := uuid.Parse(adminID)
	if err != nil {
		return SubmissionResponse{}, fmt.Errorf("invalid user id: %w", err)
	}

	reviewerName := s.lookupUsername(ctx, reviewerID)

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		sub, findErr := s.submissionRepo.FindByIDForUpdate(txCtx, submissionID)
		if findErr != nil {
			return fmt.Errorf("submission not found: %w", findErr)
		}
		if sub.Status != model.SubmissionPending {
			return fmt.Errorf("%w: submission is already %s", ErrStateConflict, sub.Status)
		}

		equipo, equipoErr := s.equipoRepo.FindByID(txCtx, sub.EquipoID)
		if equipoErr != nil {
			return &IntegrationError{Step: "load equipment", Err: equipoErr}
		}

		if integErr := s.integrate(txCtx, sub, equipo, &reviewerID, reviewerName); integErr != nil {
			return integErr
		}

		details, _ := json.Marshal(map[string]interface{}{
			"ficha":    equipo.Ficha,
			"feedback": feedback,
		})
		audit := &model.AuditLog{
			UserID:     &reviewerID,
			Action:     model.ActionApproveSubmission,
			EntityID:   sub.ID.String(),
			EntityName: equipo.Ficha,
			Details:    string(details),
		}
		if auditErr := s.auditRepo.Log(txCtx, audit); auditErr != nil {
			return &IntegrationError{Step: "audit log", Err: auditErr}
		}

		// Status flips to integrated only after every side effect above
		// succeeded, and only while the row is still pending.
		now := time.Now()
		ok, casErr := s.submissionRepo.TransitionFromPending(txCtx, sub.ID, map[string]interface{}{
			"status":         model.SubmissionIntegrated,
			"reviewed_by":    reviewerID,
			"reviewed_at":    now,
			"admin_feedback": feedback,
		})
		if casErr != nil {
			return &IntegrationError{Step: "status update", Err: casErr}
		}
		if !ok {
			return fmt.Errorf("%w: submission was reviewed concurrently", ErrStateConflict)
		}

		return nil
	})
	if err != nil {
		return SubmissionResponse{}, err
	}

	reloaded, loadErr := s.submissionRepo.FindByIDWithRelations(ctx, submissionID)
	if loadErr != nil {
		return SubmissionResponse{}, fmt.Errorf("failed to reload submission: %w", loadErr)
	}

	s.notify("submission_integrated", map[string]interface{}{
		"id":     reloaded.ID.String(),
		"status": reloaded.Status,
	})

	return toSubmissionResponse(*reloaded), nil
}

// integrate folds the submission into the permanent ledgers: realized
// maintenance history, scheduled-maintenance baseline, and inventory. It runs
// inside the approve transaction; any error rolls the whole bundle back.
func (s *submissionService) integrate(ctx context.Context, sub *model.MaintenanceSubmission, equipo *model.Equipo, reviewerID *uuid.UUID, reviewerName string) error {
	// Baseline for the increment: the active scheduled record if there is
	// one, otherwise the last realized maintenance of the ficha.
	var prog *model.MantenimientoProgramado
	baseline := 0.0
	if p, err := s.programadoRepo.FindActiveByEquipoForUpdate(ctx, sub.EquipoID); err == nil {
		prog = p
		baseline = p.HorasKmUltimoMantenimiento
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return &IntegrationError{Step: "load scheduled maintenance", Err: err}
	} else if last, lastErr := s.realizadoRepo.FindLastByFicha(ctx, equipo.Ficha); lastErr == nil {
		baseline = last.HorasKmAlMomento
	} else if !errors.Is(lastErr, gorm.ErrRecordNotFound) {
		return &IntegrationError{Step: "load maintenance history", Err: lastErr}
	}

	realizado := model.MantenimientoRealizado{
		EquipoID:              sub.EquipoID,
		Ficha:                 equipo.Ficha,
		FechaMantenimiento:    sub.FechaMantenimiento,
		HorasKmAlMomento:      sub.HorasKmActuales,
		IncrementoDesdeUltimo: sub.HorasKmActuales - baseline,
		UsuarioResponsable:    reviewerName,
		Observaciones:         sub.DescripcionTrabajo,
		PartesUsadas:          sub.PartesUsadas,
		SubmissionID:          &sub.ID,
	}
	if err := s.realizadoRepo.Create(ctx, &realizado); err != nil {
		return &IntegrationError{Step: "realized maintenance", Err: err}
	}

	if prog != nil {
		now := time.Now()
		prog.HorasKmUltimoMantenimiento = sub.HorasKmActuales
		prog.FechaUltimoMantenimiento = &sub.FechaMantenimiento
		if sub.HorasKmActuales > prog.HorasKmActuales {
			prog.HorasKmActuales = sub.HorasKmActuales
		}
		prog.FechaUltimaActualizacion = now
		// Stored caches refreshed for display; readers recompute anyway.
		prog.ProximoMantenimiento, prog.HorasKmRestante = maintenance.ComputeRemaining(
			prog.HorasKmActuales, prog.HorasKmUltimoMantenimiento, prog.Frecuencia)
		if err := s.programadoRepo.Update(ctx, prog); err != nil {
			return &IntegrationError{Step: "advance scheduled baseline", Err: err}
		}
	}

	return discountInventoryParts(ctx, s.inventarioRepo, s.auditRepo, sub.PartesUsadas,
		&sub.ID, reviewerID, reviewerName,
		"Integración de reporte de mantenimiento "+equipo.Ficha)
}

func (s *submissionService) Reject(ctx context.Context, id string, adminID string, feedback string) (SubmissionResponse, error) {
	submissionID, err := uuid.Parse(id)
	if err != nil {
		return SubmissionResponse{}, fmt.Errorf("invalid submission id: %w", err)
	}
	reviewerID, err := uuid.Parse(adminID)
	if err != nil {
		return SubmissionResponse{}, fmt.Errorf("invalid user id: %w", err)
	}

	if strings.TrimSpace(feedback) == "" {
		return SubmissionResponse{}, NewValidationError("feedback", "rejection feedback is required")
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		sub, findErr := s.submissionRepo.FindByIDForUpdate(txCtx, submissionID)
		if findErr != nil {
			return fmt.Errorf("submission not found: %w", findErr)
		}
		if sub.Status != model.SubmissionPending {
			return fmt.Errorf("%w: submission is already %s", ErrStateConflict, sub.Status)
		}

		now := time.Now()
		ok, casErr := s.submissionRepo.TransitionFromPending(txCtx, sub.ID, map[string]interface{}{
			"status":         model.SubmissionRejected,
			"reviewed_by":    reviewerID,
			"reviewed_at":    now,
			"admin_feedback": feedback,
		})
		if casErr != nil {
			return fmt.Errorf("failed to update submission: %w", casErr)
		}
		if !ok {
			return fmt.Errorf("%w: submission was reviewed concurrently", ErrStateConflict)
		}

		entityName := ""
		if equipo, equipoErr := s.equipoRepo.FindByID(txCtx, sub.EquipoID); equipoErr == nil {
			entityName = equipo.Ficha
		}

		details, _ := json.Marshal(map[string]interface{}{
			"feedback": feedback,
		})
		audit := &model.AuditLog{
			UserID:     &reviewerID,
			Action:     model.ActionRejectSubmission,
			EntityID:   sub.ID.String(),
			EntityName: entityName,
			Details:    string(details),
		}
		if auditErr := s.auditRepo.Log(txCtx, audit); auditErr != nil {
			return fmt.Errorf("failed to write audit log: %w", auditErr)
		}

		return nil
	})
	if err != nil {
		return SubmissionResponse{}, err
	}

	reloaded, loadErr := s.submissionRepo.FindByIDWithRelations(ctx, submissionID)
	if loadErr != nil {
		return SubmissionResponse{}, fmt.Errorf("failed to reload submission: %w", loadErr)
	}

	s.notify("submission_rejected", map[string]interface{}{
		"id":     reloaded.ID.String(),
		"status": reloaded.Status,
	})

	return toSubmissionResponse(*reloaded), nil
}

func (s *submissionService) ListSubmissions(ctx context.Context, filter SubmissionFilter) ([]SubmissionResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}

	subs, total, err := s.submissionRepo.List(ctx, filter.Status, filter.Page, filter.Limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch submissions: %w", err)
	}

	result := make([]SubmissionResponse, 0, len(subs))
	for _, sub := range subs {
		result = append(result, toSubmissionResponse(sub))
	}
	return result, total, nil
}

func (s *submissionService) ListMySubmissions(ctx context.Context, userID string) ([]SubmissionResponse, error) {
	creatorID, err := uuid.Parse(userID)
	if err != nil {
		return nil, fmt.Errorf("invalid user id: %w", err)
	}

	subs, err := s.submissionRepo.ListByCreator(ctx, creatorID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch submissions: %w", err)
	}

	result := make([]SubmissionResponse, 0, len(subs))
	for _, sub := range subs {
		result = append(result, toSubmissionResponse(sub))
	}
	return result, nil
}

func (s *submissionService) Stats(ctx context.Context, userID string) (SubmissionStats, error) {
	var creator *uuid.UUID
	if userID != "" {
		if parsed, err := uuid.Parse(userID); err == nil {
			creator = &parsed
		}
	}

	counts, err := s.submissionRepo.CountByStatus(ctx, creator)
	if err != nil {
		return SubmissionStats{}, fmt.Errorf("failed to count submissions: %w", err)
	}

	now := time.Now()
	firstOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	thisMonth, err := s.submissionRepo.CountCreatedSince(ctx, creator, firstOfMonth)
	if err != nil {
		return SubmissionStats{}, fmt.Errorf("failed to count monthly submissions: %w", err)
	}

	return SubmissionStats{
		Pending:   counts[model.SubmissionPending],
		Approved:  counts[model.SubmissionApproved] + counts[model.SubmissionIntegrated],
		Rejected:  counts[model.SubmissionRejected],
		ThisMonth: thisMonth,
	}, nil
}

// AttachFile registers an uploaded attachment. Best-effort by contract: the
// submission already exists and a failed upload leaves it untouched.
func (s *submissionService) AttachFile(ctx context.Context, id string, req AttachmentRequest) error {
	submissionID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid submission id: %w", err)
	}

	if _, err := s.submissionRepo.FindByID(ctx, submissionID); err != nil {
		return fmt.Errorf("submission not found: %w", err)
	}

	att := &model.SubmissionAttachment{
		SubmissionID: submissionID,
		StoragePath:  req.StoragePath,
		Filename:     req.Filename,
		MimeType:     req.MimeType,
		FileSize:     req.FileSize,
	}
	return s.submissionRepo.CreateAttachment(ctx, att)
}

// --- Helpers ---

func (s *submissionService) notify(event string, data map[string]interface{}) {
	if s.hub == nil {
		return
	}
	payload, err := json.Marshal(SubmissionEvent{Event: event, Data: data})
	if err != nil {
		return
	}
	select {
	case s.hub.Broadcast <- payload:
	default:
		// best-effort: never block a transition on a slow hub
	}
}

func (s *submissionService) lookupUsername(ctx context.Context, id uuid.UUID) string {
	if s.userRepo == nil {
		return id.String()
	}
	user, err := s.userRepo.GetByID(ctx, id.String())
	if err != nil {
		return id.String()
	}
	return user.Username
}

func toSubmissionResponse(sub model.MaintenanceSubmission) SubmissionResponse {
	resp := SubmissionResponse{
		ID:                 sub.ID.String(),
		CreatedBy:          sub.CreatedBy.String(),
		EquipoID:           sub.EquipoID.String(),
		FechaMantenimiento: sub.FechaMantenimiento.Format("2006-01-02"),
		HorasKmActuales:    sub.HorasKmActuales,
		TipoMantenimiento:  sub.TipoMantenimiento,
		IntervaloCodigo:    maintenance.ResolveIntervalCode(sub.TipoMantenimiento, 0),
		DescripcionTrabajo: sub.DescripcionTrabajo,
		Observaciones:      sub.Observaciones,
		PartesUsadas:       sub.PartesUsadas,
		Status:             sub.Status,
		AdminFeedback:      sub.AdminFeedback,
		CreatedAt:          sub.CreatedAt.Format(time.RFC3339),
	}

	if sub.Creator != nil {
		resp.CreatorName = sub.Creator.Username
	}
	if sub.Equipo != nil {
		resp.Ficha = sub.Equipo.Ficha
		resp.EquipoNombre = sub.Equipo.Nombre
	}
	if sub.ReviewedBy != nil {
		v := sub.ReviewedBy.String()
		resp.ReviewedBy = &v
	}
	if sub.Reviewer != nil {
		resp.ReviewerName = sub.Reviewer.Username
	}
	if sub.ReviewedAt != nil {
		v := sub.ReviewedAt.Format(time.RFC3339)
		resp.ReviewedAt = &v
	}

	return resp
}
