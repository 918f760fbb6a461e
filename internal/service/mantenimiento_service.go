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
type CreateProgramadoRequest struct {
	EquipoID                   string  `json:"equipo_id" binding:"required"`
	TipoMantenimiento          string  `json:"tipo_mantenimiento" binding:"required"`
	Frecuencia                 float64 `json:"frecuencia" binding:"required,gt=0"`
	HorasKmActuales            float64 `json:"horas_km_actuales"`
	HorasKmUltimoMantenimiento float64 `json:"horas_km_ultimo_mantenimiento"`
}

type RegisterRealizadoRequest struct {
	EquipoID           string              `json:"equipo_id" binding:"required"`
	FechaMantenimiento string              `json:"fecha_mantenimiento" binding:"required"` // YYYY-MM-DD
	HorasKmAlMomento   float64             `json:"horas_km_al_momento"`
	Observaciones      string              `json:"observaciones"`
	PartesUsadas       []ParteUsadaRequest `json:"partes_usadas"`
}

// ProgramadoResponse carries the scheduled row plus the recomputed status
// fields. Estado, label and restante come from the resolver, never from the
// stored cache columns.
type ProgramadoResponse struct {
	ID                         string  `json:"id"`
	EquipoID                   string  `json:"equipo_id"`
	Ficha                      string  `json:"ficha"`
	EquipoNombre               string  `json:"equipo_nombre,omitempty"`
	TipoMantenimiento          string  `json:"tipo_mantenimiento"`
	IntervaloCodigo            string  `json:"intervalo_codigo"`
	HorasKmActuales            float64 `json:"horas_km_actuales"`
	Frecuencia                 float64 `json:"frecuencia"`
	HorasKmUltimoMantenimiento float64 `json:"horas_km_ultimo_mantenimiento"`
	ProximoMantenimiento       float64 `json:"proximo_mantenimiento"`
	HorasKmRestante            float64 `json:"horas_km_restante"`
	Estado                     string  `json:"estado"`
	EstadoLabel                string  `json:"estado_label"`
	FechaUltimoMantenimiento   *string `json:"fecha_ultimo_mantenimiento"`
	FechaUltimaActualizacion   string  `json:"fecha_ultima_actualizacion"`
	Activo                     bool    `json:"activo"`
}

type RealizadoResponse struct {
	ID                    string               `json:"id"`
	EquipoID              string               `json:"equipo_id"`
	Ficha                 string               `json:"ficha"`
	FechaMantenimiento    string               `json:"fecha_mantenimiento"`
	HorasKmAlMomento      float64              `json:"horas_km_al_momento"`
	IncrementoDesdeUltimo float64              `json:"incremento_desde_ultimo"`
	UsuarioResponsable    string               `json:"usuario_responsable"`
	Observaciones         string               `json:"observaciones"`
	PartesUsadas          model.ParteUsadaList `json:"partes_usadas"`
	SubmissionID          *string              `json:"submission_id,omitempty"`
}

type RoutePlanResponse struct {
	Ficha      string                  `json:"ficha"`
	Modelo     string                  `json:"modelo"`
	Estado     maintenance.CycleState  `json:"estado_ciclo"`
	Resumen    string                  `json:"resumen"`
	KitProximo maintenance.IntervalKit `json:"kit_proximo"`
}

type MantenimientoService interface {
	CreateProgramado(ctx context.Context, userID string, req CreateProgramadoRequest) (ProgramadoResponse, error)
	// ListProgramados recomputes the remaining life of every row through the
	// resolver; threshold <= 0 falls back to the default upcoming window.
	ListProgramados(ctx context.Context, page, limit int, threshold float64, soloActivos bool) ([]ProgramadoResponse, int64, error)
	GetStatusByFicha(ctx context.Context, ficha string, threshold float64) ([]ProgramadoResponse, error)
	RegisterRealizado(ctx context.Context, userID string, req RegisterRealizadoRequest) (RealizadoResponse, error)
	Historial(ctx context.Context, ficha string, page, limit int) ([]RealizadoResponse, int64, error)
	// ListStale flags active scheduled rows whose last reading update is older
	// than the given number of days.
	ListStale(ctx context.Context, dias int) ([]ProgramadoResponse, error)
	// RoutePlan simulates the 2000h PM cycle for a ficha and attaches the
	// recommended kit for the next interval.
	RoutePlan(ctx context.Context, ficha string) (RoutePlanResponse, error)
}

type mantenimientoService struct {
	programadoRepo repository.ProgramadoRepository
	realizadoRepo  repository.RealizadoRepository
	equipoRepo     repository.EquipoRepository
	inventarioRepo repository.InventarioRepository
	kitRepo        repository.KitRepository
	userRepo       repository.UserRepository
	auditRepo      repository.AuditRepository
	txManager      repository.TransactionManager
}

func NewMantenimientoService(
	programadoRepo repository.ProgramadoRepository,
	realizadoRepo repository.RealizadoRepository,
	equipoRepo repository.EquipoRepository,
	inventarioRepo repository.InventarioRepository,
	kitRepo repository.KitRepository,
	userRepo repository.UserRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) MantenimientoService {
	return &mantenimientoService{
		programadoRepo: programadoRepo,
		realizadoRepo:  realizadoRepo,
		equipoRepo:     equipoRepo,
		inventarioRepo: inventarioRepo,
		kitRepo:        kitRepo,
		userRepo:       userRepo,
		auditRepo:      auditRepo,
		txManager:      txManager,
	}
}

func (s *mantenimientoService) CreateProgramado(ctx context.Context, userID string, req CreateProgramadoRequest) (ProgramadoResponse, error) {
	equipoID, err := uuid.Parse(req.EquipoID)
	if err != nil {
		return ProgramadoResponse{}, NewValidationError("equipo_id", "invalid equipment id")
	}

	equipo, err := s.equipoRepo.FindByID(ctx, equipoID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ProgramadoResponse{}, NewValidationError("equipo_id", "equipment not found")
		}
		return ProgramadoResponse{}, fmt.Errorf("database error: %w", err)
	}
	if !equipo.Disponible() {
		return ProgramadoResponse{}, NewValidationError("equipo_id", "equipment is not available")
	}

	if req.Frecuencia <= 0 {
		return ProgramadoResponse{}, NewValidationError("frecuencia", "frequency must be greater than zero")
	}

	now := time.Now()
	prog := model.MantenimientoProgramado{
		EquipoID:                   equipoID,
		Ficha:                      equipo.Ficha,
		TipoMantenimiento:          req.TipoMantenimiento,
		HorasKmActuales:            req.HorasKmActuales,
		Frecuencia:                 req.Frecuencia,
		HorasKmUltimoMantenimiento: req.HorasKmUltimoMantenimiento,
		FechaUltimaActualizacion:   now,
		Activo:                     true,
	}
	prog.ProximoMantenimiento, prog.HorasKmRestante = maintenance.ComputeRemaining(
		prog.HorasKmActuales, prog.HorasKmUltimoMantenimiento, prog.Frecuencia)

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.programadoRepo.Create(txCtx, &prog); createErr != nil {
			return fmt.Errorf("failed to create scheduled maintenance: %w", createErr)
		}

		var uid *uuid.UUID
		if parsed, parseErr := uuid.Parse(userID); parseErr == nil {
			uid = &parsed
		}
		details, _ := json.Marshal(req)
		audit := &model.AuditLog{
			UserID:     uid,
			Action:     model.ActionRegisterMaintenance,
			EntityID:   prog.ID.String(),
			EntityName: equipo.Ficha,
			Details:    string(details),
		}
		if auditErr := s.auditRepo.Log(txCtx, audit); auditErr != nil {
			return fmt.Errorf("failed to write audit log: %w", auditErr)
		}
		return nil
	})
	if err != nil {
		return ProgramadoResponse{}, err
	}

	prog.Equipo = equipo
	return s.toProgramadoResponse(prog, maintenance.DefaultThreshold), nil
}

func (s *mantenimientoService) ListProgramados(ctx context.Context, page, limit int, threshold float64, soloActivos bool) ([]ProgramadoResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	if threshold <= 0 {
		threshold = maintenance.DefaultThreshold
	}

	progs, total, err := s.programadoRepo.List(ctx, page, limit, soloActivos)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch scheduled maintenance: %w", err)
	}

	res := make([]ProgramadoResponse, 0, len(progs))
	for _, p := range progs {
		res = append(res, s.toProgramadoResponse(p, threshold))
	}
	return res, total, nil
}

func (s *mantenimientoService) GetStatusByFicha(ctx context.Context, ficha string, threshold float64) ([]ProgramadoResponse, error) {
	if threshold <= 0 {
		threshold = maintenance.DefaultThreshold
	}

	progs, err := s.programadoRepo.FindByFicha(ctx, ficha)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch scheduled maintenance: %w", err)
	}

	res := make([]ProgramadoResponse, 0, len(progs))
	for _, p := range progs {
		res = append(res, s.toProgramadoResponse(p, threshold))
	}
	return res, nil
}

func (s *mantenimientoService) RegisterRealizado(ctx context.Context, userID string, req RegisterRealizadoRequest) (RealizadoResponse, error) {
	equipoID, err := uuid.Parse(req.EquipoID)
	if err != nil {
		return RealizadoResponse{}, NewValidationError("equipo_id", "invalid equipment id")
	}

	equipo, err := s.equipoRepo.FindByID(ctx, equipoID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return RealizadoResponse{}, NewValidationError("equipo_id", "equipment not found")
		}
		return RealizadoResponse{}, fmt.Errorf("database error: %w", err)
	}
	if !equipo.Disponible() {
		return RealizadoResponse{}, NewValidationError("equipo_id", "equipment is not available")
	}

	if req.HorasKmAlMomento <= 0 {
		return RealizadoResponse{}, NewValidationError("horas_km_al_momento", "reading must be greater than zero")
	}

	fecha, err := time.Parse("2006-01-02", req.FechaMantenimiento)
	if err != nil {
		return RealizadoResponse{}, NewValidationError("fecha_mantenimiento", "invalid date, expected YYYY-MM-DD")
	}

	actorID, _ := uuid.Parse(userID)
	responsable := userID
	if s.userRepo != nil {
		if user, userErr := s.userRepo.GetByID(ctx, userID); userErr == nil {
			responsable = user.Username
		}
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
				return RealizadoResponse{}, NewValidationError("partes_usadas", "inventory part requires a valid inventario_id")
			}
			parte.InventarioID = &itemID
		}
		partes = append(partes, parte)
	}

	var realizado model.MantenimientoRealizado

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var prog *model.MantenimientoProgramado
		baseline := 0.0
		if p, progErr := s.programadoRepo.FindActiveByEquipoForUpdate(txCtx, equipoID); progErr == nil {
			prog = p
			baseline = p.HorasKmUltimoMantenimiento
		} else if !errors.Is(progErr, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to load scheduled maintenance: %w", progErr)
		} else if last, lastErr := s.realizadoRepo.FindLastByFicha(txCtx, equipo.Ficha); lastErr == nil {
			baseline = last.HorasKmAlMomento
		} else if !errors.Is(lastErr, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to load maintenance history: %w", lastErr)
		}

		realizado = model.MantenimientoRealizado{
			EquipoID:              equipoID,
			Ficha:                 equipo.Ficha,
			FechaMantenimiento:    fecha,
			HorasKmAlMomento:      req.HorasKmAlMomento,
			IncrementoDesdeUltimo: req.HorasKmAlMomento - baseline,
			UsuarioResponsable:    responsable,
			Observaciones:         req.Observaciones,
			PartesUsadas:          partes,
		}
		if createErr := s.realizadoRepo.Create(txCtx, &realizado); createErr != nil {
			return fmt.Errorf("failed to create maintenance record: %w", createErr)
		}

		if prog != nil {
			prog.HorasKmUltimoMantenimiento = req.HorasKmAlMomento
			prog.FechaUltimoMantenimiento = &fecha
			if req.HorasKmAlMomento > prog.HorasKmActuales {
				prog.HorasKmActuales = req.HorasKmAlMomento
			}
			prog.FechaUltimaActualizacion = time.Now()
			prog.ProximoMantenimiento, prog.HorasKmRestante = maintenance.ComputeRemaining(
				prog.HorasKmActuales, prog.HorasKmUltimoMantenimiento, prog.Frecuencia)
			if updateErr := s.programadoRepo.Update(txCtx, prog); updateErr != nil {
				return fmt.Errorf("failed to advance scheduled baseline: %w", updateErr)
			}
		}

		if discountErr := discountInventoryParts(txCtx, s.inventarioRepo, s.auditRepo, partes,
			nil, &actorID, responsable, "Mantenimiento registrado "+equipo.Ficha); discountErr != nil {
			return discountErr
		}

		details, _ := json.Marshal(map[string]interface{}{
			"ficha":               equipo.Ficha,
			"horas_km_al_momento": req.HorasKmAlMomento,
			"partes":              len(partes),
		})
		audit := &model.AuditLog{
			UserID:     &actorID,
			Action:     model.ActionRegisterMaintenance,
			EntityID:   realizado.ID.String(),
			EntityName: equipo.Ficha,
			Details:    string(details),
		}
		if auditErr := s.auditRepo.Log(txCtx, audit); auditErr != nil {
			return fmt.Errorf("failed to write audit log: %w", auditErr)
		}
		return nil
	})
	if err != nil {
		return RealizadoResponse{}, err
	}

	return toRealizadoResponse(realizado), nil
}

func (s *mantenimientoService) Historial(ctx context.Context, ficha string, page, limit int) ([]RealizadoResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	records, total, err := s.realizadoRepo.FindByFicha(ctx, ficha, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch maintenance history: %w", err)
	}

	res := make([]RealizadoResponse, 0, len(records))
	for _, r := range records {
		res = append(res, toRealizadoResponse(r))
	}
	return res, total, nil
}

func (s *mantenimientoService) ListStale(ctx context.Context, dias int) ([]ProgramadoResponse, error) {
	if dias <= 0 {
		dias = 7
	}
	cutoff := time.Now().AddDate(0, 0, -dias)

	progs, err := s.programadoRepo.ListStale(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch stale maintenance: %w", err)
	}

	res := make([]ProgramadoResponse, 0, len(progs))
	for _, p := range progs {
		res = append(res, s.toProgramadoResponse(p, maintenance.DefaultThreshold))
	}
	return res, nil
}

func (s *mantenimientoService) RoutePlan(ctx context.Context, ficha string) (RoutePlanResponse, error) {
	equipo, err := s.equipoRepo.FindByFicha(ctx, ficha)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return RoutePlanResponse{}, errors.New("equipment not found")
		}
		return RoutePlanResponse{}, fmt.Errorf("database error: %w", err)
	}

	horas := 0.0
	if prog, progErr := s.programadoRepo.FindByFicha(ctx, ficha); progErr == nil {
		for _, p := range prog {
			if p.Activo && p.HorasKmActuales > horas {
				horas = p.HorasKmActuales
			}
		}
	}

	intervals := s.loadIntervals(ctx)
	state := maintenance.ComputeCycleState(horas, intervals, 0)

	kit := maintenance.IntervalKit{Tareas: []string{}, Piezas: []maintenance.PartRef{}}
	if state.IntervaloProximo != nil {
		kit = s.resolveKit(ctx, equipo, state.IntervaloProximo.Codigo)
	}

	return RoutePlanResponse{
		Ficha:      equipo.Ficha,
		Modelo:     equipo.Modelo,
		Estado:     state,
		Resumen:    maintenance.DescribeCycleState(state),
		KitProximo: kit,
	}, nil
}

// loadIntervals prefers the admin-managed interval table and falls back to the
// factory tiers when the table is empty or unreadable.
func (s *mantenimientoService) loadIntervals(ctx context.Context) []maintenance.Interval {
	rows, err := s.kitRepo.ListIntervalos(ctx)
	if err != nil || len(rows) == 0 {
		return maintenance.StandardIntervals
	}
	intervals := make([]maintenance.Interval, 0, len(rows))
	for _, r := range rows {
		intervals = append(intervals, maintenance.Interval{
			Codigo:         r.Codigo,
			Nombre:         r.Nombre,
			HorasIntervalo: r.HorasIntervalo,
			Descripcion:    r.Descripcion,
		})
	}
	return intervals
}

// resolveKit prefers a DB-managed kit for the equipment's marca/modelo and
// falls back to the built-in model catalogs.
func (s *mantenimientoService) resolveKit(ctx context.Context, equipo *model.Equipo, intervalo string) maintenance.IntervalKit {
	if kit, err := s.kitRepo.FindByModeloIntervalo(ctx, equipo.Marca, equipo.Modelo, intervalo); err == nil {
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
		return maintenance.IntervalKit{Tareas: tareas, Piezas: piezas}
	}

	catalog := maintenance.FindModelCatalog(equipo.Modelo)
	return maintenance.ResolveKitAndTasks(intervalo, catalog)
}

func (s *mantenimientoService) toProgramadoResponse(p model.MantenimientoProgramado, threshold float64) ProgramadoResponse {
	proximo, restante := maintenance.ComputeRemaining(
		p.HorasKmActuales, p.HorasKmUltimoMantenimiento, p.Frecuencia)
	estado := maintenance.Classify(restante, threshold)

	resp := ProgramadoResponse{
		ID:                         p.ID.String(),
		EquipoID:                   p.EquipoID.String(),
		Ficha:                      p.Ficha,
		TipoMantenimiento:          p.TipoMantenimiento,
		IntervaloCodigo:            maintenance.ResolveIntervalCode(p.TipoMantenimiento, p.Frecuencia),
		HorasKmActuales:            p.HorasKmActuales,
		Frecuencia:                 p.Frecuencia,
		HorasKmUltimoMantenimiento: p.HorasKmUltimoMantenimiento,
		ProximoMantenimiento:       proximo,
		HorasKmRestante:            restante,
		Estado:                     string(estado),
		EstadoLabel:                maintenance.FormatRemainingLabel(restante, "horas"),
		FechaUltimaActualizacion:   p.FechaUltimaActualizacion.Format(time.RFC3339),
		Activo:                     p.Activo,
	}
	if p.Equipo != nil {
		resp.EquipoNombre = p.Equipo.Nombre
	}
	if p.FechaUltimoMantenimiento != nil {
		v := p.FechaUltimoMantenimiento.Format("2006-01-02")
		resp.FechaUltimoMantenimiento = &v
	}
	return resp
}

func toRealizadoResponse(r model.MantenimientoRealizado) RealizadoResponse {
	resp := RealizadoResponse{
		ID:                    r.ID.String(),
		EquipoID:              r.EquipoID.String(),
		Ficha:                 r.Ficha,
		FechaMantenimiento:    r.FechaMantenimiento.Format("2006-01-02"),
		HorasKmAlMomento:      r.HorasKmAlMomento,
		IncrementoDesdeUltimo: r.IncrementoDesdeUltimo,
		UsuarioResponsable:    r.UsuarioResponsable,
		Observaciones:         r.Observaciones,
		PartesUsadas:          r.PartesUsadas,
	}
	if r.SubmissionID != nil {
		v := r.SubmissionID.String()
		resp.SubmissionID = &v
	}
	return resp
}
