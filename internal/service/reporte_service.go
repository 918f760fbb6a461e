package service

import (
	"context"
	"fmt"
	"time"

	"fleetmaint/internal/maintenance"
	"fleetmaint/internal/model"
	"fleetmaint/internal/repository"

	"github.com/shopspring/decimal"
)

type ReporteService interface {
	// FlotaStatus recomputes every active scheduled row through the resolver
	// and aggregates the counts fleet-wide and per equipment category.
	FlotaStatus(ctx context.Context, threshold float64) (model.FlotaStatusResponse, error)
	Mensual(ctx context.Context, rango model.ReporteRango) ([]model.MensualReportRow, error)
	TopPartes(ctx context.Context, rango model.ReporteRango, limit int) ([]model.ParteConsumoRow, error)
}

type reporteService struct {
	reporteRepo    repository.ReporteRepository
	programadoRepo repository.ProgramadoRepository
	equipoRepo     repository.EquipoRepository
}

func NewReporteService(
	reporteRepo repository.ReporteRepository,
	programadoRepo repository.ProgramadoRepository,
	equipoRepo repository.EquipoRepository,
) ReporteService {
	return &reporteService{
		reporteRepo:    reporteRepo,
		programadoRepo: programadoRepo,
		equipoRepo:     equipoRepo,
	}
}

func (s *reporteService) FlotaStatus(ctx context.Context, threshold float64) (model.FlotaStatusResponse, error) {
	if threshold <= 0 {
		threshold = maintenance.DefaultThreshold
	}

	equipos, err := s.equipoRepo.ListAllActive(ctx)
	if err != nil {
		return model.FlotaStatusResponse{}, fmt.Errorf("failed to fetch equipment: %w", err)
	}

	// A single unpaginated pass: the fleet is a few hundred rows at most.
	progs, _, err := s.programadoRepo.List(ctx, 1, 10000, true)
	if err != nil {
		return model.FlotaStatusResponse{}, fmt.Errorf("failed to fetch scheduled maintenance: %w", err)
	}

	categoriaByEquipo := make(map[string]string, len(equipos))
	for _, e := range equipos {
		categoriaByEquipo[e.ID.String()] = e.Categoria
	}

	resp := model.FlotaStatusResponse{
		Threshold:    threshold,
		TotalEquipos: len(equipos),
	}

	porCategoria := make(map[string]*model.CategoriaStatusRow)
	conProgramacion := make(map[string]bool)

	for _, p := range progs {
		categoria, ok := categoriaByEquipo[p.EquipoID.String()]
		if !ok {
			// Scheduled row for inactive or sold equipment: excluded.
			continue
		}
		conProgramacion[p.EquipoID.String()] = true
		resp.TotalProgramas++

		_, restante := maintenance.ComputeRemaining(
			p.HorasKmActuales, p.HorasKmUltimoMantenimiento, p.Frecuencia)

		row, ok := porCategoria[categoria]
		if !ok {
			row = &model.CategoriaStatusRow{Categoria: categoria}
			porCategoria[categoria] = row
		}

		switch maintenance.Classify(restante, threshold) {
		case maintenance.StatusVencido:
			resp.Vencidos++
			row.Vencidos++
		case maintenance.StatusProximo:
			resp.Proximos++
			row.Proximos++
		default:
			resp.Normales++
			row.Normales++
		}
	}

	for _, e := range equipos {
		if !conProgramacion[e.ID.String()] {
			resp.SinProgramacion++
		}
	}

	resp.PorCategoria = make([]model.CategoriaStatusRow, 0, len(porCategoria))
	for _, row := range porCategoria {
		resp.PorCategoria = append(resp.PorCategoria, *row)
	}

	return resp, nil
}

func (s *reporteService) Mensual(ctx context.Context, rango model.ReporteRango) ([]model.MensualReportRow, error) {
	start, end, err := normalizeRango(rango)
	if err != nil {
		return nil, err
	}

	rows, err := s.reporteRepo.GetMensualStatistics(ctx, start, end)
	if err != nil {
		return nil, err
	}

	costos, err := s.reporteRepo.GetMensualCostoPartes(ctx, start, end)
	if err != nil {
		return nil, err
	}
	costoPorMes := make(map[string]decimal.Decimal, len(costos))
	for _, c := range costos {
		costoPorMes[c.Mes] = decimal.NewFromFloat(c.Costo)
	}

	res := make([]model.MensualReportRow, 0, len(rows))
	for _, r := range rows {
		costo, ok := costoPorMes[r.Mes]
		if !ok {
			costo = decimal.Zero
		}
		res = append(res, model.MensualReportRow{
			Mes:            r.Mes,
			Mantenimientos: r.Mantenimientos,
			HorasKmTotales: r.HorasKmTotales,
			CostoPartes:    costo,
		})
	}

	return res, nil
}

func (s *reporteService) TopPartes(ctx context.Context, rango model.ReporteRango, limit int) ([]model.ParteConsumoRow, error) {
	start, end, err := normalizeRango(rango)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.reporteRepo.GetTopPartesConsumidas(ctx, start, end, limit)
	if err != nil {
		return nil, err
	}

	res := make([]model.ParteConsumoRow, 0, len(rows))
	for _, r := range rows {
		costo := decimal.NewFromFloat(r.CostoUnitario).Mul(decimal.NewFromInt(int64(r.TotalCantidad)))
		res = append(res, model.ParteConsumoRow{
			InventarioID:  r.InventarioID,
			Nombre:        r.Nombre,
			NumeroParte:   r.NumeroParte,
			TotalCantidad: r.TotalCantidad,
			CostoTotal:    costo,
		})
	}
	return res, nil
}

func normalizeRango(rango model.ReporteRango) (time.Time, time.Time, error) {
	start, end := rango.Desde, rango.Hasta
	if start.IsZero() {
		start = time.Now().AddDate(0, -12, 0)
	}
	if end.IsZero() {
		end = time.Now()
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, NewValidationError("rango", "end date is before start date")
	}
	return start, end, nil
}
