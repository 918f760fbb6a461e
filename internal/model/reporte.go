package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// FlotaStatusResponse aggregates fleet-wide maintenance status counts at a
// given upcoming threshold. Counts are recomputed through the resolver, never
// read from stored caches.
type FlotaStatusResponse struct {
	Threshold       float64              `json:"threshold"`
	TotalEquipos    int                  `json:"total_equipos"`
	TotalProgramas  int                  `json:"total_programas"`
	Vencidos        int                  `json:"vencidos"`
	Proximos        int                  `json:"proximos"`
	Normales        int                  `json:"normales"`
	SinProgramacion int                  `json:"sin_programacion"`
	PorCategoria    []CategoriaStatusRow `json:"por_categoria"`
}

// CategoriaStatusRow is the per-category breakdown of the fleet status report
type CategoriaStatusRow struct {
	Categoria string `json:"categoria"`
	Vencidos  int    `json:"vencidos"`
	Proximos  int    `json:"proximos"`
	Normales  int    `json:"normales"`
}

// MensualReportRow is one month of realized-maintenance activity
type MensualReportRow struct {
	Mes            string          `json:"mes"` // YYYY-MM
	Mantenimientos int             `json:"mantenimientos"`
	HorasKmTotales float64         `json:"horas_km_totales"`
	CostoPartes    decimal.Decimal `json:"costo_partes"`
}

// ParteConsumoRow ranks a spare part by accumulated consumption
type ParteConsumoRow struct {
	InventarioID  string          `json:"inventario_id"`
	Nombre        string          `json:"nombre"`
	NumeroParte   string          `json:"numero_parte"`
	TotalCantidad int             `json:"total_cantidad"`
	CostoTotal    decimal.Decimal `json:"costo_total"`
}

// ReporteRango bounds a report query
type ReporteRango struct {
	Desde time.Time `json:"desde"`
	Hasta time.Time `json:"hasta"`
}
