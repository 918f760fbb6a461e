package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
)

type MensualDataRow struct {
	Mes            string  `gorm:"column:mes"`
	Mantenimientos int     `gorm:"column:mantenimientos"`
	HorasKmTotales float64 `gorm:"column:horas_km_totales"`
}

type ParteConsumoDataRow struct {
	InventarioID  string  `gorm:"column:inventario_id"`
	Nombre        string  `gorm:"column:nombre"`
	NumeroParte   string  `gorm:"column:numero_parte"`
	TotalCantidad int     `gorm:"column:total_cantidad"`
	CostoUnitario float64 `gorm:"column:costo_unitario"`
}

type MensualCostoRow struct {
	Mes   string  `gorm:"column:mes"`
	Costo float64 `gorm:"column:costo"`
}

type ReporteRepository interface {
	GetMensualStatistics(ctx context.Context, start, end time.Time) ([]MensualDataRow, error)
	GetMensualCostoPartes(ctx context.Context, start, end time.Time) ([]MensualCostoRow, error)
	GetTopPartesConsumidas(ctx context.Context, start, end time.Time, limit int) ([]ParteConsumoDataRow, error)
}

type reporteRepository struct {
	db *gorm.DB
}

func NewReporteRepository(db *gorm.DB) ReporteRepository {
	return &reporteRepository{db: db}
}

func (r *reporteRepository) GetMensualStatistics(ctx context.Context, start, end time.Time) ([]MensualDataRow, error) {
	query := `
		SELECT
			TO_CHAR(DATE_TRUNC('month', m.fecha_mantenimiento), 'YYYY-MM') AS mes,
			COUNT(*) AS mantenimientos,
			COALESCE(SUM(m.incremento_desde_ultimo), 0) AS horas_km_totales
		FROM mantenimiento_realizados m
		WHERE m.fecha_mantenimiento >= $1::timestamptz
		  AND m.fecha_mantenimiento <= $2::timestamptz
		GROUP BY DATE_TRUNC('month', m.fecha_mantenimiento)
		ORDER BY mes
	`

	var rows []MensualDataRow
	if err := r.db.WithContext(ctx).Raw(query, start, end).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query monthly statistics: %w", err)
	}

	return rows, nil
}

// GetMensualCostoPartes sums the cost of parts discounted through SALIDA
// movements per month, valued at the current unit cost of each item.
func (r *reporteRepository) GetMensualCostoPartes(ctx context.Context, start, end time.Time) ([]MensualCostoRow, error) {
	query := `
		SELECT
			TO_CHAR(DATE_TRUNC('month', mv.created_at), 'YYYY-MM') AS mes,
			COALESCE(SUM(-mv.cantidad * i.costo_unitario), 0) AS costo
		FROM movimiento_inventarios mv
		JOIN inventarios i ON i.id = mv.inventario_id
		WHERE mv.tipo = 'SALIDA'
		  AND mv.created_at >= $1::timestamptz
		  AND mv.created_at <= $2::timestamptz
		GROUP BY DATE_TRUNC('month', mv.created_at)
		ORDER BY mes
	`

	var rows []MensualCostoRow
	if err := r.db.WithContext(ctx).Raw(query, start, end).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query monthly part costs: %w", err)
	}

	return rows, nil
}

// GetTopPartesConsumidas ranks inventory items by quantity discounted through
// SALIDA movements in the range. Cantidad on SALIDA rows is negative.
func (r *reporteRepository) GetTopPartesConsumidas(ctx context.Context, start, end time.Time, limit int) ([]ParteConsumoDataRow, error) {
	query := `
		SELECT
			i.id AS inventario_id,
			i.nombre AS nombre,
			i.numero_parte AS numero_parte,
			COALESCE(SUM(-mv.cantidad), 0) AS total_cantidad,
			i.costo_unitario AS costo_unitario
		FROM movimiento_inventarios mv
		JOIN inventarios i ON i.id = mv.inventario_id
		WHERE mv.tipo = 'SALIDA'
		  AND mv.created_at >= $1::timestamptz
		  AND mv.created_at <= $2::timestamptz
		GROUP BY i.id, i.nombre, i.numero_parte, i.costo_unitario
		ORDER BY total_cantidad DESC
		LIMIT $3
	`

	var rows []ParteConsumoDataRow
	if err := r.db.WithContext(ctx).Raw(query, start, end, limit).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query parts consumption: %w", err)
	}

	return rows, nil
}
