package repository

import (
	"context"
	"time"

	"fleetmaint/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProgramadoRepository interface {
	Create(ctx context.Context, m *model.MantenimientoProgramado) error
	Update(ctx context.Context, m *model.MantenimientoProgramado) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.MantenimientoProgramado, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.MantenimientoProgramado, error)
	FindByFicha(ctx context.Context, ficha string) ([]model.MantenimientoProgramado, error)
	FindActiveByEquipoForUpdate(ctx context.Context, equipoID uuid.UUID) (*model.MantenimientoProgramado, error)
	List(ctx context.Context, page, limit int, soloActivos bool) ([]model.MantenimientoProgramado, int64, error)
	ListStale(ctx context.Context, cutoff time.Time) ([]model.MantenimientoProgramado, error)
}

type programadoRepository struct {
	db *gorm.DB
}

func NewProgramadoRepository(db *gorm.DB) ProgramadoRepository {
	return &programadoRepository{db: db}
}

func (r *programadoRepository) Create(ctx context.Context, m *model.MantenimientoProgramado) error {
	return GetDB(ctx, r.db).Create(m).Error
}

func (r *programadoRepository) Update(ctx context.Context, m *model.MantenimientoProgramado) error {
	return GetDB(ctx, r.db).Save(m).Error
}

func (r *programadoRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.MantenimientoProgramado, error) {
	var m model.MantenimientoProgramado
	if err := GetDB(ctx, r.db).Preload("Equipo").First(&m, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *programadoRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.MantenimientoProgramado, error) {
	var m model.MantenimientoProgramado
	if err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *programadoRepository) FindByFicha(ctx context.Context, ficha string) ([]model.MantenimientoProgramado, error) {
	var ms []model.MantenimientoProgramado
	if err := GetDB(ctx, r.db).Where("ficha = ?", ficha).
		Order("created_at asc").Find(&ms).Error; err != nil {
		return nil, err
	}
	return ms, nil
}

func (r *programadoRepository) FindActiveByEquipoForUpdate(ctx context.Context, equipoID uuid.UUID) (*model.MantenimientoProgramado, error) {
	var m model.MantenimientoProgramado
	if err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("equipo_id = ? AND activo = ?", equipoID, true).
		Order("created_at asc").First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *programadoRepository) List(ctx context.Context, page, limit int, soloActivos bool) ([]model.MantenimientoProgramado, int64, error) {
	var ms []model.MantenimientoProgramado
	var total int64

	db := GetDB(ctx, r.db).Model(&model.MantenimientoProgramado{})
	if soloActivos {
		db = db.Where("activo = ?", true)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	fetch := GetDB(ctx, r.db).Preload("Equipo")
	if soloActivos {
		fetch = fetch.Where("activo = ?", true)
	}
	if err := fetch.Order("ficha asc").Offset(offset).Limit(limit).Find(&ms).Error; err != nil {
		return nil, 0, err
	}

	return ms, total, nil
}

// ListStale returns active scheduled maintenances whose last reading update
// is older than the cutoff, used to flag equipment with no recent readings.
func (r *programadoRepository) ListStale(ctx context.Context, cutoff time.Time) ([]model.MantenimientoProgramado, error) {
	var ms []model.MantenimientoProgramado
	if err := GetDB(ctx, r.db).Preload("Equipo").
		Where("activo = ? AND fecha_ultima_actualizacion < ?", true, cutoff).
		Order("fecha_ultima_actualizacion asc").Find(&ms).Error; err != nil {
		return nil, err
	}
	return ms, nil
}

type RealizadoRepository interface {
	Create(ctx context.Context, m *model.MantenimientoRealizado) error
	FindByFicha(ctx context.Context, ficha string, page, limit int) ([]model.MantenimientoRealizado, int64, error)
	FindLastByFicha(ctx context.Context, ficha string) (*model.MantenimientoRealizado, error)
	CountBySubmission(ctx context.Context, submissionID uuid.UUID) (int64, error)
}

type realizadoRepository struct {
	db *gorm.DB
}

func NewRealizadoRepository(db *gorm.DB) RealizadoRepository {
	return &realizadoRepository{db: db}
}

func (r *realizadoRepository) Create(ctx context.Context, m *model.MantenimientoRealizado) error {
	return GetDB(ctx, r.db).Create(m).Error
}

func (r *realizadoRepository) FindByFicha(ctx context.Context, ficha string, page, limit int) ([]model.MantenimientoRealizado, int64, error) {
	var ms []model.MantenimientoRealizado
	var total int64

	db := GetDB(ctx, r.db).Model(&model.MantenimientoRealizado{}).Where("ficha = ?", ficha)
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := GetDB(ctx, r.db).Where("ficha = ?", ficha).
		Order("fecha_mantenimiento desc").Offset(offset).Limit(limit).Find(&ms).Error; err != nil {
		return nil, 0, err
	}

	return ms, total, nil
}

func (r *realizadoRepository) FindLastByFicha(ctx context.Context, ficha string) (*model.MantenimientoRealizado, error) {
	var m model.MantenimientoRealizado
	if err := GetDB(ctx, r.db).Where("ficha = ?", ficha).
		Order("fecha_mantenimiento desc").First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *realizadoRepository) CountBySubmission(ctx context.Context, submissionID uuid.UUID) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.MantenimientoRealizado{}).
		Where("submission_id = ?", submissionID).Count(&count).Error
	return count, err
}
