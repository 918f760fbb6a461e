package repository

import (
	"context"

	"fleetmaint/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type EquipoRepository interface {
	Create(ctx context.Context, equipo *model.Equipo) error
	Update(ctx context.Context, equipo *model.Equipo) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Equipo, error)
	FindByFicha(ctx context.Context, ficha string) (*model.Equipo, error)
	List(ctx context.Context, page, limit int, search string, soloActivos bool) ([]model.Equipo, int64, error)
	ListAllActive(ctx context.Context) ([]model.Equipo, error)
}

type equipoRepository struct {
	db *gorm.DB
}

func NewEquipoRepository(db *gorm.DB) EquipoRepository {
	return &equipoRepository{db: db}
}

func (r *equipoRepository) Create(ctx context.Context, equipo *model.Equipo) error {
	return GetDB(ctx, r.db).Create(equipo).Error
}

func (r *equipoRepository) Update(ctx context.Context, equipo *model.Equipo) error {
	return GetDB(ctx, r.db).Save(equipo).Error
}

func (r *equipoRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Equipo, error) {
	var equipo model.Equipo
	if err := GetDB(ctx, r.db).First(&equipo, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &equipo, nil
}

func (r *equipoRepository) FindByFicha(ctx context.Context, ficha string) (*model.Equipo, error) {
	var equipo model.Equipo
	if err := GetDB(ctx, r.db).Where("ficha = ?", ficha).First(&equipo).Error; err != nil {
		return nil, err
	}
	return &equipo, nil
}

func (r *equipoRepository) List(ctx context.Context, page, limit int, search string, soloActivos bool) ([]model.Equipo, int64, error) {
	var equipos []model.Equipo
	var total int64

	db := GetDB(ctx, r.db).Model(&model.Equipo{})
	if search != "" {
		db = db.Where("ficha ILIKE ? OR nombre ILIKE ? OR placa ILIKE ?",
			"%"+search+"%", "%"+search+"%", "%"+search+"%")
	}
	if soloActivos {
		db = db.Where("activo = ?", true)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Order("ficha asc").Offset(offset).Limit(limit).Find(&equipos).Error; err != nil {
		return nil, 0, err
	}

	return equipos, total, nil
}

func (r *equipoRepository) ListAllActive(ctx context.Context) ([]model.Equipo, error) {
	var equipos []model.Equipo
	if err := GetDB(ctx, r.db).
		Where("activo = ? AND empresa <> ?", true, model.EmpresaVendido).
		Order("ficha asc").Find(&equipos).Error; err != nil {
		return nil, err
	}
	return equipos, nil
}
