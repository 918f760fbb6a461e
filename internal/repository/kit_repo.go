package repository

import (
	"context"

	"fleetmaint/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type KitRepository interface {
	Create(ctx context.Context, kit *model.KitMantenimiento) error
	Update(ctx context.Context, kit *model.KitMantenimiento) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.KitMantenimiento, error)
	FindByModeloIntervalo(ctx context.Context, marca, modelo, intervalo string) (*model.KitMantenimiento, error)
	List(ctx context.Context, page, limit int) ([]model.KitMantenimiento, int64, error)
	ListIntervalos(ctx context.Context) ([]model.PlanIntervalo, error)
	UpsertIntervalo(ctx context.Context, intervalo *model.PlanIntervalo) error
}

type kitRepository struct {
	db *gorm.DB
}

func NewKitRepository(db *gorm.DB) KitRepository {
	return &kitRepository{db: db}
}

func (r *kitRepository) Create(ctx context.Context, kit *model.KitMantenimiento) error {
	return GetDB(ctx, r.db).Create(kit).Error
}

func (r *kitRepository) Update(ctx context.Context, kit *model.KitMantenimiento) error {
	return GetDB(ctx, r.db).Session(&gorm.Session{FullSaveAssociations: true}).Save(kit).Error
}

func (r *kitRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.KitMantenimiento{}).Error
}

func (r *kitRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.KitMantenimiento, error) {
	var kit model.KitMantenimiento
	if err := GetDB(ctx, r.db).Preload("Piezas").First(&kit, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &kit, nil
}

func (r *kitRepository) FindByModeloIntervalo(ctx context.Context, marca, modelo, intervalo string) (*model.KitMantenimiento, error) {
	var kit model.KitMantenimiento
	if err := GetDB(ctx, r.db).Preload("Piezas").
		Where("marca ILIKE ? AND modelo ILIKE ? AND intervalo = ?", marca, modelo, intervalo).
		First(&kit).Error; err != nil {
		return nil, err
	}
	return &kit, nil
}

func (r *kitRepository) List(ctx context.Context, page, limit int) ([]model.KitMantenimiento, int64, error) {
	var kits []model.KitMantenimiento
	var total int64

	if err := GetDB(ctx, r.db).Model(&model.KitMantenimiento{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := GetDB(ctx, r.db).Preload("Piezas").
		Order("marca asc, modelo asc, intervalo asc").
		Offset(offset).Limit(limit).Find(&kits).Error; err != nil {
		return nil, 0, err
	}

	return kits, total, nil
}

func (r *kitRepository) ListIntervalos(ctx context.Context) ([]model.PlanIntervalo, error) {
	var intervalos []model.PlanIntervalo
	if err := GetDB(ctx, r.db).Order("horas_intervalo asc").Find(&intervalos).Error; err != nil {
		return nil, err
	}
	return intervalos, nil
}

func (r *kitRepository) UpsertIntervalo(ctx context.Context, intervalo *model.PlanIntervalo) error {
	return GetDB(ctx, r.db).Save(intervalo).Error
}
