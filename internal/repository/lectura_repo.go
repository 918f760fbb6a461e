package repository

import (
	"context"

	"fleetmaint/internal/model"

	"gorm.io/gorm"
)

type LecturaRepository interface {
	Create(ctx context.Context, lectura *model.ActualizacionHorasKm) error
	FindLastByFicha(ctx context.Context, ficha string) (*model.ActualizacionHorasKm, error)
	FindByFicha(ctx context.Context, ficha string, page, limit int) ([]model.ActualizacionHorasKm, int64, error)
}

type lecturaRepository struct {
	db *gorm.DB
}

func NewLecturaRepository(db *gorm.DB) LecturaRepository {
	return &lecturaRepository{db: db}
}

func (r *lecturaRepository) Create(ctx context.Context, lectura *model.ActualizacionHorasKm) error {
	return GetDB(ctx, r.db).Create(lectura).Error
}

func (r *lecturaRepository) FindLastByFicha(ctx context.Context, ficha string) (*model.ActualizacionHorasKm, error) {
	var lectura model.ActualizacionHorasKm
	if err := GetDB(ctx, r.db).Where("ficha = ?", ficha).
		Order("fecha desc, created_at desc").First(&lectura).Error; err != nil {
		return nil, err
	}
	return &lectura, nil
}

func (r *lecturaRepository) FindByFicha(ctx context.Context, ficha string, page, limit int) ([]model.ActualizacionHorasKm, int64, error) {
	var lecturas []model.ActualizacionHorasKm
	var total int64

	db := GetDB(ctx, r.db).Model(&model.ActualizacionHorasKm{}).Where("ficha = ?", ficha)
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := GetDB(ctx, r.db).Where("ficha = ?", ficha).
		Order("fecha desc").Offset(offset).Limit(limit).Find(&lecturas).Error; err != nil {
		return nil, 0, err
	}

	return lecturas, total, nil
}
