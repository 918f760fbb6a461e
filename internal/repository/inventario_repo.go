package repository

import (
	"context"

	"fleetmaint/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type InventarioRepository interface {
	Create(ctx context.Context, item *model.Inventario) error
	Update(ctx context.Context, item *model.Inventario) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Inventario, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Inventario, error)
	FindByCodigo(ctx context.Context, codigo string) (*model.Inventario, error)
	List(ctx context.Context, page, limit int, search string) ([]model.Inventario, int64, error)
	ListBajoStock(ctx context.Context) ([]model.Inventario, error)
	UpdateCantidad(ctx context.Context, id uuid.UUID, cantidad int) error
	CreateMovimiento(ctx context.Context, mov *model.MovimientoInventario) error
	ListMovimientos(ctx context.Context, itemID uuid.UUID, page, limit int) ([]model.MovimientoInventario, int64, error)
}

type inventarioRepository struct {
	db *gorm.DB
}

func NewInventarioRepository(db *gorm.DB) InventarioRepository {
	return &inventarioRepository{db: db}
}

func (r *inventarioRepository) Create(ctx context.Context, item *model.Inventario) error {
	return GetDB(ctx, r.db).Create(item).Error
}

func (r *inventarioRepository) Update(ctx context.Context, item *model.Inventario) error {
	return GetDB(ctx, r.db).Save(item).Error
}

func (r *inventarioRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Inventario{}).Error
}

func (r *inventarioRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Inventario, error) {
	var item model.Inventario
	if err := GetDB(ctx, r.db).First(&item, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *inventarioRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Inventario, error) {
	var item model.Inventario
	if err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *inventarioRepository) FindByCodigo(ctx context.Context, codigo string) (*model.Inventario, error) {
	var item model.Inventario
	if err := GetDB(ctx, r.db).Where("codigo_identificacion = ?", codigo).First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *inventarioRepository) List(ctx context.Context, page, limit int, search string) ([]model.Inventario, int64, error) {
	var items []model.Inventario
	var total int64

	db := GetDB(ctx, r.db).Model(&model.Inventario{})
	if search != "" {
		db = db.Where("nombre ILIKE ? OR numero_parte ILIKE ? OR codigo_identificacion ILIKE ?",
			"%"+search+"%", "%"+search+"%", "%"+search+"%")
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Order("nombre asc").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return nil, 0, err
	}

	return items, total, nil
}

func (r *inventarioRepository) ListBajoStock(ctx context.Context) ([]model.Inventario, error) {
	var items []model.Inventario
	if err := GetDB(ctx, r.db).
		Where("activo = ? AND cantidad <= stock_minimo", true).
		Order("cantidad asc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *inventarioRepository) UpdateCantidad(ctx context.Context, id uuid.UUID, cantidad int) error {
	return GetDB(ctx, r.db).Model(&model.Inventario{}).
		Where("id = ?", id).Update("cantidad", cantidad).Error
}

func (r *inventarioRepository) CreateMovimiento(ctx context.Context, mov *model.MovimientoInventario) error {
	return GetDB(ctx, r.db).Create(mov).Error
}

func (r *inventarioRepository) ListMovimientos(ctx context.Context, itemID uuid.UUID, page, limit int) ([]model.MovimientoInventario, int64, error) {
	var movs []model.MovimientoInventario
	var total int64

	db := GetDB(ctx, r.db).Model(&model.MovimientoInventario{}).Where("inventario_id = ?", itemID)
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := GetDB(ctx, r.db).Where("inventario_id = ?", itemID).
		Order("created_at desc").Offset(offset).Limit(limit).Find(&movs).Error; err != nil {
		return nil, 0, err
	}

	return movs, total, nil
}
