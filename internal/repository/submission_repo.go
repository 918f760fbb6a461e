package repository

import (
	"context"
	"time"

	"fleetmaint/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SubmissionRepository interface {
	Create(ctx context.Context, sub *model.MaintenanceSubmission) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.MaintenanceSubmission, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.MaintenanceSubmission, error)
	FindByIDWithRelations(ctx context.Context, id uuid.UUID) (*model.MaintenanceSubmission, error)
	List(ctx context.Context, status string, page, limit int) ([]model.MaintenanceSubmission, int64, error)
	ListByCreator(ctx context.Context, createdBy uuid.UUID) ([]model.MaintenanceSubmission, error)
	// TransitionFromPending performs the compare-and-set status write: it only
	// succeeds while the row is still pending, so two concurrent reviews of
	// the same submission can never both win.
	TransitionFromPending(ctx context.Context, id uuid.UUID, updates map[string]interface{}) (bool, error)
	CountByStatus(ctx context.Context, createdBy *uuid.UUID) (map[string]int64, error)
	CountCreatedSince(ctx context.Context, createdBy *uuid.UUID, since time.Time) (int64, error)
	CreateAttachment(ctx context.Context, att *model.SubmissionAttachment) error
	ListAttachments(ctx context.Context, submissionID uuid.UUID) ([]model.SubmissionAttachment, error)
}

type submissionRepository struct {
	db *gorm.DB
}

func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) Create(ctx context.Context, sub *model.MaintenanceSubmission) error {
	return GetDB(ctx, r.db).Create(sub).Error
}

func (r *submissionRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.MaintenanceSubmission, error) {
	var sub model.MaintenanceSubmission
	if err := GetDB(ctx, r.db).First(&sub, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *submissionRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.MaintenanceSubmission, error) {
	var sub model.MaintenanceSubmission
	if err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).First(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *submissionRepository) FindByIDWithRelations(ctx context.Context, id uuid.UUID) (*model.MaintenanceSubmission, error) {
	var sub model.MaintenanceSubmission
	if err := GetDB(ctx, r.db).Preload("Creator").Preload("Reviewer").Preload("Equipo").
		First(&sub, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *submissionRepository) List(ctx context.Context, status string, page, limit int) ([]model.MaintenanceSubmission, int64, error) {
	var subs []model.MaintenanceSubmission
	var total int64

	db := GetDB(ctx, r.db)
	query := db.Model(&model.MaintenanceSubmission{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	fetch := db.Preload("Creator").Preload("Reviewer").Preload("Equipo")
	if status != "" {
		fetch = fetch.Where("status = ?", status)
	}
	if err := fetch.Order("created_at DESC").Offset(offset).Limit(limit).Find(&subs).Error; err != nil {
		return nil, 0, err
	}

	return subs, total, nil
}

func (r *submissionRepository) ListByCreator(ctx context.Context, createdBy uuid.UUID) ([]model.MaintenanceSubmission, error) {
	var subs []model.MaintenanceSubmission
	if err := GetDB(ctx, r.db).Preload("Equipo").
		Where("created_by = ?", createdBy).
		Order("created_at DESC").Find(&subs).Error; err != nil {
		return nil, err
	}
	return subs, nil
}

func (r *submissionRepository) TransitionFromPending(ctx context.Context, id uuid.UUID, updates map[string]interface{}) (bool, error) {
	res := GetDB(ctx, r.db).Model(&model.MaintenanceSubmission{}).
		Where("id = ? AND status = ?", id, model.SubmissionPending).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *submissionRepository) CountByStatus(ctx context.Context, createdBy *uuid.UUID) (map[string]int64, error) {
	var rows []struct {
		Status string
		Count  int64
	}

	db := GetDB(ctx, r.db).Model(&model.MaintenanceSubmission{}).
		Select("status, COUNT(*) as count").Group("status")
	if createdBy != nil {
		db = db.Where("created_by = ?", *createdBy)
	}
	if err := db.Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

func (r *submissionRepository) CountCreatedSince(ctx context.Context, createdBy *uuid.UUID, since time.Time) (int64, error) {
	var count int64
	db := GetDB(ctx, r.db).Model(&model.MaintenanceSubmission{}).
		Where("created_at >= ?", since)
	if createdBy != nil {
		db = db.Where("created_by = ?", *createdBy)
	}
	err := db.Count(&count).Error
	return count, err
}

func (r *submissionRepository) CreateAttachment(ctx context.Context, att *model.SubmissionAttachment) error {
	return GetDB(ctx, r.db).Create(att).Error
}

func (r *submissionRepository) ListAttachments(ctx context.Context, submissionID uuid.UUID) ([]model.SubmissionAttachment, error) {
	var atts []model.SubmissionAttachment
	if err := GetDB(ctx, r.db).Where("submission_id = ?", submissionID).
		Order("created_at asc").Find(&atts).Error; err != nil {
		return nil, err
	}
	return atts, nil
}
