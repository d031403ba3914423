package accessgate

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/movielex/movielex-backend/internal/repo"
	"github.com/movielex/movielex-backend/pkg/db/models"
)

// Repository manages persistence for block rows.
type Repository interface {
	Upsert(ctx context.Context, status *models.BlockStatus) error
	Get(ctx context.Context, userID int64) (*models.BlockStatus, error)
	MarkUnblocked(ctx context.Context, userID int64, at time.Time) (int64, error)
	ListBlocked(ctx context.Context) ([]models.BlockStatus, error)
	DeleteUnblockedBefore(ctx context.Context, before time.Time) (int64, error)
}

type repository struct {
	repo.Base
}

// NewRepository returns a block status repository bound to the provided
// database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) Upsert(ctx context.Context, status *models.BlockStatus) error {
	return r.DB(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"blocked_at", "unblocked", "unblocked_at", "updated_at",
		}),
	}).Create(status).Error
}

func (r *repository) Get(ctx context.Context, userID int64) (*models.BlockStatus, error) {
	var status models.BlockStatus
	err := r.DB(ctx).Where("user_id = ?", userID).First(&status).Error
	if err != nil {
		return nil, err
	}
	return &status, nil
}

func (r *repository) MarkUnblocked(ctx context.Context, userID int64, at time.Time) (int64, error) {
	result := r.DB(ctx).Model(&models.BlockStatus{}).
		Where("user_id = ? AND unblocked = ?", userID, false).
		Updates(map[string]any{"unblocked": true, "unblocked_at": at})
	return result.RowsAffected, result.Error
}

func (r *repository) ListBlocked(ctx context.Context) ([]models.BlockStatus, error) {
	var statuses []models.BlockStatus
	err := r.DB(ctx).
		Where("unblocked = ?", false).
		Order("blocked_at DESC").
		Find(&statuses).Error
	if err != nil {
		return nil, err
	}
	return statuses, nil
}

func (r *repository) DeleteUnblockedBefore(ctx context.Context, before time.Time) (int64, error) {
	result := r.DB(ctx).
		Where("unblocked = ? AND unblocked_at < ?", true, before).
		Delete(&models.BlockStatus{})
	return result.RowsAffected, result.Error
}
