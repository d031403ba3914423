package subscriptions

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/movielex/movielex-backend/internal/repo"
	"github.com/movielex/movielex-backend/pkg/db/models"
)

// Repository manages persistence for the single-row-per-user subscription
// register.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Upsert(ctx context.Context, subscription *models.Subscription) error
	Get(ctx context.Context, userID int64) (*models.Subscription, error)
	Delete(ctx context.Context, userID int64) (int64, error)
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
	ListActive(ctx context.Context, now time.Time) ([]models.Subscription, error)
}

type repository struct {
	repo.Base
}

// NewRepository returns a subscription repository bound to the provided
// database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: repo.NewBase(tx)}
}

// Upsert writes the user's subscription row, replacing any existing one. The
// primary key on user_id is what makes activation a wholesale replacement.
func (r *repository) Upsert(ctx context.Context, subscription *models.Subscription) error {
	return r.DB(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"category", "start_at", "end_at", "price_paid", "updated_at",
		}),
	}).Create(subscription).Error
}

func (r *repository) Get(ctx context.Context, userID int64) (*models.Subscription, error) {
	var subscription models.Subscription
	err := r.DB(ctx).Where("user_id = ?", userID).First(&subscription).Error
	if err != nil {
		return nil, err
	}
	return &subscription, nil
}

func (r *repository) Delete(ctx context.Context, userID int64) (int64, error) {
	result := r.DB(ctx).Where("user_id = ?", userID).Delete(&models.Subscription{})
	return result.RowsAffected, result.Error
}

func (r *repository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	result := r.DB(ctx).Where("end_at <= ?", before).Delete(&models.Subscription{})
	return result.RowsAffected, result.Error
}

func (r *repository) ListActive(ctx context.Context, now time.Time) ([]models.Subscription, error) {
	var subscriptions []models.Subscription
	err := r.DB(ctx).
		Where("start_at <= ? AND end_at > ?", now, now).
		Order("end_at ASC").
		Find(&subscriptions).Error
	if err != nil {
		return nil, err
	}
	return subscriptions, nil
}
