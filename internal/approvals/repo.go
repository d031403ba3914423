package approvals

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/movielex/movielex-backend/internal/repo"
	"github.com/movielex/movielex-backend/pkg/db/models"
	"github.com/movielex/movielex-backend/pkg/enums"
)

// Repository manages persistence for payment submissions.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, submission *models.PaymentSubmission) error
	GetByID(ctx context.Context, id int64) (*models.PaymentSubmission, error)
	// MarkProcessed flips a pending submission into a terminal status. The
	// pending guard in the WHERE clause is what makes double-processing
	// observable as zero affected rows.
	MarkProcessed(ctx context.Context, id int64, status enums.SubmissionStatus, amount *int, at time.Time) (int64, error)
	LatestPendingByUser(ctx context.Context, userID int64) (*models.PaymentSubmission, error)
	ListByUser(ctx context.Context, userID int64, limit int) ([]models.PaymentSubmission, error)
	ListPending(ctx context.Context) ([]models.PaymentSubmission, error)
	DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
}

type repository struct {
	repo.Base
}

// NewRepository returns a payment submission repository bound to the
// provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: repo.NewBase(tx)}
}

func (r *repository) Create(ctx context.Context, submission *models.PaymentSubmission) error {
	return r.DB(ctx).Create(submission).Error
}

func (r *repository) GetByID(ctx context.Context, id int64) (*models.PaymentSubmission, error) {
	var submission models.PaymentSubmission
	err := r.DB(ctx).Where("id = ?", id).First(&submission).Error
	if err != nil {
		return nil, err
	}
	return &submission, nil
}

func (r *repository) MarkProcessed(ctx context.Context, id int64, status enums.SubmissionStatus, amount *int, at time.Time) (int64, error) {
	updates := map[string]any{
		"status":       status,
		"processed_at": at,
	}
	if amount != nil {
		updates["amount"] = *amount
	}
	result := r.DB(ctx).Model(&models.PaymentSubmission{}).
		Where("id = ? AND status = ?", id, enums.SubmissionStatusPending).
		Updates(updates)
	return result.RowsAffected, result.Error
}

func (r *repository) LatestPendingByUser(ctx context.Context, userID int64) (*models.PaymentSubmission, error) {
	var submission models.PaymentSubmission
	err := r.DB(ctx).
		Where("user_id = ? AND status = ?", userID, enums.SubmissionStatusPending).
		Order("submitted_at DESC").
		First(&submission).Error
	if err != nil {
		return nil, err
	}
	return &submission, nil
}

func (r *repository) ListByUser(ctx context.Context, userID int64, limit int) ([]models.PaymentSubmission, error) {
	query := r.DB(ctx).
		Where("user_id = ?", userID).
		Order("submitted_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var submissions []models.PaymentSubmission
	if err := query.Find(&submissions).Error; err != nil {
		return nil, err
	}
	return submissions, nil
}

func (r *repository) ListPending(ctx context.Context) ([]models.PaymentSubmission, error) {
	var submissions []models.PaymentSubmission
	err := r.DB(ctx).
		Where("status = ?", enums.SubmissionStatusPending).
		Order("submitted_at ASC").
		Find(&submissions).Error
	if err != nil {
		return nil, err
	}
	return submissions, nil
}

func (r *repository) DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error) {
	result := r.DB(ctx).
		Where("status <> ? AND processed_at < ?", enums.SubmissionStatusPending, before).
		Delete(&models.PaymentSubmission{})
	return result.RowsAffected, result.Error
}
