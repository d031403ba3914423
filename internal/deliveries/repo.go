package deliveries

import (
	"context"

	"github.com/movielex/movielex-backend/internal/repo"
	"github.com/movielex/movielex-backend/pkg/db/models"
	"gorm.io/gorm"
)

// ContentCount aggregates successful deliveries per content item.
type ContentCount struct {
	ContentName string `gorm:"column:content_name"`
	Count       int64  `gorm:"column:count"`
}

// Repository manages persistence for the append-only delivery log.
type Repository interface {
	Create(ctx context.Context, record *models.DeliveryRecord) error
	Exists(ctx context.Context, userID int64, contentName string) (bool, error)
	CountsByContent(ctx context.Context) ([]ContentCount, error)
	ListByUser(ctx context.Context, userID int64, limit int) ([]models.DeliveryRecord, error)
	RenameContent(ctx context.Context, oldName, newName string) error
	DeleteByContent(ctx context.Context, name string) error
}

type repository struct {
	repo.Base
}

// NewRepository returns a delivery log repository bound to the provided
// database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) Create(ctx context.Context, record *models.DeliveryRecord) error {
	return r.DB(ctx).Create(record).Error
}

func (r *repository) Exists(ctx context.Context, userID int64, contentName string) (bool, error) {
	var count int64
	err := r.DB(ctx).Model(&models.DeliveryRecord{}).
		Where("user_id = ? AND content_name = ?", userID, contentName).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) CountsByContent(ctx context.Context) ([]ContentCount, error) {
	var counts []ContentCount
	err := r.DB(ctx).Model(&models.DeliveryRecord{}).
		Select("content_name, COUNT(*) AS count").
		Group("content_name").
		Order("count DESC").
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}
	return counts, nil
}

func (r *repository) ListByUser(ctx context.Context, userID int64, limit int) ([]models.DeliveryRecord, error) {
	query := r.DB(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var records []models.DeliveryRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (r *repository) RenameContent(ctx context.Context, oldName, newName string) error {
	return r.DB(ctx).Model(&models.DeliveryRecord{}).
		Where("content_name = ?", oldName).
		Update("content_name", newName).Error
}

func (r *repository) DeleteByContent(ctx context.Context, name string) error {
	return r.DB(ctx).Where("content_name = ?", name).Delete(&models.DeliveryRecord{}).Error
}
