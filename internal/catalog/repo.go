package catalog

import (
	"context"

	"github.com/movielex/movielex-backend/internal/repo"
	"github.com/movielex/movielex-backend/pkg/db/models"
	"github.com/movielex/movielex-backend/pkg/enums"
	"gorm.io/gorm"
)

// Repository manages persistence for catalog content items.
type Repository interface {
	Create(ctx context.Context, item *models.ContentItem) error
	Save(ctx context.Context, item *models.ContentItem) error
	GetByName(ctx context.Context, name string) (*models.ContentItem, error)
	List(ctx context.Context) ([]models.ContentItem, error)
	ListByCategory(ctx context.Context, category enums.ContentCategory) ([]models.ContentItem, error)
	Rename(ctx context.Context, oldName, newName string) (int64, error)
	DeleteByName(ctx context.Context, name string) (int64, error)
}

type repository struct {
	repo.Base
}

// NewRepository returns a catalog repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) Create(ctx context.Context, item *models.ContentItem) error {
	return r.DB(ctx).Create(item).Error
}

func (r *repository) Save(ctx context.Context, item *models.ContentItem) error {
	return r.DB(ctx).Save(item).Error
}

func (r *repository) GetByName(ctx context.Context, name string) (*models.ContentItem, error) {
	var item models.ContentItem
	if err := r.DB(ctx).First(&item, "name = ?", name).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) List(ctx context.Context) ([]models.ContentItem, error) {
	var items []models.ContentItem
	if err := r.DB(ctx).Order("name ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) ListByCategory(ctx context.Context, category enums.ContentCategory) ([]models.ContentItem, error) {
	var items []models.ContentItem
	if err := r.DB(ctx).
		Where("category = ?", category).
		Order("name ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) Rename(ctx context.Context, oldName, newName string) (int64, error) {
	res := r.DB(ctx).Model(&models.ContentItem{}).
		Where("name = ?", oldName).
		Update("name", newName)
	return res.RowsAffected, res.Error
}

func (r *repository) DeleteByName(ctx context.Context, name string) (int64, error) {
	res := r.DB(ctx).Where("name = ?", name).Delete(&models.ContentItem{})
	return res.RowsAffected, res.Error
}
