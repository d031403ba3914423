package catalog

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/movielex/movielex-backend/pkg/db/models"
	"github.com/movielex/movielex-backend/pkg/enums"
	"github.com/movielex/movielex-backend/pkg/errors"
	"github.com/movielex/movielex-backend/pkg/logger"
	"gorm.io/gorm"
)

// DeliveryCascade is the slice of the delivery log consulted when content is
// renamed or deleted, so history keys stay consistent with the catalog.
type DeliveryCascade interface {
	RenameContent(ctx context.Context, oldName, newName string) error
	DeleteByContent(ctx context.Context, name string) error
}

// ServiceParams groups dependencies for the catalog service.
type ServiceParams struct {
	Repo       Repository
	Deliveries DeliveryCascade
	Logger     *logger.Logger
}

// Service owns the content catalog, replacing the ad-hoc name-to-handle map
// with a repository initialized from durable storage.
type Service struct {
	repo       Repository
	deliveries DeliveryCascade
	logg       *logger.Logger
}

// NewService builds a catalog service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if params.Deliveries == nil {
		return nil, fmt.Errorf("delivery cascade required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Service{repo: params.Repo, deliveries: params.Deliveries, logg: params.Logger}, nil
}

// UpsertContentInput captures the fields an admin supplies when registering
// content.
type UpsertContentInput struct {
	Name          string
	Title         string
	Category      enums.ContentCategory
	PriceAmount   int
	ContentHandle string
}

// Upsert registers new content or refreshes the handle and price of an
// existing entry, mirroring how re-adding the same name behaves upstream.
func (s *Service) Upsert(ctx context.Context, input UpsertContentInput) (*models.ContentItem, error) {
	if input.Name == "" {
		return nil, errors.New(errors.CodeInvalidInput, "content name is required")
	}
	if input.ContentHandle == "" {
		return nil, errors.New(errors.CodeInvalidInput, "content handle is required")
	}
	if input.PriceAmount < 0 {
		return nil, errors.New(errors.CodeInvalidInput, "price must not be negative")
	}
	if !input.Category.IsValid() {
		input.Category = enums.ContentCategoryOther
	}

	existing, err := s.repo.GetByName(ctx, input.Name)
	if err != nil && !stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if existing != nil {
		existing.ContentHandle = input.ContentHandle
		existing.PriceAmount = input.PriceAmount
		if err := s.repo.Save(ctx, existing); err != nil {
			return nil, err
		}
		return existing, nil
	}

	title := input.Title
	if title == "" {
		title = input.Name
	}
	item := &models.ContentItem{
		ID:            uuid.New(),
		Name:          input.Name,
		Title:         title,
		Category:      input.Category,
		PriceAmount:   input.PriceAmount,
		ContentHandle: input.ContentHandle,
	}
	if err := s.repo.Create(ctx, item); err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithContent(ctx, item.Name), "content registered")
	return item, nil
}

// MetadataPatch carries the optional fields of an admin metadata edit; nil
// fields are left untouched.
type MetadataPatch struct {
	Title       *string
	Category    *enums.ContentCategory
	PriceAmount *int
	Year        *int
	Genre       *string
	Duration    *string
	Rating      *float64
	Description *string
	Director    *string
	Cast        *string
	Release     *string
	Poster      *string
}

// UpdateMetadata applies a partial metadata edit to the named content.
func (s *Service) UpdateMetadata(ctx context.Context, name string, patch MetadataPatch) (*models.ContentItem, error) {
	item, err := s.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	if patch.Category != nil && !patch.Category.IsValid() {
		return nil, errors.New(errors.CodeInvalidInput, "invalid content category")
	}
	if patch.PriceAmount != nil && *patch.PriceAmount < 0 {
		return nil, errors.New(errors.CodeInvalidInput, "price must not be negative")
	}

	if patch.Title != nil {
		item.Title = *patch.Title
	}
	if patch.Category != nil {
		item.Category = *patch.Category
	}
	if patch.PriceAmount != nil {
		item.PriceAmount = *patch.PriceAmount
	}
	if patch.Year != nil {
		item.Year = *patch.Year
	}
	if patch.Genre != nil {
		item.Genre = *patch.Genre
	}
	if patch.Duration != nil {
		item.Duration = *patch.Duration
	}
	if patch.Rating != nil {
		item.Rating = *patch.Rating
	}
	if patch.Description != nil {
		item.Description = *patch.Description
	}
	if patch.Director != nil {
		item.Director = *patch.Director
	}
	if patch.Cast != nil {
		item.Cast = *patch.Cast
	}
	if patch.Release != nil {
		item.Release = *patch.Release
	}
	if patch.Poster != nil {
		item.Poster = *patch.Poster
	}

	if err := s.repo.Save(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// AddTrailer appends a trailer handle to the named content.
func (s *Service) AddTrailer(ctx context.Context, name, handle string) (*models.ContentItem, error) {
	if handle == "" {
		return nil, errors.New(errors.CodeInvalidInput, "trailer handle is required")
	}
	item, err := s.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	item.TrailerHandles = append(item.TrailerHandles, handle)
	if err := s.repo.Save(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// Rename changes the content's key and cascades the rename through the
// delivery history so prior-payment checks keep matching.
func (s *Service) Rename(ctx context.Context, oldName, newName string) error {
	if oldName == "" || newName == "" {
		return errors.New(errors.CodeInvalidInput, "both names are required")
	}
	rows, err := s.repo.Rename(ctx, oldName, newName)
	if err != nil {
		return err
	}
	if rows == 0 {
		return errors.New(errors.CodeNotFound, "content not found").WithDetails(oldName)
	}
	if err := s.deliveries.RenameContent(ctx, oldName, newName); err != nil {
		return err
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{"from": oldName, "to": newName}), "content renamed")
	return nil
}

// Delete removes the content and its delivery history.
func (s *Service) Delete(ctx context.Context, name string) error {
	rows, err := s.repo.DeleteByName(ctx, name)
	if err != nil {
		return err
	}
	if rows == 0 {
		return errors.New(errors.CodeNotFound, "content not found").WithDetails(name)
	}
	if err := s.deliveries.DeleteByContent(ctx, name); err != nil {
		return err
	}
	s.logg.Info(s.logg.WithContent(ctx, name), "content deleted")
	return nil
}

// Get returns the named content or a typed NotFound.
func (s *Service) Get(ctx context.Context, name string) (*models.ContentItem, error) {
	if name == "" {
		return nil, errors.New(errors.CodeInvalidInput, "content name is required")
	}
	item, err := s.repo.GetByName(ctx, name)
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.New(errors.CodeNotFound, "content not found").WithDetails(name)
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}

// List returns the full catalog ordered by name.
func (s *Service) List(ctx context.Context) ([]models.ContentItem, error) {
	return s.repo.List(ctx)
}

// ListByCategory returns the catalog slice for one category.
func (s *Service) ListByCategory(ctx context.Context, category enums.ContentCategory) ([]models.ContentItem, error) {
	if !category.IsValid() {
		return nil, errors.New(errors.CodeInvalidInput, "invalid content category")
	}
	return s.repo.ListByCategory(ctx, category)
}
