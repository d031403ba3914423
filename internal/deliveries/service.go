package deliveries

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/movielex/movielex-backend/pkg/db/models"
	"github.com/movielex/movielex-backend/pkg/enums"
	"github.com/movielex/movielex-backend/pkg/errors"
	"github.com/movielex/movielex-backend/pkg/logger"
)

// ServiceParams groups dependencies for the delivery log service.
type ServiceParams struct {
	Repo   Repository
	Logger *logger.Logger
}

// Service records successful deliveries and answers already-paid lookups.
// The log is append-only: rows are only rewritten when a content item is
// renamed, and only removed when the item itself is deleted.
type Service struct {
	repo   Repository
	logger *logger.Logger
}

// NewService builds a delivery log service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("deliveries repository required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Service{repo: params.Repo, logger: params.Logger}, nil
}

// Record appends one successful delivery for the user. It is called after the
// send went through, never before.
func (s *Service) Record(ctx context.Context, userID int64, contentName string, reason enums.GrantReason) error {
	if userID == 0 {
		return errors.New(errors.CodeInvalidInput, "user id is required")
	}
	contentName = strings.TrimSpace(contentName)
	if contentName == "" {
		return errors.New(errors.CodeInvalidInput, "content name is required")
	}
	if !reason.IsValid() {
		return errors.New(errors.CodeInvalidInput, "unknown grant reason").
			WithDetails(map[string]any{"reason": string(reason)})
	}

	record := &models.DeliveryRecord{
		ID:          uuid.New(),
		UserID:      userID,
		ContentName: contentName,
		Reason:      reason,
		Status:      models.DeliveryStatusSent,
	}
	if err := s.repo.Create(ctx, record); err != nil {
		return errors.Wrap(errors.CodeInternal, err, "record delivery")
	}

	ctx = s.logger.WithFields(ctx, map[string]any{
		"user_id": userID,
		"content": contentName,
		"reason":  string(reason),
	})
	s.logger.Info(ctx, "delivery recorded")
	return nil
}

// HasDelivered reports whether the user ever received this content item.
func (s *Service) HasDelivered(ctx context.Context, userID int64, contentName string) (bool, error) {
	if userID == 0 || strings.TrimSpace(contentName) == "" {
		return false, errors.New(errors.CodeInvalidInput, "user id and content name are required")
	}
	ok, err := s.repo.Exists(ctx, userID, contentName)
	if err != nil {
		return false, errors.Wrap(errors.CodeInternal, err, "check prior delivery")
	}
	return ok, nil
}

// CountsByContent returns delivery counts grouped by content item, most
// delivered first.
func (s *Service) CountsByContent(ctx context.Context) ([]ContentCount, error) {
	counts, err := s.repo.CountsByContent(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "aggregate delivery counts")
	}
	return counts, nil
}

// ListByUser returns the user's delivery history, newest first. A limit of
// zero returns everything.
func (s *Service) ListByUser(ctx context.Context, userID int64, limit int) ([]models.DeliveryRecord, error) {
	if userID == 0 {
		return nil, errors.New(errors.CodeInvalidInput, "user id is required")
	}
	records, err := s.repo.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "list deliveries")
	}
	return records, nil
}

// RenameContent follows a catalog rename so already-paid checks keep matching
// under the new name.
func (s *Service) RenameContent(ctx context.Context, oldName, newName string) error {
	oldName = strings.TrimSpace(oldName)
	newName = strings.TrimSpace(newName)
	if oldName == "" || newName == "" {
		return errors.New(errors.CodeInvalidInput, "old and new content names are required")
	}
	if err := s.repo.RenameContent(ctx, oldName, newName); err != nil {
		return errors.Wrap(errors.CodeInternal, err, "rename delivery records")
	}
	return nil
}

// DeleteByContent drops the delivery rows for a removed content item. Users
// who paid for it lose the already-paid claim together with the item.
func (s *Service) DeleteByContent(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New(errors.CodeInvalidInput, "content name is required")
	}
	if err := s.repo.DeleteByContent(ctx, name); err != nil {
		return errors.Wrap(errors.CodeInternal, err, "delete delivery records")
	}
	return nil
}
