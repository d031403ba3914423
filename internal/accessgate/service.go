package accessgate

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/movielex/movielex-backend/pkg/db/models"
	"github.com/movielex/movielex-backend/pkg/errors"
	"github.com/movielex/movielex-backend/pkg/logger"
)

// Counter is the request volume tracker consulted before admitting a
// content request.
type Counter interface {
	Incr(ctx context.Context, userID int64) (int64, bool, error)
	Reset(ctx context.Context, userID int64) error
}

// AdminNotifier receives a message when the gate auto-blocks a user.
type AdminNotifier interface {
	NotifyBlocked(ctx context.Context, userID int64, count int64) error
}

// ServiceParams groups dependencies for the access gate.
type ServiceParams struct {
	Repo     Repository
	Counter  Counter
	Notifier AdminNotifier
	Logger   *logger.Logger
	Now      func() time.Time
}

// Service gates content requests. Checking blocked state is a pure read;
// the volume counter only moves on Admit, so balance checks and catalog
// browsing never count against the user.
type Service struct {
	repo     Repository
	counter  Counter
	notifier AdminNotifier
	logger   *logger.Logger
	now      func() time.Time
}

// NewService builds an access gate service. The notifier is optional.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("accessgate repository required")
	}
	if params.Counter == nil {
		return nil, fmt.Errorf("volume counter required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo:     params.Repo,
		counter:  params.Counter,
		notifier: params.Notifier,
		logger:   params.Logger,
		now:      now,
	}, nil
}

// Admit decides whether a content request may proceed. Blocked users are
// rejected outright; everyone else gets their volume counter bumped, and
// crossing the threshold blocks them as a side effect of this very request.
func (s *Service) Admit(ctx context.Context, userID int64) error {
	if userID == 0 {
		return errors.New(errors.CodeInvalidInput, "user id is required")
	}

	blocked, err := s.IsBlocked(ctx, userID)
	if err != nil {
		return err
	}
	if blocked {
		return errors.New(errors.CodeBlocked, "user is blocked")
	}

	count, crossed, err := s.counter.Incr(ctx, userID)
	if err != nil {
		return err
	}
	if !crossed {
		return nil
	}

	if err := s.Block(ctx, userID); err != nil {
		return err
	}
	if s.notifier != nil {
		if err := s.notifier.NotifyBlocked(ctx, userID, count); err != nil {
			s.logger.Error(ctx, "notify admin of auto-block", err)
		}
	}
	return errors.New(errors.CodeBlocked, "request volume threshold exceeded")
}

// IsBlocked reports whether the user is currently blocked. It never mutates
// anything.
func (s *Service) IsBlocked(ctx context.Context, userID int64) (bool, error) {
	if userID == 0 {
		return false, errors.New(errors.CodeInvalidInput, "user id is required")
	}
	status, err := s.repo.Get(ctx, userID)
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(errors.CodeInternal, err, "load block status")
	}
	return !status.Unblocked, nil
}

// Block marks the user as blocked. Blocking an already blocked user just
// refreshes the timestamp.
func (s *Service) Block(ctx context.Context, userID int64) error {
	if userID == 0 {
		return errors.New(errors.CodeInvalidInput, "user id is required")
	}
	status := &models.BlockStatus{
		UserID:    userID,
		BlockedAt: s.now(),
		Unblocked: false,
	}
	if err := s.repo.Upsert(ctx, status); err != nil {
		return errors.Wrap(errors.CodeInternal, err, "block user")
	}
	s.logger.Warn(s.logger.WithUserID(ctx, userID), "user blocked")
	return nil
}

// Unblock lifts the block and resets the volume counter so the user does
// not bounce straight back into the gate.
func (s *Service) Unblock(ctx context.Context, userID int64) error {
	if userID == 0 {
		return errors.New(errors.CodeInvalidInput, "user id is required")
	}
	rows, err := s.repo.MarkUnblocked(ctx, userID, s.now())
	if err != nil {
		return errors.Wrap(errors.CodeInternal, err, "unblock user")
	}
	if rows == 0 {
		return errors.New(errors.CodeNotFound, "user is not blocked")
	}
	if err := s.counter.Reset(ctx, userID); err != nil {
		return err
	}
	s.logger.Info(s.logger.WithUserID(ctx, userID), "user unblocked")
	return nil
}

// ListBlocked returns every currently blocked user, most recent first.
func (s *Service) ListBlocked(ctx context.Context) ([]models.BlockStatus, error) {
	statuses, err := s.repo.ListBlocked(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "list blocked users")
	}
	return statuses, nil
}
