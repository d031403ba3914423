package subscriptions

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/movielex/movielex-backend/pkg/db/models"
	"github.com/movielex/movielex-backend/pkg/enums"
	"github.com/movielex/movielex-backend/pkg/errors"
	"github.com/movielex/movielex-backend/pkg/logger"
)

// ServiceParams groups dependencies for the subscription register.
type ServiceParams struct {
	Repo   Repository
	Logger *logger.Logger
	Now    func() time.Time
}

// Service keeps at most one subscription per user. Expiry is computed on
// read against the injected clock; reads never mutate rows, the sweeper job
// clears expired ones eagerly.
type Service struct {
	repo   Repository
	logger *logger.Logger
	now    func() time.Time
}

// NewService builds a subscription service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("subscriptions repository required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Service{repo: params.Repo, logger: params.Logger, now: now}, nil
}

// Activate grants the user a subscription starting now, replacing whatever
// subscription they had before, active or not.
func (s *Service) Activate(ctx context.Context, userID int64, category enums.SubscriptionCategory, duration time.Duration, pricePaid int) (*models.Subscription, error) {
	return s.activate(ctx, s.repo, userID, category, duration, pricePaid)
}

// ActivateTx runs Activate against the supplied transaction so callers can
// settle related rows atomically with the grant.
func (s *Service) ActivateTx(ctx context.Context, tx *gorm.DB, userID int64, category enums.SubscriptionCategory, duration time.Duration, pricePaid int) (*models.Subscription, error) {
	return s.activate(ctx, s.repo.WithTx(tx), userID, category, duration, pricePaid)
}

func (s *Service) activate(ctx context.Context, repo Repository, userID int64, category enums.SubscriptionCategory, duration time.Duration, pricePaid int) (*models.Subscription, error) {
	if userID == 0 {
		return nil, errors.New(errors.CodeInvalidInput, "user id is required")
	}
	if !category.IsValid() {
		return nil, errors.New(errors.CodeInvalidInput, "invalid subscription category").
			WithDetails(string(category))
	}
	if duration <= 0 {
		return nil, errors.New(errors.CodeInvalidInput, "duration must be positive")
	}
	if pricePaid < 0 {
		return nil, errors.New(errors.CodeInvalidInput, "price must not be negative")
	}

	start := s.now()
	subscription := &models.Subscription{
		UserID:    userID,
		Category:  category,
		StartAt:   start,
		EndAt:     start.Add(duration),
		PricePaid: pricePaid,
	}
	if err := repo.Upsert(ctx, subscription); err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "activate subscription")
	}

	ctx = s.logger.WithFields(ctx, map[string]any{
		"user_id":  userID,
		"category": string(category),
		"end_at":   subscription.EndAt,
	})
	s.logger.Info(ctx, "subscription activated")
	return subscription, nil
}

// ActiveFor returns the user's subscription when it currently covers the
// given content category, or nil when no active covering subscription
// exists. An expired row is treated as absent without being touched.
func (s *Service) ActiveFor(ctx context.Context, userID int64, category enums.ContentCategory) (*models.Subscription, error) {
	if userID == 0 {
		return nil, errors.New(errors.CodeInvalidInput, "user id is required")
	}
	subscription, err := s.repo.Get(ctx, userID)
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "load subscription")
	}
	if !subscription.ActiveAt(s.now()) {
		return nil, nil
	}
	if !subscription.Category.Covers(category) {
		return nil, nil
	}
	return subscription, nil
}

// Get returns the user's subscription row regardless of expiry, or nil when
// none exists. Callers that care about validity should check ActiveAt.
func (s *Service) Get(ctx context.Context, userID int64) (*models.Subscription, error) {
	if userID == 0 {
		return nil, errors.New(errors.CodeInvalidInput, "user id is required")
	}
	subscription, err := s.repo.Get(ctx, userID)
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "load subscription")
	}
	return subscription, nil
}

// Cancel removes the user's subscription, active or not.
func (s *Service) Cancel(ctx context.Context, userID int64) error {
	if userID == 0 {
		return errors.New(errors.CodeInvalidInput, "user id is required")
	}
	rows, err := s.repo.Delete(ctx, userID)
	if err != nil {
		return errors.Wrap(errors.CodeInternal, err, "cancel subscription")
	}
	if rows == 0 {
		return errors.New(errors.CodeNotFound, "no subscription to cancel")
	}
	return nil
}

// ListActive returns all currently live subscriptions, soonest to expire
// first.
func (s *Service) ListActive(ctx context.Context) ([]models.Subscription, error) {
	subscriptions, err := s.repo.ListActive(ctx, s.now())
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "list active subscriptions")
	}
	return subscriptions, nil
}

// SweepExpired removes rows whose window has closed and returns how many
// were dropped. The resolver never depends on this running; it only keeps
// the table tidy.
func (s *Service) SweepExpired(ctx context.Context) (int64, error) {
	rows, err := s.repo.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, errors.Wrap(errors.CodeInternal, err, "sweep expired subscriptions")
	}
	if rows > 0 {
		s.logger.Info(s.logger.WithField(ctx, "removed", rows), "expired subscriptions swept")
	}
	return rows, nil
}
