package reports

import (
	"context"
	"fmt"

	"github.com/movielex/movielex-backend/internal/deliveries"
	"github.com/movielex/movielex-backend/pkg/db/models"
	"github.com/movielex/movielex-backend/pkg/errors"
)

// DeliveryLog is the slice of the delivery service the reports read from.
type DeliveryLog interface {
	CountsByContent(ctx context.Context) ([]deliveries.ContentCount, error)
	ListByUser(ctx context.Context, userID int64, limit int) ([]models.DeliveryRecord, error)
}

// SubscriptionRegister exposes the live subscription view.
type SubscriptionRegister interface {
	ListActive(ctx context.Context) ([]models.Subscription, error)
}

// SubmissionLog exposes per-user payment submission history.
type SubmissionLog interface {
	History(ctx context.Context, userID int64, limit int) ([]models.PaymentSubmission, error)
}

// Balances answers the current spendable balance per user.
type Balances interface {
	GetBalance(ctx context.Context, userID int64) (int, error)
}

// ServiceParams groups the read surfaces the reports are built from.
type ServiceParams struct {
	Deliveries    DeliveryLog
	Subscriptions SubscriptionRegister
	Submissions   SubmissionLog
	Ledger        Balances
}

// Service renders the admin-facing statistics views. Everything here is a
// read; the engine never changes state because someone looked at a report.
type Service struct {
	deliveries    DeliveryLog
	subscriptions SubscriptionRegister
	submissions   SubmissionLog
	ledger        Balances
}

// NewService builds a reports service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Deliveries == nil {
		return nil, fmt.Errorf("delivery log required")
	}
	if params.Subscriptions == nil {
		return nil, fmt.Errorf("subscription register required")
	}
	if params.Submissions == nil {
		return nil, fmt.Errorf("submission log required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger required")
	}
	return &Service{
		deliveries:    params.Deliveries,
		subscriptions: params.Subscriptions,
		submissions:   params.Submissions,
		ledger:        params.Ledger,
	}, nil
}

// DeliveryStats returns delivery totals per content item, most delivered
// first.
func (s *Service) DeliveryStats(ctx context.Context) ([]deliveries.ContentCount, error) {
	return s.deliveries.CountsByContent(ctx)
}

// ActiveSubscriptions lists every live subscription, soonest to expire
// first.
func (s *Service) ActiveSubscriptions(ctx context.Context) ([]models.Subscription, error) {
	return s.subscriptions.ListActive(ctx)
}

// UserActivity bundles everything an admin wants to see about one user:
// balance, delivery history, and payment submissions.
type UserActivity struct {
	UserID      int64
	Balance     int
	Deliveries  []models.DeliveryRecord
	Submissions []models.PaymentSubmission
}

// UserActivityReport assembles the per-user view. A limit of zero returns
// full history.
func (s *Service) UserActivityReport(ctx context.Context, userID int64, limit int) (*UserActivity, error) {
	if userID == 0 {
		return nil, errors.New(errors.CodeInvalidInput, "user id is required")
	}
	balance, err := s.ledger.GetBalance(ctx, userID)
	if err != nil {
		return nil, err
	}
	records, err := s.deliveries.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	submissions, err := s.submissions.History(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	return &UserActivity{
		UserID:      userID,
		Balance:     balance,
		Deliveries:  records,
		Submissions: submissions,
	}, nil
}
