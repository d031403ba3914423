package approvals

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

// Ledger is the balance surface an approval credits into. The credit joins
// the settle's transaction so a failed credit rolls the submission back to
// pending instead of leaving it approved-but-uncredited.
type Ledger interface {
	CreditTx(ctx context.Context, tx *gorm.DB, userID int64, amount int) (int, error)
}

// SubscriptionGranter activates a subscription when an approval buys one
// instead of balance. Same transaction rule as the ledger.
type SubscriptionGranter interface {
	ActivateTx(ctx context.Context, tx *gorm.DB, userID int64, category enums.SubscriptionCategory, duration time.Duration, pricePaid int) (*models.Subscription, error)
}

// TxRunner executes a function inside one database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// UserNotifier tells the submitting user what happened to their proof.
type UserNotifier interface {
	NotifyApproved(ctx context.Context, userID int64, amount, balance int) error
	NotifySubscriptionGranted(ctx context.Context, userID int64, subscription *models.Subscription) error
	NotifyRejected(ctx context.Context, userID int64) error
}

// ServiceParams groups dependencies for the approval workflow.
type ServiceParams struct {
	Repo          Repository
	Tx            TxRunner
	Ledger        Ledger
	Subscriptions SubscriptionGranter
	Notifier      UserNotifier
	Logger        *logger.Logger
	Now           func() time.Time
}

// Service runs the payment-proof approval workflow. Every decision targets
// an explicit submission id and lands exactly once; the pending-state guard
// in the repository is the single arbiter when two admins race.
type Service struct {
	repo          Repository
	tx            TxRunner
	ledger        Ledger
	subscriptions SubscriptionGranter
	notifier      UserNotifier
	logger        *logger.Logger
	now           func() time.Time
}

// NewService builds an approval service. The notifier is optional.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("approvals repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger required")
	}
	if params.Subscriptions == nil {
		return nil, fmt.Errorf("subscription granter required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo:          params.Repo,
		tx:            params.Tx,
		ledger:        params.Ledger,
		subscriptions: params.Subscriptions,
		notifier:      params.Notifier,
		logger:        params.Logger,
		now:           now,
	}, nil
}

// Submit opens a pending submission for the user's payment proof and
// returns it so the admin prompt can reference its id.
func (s *Service) Submit(ctx context.Context, userID int64) (*models.PaymentSubmission, error) {
	if userID == 0 {
		return nil, errors.New(errors.CodeInvalidInput, "user id is required")
	}
	submission := &models.PaymentSubmission{
		UserID:      userID,
		Status:      enums.SubmissionStatusPending,
		SubmittedAt: s.now(),
	}
	if err := s.repo.Create(ctx, submission); err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "create submission")
	}
	s.logger.Info(s.logger.WithUserID(ctx, userID), "payment submission opened")
	return submission, nil
}

// Approve settles a pending submission by crediting the stated amount to
// the submitter's balance. Settle and credit share one transaction: either
// both land or the submission stays pending for a retry. A submission that
// already left pending yields an already-processed error and nothing is
// credited twice.
func (s *Service) Approve(ctx context.Context, id int64, amount int) (*models.PaymentSubmission, error) {
	if amount <= 0 {
		return nil, errors.New(errors.CodeInvalidInput, "approval amount must be positive")
	}

	var submission *models.PaymentSubmission
	var balance int
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		submission, err = s.settle(ctx, s.repo.WithTx(tx), id, enums.SubmissionStatusApproved, &amount)
		if err != nil {
			return err
		}
		balance, err = s.ledger.CreditTx(ctx, tx, submission.UserID, amount)
		return err
	})
	if err != nil {
		return nil, err
	}
	ctx = s.logger.WithFields(ctx, map[string]any{
		"user_id":       submission.UserID,
		"submission_id": id,
		"amount":        amount,
		"balance":       balance,
	})
	s.logger.Info(ctx, "payment approved")

	if s.notifier != nil {
		if err := s.notifier.NotifyApproved(ctx, submission.UserID, amount, balance); err != nil {
			s.logger.Error(ctx, "notify user of approval", err)
		}
	}
	return submission, nil
}

// ApproveSubscription settles a pending submission by granting a
// subscription instead of balance. The ledger is never touched; settle and
// grant share one transaction.
func (s *Service) ApproveSubscription(ctx context.Context, id int64, category enums.SubscriptionCategory, duration time.Duration, price int) (*models.PaymentSubmission, error) {
	if !category.IsValid() {
		return nil, errors.New(errors.CodeInvalidInput, "invalid subscription category").
			WithDetails(string(category))
	}
	if duration <= 0 {
		return nil, errors.New(errors.CodeInvalidInput, "duration must be positive")
	}
	if price < 0 {
		return nil, errors.New(errors.CodeInvalidInput, "price must not be negative")
	}

	var submission *models.PaymentSubmission
	var subscription *models.Subscription
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		submission, err = s.settle(ctx, s.repo.WithTx(tx), id, enums.SubmissionStatusApproved, &price)
		if err != nil {
			return err
		}
		subscription, err = s.subscriptions.ActivateTx(ctx, tx, submission.UserID, category, duration, price)
		return err
	})
	if err != nil {
		return nil, err
	}
	ctx = s.logger.WithFields(ctx, map[string]any{
		"user_id":       submission.UserID,
		"submission_id": id,
		"category":      string(category),
	})
	s.logger.Info(ctx, "subscription approved")

	if s.notifier != nil {
		if err := s.notifier.NotifySubscriptionGranted(ctx, submission.UserID, subscription); err != nil {
			s.logger.Error(ctx, "notify user of subscription", err)
		}
	}
	return submission, nil
}

// Reject settles a pending submission without moving any balance.
func (s *Service) Reject(ctx context.Context, id int64) (*models.PaymentSubmission, error) {
	submission, err := s.settle(ctx, s.repo, id, enums.SubmissionStatusRejected, nil)
	if err != nil {
		return nil, err
	}
	ctx = s.logger.WithFields(ctx, map[string]any{
		"user_id":       submission.UserID,
		"submission_id": id,
	})
	s.logger.Info(ctx, "payment rejected")

	if s.notifier != nil {
		if err := s.notifier.NotifyRejected(ctx, submission.UserID); err != nil {
			s.logger.Error(ctx, "notify user of rejection", err)
		}
	}
	return submission, nil
}

// LatestPendingByUser returns the user's newest pending submission, or nil
// when none is open. Admin shortcuts that act "on this user's payment"
// resolve an id through here before settling it.
func (s *Service) LatestPendingByUser(ctx context.Context, userID int64) (*models.PaymentSubmission, error) {
	if userID == 0 {
		return nil, errors.New(errors.CodeInvalidInput, "user id is required")
	}
	submission, err := s.repo.LatestPendingByUser(ctx, userID)
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "load pending submission")
	}
	return submission, nil
}

// History returns the user's submissions, newest first. A limit of zero
// returns everything.
func (s *Service) History(ctx context.Context, userID int64, limit int) ([]models.PaymentSubmission, error) {
	if userID == 0 {
		return nil, errors.New(errors.CodeInvalidInput, "user id is required")
	}
	submissions, err := s.repo.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "list submissions")
	}
	return submissions, nil
}

// ListPending returns every open submission, oldest first.
func (s *Service) ListPending(ctx context.Context) ([]models.PaymentSubmission, error) {
	submissions, err := s.repo.ListPending(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "list pending submissions")
	}
	return submissions, nil
}

func (s *Service) settle(ctx context.Context, repo Repository, id int64, status enums.SubmissionStatus, amount *int) (*models.PaymentSubmission, error) {
	if id == 0 {
		return nil, errors.New(errors.CodeInvalidInput, "submission id is required")
	}
	submission, err := repo.GetByID(ctx, id)
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.New(errors.CodeNotFound, "submission not found").WithDetails(id)
	}
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "load submission")
	}

	rows, err := repo.MarkProcessed(ctx, id, status, amount, s.now())
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "settle submission")
	}
	if rows == 0 {
		return nil, errors.New(errors.CodeAlreadyProcessed, "submission already processed").
			WithDetails(map[string]any{"id": id, "status": string(submission.Status)})
	}
	submission.Status = status
	if amount != nil {
		submission.Amount = amount
	}
	processedAt := s.now()
	submission.ProcessedAt = &processedAt
	return submission, nil
}
