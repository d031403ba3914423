package ledger

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/movielex/movielex-backend/pkg/db/models"
	"github.com/movielex/movielex-backend/pkg/errors"
	"github.com/movielex/movielex-backend/pkg/keylock"
	"gorm.io/gorm"
)

// DefaultBalance is the balance every user starts with before their account
// row is first persisted.
const DefaultBalance = 5000

// ServiceParams groups dependencies for the ledger service.
type ServiceParams struct {
	Repo           Repository
	DefaultBalance int
}

// Service owns every balance mutation. Mutations for the same user are
// serialized behind a per-user lock so a debit/credit pair can never
// interleave into a lost update.
type Service struct {
	repo           Repository
	locks          *keylock.KeyLock
	defaultBalance int
}

// NewService builds a ledger service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	defaultBalance := params.DefaultBalance
	if defaultBalance < 0 {
		return nil, fmt.Errorf("default balance must not be negative")
	}
	if defaultBalance == 0 {
		defaultBalance = DefaultBalance
	}
	return &Service{
		repo:           params.Repo,
		locks:          keylock.New(),
		defaultBalance: defaultBalance,
	}, nil
}

// GetBalance returns the user's spendable balance. Unknown users are at the
// default balance; no row is written until the first mutation.
func (s *Service) GetBalance(ctx context.Context, userID int64) (int, error) {
	if userID == 0 {
		return 0, errors.New(errors.CodeInvalidInput, "user id is required")
	}
	account, err := s.repo.Get(ctx, userID)
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return s.defaultBalance, nil
	}
	if err != nil {
		return 0, err
	}
	return account.Balance, nil
}

// Credit adds amount to the user's balance and returns the new balance.
func (s *Service) Credit(ctx context.Context, userID int64, amount int) (int, error) {
	return s.credit(ctx, s.repo, userID, amount)
}

// CreditTx runs Credit against the supplied transaction so callers can
// settle related rows atomically with the balance change.
func (s *Service) CreditTx(ctx context.Context, tx *gorm.DB, userID int64, amount int) (int, error) {
	return s.credit(ctx, s.repo.WithTx(tx), userID, amount)
}

func (s *Service) credit(ctx context.Context, repo Repository, userID int64, amount int) (int, error) {
	if userID == 0 {
		return 0, errors.New(errors.CodeInvalidInput, "user id is required")
	}
	if amount < 0 {
		return 0, errors.New(errors.CodeInvalidInput, "credit amount must not be negative")
	}

	unlock := s.locks.Lock(userID)
	defer unlock()

	if err := s.ensureAccount(ctx, repo, userID); err != nil {
		return 0, err
	}
	if amount > 0 {
		if _, err := repo.AddBalance(ctx, userID, amount); err != nil {
			return 0, err
		}
	}
	return s.currentBalance(ctx, repo, userID)
}

// Debit subtracts amount if and only if the balance covers it, returning the
// new balance. On a shortfall nothing changes and the typed error carries the
// price, current balance, and missing difference.
func (s *Service) Debit(ctx context.Context, userID int64, amount int) (int, error) {
	if userID == 0 {
		return 0, errors.New(errors.CodeInvalidInput, "user id is required")
	}
	if amount < 0 {
		return 0, errors.New(errors.CodeInvalidInput, "debit amount must not be negative")
	}

	unlock := s.locks.Lock(userID)
	defer unlock()

	if err := s.ensureAccount(ctx, s.repo, userID); err != nil {
		return 0, err
	}
	if amount == 0 {
		return s.currentBalance(ctx, s.repo, userID)
	}

	rows, err := s.repo.DebitBalance(ctx, userID, amount)
	if err != nil {
		return 0, err
	}
	if rows == 0 {
		balance, err := s.currentBalance(ctx, s.repo, userID)
		if err != nil {
			return 0, err
		}
		return 0, errors.New(errors.CodeInsufficientBalance, "balance too low").
			WithDetails(errors.InsufficientBalanceDetails{
				Price:     amount,
				Balance:   balance,
				Shortfall: amount - balance,
			})
	}
	return s.currentBalance(ctx, s.repo, userID)
}

func (s *Service) ensureAccount(ctx context.Context, repo Repository, userID int64) error {
	_, err := repo.Get(ctx, userID)
	if err == nil {
		return nil
	}
	if !stderrors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return repo.Create(ctx, &models.Account{UserID: userID, Balance: s.defaultBalance})
}

func (s *Service) currentBalance(ctx context.Context, repo Repository, userID int64) (int, error) {
	account, err := repo.Get(ctx, userID)
	if err != nil {
		return 0, err
	}
	return account.Balance, nil
}
