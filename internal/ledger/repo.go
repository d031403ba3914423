package ledger

import (
	"context"

	"github.com/movielex/movielex-backend/internal/repo"
	"github.com/movielex/movielex-backend/pkg/db/models"
	"gorm.io/gorm"
)

// Repository manages persistence for balance accounts.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Get(ctx context.Context, userID int64) (*models.Account, error)
	Create(ctx context.Context, account *models.Account) error
	AddBalance(ctx context.Context, userID int64, amount int) (int64, error)
	DebitBalance(ctx context.Context, userID int64, amount int) (int64, error)
}

type repository struct {
	repo.Base
}

// NewRepository returns an account repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: repo.NewBase(tx)}
}

func (r *repository) Get(ctx context.Context, userID int64) (*models.Account, error) {
	var account models.Account
	if err := r.DB(ctx).First(&account, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *repository) Create(ctx context.Context, account *models.Account) error {
	return r.DB(ctx).Create(account).Error
}

func (r *repository) AddBalance(ctx context.Context, userID int64, amount int) (int64, error) {
	res := r.DB(ctx).Model(&models.Account{}).
		Where("user_id = ?", userID).
		Update("balance", gorm.Expr("balance + ?", amount))
	return res.RowsAffected, res.Error
}

// DebitBalance applies a conditional decrement; zero rows affected means the
// balance did not cover the amount and nothing changed.
func (r *repository) DebitBalance(ctx context.Context, userID int64, amount int) (int64, error) {
	res := r.DB(ctx).Model(&models.Account{}).
		Where("user_id = ? AND balance >= ?", userID, amount).
		Update("balance", gorm.Expr("balance - ?", amount))
	return res.RowsAffected, res.Error
}
