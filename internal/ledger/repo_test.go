package ledger

import (
	"context"
	"testing"

	"github.com/movielex/movielex-backend/pkg/db/models"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.Account{}))
	return conn
}

func TestRepository_DebitBalanceConditional(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.Account{UserID: 1, Balance: 5000}))

	rows, err := repo.DebitBalance(ctx, 1, 1500)
	require.NoError(t, err)
	require.EqualValues(t, 1, rows)

	account, err := repo.Get(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 3500, account.Balance)

	rows, err = repo.DebitBalance(ctx, 1, 4000)
	require.NoError(t, err)
	require.EqualValues(t, 0, rows, "overdrawing debit must affect no rows")

	account, err = repo.Get(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 3500, account.Balance)
}

func TestRepository_AddBalance(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	rows, err := repo.AddBalance(ctx, 1, 100)
	require.NoError(t, err)
	require.EqualValues(t, 0, rows, "credit without account must be a no-op")

	require.NoError(t, repo.Create(ctx, &models.Account{UserID: 1, Balance: 200}))

	rows, err = repo.AddBalance(ctx, 1, 5000)
	require.NoError(t, err)
	require.EqualValues(t, 1, rows)

	account, err := repo.Get(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 5200, account.Balance)
}
