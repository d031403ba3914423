package ledger

import (
	"context"
	"sync"
	"testing"

	"github.com/movielex/movielex-backend/pkg/db/models"
	"github.com/movielex/movielex-backend/pkg/errors"
	"gorm.io/gorm"
)

type fakeRepository struct {
	mu       sync.Mutex
	accounts map[int64]int
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{accounts: make(map[int64]int)}
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepository) Get(ctx context.Context, userID int64) (*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	balance, ok := f.accounts[userID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &models.Account{UserID: userID, Balance: balance}, nil
}

func (f *fakeRepository) Create(ctx context.Context, account *models.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accounts[account.UserID] = account.Balance
	return nil
}

func (f *fakeRepository) AddBalance(ctx context.Context, userID int64, amount int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.accounts[userID]; !ok {
		return 0, nil
	}
	f.accounts[userID] += amount
	return 1, nil
}

func (f *fakeRepository) DebitBalance(ctx context.Context, userID int64, amount int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	balance, ok := f.accounts[userID]
	if !ok || balance < amount {
		return 0, nil
	}
	f.accounts[userID] = balance - amount
	return 1, nil
}

func newTestService(t *testing.T) (*Service, *fakeRepository) {
	t.Helper()
	repo := newFakeRepository()
	svc, err := NewService(ServiceParams{Repo: repo})
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}
	return svc, repo
}

func TestService_GetBalanceDefaultsWithoutPersisting(t *testing.T) {
	svc, repo := newTestService(t)

	balance, err := svc.GetBalance(context.Background(), 42)
	if err != nil {
		t.Fatalf("GetBalance error: %v", err)
	}
	if balance != DefaultBalance {
		t.Fatalf("expected default balance %d, got %d", DefaultBalance, balance)
	}
	if _, ok := repo.accounts[42]; ok {
		t.Fatal("default balance must not be persisted by a read")
	}
}

func TestService_DebitHappyPath(t *testing.T) {
	svc, _ := newTestService(t)

	balance, err := svc.Debit(context.Background(), 42, 1500)
	if err != nil {
		t.Fatalf("Debit error: %v", err)
	}
	if balance != 3500 {
		t.Fatalf("expected balance 3500 after debit, got %d", balance)
	}
}

func TestService_DebitShortfall(t *testing.T) {
	svc, repo := newTestService(t)
	repo.accounts[42] = 200

	_, err := svc.Debit(context.Background(), 42, 1500)
	typed := errors.As(err)
	if typed == nil || typed.Code() != errors.CodeInsufficientBalance {
		t.Fatalf("expected insufficient balance error, got %v", err)
	}
	details, ok := typed.Details().(errors.InsufficientBalanceDetails)
	if !ok {
		t.Fatalf("expected shortfall details, got %T", typed.Details())
	}
	if details.Shortfall != 1300 || details.Balance != 200 || details.Price != 1500 {
		t.Fatalf("unexpected details: %+v", details)
	}
	if repo.accounts[42] != 200 {
		t.Fatalf("failed debit must not mutate balance, got %d", repo.accounts[42])
	}
}

func TestService_CreditTopsUpExistingBalance(t *testing.T) {
	svc, repo := newTestService(t)
	repo.accounts[42] = 200

	balance, err := svc.Credit(context.Background(), 42, 5000)
	if err != nil {
		t.Fatalf("Credit error: %v", err)
	}
	if balance != 5200 {
		t.Fatalf("expected balance 5200 after credit, got %d", balance)
	}
}

func TestService_CreditSeedsDefaultForUnknownUser(t *testing.T) {
	svc, _ := newTestService(t)

	balance, err := svc.Credit(context.Background(), 42, 1000)
	if err != nil {
		t.Fatalf("Credit error: %v", err)
	}
	if balance != DefaultBalance+1000 {
		t.Fatalf("expected balance %d, got %d", DefaultBalance+1000, balance)
	}
}

func TestService_RejectsNegativeAmounts(t *testing.T) {
	svc, _ := newTestService(t)

	if _, err := svc.Debit(context.Background(), 42, -1); !errors.IsCode(err, errors.CodeInvalidInput) {
		t.Fatalf("expected invalid input for negative debit, got %v", err)
	}
	if _, err := svc.Credit(context.Background(), 42, -1); !errors.IsCode(err, errors.CodeInvalidInput) {
		t.Fatalf("expected invalid input for negative credit, got %v", err)
	}
}

func TestService_ConcurrentDebitsNeverOverspend(t *testing.T) {
	svc, repo := newTestService(t)
	const price = 1500
	repo.accounts[42] = price

	const workers = 8
	successes := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Debit(context.Background(), 42, price); err == nil {
				successes <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(successes)

	granted := 0
	for range successes {
		granted++
	}
	if granted != 1 {
		t.Fatalf("expected exactly one successful debit, got %d", granted)
	}
	if repo.accounts[42] != 0 {
		t.Fatalf("expected zero balance after single debit, got %d", repo.accounts[42])
	}
}
