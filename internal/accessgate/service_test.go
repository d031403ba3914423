package accessgate

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/movielex/movielex-backend/pkg/db/models"
	"github.com/movielex/movielex-backend/pkg/errors"
	"github.com/movielex/movielex-backend/pkg/logger"
)

type fakeRepository struct {
	mu   sync.Mutex
	rows map[int64]models.BlockStatus
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{rows: make(map[int64]models.BlockStatus)}
}

func (f *fakeRepository) Upsert(ctx context.Context, status *models.BlockStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[status.UserID] = *status
	return nil
}

func (f *fakeRepository) Get(ctx context.Context, userID int64) (*models.BlockStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[userID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &row, nil
}

func (f *fakeRepository) MarkUnblocked(ctx context.Context, userID int64, at time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[userID]
	if !ok || row.Unblocked {
		return 0, nil
	}
	row.Unblocked = true
	row.UnblockedAt = &at
	f.rows[userID] = row
	return 1, nil
}

func (f *fakeRepository) ListBlocked(ctx context.Context) ([]models.BlockStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.BlockStatus
	for _, row := range f.rows {
		if !row.Unblocked {
			out = append(out, row)
		}
	}
	return out, nil
}

func (f *fakeRepository) DeleteUnblockedBefore(ctx context.Context, before time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var removed int64
	for userID, row := range f.rows {
		if row.Unblocked && row.UnblockedAt != nil && row.UnblockedAt.Before(before) {
			delete(f.rows, userID)
			removed++
		}
	}
	return removed, nil
}

type fakeCounter struct {
	mu        sync.Mutex
	counts    map[int64]int64
	threshold int64
	resets    int
}

func newFakeCounter(threshold int64) *fakeCounter {
	return &fakeCounter{counts: make(map[int64]int64), threshold: threshold}
}

func (f *fakeCounter) Incr(ctx context.Context, userID int64) (int64, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts[userID]++
	count := f.counts[userID]
	return count, count > f.threshold, nil
}

func (f *fakeCounter) Reset(ctx context.Context, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.counts, userID)
	f.resets++
	return nil
}

type recordingNotifier struct {
	blocked []int64
}

func (r *recordingNotifier) NotifyBlocked(ctx context.Context, userID int64, count int64) error {
	r.blocked = append(r.blocked, userID)
	return nil
}

func newTestService(t *testing.T, threshold int64) (*Service, *fakeRepository, *fakeCounter, *recordingNotifier) {
	t.Helper()
	repo := newFakeRepository()
	counter := newFakeCounter(threshold)
	notifier := &recordingNotifier{}
	svc, err := NewService(ServiceParams{
		Repo:     repo,
		Counter:  counter,
		Notifier: notifier,
		Logger:   logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	})
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}
	return svc, repo, counter, notifier
}

func TestService_AdmitUnderThreshold(t *testing.T) {
	svc, _, _, _ := newTestService(t, 5)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := svc.Admit(ctx, 42); err != nil {
			t.Fatalf("request %d rejected: %v", i+1, err)
		}
	}
}

func TestService_AdmitBlocksPastThreshold(t *testing.T) {
	svc, repo, _, notifier := newTestService(t, 5)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := svc.Admit(ctx, 42); err != nil {
			t.Fatalf("request %d rejected: %v", i+1, err)
		}
	}

	err := svc.Admit(ctx, 42)
	if !errors.IsCode(err, errors.CodeBlocked) {
		t.Fatalf("expected blocked error, got %v", err)
	}
	row, ok := repo.rows[42]
	if !ok || row.Unblocked {
		t.Fatal("expected a persisted block row")
	}
	if len(notifier.blocked) != 1 || notifier.blocked[0] != 42 {
		t.Fatalf("expected admin notification for user 42, got %v", notifier.blocked)
	}
}

func TestService_AdmitRejectsBlockedWithoutCounting(t *testing.T) {
	svc, _, counter, _ := newTestService(t, 5)
	ctx := context.Background()

	if err := svc.Block(ctx, 42); err != nil {
		t.Fatalf("Block error: %v", err)
	}

	err := svc.Admit(ctx, 42)
	if !errors.IsCode(err, errors.CodeBlocked) {
		t.Fatalf("expected blocked error, got %v", err)
	}
	if counter.counts[42] != 0 {
		t.Fatal("blocked request must not bump the counter")
	}
}

func TestService_UnblockResetsCounter(t *testing.T) {
	svc, _, counter, _ := newTestService(t, 5)
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		_ = svc.Admit(ctx, 42)
	}
	blocked, err := svc.IsBlocked(ctx, 42)
	if err != nil {
		t.Fatalf("IsBlocked error: %v", err)
	}
	if !blocked {
		t.Fatal("expected user to be blocked")
	}

	if err := svc.Unblock(ctx, 42); err != nil {
		t.Fatalf("Unblock error: %v", err)
	}
	if counter.resets != 1 {
		t.Fatalf("expected one counter reset, got %d", counter.resets)
	}

	blocked, err = svc.IsBlocked(ctx, 42)
	if err != nil {
		t.Fatalf("IsBlocked error: %v", err)
	}
	if blocked {
		t.Fatal("expected user to be unblocked")
	}
	if err := svc.Admit(ctx, 42); err != nil {
		t.Fatalf("expected fresh window after unblock, got %v", err)
	}
}

func TestService_UnblockMissingReturnsNotFound(t *testing.T) {
	svc, _, _, _ := newTestService(t, 5)
	err := svc.Unblock(context.Background(), 42)
	if !errors.IsCode(err, errors.CodeNotFound) {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestService_IsBlockedNeverMutates(t *testing.T) {
	svc, repo, counter, _ := newTestService(t, 5)
	ctx := context.Background()

	blocked, err := svc.IsBlocked(ctx, 42)
	if err != nil {
		t.Fatalf("IsBlocked error: %v", err)
	}
	if blocked {
		t.Fatal("unknown user must not be blocked")
	}
	if len(repo.rows) != 0 || len(counter.counts) != 0 {
		t.Fatal("read path must not write anywhere")
	}
}

func TestService_ListBlocked(t *testing.T) {
	svc, _, _, _ := newTestService(t, 5)
	ctx := context.Background()

	if err := svc.Block(ctx, 1); err != nil {
		t.Fatalf("Block error: %v", err)
	}
	if err := svc.Block(ctx, 2); err != nil {
		t.Fatalf("Block error: %v", err)
	}
	if err := svc.Unblock(ctx, 2); err != nil {
		t.Fatalf("Unblock error: %v", err)
	}

	statuses, err := svc.ListBlocked(ctx)
	if err != nil {
		t.Fatalf("ListBlocked error: %v", err)
	}
	if len(statuses) != 1 || statuses[0].UserID != 1 {
		t.Fatalf("expected only user 1 blocked, got %v", statuses)
	}
}
