package subscriptions

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/movielex/movielex-backend/pkg/db/models"
	"github.com/movielex/movielex-backend/pkg/enums"
	"github.com/movielex/movielex-backend/pkg/errors"
	"github.com/movielex/movielex-backend/pkg/logger"
)

type fakeRepository struct {
	mu   sync.Mutex
	rows map[int64]models.Subscription
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{rows: make(map[int64]models.Subscription)}
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepository) Upsert(ctx context.Context, subscription *models.Subscription) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[subscription.UserID] = *subscription
	return nil
}

func (f *fakeRepository) Get(ctx context.Context, userID int64) (*models.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[userID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &row, nil
}

func (f *fakeRepository) Delete(ctx context.Context, userID int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[userID]; !ok {
		return 0, nil
	}
	delete(f.rows, userID)
	return 1, nil
}

func (f *fakeRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var removed int64
	for userID, row := range f.rows {
		if !row.EndAt.After(before) {
			delete(f.rows, userID)
			removed++
		}
	}
	return removed, nil
}

func (f *fakeRepository) ListActive(ctx context.Context, now time.Time) ([]models.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Subscription
	for _, row := range f.rows {
		if row.ActiveAt(now) {
			out = append(out, row)
		}
	}
	return out, nil
}

func newTestService(t *testing.T, now func() time.Time) (*Service, *fakeRepository) {
	t.Helper()
	repo := newFakeRepository()
	svc, err := NewService(ServiceParams{
		Repo:   repo,
		Logger: logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Now:    now,
	})
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}
	return svc, repo
}

func TestService_ActivateCoversCategory(t *testing.T) {
	base := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	svc, _ := newTestService(t, func() time.Time { return base })
	ctx := context.Background()

	if _, err := svc.Activate(ctx, 42, enums.SubscriptionCategoryMovie, 30*24*time.Hour, 2000); err != nil {
		t.Fatalf("Activate error: %v", err)
	}

	sub, err := svc.ActiveFor(ctx, 42, enums.ContentCategoryMovie)
	if err != nil {
		t.Fatalf("ActiveFor error: %v", err)
	}
	if sub == nil {
		t.Fatal("expected covering subscription")
	}

	sub, err = svc.ActiveFor(ctx, 42, enums.ContentCategoryAnime)
	if err != nil {
		t.Fatalf("ActiveFor error: %v", err)
	}
	if sub != nil {
		t.Fatal("movie subscription must not cover anime")
	}
}

func TestService_AllCategoryCoversEverything(t *testing.T) {
	base := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	svc, _ := newTestService(t, func() time.Time { return base })
	ctx := context.Background()

	if _, err := svc.Activate(ctx, 42, enums.SubscriptionCategoryAll, 24*time.Hour, 5000); err != nil {
		t.Fatalf("Activate error: %v", err)
	}

	for _, category := range []enums.ContentCategory{
		enums.ContentCategoryMovie,
		enums.ContentCategorySeries,
		enums.ContentCategoryAnime,
		enums.ContentCategoryOther,
	} {
		sub, err := svc.ActiveFor(ctx, 42, category)
		if err != nil {
			t.Fatalf("ActiveFor(%s) error: %v", category, err)
		}
		if sub == nil {
			t.Fatalf("all-category subscription must cover %s", category)
		}
	}
}

func TestService_ActivateReplacesExisting(t *testing.T) {
	base := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	svc, repo := newTestService(t, func() time.Time { return base })
	ctx := context.Background()

	if _, err := svc.Activate(ctx, 42, enums.SubscriptionCategoryMovie, 30*24*time.Hour, 2000); err != nil {
		t.Fatalf("Activate error: %v", err)
	}
	if _, err := svc.Activate(ctx, 42, enums.SubscriptionCategoryAnime, 7*24*time.Hour, 800); err != nil {
		t.Fatalf("Activate error: %v", err)
	}

	if len(repo.rows) != 1 {
		t.Fatalf("expected one row per user, got %d", len(repo.rows))
	}
	row := repo.rows[42]
	if row.Category != enums.SubscriptionCategoryAnime {
		t.Fatalf("expected replacement category anime, got %s", row.Category)
	}

	sub, err := svc.ActiveFor(ctx, 42, enums.ContentCategoryMovie)
	if err != nil {
		t.Fatalf("ActiveFor error: %v", err)
	}
	if sub != nil {
		t.Fatal("old movie cover must be gone after replacement")
	}
}

func TestService_ExpiryComputedOnReadWithoutMutation(t *testing.T) {
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	clock := &now
	svc, repo := newTestService(t, func() time.Time { return *clock })
	ctx := context.Background()

	if _, err := svc.Activate(ctx, 42, enums.SubscriptionCategoryMovie, time.Hour, 500); err != nil {
		t.Fatalf("Activate error: %v", err)
	}

	later := now.Add(2 * time.Hour)
	clock = &later

	sub, err := svc.ActiveFor(ctx, 42, enums.ContentCategoryMovie)
	if err != nil {
		t.Fatalf("ActiveFor error: %v", err)
	}
	if sub != nil {
		t.Fatal("expired subscription must read as absent")
	}
	if _, ok := repo.rows[42]; !ok {
		t.Fatal("read path must not delete the expired row")
	}
}

func TestService_SweepExpiredRemovesOnlyClosedWindows(t *testing.T) {
	base := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	svc, repo := newTestService(t, func() time.Time { return base })
	ctx := context.Background()

	repo.rows[1] = models.Subscription{UserID: 1, Category: enums.SubscriptionCategoryAll, StartAt: base.Add(-48 * time.Hour), EndAt: base.Add(-time.Hour)}
	repo.rows[2] = models.Subscription{UserID: 2, Category: enums.SubscriptionCategoryAll, StartAt: base.Add(-time.Hour), EndAt: base.Add(time.Hour)}

	removed, err := svc.SweepExpired(ctx)
	if err != nil {
		t.Fatalf("SweepExpired error: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	if _, ok := repo.rows[2]; !ok {
		t.Fatal("live subscription must survive the sweep")
	}
}

func TestService_CancelMissingReturnsNotFound(t *testing.T) {
	svc, _ := newTestService(t, nil)
	err := svc.Cancel(context.Background(), 42)
	if !errors.IsCode(err, errors.CodeNotFound) {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestService_ActivateValidation(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	cases := []struct {
		name     string
		userID   int64
		category enums.SubscriptionCategory
		duration time.Duration
		price    int
	}{
		{"missing user", 0, enums.SubscriptionCategoryAll, time.Hour, 100},
		{"bad category", 42, enums.SubscriptionCategory("vip"), time.Hour, 100},
		{"zero duration", 42, enums.SubscriptionCategoryAll, 0, 100},
		{"negative price", 42, enums.SubscriptionCategoryAll, time.Hour, -1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Activate(ctx, tc.userID, tc.category, tc.duration, tc.price)
			if !errors.IsCode(err, errors.CodeInvalidInput) {
				t.Fatalf("expected invalid input error, got %v", err)
			}
		})
	}
}
