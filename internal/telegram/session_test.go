package telegram

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/movielex/movielex-backend/pkg/redis"
)

type memorySessionStore struct {
	values map[string]string
	ttls   map[string]time.Duration
}

func newMemorySessionStore() *memorySessionStore {
	return &memorySessionStore{
		values: make(map[string]string),
		ttls:   make(map[string]time.Duration),
	}
}

func (m *memorySessionStore) Get(ctx context.Context, key string) (string, error) {
	value, ok := m.values[key]
	if !ok {
		return "", redis.Nil
	}
	return value, nil
}

func (m *memorySessionStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	m.values[key] = fmt.Sprint(value)
	m.ttls[key] = ttl
	return nil
}

func (m *memorySessionStore) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.values, key)
	}
	return nil
}

func (m *memorySessionStore) SessionKey(scope, id string) string {
	return "session:" + scope + ":" + id
}

func TestSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	store := newMemorySessionStore()
	sessions := NewSessionManager(store)

	if _, open, err := sessions.Pending(ctx, testAdminID); err != nil || open {
		t.Fatalf("fresh store should have no session, open=%v err=%v", open, err)
	}

	if err := sessions.Begin(ctx, testAdminID, 7); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	id, open, err := sessions.Pending(ctx, testAdminID)
	if err != nil || !open || id != 7 {
		t.Fatalf("expected open session for 7, got id=%d open=%v err=%v", id, open, err)
	}

	// A second approve replaces the pending submission instead of stacking.
	if err := sessions.Begin(ctx, testAdminID, 9); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if id, _, _ := sessions.Pending(ctx, testAdminID); id != 9 {
		t.Fatalf("expected replacement session 9, got %d", id)
	}

	if err := sessions.Clear(ctx, testAdminID); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, open, _ := sessions.Pending(ctx, testAdminID); open {
		t.Fatal("cleared session should not report pending")
	}
}

func TestSessionExpiresEventually(t *testing.T) {
	store := newMemorySessionStore()
	sessions := NewSessionManager(store)

	if err := sessions.Begin(context.Background(), testAdminID, 7); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	for key, ttl := range store.ttls {
		if ttl <= 0 {
			t.Fatalf("session key %s stored without a ttl", key)
		}
	}
	if len(store.ttls) == 0 {
		t.Fatal("expected a keyed session entry")
	}
}
