package telegram

import (
	"context"
	stderrors "errors"
	"strconv"
	"time"

	"github.com/movielex/movielex-backend/pkg/errors"
	"github.com/movielex/movielex-backend/pkg/redis"
)

const (
	sessionScope = "verify"
	sessionTTL   = 10 * time.Minute
)

type sessionStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	SessionKey(scope, id string) string
}

// SessionManager keeps the one open awaiting-amount conversation per admin.
// Starting a new verification replaces the previous one, so an admin can
// never have two amounts pending at once.
type SessionManager struct {
	store sessionStore
}

// NewSessionManager builds the admin conversation store.
func NewSessionManager(store sessionStore) *SessionManager {
	return &SessionManager{store: store}
}

// Begin marks the admin as awaiting an amount for the given submission.
func (s *SessionManager) Begin(ctx context.Context, adminID, submissionID int64) error {
	key := s.store.SessionKey(sessionScope, strconv.FormatInt(adminID, 10))
	if err := s.store.Set(ctx, key, strconv.FormatInt(submissionID, 10), sessionTTL); err != nil {
		return errors.Wrap(errors.CodeDependency, err, "open verification session")
	}
	return nil
}

// Pending returns the submission the admin is currently entering an amount
// for, or false when no conversation is open.
func (s *SessionManager) Pending(ctx context.Context, adminID int64) (int64, bool, error) {
	key := s.store.SessionKey(sessionScope, strconv.FormatInt(adminID, 10))
	value, err := s.store.Get(ctx, key)
	if stderrors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, errors.Wrap(errors.CodeDependency, err, "read verification session")
	}
	submissionID, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, false, errors.Wrap(errors.CodeInternal, err, "corrupt verification session")
	}
	return submissionID, true, nil
}

// Clear closes the admin's conversation.
func (s *SessionManager) Clear(ctx context.Context, adminID int64) error {
	key := s.store.SessionKey(sessionScope, strconv.FormatInt(adminID, 10))
	if err := s.store.Del(ctx, key); err != nil {
		return errors.Wrap(errors.CodeDependency, err, "close verification session")
	}
	return nil
}
