package accessgate

import (
	"context"
	"strconv"
	"time"

	"github.com/movielex/movielex-backend/pkg/errors"
	"github.com/movielex/movielex-backend/pkg/redis"
)

const counterScope = "volume"

// VolumeCounter tracks per-user request volume in a rolling window backed by
// redis. The window starts at the user's first request; the key expires on
// its own, so an idle user resets for free.
type VolumeCounter struct {
	client    *redis.Client
	threshold int
	window    time.Duration
}

// NewVolumeCounter builds a request volume counter.
func NewVolumeCounter(client *redis.Client, threshold int, window time.Duration) *VolumeCounter {
	return &VolumeCounter{client: client, threshold: threshold, window: window}
}

// Incr bumps the user's request count and reports whether this request
// pushed them past the threshold.
func (c *VolumeCounter) Incr(ctx context.Context, userID int64) (int64, bool, error) {
	key := c.client.CounterKey(counterScope, strconv.FormatInt(userID, 10))
	count, err := c.client.Incr(ctx, key)
	if err != nil {
		return 0, false, errors.Wrap(errors.CodeDependency, err, "bump volume counter")
	}
	if count == 1 {
		if _, err := c.client.Expire(ctx, key, c.window); err != nil {
			return 0, false, errors.Wrap(errors.CodeDependency, err, "set counter window")
		}
	}
	return count, count > int64(c.threshold), nil
}

// Reset clears the user's counter so an unblock starts them from zero.
func (c *VolumeCounter) Reset(ctx context.Context, userID int64) error {
	key := c.client.CounterKey(counterScope, strconv.FormatInt(userID, 10))
	if err := c.client.Del(ctx, key); err != nil {
		return errors.Wrap(errors.CodeDependency, err, "reset volume counter")
	}
	return nil
}
