package cron

import (
	"context"
	"fmt"

	"github.com/movielex/movielex-backend/pkg/logger"
)

// SubscriptionSweepJobParams configures the expired subscription sweep.
type SubscriptionSweepJobParams struct {
	Logger   *logger.Logger
	Register subscriptionSweeper
}

type subscriptionSweeper interface {
	SweepExpired(ctx context.Context) (int64, error)
}

// NewSubscriptionSweepJob constructs the job that clears expired
// subscription rows. Entitlement checks never rely on it; it only keeps the
// register tidy.
func NewSubscriptionSweepJob(params SubscriptionSweepJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Register == nil {
		return nil, fmt.Errorf("subscription register required")
	}
	return &subscriptionSweepJob{
		logg:     params.Logger,
		register: params.Register,
	}, nil
}

type subscriptionSweepJob struct {
	logg     *logger.Logger
	register subscriptionSweeper
}

func (j *subscriptionSweepJob) Name() string { return "subscription-sweep" }

func (j *subscriptionSweepJob) Run(ctx context.Context) error {
	removed, err := j.register.SweepExpired(ctx)
	if err != nil {
		return fmt.Errorf("subscription sweep: %w", err)
	}
	logCtx := j.logg.WithField(ctx, "rows_removed", removed)
	j.logg.Info(logCtx, "subscription sweep complete")
	return nil
}
