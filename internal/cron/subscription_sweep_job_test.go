package cron

import (
	"context"
	"errors"
	"testing"

	"github.com/movielex/movielex-backend/pkg/logger"
)

type fakeSweeper struct {
	removed int64
	err     error
	called  int
}

func (f *fakeSweeper) SweepExpired(ctx context.Context) (int64, error) {
	f.called++
	if f.err != nil {
		return 0, f.err
	}
	return f.removed, nil
}

func TestSubscriptionSweepJobRunsSweep(t *testing.T) {
	register := &fakeSweeper{removed: 3}
	job, err := NewSubscriptionSweepJob(SubscriptionSweepJobParams{
		Logger:   logger.New(logger.Options{ServiceName: "test"}),
		Register: register,
	})
	if err != nil {
		t.Fatalf("NewSubscriptionSweepJob: %v", err)
	}

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if register.called != 1 {
		t.Fatalf("expected one sweep, got %d", register.called)
	}
}

func TestSubscriptionSweepJobPropagatesErrors(t *testing.T) {
	register := &fakeSweeper{err: errors.New("boom")}
	job, err := NewSubscriptionSweepJob(SubscriptionSweepJobParams{
		Logger:   logger.New(logger.Options{ServiceName: "test"}),
		Register: register,
	})
	if err != nil {
		t.Fatalf("NewSubscriptionSweepJob: %v", err)
	}

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
