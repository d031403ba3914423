package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/movielex/movielex-backend/pkg/logger"
)

const (
	defaultSubmissionRetentionDays = 90
	defaultBlockRetentionDays      = 30
)

// RetentionJobParams configures the bookkeeping cleanup job.
type RetentionJobParams struct {
	Logger                  *logger.Logger
	Submissions             submissionPruner
	Blocks                  blockPruner
	SubmissionRetentionDays int
	BlockRetentionDays      int
}

type submissionPruner interface {
	DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
}

type blockPruner interface {
	DeleteUnblockedBefore(ctx context.Context, before time.Time) (int64, error)
}

// NewRetentionJob constructs the job that prunes settled submissions and
// lifted blocks past their retention window. Delivery records are exempt;
// they back already-paid grants forever.
func NewRetentionJob(params RetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Submissions == nil {
		return nil, fmt.Errorf("submission pruner required")
	}
	if params.Blocks == nil {
		return nil, fmt.Errorf("block pruner required")
	}
	submissionDays := params.SubmissionRetentionDays
	if submissionDays <= 0 {
		submissionDays = defaultSubmissionRetentionDays
	}
	blockDays := params.BlockRetentionDays
	if blockDays <= 0 {
		blockDays = defaultBlockRetentionDays
	}
	return &retentionJob{
		logg:           params.Logger,
		submissions:    params.Submissions,
		blocks:         params.Blocks,
		submissionDays: submissionDays,
		blockDays:      blockDays,
		now:            time.Now,
	}, nil
}

type retentionJob struct {
	logg           *logger.Logger
	submissions    submissionPruner
	blocks         blockPruner
	submissionDays int
	blockDays      int
	now            func() time.Time
}

func (j *retentionJob) Name() string { return "retention" }

// Run prunes each table independently; one failing phase does not stop the
// other, and the errors come back combined.
func (j *retentionJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	var errs error

	submissionCutoff := now.Add(-time.Duration(j.submissionDays) * 24 * time.Hour)
	submissionsRemoved, err := j.submissions.DeleteProcessedBefore(ctx, submissionCutoff)
	if err != nil {
		errs = multierr.Append(errs, fmt.Errorf("prune submissions: %w", err))
	}

	blockCutoff := now.Add(-time.Duration(j.blockDays) * 24 * time.Hour)
	blocksRemoved, err := j.blocks.DeleteUnblockedBefore(ctx, blockCutoff)
	if err != nil {
		errs = multierr.Append(errs, fmt.Errorf("prune lifted blocks: %w", err))
	}

	if errs != nil {
		return errs
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"submissions_removed": submissionsRemoved,
		"blocks_removed":      blocksRemoved,
	})
	j.logg.Info(logCtx, "retention cleanup complete")
	return nil
}
