package driving

import (
	"context"

	"github.com/custodia-labs/airbridge/internal/core/domain"
)

// Scheduler drives pipelines on their cron schedules.
type Scheduler interface {
	// RunOnce makes a single pass over the pipelines, executing every
	// enabled one whose schedule is due.
	RunOnce(ctx context.Context) error

	// Start runs passes continuously and hot-reloads the pipelines
	// document when it changes. Blocks until the context is cancelled or
	// an error occurs.
	Start(ctx context.Context) error

	// Stop gracefully stops the scheduler.
	Stop() error

	// History returns recent results for a pipeline, most recent first.
	History(ctx context.Context, pipelineID string, limit int) ([]domain.PipelineRun, error)
}
