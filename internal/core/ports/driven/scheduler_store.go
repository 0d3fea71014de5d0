package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/airbridge/internal/core/domain"
)

// SchedulerStore persists pipeline run times and execution history so the
// scheduler survives restarts without re-running pipelines early.
type SchedulerStore interface {
	// LastRunTime returns when the pipeline last started. Returns the
	// zero time and no error when the pipeline has never run.
	LastRunTime(ctx context.Context, pipelineID string) (time.Time, error)

	// RecordRunTime stores a pipeline start time.
	RecordRunTime(ctx context.Context, pipelineID string, at time.Time) error

	// RecordResult logs a pipeline execution result.
	RecordResult(ctx context.Context, result *domain.PipelineRun) error

	// History returns recent results for a pipeline, most recent first.
	History(ctx context.Context, pipelineID string, limit int) ([]domain.PipelineRun, error)

	// PruneHistory removes old results beyond the retention limit.
	// Keeps the most recent 'keep' results per pipeline.
	PruneHistory(ctx context.Context, keep int) error
}
