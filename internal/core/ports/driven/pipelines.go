package driven

import (
	"context"

	"github.com/custodia-labs/airbridge/internal/core/domain"
)

// PipelineSource loads the pipelines document and reports changes to it.
type PipelineSource interface {
	// Load parses and validates the pipelines document at path.
	Load(path string) (*domain.PipelineSet, error)

	// Watch emits on the returned channel whenever the document changes
	// on disk, until the context is cancelled. The channel is closed on
	// cancellation.
	Watch(ctx context.Context, path string) (<-chan struct{}, error)
}

// ResourceProbe reports host resource pressure so the scheduler can defer
// launches while the machine is busy.
type ResourceProbe interface {
	// Busy reports whether CPU or memory usage is at or above the
	// configured threshold.
	Busy(ctx context.Context) (bool, error)
}
