package memory

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/airbridge/internal/core/domain"
	"github.com/custodia-labs/airbridge/internal/core/ports/driven"
)

// Ensure SchedulerStore implements the interface.
var _ driven.SchedulerStore = (*SchedulerStore)(nil)

// SchedulerStore is an in-memory implementation of driven.SchedulerStore.
// Run times do not survive a restart, so every pipeline fires on the first
// due check; use the sqlite store for real deployments.
type SchedulerStore struct {
	mu       sync.RWMutex
	runTimes map[string]time.Time
	history  map[string][]domain.PipelineRun
}

// NewSchedulerStore creates a new in-memory scheduler store.
func NewSchedulerStore() *SchedulerStore {
	return &SchedulerStore{
		runTimes: make(map[string]time.Time),
		history:  make(map[string][]domain.PipelineRun),
	}
}

// LastRunTime returns when the pipeline last started, or the zero time.
func (s *SchedulerStore) LastRunTime(_ context.Context, pipelineID string) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.runTimes[pipelineID], nil
}

// RecordRunTime stores a pipeline start time.
func (s *SchedulerStore) RecordRunTime(_ context.Context, pipelineID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runTimes[pipelineID] = at
	return nil
}

// RecordResult logs a pipeline execution result.
func (s *SchedulerStore) RecordResult(_ context.Context, result *domain.PipelineRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history[result.PipelineID] = append(s.history[result.PipelineID], *result)
	return nil
}

// History returns recent results for a pipeline, most recent first.
func (s *SchedulerStore) History(_ context.Context, pipelineID string, limit int) ([]domain.PipelineRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := s.history[pipelineID]
	if limit <= 0 || limit > len(runs) {
		limit = len(runs)
	}
	out := make([]domain.PipelineRun, 0, limit)
	for i := len(runs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, runs[i])
	}
	return out, nil
}

// PruneHistory keeps the most recent 'keep' results per pipeline.
func (s *SchedulerStore) PruneHistory(_ context.Context, keep int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if keep < 0 {
		keep = 0
	}
	for id, runs := range s.history {
		if len(runs) <= keep {
			continue
		}
		trimmed := make([]domain.PipelineRun, keep)
		copy(trimmed, runs[len(runs)-keep:])
		s.history[id] = trimmed
	}
	return nil
}
