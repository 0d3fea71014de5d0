package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/custodia-labs/airbridge/internal/core/domain"
	"github.com/custodia-labs/airbridge/internal/core/ports/driven"
	"github.com/custodia-labs/airbridge/internal/core/ports/driving"
	"github.com/custodia-labs/airbridge/internal/logger"
)

// Ensure PipelineScheduler implements the interface.
var _ driving.Scheduler = (*PipelineScheduler)(nil)

// PipelineScheduler executes pipelines from the pipelines document on their
// cron schedules. Each pass reloads the document, so edits take effect on
// the next pass without a restart.
type PipelineScheduler struct {
	config    domain.SchedulerConfig
	pipelines driven.PipelineSource
	store     driven.SchedulerStore
	probe     driven.ResourceProbe
	fetcher   driven.ConfigFetcher
	runner    driving.RunOrchestrator

	now func() time.Time

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewPipelineScheduler creates a scheduler with configuration.
func NewPipelineScheduler(
	config domain.SchedulerConfig,
	pipelines driven.PipelineSource,
	store driven.SchedulerStore,
	probe driven.ResourceProbe,
	fetcher driven.ConfigFetcher,
	runner driving.RunOrchestrator,
) *PipelineScheduler {
	def := domain.DefaultSchedulerConfig()
	if config.PollInterval <= 0 {
		config.PollInterval = def.PollInterval
	}
	if config.KeepHistory <= 0 {
		config.KeepHistory = def.KeepHistory
	}
	return &PipelineScheduler{
		config:    config,
		pipelines: pipelines,
		store:     store,
		probe:     probe,
		fetcher:   fetcher,
		runner:    runner,
		now:       time.Now,
	}
}

// RunOnce makes a single pass over the pipelines document, executing every
// enabled pipeline whose schedule is due. Pipelines deferred because the
// host is busy are not treated as failures; they stay due for the next pass.
func (s *PipelineScheduler) RunOnce(ctx context.Context) error {
	set, err := s.pipelines.Load(s.config.PipelinesPath)
	if err != nil {
		return fmt.Errorf("load pipelines document: %w", err)
	}

	var errs []error
	for i := range set.Pipelines {
		p := &set.Pipelines[i]
		if !p.Enabled {
			logger.Debug("Pipeline %s is disabled, skipping", p.ID)
			continue
		}

		due, err := s.due(ctx, p)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !due {
			logger.Debug("Pipeline %s is not due", p.ID)
			continue
		}

		if err := s.runPipeline(ctx, set.Dirs, p); err != nil {
			if errors.Is(err, domain.ErrResourcesBusy) {
				logger.Info("Deferring pipeline %s: %v", p.ID, err)
				continue
			}
			logger.Error("Pipeline %s failed: %v", p.ID, err)
			errs = append(errs, fmt.Errorf("pipeline %s: %w", p.ID, err))
		}
	}

	return errors.Join(errs...)
}

// Start begins the scheduler loop: an immediate pass, then a pass on every
// poll tick and on every change to the pipelines document. This method
// blocks until the context is cancelled or Stop is called.
func (s *PipelineScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil // Already running
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.mu.Unlock()

	changes, err := s.pipelines.Watch(ctx, s.config.PipelinesPath)
	if err != nil {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		return fmt.Errorf("watch pipelines document: %w", err)
	}

	return s.run(ctx, changes)
}

// Stop gracefully shuts down the scheduler.
func (s *PipelineScheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	// Wait for an in-flight pass to complete
	s.wg.Wait()

	return nil
}

// History returns recent results for a pipeline, most recent first.
func (s *PipelineScheduler) History(ctx context.Context, pipelineID string, limit int) ([]domain.PipelineRun, error) {
	return s.store.History(ctx, pipelineID, limit)
}

// run is the main scheduler loop.
func (s *PipelineScheduler) run(ctx context.Context, changes <-chan struct{}) error {
	// Check for due pipelines immediately on startup
	s.pass(ctx)

	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stopCh:
			return nil
		case <-ticker.C:
			s.pass(ctx)
		case _, ok := <-changes:
			if !ok {
				// Watcher closed on context cancellation
				changes = nil
				continue
			}
			logger.Info("Pipelines document changed, rescheduling")
			s.pass(ctx)
		}
	}
}

// pass runs one scheduling pass, logging failures instead of stopping the
// loop.
func (s *PipelineScheduler) pass(ctx context.Context) {
	s.wg.Add(1)
	defer s.wg.Done()

	if err := s.RunOnce(ctx); err != nil {
		logger.Error("Scheduler pass: %v", err)
	}
}

// due reports whether the pipeline's schedule has fired since the recorded
// start of its previous run. A pipeline that has never run is due
// immediately.
func (s *PipelineScheduler) due(ctx context.Context, p *domain.Pipeline) (bool, error) {
	sched, err := cron.ParseStandard(p.Schedule)
	if err != nil {
		return false, fmt.Errorf("%w: pipeline %s: schedule %q: %v", domain.ErrConfigInvalid, p.ID, p.Schedule, err)
	}

	last, err := s.store.LastRunTime(ctx, p.ID)
	if err != nil {
		return false, fmt.Errorf("last run time for %s: %w", p.ID, err)
	}
	if last.IsZero() {
		return true, nil
	}

	return !sched.Next(last).After(s.now()), nil
}

// runPipeline executes a single due pipeline and records the outcome.
func (s *PipelineScheduler) runPipeline(ctx context.Context, dirs domain.PipelineDirs, p *domain.Pipeline) error {
	// 1. Gate on host load. A deferred pipeline records no run time, so it
	// stays due until the host quietens down.
	busy, err := s.probe.Busy(ctx)
	if err != nil {
		return fmt.Errorf("probe host load: %w", err)
	}
	if busy {
		return fmt.Errorf("%w: cpu or memory above threshold", domain.ErrResourcesBusy)
	}

	// 2. Stage the pipeline's config documents locally.
	staged, err := s.stageConfigs(ctx, dirs.Configs, p)
	if err != nil {
		return err
	}

	// 3. Execute the run. The start time is recorded first so a schedule
	// fire during a long run does not queue a second execution.
	startedAt := s.now()
	if err := s.store.RecordRunTime(ctx, p.ID, startedAt); err != nil {
		logger.Warn("Failed to record run time for %s: %v", p.ID, err)
	}

	logger.Info("Launching pipeline %s (%s)", p.ID, p.SourceImage)
	result, runErr := s.runner.Run(ctx, domain.RunConfig{
		SourceImage:           p.SourceImage,
		DestinationImage:      p.DestinationImage,
		SourceConfigPath:      staged["source"],
		DestinationConfigPath: staged["destination"],
		CatalogPath:           staged["catalog"],
		OutputBasePath:        filepath.Join(dirs.Output, p.ID),
		JobID:                 p.ID,
	})

	// 4. Record the outcome for history.
	run := &domain.PipelineRun{
		PipelineID: p.ID,
		StartedAt:  startedAt,
		EndedAt:    s.now(),
		Success:    runErr == nil,
	}
	if runErr != nil {
		run.Error = runErr.Error()
	}
	if result != nil {
		run.Records = result.Records
	}
	if recordErr := s.store.RecordResult(ctx, run); recordErr != nil {
		logger.Warn("Failed to record result for %s: %v", p.ID, recordErr)
	}
	if pruneErr := s.store.PruneHistory(ctx, s.config.KeepHistory); pruneErr != nil {
		logger.Warn("Failed to prune history: %v", pruneErr)
	}

	return runErr
}

// stageConfigs fetches every config document of the pipeline into the
// configs directory, one subdirectory per pipeline id, and returns the local
// path for each document name.
func (s *PipelineScheduler) stageConfigs(ctx context.Context, configsDir string, p *domain.Pipeline) (map[string]string, error) {
	staged := make(map[string]string, len(p.ConfigDocs))
	for name, uri := range p.ConfigDocs {
		dest := filepath.Join(configsDir, p.ID, name+".json")
		if err := s.fetcher.Fetch(ctx, uri, dest); err != nil {
			return nil, fmt.Errorf("stage %s document for %s: %w", name, p.ID, err)
		}
		staged[name] = dest
	}
	return staged, nil
}
