package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/custodia-labs/airbridge/internal/core/domain"
	"github.com/custodia-labs/airbridge/internal/core/ports/driven"
	"github.com/custodia-labs/airbridge/internal/core/ports/driving"
	"github.com/custodia-labs/airbridge/internal/logger"
)

// Ensure RunOrchestrator implements the interface.
var _ driving.RunOrchestrator = (*RunOrchestrator)(nil)

// RunOrchestrator drives one synchronisation run through its phases:
// identity derivation, prior state resolution, source capture, optional
// destination delivery, state persistence and manifest append.
type RunOrchestrator struct {
	runtime   driven.ConnectorRuntime
	source    driven.SourceRunner
	dest      driven.DestinationRunner
	manifest  driven.ManifestStore
	states    driven.StateStore
	workspace driven.Workspace
	resolver  *StateResolver

	now func() time.Time

	// Status tracking
	mu         sync.RWMutex
	activeRuns map[string]*driving.RunStatus
}

// NewRunOrchestrator creates a run orchestrator.
func NewRunOrchestrator(
	runtime driven.ConnectorRuntime,
	source driven.SourceRunner,
	dest driven.DestinationRunner,
	manifest driven.ManifestStore,
	states driven.StateStore,
	workspace driven.Workspace,
	resolver *StateResolver,
) *RunOrchestrator {
	return &RunOrchestrator{
		runtime:    runtime,
		source:     source,
		dest:       dest,
		manifest:   manifest,
		states:     states,
		workspace:  workspace,
		resolver:   resolver,
		now:        time.Now,
		activeRuns: make(map[string]*driving.RunStatus),
	}
}

// Run executes one run for the configuration.
//
//nolint:gocyclo // Orchestration function with necessary sequential steps
func (o *RunOrchestrator) Run(ctx context.Context, cfg domain.RunConfig) (*domain.RunResult, error) {
	// 1. Validate configuration before touching anything.
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// 2. Derive the identity naming this run's state and history.
	identity := domain.DeriveKey(cfg)

	// 3. Claim the identity for the duration of the run. Two in-process
	//    runs under one identity would race on whose state is prior.
	if !o.claim(identity) {
		return nil, fmt.Errorf("identity %s: %w", identity, domain.ErrRunInProgress)
	}
	defer o.release(identity)

	startedAt := o.now()
	epoch := startedAt.Unix()
	jobID := cfg.JobID
	if jobID == "" {
		jobID = domain.GenerateJobID(epoch)
	}

	result := &domain.RunResult{
		Identity:  identity,
		JobID:     jobID,
		Phase:     domain.PhaseInit,
		Epoch:     epoch,
		StartedAt: startedAt,
	}
	defer func() { result.EndedAt = o.now() }()

	// 4. Probe the runtime and resolve images before any artifact exists.
	if err := o.runtime.Ping(ctx); err != nil {
		return o.abort(result, err)
	}
	if err := o.runtime.EnsureImage(ctx, cfg.SourceImage); err != nil {
		return o.abort(result, err)
	}
	if cfg.DestinationImage != "" {
		if err := o.runtime.EnsureImage(ctx, cfg.DestinationImage); err != nil {
			return o.abort(result, err)
		}
	}

	// 5. The output tree must be writable before any connector launches.
	if err := o.workspace.EnsureWritable(cfg.OutputBasePath); err != nil {
		return o.abort(result, err)
	}

	// 6. Resolve the prior checkpoint for incremental resumption.
	_, statePath, err := o.resolver.ResolvePrior(ctx, identity, cfg.StatePath)
	if err != nil {
		return o.abort(result, err)
	}

	// 7. Prepare this run's directory and log.
	runDir, err := o.workspace.PrepareRunDir(cfg.OutputBasePath, cfg.SourceDirName(), epoch)
	if err != nil {
		return o.abort(result, err)
	}
	result.OutputDir = runDir

	runLog, err := o.workspace.OpenRunLog(runDir)
	if err != nil {
		return o.abort(result, err)
	}
	defer runLog.Close()
	// The sink is process-wide: every logger call during the run also
	// lands in this run's out.log.
	logger.SetSink(runLog)
	defer logger.SetSink(nil)

	logger.Info("Starting run %s (identity %s)", jobID, identity)
	if statePath != "" {
		logger.Info("Resuming from checkpoint %s", statePath)
	}

	// 8. Check the source configuration before burning a capture on bad
	//    credentials.
	if err := o.source.Check(ctx, cfg.SourceImage, cfg.SourceConfigPath); err != nil {
		return o.failSource(ctx, result, cfg, fmt.Errorf("source check: %w", err))
	}

	// 9. SOURCE_RUNNING: stream messages, appending records and state
	//    lines to the data file as they arrive so memory stays bounded.
	logger.Section("Source capture")
	o.setPhase(result, domain.PhaseSourceRunning)

	dataFile, err := o.workspace.CreateDataFile(runDir, epoch)
	if err != nil {
		return o.failSource(ctx, result, cfg, err)
	}
	acc := domain.NewStateAccumulator()
	msgs, errs := o.source.Read(ctx, driven.ReadRequest{
		Image:       cfg.SourceImage,
		ConfigPath:  cfg.SourceConfigPath,
		CatalogPath: cfg.CatalogPath,
		StatePath:   statePath,
		Stderr:      runLog,
	})
	captureErr := o.captureSource(ctx, msgs, errs, dataFile, acc, result)
	if closeErr := dataFile.Close(); captureErr == nil && closeErr != nil {
		captureErr = closeErr
	}
	if captureErr != nil {
		return o.failSource(ctx, result, cfg, captureErr)
	}
	o.setPhase(result, domain.PhaseSourceDone)
	result.DataFile = dataFile.Path()
	logger.Info("Captured %d records to %s", result.Records, result.DataFile)

	// 10. DEST_RUNNING: deliver the capture when a destination is
	//     configured. Delivery failure does not lose the capture; state
	//     and manifest still persist below so delivery can be retried.
	var destErr error
	if cfg.DestinationImage != "" {
		logger.Section("Destination delivery")
		o.setPhase(result, domain.PhaseDestRunning)
		if destErr = o.deliver(ctx, cfg, result.DataFile, runLog); destErr != nil {
			o.setPhase(result, domain.PhaseDestFailed)
			logger.Error("Destination phase failed: %v", destErr)
		} else {
			o.setPhase(result, domain.PhaseDestDone)
		}
	}

	// 11. STATE_PERSISTED: write the checkpoint next to the data file.
	if doc, ok := acc.Document(); ok {
		path, err := o.states.Persist(runDir, doc)
		if err != nil {
			result.Err = errors.Join(destErr, fmt.Errorf("persist state: %w", err))
			return result, result.Err
		}
		result.StateFile = path
		if destErr == nil {
			o.setPhase(result, domain.PhaseStatePersisted)
		}
	}

	// 12. MANIFEST_APPENDED: record the run. A locked manifest is fatal to
	//     this step only; the artifacts stay on disk for manual recovery.
	entry := domain.ManifestEntry{
		JobID:         jobID,
		Source:        cfg.ManifestSourceName(),
		DataFile:      result.DataFile,
		StateFilePath: result.StateFile,
		Timestamp:     epoch,
		ModifiedAt:    o.now().Unix(),
	}
	if err := o.manifest.Append(ctx, identity, entry); err != nil {
		result.Err = errors.Join(destErr, fmt.Errorf("append manifest entry: %w", err))
		return result, result.Err
	}
	if destErr != nil {
		result.Err = destErr
		return result, destErr
	}
	o.setPhase(result, domain.PhaseManifestAppended)

	// 13. COMPLETE.
	o.setPhase(result, domain.PhaseComplete)
	logger.Info("Run %s complete: %d records", jobID, result.Records)
	return result, nil
}

// Status returns progress for an in-flight run under the identity.
func (o *RunOrchestrator) Status(_ context.Context, identity string) (*driving.RunStatus, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if status, ok := o.activeRuns[identity]; ok {
		// Return a copy to avoid race conditions
		copied := *status
		return &copied, nil
	}

	// Not running - return idle status
	return &driving.RunStatus{Identity: identity, Running: false}, nil
}

// captureSource consumes the source stream, routing each message: records
// and state lines land in the data file, state additionally folds into the
// accumulator, diagnostics go to the run log. Returns the stream's fatal
// error, if any.
func (o *RunOrchestrator) captureSource(
	ctx context.Context,
	msgs <-chan *domain.Message,
	errs <-chan error,
	dataFile driven.RecordWriter,
	acc *domain.StateAccumulator,
	result *domain.RunResult,
) error {
	// The fatal error, when there is one, arrives after the message
	// channel closes, so both channels drain before the verdict.
	for msgs != nil || errs != nil {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if err != nil {
				return err
			}

		case msg, ok := <-msgs:
			if !ok {
				msgs = nil
				continue
			}
			if err := o.routeMessage(msg, dataFile, acc, result); err != nil {
				return err
			}
		}
	}
	return nil
}

// routeMessage dispatches one source message. Only RECORD and STATE affect
// persisted artifacts; everything else is logged and discarded.
func (o *RunOrchestrator) routeMessage(
	msg *domain.Message,
	dataFile driven.RecordWriter,
	acc *domain.StateAccumulator,
	result *domain.RunResult,
) error {
	if msg.Malformed {
		o.countMalformed(result)
		return nil
	}
	switch msg.Kind() {
	case domain.MessageRecord:
		if err := dataFile.WriteRecord(msg); err != nil {
			return err
		}
		o.countRecord(result)
	case domain.MessageState:
		// State lines are captured alongside records so the checkpoint
		// can be re-extracted from the data file alone.
		if err := dataFile.WriteRecord(msg); err != nil {
			return err
		}
		acc.Apply(msg.State)
	case domain.MessageLog:
		forwardLog("source", msg.Log)
	case domain.MessageTrace:
		logger.Debug("source trace: %s", msg.Trace)
	default:
		logger.Debug("source emitted %s message, ignoring", msg.Type)
	}
	return nil
}

// deliver checks the destination configuration, then feeds the captured
// data file to the destination connector and drains its acknowledgements.
func (o *RunOrchestrator) deliver(ctx context.Context, cfg domain.RunConfig, dataPath string, runLog io.Writer) error {
	if err := o.dest.Check(ctx, cfg.DestinationImage, cfg.DestinationConfigPath); err != nil {
		return fmt.Errorf("destination check: %w", err)
	}

	msgs, errs := o.dest.Write(ctx, driven.WriteRequest{
		Image:       cfg.DestinationImage,
		ConfigPath:  cfg.DestinationConfigPath,
		CatalogPath: cfg.CatalogPath,
		DataPath:    dataPath,
		Stderr:      runLog,
	})
	return drainDestination(ctx, msgs, errs)
}

// drainDestination consumes a destination connector's output stream,
// forwarding checkpoint acknowledgements and diagnostics to the run log.
func drainDestination(ctx context.Context, msgs <-chan *domain.Message, errs <-chan error) error {
	for msgs != nil || errs != nil {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if err != nil {
				return err
			}

		case msg, ok := <-msgs:
			if !ok {
				msgs = nil
				continue
			}
			switch msg.Kind() {
			case domain.MessageState:
				logger.Debug("destination acknowledged checkpoint")
			case domain.MessageLog:
				forwardLog("destination", msg.Log)
			}
		}
	}
	return nil
}

// failSource ends the run in SOURCE_FAILED: no delivery, no state persist.
// A prior checkpoint stays untouched. When failure recording is enabled a
// manifest entry with an empty data file marks the attempt.
func (o *RunOrchestrator) failSource(ctx context.Context, result *domain.RunResult, cfg domain.RunConfig, cause error) (*domain.RunResult, error) {
	o.setPhase(result, domain.PhaseSourceFailed)
	result.Err = cause
	logger.Error("Source phase failed: %v", cause)

	if cfg.RecordFailures {
		entry := domain.ManifestEntry{
			JobID:      result.JobID,
			Source:     cfg.ManifestSourceName(),
			Timestamp:  result.Epoch,
			ModifiedAt: o.now().Unix(),
		}
		if err := o.manifest.Append(ctx, result.Identity, entry); err != nil {
			logger.Error("Record failure entry: %v", err)
		}
	}
	return result, cause
}

// abort ends a run that failed before the source phase started.
func (o *RunOrchestrator) abort(result *domain.RunResult, cause error) (*domain.RunResult, error) {
	result.Err = cause
	return result, cause
}

// forwardLog relays a connector LOG message to the run log at its level.
func forwardLog(side string, lm *domain.LogMessage) {
	if lm == nil {
		return
	}
	switch lm.Level {
	case domain.LogLevelFatal, domain.LogLevelError:
		logger.Error("%s: %s", side, lm.Message)
	case domain.LogLevelWarn:
		logger.Warn("%s: %s", side, lm.Message)
	case domain.LogLevelDebug, domain.LogLevelTrace:
		logger.Debug("%s: %s", side, lm.Message)
	default:
		logger.Info("%s: %s", side, lm.Message)
	}
}

// claim registers an active run for the identity, refusing a second one.
func (o *RunOrchestrator) claim(identity string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.activeRuns[identity]; ok {
		return false
	}
	o.activeRuns[identity] = &driving.RunStatus{
		Identity: identity,
		Running:  true,
		Phase:    domain.PhaseInit,
	}
	return true
}

// release clears the active run for the identity.
func (o *RunOrchestrator) release(identity string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.activeRuns, identity)
}

// setPhase advances the run's phase on the result and the status map.
func (o *RunOrchestrator) setPhase(result *domain.RunResult, phase domain.RunPhase) {
	result.Phase = phase
	o.mu.Lock()
	defer o.mu.Unlock()
	if status, ok := o.activeRuns[result.Identity]; ok {
		status.Phase = phase
	}
}

// countRecord bumps the captured record count.
func (o *RunOrchestrator) countRecord(result *domain.RunResult) {
	result.Records++
	o.mu.Lock()
	defer o.mu.Unlock()
	if status, ok := o.activeRuns[result.Identity]; ok {
		status.Records = result.Records
	}
}

// countMalformed bumps the skipped line count.
func (o *RunOrchestrator) countMalformed(result *domain.RunResult) {
	result.MalformedLines++
	o.mu.Lock()
	defer o.mu.Unlock()
	if status, ok := o.activeRuns[result.Identity]; ok {
		status.MalformedLines = result.MalformedLines
	}
}
