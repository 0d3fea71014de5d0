package domain

import (
	"fmt"
	"strings"
	"time"
)

// RunConfig is the immutable per-invocation configuration for one
// synchronisation run.
type RunConfig struct {
	// SourceImage is the source connector image reference (e.g.
	// "airbyte/source-stripe"). Required.
	SourceImage string

	// DestinationImage is the destination connector image reference.
	// Empty when the run only captures data without delivering it.
	DestinationImage string

	// SourceConfigPath points at the source connector's configuration
	// document. Required.
	SourceConfigPath string

	// DestinationConfigPath points at the destination connector's
	// configuration document. Required when DestinationImage is set.
	DestinationConfigPath string

	// CatalogPath points at the configured catalog document describing
	// which streams to replicate. Required.
	CatalogPath string

	// OutputBasePath is the directory under which run artifacts are
	// written. Required.
	OutputBasePath string

	// JobID optionally names the run's identity verbatim, allowing
	// explicit grouping and resumption across configurations.
	JobID string

	// StatePath optionally points at a prior checkpoint document,
	// overriding manifest-based state resolution.
	StatePath string

	// RecordFailures appends a manifest entry even when the source phase
	// fails. Failure entries carry an empty data file path so they are
	// distinguishable from captured runs.
	RecordFailures bool
}

// Validate checks the structural constraints of the configuration.
// Path existence and writability are probed separately, just before the
// run starts.
func (c *RunConfig) Validate() error {
	if c.SourceImage == "" {
		return fmt.Errorf("%w: source image is required", ErrConfigInvalid)
	}
	if c.SourceConfigPath == "" {
		return fmt.Errorf("%w: source config path is required", ErrConfigInvalid)
	}
	if c.CatalogPath == "" {
		return fmt.Errorf("%w: catalog path is required", ErrConfigInvalid)
	}
	if c.OutputBasePath == "" {
		return fmt.Errorf("%w: output base path is required", ErrConfigInvalid)
	}
	if c.DestinationImage != "" && c.DestinationConfigPath == "" {
		return fmt.Errorf("%w: destination config path is required when a destination image is set", ErrConfigInvalid)
	}
	if c.DestinationImage == "" && c.DestinationConfigPath != "" {
		return fmt.Errorf("%w: destination config path given without a destination image", ErrConfigInvalid)
	}
	return nil
}

// SourceDirName returns the directory name used for this configuration's
// run artifacts: the source image reference with path separators replaced
// so it forms a single path element.
func (c *RunConfig) SourceDirName() string {
	return strings.ReplaceAll(c.SourceImage, "/", "-")
}

// ManifestSourceName returns the normalised source name recorded in
// manifest entries: image reference with underscores and slashes dashed.
func (c *RunConfig) ManifestSourceName() string {
	s := strings.ReplaceAll(c.SourceImage, "_", "-")
	return strings.ReplaceAll(s, "/", "-")
}

// RunPhase names one state of the run state machine.
type RunPhase string

// Run phases in transition order. SourceFailed and DestFailed are
// terminal failure phases.
const (
	// PhaseInit derives the identity, resolves prior state and prepares
	// the output directory.
	PhaseInit RunPhase = "INIT"

	// PhaseSourceRunning streams messages from the source connector.
	PhaseSourceRunning RunPhase = "SOURCE_RUNNING"

	// PhaseSourceFailed is terminal: the source connector failed and the
	// run stops without delivery or state persistence.
	PhaseSourceFailed RunPhase = "SOURCE_FAILED"

	// PhaseSourceDone marks a completed source capture.
	PhaseSourceDone RunPhase = "SOURCE_DONE"

	// PhaseDestRunning feeds captured records to the destination
	// connector. Skipped when no destination image is configured.
	PhaseDestRunning RunPhase = "DEST_RUNNING"

	// PhaseDestFailed is terminal for delivery: the destination connector
	// failed, but the captured data and state are still persisted.
	PhaseDestFailed RunPhase = "DEST_FAILED"

	// PhaseDestDone marks a completed delivery.
	PhaseDestDone RunPhase = "DEST_DONE"

	// PhaseStatePersisted marks the checkpoint written to disk.
	PhaseStatePersisted RunPhase = "STATE_PERSISTED"

	// PhaseManifestAppended marks the history entry recorded.
	PhaseManifestAppended RunPhase = "MANIFEST_APPENDED"

	// PhaseComplete marks overall success.
	PhaseComplete RunPhase = "COMPLETE"
)

// Terminal reports whether the phase ends the run.
func (p RunPhase) Terminal() bool {
	return p == PhaseSourceFailed || p == PhaseDestFailed || p == PhaseComplete
}

// RunResult summarises one driven run.
type RunResult struct {
	// Identity is the derived identity key the run was recorded under.
	Identity string

	// JobID is the job identifier recorded in the manifest entry. When
	// the caller supplied none, a generated "jobid-<epoch>" value is used.
	JobID string

	// Phase is the phase the run ended in.
	Phase RunPhase

	// Epoch is the run's start time in whole seconds, naming the output
	// directory and data file.
	Epoch int64

	// OutputDir is the directory holding this run's artifacts.
	OutputDir string

	// DataFile is the captured data file path. Empty when the source
	// phase failed before capture completed.
	DataFile string

	// StateFile is the persisted checkpoint path. Empty when no state
	// was persisted.
	StateFile string

	// Records is the number of RECORD messages captured.
	Records int

	// MalformedLines counts protocol lines that failed to parse and were
	// skipped.
	MalformedLines int

	// StartedAt and EndedAt bound the run wall-clock time.
	StartedAt time.Time
	EndedAt   time.Time

	// Err is the fatal error for failed runs, nil on success.
	Err error
}

// Failed reports whether the run ended in a terminal failure phase.
func (r *RunResult) Failed() bool {
	return r.Phase == PhaseSourceFailed || r.Phase == PhaseDestFailed
}
