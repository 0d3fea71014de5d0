package driving

import (
	"context"

	"github.com/custodia-labs/airbridge/internal/core/domain"
)

// RunOrchestrator drives one synchronisation run end to end: identity
// derivation, prior state resolution, source capture, optional delivery,
// state persistence and manifest append.
type RunOrchestrator interface {
	// Run executes one run for the configuration. The returned result is
	// populated even on failure, reporting the phase the run ended in;
	// the error is the fatal cause for failed runs.
	Run(ctx context.Context, cfg domain.RunConfig) (*domain.RunResult, error)

	// Status returns progress for an in-flight run under the identity.
	Status(ctx context.Context, identity string) (*RunStatus, error)
}

// RunStatus reports the progress of a run in flight.
type RunStatus struct {
	// Identity is the run's identity key.
	Identity string

	// Running indicates a run is currently in progress.
	Running bool

	// Phase is the state machine phase the run is in.
	Phase domain.RunPhase

	// Records is the count of records captured so far.
	Records int

	// MalformedLines is the count of protocol lines skipped so far.
	MalformedLines int
}

// Redeliverer retries delivery of an already captured run without
// re-extracting from the source.
type Redeliverer interface {
	// Redeliver feeds a prior run's data file to a destination connector.
	// It never mutates the manifest entries of the original capture.
	Redeliver(ctx context.Context, req RedeliverRequest) error
}

// RedeliverRequest configures one redelivery.
type RedeliverRequest struct {
	// Identity selects the capture to redeliver: its latest manifest
	// entry's data file is used. Ignored when DataFile is set.
	Identity string

	// DataFile points directly at a captured data file, bypassing
	// manifest resolution.
	DataFile string

	// DestinationImage is the destination connector to deliver to.
	DestinationImage string

	// DestinationConfigPath is the destination configuration document.
	DestinationConfigPath string

	// CatalogPath is the configured catalog document.
	CatalogPath string
}
