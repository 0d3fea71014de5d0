// Package tui provides an interactive terminal browser for the run history
// manifest. It implements a driving adapter following hexagonal architecture
// principles.
package tui

import (
	"github.com/custodia-labs/airbridge/internal/core/ports/driving"
)

// Ports aggregates the driving port interfaces required by the TUI.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Manifest exposes the run history: identities, entries, identity
	// decoding and checkpoint lookup.
	Manifest driving.ManifestService
}

// NewPorts creates a new Ports aggregate with the given services.
func NewPorts(manifest driving.ManifestService) *Ports {
	return &Ports{
		Manifest: manifest,
	}
}

// Validate ensures all required ports are set.
// Returns an error if any port is nil.
func (p *Ports) Validate() error {
	if p.Manifest == nil {
		return ErrMissingManifestService
	}
	return nil
}
