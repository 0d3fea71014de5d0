package mcp

import (
	"github.com/custodia-labs/airbridge/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Manifest exposes the recorded run history.
	Manifest driving.ManifestService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Manifest == nil {
		return ErrMissingManifestService
	}
	return nil
}
