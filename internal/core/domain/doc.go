// Package domain defines the core business entities for Airbridge.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - RunConfig: Immutable per-invocation run configuration
//   - Message: One line of the connector protocol (discriminated union)
//   - StateDocument: A source connector's resumption checkpoint
//   - ManifestEntry: One record of run provenance
//   - Pipeline: A scheduled source-to-destination replication
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
