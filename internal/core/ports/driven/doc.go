// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - ConnectorRuntime: Container runtime availability and image pulls
//   - SourceRunner: Executes source connectors (read side of the protocol)
//   - DestinationRunner: Executes destination connectors (write side)
//   - ManifestStore: Lock-guarded run history persistence
//   - StateStore: Checkpoint document load/persist
//   - Workspace: Run directory, data file and run log management
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These are only needed by the scheduler and template surfaces:
//
//   - SchedulerStore: Pipeline run time and history persistence
//   - PipelineSource: Pipelines document loading and change watching
//   - ConfigFetcher: Staging of s3:// or local pipeline config documents
//   - SpecFetcher: Connector specification retrieval
//   - ResourceProbe: Host CPU/memory pressure gate
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
