// Package artifacts manages a run's on-disk artifacts: the per-run output
// directory, the captured data file, the run log and the persisted state
// document.
//
// Adapters:
//   - Workspace: output directory layout and data file capture
//   - StateStore: atomic state document load/persist
package artifacts
