package driven

import (
	"github.com/custodia-labs/airbridge/internal/core/domain"
)

// StateStore loads and persists state documents on the local filesystem.
type StateStore interface {
	// Load reads and validates the checkpoint at the given path.
	// Returns domain.ErrNotFound when the file does not exist and
	// domain.ErrStateUnreadable when it exists but does not parse.
	Load(path string) (domain.StateDocument, error)

	// Persist atomically writes the checkpoint to "<dir>/state.json"
	// (temp file in the same directory, then rename) and returns the
	// written path. A concurrent reader never observes a half-written
	// file, and a failed write never clobbers a prior valid checkpoint.
	Persist(dir string, doc domain.StateDocument) (string, error)

	// ExtractState scans a captured data file for STATE protocol lines
	// and returns the accumulated checkpoint. Used when rebuilding
	// manifests from trees whose captures predate separate state files.
	// The second return is false when the file holds no state.
	ExtractState(dataPath string) (domain.StateDocument, bool, error)
}
