package driven

import (
	"context"

	"github.com/custodia-labs/airbridge/internal/core/domain"
)

// ManifestStore records run provenance, keyed by identity. The backing
// document is shared across concurrent runs, so every read-modify-write
// cycle is serialised behind an exclusive lock; Append fails with
// domain.ErrManifestLocked when the lock is not acquired in time rather
// than risking silent data loss.
type ManifestStore interface {
	// Append adds an entry to the identity's history, creating the
	// manifest document or the identity's history as needed. Entries are
	// never updated or deleted; corrections are appended.
	Append(ctx context.Context, identity string, entry domain.ManifestEntry) error

	// Latest returns the most recent entry for the identity.
	// Returns domain.ErrNotFound when the identity is unknown.
	Latest(ctx context.Context, identity string) (*domain.ManifestEntry, error)

	// Entries returns the identity's full history in append order.
	// Returns domain.ErrNotFound when the identity is unknown.
	Entries(ctx context.Context, identity string) ([]domain.ManifestEntry, error)

	// Snapshot returns a copy of the whole manifest document.
	Snapshot(ctx context.Context) (domain.Manifest, error)

	// Path returns the manifest document's location.
	Path() string
}
