package driving

import (
	"context"

	"github.com/custodia-labs/airbridge/internal/core/domain"
)

// ManifestService exposes the run history for operators: listing,
// inspection, identity decoding and rebuilds.
type ManifestService interface {
	// Identities summarises every known identity.
	Identities(ctx context.Context) ([]IdentitySummary, error)

	// History returns an identity's entries in append order.
	History(ctx context.Context, identity string) ([]domain.ManifestEntry, error)

	// Latest returns an identity's most recent entry.
	Latest(ctx context.Context, identity string) (*domain.ManifestEntry, error)

	// Decode reverses an identity key into its provenance pair. Keys that
	// are verbatim job ids decode with IsJobID set.
	Decode(key string) (*DecodedIdentity, error)

	// LatestState loads the checkpoint the identity's latest entry points
	// at, returning the document and its path.
	LatestState(ctx context.Context, identity string) (domain.StateDocument, string, error)

	// Rebuild walks an output tree for captured data files and appends
	// manifest entries for captures the manifest does not record,
	// re-extracting state files where they are missing.
	Rebuild(ctx context.Context, req RebuildRequest) (*RebuildResult, error)
}

// IdentitySummary describes one identity in the manifest.
type IdentitySummary struct {
	// Identity is the identity key.
	Identity string

	// Source is the normalised source name from the latest entry.
	Source string

	// Runs is the number of recorded entries.
	Runs int

	// LastTimestamp is the latest entry's run epoch.
	LastTimestamp int64
}

// DecodedIdentity is the provenance recovered from an identity key.
type DecodedIdentity struct {
	// IsJobID indicates the key is a caller-supplied job id, not an
	// encoded pair.
	IsJobID bool

	// Plain is the decoded comma-joined pair. Empty for job ids.
	Plain string

	// OutputPath and SourceImage are the pair's components.
	OutputPath  string
	SourceImage string
}

// RebuildRequest configures a manifest rebuild.
type RebuildRequest struct {
	// OutputBase is the artifact tree to walk.
	OutputBase string

	// SourceImage is the source connector the captures belong to; it
	// scopes the walk and derives the identity.
	SourceImage string

	// JobID optionally names the identity verbatim, as in a run.
	JobID string
}

// RebuildResult summarises a manifest rebuild.
type RebuildResult struct {
	// Identity is the identity the entries were appended under.
	Identity string

	// Appended is the number of manifest entries added.
	Appended int

	// StatesWritten is the number of state files re-extracted from
	// captured data.
	StatesWritten int

	// Skipped is the number of data files already recorded.
	Skipped int
}
