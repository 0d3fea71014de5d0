package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/airbridge/internal/core/domain"
	"github.com/custodia-labs/airbridge/internal/core/ports/driven"
	"github.com/custodia-labs/airbridge/internal/logger"
)

// StateResolver locates the checkpoint a run resumes from.
type StateResolver struct {
	manifest driven.ManifestStore
	states   driven.StateStore
}

// NewStateResolver creates a state resolver.
func NewStateResolver(manifest driven.ManifestStore, states driven.StateStore) *StateResolver {
	return &StateResolver{
		manifest: manifest,
		states:   states,
	}
}

// ResolvePrior returns the prior checkpoint for an identity and the path it
// was loaded from. Resolution order: an explicitly supplied path wins, then
// the identity's latest manifest entry, then absent (zero document, empty
// path) for a full initial sync.
//
// An explicit path that exists but does not parse fails with
// domain.ErrStateUnreadable: silently ignoring caller intent would start a
// full sync the caller did not ask for. A missing or unreadable
// manifest-referenced checkpoint only degrades to absent, since the
// manifest records history rather than expressing intent.
func (r *StateResolver) ResolvePrior(ctx context.Context, identity, explicitPath string) (domain.StateDocument, string, error) {
	if explicitPath != "" {
		doc, err := r.states.Load(explicitPath)
		if err == nil {
			return doc, explicitPath, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return domain.StateDocument{}, "", fmt.Errorf("explicit state path: %w", err)
		}
		logger.Warn("state path %s does not exist, falling back to manifest", explicitPath)
	}

	entry, err := r.manifest.Latest(ctx, identity)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.StateDocument{}, "", nil
		}
		return domain.StateDocument{}, "", fmt.Errorf("manifest latest: %w", err)
	}
	if entry.StateFilePath == "" {
		return domain.StateDocument{}, "", nil
	}

	doc, err := r.states.Load(entry.StateFilePath)
	if err != nil {
		// History pointing at a lost or corrupt checkpoint is not the
		// caller's doing; run fresh rather than refusing to run.
		logger.Warn("manifest checkpoint %s unusable (%v), starting without state", entry.StateFilePath, err)
		return domain.StateDocument{}, "", nil
	}
	return doc, entry.StateFilePath, nil
}
