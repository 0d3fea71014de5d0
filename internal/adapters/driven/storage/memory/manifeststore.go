package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/airbridge/internal/core/domain"
	"github.com/custodia-labs/airbridge/internal/core/ports/driven"
)

// Ensure ManifestStore implements the interface.
var _ driven.ManifestStore = (*ManifestStore)(nil)

// ManifestStore is an in-memory implementation of driven.ManifestStore.
// Used by tests and one-shot tooling that must not touch the shared
// manifest file.
type ManifestStore struct {
	mu       sync.RWMutex
	manifest domain.Manifest
}

// NewManifestStore creates a new in-memory manifest store.
func NewManifestStore() *ManifestStore {
	return &ManifestStore{
		manifest: domain.Manifest{},
	}
}

// Append adds an entry to the identity's history.
func (s *ManifestStore) Append(_ context.Context, identity string, entry domain.ManifestEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.manifest.Append(identity, entry)
	return nil
}

// Latest returns the most recent entry for the identity.
func (s *ManifestStore) Latest(_ context.Context, identity string) (*domain.ManifestEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.manifest.Latest(identity)
	if !ok {
		return nil, fmt.Errorf("identity %s: %w", identity, domain.ErrNotFound)
	}
	return &entry, nil
}

// Entries returns the identity's full history in append order.
func (s *ManifestStore) Entries(_ context.Context, identity string) ([]domain.ManifestEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	history, ok := s.manifest[identity]
	if !ok {
		return nil, fmt.Errorf("identity %s: %w", identity, domain.ErrNotFound)
	}
	out := make([]domain.ManifestEntry, len(history))
	copy(out, history)
	return out, nil
}

// Snapshot returns a copy of the whole manifest.
func (s *ManifestStore) Snapshot(_ context.Context) (domain.Manifest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(domain.Manifest, len(s.manifest))
	for identity, history := range s.manifest {
		entries := make([]domain.ManifestEntry, len(history))
		copy(entries, history)
		out[identity] = entries
	}
	return out, nil
}

// Path identifies the store for log output; there is no backing file.
func (s *ManifestStore) Path() string {
	return ":memory:"
}
