package manifest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/custodia-labs/airbridge/internal/core/domain"
	"github.com/custodia-labs/airbridge/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.ManifestStore = (*Store)(nil)

const (
	// DefaultLockTimeout bounds how long an append waits for the manifest
	// lock before failing with domain.ErrManifestLocked.
	DefaultLockTimeout = 5 * time.Second

	// lockRetryDelay is the poll interval while waiting for the lock.
	lockRetryDelay = 50 * time.Millisecond

	// lockSuffix names the sidecar lock file next to the manifest.
	lockSuffix = ".lock"
)

// Store persists the manifest as one JSON document. Writes are serialised
// two ways: a process-local mutex orders goroutines, and a sidecar flock
// orders processes. Reads skip both — the document is replaced by rename,
// so a reader always sees a complete version.
type Store struct {
	mu          sync.Mutex
	path        string
	lock        *flock.Flock
	lockTimeout time.Duration
}

// NewStore creates a manifest store at path. A zero lockTimeout selects
// DefaultLockTimeout.
func NewStore(path string, lockTimeout time.Duration) (*Store, error) {
	if lockTimeout <= 0 {
		lockTimeout = DefaultLockTimeout
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create manifest dir: %w", err)
	}
	return &Store{
		path:        path,
		lock:        flock.New(path + lockSuffix),
		lockTimeout: lockTimeout,
	}, nil
}

// Append adds an entry under the identity's history, holding the exclusive
// lock across the whole load-mutate-save cycle.
func (s *Store) Append(ctx context.Context, identity string, entry domain.ManifestEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.acquireLock(ctx); err != nil {
		return err
	}
	defer s.lock.Unlock()

	m, err := s.load()
	if err != nil {
		return err
	}
	m.Append(identity, entry)
	return s.save(m)
}

// Latest returns the most recent entry for the identity.
func (s *Store) Latest(ctx context.Context, identity string) (*domain.ManifestEntry, error) {
	m, err := s.load()
	if err != nil {
		return nil, err
	}
	entry, ok := m.Latest(identity)
	if !ok {
		return nil, fmt.Errorf("identity %s: %w", identity, domain.ErrNotFound)
	}
	return &entry, nil
}

// Entries returns the identity's full history in append order.
func (s *Store) Entries(ctx context.Context, identity string) ([]domain.ManifestEntry, error) {
	m, err := s.load()
	if err != nil {
		return nil, err
	}
	history, ok := m[identity]
	if !ok {
		return nil, fmt.Errorf("identity %s: %w", identity, domain.ErrNotFound)
	}
	out := make([]domain.ManifestEntry, len(history))
	copy(out, history)
	return out, nil
}

// Snapshot returns a copy of the whole manifest document.
func (s *Store) Snapshot(ctx context.Context) (domain.Manifest, error) {
	return s.load()
}

// Path returns the manifest document's location.
func (s *Store) Path() string {
	return s.path
}

// acquireLock takes the sidecar flock, polling until acquired or the
// timeout lapses. A lapse means another process holds the manifest; the
// caller must not write blind.
func (s *Store) acquireLock(ctx context.Context) error {
	lockCtx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()

	locked, err := s.lock.TryLockContext(lockCtx, lockRetryDelay)
	if locked {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err == nil || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s not acquired within %s", domain.ErrManifestLocked, s.lock.Path(), s.lockTimeout)
	}
	return fmt.Errorf("acquire manifest lock: %w", err)
}

// load reads the manifest document, treating a missing file as empty.
func (s *Store) load() (domain.Manifest, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.Manifest{}, nil
		}
		return nil, fmt.Errorf("read manifest %s: %w", s.path, err)
	}
	if len(raw) == 0 {
		// An empty file counts as an empty manifest rather than a parse
		// failure, so a touch(1)-created file does not poison the store.
		return domain.Manifest{}, nil
	}
	var m domain.Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", s.path, err)
	}
	return m, nil
}

// save writes the document via a temp file and rename so readers never see
// a half-written manifest.
func (s *Store) save(m domain.Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".manifest-*.json")
	if err != nil {
		return fmt.Errorf("create temp manifest: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write manifest: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close manifest: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename manifest: %w", err)
	}
	return nil
}
