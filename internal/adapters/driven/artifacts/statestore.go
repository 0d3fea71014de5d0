package artifacts

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/custodia-labs/airbridge/internal/core/domain"
	"github.com/custodia-labs/airbridge/internal/core/ports/driven"
)

// Ensure StateStore implements the interface.
var _ driven.StateStore = (*StateStore)(nil)

// stateFileName is the checkpoint file written next to a run's data file.
const stateFileName = "state.json"

// maxStateLineBytes bounds a single protocol line when scanning captured
// data files. Connector records can be large but not unbounded.
const maxStateLineBytes = 10 << 20

// StateStore persists state documents as JSON files on the local
// filesystem, one per run directory.
type StateStore struct{}

// NewStateStore creates a filesystem state store.
func NewStateStore() *StateStore {
	return &StateStore{}
}

// Load reads and validates the checkpoint at path.
func (s *StateStore) Load(path string) (domain.StateDocument, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.StateDocument{}, fmt.Errorf("state file %s: %w", path, domain.ErrNotFound)
		}
		return domain.StateDocument{}, fmt.Errorf("read state file %s: %w", path, err)
	}
	doc, err := domain.NewStateDocument(raw)
	if err != nil {
		return domain.StateDocument{}, fmt.Errorf("state file %s: %w", path, err)
	}
	return doc, nil
}

// Persist writes the checkpoint to "<dir>/state.json" via a temp file and
// rename, so a crash mid-write leaves any prior checkpoint intact.
func (s *StateStore) Persist(dir string, doc domain.StateDocument) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create state dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".state-*.json")
	if err != nil {
		return "", fmt.Errorf("create temp state file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(doc.JSON()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("write state file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("sync state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("close state file: %w", err)
	}

	path := filepath.Join(dir, stateFileName)
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("rename state file: %w", err)
	}
	return path, nil
}

// ExtractState scans a captured data file for STATE protocol lines and
// folds them into a checkpoint, the same way a live run would have. Lines
// that are not protocol messages are skipped; older captures interleave
// log output with protocol lines.
func (s *StateStore) ExtractState(dataPath string) (domain.StateDocument, bool, error) {
	f, err := os.Open(dataPath)
	if err != nil {
		return domain.StateDocument{}, false, fmt.Errorf("open data file %s: %w", dataPath, err)
	}
	defer f.Close()

	acc := domain.NewStateAccumulator()
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxStateLineBytes)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		msg, err := domain.ParseMessage(line)
		if err != nil {
			if errors.Is(err, domain.ErrMalformedMessage) {
				continue
			}
			return domain.StateDocument{}, false, err
		}
		if msg.Kind() == domain.MessageState {
			acc.Apply(msg.State)
		}
	}
	if err := scanner.Err(); err != nil {
		return domain.StateDocument{}, false, fmt.Errorf("scan data file %s: %w", dataPath, err)
	}

	doc, ok := acc.Document()
	return doc, ok, nil
}
