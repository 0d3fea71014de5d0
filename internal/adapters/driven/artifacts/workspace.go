package artifacts

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/custodia-labs/airbridge/internal/core/domain"
	"github.com/custodia-labs/airbridge/internal/core/ports/driven"
)

// Ensure Workspace implements the interface.
var _ driven.Workspace = (*Workspace)(nil)

// dataFilePattern matches captured data files and extracts the run epoch.
var dataFilePattern = regexp.MustCompile(`^data_(\d+)\.json$`)

// Workspace lays out run artifacts on the local filesystem. Each run gets
// its own directory "<outputBase>/<sourceName>/<epoch>/" holding the data
// file, the run log and, after a successful run, the state document.
type Workspace struct{}

// NewWorkspace creates a filesystem workspace.
func NewWorkspace() *Workspace {
	return &Workspace{}
}

// EnsureWritable verifies the output base can be written to before any
// connector is launched. When the path does not exist yet, the closest
// existing ancestor is probed instead, since the run directory will be
// created beneath it.
func (w *Workspace) EnsureWritable(outputBase string) error {
	path := outputBase
	for {
		info, err := os.Stat(path)
		if err == nil {
			if !info.IsDir() {
				return fmt.Errorf("%w: %s is not a directory", domain.ErrOutputDir, path)
			}
			return probeWrite(path)
		}
		if !os.IsNotExist(err) {
			return fmt.Errorf("%w: stat %s: %v", domain.ErrOutputDir, path, err)
		}
		parent := filepath.Dir(path)
		if parent == path {
			return fmt.Errorf("%w: no existing parent for %s", domain.ErrOutputDir, outputBase)
		}
		path = parent
	}
}

// probeWrite checks directory writability by creating and removing a
// throwaway file. Permission bits alone are not trustworthy across mounts.
func probeWrite(dir string) error {
	f, err := os.CreateTemp(dir, ".write-check-*")
	if err != nil {
		return fmt.Errorf("%w: %s is not writable: %v", domain.ErrOutputDir, dir, err)
	}
	name := f.Name()
	if err := f.Close(); err != nil {
		os.Remove(name)
		return fmt.Errorf("%w: %s is not writable: %v", domain.ErrOutputDir, dir, err)
	}
	if err := os.Remove(name); err != nil {
		return fmt.Errorf("%w: cannot remove probe file in %s: %v", domain.ErrOutputDir, dir, err)
	}
	return nil
}

// PrepareRunDir creates the per-run directory. An existing non-empty
// directory means another run already claimed this epoch, so the caller
// must not silently mix artifacts into it.
func (w *Workspace) PrepareRunDir(outputBase, sourceName string, epoch int64) (string, error) {
	dir := filepath.Join(outputBase, sourceName, strconv.FormatInt(epoch, 10))

	entries, err := os.ReadDir(dir)
	if err == nil {
		if len(entries) > 0 {
			return "", fmt.Errorf("%w: run directory %s already exists and is not empty", domain.ErrOutputDir, dir)
		}
		return dir, nil
	}
	if !os.IsNotExist(err) {
		return "", fmt.Errorf("%w: read %s: %v", domain.ErrOutputDir, dir, err)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("%w: create %s: %v", domain.ErrOutputDir, dir, err)
	}
	return dir, nil
}

// CreateDataFile opens the run's data file for streaming appends.
func (w *Workspace) CreateDataFile(runDir string, epoch int64) (driven.RecordWriter, error) {
	path := filepath.Join(runDir, fmt.Sprintf("data_%d.json", epoch))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("create data file: %w", err)
	}
	return &recordWriter{
		file: f,
		buf:  bufio.NewWriter(f),
		path: path,
	}, nil
}

// OpenRunLog opens the run's out.log for appending.
func (w *Workspace) OpenRunLog(runDir string) (io.WriteCloser, error) {
	path := filepath.Join(runDir, "out.log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open run log: %w", err)
	}
	return f, nil
}

// FindDataFiles walks root for captured data files. WalkDir visits in
// lexical order, so results are deterministic for a given tree.
func (w *Workspace) FindDataFiles(root string) ([]driven.DataFile, error) {
	var found []driven.DataFile
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		m := dataFilePattern.FindStringSubmatch(d.Name())
		if m == nil {
			return nil
		}
		epoch, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return nil
		}
		found = append(found, driven.DataFile{Path: path, Epoch: epoch})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	return found, nil
}

// recordWriter appends protocol lines to a data file through a buffered
// writer so large syncs never hold more than one buffer in memory.
type recordWriter struct {
	file  *os.File
	buf   *bufio.Writer
	path  string
	count int
}

// WriteRecord appends one message as a single protocol line, preferring the
// original wire bytes so the destination replays exactly what the source
// emitted.
func (r *recordWriter) WriteRecord(msg *domain.Message) error {
	line := msg.Raw
	if len(line) == 0 {
		encoded, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("encode record: %w", err)
		}
		line = encoded
	}
	if _, err := r.buf.Write(line); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	if err := r.buf.WriteByte('\n'); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	r.count++
	return nil
}

// Count returns the number of records written so far.
func (r *recordWriter) Count() int {
	return r.count
}

// Path returns the data file path.
func (r *recordWriter) Path() string {
	return r.path
}

// Close flushes buffered lines and syncs the file so the manifest never
// references a data file with unwritten records.
func (r *recordWriter) Close() error {
	if err := r.buf.Flush(); err != nil {
		r.file.Close()
		return fmt.Errorf("flush data file: %w", err)
	}
	if err := r.file.Sync(); err != nil {
		r.file.Close()
		return fmt.Errorf("sync data file: %w", err)
	}
	return r.file.Close()
}
