package driven

import (
	"io"

	"github.com/custodia-labs/airbridge/internal/core/domain"
)

// Workspace prepares and writes a run's artifacts under the output base:
// the run directory, the captured data file and the run log.
type Workspace interface {
	// EnsureWritable verifies the output base (or its closest existing
	// parent) can be written to, probing with a throwaway file that is
	// removed again. Returns domain.ErrOutputDir when it cannot.
	EnsureWritable(outputBase string) error

	// PrepareRunDir creates "<outputBase>/<sourceName>/<epoch>/" and
	// returns its path. Fails with domain.ErrOutputDir when the directory
	// already exists non-empty (a prior incomplete run with the same
	// timestamp) or cannot be created.
	PrepareRunDir(outputBase, sourceName string, epoch int64) (string, error)

	// CreateDataFile opens "<runDir>/data_<epoch>.json" for streaming
	// record appends.
	CreateDataFile(runDir string, epoch int64) (RecordWriter, error)

	// OpenRunLog opens "<runDir>/out.log" for the run's log output.
	OpenRunLog(runDir string) (io.WriteCloser, error)

	// FindDataFiles walks root for captured data files, returning them in
	// path order. Used by manifest rebuilds.
	FindDataFiles(root string) ([]DataFile, error)
}

// RecordWriter appends captured RECORD messages to a run's data file, one
// protocol line per record, flushing as it goes so memory stays bounded on
// large syncs.
type RecordWriter interface {
	// WriteRecord appends one RECORD message line.
	WriteRecord(msg *domain.Message) error

	// Count returns the number of records written so far.
	Count() int

	// Path returns the data file path.
	Path() string

	// Close flushes and closes the file.
	Close() error
}

// DataFile locates one captured data file found under an output tree.
type DataFile struct {
	// Path is the data file location.
	Path string

	// Epoch is the run timestamp parsed from the file name.
	Epoch int64
}
