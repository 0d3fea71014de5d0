package driven

import (
	"context"
	"io"

	"github.com/custodia-labs/airbridge/internal/core/domain"
)

// ConnectorRuntime manages the container runtime connectors execute on.
type ConnectorRuntime interface {
	// Ping verifies the runtime is reachable. Returns
	// domain.ErrDockerUnavailable when it is not.
	Ping(ctx context.Context) error

	// EnsureImage makes the image available locally, pulling it only when
	// absent. Returns domain.ErrImageNotFound when it cannot be resolved.
	EnsureImage(ctx context.Context, image string) error
}

// ConnectorChecker runs a connector's configuration check operation.
type ConnectorChecker interface {
	// Check runs the connector's check operation against the given config
	// document. Returns domain.ErrCheckFailed when the connector reports
	// a failed connection status, or a *domain.ConnectorError when the
	// subprocess itself fails.
	Check(ctx context.Context, image, configPath string) error
}

// SourceRunner executes source connectors: the readable side of the
// protocol, producing messages.
type SourceRunner interface {
	ConnectorChecker

	// Read launches the source connector's read operation and streams its
	// protocol messages in emission order. The message channel closes when
	// the stream ends; a fatal error (including *domain.ConnectorError for
	// non-zero exits) is then delivered on the error channel. Lines that do
	// not parse arrive with Malformed set so the consumer can count and
	// skip them without aborting the stream.
	//
	// The sequence is lazy and single-pass: restarting means relaunching
	// the subprocess. Cancelling the context terminates the connector.
	Read(ctx context.Context, req ReadRequest) (<-chan *domain.Message, <-chan error)
}

// DestinationRunner executes destination connectors: the writable side of
// the protocol, consuming previously captured records.
type DestinationRunner interface {
	ConnectorChecker

	// Write launches the destination connector's write operation, feeds it
	// the captured record lines on standard input, and drains its standard
	// output for STATE/LOG acknowledgements, delivered on the message
	// channel. Completion and failure reporting follow Read.
	Write(ctx context.Context, req WriteRequest) (<-chan *domain.Message, <-chan error)
}

// ReadRequest configures one source read operation.
type ReadRequest struct {
	// Image is the source connector image reference.
	Image string

	// ConfigPath is the source configuration document.
	ConfigPath string

	// CatalogPath is the configured catalog document.
	CatalogPath string

	// StatePath optionally points at the prior checkpoint handed to the
	// source for incremental resumption. Empty for full syncs.
	StatePath string

	// Stderr optionally receives the subprocess's standard error stream,
	// typically the run log.
	Stderr io.Writer
}

// WriteRequest configures one destination write operation.
type WriteRequest struct {
	// Image is the destination connector image reference.
	Image string

	// ConfigPath is the destination configuration document.
	ConfigPath string

	// CatalogPath is the configured catalog document.
	CatalogPath string

	// DataPath is the captured data file whose record lines are fed to
	// the connector's standard input.
	DataPath string

	// Stderr optionally receives the subprocess's standard error stream.
	Stderr io.Writer
}
