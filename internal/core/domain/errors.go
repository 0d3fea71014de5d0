package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrConfigInvalid indicates a malformed or missing run configuration
	// field. No run is attempted.
	ErrConfigInvalid = errors.New("invalid run configuration")

	// ErrConnectorFailed indicates a connector subprocess exited non-zero
	// or its output stream was unreadable. Fatal to the phase that ran it.
	ErrConnectorFailed = errors.New("connector failed")

	// ErrMalformedMessage indicates a single protocol line could not be
	// parsed. Logged and skipped, never fatal to the run.
	ErrMalformedMessage = errors.New("malformed protocol message")

	// ErrStateUnreadable indicates an explicitly supplied state path exists
	// but does not parse as JSON. Fatal: silently ignoring caller intent is
	// worse than failing loudly.
	ErrStateUnreadable = errors.New("state document unreadable")

	// ErrManifestLocked indicates the manifest lock was not acquired within
	// the timeout. Fatal to the append step only; run artifacts remain on
	// disk for manual recovery.
	ErrManifestLocked = errors.New("manifest locked")

	// ErrOutputDir indicates a collision or permission failure preparing
	// the run output directory. Fatal, pre-execution.
	ErrOutputDir = errors.New("output directory unavailable")

	// ErrDockerUnavailable indicates the container runtime did not respond
	// to a ping. No containers are started.
	ErrDockerUnavailable = errors.New("docker unavailable")

	// ErrImageNotFound indicates a connector image could not be resolved
	// locally or pulled from its registry.
	ErrImageNotFound = errors.New("connector image not found")

	// ErrCheckFailed indicates a connector's configuration check operation
	// reported failure before the run phase started.
	ErrCheckFailed = errors.New("connector check failed")

	// ErrSpecInvalid indicates a connector specification document is
	// missing the connection specification section or does not parse.
	ErrSpecInvalid = errors.New("connector specification invalid")

	// ErrRunInProgress indicates a run for the same identity is already
	// being driven by this process.
	ErrRunInProgress = errors.New("run in progress")

	// ErrResourcesBusy indicates the host is above the configured CPU or
	// memory threshold and a scheduled launch was deferred.
	ErrResourcesBusy = errors.New("host resources busy")
)

// ConnectorError carries the evidence of a connector subprocess failure:
// which image ran, which operation it performed, its exit code, and the
// last log lines it emitted before dying.
type ConnectorError struct {
	// Image is the connector image reference that was executed.
	Image string

	// Op is the protocol operation the connector performed
	// (check, read or write).
	Op string

	// ExitCode is the subprocess exit code. -1 when the process could not
	// be started or was killed before exiting.
	ExitCode int

	// LogTail holds the last log lines the connector emitted, newest last.
	LogTail []string

	// Err is the underlying execution error, if any.
	Err error
}

// Error implements the error interface.
func (e *ConnectorError) Error() string {
	msg := fmt.Sprintf("connector %s %s failed with exit code %d", e.Image, e.Op, e.ExitCode)
	if len(e.LogTail) > 0 {
		msg += "; last output:\n" + strings.Join(e.LogTail, "\n")
	}
	return msg
}

// Unwrap exposes the underlying execution error to errors.Is/As chains.
func (e *ConnectorError) Unwrap() error {
	return e.Err
}

// Is matches ConnectorError against the ErrConnectorFailed sentinel so
// callers can branch without unpacking the struct.
func (e *ConnectorError) Is(target error) bool {
	return target == ErrConnectorFailed
}
