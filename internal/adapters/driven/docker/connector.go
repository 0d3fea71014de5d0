package docker

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/custodia-labs/airbridge/internal/core/domain"
	"github.com/custodia-labs/airbridge/internal/core/ports/driven"
	"github.com/custodia-labs/airbridge/internal/logger"
)

// Documents are bind-mounted at the paths Airbyte connectors expect.
const (
	containerConfigPath  = "/secrets/config.json"
	containerCatalogPath = "/secrets/catalog.json"
	containerStatePath   = "/state.json"
)

const (
	// scanBufBytes is the scanner's initial buffer.
	scanBufBytes = 64 * 1024

	// maxLineBytes caps a single protocol line. Records can be large but a
	// line beyond this is a runaway stream, not data.
	maxLineBytes = 10 << 20
)

// containerSpec describes one connector container invocation.
type containerSpec struct {
	image   string
	op      string
	name    string
	volumes []volume
	script  string
	stdin   io.Reader
	stderr  io.Writer
}

// volume is one host path bind-mounted into the container.
type volume struct {
	host      string
	container string
	readOnly  bool
}

// Check runs the connector's check operation and interprets its
// CONNECTION_STATUS message.
func (c *Client) Check(ctx context.Context, image, configPath string) error {
	spec := containerSpec{
		image:   image,
		op:      "check",
		name:    containerName(image, "check"),
		volumes: []volume{{host: configPath, container: containerConfigPath}},
		script:  entrypointScript("check", false, false),
	}
	msgs, errs := c.stream(ctx, spec)

	var status *domain.ConnectionStatus
	for msg := range msgs {
		switch {
		case msg.Kind() == domain.MessageConnectionStatus && msg.ConnectionStatus != nil:
			status = msg.ConnectionStatus
		case msg.Kind() == domain.MessageLog && msg.Log != nil:
			logger.Debug("check %s: %s", image, msg.Log.Message)
		}
	}
	if err := <-errs; err != nil {
		return err
	}
	if status == nil {
		return fmt.Errorf("%w: no connection status reported", domain.ErrCheckFailed)
	}
	if status.Status != domain.StatusSucceeded {
		if status.Message != "" {
			return fmt.Errorf("%w: %s", domain.ErrCheckFailed, status.Message)
		}
		return fmt.Errorf("%w: status %s", domain.ErrCheckFailed, status.Status)
	}
	return nil
}

// Read launches the source's read operation and streams its protocol
// output. Config and catalog are mounted writable: sources refresh
// expiring credentials by rewriting their config document.
func (c *Client) Read(ctx context.Context, req driven.ReadRequest) (<-chan *domain.Message, <-chan error) {
	spec := containerSpec{
		image: req.Image,
		op:    "read",
		name:  containerName(req.Image, "read"),
		volumes: []volume{
			{host: req.ConfigPath, container: containerConfigPath},
			{host: req.CatalogPath, container: containerCatalogPath},
		},
		stderr: req.Stderr,
	}
	if req.StatePath != "" {
		if err := ensureStateFile(req.StatePath); err != nil {
			return failStream(err)
		}
		spec.volumes = append(spec.volumes, volume{host: req.StatePath, container: containerStatePath})
	}
	spec.script = entrypointScript("read", true, req.StatePath != "")
	return c.stream(ctx, spec)
}

// Write launches the destination's write operation, feeding the captured
// record lines on its standard input.
func (c *Client) Write(ctx context.Context, req driven.WriteRequest) (<-chan *domain.Message, <-chan error) {
	data, err := os.Open(req.DataPath)
	if err != nil {
		return failStream(fmt.Errorf("open data file: %w", err))
	}
	spec := containerSpec{
		image: req.Image,
		op:    "write",
		name:  containerName(req.Image, "write"),
		volumes: []volume{
			{host: req.ConfigPath, container: containerConfigPath, readOnly: true},
			{host: req.CatalogPath, container: containerCatalogPath, readOnly: true},
		},
		script: entrypointScript("write", true, false),
		stdin:  data,
		stderr: req.Stderr,
	}
	return c.stream(ctx, spec)
}

// entrypointScript builds the bash payload that resolves the image's
// AIRBYTE_ENTRYPOINT and invokes the protocol operation.
func entrypointScript(op string, withCatalog, withState bool) string {
	script := "$AIRBYTE_ENTRYPOINT " + op + " --config " + containerConfigPath
	if withCatalog {
		script += " --catalog " + containerCatalogPath
	}
	if withState {
		script += " --state " + containerStatePath
	}
	return script
}

// ensureStateFile guarantees the mount source exists; docker would
// otherwise create a directory in its place.
func ensureStateFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat state file %s: %w", path, err)
	}
	if err := os.WriteFile(path, []byte("{}"), 0644); err != nil {
		return fmt.Errorf("create state file %s: %w", path, err)
	}
	return nil
}

// stream launches the container and returns its message stream. The
// message channel closes when the stream ends; at most one fatal error
// follows on the error channel, which then closes too.
func (c *Client) stream(ctx context.Context, spec containerSpec) (<-chan *domain.Message, <-chan error) {
	msgs := make(chan *domain.Message)
	errs := make(chan error, 1)
	go func() {
		defer close(errs)
		defer close(msgs)
		if err := c.runContainer(ctx, spec, msgs); err != nil {
			errs <- err
		}
	}()
	return msgs, errs
}

// failStream reports an error that prevented the container from starting,
// in the same channel shape stream produces.
func failStream(err error) (<-chan *domain.Message, <-chan error) {
	msgs := make(chan *domain.Message)
	close(msgs)
	errs := make(chan error, 1)
	errs <- err
	close(errs)
	return msgs, errs
}

// runContainer executes one container invocation to completion, sending
// parsed protocol messages to msgs.
func (c *Client) runContainer(ctx context.Context, spec containerSpec, msgs chan<- *domain.Message) error {
	if cl, ok := spec.stdin.(io.Closer); ok {
		defer cl.Close()
	}

	args, err := c.runArgs(spec)
	if err != nil {
		return err
	}
	cmd := c.command(args)
	cmd.Stdin = spec.stdin

	tail := newTailBuffer()
	if spec.stderr != nil {
		cmd.Stderr = io.MultiWriter(tail, spec.stderr)
	} else {
		cmd.Stderr = tail
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("connect %s stdout: %w", spec.op, err)
	}

	logger.Debug("starting container %s", spec.name)
	if err := cmd.Start(); err != nil {
		var execErr *exec.Error
		if errors.As(err, &execErr) {
			return fmt.Errorf("%w: %s not found", domain.ErrDockerUnavailable, c.binary)
		}
		return fmt.Errorf("start %s container: %w", spec.op, err)
	}

	// The watcher owns cancellation: SIGTERM, grace, SIGKILL, then a
	// force-remove so the daemon side dies with the client.
	waitDone := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			c.terminate(cmd, spec.name, waitDone)
		case <-waitDone:
		}
	}()

	scanErr := scanMessages(ctx, stdout, spec.op, msgs)
	waitErr := cmd.Wait()
	close(waitDone)

	if err := ctx.Err(); err != nil {
		return err
	}
	if waitErr != nil {
		return &domain.ConnectorError{
			Image:    spec.image,
			Op:       spec.op,
			ExitCode: exitCode(waitErr),
			LogTail:  tail.Lines(),
			Err:      waitErr,
		}
	}
	if scanErr != nil {
		return fmt.Errorf("%w: scan %s output: %v", domain.ErrConnectorFailed, spec.op, scanErr)
	}
	return nil
}

// runArgs assembles the docker run invocation for a container spec.
func (c *Client) runArgs(spec containerSpec) ([]string, error) {
	args := []string{"run", "--rm"}
	if spec.stdin != nil {
		args = append(args, "-i")
	}
	args = append(args, "--name", spec.name)
	args = append(args, c.extraArgs...)
	for _, v := range spec.volumes {
		host, err := filepath.Abs(v.host)
		if err != nil {
			return nil, fmt.Errorf("resolve mount %s: %w", v.host, err)
		}
		bind := host + ":" + v.container
		if v.readOnly {
			bind += ":ro"
		}
		args = append(args, "-v", bind)
	}
	args = append(args, "--entrypoint", "bash", spec.image, "-c", spec.script)
	return args, nil
}

// scanMessages parses the container's standard output line by line. Lines
// that fail to parse are forwarded marked Malformed so the consumer can
// count them; they never abort the stream.
func scanMessages(ctx context.Context, r io.Reader, op string, msgs chan<- *domain.Message) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, scanBufBytes), maxLineBytes)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		msg, err := domain.ParseMessage(line)
		if err != nil {
			logger.Warn("skipping %s output line: %v", op, err)
			msg = domain.NewMalformedMessage(line)
		}
		select {
		case msgs <- msg:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return scanner.Err()
}
