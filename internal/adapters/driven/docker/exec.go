package docker

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"regexp"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/airbridge/internal/logger"
)

const (
	// captureTimeout bounds short housekeeping invocations (version,
	// inspect). Pulls and runs are bounded by the caller's context.
	captureTimeout = 30 * time.Second

	// stopGracePeriod is how long a cancelled container gets between
	// SIGTERM and SIGKILL.
	stopGracePeriod = 10 * time.Second

	// removeTimeout bounds the force-remove issued after cancellation.
	removeTimeout = 30 * time.Second

	// tailMaxBytes caps the stderr capture kept for failure reports.
	tailMaxBytes = 8 * 1024

	// tailMaxLines is how many trailing stderr lines a failure reports.
	tailMaxLines = 10
)

// invalidNameChars matches everything a container name may not contain.
var invalidNameChars = regexp.MustCompile(`[^a-zA-Z0-9_.-]`)

// containerName derives a unique container name from the image reference,
// so concurrent runs of the same connector never collide and a cancelled
// run can be force-removed by name.
func containerName(image, op string) string {
	name := strings.ReplaceAll(image, "/", "-") + "_" + op + "_" + uuid.NewString()
	return invalidNameChars.ReplaceAllString(name, "_")
}

// capture runs a short CLI invocation and returns its combined output.
func (c *Client) capture(ctx context.Context, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, captureTimeout)
	defer cancel()
	return exec.CommandContext(ctx, c.binary, args...).CombinedOutput()
}

// command prepares a container invocation in its own process group, so a
// later terminate reaches the CLI and anything it spawned.
func (c *Client) command(args []string) *exec.Cmd {
	cmd := exec.Command(c.binary, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	return cmd
}

// terminate stops a running container invocation: SIGTERM first, SIGKILL
// after the grace period, then a force-remove so the daemon side does not
// keep running a container whose client is gone.
func (c *Client) terminate(cmd *exec.Cmd, name string, done <-chan struct{}) {
	signalGroup(cmd, syscall.SIGTERM)
	grace := time.NewTimer(stopGracePeriod)
	defer grace.Stop()
	select {
	case <-done:
	case <-grace.C:
		signalGroup(cmd, syscall.SIGKILL)
	}
	c.removeContainer(name)
}

// removeContainer force-removes the named container, tolerating the case
// where it already exited and was reaped by --rm.
func (c *Client) removeContainer(name string) {
	ctx, cancel := context.WithTimeout(context.Background(), removeTimeout)
	defer cancel()
	if out, err := exec.CommandContext(ctx, c.binary, "rm", "-f", name).CombinedOutput(); err != nil {
		logger.Debug("remove container %s: %v: %s", name, err, bytes.TrimSpace(out))
	}
}

// signalGroup signals the process group, falling back to the process
// itself when the group is already gone.
func signalGroup(cmd *exec.Cmd, sig syscall.Signal) {
	if cmd == nil || cmd.Process == nil {
		return
	}
	pid := cmd.Process.Pid
	if pid > 0 {
		if err := syscall.Kill(-pid, sig); err == nil {
			return
		}
	}
	_ = cmd.Process.Signal(sig)
}

// exitCode extracts the subprocess exit code, -1 when it never ran or was
// killed by a signal without reporting one.
func exitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// tailBuffer keeps the trailing bytes of a stream so a failure report can
// show the connector's last words without holding the whole log.
type tailBuffer struct {
	mu  sync.Mutex
	max int
	buf []byte
}

func newTailBuffer() *tailBuffer {
	return &tailBuffer{max: tailMaxBytes}
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	if over := len(b.buf) - b.max; over > 0 {
		b.buf = b.buf[over:]
	}
	return len(p), nil
}

// Lines returns up to tailMaxLines trailing non-empty lines.
func (b *tailBuffer) Lines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	all := strings.Split(strings.TrimRight(string(b.buf), "\n"), "\n")
	lines := make([]string, 0, len(all))
	for _, l := range all {
		if strings.TrimSpace(l) != "" {
			lines = append(lines, l)
		}
	}
	if len(lines) > tailMaxLines {
		lines = lines[len(lines)-tailMaxLines:]
	}
	return lines
}
