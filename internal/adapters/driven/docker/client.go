package docker

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/custodia-labs/airbridge/internal/core/domain"
	"github.com/custodia-labs/airbridge/internal/core/ports/driven"
	"github.com/custodia-labs/airbridge/internal/logger"
)

// Ensure Client implements the interfaces.
var (
	_ driven.ConnectorRuntime  = (*Client)(nil)
	_ driven.SourceRunner      = (*Client)(nil)
	_ driven.DestinationRunner = (*Client)(nil)
)

// DefaultBinary is the container CLI used when none is configured.
const DefaultBinary = "docker"

// Client runs connector containers through the docker CLI. It shells out
// rather than speaking the engine API so podman and other drop-in
// replacements work unchanged.
type Client struct {
	binary    string
	extraArgs []string
}

// NewClient creates a client for the given CLI binary. An empty binary
// selects DefaultBinary. extraArgs are passed verbatim to every
// `docker run` invocation (network flags, platform overrides).
func NewClient(binary string, extraArgs []string) *Client {
	if binary == "" {
		binary = DefaultBinary
	}
	return &Client{binary: binary, extraArgs: extraArgs}
}

// Ping verifies the container runtime answers before any run work starts.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.capture(ctx, "version", "--format", "{{.Server.Version}}"); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrDockerUnavailable, err)
	}
	return nil
}

// EnsureImage resolves the connector image, pulling it only when it is not
// already present locally.
func (c *Client) EnsureImage(ctx context.Context, image string) error {
	if image == "" {
		return fmt.Errorf("%w: empty image reference", domain.ErrImageNotFound)
	}
	if _, err := c.capture(ctx, "image", "inspect", "--format", "{{.Id}}", image); err == nil {
		logger.Debug("image %s present locally", image)
		return nil
	}
	// Pulls can run for minutes; bound them by the caller's context alone.
	logger.Info("Pulling image %s", image)
	if out, err := exec.CommandContext(ctx, c.binary, "pull", image).CombinedOutput(); err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrImageNotFound, image, firstLine(out, err))
	}
	return nil
}

// firstLine condenses CLI output for an error message, falling back to the
// execution error itself.
func firstLine(out []byte, err error) string {
	s := strings.TrimSpace(string(out))
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if s == "" {
		return err.Error()
	}
	return s
}
