package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// signalContext derives a context cancelled on SIGINT or SIGTERM, so an
// interrupted command terminates its connector containers instead of
// orphaning them.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
