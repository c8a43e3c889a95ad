package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// NewSignalContext creates a context that is cancelled on SIGINT or SIGTERM,
// so a long chain run stops between steps instead of being killed mid-save.
func NewSignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
