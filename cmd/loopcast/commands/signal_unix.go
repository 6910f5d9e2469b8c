//go:build unix

package commands

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/loopcast/loopcast/pkg/caster"
)

// watchToggle flips streaming on each SIGHUP until ctx is done.
func watchToggle(ctx context.Context, control *caster.Control, logger *slog.Logger) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			on := control.Toggle()
			logger.Info("serve: streaming toggled", "streaming", on)
		}
	}
}
