//go:build !unix

package commands

import (
	"context"
	"log/slog"

	"github.com/loopcast/loopcast/pkg/caster"
)

// watchToggle waits for ctx; there is no toggle signal on this platform.
func watchToggle(ctx context.Context, control *caster.Control, logger *slog.Logger) {
	<-ctx.Done()
}
