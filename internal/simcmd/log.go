package simcmd

import (
	"io"
	"log/slog"
)

// newLogger builds the base logger for the simulator process, writing to w
// at the level opts.verbose selects.
func newLogger(w io.Writer, verbose bool) (logger *slog.Logger) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
