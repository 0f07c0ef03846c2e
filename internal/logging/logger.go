// Package logging builds the warroom application loggers: one text
// stream on stderr shared by every subsystem, with a component attr
// separating gateway, store, bridge, and core lines.
package logging

import (
	"log/slog"
	"os"
)

// New creates the root application logger.
// It writes to Stderr so stdout stays free for rendered output.
// It standardizes common keys (e.g., "error" -> "err").
func New(level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Standardize 'error' key to 'err'
			if a.Key == "error" {
				a.Key = "err"
			}
			return a
		},
	}))
}

// Component returns a child logger tagged with the owning subsystem,
// so one stream stays filterable per adapter.
func Component(log *slog.Logger, name string) *slog.Logger {
	return log.With(slog.String("component", name))
}

// NewNop returns a no-op logger.
func NewNop() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
