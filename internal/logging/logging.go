// Package logging builds the scaffold logger: the go-logr API on top of a
// log/slog text or JSON handler. Verbosity maps onto slog levels, so V(n)
// messages print when the handler level is at or below -n.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/go-logr/logr"
)

// Config selects handler format and threshold.
type Config struct {
	Level     string // debug|info|warn|error
	Format    string // text|json
	Verbosity int    // highest V level printed; overrides Level when > 0
}

// New returns a logger writing to w.
func New(w io.Writer, cfg Config) (logr.Logger, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return logr.Discard(), err
	}
	if cfg.Verbosity > 0 {
		level = slog.Level(-cfg.Verbosity)
	}
	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "", "text":
		h = slog.NewTextHandler(w, opts)
	case "json":
		h = slog.NewJSONHandler(w, opts)
	default:
		return logr.Discard(), fmt.Errorf("logging: unknown format %q", cfg.Format)
	}
	return logr.FromSlogHandler(h), nil
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("logging: unknown level %q", s)
}

// NewContext returns ctx carrying log.
func NewContext(ctx context.Context, log logr.Logger) context.Context {
	return logr.NewContext(ctx, log)
}

// FromContext returns the logger carried by ctx, or a discarding logger.
func FromContext(ctx context.Context) logr.Logger {
	return logr.FromContextOrDiscard(ctx)
}
