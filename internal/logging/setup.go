package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/getsentry/sentry-go"
	slogmulti "github.com/samber/slog-multi"
	slogsentry "github.com/samber/slog-sentry/v2"
)

// Options selects the handler chain built by New.
type Options struct {
	// Level is one of debug, info, warn, error. Empty means info.
	Level string
	// Format is "text" or "json". Empty means json.
	Format string
	// SentryDSN enables forwarding of error-level records to Sentry.
	SentryDSN string
	// Output defaults to os.Stdout.
	Output io.Writer
}

// sentryInit is a seam for tests.
var sentryInit = sentry.Init

// New builds a slog logger writing to Output and, when a Sentry DSN is set,
// fanning error records out to Sentry as well.
func New(opts Options) (*SlogLogger, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	ho := &slog.HandlerOptions{Level: level}
	handlers := []slog.Handler{}
	switch strings.ToLower(opts.Format) {
	case "text":
		handlers = append(handlers, slog.NewTextHandler(out, ho))
	case "", "json":
		handlers = append(handlers, slog.NewJSONHandler(out, ho))
	default:
		return nil, fmt.Errorf("unknown log format %q", opts.Format)
	}

	if opts.SentryDSN != "" {
		if err := sentryInit(sentry.ClientOptions{Dsn: opts.SentryDSN}); err != nil {
			return nil, fmt.Errorf("sentry init: %w", err)
		}
		handlers = append(handlers, slogsentry.Option{Level: slog.LevelError}.NewSentryHandler())
	}

	var h slog.Handler
	if len(handlers) > 1 {
		h = slogmulti.Fanout(handlers...)
	} else {
		h = handlers[0]
	}

	return NewSlogLogger(slog.New(h)), nil
}

// ParseLevel maps a config string to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}
