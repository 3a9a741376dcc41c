package observability

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// NewLogger writes JSON to stdout. Every record carries the service name and
// environment, plus trace and user ids when the logging context has them.
func NewLogger(service, env, level string) *slog.Logger {
	return newLogger(os.Stdout, service, env, level)
}

func newLogger(w io.Writer, service, env, level string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(env, level)}
	if env == "dev" {
		opts.AddSource = true
	}

	handler := slog.NewJSONHandler(w, opts).WithAttrs([]slog.Attr{
		slog.String("service", service),
		slog.String("env", env),
	})

	return slog.New(NewContextHandler(handler))
}

// parseLevel falls back to debug in dev and info elsewhere when level is
// empty or not a slog level name.
func parseLevel(env, level string) slog.Level {
	var l slog.Level
	if s := strings.TrimSpace(level); s != "" && l.UnmarshalText([]byte(s)) == nil {
		return l
	}
	if env == "dev" {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}
