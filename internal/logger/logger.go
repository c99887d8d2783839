// Package logger provides leveled, structured logging for linetrack.
//
// It is a thin wrapper around log/slog with a process-wide default logger
// so that library packages can log without threading a logger through
// every constructor. Components that want an isolated logger accept a
// *slog.Logger option instead.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
)

// Config holds logger configuration.
type Config struct {
	// Level is one of "debug", "info", "warn", "error". Defaults to "info".
	Level string

	// Format is "text" or "json". Defaults to "text".
	Format string

	// Output receives log records. Defaults to os.Stderr.
	Output io.Writer
}

var (
	mu      sync.Mutex
	level   = new(slog.LevelVar)
	current atomic.Pointer[slog.Logger]
)

func init() {
	level.Set(slog.LevelInfo)
	current.Store(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// Init reconfigures the default logger. Safe to call at any time;
// loggers obtained earlier keep their previous handler.
func Init(cfg Config) {
	mu.Lock()
	defer mu.Unlock()

	level.Set(parseLevel(cfg.Level))

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		h = slog.NewJSONHandler(out, opts)
	} else {
		h = slog.NewTextHandler(out, opts)
	}
	current.Store(slog.New(h))
}

// SetLevel adjusts the level of the default logger at runtime.
func SetLevel(name string) {
	level.Set(parseLevel(name))
}

// Disable silences the default logger entirely.
func Disable() {
	current.Store(slog.New(discardHandler{}))
}

// Default returns the process-wide logger.
func Default() *slog.Logger {
	return current.Load()
}

// With returns the default logger with pre-bound attributes.
func With(args ...any) *slog.Logger {
	return Default().With(args...)
}

// Debug logs at debug level on the default logger.
func Debug(msg string, args ...any) { Default().Debug(msg, args...) }

// Info logs at info level on the default logger.
func Info(msg string, args ...any) { Default().Info(msg, args...) }

// Warn logs at warn level on the default logger.
func Warn(msg string, args ...any) { Default().Warn(msg, args...) }

// Error logs at error level on the default logger.
func Error(msg string, args ...any) { Default().Error(msg, args...) }

func parseLevel(name string) slog.Level {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// discardHandler drops every record.
type discardHandler struct{}

func (discardHandler) Enabled(_ context.Context, _ slog.Level) bool    { return false }
func (d discardHandler) Handle(_ context.Context, _ slog.Record) error { return nil }
func (d discardHandler) WithAttrs(_ []slog.Attr) slog.Handler          { return d }
func (d discardHandler) WithGroup(_ string) slog.Handler               { return d }
