package telemetry

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync/atomic"
)

var current atomic.Pointer[slog.Logger]

// stdout resolves os.Stdout on every write so redirected output is honored.
type stdout struct{}

func (stdout) Write(p []byte) (int, error) { return os.Stdout.Write(p) }

// Init installs the process-wide JSON logger tagged with the service name.
func Init(service, level string) *slog.Logger {
	l := NewJSONLogger(stdout{}, service, level)
	current.Store(l)
	slog.SetDefault(l)
	return l
}

// NewJSONLogger builds a slog JSON logger writing to w.
func NewJSONLogger(w io.Writer, service, level string) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: ParseLevel(level),
	})
	l := slog.New(handler)
	if service != "" {
		l = l.With("service", service)
	}
	return l
}

// ParseLevel maps a textual level to slog. Unknown values mean info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

// Logger returns the installed logger, falling back to a stdout JSON logger.
func Logger() *slog.Logger {
	if l := current.Load(); l != nil {
		return l
	}
	l := NewJSONLogger(stdout{}, "", "info")
	current.CompareAndSwap(nil, l)
	return current.Load()
}

// SetLogger replaces the process-wide logger and returns the previous one.
func SetLogger(l *slog.Logger) *slog.Logger {
	return current.Swap(l)
}

// Info writes an info-level log line with the given fields.
func Info(msg string, fields map[string]any) {
	write(slog.LevelInfo, msg, fields)
}

// Warn writes a warn-level log line with the given fields.
func Warn(msg string, fields map[string]any) {
	write(slog.LevelWarn, msg, fields)
}

// Error writes an error-level log line with the given fields.
func Error(msg string, fields map[string]any) {
	write(slog.LevelError, msg, fields)
}

func write(level slog.Level, msg string, fields map[string]any) {
	l := Logger()
	ctx := context.Background()
	if !l.Enabled(ctx, level) {
		return
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	attrs := make([]slog.Attr, 0, len(keys))
	for _, k := range keys {
		v := fields[k]
		if err, ok := v.(error); ok && err != nil {
			v = err.Error()
		}
		attrs = append(attrs, slog.Any(k, v))
	}
	l.LogAttrs(ctx, level, msg, attrs...)
}
