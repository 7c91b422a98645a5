package logging

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/nerrad567/gray-logic-zwave/internal/infrastructure/config"
)

// ServiceName is attached to every log entry.
const ServiceName = "graylogic-zwave"

// ErrUnknownLevel is returned by SetLevel for names other than debug,
// info, warn and error.
var ErrUnknownLevel = errors.New("logging: unknown level")

// Logger is the slog logger threaded through the engine, bridge and API.
// It satisfies the logger interfaces of ozw, the MQTT client and the
// bridge. Loggers derived with With share one level, so SetLevel on any of
// them changes them all.
type Logger struct {
	*slog.Logger
	level *slog.LevelVar
}

// New builds a Logger writing to cfg.Output ("stdout" or "stderr").
func New(cfg config.LoggingConfig, version string) *Logger {
	var out io.Writer = os.Stdout
	if strings.EqualFold(cfg.Output, "stderr") {
		out = os.Stderr
	}
	return NewWithWriter(cfg, version, out)
}

// NewWithWriter is New with an explicit destination; cfg.Output is ignored.
// The console passes the readline stderr here so logs do not tear the
// prompt.
func NewWithWriter(cfg config.LoggingConfig, version string, out io.Writer) *Logger {
	level := new(slog.LevelVar)
	level.Set(parseLevel(cfg.Level))

	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler = slog.NewJSONHandler(out, opts)
	if strings.EqualFold(cfg.Format, "text") {
		h = slog.NewTextHandler(out, opts)
	}
	h = h.WithAttrs([]slog.Attr{
		slog.String("service", ServiceName),
		slog.String("version", version),
	})
	return &Logger{Logger: slog.New(h), level: level}
}

// parseLevel maps a configured name to a level; unknown names mean info.
func parseLevel(name string) slog.Level {
	level, ok := levels[strings.ToLower(name)]
	if !ok {
		return slog.LevelInfo
	}
	return level
}

var levels = map[string]slog.Level{
	"debug":   slog.LevelDebug,
	"info":    slog.LevelInfo,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
}

// SetLevel changes the minimum level at runtime.
func (l *Logger) SetLevel(name string) error {
	level, ok := levels[strings.ToLower(name)]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownLevel, name)
	}
	l.level.Set(level)
	return nil
}

// Level reports the current minimum level.
func (l *Logger) Level() slog.Level {
	return l.level.Level()
}

// With returns a Logger that adds args to every entry.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...), level: l.level}
}

// Component is With("component", name).
func (l *Logger) Component(name string) *Logger {
	return l.With("component", name)
}

// Node tags entries with the Z-Wave node they concern.
//
//	log.Node(0xc0ffee01, 5).Warn("node dead") // home_id=0xc0ffee01 node_id=5
func (l *Logger) Node(homeID uint32, nodeID uint8) *Logger {
	return l.With("home_id", fmt.Sprintf("0x%08x", homeID), "node_id", nodeID)
}

// Default is the logger used before configuration is loaded: JSON to
// stdout at info.
func Default() *Logger {
	return New(config.LoggingConfig{Level: "info", Format: "json", Output: "stdout"}, "dev")
}

// Discard returns a logger that drops everything. Intended for tests.
func Discard() *Logger {
	return NewWithWriter(config.LoggingConfig{Level: "error"}, "test", io.Discard)
}
