// Package logging builds the zap loggers used by the runner. The root core
// always runs at debug level; the Factory narrows it to the configured level
// by default and to a test's own level when the test asks for one.
package logging

import (
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options configures New.
type Options struct {
	// Level is the default level name (debug, info, warn, error).
	Level string
	// NoColor disables ANSI level colors.
	NoColor bool
	// Output receives log lines; stderr when nil.
	Output zapcore.WriteSyncer
}

// Factory hands out loggers derived from one debug-capable root.
type Factory struct {
	root  *zap.Logger
	level zapcore.Level
	nop   bool
}

// New builds a console logger in the style of zap's development config.
func New(opts Options) (*Factory, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout(time.TimeOnly)
	encCfg.EncodeCaller = nil
	encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	if opts.NoColor {
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	}

	out := opts.Output
	if out == nil {
		out = zapcore.Lock(os.Stderr)
	}

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), out, zapcore.DebugLevel)
	return NewWithCore(core, level), nil
}

// NewWithCore wraps an existing core. The core should accept debug entries
// so per-test levels can widen output.
func NewWithCore(core zapcore.Core, level zapcore.Level) *Factory {
	return &Factory{root: zap.New(core), level: level}
}

// Nop returns a Factory that discards everything.
func Nop() *Factory {
	return &Factory{root: zap.NewNop(), level: zapcore.InfoLevel, nop: true}
}

// Level returns the configured default level.
func (f *Factory) Level() zapcore.Level { return f.level }

// Logger returns the root logger filtered to the default level.
func (f *Factory) Logger() *zap.Logger {
	if f.nop {
		return f.root
	}
	return f.root.WithOptions(zap.IncreaseLevel(f.level))
}

// ForTest returns a logger for one test. level overrides the default when it
// names a known level; empty or unknown names keep the default.
func (f *Factory) ForTest(name, level string) *zap.Logger {
	if f.nop {
		return f.root
	}
	lvl := f.level
	if level != "" {
		if parsed, err := ParseLevel(level); err == nil {
			lvl = parsed
		}
	}
	return f.root.WithOptions(zap.IncreaseLevel(lvl)).With(zap.String("test", name))
}

// Sync flushes buffered entries.
func (f *Factory) Sync() error {
	return f.root.Sync()
}

// ParseLevel maps a case-insensitive level name to a zap level. Empty means
// info.
func ParseLevel(s string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return zapcore.InfoLevel, nil
	case "debug":
		return zapcore.DebugLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", s)
	}
}
