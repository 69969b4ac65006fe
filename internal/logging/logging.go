// Package logging builds the zap logger used by both binaries.
//
// Two cores are combined:
//   - A console core on stderr with colored levels and no timestamps,
//     meant to double as the user-facing progress feed. Verbosity is
//     raised with repeated -v flags.
//   - A rotated JSON debug file below the config directory, capturing
//     everything regardless of console verbosity.
//
// The TUI disables the console core so log lines cannot corrupt the
// alternate screen; the file core keeps recording.
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configure New.
type Options struct {
	// Verbosity is the repeated -v flag count. 0 shows info and above,
	// 1 adds debug, 2 also annotates entries with their caller.
	Verbosity int

	// FilePath is the rotated debug log file. Empty disables the
	// file core.
	FilePath string

	// Console attaches the stderr core. The TUI runs with this off.
	Console bool
}

// New builds the application logger. It never fails; when no core is
// enabled a no-op logger is returned.
func New(opts Options) *zap.Logger {
	var cores []zapcore.Core

	if opts.Console {
		cores = append(cores, consoleCore(opts.Verbosity))
	}
	if opts.FilePath != "" {
		cores = append(cores, fileCore(opts.FilePath))
	}
	if len(cores) == 0 {
		return zap.NewNop()
	}

	var zapOpts []zap.Option
	if opts.Verbosity >= 2 {
		zapOpts = append(zapOpts, zap.AddCaller())
	}

	return zap.New(zapcore.NewTee(cores...), zapOpts...)
}

// consoleCore writes human readable lines to stderr. Timestamps are
// omitted; the console output is the progress feed, not an audit trail.
func consoleCore(verbosity int) zapcore.Core {
	level := zapcore.InfoLevel
	if verbosity >= 1 {
		level = zapcore.DebugLevel
	}

	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.TimeKey = zapcore.OmitKey
	encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder

	return zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.AddSync(os.Stderr),
		level,
	)
}

// fileCore writes JSON entries to a size-rotated file at debug level.
func fileCore(path string) zapcore.Core {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	writer := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   true,
	}

	return zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(writer),
		zapcore.DebugLevel,
	)
}
