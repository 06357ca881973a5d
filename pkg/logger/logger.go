// Package logger holds the process-wide logger. Before Init, every helper
// is a no-op so library code can log unconditionally.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures Init.
type Options struct {
	Level      string    // debug, info, warn, error (default info)
	Format     string    // console or json, for the console core
	File       string    // rotated JSON log file; empty disables it
	MaxSizeMB  int       // rotate after this many megabytes
	MaxBackups int       // rotated files to keep
	MaxAgeDays int       // days to keep rotated files
	Compress   bool      // gzip rotated files
	Console    io.Writer // console sink; nil means stderr, io.Discard silences it
}

var (
	globalLogger = zap.NewNop()
	logFile      *lumberjack.Logger
	mu           sync.Mutex
)

// Init initializes the global logger with the specified options.
func Init(opts Options) error {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()

	// Close previous log file if exists
	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}

	console := opts.Console
	if console == nil {
		console = os.Stderr
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var consoleEnc zapcore.Encoder
	if opts.Format == "json" {
		consoleEnc = zapcore.NewJSONEncoder(encCfg)
	} else {
		devCfg := encCfg
		devCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		devCfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
		consoleEnc = zapcore.NewConsoleEncoder(devCfg)
	}

	cores := []zapcore.Core{
		zapcore.NewCore(consoleEnc, zapcore.AddSync(console), level),
	}

	if opts.File != "" {
		logFile = &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			Compress:   opts.Compress,
		}
		// The file always records debug output.
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(logFile), zapcore.DebugLevel))
	}

	globalLogger = zap.New(zapcore.NewTee(cores...))
	return nil
}

// ParseLevel converts a level name to a zap level. Empty means info.
func ParseLevel(s string) (zapcore.Level, error) {
	if strings.TrimSpace(s) == "" {
		return zapcore.InfoLevel, nil
	}
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(s)))); err != nil {
		return level, fmt.Errorf("unknown log level %q", s)
	}
	return level, nil
}

// Close flushes the logger and closes the log file.
func Close() {
	mu.Lock()
	defer mu.Unlock()

	_ = globalLogger.Sync()
	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
	globalLogger = zap.NewNop()
}

// L returns the global zap logger for structured fields.
func L() *zap.Logger {
	mu.Lock()
	defer mu.Unlock()
	return globalLogger
}

// Info logs an info message.
func Info(format string, v ...interface{}) {
	L().Sugar().Infof(format, v...)
}

// Debug logs a debug message.
func Debug(format string, v ...interface{}) {
	L().Sugar().Debugf(format, v...)
}

// Error logs an error message.
func Error(format string, v ...interface{}) {
	L().Sugar().Errorf(format, v...)
}

// Warn logs a warning message.
func Warn(format string, v ...interface{}) {
	L().Sugar().Warnf(format, v...)
}

// GetWriter returns the rotated log file for components that want raw output.
func GetWriter() io.Writer {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		return logFile
	}
	return io.Discard
}
