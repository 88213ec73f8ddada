// ============================================================================
// chainfeed - gRPC market data access layer
// ============================================================================
//
// Package:     logging
// Description: Factory functions for creating loggers
// Author:      Mike Stoffels
// Created:     2025-12-06
// License:     MIT
// ============================================================================

package logging

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

var (
	defaultMu  sync.RWMutex
	defaultCfg = LoggerConfig{Level: "info", Format: "json"}

	filesMu sync.Mutex
	files   = map[string]*lumberjack.Logger{}
)

// LoggerConfig holds configuration for creating loggers
type LoggerConfig struct {
	// Service name, attached to every entry as "logger"
	ServiceName string

	// Log level (trace, debug, info, warn, error)
	Level string

	// Output format
	Format string // "json" or "text" (default: json)

	// Optional rotating log file written in addition to Output. Loggers
	// naming the same file share one writer.
	File       string
	MaxSizeMB  int
	MaxBackups int

	// Output defaults to stdout
	Output io.Writer
}

// DefaultLoggerConfig returns a default configuration
func DefaultLoggerConfig(serviceName string) LoggerConfig {
	defaultMu.RLock()
	cfg := defaultCfg
	defaultMu.RUnlock()

	cfg.ServiceName = serviceName
	return cfg
}

// SetDefaults changes the configuration used by New and DefaultLoggerConfig.
// ServiceName is ignored. Loggers created earlier are not affected.
func SetDefaults(cfg LoggerConfig) {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	cfg.ServiceName = ""
	if cfg.Level == "" {
		cfg.Level = "info"
	}
	if cfg.Format == "" {
		cfg.Format = "json"
	}
	defaultCfg = cfg
}

// NewLogger creates a new logger from the given configuration
func NewLogger(cfg LoggerConfig) *Logger {
	base := logrus.New()
	base.SetLevel(parseLevel(cfg.Level))

	var output io.Writer = os.Stdout
	if cfg.Output != nil {
		output = cfg.Output
	}
	if cfg.File != "" {
		output = io.MultiWriter(output, rotatingFile(cfg))
	}
	base.SetOutput(output)

	if cfg.Format == "text" {
		base.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339Nano,
		})
	} else {
		base.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	}

	return &Logger{
		entry: base.WithField("logger", cfg.ServiceName),
		name:  cfg.ServiceName,
	}
}

// NewSimpleLogger creates a logger with the default configuration
func NewSimpleLogger(serviceName string) *Logger {
	return NewLogger(DefaultLoggerConfig(serviceName))
}

// parseLevel converts a string level to a logrus level
func parseLevel(level string) logrus.Level {
	switch strings.ToLower(level) {
	case "trace":
		return logrus.TraceLevel
	case "debug":
		return logrus.DebugLevel
	case "info":
		return logrus.InfoLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	default:
		return logrus.InfoLevel
	}
}

// rotatingFile returns the writer for cfg.File, creating it on first use.
// Every logger writing to a path shares one lumberjack.Logger, which must
// be the only writer of its file for rotation to work. Size and backup
// settings of the first caller win.
func rotatingFile(cfg LoggerConfig) *lumberjack.Logger {
	path := filepath.Clean(cfg.File)
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}

	filesMu.Lock()
	defer filesMu.Unlock()

	if w, ok := files[path]; ok {
		return w
	}
	w := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    orDefault(cfg.MaxSizeMB, 50),
		MaxBackups: orDefault(cfg.MaxBackups, 5),
		Compress:   true,
	}
	files[path] = w
	return w
}

// CloseFiles closes all log files. Loggers stay usable; the next write
// reopens the file.
func CloseFiles() error {
	filesMu.Lock()
	defer filesMu.Unlock()

	var errs []error
	for _, w := range files {
		errs = append(errs, w.Close())
	}
	return errors.Join(errs...)
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// Logger is a named key/value logger
type Logger struct {
	entry *logrus.Entry
	name  string
}

// New creates a named logger using the package defaults
func New(name string) *Logger {
	return NewSimpleLogger(name)
}

// Name returns the logger name
func (l *Logger) Name() string {
	return l.name
}

// With returns a logger that adds the given key-value pairs to every entry
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{
		entry: l.entry.WithFields(toFields(keysAndValues...)),
		name:  l.name,
	}
}

// Debug logs a debug message with key-value pairs
func (l *Logger) Debug(msg string, keysAndValues ...interface{}) {
	l.entry.WithFields(toFields(keysAndValues...)).Debug(msg)
}

// Info logs an info message with key-value pairs
func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	l.entry.WithFields(toFields(keysAndValues...)).Info(msg)
}

// Warn logs a warning message with key-value pairs
func (l *Logger) Warn(msg string, keysAndValues ...interface{}) {
	l.entry.WithFields(toFields(keysAndValues...)).Warn(msg)
}

// Error logs an error message with key-value pairs
func (l *Logger) Error(msg string, keysAndValues ...interface{}) {
	l.entry.WithFields(toFields(keysAndValues...)).Error(msg)
}

// toFields converts key-value pairs to logrus fields
func toFields(keysAndValues ...interface{}) logrus.Fields {
	fields := make(logrus.Fields, len(keysAndValues)/2)
	for i := 0; i < len(keysAndValues)-1; i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		if err, isErr := keysAndValues[i+1].(error); isErr {
			fields[key] = err.Error()
			continue
		}
		fields[key] = keysAndValues[i+1]
	}
	return fields
}
