// Package logger provides leveled, structured logging for secpatch on top of logrus.
// It is the side channel for diagnostics: per-fragment failures and suppressed
// detector errors are reported here, never by the patching core itself.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

// Level represents the logging level
type Level int

// LoggerInterface defines the logging interface
type LoggerInterface interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
}

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a configuration string into a Level, defaulting to info
func ParseLevel(s string) Level {
	switch s {
	case "debug":
		return LevelDebug
	case "warn":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l Level) logrusLevel() logrus.Level {
	switch l {
	case LevelDebug:
		return logrus.DebugLevel
	case LevelWarn:
		return logrus.WarnLevel
	case LevelError:
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// Logger is a leveled logger writing through a shared logrus instance
type Logger struct {
	level     Level
	prefix    string
	debugMode bool
	fields    logrus.Fields
	base      *logrus.Logger
}

// Config holds logger configuration
type Config struct {
	Level     Level
	LogFile   string
	Debug     bool
	Timestamp bool
	Prefix    string
	// Format is "text" or "json"
	Format string
}

// New creates a new logger with the given configuration
func New(config Config) (*Logger, error) {
	writers := []io.Writer{}

	// Don't write to the terminal during tests
	if !testing.Testing() {
		writers = append(writers, os.Stderr)
	}

	if config.LogFile != "" {
		logDir := filepath.Dir(config.LogFile)
		if err := os.MkdirAll(logDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create log directory %s: %w", logDir, err)
		}

		file, err := os.OpenFile(config.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %w", config.LogFile, err)
		}

		writers = append(writers, file)
	}

	return newWithWriters(config, writers...), nil
}

func newWithWriters(config Config, writers ...io.Writer) *Logger {
	base := logrus.New()
	base.SetOutput(io.MultiWriter(writers...))
	// Filtering happens in Logger.log so prefixed copies can carry their own level.
	base.SetLevel(logrus.DebugLevel)

	if config.Format == "json" {
		base.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat:  time.RFC3339,
			DisableTimestamp: !config.Timestamp,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime: "time",
				logrus.FieldKeyMsg:  "msg",
			},
		})
	} else {
		base.SetFormatter(&logrus.TextFormatter{
			DisableColors:    true,
			DisableTimestamp: !config.Timestamp,
			FullTimestamp:    true,
			TimestampFormat:  "2006-01-02 15:04:05",
		})
	}

	level := config.Level
	if config.Debug {
		level = LevelDebug
	}

	return &Logger{
		level:     level,
		prefix:    config.Prefix,
		debugMode: config.Debug,
		fields:    logrus.Fields{},
		base:      base,
	}
}

// NewDefault creates a logger with default settings
func NewDefault() *Logger {
	logger, _ := New(Config{ //nolint:errcheck // Default logger creation should not fail with valid config
		Level:     LevelInfo,
		Debug:     false,
		Timestamp: true,
		Prefix:    "secpatch",
	})
	return logger
}

// SetLevel sets the logging level
func (l *Logger) SetLevel(level Level) {
	l.level = level
}

// SetDebug enables or disables debug mode
func (l *Logger) SetDebug(debug bool) {
	l.debugMode = debug
	if debug {
		l.level = LevelDebug
	}
}

func (l *Logger) log(level Level, format string, args ...interface{}) {
	if level < l.level {
		return
	}

	entry := l.base.WithFields(l.fields)
	if l.prefix != "" {
		entry = entry.WithField("component", l.prefix)
	}
	entry.Log(level.logrusLevel(), fmt.Sprintf(format, args...))
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...interface{}) {
	l.log(LevelDebug, format, args...)
}

// Info logs an info message
func (l *Logger) Info(format string, args ...interface{}) {
	l.log(LevelInfo, format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	l.log(LevelWarn, format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.log(LevelError, format, args...)
}

// WithPrefix creates a new logger with an additional prefix
func (l *Logger) WithPrefix(prefix string) *Logger {
	newLogger := *l
	if l.prefix != "" {
		newLogger.prefix = l.prefix + ":" + prefix
	} else {
		newLogger.prefix = prefix
	}
	return &newLogger
}

// WithField creates a new logger that attaches key=value to every entry
func (l *Logger) WithField(key string, value interface{}) *Logger {
	newLogger := *l
	newLogger.fields = make(logrus.Fields, len(l.fields)+1)
	for k, v := range l.fields {
		newLogger.fields[k] = v
	}
	newLogger.fields[key] = value
	return &newLogger
}

// Logrus exposes the underlying logrus instance for libraries that want one
func (l *Logger) Logrus() *logrus.Logger {
	return l.base
}

// Global logger instance
var globalLogger = NewDefault()

// Debug logs a debug message using the global logger
func Debug(format string, args ...interface{}) {
	globalLogger.Debug(format, args...)
}

func Info(format string, args ...interface{}) {
	globalLogger.Info(format, args...)
}

func Warn(format string, args ...interface{}) {
	globalLogger.Warn(format, args...)
}

func Error(format string, args ...interface{}) {
	globalLogger.Error(format, args...)
}

func SetLevel(level Level) {
	globalLogger.SetLevel(level)
}

// SetGlobalLogger sets the global logger instance
func SetGlobalLogger(logger *Logger) {
	globalLogger = logger
}

// GetGlobalLogger returns the global logger instance
func GetGlobalLogger() *Logger {
	return globalLogger
}
