package logging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/kyleking/rockset-org-metadata/internal/config"
)

const (
	// File permissions for log directories and files
	logDirPerm  = 0755
	logFilePerm = 0644
)

// Logger provides structured logging capabilities on top of zap
type Logger struct {
	sugar *zap.SugaredLogger
	level zapcore.Level
	file  *os.File
}

var (
	globalMu     sync.RWMutex
	globalLogger *Logger
	nopLogger    = &Logger{sugar: zap.NewNop().Sugar(), level: zapcore.FatalLevel}
)

// InitializeLogger replaces the global logger with one built from the configuration
func InitializeLogger(cfg config.LoggingConfig) error {
	logger, err := NewLogger(cfg)
	if err != nil {
		return err
	}

	SetLogger(logger)

	return nil
}

// SetLogger replaces the global logger, closing the previous one
func SetLogger(logger *Logger) {
	globalMu.Lock()
	previous := globalLogger
	globalLogger = logger
	globalMu.Unlock()

	if previous != nil && previous != logger {
		_ = previous.Close()
	}
}

// NewLogger creates a new logger with the given configuration
func NewLogger(cfg config.LoggingConfig) (*Logger, error) {
	switch strings.ToLower(cfg.Output) {
	case "stdout":
		return NewLoggerWithWriter(cfg, os.Stdout), nil
	case "stderr", "":
		return NewLoggerWithWriter(cfg, os.Stderr), nil
	case "file":
		if cfg.File == "" {
			return nil, errors.New("log file path is required when output is 'file'")
		}

		if err := os.MkdirAll(filepath.Dir(cfg.File), logDirPerm); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}

		file, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePerm)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}

		logger := NewLoggerWithWriter(cfg, file)
		logger.file = file

		return logger, nil
	default:
		return nil, fmt.Errorf("invalid log output: %s", cfg.Output)
	}
}

// NewLoggerWithWriter creates a logger writing to w, ignoring cfg.Output
func NewLoggerWithWriter(cfg config.LoggingConfig, w io.Writer) *Logger {
	level := parseLogLevel(cfg.Level)

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:          "timestamp",
		LevelKey:         "level",
		MessageKey:       "message",
		CallerKey:        "caller",
		EncodeTime:       zapcore.RFC3339TimeEncoder,
		EncodeLevel:      zapcore.CapitalLevelEncoder,
		EncodeCaller:     zapcore.ShortCallerEncoder,
		EncodeDuration:   zapcore.StringDurationEncoder,
		ConsoleSeparator: " ",
	}

	var encoder zapcore.Encoder
	if strings.ToLower(cfg.Format) == "json" {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	} else {
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(zapcore.AddSync(w)), level)

	var opts []zap.Option
	if level == zapcore.DebugLevel {
		opts = append(opts, zap.AddCaller(), zap.AddCallerSkip(1))
	}

	return &Logger{
		sugar: zap.New(core, opts...).Sugar(),
		level: level,
	}
}

// parseLogLevel parses a string log level into a zap level
func parseLogLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Enabled reports whether messages at the given level are written
func (l *Logger) Enabled(level zapcore.Level) bool {
	return level >= l.level
}

// WithField adds a field to the logger context
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{
		sugar: l.sugar.With(key, value),
		level: l.level,
		file:  l.file,
	}
}

// WithFields adds multiple fields to the logger context, in key order
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	args := make([]interface{}, 0, len(fields)*2)
	for _, k := range keys {
		args = append(args, k, fields[k])
	}

	return &Logger{
		sugar: l.sugar.With(args...),
		level: l.level,
		file:  l.file,
	}
}

// WithError adds an error to the logger context
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}

	return l.WithField("error", err.Error())
}

// Debug logs a debug message
func (l *Logger) Debug(message string) {
	l.sugar.Debug(message)
}

// Debugf logs a formatted debug message
func (l *Logger) Debugf(format string, args ...interface{}) {
	l.sugar.Debugf(format, args...)
}

// Info logs an info message
func (l *Logger) Info(message string) {
	l.sugar.Info(message)
}

// Infof logs a formatted info message
func (l *Logger) Infof(format string, args ...interface{}) {
	l.sugar.Infof(format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(message string) {
	l.sugar.Warn(message)
}

// Warnf logs a formatted warning message
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.sugar.Warnf(format, args...)
}

// Error logs an error message
func (l *Logger) Error(message string) {
	l.sugar.Error(message)
}

// Errorf logs a formatted error message
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.sugar.Errorf(format, args...)
}

// ErrorWithErr logs an error message with an associated error
func (l *Logger) ErrorWithErr(message string, err error) {
	if err == nil {
		l.sugar.Error(message)
		return
	}

	l.sugar.Errorw(message, "error", err.Error())
}

// Writer returns an io.Writer that logs each written line at debug level
func (l *Logger) Writer() io.Writer {
	return debugWriter{l}
}

type debugWriter struct {
	logger *Logger
}

func (w debugWriter) Write(p []byte) (int, error) {
	for _, line := range strings.Split(strings.TrimRight(string(p), "\n"), "\n") {
		if line != "" {
			w.logger.sugar.Debug(line)
		}
	}

	return len(p), nil
}

// Close flushes buffered entries and closes any associated file
func (l *Logger) Close() error {
	_ = l.sugar.Sync()

	if l.file != nil {
		return l.file.Close()
	}

	return nil
}

// current returns the global logger, or a no-op logger before initialization
func current() *Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()

	if globalLogger == nil {
		return nopLogger
	}

	return globalLogger
}

// Debug logs a debug message using the global logger
func Debug(message string) {
	current().Debug(message)
}

// Debugf logs a formatted debug message using the global logger
func Debugf(format string, args ...interface{}) {
	current().Debugf(format, args...)
}

// Info logs an info message using the global logger
func Info(message string) {
	current().Info(message)
}

// Infof logs a formatted info message using the global logger
func Infof(format string, args ...interface{}) {
	current().Infof(format, args...)
}

// Warn logs a warning message using the global logger
func Warn(message string) {
	current().Warn(message)
}

// Warnf logs a formatted warning message using the global logger
func Warnf(format string, args ...interface{}) {
	current().Warnf(format, args...)
}

// Error logs an error message using the global logger
func Error(message string) {
	current().Error(message)
}

// Errorf logs a formatted error message using the global logger
func Errorf(format string, args ...interface{}) {
	current().Errorf(format, args...)
}

// ErrorWithErr logs an error message with an associated error using the global logger
func ErrorWithErr(message string, err error) {
	current().ErrorWithErr(message, err)
}

// WithField adds a field to the global logger context
func WithField(key string, value interface{}) *Logger {
	return current().WithField(key, value)
}

// WithFields adds multiple fields to the global logger context
func WithFields(fields map[string]interface{}) *Logger {
	return current().WithFields(fields)
}

// WithError adds an error to the global logger context
func WithError(err error) *Logger {
	return current().WithError(err)
}

// GetLogger returns the global logger instance, never nil
func GetLogger() *Logger {
	return current()
}

// SetupFallbackLogger sets up a basic logger for cases where configuration fails
func SetupFallbackLogger() {
	SetLogger(NewLoggerWithWriter(config.LoggingConfig{Level: "info", Format: "text"}, os.Stderr))
}

// LoggerMiddleware provides a way to wrap functions with logging
func LoggerMiddleware(operation string, fn func() error) error {
	logger := WithField("operation", operation)
	logger.Debug("Starting operation")

	start := time.Now()
	err := fn()
	duration := time.Since(start)

	if err != nil {
		logger.WithField("duration", duration).ErrorWithErr("Operation failed", err)
	} else {
		logger.WithField("duration", duration).Debug("Operation completed successfully")
	}

	return err
}
