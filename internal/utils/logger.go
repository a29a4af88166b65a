// internal/utils/logger.go
package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
)

// Logger wraps a logrus logger behind the fields-map API used across the service.
type Logger struct {
	mu   sync.Mutex
	base *logrus.Logger
	file *os.File
}

var (
	globalLogger *Logger
	loggerOnce   sync.Once
)

// GetLogger returns the global logger instance
func GetLogger() *Logger {
	loggerOnce.Do(func() {
		base := logrus.New()
		base.SetOutput(os.Stdout)
		base.SetLevel(logrus.InfoLevel)
		base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		globalLogger = &Logger{base: base}
	})
	return globalLogger
}

// InitLogger initializes the logger with a log file; output also goes to stdout.
func InitLogger(logFile string) error {
	logger := GetLogger()

	logDir := filepath.Dir(logFile)
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	logger.mu.Lock()
	defer logger.mu.Unlock()

	if logger.file != nil {
		logger.file.Close()
	}

	logger.file = file
	logger.base.SetOutput(io.MultiWriter(os.Stdout, file))
	return nil
}

// SetLogLevel parses a level name ("debug", "info", ...); unknown names fall back to info.
func (l *Logger) SetLogLevel(name string) {
	level, err := logrus.ParseLevel(name)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.base.SetLevel(level)
}

// SetOutput redirects log output, used by tests to silence or capture logs.
func (l *Logger) SetOutput(w io.Writer) {
	l.base.SetOutput(w)
}

// Close releases the log file if one is open.
func (l *Logger) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		l.file.Close()
		l.file = nil
		l.base.SetOutput(os.Stdout)
	}
}

// Base exposes the underlying logrus logger for middleware.
func (l *Logger) Base() *logrus.Logger {
	return l.base
}

func (l *Logger) entry(fields map[string]interface{}) *logrus.Entry {
	if len(fields) == 0 {
		return logrus.NewEntry(l.base)
	}
	return l.base.WithFields(logrus.Fields(fields))
}

// Debug logs a debug message
func (l *Logger) Debug(message string, fields map[string]interface{}) {
	l.entry(fields).Debug(message)
}

// Info logs an info message
func (l *Logger) Info(message string, fields map[string]interface{}) {
	l.entry(fields).Info(message)
}

// Warn logs a warning message
func (l *Logger) Warn(message string, fields map[string]interface{}) {
	l.entry(fields).Warn(message)
}

// Error logs an error message
func (l *Logger) Error(message string, fields map[string]interface{}) {
	l.entry(fields).Error(message)
}

// Fatal logs a fatal message and exits
func (l *Logger) Fatal(message string, fields map[string]interface{}) {
	l.entry(fields).Fatal(message)
}

// Infof logs a formatted info message
func (l *Logger) Infof(format string, args ...interface{}) {
	l.base.Infof(format, args...)
}

// Warnf logs a formatted warning message
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.base.Warnf(format, args...)
}

// Errorf logs a formatted error message
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.base.Errorf(format, args...)
}

// Fatalf logs a formatted fatal message and exits
func (l *Logger) Fatalf(format string, args ...interface{}) {
	l.base.Fatalf(format, args...)
}
