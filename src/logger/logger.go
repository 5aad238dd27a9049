package logger

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Logger defines the interface for logging throughout the application.
// Different implementations can be used for different contexts (console, silent, tests).
type Logger interface {
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Debug(msg string, args ...interface{})
}

// ConsoleLogger writes human-readable logs to stderr through logrus.
// Used for normal operation and debugging.
type ConsoleLogger struct {
	log *logrus.Logger
}

// NewConsoleLogger returns a logger writing text lines to stderr at info level.
func NewConsoleLogger() *ConsoleLogger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.InfoLevel)
	l.Formatter = &logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
	}
	return &ConsoleLogger{log: l}
}

// NewLogrusLogger wraps an existing logrus logger.
func NewLogrusLogger(l *logrus.Logger) *ConsoleLogger {
	return &ConsoleLogger{log: l}
}

// SetLevel changes the minimum level, e.g. "debug", "info", "warn".
func (c *ConsoleLogger) SetLevel(level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	c.log.SetLevel(lvl)
	return nil
}

// SetOutput redirects log output.
func (c *ConsoleLogger) SetOutput(w io.Writer) {
	c.log.SetOutput(w)
}

func (c *ConsoleLogger) Info(msg string, args ...interface{}) {
	c.log.Infof(msg, args...)
}

func (c *ConsoleLogger) Warn(msg string, args ...interface{}) {
	c.log.Warnf(msg, args...)
}

func (c *ConsoleLogger) Error(msg string, args ...interface{}) {
	c.log.Errorf(msg, args...)
}

func (c *ConsoleLogger) Debug(msg string, args ...interface{}) {
	c.log.Debugf(msg, args...)
}

// SilentLogger discards all log messages.
// Used when running in TUI or MCP mode to keep stdout clean.
type SilentLogger struct{}

func NewSilentLogger() *SilentLogger {
	return &SilentLogger{}
}

func (s *SilentLogger) Info(msg string, args ...interface{})  {}
func (s *SilentLogger) Warn(msg string, args ...interface{})  {}
func (s *SilentLogger) Error(msg string, args ...interface{}) {}
func (s *SilentLogger) Debug(msg string, args ...interface{}) {}
