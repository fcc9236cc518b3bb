// Package logger configures logrus for the openmind-infra CLI and carries the
// logger through context.Context.
package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Context key for storing logger
type contextKey string

const loggerContextKey contextKey = "openmind-infra-logger"

// LogLevel represents supported logging levels
type LogLevel string

const (
	// LogLevelDebug enables debug, info, warning, and error messages
	LogLevelDebug LogLevel = "debug"
	// LogLevelInfo enables info, warning, and error messages
	LogLevelInfo LogLevel = "info"
	// LogLevelWarning enables warning and error messages
	LogLevelWarning LogLevel = "warning"
	// LogLevelError enables only error messages
	LogLevelError LogLevel = "error"
)

// ValidLogLevels contains all supported log levels
var ValidLogLevels = map[string]LogLevel{
	"debug":   LogLevelDebug,
	"info":    LogLevelInfo,
	"warning": LogLevelWarning,
	"error":   LogLevelError,
}

// ValidateLogLevel validates if the provided log level is supported
func ValidateLogLevel(level string) error {
	normalizedLevel := strings.ToLower(strings.TrimSpace(level))
	if _, valid := ValidLogLevels[normalizedLevel]; !valid {
		return fmt.Errorf("invalid log level '%s'. Valid levels are: debug, info, warning, error", level)
	}
	return nil
}

// ParseLogLevel converts string log level to logrus.Level with validation
func ParseLogLevel(level string) (logrus.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return logrus.DebugLevel, nil
	case "info":
		return logrus.InfoLevel, nil
	case "warning":
		return logrus.WarnLevel, nil
	case "error":
		return logrus.ErrorLevel, nil
	default:
		return logrus.InfoLevel, fmt.Errorf("invalid log level '%s'. Valid levels are: debug, info, warning, error", level)
	}
}

// New creates a logger writing to out at the given level.
// Synthesized templates go to stdout, so CLI logs are written to stderr.
func New(level string, out io.Writer) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetOutput(out)

	logLevel, err := ParseLogLevel(level)
	logger.SetLevel(logLevel)

	logger.SetFormatter(&logrus.TextFormatter{
		TimestampFormat: "2006-01-02 15:04:05",
		FullTimestamp:   true,
	})

	return logger, err
}

// SetupLogger creates a stderr logger with the specified level and stores it in the context.
// An invalid level falls back to info with a warning.
func SetupLogger(ctx context.Context, level string) context.Context {
	logger, err := New(level, os.Stderr)
	if err != nil {
		logger.Warnf("%v. Using 'info' level as default.", err)
	}
	return WithLogger(ctx, logger)
}

// WithLogger returns a context carrying logger.
func WithLogger(ctx context.Context, logger *logrus.Logger) context.Context {
	return context.WithValue(ctx, loggerContextKey, logger)
}

// GetLoggerFromContext retrieves the logger from context
func GetLoggerFromContext(ctx context.Context) *logrus.Logger {
	if logger, ok := ctx.Value(loggerContextKey).(*logrus.Logger); ok {
		return logger
	}
	// Fallback to a discarding logger if not found in context
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
