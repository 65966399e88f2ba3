// Package logging builds the logrus loggers used across the report engine.
package logging

import (
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Config configures logger construction
type Config struct {
	Level       string // "trace", "debug", "info", "warn", "error"
	Format      string // "json", "text"
	PrivacyMode bool   // redact patient identifying fields
	Output      io.Writer
}

// Redacted replaces scrubbed field values
const Redacted = "[REDACTED]"

// sensitivePatterns are matched against lower-cased field keys.
var sensitivePatterns = []string{
	"patient", "paciente", "resp1", "resp2", "birth", "nasc",
	"psicologo", "psychologist", "crp",
}

// New creates a configured logrus logger
func New(config Config) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(config.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if config.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			TimestampFormat: time.RFC3339,
			FullTimestamp:   true,
		})
	}

	if config.Output != nil {
		logger.SetOutput(config.Output)
	}

	if config.PrivacyMode {
		logger.AddHook(&PrivacyHook{})
	}

	return logger
}

// Discard returns a logger that drops everything; used by tests and library defaults.
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

// PrivacyHook redacts identifying values before an entry is formatted
type PrivacyHook struct{}

// Levels implements logrus.Hook
func (h *PrivacyHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

// Fire implements logrus.Hook
func (h *PrivacyHook) Fire(entry *logrus.Entry) error {
	for key, value := range entry.Data {
		entry.Data[key] = SanitizeField(key, value)
	}
	return nil
}

// SanitizeField redacts values whose key looks like personal data and truncates long strings
func SanitizeField(key string, value interface{}) interface{} {
	lowerKey := strings.ToLower(key)
	for _, pattern := range sensitivePatterns {
		if strings.Contains(lowerKey, pattern) {
			return Redacted
		}
	}

	if str, ok := value.(string); ok && len(str) > 1000 {
		return str[:1000] + "... [TRUNCATED]"
	}

	return value
}
