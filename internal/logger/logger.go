// Package logger provides logging implementations for drift-guard.
//
// Loggers record operation progress at the step and summary levels. All
// implementations are safe for concurrent use. In server mode they must
// never write to stdout, which carries the protocol stream.
package logger

import (
	"strings"

	"github.com/harrison/driftguard/internal/models"
)

// Log level constants for filtering
const (
	levelTrace int = 0
	levelDebug int = 1
	levelInfo  int = 2
	levelWarn  int = 3
	levelError int = 4
)

// Logger is implemented by every log destination.
type Logger interface {
	LogTrace(message string)
	LogDebug(message string)
	LogInfo(message string)
	LogWarn(message string)
	LogError(message string)

	LogContract(report models.ContractReport)
	LogDrift(evidence models.DriftEvidence)
	LogStepResult(step models.StepResult, total int)
	LogVerifySummary(result models.VerificationResult)
}

// normalizeLogLevel converts a log level string to lowercase and validates it.
// Returns "info" as default for empty or invalid levels.
func normalizeLogLevel(level string) string {
	normalized := strings.ToLower(strings.TrimSpace(level))

	validLevels := map[string]bool{
		"trace": true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if validLevels[normalized] {
		return normalized
	}

	return "info"
}

// logLevelToInt converts a log level string to its numeric value.
func logLevelToInt(level string) int {
	switch level {
	case "trace":
		return levelTrace
	case "debug":
		return levelDebug
	case "info":
		return levelInfo
	case "warn":
		return levelWarn
	case "error":
		return levelError
	default:
		return levelInfo
	}
}

// MultiLogger fans every call out to several loggers.
type MultiLogger struct {
	loggers []Logger
}

// NewMultiLogger combines loggers; nil entries are dropped.
func NewMultiLogger(loggers ...Logger) *MultiLogger {
	m := &MultiLogger{}
	for _, l := range loggers {
		if l != nil {
			m.loggers = append(m.loggers, l)
		}
	}
	return m
}

func (m *MultiLogger) LogTrace(message string) {
	for _, l := range m.loggers {
		l.LogTrace(message)
	}
}

func (m *MultiLogger) LogDebug(message string) {
	for _, l := range m.loggers {
		l.LogDebug(message)
	}
}

func (m *MultiLogger) LogInfo(message string) {
	for _, l := range m.loggers {
		l.LogInfo(message)
	}
}

func (m *MultiLogger) LogWarn(message string) {
	for _, l := range m.loggers {
		l.LogWarn(message)
	}
}

func (m *MultiLogger) LogError(message string) {
	for _, l := range m.loggers {
		l.LogError(message)
	}
}

func (m *MultiLogger) LogContract(report models.ContractReport) {
	for _, l := range m.loggers {
		l.LogContract(report)
	}
}

func (m *MultiLogger) LogDrift(evidence models.DriftEvidence) {
	for _, l := range m.loggers {
		l.LogDrift(evidence)
	}
}

func (m *MultiLogger) LogStepResult(step models.StepResult, total int) {
	for _, l := range m.loggers {
		l.LogStepResult(step, total)
	}
}

func (m *MultiLogger) LogVerifySummary(result models.VerificationResult) {
	for _, l := range m.loggers {
		l.LogVerifySummary(result)
	}
}

// NoOpLogger is a Logger implementation that discards all log messages.
// Useful for testing or when logging is disabled.
type NoOpLogger struct{}

// NewNoOpLogger creates a NoOpLogger instance.
func NewNoOpLogger() *NoOpLogger {
	return &NoOpLogger{}
}

func (n *NoOpLogger) LogTrace(message string)                           {}
func (n *NoOpLogger) LogDebug(message string)                           {}
func (n *NoOpLogger) LogInfo(message string)                            {}
func (n *NoOpLogger) LogWarn(message string)                            {}
func (n *NoOpLogger) LogError(message string)                           {}
func (n *NoOpLogger) LogContract(report models.ContractReport)          {}
func (n *NoOpLogger) LogDrift(evidence models.DriftEvidence)            {}
func (n *NoOpLogger) LogStepResult(step models.StepResult, total int)   {}
func (n *NoOpLogger) LogVerifySummary(result models.VerificationResult) {}
