package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/harrison/driftguard/internal/models"
)

// ConsoleLogger logs progress to a writer with timestamps and thread safety.
// All output is prefixed with [HH:MM:SS] timestamps.
// It supports log level filtering to control message verbosity.
// Color output is enabled only when the writer is a terminal.
type ConsoleLogger struct {
	writer      io.Writer
	logLevel    string
	mutex       sync.Mutex
	colorOutput bool
}

// NewConsoleLogger creates a ConsoleLogger that writes to the provided io.Writer.
// If writer is nil, messages are silently discarded.
// Valid levels: trace, debug, info, warn, error (case-insensitive).
// If logLevel is empty or invalid, defaults to "info".
func NewConsoleLogger(writer io.Writer, logLevel string) *ConsoleLogger {
	return &ConsoleLogger{
		writer:      writer,
		logLevel:    normalizeLogLevel(logLevel),
		mutex:       sync.Mutex{},
		colorOutput: isTerminal(writer),
	}
}

// isTerminal checks if the writer is a terminal that supports colors.
// NO_COLOR always wins.
func isTerminal(w io.Writer) bool {
	if w == nil || os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// shouldLog checks if a message at the given level should be logged.
func (cl *ConsoleLogger) shouldLog(messageLevel string) bool {
	return logLevelToInt(messageLevel) >= logLevelToInt(cl.logLevel)
}

// LogTrace logs a trace-level message (most verbose).
func (cl *ConsoleLogger) LogTrace(message string) {
	cl.logWithLevel("TRACE", message)
}

// LogDebug logs a debug-level message.
func (cl *ConsoleLogger) LogDebug(message string) {
	cl.logWithLevel("DEBUG", message)
}

// LogInfo logs an info-level message.
func (cl *ConsoleLogger) LogInfo(message string) {
	cl.logWithLevel("INFO", message)
}

// LogWarn logs a warning-level message.
func (cl *ConsoleLogger) LogWarn(message string) {
	cl.logWithLevel("WARN", message)
}

// LogError logs an error-level message.
func (cl *ConsoleLogger) LogError(message string) {
	cl.logWithLevel("ERROR", message)
}

// logWithLevel is a helper that logs a message at the specified level if filtering allows it.
func (cl *ConsoleLogger) logWithLevel(level string, message string) {
	if cl.writer == nil {
		return
	}
	if !cl.shouldLog(strings.ToLower(level)) {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	ts := timestamp()
	var formatted string
	if cl.colorOutput {
		formatted = cl.formatWithColor(ts, level, message)
	} else {
		formatted = fmt.Sprintf("[%s] [%s] %s\n", ts, level, message)
	}

	cl.writer.Write([]byte(formatted))
}

// formatWithColor formats a log message with ANSI color codes.
func (cl *ConsoleLogger) formatWithColor(ts, level, message string) string {
	var coloredLevel string

	switch strings.ToUpper(level) {
	case "TRACE":
		coloredLevel = paint(color.FgHiBlack, level)
	case "DEBUG":
		coloredLevel = paint(color.FgCyan, level)
	case "INFO":
		coloredLevel = paint(color.FgBlue, level)
	case "WARN":
		coloredLevel = paint(color.FgYellow, level)
	case "ERROR":
		coloredLevel = paint(color.FgRed, level)
	default:
		coloredLevel = level
	}

	return fmt.Sprintf("[%s] [%s] %s\n", ts, coloredLevel, message)
}

// LogContract logs a contract report: INFO when satisfied, WARN otherwise.
func (cl *ConsoleLogger) LogContract(report models.ContractReport) {
	if report.OK {
		cl.LogInfo(fmt.Sprintf("Contract satisfied: %d/%d required files present", len(report.Present), len(report.RequiredFiles)))
		return
	}
	cl.LogWarn(fmt.Sprintf("Contract violated: missing %s", strings.Join(report.Missing, ", ")))
}

// LogDrift logs a drift check outcome.
func (cl *ConsoleLogger) LogDrift(evidence models.DriftEvidence) {
	if !evidence.MarkerIsStale && evidence.OK {
		cl.LogInfo(fmt.Sprintf("No drift: %s is current", evidence.DocFreshnessMarkerPath))
		return
	}
	cl.LogWarn(formatDriftLine(evidence))
}

// LogStepResult logs one verification step.
// Format: "[HH:MM:SS] [INFO] [2/3] PASS `go test ./...` (1.2s)"
func (cl *ConsoleLogger) LogStepResult(step models.StepResult, total int) {
	if cl.writer == nil || !cl.shouldLog("info") {
		return
	}

	status := stepLabel(step)
	if cl.colorOutput {
		switch step.Status {
		case models.StepPassed:
			status = paint(color.FgGreen, status)
		case models.StepSkipped:
			status = paint(color.FgHiBlack, status)
		default:
			status = paint(color.FgRed, status)
		}
	}

	cl.LogInfo(fmt.Sprintf("[%d/%d] %s `%s` (%s)", step.Index+1, total, status, step.Command,
		formatDuration(time.Duration(step.DurationMs)*time.Millisecond)))
}

// LogVerifySummary logs the aggregate result of a verification run.
func (cl *ConsoleLogger) LogVerifySummary(result models.VerificationResult) {
	if cl.writer == nil || !cl.shouldLog("info") {
		return
	}

	line := formatSummaryLine(result)
	if cl.colorOutput {
		if result.OverallOK {
			line = paint(color.FgGreen, line)
		} else {
			line = paint(color.FgRed, line)
		}
	}
	cl.LogInfo(line)
}

// paint colors s regardless of whether stdout is a terminal; callers only
// use it after isTerminal said yes for their own writer.
func paint(attr color.Attribute, s string) string {
	c := color.New(attr)
	c.EnableColor()
	return c.Sprint(s)
}

// timestamp returns the current time formatted as "15:04:05" (HH:MM:SS).
func timestamp() string {
	return time.Now().Format("15:04:05")
}
