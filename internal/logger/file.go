package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/harrison/driftguard/internal/models"
)

// FileLogger logs to a timestamped per-process file in a log directory and
// maintains a latest.log symlink pointing to the most recent one.
// It is thread-safe and supports log level filtering.
type FileLogger struct {
	logDir   string
	runLog   *os.File
	runFile  string
	logLevel string
	mu       sync.Mutex
}

// NewFileLoggerWithDirAndLevel creates a new FileLogger with a custom log directory and log level.
func NewFileLoggerWithDirAndLevel(logDir string, logLevel string) (*FileLogger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	// Generate timestamped filename: driftguard-YYYYMMDD-HHMMSS-<pid>.log
	ts := time.Now().Format("20060102-150405")
	runFile := filepath.Join(logDir, fmt.Sprintf("driftguard-%s-%d.log", ts, os.Getpid()))

	file, err := os.OpenFile(runFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create run log file: %w", err)
	}

	symlinkPath := filepath.Join(logDir, "latest.log")
	if _, err := os.Lstat(symlinkPath); err == nil {
		if err := os.Remove(symlinkPath); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to remove old symlink: %w", err)
		}
	}
	if err := os.Symlink(filepath.Base(runFile), symlinkPath); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to create symlink: %w", err)
	}

	logger := &FileLogger{
		logDir:   logDir,
		runLog:   file,
		runFile:  runFile,
		logLevel: normalizeLogLevel(logLevel),
	}

	logger.writeRunLog("=== drift-guard log ===\n")
	logger.writeRunLog(fmt.Sprintf("Started at: %s\n\n", time.Now().Format(time.RFC3339)))

	return logger, nil
}

// Path returns the file being written.
func (fl *FileLogger) Path() string {
	return fl.runFile
}

// shouldLog checks if a message at the given level should be logged.
func (fl *FileLogger) shouldLog(messageLevel string) bool {
	return logLevelToInt(messageLevel) >= logLevelToInt(fl.logLevel)
}

func (fl *FileLogger) LogTrace(message string) {
	fl.logWithLevel("TRACE", message)
}

func (fl *FileLogger) LogDebug(message string) {
	fl.logWithLevel("DEBUG", message)
}

func (fl *FileLogger) LogInfo(message string) {
	fl.logWithLevel("INFO", message)
}

func (fl *FileLogger) LogWarn(message string) {
	fl.logWithLevel("WARN", message)
}

func (fl *FileLogger) LogError(message string) {
	fl.logWithLevel("ERROR", message)
}

func (fl *FileLogger) logWithLevel(level string, message string) {
	if !fl.shouldLog(strings.ToLower(level)) {
		return
	}
	fl.writeRunLog(fmt.Sprintf("[%s] [%s] %s\n", timestamp(), level, message))
}

// LogContract records the full contract report, one line per missing file.
func (fl *FileLogger) LogContract(report models.ContractReport) {
	if !fl.shouldLog("info") {
		return
	}
	fl.logWithLevel("INFO", fmt.Sprintf("contract (%s): ok=%v present=%d missing=%d",
		report.Source, report.OK, len(report.Present), len(report.Missing)))
	for _, m := range report.Missing {
		fl.logWithLevel("INFO", "  missing: "+m)
	}
}

// LogDrift records the drift determination including its reasoning.
func (fl *FileLogger) LogDrift(evidence models.DriftEvidence) {
	if !fl.shouldLog("info") {
		return
	}
	fl.logWithLevel("INFO", fmt.Sprintf("drift: ok=%v stale=%v changed=%d signals=%s",
		evidence.OK, evidence.MarkerIsStale, len(evidence.ChangedPaths), strings.Join(evidence.Signals, ",")))
	for _, r := range evidence.Reasoning {
		fl.logWithLevel("INFO", "  "+r)
	}
}

// LogStepResult records a step with its captured stderr on failure.
func (fl *FileLogger) LogStepResult(step models.StepResult, total int) {
	if !fl.shouldLog("info") {
		return
	}
	fl.logWithLevel("INFO", fmt.Sprintf("[%d/%d] %s `%s` (%s)", step.Index+1, total, stepLabel(step),
		step.Command, formatDuration(time.Duration(step.DurationMs)*time.Millisecond)))
	if step.Status == models.StepFailed || step.Status == models.StepTimedOut {
		if stderr := strings.TrimSpace(step.Stderr); stderr != "" {
			fl.writeRunLog(stderr + "\n")
		}
	}
}

func (fl *FileLogger) LogVerifySummary(result models.VerificationResult) {
	if !fl.shouldLog("info") {
		return
	}
	fl.logWithLevel("INFO", fmt.Sprintf("run %s: %s", result.RunID, formatSummaryLine(result)))
}

// Close flushes and closes the run log file.
func (fl *FileLogger) Close() error {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.runLog != nil {
		if err := fl.runLog.Sync(); err != nil {
			return fmt.Errorf("failed to sync run log: %w", err)
		}
		if err := fl.runLog.Close(); err != nil {
			return fmt.Errorf("failed to close run log: %w", err)
		}
		fl.runLog = nil
	}

	return nil
}

// writeRunLog is a thread-safe helper to write to the run log file.
func (fl *FileLogger) writeRunLog(message string) {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.runLog != nil {
		fl.runLog.WriteString(message)
		fl.runLog.Sync()
	}
}
