package logger

import (
	"fmt"
	"strings"
	"time"

	"github.com/harrison/driftguard/internal/models"
)

// stepLabel maps a step status to its log label.
func stepLabel(step models.StepResult) string {
	switch step.Status {
	case models.StepPassed:
		return "PASS"
	case models.StepTimedOut:
		return "TIMEOUT"
	case models.StepSkipped:
		return "SKIP"
	default:
		return fmt.Sprintf("FAIL(exit %d)", step.ExitCode)
	}
}

func formatSummaryLine(result models.VerificationResult) string {
	status := "PASSED"
	if !result.OverallOK {
		status = "FAILED"
	}
	return fmt.Sprintf("Profile %q %s: %d/%d steps executed, %d skipped, state %s (%s)",
		result.Profile, status, result.ExecutedCount(), len(result.Steps), result.SkippedCount(),
		result.State, formatDuration(time.Duration(result.DurationMs)*time.Millisecond))
}

func formatDriftLine(evidence models.DriftEvidence) string {
	var rules []string
	for _, f := range evidence.Failures {
		rules = append(rules, f.Rule)
	}
	return fmt.Sprintf("Drift detected: %d changed path(s) since %s; failed rules: %s",
		len(evidence.ChangedPaths), evidence.DocFreshnessMarkerPath, strings.Join(rules, ", "))
}

// formatDuration converts a time.Duration to a human-readable string.
// Examples: "850ms", "5s", "1m30s", "2h15m"
func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Hour:
		hours := d / time.Hour
		minutes := (d % time.Hour) / time.Minute
		if minutes == 0 {
			return fmt.Sprintf("%dh", hours)
		}
		return fmt.Sprintf("%dh%dm", hours, minutes)
	case d >= time.Minute:
		minutes := d / time.Minute
		seconds := (d % time.Minute) / time.Second
		if seconds == 0 {
			return fmt.Sprintf("%dm", minutes)
		}
		return fmt.Sprintf("%dm%ds", minutes, seconds)
	case d >= time.Second:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
}
