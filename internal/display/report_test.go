package display

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/harrison/driftguard/internal/models"
)

func TestWarningRender(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, false)

	p.Warning(Warning{
		Title:      "Documentation drift",
		Message:    "code changed",
		Files:      []string{"main.go", "util.go"},
		Suggestion: "Update the marker",
	})

	want := "!  Documentation drift\n" +
		"    code changed\n" +
		"    Affected files:\n" +
		"      1. main.go\n" +
		"      2. util.go\n" +
		"    Suggestion: Update the marker\n"
	assert.Equal(t, want, buf.String())
}

func TestWarningRenderSingleFile(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf, false).Warning(Warning{Title: "t", Files: []string{"a"}})

	assert.Equal(t, "!  t\n    Affected file:\n      1. a\n", buf.String())
}

func TestContractOutput(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf, false).Contract(models.ContractReport{
		OK:       false,
		RepoRoot: "/repo",
		Source:   "default",
		Present:  []string{"AGENTS.md"},
		Missing:  []string{"CHANGELOG.md"},
	})

	out := buf.String()
	assert.Contains(t, out, "✗ Repository contract not satisfied")
	assert.Contains(t, out, "present AGENTS.md")
	assert.Contains(t, out, "missing CHANGELOG.md")
	assert.NotContains(t, out, "\x1b[", "no escape codes without colour")
}

func TestDriftOutputIncludesSuggestion(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf, false).Drift(models.DriftEvidence{
		DocFreshnessMarkerPath: "docs/current_state.md",
		Signals:                []string{"timestamps"},
		Evidence:               []models.PathEvidence{{Path: "main.go", Signals: []string{"timestamps"}}},
		Failures: []models.DriftFailure{{
			Rule:    models.RuleCurrentStateUpdated,
			Message: "code changed after the marker",
			Paths:   []string{"main.go"},
		}},
	})

	out := buf.String()
	assert.Contains(t, out, "✗ Documentation drift detected")
	assert.Contains(t, out, "changed main.go (timestamps)")
	assert.Contains(t, out, "!  "+models.RuleCurrentStateUpdated)
	assert.Contains(t, out, "Suggestion: Update docs/current_state.md to describe the changes")
}

func TestVerifyOutput(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf, false).Verify(&models.VerificationResult{
		Profile: "default",
		State:   models.StateHalted,
		Steps: []models.StepResult{
			{Index: 0, Command: "make build", Status: models.StepPassed, DurationMs: 1500},
			{Index: 1, Command: "make test", Status: models.StepFailed, ExitCode: 2, Stderr: "boom\n"},
			{Index: 2, Command: "make lint", Status: models.StepSkipped, ExitCode: -1},
		},
	})

	out := buf.String()
	assert.Contains(t, out, "[1/3] PASS make build 1.5s\n")
	assert.Contains(t, out, "[2/3] FAIL (exit 2) make test")
	assert.Contains(t, out, "    boom\n")
	assert.Contains(t, out, "[3/3] SKIP make lint\n")
	assert.Contains(t, out, `✗ Profile "default" failed (2 executed, 1 skipped)`)
}

func TestErrorListsAvailableProfiles(t *testing.T) {
	ge := models.NewGuardError(models.KindUnknownProfile, "profile not defined", nil)
	ge.Path = "AGENTS.md"
	ge.AvailableProfiles = []string{"ci", "lint"}

	var buf bytes.Buffer
	NewPrinter(&buf, false).Error(ge)

	out := buf.String()
	assert.Contains(t, out, "!  UnknownProfile")
	assert.Contains(t, out, "1. AGENTS.md")
	assert.Contains(t, out, "Suggestion: Available profiles: ci, lint")
}

func TestColorEnabledForNonFile(t *testing.T) {
	assert.False(t, ColorEnabled(&bytes.Buffer{}))
}

func TestPaintWithColor(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, true)
	p.Contract(models.ContractReport{OK: true})
	assert.Contains(t, buf.String(), "\x1b[")
}
