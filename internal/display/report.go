package display

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/harrison/driftguard/internal/models"
)

// ColorEnabled reports whether w is a terminal that should get colours.
func ColorEnabled(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Printer renders reports to a writer.
type Printer struct {
	out   io.Writer
	color bool
}

// NewPrinter creates a Printer.
func NewPrinter(out io.Writer, colored bool) *Printer {
	return &Printer{out: out, color: colored}
}

func (p *Printer) paint(attr color.Attribute, s string) string {
	if !p.color {
		return s
	}
	c := color.New(attr)
	c.EnableColor()
	return c.Sprint(s)
}

func (p *Printer) status(ok bool, pass, fail string) string {
	if ok {
		return p.paint(color.FgGreen, "✓ "+pass)
	}
	return p.paint(color.FgRed, "✗ "+fail)
}

// Warning prints w.
func (p *Printer) Warning(w Warning) {
	fmt.Fprint(p.out, w.render(p.paint))
}

// Contract prints a contract report.
func (p *Printer) Contract(r models.ContractReport) {
	fmt.Fprintf(p.out, "%s\n", p.status(r.OK, "Repository contract satisfied", "Repository contract not satisfied"))
	fmt.Fprintf(p.out, "  Root:   %s\n", r.RepoRoot)
	fmt.Fprintf(p.out, "  Source: %s\n", r.Source)
	for _, f := range r.Present {
		fmt.Fprintf(p.out, "  %s %s\n", p.paint(color.FgGreen, "present"), f)
	}
	for _, f := range r.Missing {
		fmt.Fprintf(p.out, "  %s %s\n", p.paint(color.FgRed, "missing"), f)
	}
}

// Drift prints drift evidence.
func (p *Printer) Drift(e models.DriftEvidence) {
	fmt.Fprintf(p.out, "%s\n", p.status(e.OK, "No documentation drift", "Documentation drift detected"))
	fmt.Fprintf(p.out, "  Root:    %s\n", e.RepoRoot)
	fmt.Fprintf(p.out, "  Marker:  %s\n", e.DocFreshnessMarkerPath)
	fmt.Fprintf(p.out, "  Signals: %s\n", strings.Join(e.Signals, ", "))

	for _, ev := range e.Evidence {
		fmt.Fprintf(p.out, "  %s %s %s\n", p.paint(color.FgYellow, "changed"), ev.Path,
			p.paint(color.Faint, "("+strings.Join(ev.Signals, ", ")+")"))
	}
	for _, line := range e.Reasoning {
		fmt.Fprintf(p.out, "  - %s\n", line)
	}
	for _, f := range e.Failures {
		p.Warning(Warning{
			Title:      f.Rule,
			Message:    f.Message,
			Files:      f.Paths,
			Suggestion: suggestion(f.Rule, e.DocFreshnessMarkerPath),
		})
	}
}

func suggestion(rule, marker string) string {
	switch rule {
	case models.RuleCurrentStateUpdated, models.RuleLinkedDocRequiresMarker:
		return fmt.Sprintf("Update %s to describe the changes", marker)
	case models.RuleRepoContract:
		return "Add the missing files or adjust the contract"
	default:
		return ""
	}
}

// Verify prints a verification result.
func (p *Printer) Verify(r *models.VerificationResult) {
	total := len(r.Steps)
	for _, s := range r.Steps {
		var label string
		switch s.Status {
		case models.StepPassed:
			label = p.paint(color.FgGreen, "PASS")
		case models.StepFailed:
			label = p.paint(color.FgRed, fmt.Sprintf("FAIL (exit %d)", s.ExitCode))
		case models.StepTimedOut:
			label = p.paint(color.FgRed, "TIMEOUT")
		default:
			label = p.paint(color.Faint, "SKIP")
		}
		fmt.Fprintf(p.out, "[%d/%d] %s %s", s.Index+1, total, label, s.Command)
		if s.Executed() {
			fmt.Fprintf(p.out, " %s", p.paint(color.Faint, formatMs(s.DurationMs)))
		}
		fmt.Fprintln(p.out)

		if s.Status == models.StepFailed || s.Status == models.StepTimedOut {
			p.indentOutput(s.Stdout)
			p.indentOutput(s.Stderr)
		}
	}

	fmt.Fprintf(p.out, "%s\n", p.status(r.OverallOK,
		fmt.Sprintf("Profile %q passed (%d steps, %s)", r.Profile, total, formatMs(r.DurationMs)),
		fmt.Sprintf("Profile %q failed (%d executed, %d skipped)", r.Profile, r.ExecutedCount(), r.SkippedCount())))
}

func (p *Printer) indentOutput(s string) {
	s = strings.TrimRight(s, "\n")
	if s == "" {
		return
	}
	for _, line := range strings.Split(s, "\n") {
		fmt.Fprintf(p.out, "    %s\n", line)
	}
}

// Profiles prints the profiles found in the instructions document.
func (p *Printer) Profiles(profiles []models.VerificationProfile) {
	for _, prof := range profiles {
		fmt.Fprintf(p.out, "%s (%d)\n", p.paint(color.Bold, prof.Name), len(prof.Commands))
		for _, c := range prof.Commands {
			fmt.Fprintf(p.out, "  %s\n", c)
		}
	}
}

// Error prints a structured operation error.
func (p *Printer) Error(err error) {
	te := models.ToToolError(err)
	w := Warning{Title: string(te.Kind), Message: te.Message}
	if te.Path != "" {
		w.Files = []string{te.Path}
	}
	if len(te.AvailableProfiles) > 0 {
		w.Suggestion = "Available profiles: " + strings.Join(te.AvailableProfiles, ", ")
	}
	p.Warning(w)
}

func formatMs(ms int64) string {
	return (time.Duration(ms) * time.Millisecond).String()
}
