// Package executor runs verification profiles: it resolves a profile from
// the instructions document and executes its commands one at a time,
// stopping at the first failure.
package executor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/harrison/driftguard/internal/contract"
	"github.com/harrison/driftguard/internal/filelock"
	"github.com/harrison/driftguard/internal/fileutil"
	"github.com/harrison/driftguard/internal/logger"
	"github.com/harrison/driftguard/internal/models"
	"github.com/harrison/driftguard/internal/parser"
)

// DefaultInstructionsFile is read when no instructions file is configured.
const DefaultInstructionsFile = "AGENTS.md"

// Verifier executes one verification profile per Run call.
type Verifier struct {
	runner           CommandRunner
	parser           *parser.InstructionsParser
	logger           logger.Logger
	instructionsFile string
	reportFile       string
	newRunID         func() string
}

// VerifierOption customises a Verifier.
type VerifierOption func(*Verifier)

// WithLogger sets the logger that receives step and summary events.
func WithLogger(l logger.Logger) VerifierOption {
	return func(v *Verifier) {
		if l != nil {
			v.logger = l
		}
	}
}

// WithInstructionsFile overrides the repo-relative instructions document.
func WithInstructionsFile(rel string) VerifierOption {
	return func(v *Verifier) {
		if rel != "" {
			v.instructionsFile = rel
		}
	}
}

// WithReportFile makes every run write its result as JSON to the given
// repo-relative path.
func WithReportFile(rel string) VerifierOption {
	return func(v *Verifier) {
		v.reportFile = rel
	}
}

// NewVerifier creates a Verifier that executes commands through runner.
func NewVerifier(runner CommandRunner, opts ...VerifierOption) *Verifier {
	v := &Verifier{
		runner:           runner,
		parser:           parser.NewInstructionsParser(),
		logger:           logger.NewNoOpLogger(),
		instructionsFile: DefaultInstructionsFile,
		newRunID:         func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// LoadInstructions resolves and parses the instructions document under
// repoRoot and returns it with its absolute path. It fails with
// InstructionsNotFound when the document is absent.
func (v *Verifier) LoadInstructions(repoRoot string) (*parser.Instructions, string, error) {
	root, err := contract.ResolveRoot(repoRoot)
	if err != nil {
		return nil, "", err
	}
	return v.loadInstructions(root)
}

func (v *Verifier) loadInstructions(root string) (*parser.Instructions, string, error) {

	path, err := fileutil.ResolveWithin(root, v.instructionsFile)
	if err != nil {
		ge := models.NewGuardError(models.KindInstructionsNotFound,
			fmt.Sprintf("instructions document %s not found", v.instructionsFile), err)
		ge.Path = v.instructionsFile
		return nil, "", ge
	}
	if info, statErr := os.Stat(path); statErr != nil || info.IsDir() {
		ge := models.NewGuardError(models.KindInstructionsNotFound,
			fmt.Sprintf("instructions document %s is not a regular file", v.instructionsFile), statErr)
		ge.Path = v.instructionsFile
		return nil, "", ge
	}

	doc, err := v.parser.ParseFile(path)
	if err != nil {
		ge := models.NewGuardError(models.KindInternal,
			fmt.Sprintf("failed to read instructions document %s", v.instructionsFile), err)
		ge.Path = v.instructionsFile
		return nil, "", ge
	}
	for _, w := range doc.Warnings {
		v.logger.LogDebug(fmt.Sprintf("%s: %s", v.instructionsFile, w))
	}
	return doc, path, nil
}

// Run executes the named profile in repoRoot. An empty profile selects the
// default profile; explicit only affects how the selection is logged.
//
// Non-zero exits and timeouts are reported as step results. Missing inputs,
// unknown profiles, spawn failures and cancellation are returned as errors.
func (v *Verifier) Run(ctx context.Context, repoRoot, profile string, explicit bool) (*models.VerificationResult, error) {
	start := time.Now()
	result := &models.VerificationResult{
		RunID: v.newRunID(),
		State: models.StateIdle,
		Steps: []models.StepResult{},
	}

	result.State = models.StateParsing
	root, err := contract.ResolveRoot(repoRoot)
	if err != nil {
		return nil, err
	}
	doc, instructionsPath, err := v.loadInstructions(root)
	if err != nil {
		return nil, err
	}
	result.RepoRoot = root
	result.InstructionsPath = instructionsPath

	if doc.Len() == 0 {
		ge := models.NewGuardError(models.KindNoProfilesFound,
			fmt.Sprintf("no verification profiles found in %s", v.instructionsFile), nil)
		ge.Path = v.instructionsFile
		return nil, ge
	}

	result.State = models.StateResolving
	name := profile
	if name == "" {
		name = models.DefaultProfile
	}
	selected, ok := doc.Lookup(name)
	if !ok {
		ge := models.NewGuardError(models.KindUnknownProfile,
			fmt.Sprintf("profile %q is not defined in %s", name, v.instructionsFile), nil)
		ge.Profile = name
		ge.Path = v.instructionsFile
		ge.AvailableProfiles = doc.Names()
		return nil, ge
	}
	result.Profile = selected.Name
	if explicit {
		v.logger.LogInfo(fmt.Sprintf("Running profile %q (%d commands)", selected.Name, len(selected.Commands)))
	} else {
		v.logger.LogInfo(fmt.Sprintf("Running default profile (%d commands)", len(selected.Commands)))
	}

	total := len(selected.Commands)
	halted := false
	for i, command := range selected.Commands {
		if halted {
			result.Steps = append(result.Steps, models.StepResult{
				Index:    i,
				Command:  command,
				Status:   models.StepSkipped,
				ExitCode: -1,
			})
			continue
		}

		result.State = models.StateExecuting
		step, err := v.runStep(ctx, root, i, command)
		if err != nil {
			return nil, err
		}
		result.Steps = append(result.Steps, step)
		v.logger.LogStepResult(step, total)

		if step.Status != models.StepPassed {
			halted = true
		}
	}

	if halted {
		result.State = models.StateHalted
	} else {
		result.State = models.StateCompleted
	}
	result.OverallOK = !halted
	result.DurationMs = time.Since(start).Milliseconds()
	v.logger.LogVerifySummary(*result)

	if v.reportFile != "" {
		v.writeReport(ctx, root, result)
	}

	return result, nil
}

func (v *Verifier) runStep(ctx context.Context, root string, index int, command string) (models.StepResult, error) {
	if err := ctx.Err(); err != nil {
		return models.StepResult{}, cancelledError(err)
	}

	out, err := v.runner.Run(ctx, root, command)
	if err != nil {
		if models.KindOf(err) == models.KindSpawnFailure {
			return models.StepResult{}, err
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return models.StepResult{}, cancelledError(err)
		}
		return models.StepResult{}, models.NewGuardError(models.KindInternal,
			fmt.Sprintf("command %q failed to complete", command), err)
	}

	step := models.StepResult{
		Index:      index,
		Command:    command,
		ExitCode:   out.ExitCode,
		Stdout:     out.Stdout,
		Stderr:     out.Stderr,
		DurationMs: out.Duration.Milliseconds(),
		TimedOut:   out.TimedOut,
	}

	switch {
	case out.TimedOut:
		step.Status = models.StepTimedOut
		step.ExitCode = -1
		te := models.ToToolError(models.NewGuardError(models.KindTimedOut,
			fmt.Sprintf("command %q exceeded its time limit", command), nil))
		step.Error = &te
	case out.ExitCode == 0:
		step.Status = models.StepPassed
	default:
		step.Status = models.StepFailed
	}

	return step, nil
}

func (v *Verifier) writeReport(ctx context.Context, root string, result *models.VerificationResult) {
	rel, ok := fileutil.NormalizeRel(v.reportFile)
	if !ok {
		v.logger.LogWarn(fmt.Sprintf("report file %q is outside the repository, not written", v.reportFile))
		return
	}
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := filelock.WriteJSON(ctx, path, result); err != nil {
		v.logger.LogWarn(fmt.Sprintf("failed to write verification report: %v", err))
		return
	}
	v.logger.LogDebug(fmt.Sprintf("Verification report written to %s", rel))
}

func cancelledError(err error) error {
	return models.NewGuardError(models.KindInternal, "verification cancelled", err)
}
