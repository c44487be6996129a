package models

// DefaultProfile is used when the caller does not name a profile.
const DefaultProfile = "default"

// Step statuses
const (
	StepPassed   = "passed"
	StepFailed   = "failed"
	StepTimedOut = "timed_out"
	StepSkipped  = "skipped"
)

// RunState is the verification runner's state for one invocation.
type RunState string

const (
	StateIdle      RunState = "idle"
	StateParsing   RunState = "parsing"
	StateResolving RunState = "resolving"
	StateExecuting RunState = "executing"
	StateHalted    RunState = "halted"
	StateCompleted RunState = "completed"
)

// VerificationProfile is a named, ordered list of shell commands.
type VerificationProfile struct {
	Name     string   `json:"name"`
	Commands []string `json:"commands"`
}

// StepResult is the outcome of one command in a profile.
type StepResult struct {
	Index      int        `json:"index"`
	Command    string     `json:"command"`
	Status     string     `json:"status"`
	ExitCode   int        `json:"exit_code"`
	Stdout     string     `json:"stdout"`
	Stderr     string     `json:"stderr"`
	DurationMs int64      `json:"duration_ms"`
	TimedOut   bool       `json:"timed_out"`
	Error      *ToolError `json:"error,omitempty"`
}

// Executed reports whether the step's command was actually run.
func (s StepResult) Executed() bool {
	return s.Status != StepSkipped
}

// VerificationResult aggregates the steps of one profile run.
type VerificationResult struct {
	RunID            string       `json:"run_id"`
	Profile          string       `json:"profile"`
	RepoRoot         string       `json:"repo_root"`
	InstructionsPath string       `json:"instructions_path"`
	State            RunState     `json:"state"`
	Steps            []StepResult `json:"steps"`
	OverallOK        bool         `json:"overall_ok"`
	DurationMs       int64        `json:"duration_ms"`
}

// ExecutedCount returns the number of steps that ran.
func (r VerificationResult) ExecutedCount() int {
	n := 0
	for _, s := range r.Steps {
		if s.Executed() {
			n++
		}
	}
	return n
}

// SkippedCount returns the number of steps that were not run.
func (r VerificationResult) SkippedCount() int {
	return len(r.Steps) - r.ExecutedCount()
}
