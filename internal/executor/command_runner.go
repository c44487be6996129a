package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"
	"unicode/utf8"

	"github.com/harrison/driftguard/internal/models"
)

// waitDelay bounds how long Wait waits for the shell after its group was
// signalled before the process is killed outright.
const waitDelay = 2 * time.Second

// CommandOutput is what a CommandRunner observed for one command.
type CommandOutput struct {
	ExitCode int
	Stdout   string
	Stderr   string
	TimedOut bool
	Duration time.Duration
}

// CommandRunner abstracts shell command execution for testability.
// A non-zero exit is reported through CommandOutput, not as an error;
// errors are reserved for commands that could not be started or were
// cancelled by the caller.
type CommandRunner interface {
	Run(ctx context.Context, dir, command string) (CommandOutput, error)
}

// ShellCommandRunner executes commands via the configured shell with -c.
type ShellCommandRunner struct {
	Shell          string        // Shell binary, "sh" when empty
	Timeout        time.Duration // Per-command limit, 0 disables
	MaxOutputBytes int           // Tail kept per stream, 0 keeps everything
}

// NewShellCommandRunner creates a CommandRunner that executes real shell commands.
func NewShellCommandRunner(shell string, timeout time.Duration, maxOutputBytes int) *ShellCommandRunner {
	return &ShellCommandRunner{
		Shell:          shell,
		Timeout:        timeout,
		MaxOutputBytes: maxOutputBytes,
	}
}

// Run executes command in dir. The command runs in its own process group
// with stdin attached to the null device; the group is killed on timeout,
// on cancellation and after the shell exits.
func (r *ShellCommandRunner) Run(ctx context.Context, dir, command string) (CommandOutput, error) {
	shell := r.Shell
	if shell == "" {
		shell = "sh"
	}
	runCtx := ctx
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, shell, "-c", command)
	cmd.Dir = dir
	cmd.Env = os.Environ()

	// Files rather than pipes: Wait returns as soon as the shell exits even
	// if a background child still holds the descriptors.
	stdout, err := newCaptureFile()
	if err != nil {
		return CommandOutput{ExitCode: -1}, spawnError(command, err)
	}
	defer stdout.discard()
	stderr, err := newCaptureFile()
	if err != nil {
		return CommandOutput{ExitCode: -1}, spawnError(command, err)
	}
	defer stderr.discard()
	cmd.Stdout = stdout.f
	cmd.Stderr = stderr.f

	devNull, err := os.Open(os.DevNull)
	if err != nil {
		return CommandOutput{ExitCode: -1}, spawnError(command, err)
	}
	defer devNull.Close()
	cmd.Stdin = devNull

	setupProcessGroup(cmd)
	cmd.Cancel = func() error { return killProcessGroup(cmd) }
	cmd.WaitDelay = waitDelay

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return CommandOutput{ExitCode: -1}, spawnError(command, err)
	}

	waitErr := cmd.Wait()
	// Reap anything the shell left running in its group.
	_ = killProcessGroup(cmd)

	out := CommandOutput{
		ExitCode: 0,
		Stdout:   stdout.tail(r.MaxOutputBytes),
		Stderr:   stderr.tail(r.MaxOutputBytes),
		Duration: time.Since(start),
	}

	if ctx.Err() != nil {
		out.ExitCode = -1
		return out, ctx.Err()
	}
	if runCtx.Err() != nil {
		out.ExitCode = -1
		out.TimedOut = true
		return out, nil
	}

	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			out.ExitCode = exitErr.ExitCode()
			return out, nil
		}
		out.ExitCode = -1
		return out, fmt.Errorf("waiting for %q: %w", command, waitErr)
	}

	return out, nil
}

func spawnError(command string, err error) error {
	return models.NewGuardError(models.KindSpawnFailure,
		fmt.Sprintf("failed to start command %q", command), err)
}

// captureFile collects one output stream of a command.
type captureFile struct {
	f *os.File
}

func newCaptureFile() (*captureFile, error) {
	f, err := os.CreateTemp("", "driftguard-out-*")
	if err != nil {
		return nil, err
	}
	return &captureFile{f: f}, nil
}

func (c *captureFile) discard() {
	name := c.f.Name()
	c.f.Close()
	os.Remove(name)
}

// tail returns the last limit bytes written, prefixed with a marker when
// output was dropped; limit <= 0 returns everything. The cut never splits
// a UTF-8 sequence.
func (c *captureFile) tail(limit int) string {
	info, err := c.f.Stat()
	if err != nil {
		return ""
	}
	size := info.Size()

	offset := int64(0)
	if limit > 0 && size > int64(limit) {
		offset = size - int64(limit)
	}
	data := make([]byte, size-offset)
	n, err := c.f.ReadAt(data, offset)
	if err != nil && !errors.Is(err, io.EOF) {
		return ""
	}
	return truncatedTail(data[:n], int(offset))
}

func truncatedTail(data []byte, dropped int) string {
	for len(data) > 0 && dropped > 0 && !utf8.RuneStart(data[0]) {
		data = data[1:]
		dropped++
	}
	if dropped == 0 {
		return string(data)
	}

	var b bytes.Buffer
	fmt.Fprintf(&b, "[... %d bytes truncated ...]\n", dropped)
	b.Write(data)
	return b.String()
}
