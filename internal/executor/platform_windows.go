//go:build windows

package executor

import "os/exec"

// setupProcessGroup is a no-op on Windows; only the shell itself is tracked.
func setupProcessGroup(cmd *exec.Cmd) {}

// killProcessGroup kills the shell process.
func killProcessGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	return cmd.Process.Kill()
}
