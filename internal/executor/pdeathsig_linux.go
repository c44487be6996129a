//go:build linux

package executor

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// setParentDeathSignal kills the shell if drift-guard itself dies.
func setParentDeathSignal(attr *syscall.SysProcAttr) {
	attr.Pdeathsig = unix.SIGKILL
}
