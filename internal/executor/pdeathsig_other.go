//go:build !linux && !windows

package executor

import "syscall"

func setParentDeathSignal(*syscall.SysProcAttr) {}
