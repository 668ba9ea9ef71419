//go:build linux

package platform

import (
	"os/exec"
	"syscall"
)

// Configure sets Pdeathsig so the kernel kills the helper if this process dies.
func Configure(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Pdeathsig: syscall.SIGKILL,
	}
}
