//go:build !linux

package platform

import "os/exec"

// Configure is a no-op outside Linux; Shutdown terminates helpers explicitly.
func Configure(cmd *exec.Cmd) {}
