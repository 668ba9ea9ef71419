// Package platform resolves the per-OS helper executables and manages their processes.
package platform

import (
	"Beacon/pkg/core"
	"fmt"
	"path/filepath"
)

// ExecutableName returns the helper binary name for an OS identifier as
// reported by runtime.GOOS.
func ExecutableName(basename, goos string) (string, error) {
	switch goos {
	case "linux":
		return basename + "-linux", nil
	case "windows":
		return basename + "-win.exe", nil
	case "darwin":
		return basename + "-macos", nil
	default:
		return "", fmt.Errorf("%w: %s", core.ErrUnsupportedPlatform, goos)
	}
}

// ResolveExecutable joins the resource directory and the platform binary name.
// It does not check that the file exists; spawning reports that.
func ResolveExecutable(resourceDir, basename, goos string) (string, error) {
	name, err := ExecutableName(basename, goos)
	if err != nil {
		return "", err
	}
	path, err := filepath.Abs(filepath.Join(resourceDir, name))
	if err != nil {
		return "", &core.ProcessError{Op: "resolve executable", Err: err}
	}
	return path, nil
}
