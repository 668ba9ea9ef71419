package platform

import (
	"Beacon/pkg/core"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestExecutableName(t *testing.T) {
	cases := map[string]string{
		"linux":   "sendmessage-linux",
		"windows": "sendmessage-win.exe",
		"darwin":  "sendmessage-macos",
	}
	for goos, expected := range cases {
		got, err := ExecutableName("sendmessage", goos)
		require.NoError(t, err)
		require.Equal(t, expected, got, goos)
	}
}

func TestExecutableName_Unsupported(t *testing.T) {
	for _, goos := range []string{"freebsd", "plan9", ""} {
		_, err := ExecutableName("qrcode", goos)
		require.ErrorIs(t, err, core.ErrUnsupportedPlatform)
		require.Equal(t, core.KindProcess, core.KindOf(err))
	}
}

func TestResolveExecutable(t *testing.T) {
	dir := t.TempDir()
	path, err := ResolveExecutable(dir, "qrcode", "linux")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "qrcode-linux"), path)
}

func TestTerminateTree_KillsChildren(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses /bin/sh")
	}
	req := require.New(t)

	// Given a shell that started a long-running child
	cmd := exec.Command("/bin/sh", "-c", "sleep 30 & wait")
	Configure(cmd)
	req.NoError(cmd.Start())
	time.Sleep(200 * time.Millisecond)

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	// When the tree is terminated
	req.NoError(TerminateTree(cmd.Process.Pid))

	// Then the parent exits promptly
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		req.Fail("process tree still running")
	}
}

func TestTerminateTree_GoneProcess(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses /bin/true")
	}
	cmd := exec.Command("/bin/sh", "-c", "exit 0")
	require.NoError(t, cmd.Run())
	require.NoError(t, TerminateTree(cmd.Process.Pid))
}
