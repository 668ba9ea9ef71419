package main

import (
	"Beacon/pkg/core"
	"Beacon/pkg/logging"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	dir := t.TempDir()
	cfg := core.Config{
		DBPath:           filepath.Join(dir, "contacts.db"),
		DBDriver:         "sqlite",
		StatusFile:       filepath.Join(dir, "client_status.json"),
		RequestFile:      filepath.Join(dir, "message_data.json"),
		MessagesLog:      filepath.Join(dir, "logs", "messages.log"),
		QRImage:          filepath.Join(dir, "qrcode.png"),
		QRLog:            filepath.Join(dir, "logs", "qr_log.log"),
		ResourceDir:      dir,
		SenderBasename:   "sendmessage",
		LoginBasename:    "qrcode",
		PollInterval:     20 * time.Millisecond,
		ShutdownTimeout:  time.Second,
		LogDir:           filepath.Join(dir, "logs"),
		LogLevel:         "debug",
		LogRetentionDays: 7,
	}
	logs, err := logging.NewRegistry(cfg.LogDir, cfg.LogLevel, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = logs.Close() })

	app := NewApp(cfg, logs)
	require.NoError(t, app.startup(context.Background()))
	t.Cleanup(app.shutdown)
	return app
}

func TestCommands_ImportCreateAndList(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	app := newTestApp(t)

	// Given an imported contact list
	file := filepath.Join(t.TempDir(), "contacts.json")
	data, err := json.Marshal([]map[string]string{
		{"name": "Ada", "phone": "15550000001"},
		{"name": "Bob", "phone": "15550000002"},
	})
	req.NoError(err)
	req.NoError(os.WriteFile(file, data, 0o600))

	var out bytes.Buffer
	req.NoError(execute(ctx, app, "import-contacts", []string{"-file", file}, &out))
	req.Contains(out.String(), "2 contacts have been saved")

	// When a group is created from both
	out.Reset()
	req.NoError(execute(ctx, app, "create-group", []string{"-name", " Team ", "-contacts", "1, 2,2"}, &out))
	req.Contains(out.String(), `Group "Team" created with id 1`)

	// Then the tree lists the group with its members
	out.Reset()
	req.NoError(execute(ctx, app, "groups", []string{"-tree"}, &out))
	req.Contains(out.String(), "Team")
	req.Contains(out.String(), "Ada, Bob")

	out.Reset()
	req.NoError(execute(ctx, app, "members", []string{"-group", "1"}, &out))
	req.Contains(out.String(), "15550000002")
}

func TestCommands_Rejections(t *testing.T) {
	ctx := context.Background()
	app := newTestApp(t)
	var out bytes.Buffer

	err := execute(ctx, app, "create-group", []string{"-name", "Team"}, &out)
	require.ErrorIs(t, err, core.ErrNoSelection)

	err = execute(ctx, app, "create-group", []string{"-name", "Team", "-contacts", "x"}, &out)
	require.Equal(t, core.KindValidation, core.KindOf(err))

	err = execute(ctx, app, "dance", nil, &out)
	require.Equal(t, core.KindValidation, core.KindOf(err))

	// a logged in session so send does not fall back to the login flow
	require.NoError(t, os.WriteFile(app.cfg.StatusFile, []byte(`{"loggedIn":true}`), 0o600))
	err = execute(ctx, app, "send", []string{"-group", "9", "-message", "Hello"}, &out)
	require.ErrorIs(t, err, core.ErrEmptyGroup)
}

func TestCommands_Status(t *testing.T) {
	app := newTestApp(t)
	var out bytes.Buffer

	require.NoError(t, execute(context.Background(), app, "status", nil, &out))
	require.Contains(t, out.String(), "Not logged in")

	require.NoError(t, os.WriteFile(app.cfg.StatusFile, []byte(`{"loggedIn":true}`), 0o600))
	out.Reset()
	require.NoError(t, execute(context.Background(), app, "status", nil, &out))
	require.Contains(t, out.String(), "Logged in")
}

func TestParseIDs(t *testing.T) {
	ids, err := parseIDs(" 3,1 ,, 2")
	require.NoError(t, err)
	require.Equal(t, []uint{3, 1, 2}, ids)

	ids, err = parseIDs("")
	require.NoError(t, err)
	require.Empty(t, ids)

	_, err = parseIDs("1,-2")
	require.ErrorIs(t, err, core.ErrValidation)
}

func TestDescribeError(t *testing.T) {
	require.Contains(t, describeError(core.ErrEmptyMessage), "Invalid input")
	require.Contains(t, describeError(core.NewStoreError("list groups", errors.New("disk I/O error"))), "Database error")
	require.Contains(t, describeError(&core.ProcessError{Op: "exit", Code: 2}), "Failed with return code 2")
	require.Contains(t, describeError(errors.New("boom")), "Error: boom")
}

func TestOutcome(t *testing.T) {
	require.NoError(t, outcome(core.CompletedEvent{}))
	failure := &core.ProcessError{Op: "exit", Code: 1}
	require.Equal(t, failure, outcome(core.FailedEvent{Err: failure}))
	require.ErrorIs(t, outcome(nil), core.ErrProcess)
}
