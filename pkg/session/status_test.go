package session

import (
	"Beacon/pkg/core"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func writeStatus(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "client_status.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestCheckStatus(t *testing.T) {
	tests := []struct {
		name string
		path func(t *testing.T) string
		want bool
	}{
		{
			name: "absent file",
			path: func(t *testing.T) string { return filepath.Join(t.TempDir(), "missing.json") },
		},
		{
			name: "corrupt json",
			path: func(t *testing.T) string { return writeStatus(t, `{"loggedIn": tru`) },
		},
		{
			name: "logged out",
			path: func(t *testing.T) string { return writeStatus(t, `{"loggedIn": false}`) },
		},
		{
			name: "field missing",
			path: func(t *testing.T) string { return writeStatus(t, `{"status": "Client is ready"}`) },
		},
		{
			name: "field not a boolean",
			path: func(t *testing.T) string { return writeStatus(t, `{"loggedIn": "yes"}`) },
		},
		{
			name: "logged in",
			path: func(t *testing.T) string { return writeStatus(t, `{"loggedIn": true}`) },
			want: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, CheckStatus(tc.path(t), zerolog.Nop()))
		})
	}
}

func TestReadStatus_ErrorsAreStatusReadKind(t *testing.T) {
	_, err := ReadStatus(writeStatus(t, `[]`))
	require.ErrorIs(t, err, core.ErrStatusRead)
	require.Equal(t, core.KindStatusRead, core.KindOf(err))
}

func TestGate_Decide(t *testing.T) {
	req := require.New(t)
	req.Equal(ModeMain, NewGate(writeStatus(t, `{"loggedIn": true}`), zerolog.Nop()).Decide())
	req.Equal(ModeLogin, NewGate(writeStatus(t, `{"loggedIn": false}`), zerolog.Nop()).Decide())
}
