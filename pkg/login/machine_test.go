package login

import (
	"Beacon/pkg/core"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMachine(t *testing.T) {
	cases := []struct {
		name string
		obs  []Observation
		want State
	}{
		{"starts awaiting code", nil, StateAwaitingCode},
		{"image shown", []Observation{CodeImage{}}, StateAwaitingReady},
		{"image refresh keeps waiting", []Observation{CodeImage{}, CodeImage{}}, StateAwaitingReady},
		{"ready on stdout", []Observation{CodeImage{}, StdoutLine{Text: "  Client is ready!\r"}}, StateSuccess},
		{"ready before any image", []Observation{StdoutLine{Text: "Client is ready!"}}, StateSuccess},
		{"stdout must match exactly", []Observation{StdoutLine{Text: "Client is ready! (restored)"}}, StateAwaitingCode},
		{"ready in log", []Observation{LogLine{Text: "[info] Client is ready! session restored"}}, StateSuccess},
		{"other output ignored", []Observation{StdoutLine{Text: "Loading"}, LogLine{Text: "Info: qr"}}, StateAwaitingCode},
		{"early exit", []Observation{CodeImage{}, Exited{}}, StateFailed},
		{"success absorbs exit", []Observation{StdoutLine{Text: ReadyMarker}, Exited{Err: errors.New("killed")}}, StateSuccess},
		{"failure absorbs ready", []Observation{Exited{}, StdoutLine{Text: ReadyMarker}}, StateFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := NewMachine()
			for _, o := range tc.obs {
				m.Apply(o)
			}
			require.Equal(t, tc.want, m.State())
		})
	}
}

func TestMachine_FailureReason(t *testing.T) {
	req := require.New(t)

	m := NewMachine()
	req.True(m.Apply(Exited{}))
	req.ErrorIs(m.Reason(), core.ErrProcess)
	req.False(m.Apply(Exited{}))

	cause := &core.ProcessError{Op: "exit", Code: 3}
	m = NewMachine()
	m.Apply(Exited{Err: cause})
	req.Equal(cause, m.Reason())
	req.EqualError(m.Reason(), "Failed with return code 3")
}
