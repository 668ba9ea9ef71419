// Package login drives the QR login executable until the client is ready.
package login

import (
	"Beacon/pkg/core"
	"strings"
	"time"
)

// ReadyMarker is printed by the login executable, and appended to its log,
// once the WhatsApp client is authenticated.
const ReadyMarker = "Client is ready!"

type State string

const (
	StateAwaitingCode  State = "awaiting_code"
	StateAwaitingReady State = "awaiting_ready"
	StateSuccess       State = "success"
	StateFailed        State = "failed"
)

// Observation is something the flow saw while the executable runs.
type Observation interface {
	isObservation()
}

// CodeImage means a QR image is ready to be scanned.
type CodeImage struct {
	Path    string
	ModTime time.Time
}

// StdoutLine is one line printed by the executable.
type StdoutLine struct{ Text string }

// LogLine is one line appended to the executable's log file.
type LogLine struct{ Text string }

// Exited means the executable is gone. Err is nil for a clean exit.
type Exited struct{ Err error }

func (CodeImage) isObservation()  {}
func (StdoutLine) isObservation() {}
func (LogLine) isObservation()    {}
func (Exited) isObservation()     {}

// Machine is the login state machine. It has no side effects.
type Machine struct {
	state  State
	reason error
}

func NewMachine() *Machine {
	return &Machine{state: StateAwaitingCode}
}

func (m *Machine) State() State { return m.state }

// Reason is why the machine failed, nil otherwise.
func (m *Machine) Reason() error { return m.reason }

func (m *Machine) Terminal() bool {
	return m.state == StateSuccess || m.state == StateFailed
}

// Apply folds one observation in and reports whether the state changed.
// Success and Failed absorb everything.
func (m *Machine) Apply(obs Observation) bool {
	if m.Terminal() {
		return false
	}

	switch o := obs.(type) {
	case CodeImage:
		if m.state == StateAwaitingCode {
			m.state = StateAwaitingReady
			return true
		}
	case StdoutLine:
		if strings.TrimSpace(o.Text) == ReadyMarker {
			m.state = StateSuccess
			return true
		}
	case LogLine:
		if strings.Contains(o.Text, ReadyMarker) {
			m.state = StateSuccess
			return true
		}
	case Exited:
		m.state = StateFailed
		m.reason = o.Err
		if m.reason == nil {
			m.reason = &core.ProcessError{Op: "login executable exited before the client was ready"}
		}
		return true
	}
	return false
}
