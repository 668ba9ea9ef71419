package core

import "fmt"

// EventType represents the type of event emitted by a send run.
type EventType string

const (
	// EventTypeProgress carries a percentage reported by the sender.
	EventTypeProgress EventType = "progress"
	// EventTypeNotice carries a non-terminal message for the user.
	EventTypeNotice EventType = "notice"
	// EventTypeCompleted marks a successful sender exit.
	EventTypeCompleted EventType = "completed"
	// EventTypeFailed marks a failed run.
	EventTypeFailed EventType = "failed"
)

// DispatchEvent is the base interface for all send run events.
// Consumers switch on the concrete type.
type DispatchEvent interface {
	Type() EventType
}

// ProgressEvent represents a "Progress: N" line from the sender.
type ProgressEvent struct {
	Percent int // Not range-checked, forwarded as reported
}

// Type returns the event type for ProgressEvent.
func (e ProgressEvent) Type() EventType {
	return EventTypeProgress
}

// NoticeLevel is the severity of a notice.
type NoticeLevel string

const (
	NoticeInfo  NoticeLevel = "info"
	NoticeError NoticeLevel = "error"
)

// NoticeEvent represents a log line or a recoverable problem seen while the sender runs.
type NoticeEvent struct {
	Level NoticeLevel
	Text  string
	Err   error // Set for problems such as a malformed progress line
}

// Type returns the event type for NoticeEvent.
func (e NoticeEvent) Type() EventType {
	return EventTypeNotice
}

// CompletedEvent represents a sender that exited with code 0.
type CompletedEvent struct{}

// Type returns the event type for CompletedEvent.
func (e CompletedEvent) Type() EventType {
	return EventTypeCompleted
}

// FailedEvent represents a sender that could not be run or exited non-zero.
type FailedEvent struct {
	Err error
}

// Type returns the event type for FailedEvent.
func (e FailedEvent) Type() EventType {
	return EventTypeFailed
}

func (e FailedEvent) String() string {
	if e.Err == nil {
		return "failed"
	}
	return e.Err.Error()
}

// IsTerminal reports whether ev ends a run.
func IsTerminal(ev DispatchEvent) bool {
	switch ev.(type) {
	case CompletedEvent, FailedEvent:
		return true
	}
	return false
}

// Describe renders an event for logs and the CLI.
func Describe(ev DispatchEvent) string {
	switch e := ev.(type) {
	case ProgressEvent:
		return fmt.Sprintf("progress(%d)", e.Percent)
	case NoticeEvent:
		return fmt.Sprintf("%s: %s", e.Level, e.Text)
	case CompletedEvent:
		return "completed"
	case FailedEvent:
		return fmt.Sprintf("error(%s)", e.String())
	default:
		return string(ev.Type())
	}
}
