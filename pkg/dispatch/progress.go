package dispatch

import (
	"Beacon/pkg/core"
	"Beacon/pkg/logtail"
	"fmt"
	"strconv"
	"strings"
	"sync"
)

const progressMarker = "Progress:"

// ParseProgressLine maps one sender stdout line to an event.
// Lines without the marker are not events. A marker followed by something
// other than an integer yields an error notice instead of ending the run.
func ParseProgressLine(line string) (core.DispatchEvent, bool) {
	_, rest, found := strings.Cut(line, progressMarker)
	if !found {
		return nil, false
	}
	percent, err := strconv.Atoi(strings.TrimSpace(rest))
	if err != nil {
		return core.NoticeEvent{
			Level: core.NoticeError,
			Text:  fmt.Sprintf("unreadable progress line %q", line),
			Err:   &core.ProcessError{Op: "parse progress", Err: err},
		}, true
	}
	return core.ProgressEvent{Percent: percent}, true
}

func noticeFromLog(n logtail.Notice) core.NoticeEvent {
	level := core.NoticeInfo
	if n.Level == logtail.LevelError {
		level = core.NoticeError
	}
	ev := core.NoticeEvent{Level: level, Text: n.Text}
	if n.Err != nil {
		ev.Err = &core.ProcessError{Op: "tail messages log", Err: n.Err}
	}
	return ev
}

// Tracker is the consumer's view of a run's progress.
type Tracker struct {
	mu      sync.Mutex
	percent int
	last    core.DispatchEvent
}

// Apply folds an event into the tracker. Completion forces 100;
// a failure leaves the last reported value.
func (t *Tracker) Apply(ev core.DispatchEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch e := ev.(type) {
	case core.ProgressEvent:
		t.percent = e.Percent
	case core.CompletedEvent:
		t.percent = 100
	}
	if core.IsTerminal(ev) {
		t.last = ev
	}
}

func (t *Tracker) Percent() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.percent
}

// Outcome returns the terminal event, or nil while the run is going.
func (t *Tracker) Outcome() core.DispatchEvent {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last
}
