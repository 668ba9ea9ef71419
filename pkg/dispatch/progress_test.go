package dispatch

import (
	"Beacon/pkg/core"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseProgressLine(t *testing.T) {
	req := require.New(t)

	ev, ok := ParseProgressLine("Progress: 42")
	req.True(ok)
	req.Equal(core.ProgressEvent{Percent: 42}, ev)

	ev, ok = ParseProgressLine("[sender] Progress:7")
	req.True(ok)
	req.Equal(core.ProgressEvent{Percent: 7}, ev)

	_, ok = ParseProgressLine("Opening browser")
	req.False(ok)

	ev, ok = ParseProgressLine("Progress: abc")
	req.True(ok)
	notice, isNotice := ev.(core.NoticeEvent)
	req.True(isNotice)
	req.Equal(core.NoticeError, notice.Level)
	req.ErrorIs(notice.Err, core.ErrProcess)
	req.False(core.IsTerminal(ev))
}

func TestTracker(t *testing.T) {
	req := require.New(t)

	var done Tracker
	done.Apply(core.ProgressEvent{Percent: 0})
	done.Apply(core.ProgressEvent{Percent: 50})
	req.Equal(50, done.Percent())
	req.Nil(done.Outcome())
	done.Apply(core.CompletedEvent{})
	req.Equal(100, done.Percent())
	req.Equal(core.CompletedEvent{}, done.Outcome())

	var failed Tracker
	failed.Apply(core.ProgressEvent{Percent: 30})
	failed.Apply(core.NoticeEvent{Level: core.NoticeInfo, Text: "Info: sent"})
	failed.Apply(core.FailedEvent{Err: errors.New("boom")})
	req.Equal(30, failed.Percent())
}
