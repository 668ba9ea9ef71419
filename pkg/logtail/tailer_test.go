package logtail

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func appendTo(t *testing.T, path, text string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	require.NoError(t, err)
	_, err = f.WriteString(text)
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

func TestClassify(t *testing.T) {
	require.Equal(t, LevelError, Classify("2024 Error: could not send to 1@c.us"))
	require.Equal(t, LevelInfo, Classify("Info: message sent"))
	require.Equal(t, LevelError, Classify("Info about an Error"))
	require.Equal(t, LevelNone, Classify("error in lowercase is ignored"))
}

func TestPoll_MissingFile(t *testing.T) {
	tailer := New(filepath.Join(t.TempDir(), "messages.log"))
	lines, err := tailer.Poll()
	require.NoError(t, err)
	require.Empty(t, lines)
}

func TestPoll_ReturnsOnlyNewCompleteLines(t *testing.T) {
	req := require.New(t)
	path := filepath.Join(t.TempDir(), "messages.log")

	// Given a log with history, tailed from its end
	appendTo(t, path, "Info: old line\n")
	tailer := New(path)
	req.NoError(tailer.SeekEnd())

	// When new lines arrive, the last one unfinished
	appendTo(t, path, "Info: first\r\nError: second\npart")

	// Then only the finished lines are returned
	lines, err := tailer.Poll()
	req.NoError(err)
	req.Equal([]string{"Info: first", "Error: second"}, lines)

	appendTo(t, path, "ial\n")
	lines, err = tailer.Poll()
	req.NoError(err)
	req.Equal([]string{"partial"}, lines)

	lines, err = tailer.Poll()
	req.NoError(err)
	req.Empty(lines)
}

func TestPoll_TruncationRestartsFromTop(t *testing.T) {
	req := require.New(t)
	path := filepath.Join(t.TempDir(), "messages.log")
	appendTo(t, path, "Info: a fairly long first line\n")

	tailer := New(path)
	_, err := tailer.Poll()
	req.NoError(err)

	req.NoError(os.WriteFile(path, []byte("Info: new\n"), 0o600))
	lines, err := tailer.Poll()
	req.NoError(err)
	req.Equal([]string{"Info: new"}, lines)
}

func TestWatch_ClassifiesAndFinalPoll(t *testing.T) {
	req := require.New(t)
	path := filepath.Join(t.TempDir(), "messages.log")
	tailer := New(path)

	ctx, cancel := context.WithCancel(context.Background())
	out := make(chan Notice, 16)
	done := make(chan struct{})
	go func() {
		Watch(ctx, tailer, time.Hour, out)
		close(done)
	}()

	// Given lines written before the watcher stops
	appendTo(t, path, "Info: sent\nplain line\nError: failed for 2@c.us\n")

	// When the watcher is stopped before its first tick
	cancel()
	<-done
	close(out)

	// Then the final poll delivered the classified lines
	var got []Notice
	for n := range out {
		got = append(got, n)
	}
	req.Equal([]Notice{
		{Level: LevelInfo, Text: "Info: sent"},
		{Level: LevelError, Text: "Error: failed for 2@c.us"},
	}, got)
}
