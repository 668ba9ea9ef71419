// Package logtail follows a log file written by another process.
package logtail

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// Level of a log line as shown to the user.
type Level string

const (
	LevelNone  Level = ""
	LevelInfo  Level = "info"
	LevelError Level = "error"
)

// Classify looks for the Error and Info markers the helpers write into their logs.
func Classify(line string) Level {
	switch {
	case strings.Contains(line, "Error"):
		return LevelError
	case strings.Contains(line, "Info"):
		return LevelInfo
	default:
		return LevelNone
	}
}

// Notice is a classified log line, or a failure to read the log.
type Notice struct {
	Level Level
	Text  string
	Err   error
}

// Tailer returns the lines appended to a file since the previous Poll.
// It is not safe for concurrent use.
type Tailer struct {
	path   string
	offset int64
}

func New(path string) *Tailer {
	return &Tailer{path: path}
}

// Path returns the tailed file.
func (t *Tailer) Path() string { return t.path }

// SeekEnd skips everything already in the file. A missing file starts at 0.
func (t *Tailer) SeekEnd() error {
	info, err := os.Stat(t.path)
	if os.IsNotExist(err) {
		t.offset = 0
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", t.path, err)
	}
	t.offset = info.Size()
	return nil
}

// Poll returns the complete lines written since the last call.
// A trailing line without newline is left for the next call.
func (t *Tailer) Poll() ([]string, error) {
	f, err := os.Open(t.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", t.path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", t.path, err)
	}
	if info.Size() < t.offset {
		// truncated or rotated
		t.offset = 0
	}
	if info.Size() == t.offset {
		return nil, nil
	}

	buf := make([]byte, info.Size()-t.offset)
	n, err := f.ReadAt(buf, t.offset)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to read %s: %w", t.path, err)
	}
	buf = buf[:n]

	end := bytes.LastIndexByte(buf, '\n')
	if end < 0 {
		return nil, nil
	}
	t.offset += int64(end + 1)

	raw := strings.Split(string(buf[:end]), "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		line = strings.TrimRight(line, "\r")
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines, nil
}

// Watch polls the tailer every interval and sends classified lines to out.
// Lines with no level are dropped. A read failure is sent as an error notice
// and retried on the next tick. When ctx is done it polls once more and returns.
// The caller must keep draining out until Watch returns.
func Watch(ctx context.Context, t *Tailer, interval time.Duration, out chan<- Notice) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			emit(t, out)
			return
		case <-ticker.C:
			emit(t, out)
		}
	}
}

func emit(t *Tailer, out chan<- Notice) {
	lines, err := t.Poll()
	if err != nil {
		out <- Notice{Level: LevelError, Text: err.Error(), Err: err}
		return
	}
	for _, line := range lines {
		if level := Classify(line); level != LevelNone {
			out <- Notice{Level: level, Text: line}
		}
	}
}
