package logging

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// processWriter redirects a child process stream into a logger, one entry per line.
type processWriter struct {
	mu     sync.Mutex
	log    zerolog.Logger
	stream string
	level  zerolog.Level
	buf    bytes.Buffer
}

// ProcessWriter returns a writer suitable for exec.Cmd.Stdout or Stderr.
// Close flushes a trailing line without newline.
func ProcessWriter(log zerolog.Logger, stream string, level zerolog.Level) io.WriteCloser {
	return &processWriter{log: log, stream: stream, level: level}
}

func (w *processWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf.Write(p)
	for {
		line, err := w.buf.ReadString('\n')
		if err != nil {
			// Incomplete line, keep it for the next write.
			w.buf.Reset()
			w.buf.WriteString(line)
			break
		}
		w.emit(line)
	}
	return len(p), nil
}

func (w *processWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.buf.Len() > 0 {
		w.emit(w.buf.String())
		w.buf.Reset()
	}
	return nil
}

func (w *processWriter) emit(line string) {
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return
	}
	w.log.WithLevel(w.level).Str("stream", w.stream).Msg(line)
}

// ReadLines calls fn for every line of a child process stream, without a
// length limit. After a read error the rest of r is discarded so the child
// never blocks on a full pipe, and the error is returned. io.EOF is not an
// error.
func ReadLines(r io.Reader, fn func(line string)) error {
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			fn(strings.TrimRight(line, "\r\n"))
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			_, _ = io.Copy(io.Discard, r)
			return err
		}
	}
}
