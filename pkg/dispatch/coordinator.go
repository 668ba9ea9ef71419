// Package dispatch hands a message for a group to the sender executable and
// streams its progress back as events.
package dispatch

import (
	"Beacon/pkg/core"
	"Beacon/pkg/logging"
	"Beacon/pkg/logtail"
	"Beacon/pkg/metrics"
	"Beacon/pkg/models"
	"Beacon/pkg/platform"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	eventBuffer = 32
	waitDelay   = 2 * time.Second
)

// Members resolves the recipients of a group.
type Members interface {
	ListMembers(ctx context.Context, groupID uint) ([]models.Contact, error)
}

// Options locates the sender and the files it shares with us.
type Options struct {
	ResourceDir    string
	SenderBasename string
	RequestFile    string
	MessagesLog    string
	PollInterval   time.Duration
	GOOS           string // defaults to runtime.GOOS
}

// Coordinator runs at most one send at a time.
type Coordinator struct {
	members Members
	opts    Options
	log     zerolog.Logger
	metrics *metrics.Dispatch

	mu     sync.Mutex
	busy   bool
	active *Run
}

func NewCoordinator(members Members, opts Options, m *metrics.Dispatch, log zerolog.Logger) *Coordinator {
	if opts.GOOS == "" {
		opts.GOOS = runtime.GOOS
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}
	return &Coordinator{members: members, opts: opts, metrics: m, log: log}
}

// Run is one send in progress.
type Run struct {
	id         string
	recipients int
	events     chan core.DispatchEvent
	done       chan struct{}

	mu       sync.Mutex
	pid      int
	stopping bool
}

// ID is a uuid used to correlate log entries.
func (r *Run) ID() string { return r.id }

// Recipients is the number of ids written to the request.
func (r *Run) Recipients() int { return r.recipients }

// Events delivers progress, notices and finally exactly one Completed or
// Failed event, then closes. It must be drained.
func (r *Run) Events() <-chan core.DispatchEvent { return r.events }

// Wait blocks until the events channel is closed.
func (r *Run) Wait() { <-r.done }

// start spawns cmd unless the run is already being shut down.
func (r *Run) start(cmd *exec.Cmd) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopping {
		return context.Canceled
	}
	if err := cmd.Start(); err != nil {
		return err
	}
	r.pid = cmd.Process.Pid
	return nil
}

func (r *Run) stop() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopping = true
	return r.pid
}

// Busy reports whether a send is in flight.
func (c *Coordinator) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

// Send validates the request, writes it for the sender and starts the sender.
// Every rejection happens before a process is spawned. The returned run's
// events carry the outcome; Send itself never waits for the sender.
func (c *Coordinator) Send(ctx context.Context, groupID uint, richText string) (*Run, error) {
	if !c.claim() {
		c.metrics.Result(metrics.ResultRejected)
		return nil, core.ErrSendInFlight
	}

	run, exe, err := c.prepare(ctx, groupID, richText)
	if err != nil {
		c.release(nil)
		c.metrics.Result(metrics.ResultRejected)
		return nil, err
	}

	c.mu.Lock()
	c.active = run
	c.mu.Unlock()

	c.metrics.Recipients(run.recipients)
	c.log.Info().Str("run_id", run.id).Uint("group_id", groupID).Int("recipients", run.recipients).Str("sender", exe).Msg("Starting send")

	tailer := logtail.New(c.opts.MessagesLog)
	if err := tailer.SeekEnd(); err != nil {
		c.log.Warn().Err(err).Str("run_id", run.id).Msg("could not seek messages log, tailing from start")
	}
	go c.work(run, exe, tailer)
	return run, nil
}

func (c *Coordinator) prepare(ctx context.Context, groupID uint, richText string) (*Run, string, error) {
	members, err := c.members.ListMembers(ctx, groupID)
	if err != nil {
		return nil, "", err
	}
	if len(members) == 0 {
		return nil, "", core.ErrEmptyGroup
	}

	text := ExtractText(richText)
	if text == "" {
		return nil, "", core.ErrEmptyMessage
	}

	recipients := Recipients(members, c.log)
	if len(recipients) == 0 {
		return nil, "", fmt.Errorf("%w: no member has a phone number", core.ErrEmptyGroup)
	}

	exe, err := platform.ResolveExecutable(c.opts.ResourceDir, c.opts.SenderBasename, c.opts.GOOS)
	if err != nil {
		return nil, "", err
	}

	if err := writeRequest(c.opts.RequestFile, models.SendRequest{Contacts: recipients, Message: text}); err != nil {
		return nil, "", err
	}

	return &Run{
		id:         uuid.NewString(),
		recipients: len(recipients),
		events:     make(chan core.DispatchEvent, eventBuffer),
		done:       make(chan struct{}),
	}, exe, nil
}

func writeRequest(path string, req models.SendRequest) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return &core.ProcessError{Op: "write request", Err: err}
	}
	data, err := json.Marshal(req)
	if err != nil {
		return &core.ProcessError{Op: "write request", Err: err}
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return &core.ProcessError{Op: "write request", Err: err}
	}
	return nil
}

func (c *Coordinator) claim() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busy {
		return false
	}
	c.busy = true
	return true
}

func (c *Coordinator) release(run *Run) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if run != nil && c.active != run {
		return
	}
	c.busy = false
	c.active = nil
}

// work merges the sender's events and the log tail into the run's channel.
// The terminal event is emitted after the tail has been drained.
func (c *Coordinator) work(run *Run, exe string, tailer *logtail.Tailer) {
	log := c.log.With().Str("run_id", run.id).Logger()

	procEvents := make(chan core.DispatchEvent)
	terminal := make(chan core.DispatchEvent, 1)
	go func() {
		terminal <- c.runSender(run, exe, procEvents, log)
	}()

	notices := make(chan logtail.Notice)
	tailCtx, stopTail := context.WithCancel(context.Background())
	tailDone := make(chan struct{})
	go func() {
		defer close(tailDone)
		logtail.Watch(tailCtx, tailer, c.opts.PollInterval, notices)
	}()

	var last core.DispatchEvent
	for last == nil {
		select {
		case ev := <-procEvents:
			c.emit(run, ev)
		case n := <-notices:
			c.emit(run, noticeFromLog(n))
		case last = <-terminal:
		}
	}

	stopTail()
	for draining := true; draining; {
		select {
		case n := <-notices:
			c.emit(run, noticeFromLog(n))
		case <-tailDone:
			draining = false
		}
	}

	c.emit(run, last)
	switch last.(type) {
	case core.CompletedEvent:
		c.metrics.Result(metrics.ResultCompleted)
		log.Info().Msg("Send completed")
	default:
		c.metrics.Result(metrics.ResultFailed)
		log.Error().Str("reason", core.Describe(last)).Msg("Send failed")
	}

	c.release(run)
	close(run.events)
	close(run.done)
}

func (c *Coordinator) emit(run *Run, ev core.DispatchEvent) {
	if p, ok := ev.(core.ProgressEvent); ok {
		c.metrics.Progress(p.Percent)
	}
	run.events <- ev
}

// runSender owns the process. It never returns nil and never panics.
func (c *Coordinator) runSender(run *Run, exe string, out chan<- core.DispatchEvent, log zerolog.Logger) (terminal core.DispatchEvent) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Interface("panic", rec).Msg("sender worker panicked")
			terminal = core.FailedEvent{Err: &core.ProcessError{Op: "sender worker", Err: fmt.Errorf("panic: %v", rec)}}
		}
	}()

	cmd := exec.Command(exe, c.opts.RequestFile)
	platform.Configure(cmd)
	cmd.WaitDelay = waitDelay
	stderr := logging.ProcessWriter(log, "stderr", zerolog.WarnLevel)
	defer stderr.Close()
	cmd.Stderr = stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return core.FailedEvent{Err: &core.ProcessError{Op: "start sender", Err: err}}
	}
	if err := run.start(cmd); err != nil {
		return core.FailedEvent{Err: &core.ProcessError{Op: "start sender", Err: err}}
	}
	log.Debug().Int("pid", cmd.Process.Pid).Msg("Sender started")

	readErr := logging.ReadLines(stdout, func(line string) {
		ev, ok := ParseProgressLine(line)
		if !ok {
			log.Debug().Int("length", len(line)).Msg("sender output")
			return
		}
		if n, isNotice := ev.(core.NoticeEvent); isNotice {
			log.Warn().Err(n.Err).Str("line", line).Msg("Invalid progress line")
		}
		out <- ev
	})
	if readErr != nil {
		log.Error().Err(readErr).Msg("reading sender output failed")
	}
	waitErr := cmd.Wait()

	var exitErr *exec.ExitError
	switch {
	case errors.As(waitErr, &exitErr):
		return core.FailedEvent{Err: &core.ProcessError{Op: "exit", Code: exitErr.ExitCode(), Err: waitErr}}
	case waitErr != nil:
		return core.FailedEvent{Err: &core.ProcessError{Op: "wait sender", Err: waitErr}}
	case readErr != nil:
		return core.FailedEvent{Err: &core.ProcessError{Op: "read sender output", Err: readErr}}
	default:
		return core.CompletedEvent{}
	}
}

// Shutdown kills the in-flight sender with its children and waits for the
// run to finish. Pending events are discarded.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	run := c.active
	c.mu.Unlock()
	if run == nil {
		return nil
	}

	if pid := run.stop(); pid > 0 {
		c.log.Warn().Str("run_id", run.id).Int("pid", pid).Msg("Terminating sender")
		if err := platform.TerminateTree(pid); err != nil {
			c.log.Error().Err(err).Int("pid", pid).Msg("failed to terminate sender")
		}
	}

	for {
		select {
		case <-run.done:
			return nil
		case <-run.events:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
