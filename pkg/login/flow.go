package login

import (
	"Beacon/pkg/core"
	"Beacon/pkg/logging"
	"Beacon/pkg/logtail"
	"Beacon/pkg/platform"
	"context"
	"errors"
	"os"
	"os/exec"
	"runtime"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
)

// Options locates the login executable and the files it writes.
type Options struct {
	ResourceDir  string
	Basename     string
	QRImage      string
	QRLog        string
	PollInterval time.Duration
	Grace        time.Duration // time left to the executable to import contacts after success
	GOOS         string        // defaults to runtime.GOOS
}

// Update is published on every state change and every new QR image.
type Update struct {
	State  State
	Reason error  // set when State is StateFailed
	Image  string // set when a new QR image is ready
}

type Flow struct {
	opts Options
	log  zerolog.Logger
}

func NewFlow(opts Options, log zerolog.Logger) *Flow {
	if opts.GOOS == "" {
		opts.GOOS = runtime.GOOS
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}
	return &Flow{opts: opts, log: log}
}

type exitResult struct {
	err error
}

// Run spawns the login executable and follows it until the client is ready,
// the executable exits, or ctx is done. Updates are sent to updates when it
// is not nil. It returns the terminal state and, for a failure, the reason.
func (f *Flow) Run(ctx context.Context, updates chan<- Update) (State, error) {
	machine := NewMachine()
	publish := func(u Update) {
		if updates == nil {
			return
		}
		select {
		case updates <- u:
		case <-ctx.Done():
		}
	}
	fail := func(err error) (State, error) {
		machine.Apply(Exited{Err: err})
		publish(Update{State: machine.State(), Reason: machine.Reason()})
		return machine.State(), machine.Reason()
	}

	exe, err := platform.ResolveExecutable(f.opts.ResourceDir, f.opts.Basename, f.opts.GOOS)
	if err != nil {
		return fail(err)
	}

	tailer := logtail.New(f.opts.QRLog)
	if err := tailer.SeekEnd(); err != nil {
		f.log.Warn().Err(err).Msg("could not seek QR log, reading it from the start")
	}

	cmd := exec.Command(exe)
	platform.Configure(cmd)
	stderr := logging.ProcessWriter(f.log, "stderr", zerolog.WarnLevel)
	defer stderr.Close()
	cmd.Stderr = stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fail(&core.ProcessError{Op: "start login", Err: err})
	}
	if err := cmd.Start(); err != nil {
		return fail(&core.ProcessError{Op: "start login", Err: err})
	}
	pid := cmd.Process.Pid
	f.log.Info().Str("executable", exe).Int("pid", pid).Msg("Login executable started")

	stopped := make(chan struct{})
	defer close(stopped)
	lines := make(chan string)
	exited := make(chan exitResult, 1)
	go func() {
		readErr := logging.ReadLines(stdout, func(line string) {
			select {
			case lines <- line:
			case <-stopped:
			}
		})
		if readErr != nil {
			f.log.Error().Err(readErr).Msg("reading login output failed")
		}
		close(lines)
		exited <- exitResult{err: exitError(cmd.Wait())}
	}()

	publish(Update{State: machine.State()})

	ticker := time.NewTicker(f.opts.PollInterval)
	defer ticker.Stop()
	var lastImage time.Time
	processGone := false

	for !machine.Terminal() {
		select {
		case <-ctx.Done():
			f.terminate(pid)
			return fail(&core.ProcessError{Op: "login cancelled", Err: ctx.Err()})

		case line, ok := <-lines:
			if !ok {
				lines = nil
				continue
			}
			f.log.Debug().Str("line", line).Msg("login output")
			if machine.Apply(StdoutLine{Text: line}) {
				publish(Update{State: machine.State()})
			}

		case res := <-exited:
			processGone = true
			f.log.Warn().Err(res.err).Msg("Login executable exited")
			machine.Apply(Exited{Err: res.err})
			publish(Update{State: machine.State(), Reason: machine.Reason()})

		case <-ticker.C:
			if img, ok := f.checkImage(lastImage); ok {
				lastImage = img.ModTime
				changed := machine.Apply(img)
				publish(Update{State: machine.State(), Image: img.Path})
				if changed {
					f.log.Info().Str("path", img.Path).Msg("QR code ready to scan")
				}
			}
			logLines, err := tailer.Poll()
			if err != nil {
				f.log.Warn().Err(err).Msg("failed to read QR log")
			}
			for _, l := range logLines {
				if machine.Apply(LogLine{Text: l}) {
					publish(Update{State: machine.State()})
					break
				}
			}
		}
	}

	if machine.State() == StateFailed {
		if !processGone {
			f.terminate(pid)
		}
		return machine.State(), machine.Reason()
	}

	f.log.Info().Msg("QR code scanned successfully")
	if err := os.Remove(f.opts.QRImage); err == nil {
		f.log.Info().Str("path", f.opts.QRImage).Msg("Deleted QR image")
	} else if !os.IsNotExist(err) {
		f.log.Warn().Err(err).Str("path", f.opts.QRImage).Msg("failed to delete QR image")
	}
	if !processGone {
		f.settle(ctx, pid, lines, exited)
	}
	return StateSuccess, nil
}

// settle lets the executable finish importing contacts, then stops it.
func (f *Flow) settle(ctx context.Context, pid int, lines <-chan string, exited <-chan exitResult) {
	grace := time.NewTimer(f.opts.Grace)
	defer grace.Stop()
	for {
		select {
		case _, ok := <-lines:
			if !ok {
				lines = nil
			}
		case <-exited:
			return
		case <-grace.C:
			f.terminate(pid)
			return
		case <-ctx.Done():
			f.terminate(pid)
			return
		}
	}
}

func (f *Flow) terminate(pid int) {
	if err := platform.TerminateTree(pid); err != nil {
		f.log.Error().Err(err).Int("pid", pid).Msg("failed to terminate login executable")
	}
}

// checkImage reports a QR image newer than seen. Files that are not yet a
// complete PNG or JPEG are skipped until the next tick.
func (f *Flow) checkImage(seen time.Time) (CodeImage, bool) {
	info, err := os.Stat(f.opts.QRImage)
	if err != nil || !info.ModTime().After(seen) {
		return CodeImage{}, false
	}
	mt, err := mimetype.DetectFile(f.opts.QRImage)
	if err != nil || !(mt.Is("image/png") || mt.Is("image/jpeg")) {
		return CodeImage{}, false
	}
	return CodeImage{Path: f.opts.QRImage, ModTime: info.ModTime()}, true
}

func exitError(err error) error {
	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &exitErr):
		return &core.ProcessError{Op: "exit", Code: exitErr.ExitCode(), Err: err}
	default:
		return &core.ProcessError{Op: "wait login", Err: err}
	}
}
