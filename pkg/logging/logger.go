// Package logging provides zerolog loggers for the application components.
// Each component gets its own log file stored in the log directory.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Registry hands out one logger per component and owns their files.
type Registry struct {
	dir     string
	level   zerolog.Level
	console io.Writer
	mu      sync.Mutex
	files   map[string]*os.File
	loggers map[string]zerolog.Logger
}

// NewRegistry creates the log directory. console may be nil for file-only logging.
func NewRegistry(dir, level string, console io.Writer) (*Registry, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	zerolog.TimeFieldFormat = time.RFC3339Nano

	return &Registry{
		dir:     dir,
		level:   lvl,
		console: console,
		files:   make(map[string]*os.File),
		loggers: make(map[string]zerolog.Logger),
	}, nil
}

// Get returns the logger for a component, creating <dir>/<component>.log on first use.
// If the file cannot be opened the logger writes to the console only.
func (r *Registry) Get(component string) zerolog.Logger {
	r.mu.Lock()
	defer r.mu.Unlock()

	if logger, ok := r.loggers[component]; ok {
		return logger
	}

	var writers []io.Writer
	if r.console != nil {
		writers = append(writers, zerolog.ConsoleWriter{Out: r.console, TimeFormat: time.Kitchen})
	}

	path := filepath.Join(r.dir, component+".log")
	file, fileErr := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0640)
	if fileErr == nil {
		r.files[component] = file
		writers = append(writers, file)
	}

	logger := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(r.level).
		With().
		Timestamp().
		Str("component", component).
		Logger()
	if fileErr != nil {
		logger.Warn().Err(fileErr).Str("path", path).Msg("Failed to open log file, logging to console only")
	}

	r.loggers[component] = logger
	return logger
}

// Dir returns the log directory.
func (r *Registry) Dir() string {
	return r.dir
}

// Close closes every log file. Loggers handed out before keep working on the console.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var firstErr error
	for component, file := range r.files {
		if err := file.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing %s log: %w", component, err)
		}
	}
	r.files = make(map[string]*os.File)
	r.loggers = make(map[string]zerolog.Logger)
	return firstErr
}

// CleanupOldLogs removes .log files older than the given number of days.
// It returns the number of files removed.
func CleanupOldLogs(dir string, days int) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read log directory: %w", err)
	}

	cutoff := time.Now().AddDate(0, 0, -days)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".log" {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(dir, entry.Name())); err == nil {
				removed++
			}
		}
	}
	return removed, nil
}
