// Package session decides whether the user is logged in.
package session

import (
	"Beacon/pkg/core"
	"Beacon/pkg/models"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog"
)

// Mode is the top-level mode chosen at startup.
type Mode string

const (
	ModeMain  Mode = "main"
	ModeLogin Mode = "login"
)

// ReadStatus parses the status file. Every failure is an ErrStatusRead.
func ReadStatus(path string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("%w: %v", core.ErrStatusRead, err)
	}
	var status models.SessionStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return false, fmt.Errorf("%w: %v", core.ErrStatusRead, err)
	}
	if status.LoggedIn == nil {
		return false, fmt.Errorf("%w: loggedIn field is missing", core.ErrStatusRead)
	}
	return *status.LoggedIn, nil
}

// CheckStatus returns the stored loggedIn flag. An absent, unreadable or
// malformed file means not logged in; it never reports an error.
func CheckStatus(path string, log zerolog.Logger) bool {
	loggedIn, err := ReadStatus(path)
	if err != nil {
		log.Debug().Err(err).Str("path", path).Msg("Client not logged in")
		return false
	}
	log.Info().Bool("logged_in", loggedIn).Msg("Client status checked")
	return loggedIn
}

// Gate chooses the startup mode from the status file.
type Gate struct {
	path string
	log  zerolog.Logger
}

func NewGate(path string, log zerolog.Logger) *Gate {
	return &Gate{path: path, log: log}
}

// Decide returns ModeMain when logged in, ModeLogin otherwise.
func (g *Gate) Decide() Mode {
	if CheckStatus(g.path, g.log) {
		return ModeMain
	}
	return ModeLogin
}
