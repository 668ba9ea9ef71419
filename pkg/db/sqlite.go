package db

import (
	"Beacon/pkg/models"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cenkalti/backoff/v4"
	"github.com/glebarez/sqlite"
	_ "github.com/mattn/go-sqlite3" // registers the cgo "sqlite3" driver
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	// DriverPure is the modernc-based driver, no cgo required.
	DriverPure = "sqlite"
	// DriverCgo is mattn/go-sqlite3.
	DriverCgo = "sqlite3"

	busyTimeoutMillis = 5000
	migrateRetries    = 5
)

// Options selects the database file and driver.
type Options struct {
	Path   string
	Driver string
	Logger zerolog.Logger
}

// Open opens the SQLite database and migrates the contacts, groups and
// group_contacts tables. The tables may already exist, created by the login
// executable; AutoMigrate only adds what is missing.
func Open(ctx context.Context, opts Options) (*gorm.DB, error) {
	if err := os.MkdirAll(filepath.Dir(opts.Path), 0750); err != nil {
		return nil, fmt.Errorf("could not create db directory: %w", err)
	}

	dialector, err := dialectorFor(opts)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// The login executable writes contacts into the same file and may hold the lock.
	migrate := func() error {
		err := db.WithContext(ctx).AutoMigrate(
			&models.Contact{},
			&models.Group{},
			&models.GroupContact{},
		)
		if err != nil && !isBusy(err) {
			return backoff.Permanent(err)
		}
		if err != nil {
			opts.Logger.Warn().Err(err).Msg("database is locked, retrying migration")
		}
		return err
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), migrateRetries), ctx)
	if err := backoff.Retry(migrate, policy); err != nil {
		Close(db)
		return nil, fmt.Errorf("failed to auto-migrate database schema: %w", err)
	}

	opts.Logger.Info().Str("path", opts.Path).Str("driver", opts.Driver).Msg("Database connection successful and schema migrated")
	return db, nil
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) {
	if db == nil {
		return
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func dialectorFor(opts Options) (gorm.Dialector, error) {
	switch opts.Driver {
	case "", DriverPure:
		return sqlite.Open(fmt.Sprintf("%s?_pragma=busy_timeout(%d)", opts.Path, busyTimeoutMillis)), nil
	case DriverCgo:
		return &sqlite.Dialector{
			DriverName: DriverCgo,
			DSN:        fmt.Sprintf("%s?_busy_timeout=%d", opts.Path, busyTimeoutMillis),
		}, nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", opts.Driver)
	}
}

func isBusy(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}
