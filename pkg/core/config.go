package core

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds every path and tunable used by the components.
// It is built once at startup and passed down explicitly.
type Config struct {
	DBPath   string `env:"BEACON_DB_PATH,default=contacts.db" validate:"required"`
	DBDriver string `env:"BEACON_DB_DRIVER,default=sqlite" validate:"oneof=sqlite sqlite3"`

	StatusFile  string `env:"BEACON_STATUS_FILE,default=client_status.json" validate:"required"`
	RequestFile string `env:"BEACON_REQUEST_FILE,default=message_data.json" validate:"required"`
	MessagesLog string `env:"BEACON_MESSAGES_LOG,default=logs/messages.log" validate:"required"`
	QRImage     string `env:"BEACON_QR_IMAGE,default=qrcode.png" validate:"required"`
	QRLog       string `env:"BEACON_QR_LOG,default=logs/qr_log.log" validate:"required"`

	ResourceDir    string `env:"BEACON_RESOURCE_DIR,default=." validate:"required"`
	SenderBasename string `env:"BEACON_SENDER,default=sendmessage" validate:"required"`
	LoginBasename  string `env:"BEACON_LOGIN,default=qrcode" validate:"required"`

	PollInterval    time.Duration `env:"BEACON_POLL_INTERVAL,default=1s" validate:"gt=0"`
	LoginGrace      time.Duration `env:"BEACON_LOGIN_GRACE,default=10s" validate:"gte=0"`
	ShutdownTimeout time.Duration `env:"BEACON_SHUTDOWN_TIMEOUT,default=5s" validate:"gt=0"`

	LogDir           string `env:"BEACON_LOG_DIR"`
	LogLevel         string `env:"BEACON_LOG_LEVEL,default=info" validate:"oneof=trace debug info warn error"`
	LogRetentionDays int    `env:"BEACON_LOG_RETENTION_DAYS,default=7" validate:"gte=0"`

	MetricsAddr string `env:"BEACON_METRICS_ADDR"`
}

var validate = validator.New()

// LoadConfig reads an optional .env file, then the environment.
func LoadConfig() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return Config{}, fmt.Errorf("config error: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field constraints and fills the default log directory.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if c.LogDir == "" {
		dir, err := DefaultLogDir()
		if err != nil {
			return err
		}
		c.LogDir = dir
	}
	return nil
}

// DefaultLogDir is <UserConfigDir>/Beacon/logs.
func DefaultLogDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("could not get user config dir: %w", err)
	}
	return filepath.Join(configDir, "Beacon", "logs"), nil
}
