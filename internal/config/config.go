package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/teemow/calsheet/internal/scheduler"
)

// Defaults.
const (
	DefaultAccount          = "default"
	DefaultTimezone         = "UTC"
	DefaultCompleteColor    = "10"
	DefaultIncompleteColor  = "11"
	DefaultNewEventDuration = time.Hour
	DefaultMetricsAddr      = ":9090"
)

// Environment variables that override file values.
const (
	EnvAccount          = "CALSHEET_ACCOUNT"
	EnvTimezone         = "CALSHEET_TIMEZONE"
	EnvRefreshSchedule  = "CALSHEET_REFRESH_SCHEDULE"
	EnvCompleteColor    = "CALSHEET_COMPLETE_COLOR"
	EnvIncompleteColor  = "CALSHEET_INCOMPLETE_COLOR"
	EnvNewEventDuration = "CALSHEET_NEW_EVENT_DURATION"
	EnvTokenDir         = "CALSHEET_TOKEN_DIR"
	EnvClientID         = "GOOGLE_CLIENT_ID"
	EnvClientSecret     = "GOOGLE_CLIENT_SECRET"
	EnvMetricsEnabled   = "METRICS_ENABLED"
	EnvMetricsAddr      = "METRICS_ADDR"
)

// GoogleConfig holds the OAuth client registration.
type GoogleConfig struct {
	ClientID     string `yaml:"client_id,omitempty"`
	ClientSecret string `yaml:"client_secret,omitempty"`
	// TokenDir overrides where tokens are stored.
	TokenDir string `yaml:"token_dir,omitempty"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr" validate:"omitempty,hostname_port"`
}

// Config is the top-level application configuration.
type Config struct {
	// Account selects the stored Google token.
	Account string `yaml:"account" validate:"required,account_name"`

	// Timezone is the IANA zone used for week boundaries and weekday
	// bucketing. Unknown zones fall back to UTC.
	Timezone string `yaml:"timezone"`

	// RefreshSchedule is a five-field cron spec or descriptor such as
	// "@every 1h".
	RefreshSchedule string `yaml:"refresh_schedule" validate:"required,cron_spec"`

	// CompleteColor and IncompleteColor are the calendar colorIds used to
	// mark events.
	CompleteColor   string `yaml:"complete_color" validate:"required,numeric"`
	IncompleteColor string `yaml:"incomplete_color" validate:"required,numeric,nefield=CompleteColor"`

	// NewEventDuration is the length of events created from the timesheet.
	NewEventDuration time.Duration `yaml:"new_event_duration" validate:"gte=1m"`

	Google  GoogleConfig  `yaml:"google"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// Default returns an in-memory default configuration.
func Default() *Config {
	return &Config{
		Account:          DefaultAccount,
		Timezone:         DefaultTimezone,
		RefreshSchedule:  scheduler.DefaultSchedule,
		CompleteColor:    DefaultCompleteColor,
		IncompleteColor:  DefaultIncompleteColor,
		NewEventDuration: DefaultNewEventDuration,
		Metrics: MetricsConfig{
			Addr: DefaultMetricsAddr,
		},
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/calsheet/config.yaml or the platform
// equivalent.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "calsheet", "config.yaml")
}

// Load builds the configuration from defaults, the YAML file at path and the
// environment, then validates it. An empty path selects DefaultPath.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}

	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from environment variables read through lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	strs := []struct {
		key string
		dst *string
	}{
		{EnvAccount, &c.Account},
		{EnvTimezone, &c.Timezone},
		{EnvRefreshSchedule, &c.RefreshSchedule},
		{EnvCompleteColor, &c.CompleteColor},
		{EnvIncompleteColor, &c.IncompleteColor},
		{EnvTokenDir, &c.Google.TokenDir},
		{EnvClientID, &c.Google.ClientID},
		{EnvClientSecret, &c.Google.ClientSecret},
		{EnvMetricsAddr, &c.Metrics.Addr},
	}
	for _, s := range strs {
		if v, ok := lookup(s.key); ok && v != "" {
			*s.dst = v
		}
	}

	if v, ok := lookup(EnvNewEventDuration); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvNewEventDuration, err)
		}
		c.NewEventDuration = d
	}
	if v, ok := lookup(EnvMetricsEnabled); ok && v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvMetricsEnabled, err)
		}
		c.Metrics.Enabled = enabled
	}
	return nil
}

// Location resolves Timezone. An empty or unknown zone yields UTC; the
// unknown case is logged.
func (c *Config) Location(logger *slog.Logger) *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		if logger == nil {
			logger = slog.Default()
		}
		logger.Warn("Unknown timezone, falling back to UTC",
			slog.String("timezone", c.Timezone),
			slog.String("error", err.Error()))
		return time.UTC
	}
	return loc
}

// Save writes cfg to path as YAML with 0600 permissions, creating the parent
// directory. The file is replaced atomically.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".calsheet-config-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return fmt.Errorf("failed to set config permissions: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace config: %w", err)
	}
	return nil
}
