package app

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/aussiebroadwan/sessioncache/internal/session/service"
	"github.com/aussiebroadwan/sessioncache/pkg/httpx"
	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// ErrConfig is wrapped by every configuration error.
var ErrConfig = errors.New("invalid configuration")

// ConfigFileEnv names the environment variable holding the optional YAML file path.
const ConfigFileEnv = "SESSION_CONFIG_FILE"

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Env       string `yaml:"env" env:"ENV"`               // dev, staging, prod (default: dev)
	LogLevel  string `yaml:"log_level" env:"LOG_LEVEL"`   // debug, info, warn, error (default: info)
	LogFormat string `yaml:"log_format" env:"LOG_FORMAT"` // json, text (default: json)
	Port      int    `yaml:"port" env:"PORT"`             // HTTP server port (default: 8080)

	ShutdownGracePeriod time.Duration `yaml:"shutdown_grace_period" env:"SHUTDOWN_GRACE_PERIOD"`

	Store    StoreConfig     `yaml:"store" envPrefix:"STORE_"`
	Timings  service.Timings `yaml:"timings" envPrefix:"TIMING_"`
	Provider ProviderConfig  `yaml:"provider" envPrefix:"PROVIDER_"`

	// OTelEndpoint enables OTLP/HTTP trace export when set.
	OTelEndpoint string `yaml:"otel_endpoint" env:"OTEL_ENDPOINT"`

	ControlLimit httpx.RateLimitConfig `yaml:"control_limit" envPrefix:"CONTROL_LIMIT_"`
	ReadLimit    httpx.RateLimitConfig `yaml:"read_limit" envPrefix:"READ_LIMIT_"`

	// EventOrigins are extra origin patterns accepted by /v1/events.
	EventOrigins []string `yaml:"event_origins" env:"EVENT_ORIGINS" envSeparator:","`
}

type StoreConfig struct {
	Driver string `yaml:"driver" env:"DRIVER"` // memory, sqlite, postgres (default: sqlite)
	DSN    string `yaml:"dsn" env:"DSN"`       // sqlite file path or postgres URL (default: session.db)
	// Persist mirrors cached snapshots and lifecycle records into the store.
	Persist bool `yaml:"persist" env:"PERSIST"`
	// MasterKeyFile enables at-rest sealing of stored values.
	MasterKeyFile string `yaml:"master_key_file" env:"MASTER_KEY_FILE"`
}

type ProviderConfig struct {
	BaseURL      string   `yaml:"base_url" env:"BASE_URL"` // empty disables the refresher
	ClientID     string   `yaml:"client_id" env:"CLIENT_ID"`
	ClientSecret string   `yaml:"client_secret" env:"CLIENT_SECRET"`
	Scopes       []string `yaml:"scopes" env:"SCOPES" envSeparator:" "`

	TokenPath          string `yaml:"token_path" env:"TOKEN_PATH"`
	ConfirmSignUpPath  string `yaml:"confirm_sign_up_path" env:"CONFIRM_SIGN_UP_PATH"`
	ForgotPasswordPath string `yaml:"forgot_password_path" env:"FORGOT_PASSWORD_PATH"`
	ReadinessPath      string `yaml:"readiness_path" env:"READINESS_PATH"`

	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// Enabled reports whether a credential provider is configured.
func (p ProviderConfig) Enabled() bool { return p.BaseURL != "" }

func DefaultConfig() Config {
	return Config{
		Env:                 "dev",
		LogLevel:            "info",
		LogFormat:           "json",
		Port:                8080,
		ShutdownGracePeriod: 10 * time.Second,
		Store: StoreConfig{
			Driver:  DriverSQLite,
			DSN:     "session.db",
			Persist: true,
		},
		Timings: service.DefaultTimings(),
		Provider: ProviderConfig{
			Scopes:  []string{"openid", "profile", "offline_access"},
			Timeout: 10 * time.Second,
		},
		ControlLimit: httpx.ControlLimit,
		ReadLimit:    httpx.ReadLimit,
	}
}

// LoadConfig builds the configuration from defaults, the YAML file named by
// SESSION_CONFIG_FILE and finally SESSION_* environment variables.
func LoadConfig() (Config, error) {
	return loadConfig(os.Getenv(ConfigFileEnv), os.Environ())
}

func loadConfig(path string, environ []string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("%w: read %s: %v", ErrConfig, path, err)
		}

		// Unknown keys are rejected. An empty file is no overrides.
		decoder := yaml.NewDecoder(bytes.NewReader(b))
		decoder.KnownFields(true)
		if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return Config{}, fmt.Errorf("%w: parse %s: %v", ErrConfig, path, err)
		}
	}

	err := env.ParseWithOptions(&cfg, env.Options{
		Prefix:      "SESSION_",
		Environment: env.ToMap(environ),
	})
	if err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error

	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	switch strings.ToLower(c.LogFormat) {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("log_format %q must be json or text", c.LogFormat))
	}
	switch c.Store.Driver {
	case DriverMemory:
	case DriverSQLite, DriverPostgres:
		if c.Store.DSN == "" {
			errs = append(errs, fmt.Errorf("store.dsn is required for the %s driver", c.Store.Driver))
		}
	default:
		errs = append(errs, fmt.Errorf("store.driver %q must be memory, sqlite or postgres", c.Store.Driver))
	}
	if err := c.Timings.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Provider.Enabled() && c.Provider.ClientID == "" {
		errs = append(errs, errors.New("provider.client_id is required when provider.base_url is set"))
	}
	if c.ShutdownGracePeriod <= 0 {
		errs = append(errs, errors.New("shutdown_grace_period must be positive"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrConfig, errors.Join(errs...))
	}
	return nil
}
