package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aussiebroadwan/sessioncache/internal/session/service"
	"github.com/stretchr/testify/require"
)

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "session.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg, err := loadConfig("", nil)
	require.NoError(t, err)
	require.Equal(t, DefaultConfig(), cfg)
	require.Equal(t, service.DefaultTimings(), cfg.Timings)
	require.False(t, cfg.Provider.Enabled())
}

func TestLoadConfig_Layers(t *testing.T) {
	path := writeYAML(t, `
port: 9090
log_format: text
store:
  driver: memory
  persist: false
timings:
  expiry_buffer: 2m
  cache_expiry: 10m
provider:
  base_url: https://idp.example.com
  client_id: from-yaml
control_limit:
  requests: 5
  window: 1s
  burst: 1
`)

	cfg, err := loadConfig(path, []string{
		"SESSION_PORT=7070",
		"SESSION_TIMING_CACHE_EXPIRY=20m",
		"SESSION_PROVIDER_CLIENT_ID=from-env",
		"SESSION_PROVIDER_SCOPES=openid email",
		"SESSION_EVENT_ORIGINS=app.example.com,*.example.net",
		"UNRELATED=1",
	})
	require.NoError(t, err)

	require.Equal(t, 7070, cfg.Port, "env wins over yaml")
	require.Equal(t, "text", cfg.LogFormat)
	require.Equal(t, DriverMemory, cfg.Store.Driver)
	require.False(t, cfg.Store.Persist)
	require.Equal(t, 2*time.Minute, cfg.Timings.ExpiryBuffer)
	require.Equal(t, 20*time.Minute, cfg.Timings.CacheExpiry)
	require.Equal(t, 30*time.Second, cfg.Timings.RefreshCooldown, "untouched defaults survive")
	require.Equal(t, "https://idp.example.com", cfg.Provider.BaseURL)
	require.Equal(t, "from-env", cfg.Provider.ClientID)
	require.Equal(t, []string{"openid", "email"}, cfg.Provider.Scopes)
	require.Equal(t, []string{"app.example.com", "*.example.net"}, cfg.EventOrigins)
	require.Equal(t, 5, cfg.ControlLimit.RequestsPerWindow)
	require.Equal(t, time.Second, cfg.ControlLimit.Window)
	require.Equal(t, DefaultConfig().ReadLimit, cfg.ReadLimit)
}

func TestLoadConfig_FromEnvironment(t *testing.T) {
	t.Setenv(ConfigFileEnv, writeYAML(t, "log_level: debug\n"))
	t.Setenv("SESSION_STORE_DRIVER", "memory")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, DriverMemory, cfg.Store.Driver)
}

func TestLoadConfig_EmptyFile(t *testing.T) {
	cfg, err := loadConfig(writeYAML(t, ""), nil)
	require.NoError(t, err)
	require.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		environ []string
	}{
		{name: "unknown yaml key", yaml: "prot: 8080\n"},
		{name: "bad yaml", yaml: "port: [\n"},
		{name: "bad env duration", environ: []string{"SESSION_TIMING_EXPIRY_BUFFER=soon"}},
		{name: "unknown driver", environ: []string{"SESSION_STORE_DRIVER=redis"}},
		{name: "sqlite without dsn", yaml: "store:\n  dsn: \"\"\n"},
		{name: "port out of range", environ: []string{"SESSION_PORT=70000"}},
		{name: "bad log format", environ: []string{"SESSION_LOG_FORMAT=xml"}},
		{name: "provider without client id", environ: []string{"SESSION_PROVIDER_BASE_URL=https://idp"}},
		{name: "grace exceeds max background", environ: []string{
			"SESSION_TIMING_BACKGROUND_GRACE_PERIOD=48h",
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := ""
			if tt.yaml != "" {
				path = writeYAML(t, tt.yaml)
			}
			_, err := loadConfig(path, tt.environ)
			require.ErrorIs(t, err, ErrConfig)
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	require.ErrorIs(t, err, ErrConfig)
}
