package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chdirTemp(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, int32(10), cfg.Store.MaxConns)
	assert.Equal(t, int32(2), cfg.Store.MinConns)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 500, cfg.Reclassify.BatchSize)
	assert.Zero(t, cfg.Reclassify.MaxPermitsPerSecond)
	assert.InDelta(t, 0.05, cfg.Monitoring.ErrorRateThreshold, 0.0001)
	assert.Equal(t, 20, cfg.Monitoring.MinPermits)
	assert.Empty(t, cfg.Classify.RulesFile)
	assert.Empty(t, cfg.Classify.AsOf)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
  database_url: permits.db
classify:
  rules_file: rules.yaml
  as_of: "2024-06-01T00:00:00Z"
reclassify:
  batch_size: 250
  max_permits_per_second: 50
log:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "permits.db", cfg.Store.DatabaseURL)
	assert.Equal(t, "rules.yaml", cfg.Classify.RulesFile)
	assert.Equal(t, 250, cfg.Reclassify.BatchSize)
	assert.InDelta(t, 50.0, cfg.Reclassify.MaxPermitsPerSecond, 0.001)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	// Defaults still apply for unset values
	assert.Equal(t, 20, cfg.Monitoring.MinPermits)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("PERMITS_STORE_DRIVER", "postgres")
	t.Setenv("PERMITS_LOG_LEVEL", "warn")

	cfg, err := Load("")
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chdirTemp(t)

	t.Setenv("PERMITS_RECLASSIFY_BATCH_SIZE", "1000")
	t.Setenv("PERMITS_MONITORING_WEBHOOK_URL", "https://hooks.example.com/permits")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 1000, cfg.Reclassify.BatchSize)
	assert.Equal(t, "https://hooks.example.com/permits", cfg.Monitoring.WebhookURL)
}

func TestLoadMalformedFile(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("store: [unclosed"), 0644))

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read file")
}

func TestLoadExplicitFile(t *testing.T) {
	chdirTemp(t)
	path := filepath.Join(t.TempDir(), "permits.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store:\n  driver: sqlite\nreclassify:\n  batch_size: 50\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, 50, cfg.Reclassify.BatchSize)
}

func TestLoadExplicitFileMissing(t *testing.T) {
	chdirTemp(t)

	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read file")
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

func TestAsOfTime(t *testing.T) {
	got, err := ClassifyConfig{}.AsOfTime()
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	got, err = ClassifyConfig{AsOf: "2024-06-01T00:00:00Z"}.AsOfTime()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), got)

	_, err = ClassifyConfig{AsOf: "June 1"}.AsOfTime()
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Store.Driver = "postgres"
	cfg.Store.MaxConns = 10
	cfg.Store.MinConns = 2
	cfg.Reclassify.BatchSize = 500
	cfg.Monitoring.ErrorRateThreshold = 0.05
	cfg.Monitoring.MinPermits = 20
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		scope   string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "store requires database url",
			scope:   "store",
			mutate:  func(*Config) {},
			wantErr: "store.database_url is required",
		},
		{
			name:   "store ok",
			scope:  "store",
			mutate: func(c *Config) { c.Store.DatabaseURL = "postgres://localhost/permits" },
		},
		{
			name:  "sqlite ok",
			scope: "store",
			mutate: func(c *Config) {
				c.Store.Driver = "sqlite"
				c.Store.DatabaseURL = "permits.db"
			},
		},
		{
			name:  "unknown driver",
			scope: "store",
			mutate: func(c *Config) {
				c.Store.Driver = "mysql"
				c.Store.DatabaseURL = "x"
			},
			wantErr: "store.driver must be postgres or sqlite",
		},
		{
			name:  "conns inverted",
			scope: "store",
			mutate: func(c *Config) {
				c.Store.DatabaseURL = "postgres://localhost/permits"
				c.Store.MinConns = 20
			},
			wantErr: "min_conns must not exceed",
		},
		{
			name:  "batch size bounds",
			scope: "reclassify",
			mutate: func(c *Config) {
				c.Store.DatabaseURL = "postgres://localhost/permits"
				c.Reclassify.BatchSize = 0
			},
			wantErr: "reclassify.batch_size must be between 1 and 10000",
		},
		{
			name:  "negative rate",
			scope: "reclassify",
			mutate: func(c *Config) {
				c.Store.DatabaseURL = "postgres://localhost/permits"
				c.Reclassify.MaxPermitsPerSecond = -1
			},
			wantErr: "max_permits_per_second must be >= 0",
		},
		{
			name:   "offline needs no store",
			scope:  "offline",
			mutate: func(*Config) {},
		},
		{
			name:    "bad as_of",
			scope:   "offline",
			mutate:  func(c *Config) { c.Classify.AsOf = "yesterday" },
			wantErr: "classify.as_of must be RFC3339",
		},
		{
			name:    "threshold out of range",
			scope:   "offline",
			mutate:  func(c *Config) { c.Monitoring.ErrorRateThreshold = 1.5 },
			wantErr: "error_rate_threshold must be between 0 and 1",
		},
		{
			name:    "unknown mode",
			scope:   "serve",
			mutate:  func(*Config) {},
			wantErr: "unknown mode",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validDefaults()
			tt.mutate(cfg)
			err := cfg.Validate(tt.scope)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
