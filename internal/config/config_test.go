package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "budget-sync.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "0.01", cfg.ProcessingOptions().VarianceTolerance.String())
	v := cfg.ValidationOptions()
	assert.Equal(t, "0", v.PnWRateMin.String())
	assert.Equal(t, "1", v.PnWRateMax.String())
	assert.Equal(t, time.Second, cfg.SheetsOptions().BaseDelay)
}

func TestLoad_FileOverDefaults(t *testing.T) {
	path := writeConfig(t, `
[logging]
level = "debug"
format = "json"

[validation]
variance_tolerance = "0.05"
pnw_rate_max = "0.5"

[versioning]
backend = "sqlite"
path = "/var/lib/budget-sync/versions.db"

[bigquery]
enabled = true
project_id = "acme-prod"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "0.05", cfg.ProcessingOptions().VarianceTolerance.String())
	assert.Equal(t, "0.5", cfg.ValidationOptions().PnWRateMax.String())
	assert.Equal(t, BackendSQLite, cfg.Versioning.Backend)
	assert.True(t, cfg.BigQuery.Enabled)
	// Untouched keys keep their defaults.
	assert.Equal(t, "budgets", cfg.BigQuery.DatasetID)
	assert.Equal(t, 8080, cfg.API.Port)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("BUDGET_SYNC_API_PORT", "9090")
	t.Setenv("BUDGET_SYNC_STORAGE_BUCKET", "acme-budgets")
	t.Setenv("BUDGET_SYNC_VERSIONING_BACKEND", "file")
	t.Setenv("BUDGET_SYNC_VERSIONING_PATH", "/tmp/versions")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.API.Port)
	assert.Equal(t, "acme-budgets", cfg.Storage.Bucket)
	assert.Equal(t, BackendFile, cfg.Versioning.Backend)
	assert.Equal(t, "/tmp/versions", cfg.Versioning.Path)
}

func TestLoad_BadEnv(t *testing.T) {
	t.Setenv("BUDGET_SYNC_API_WORKERS", "many")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BUDGET_SYNC_API_WORKERS")
}

func TestLoad_UnknownKey(t *testing.T) {
	path := writeConfig(t, `
[versioning]
backend = "memory"
retention = 3
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown configuration keys")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }, "logging"},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }, "logging"},
		{"bad delay", func(c *Config) { c.Sheets.BaseDelay = "soon" }, "sheets.base_delay"},
		{"tolerance not decimal", func(c *Config) { c.Validation.VarianceTolerance = "a cent" }, "variance_tolerance"},
		{"negative tolerance", func(c *Config) { c.Validation.VarianceTolerance = "-1" }, "must not be negative"},
		{"inverted pnw bounds", func(c *Config) { c.Validation.PnWRateMin = "0.6"; c.Validation.PnWRateMax = "0.5" }, "exceeds"},
		{"unknown backend", func(c *Config) { c.Versioning.Backend = "redis" }, "versioning.backend"},
		{"file without path", func(c *Config) { c.Versioning.Backend = BackendFile }, "versioning.path"},
		{"bigquery without project", func(c *Config) { c.BigQuery.Enabled = true }, "bigquery.project_id"},
		{"port out of range", func(c *Config) { c.API.Port = 70000 }, "api.port"},
		{"no workers", func(c *Config) { c.API.Workers = 0 }, "api.workers"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestEncode_RoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Storage.Bucket = "acme-budgets"

	data, err := cfg.Encode()
	require.NoError(t, err)

	var back Config
	require.NoError(t, Decode(data, &back))
	assert.Equal(t, cfg, back)
}
