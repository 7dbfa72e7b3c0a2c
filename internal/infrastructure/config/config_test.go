package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/auditflow/internal/domain/sampling"
	"github.com/eshaffer321/auditflow/internal/domain/variance"
)

func TestLoad_YAMLWithEnvExpansion(t *testing.T) {
	t.Setenv("TEST_AUDIT_DB", "engagements.db")

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
storage:
  database_path: ${TEST_AUDIT_DB}
server:
  port: 9090
  allowed_origins:
    - https://audit.example.com
variance:
  moderate_pct: 5
  significant_pct: 15
sampling:
  percentage: 20
  seed: 42
observability:
  logging:
    level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "engagements.db", cfg.Storage.DatabasePath)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 8081, cfg.Server.DashboardPort)
	assert.Equal(t, []string{"https://audit.example.com"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, variance.Thresholds{Moderate: 5, Significant: 15}, cfg.Variance.Thresholds())
	assert.Equal(t, uint64(42), cfg.Sampling.Seed)
	assert.Equal(t, "debug", cfg.Observability.Logging.Level)

	params := cfg.Sampling.Params(sampling.StrategyStratified)
	assert.Equal(t, 20.0, params.Percentage)
	assert.Equal(t, sampling.DefaultHighThreshold, params.HighThreshold)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("storage: [unclosed"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("AUDITFLOW_DB_PATH", "test.db")
	t.Setenv("AUDITFLOW_PORT", "7000")
	t.Setenv("AUDITFLOW_ALLOWED_ORIGINS", "http://a.test, http://b.test")
	t.Setenv("VARIANCE_SIGNIFICANT_PCT", "30")
	t.Setenv("SAMPLING_SEED", "7")

	cfg := LoadFromEnv()
	assert.Equal(t, "test.db", cfg.Storage.DatabasePath)
	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 30.0, cfg.Variance.SignificantPct)
	assert.Equal(t, variance.DefaultModeratePct, cfg.Variance.ModeratePct)
	assert.Equal(t, uint64(7), cfg.Sampling.Seed)
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	t.Setenv("AUDITFLOW_DB_PATH", "")
	t.Setenv("LOG_LEVEL", "")

	cfg := LoadFromEnv()
	assert.Equal(t, "auditflow.db", cfg.Storage.DatabasePath)
	assert.Equal(t, "info", cfg.Observability.Logging.Level)
	assert.Equal(t, variance.DefaultThresholds(), cfg.Variance.Thresholds())
}

func TestLoadOrEnv_FallbackToEnv(t *testing.T) {
	t.Setenv("AUDITFLOW_DB_PATH", "fallback.db")

	cfg := LoadOrEnv_WithPath(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	require.NotNil(t, cfg)
	assert.Equal(t, "fallback.db", cfg.Storage.DatabasePath)
}

func TestVarianceConfig_ZeroValuesUseDefaults(t *testing.T) {
	assert.Equal(t, variance.DefaultThresholds(), VarianceConfig{}.Thresholds())
}
