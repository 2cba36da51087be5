package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CLEANSLATE_AUDIT_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8000", cfg.Address)
	assert.Equal(t, "/data/watch", cfg.WatchDir)
	assert.Equal(t, "/data/clean", cfg.OutputDir)
	assert.Equal(t, "gdrive", cfg.RemoteName)
	assert.Equal(t, "backups", cfg.RemotePath)
	assert.Equal(t, 500*time.Millisecond, cfg.SettleDelay)
	assert.False(t, cfg.AuditEnabled)
	assert.False(t, cfg.Verbose)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("CLEANSLATE_WATCH_DIR", "/tmp/in")
	t.Setenv("CLEANSLATE_OUTPUT_DIR", "/tmp/out")
	t.Setenv("CLEANSLATE_REMOTE_NAME", "s3")
	t.Setenv("CLEANSLATE_REMOTE_PATH", "archive/photos")
	t.Setenv("CLEANSLATE_AUDIT_ENABLED", "yes")
	t.Setenv("CLEANSLATE_PROJECT_ID", "test-project")
	t.Setenv("CLEANSLATE_SETTLE_DELAY", "2s")
	t.Setenv("CLEANSLATE_VERBOSE", "1")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/in", cfg.WatchDir)
	assert.Equal(t, "/tmp/out", cfg.OutputDir)
	assert.Equal(t, "s3:archive/photos", cfg.RemoteDest())
	assert.True(t, cfg.AuditEnabled)
	assert.Equal(t, "test-project", cfg.ProjectID)
	assert.Equal(t, 2*time.Second, cfg.SettleDelay)
	assert.True(t, cfg.Verbose)
}

func TestLoad_InvalidBool(t *testing.T) {
	t.Setenv("CLEANSLATE_AUDIT_ENABLED", "maybe")

	_, err := Load()
	require.Error(t, err)

	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "CLEANSLATE_AUDIT_ENABLED", cfgErr.Key)
}

func TestLoad_InvalidDuration(t *testing.T) {
	t.Setenv("CLEANSLATE_AUDIT_ENABLED", "false")
	t.Setenv("CLEANSLATE_SETTLE_DELAY", "not-a-duration")

	_, err := Load()
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "CLEANSLATE_SETTLE_DELAY", cfgErr.Key)
}

func TestLoad_ProjectIDRequiredWhenAuditEnabled(t *testing.T) {
	t.Setenv("CLEANSLATE_AUDIT_ENABLED", "true")
	t.Setenv("CLEANSLATE_PROJECT_ID", "")

	_, err := Load()
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "CLEANSLATE_PROJECT_ID", cfgErr.Key)
}

func TestLoad_WhitespaceTrimmed(t *testing.T) {
	t.Setenv("CLEANSLATE_AUDIT_ENABLED", "false")
	t.Setenv("CLEANSLATE_REMOTE_NAME", "  b2  ")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "b2", cfg.RemoteName)
}
