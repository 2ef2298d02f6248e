package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/subsync")
	t.Setenv("APP_ENV", "development")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "https://test-api.zotlo.com", cfg.Zotlo.BaseURL)
	assert.Equal(t, "tr", cfg.Zotlo.Language)
	assert.Equal(t, 10*time.Second, cfg.Zotlo.Timeout)
	assert.Equal(t, 3, cfg.Zotlo.RetryAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.Zotlo.RetryDelay)
	assert.Equal(t, 5*time.Minute, cfg.Sync.Interval)
	assert.Equal(t, 500, cfg.Sync.BatchSize)
	assert.Equal(t, "10 0 * * *", cfg.Report.Cron)
	assert.Equal(t, 5*time.Minute, cfg.Redis.StatusTTL)
}

func TestLoad_ProductionBaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/subsync")
	t.Setenv("APP_ENV", "production")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "https://api.zotlo.com", cfg.Zotlo.BaseURL)
}

func TestLoad_BaseURLOverride(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/subsync")
	t.Setenv("APP_ENV", "production")
	t.Setenv("ZOTLO_BASE_URL", "http://zotlo.local")
	t.Setenv("ZOTLO_RETRY_ATTEMPTS", "0")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://zotlo.local", cfg.Zotlo.BaseURL)
	assert.Equal(t, 1, cfg.Zotlo.RetryAttempts)
}

func TestLoad_RequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	_, err := Load()
	assert.ErrorIs(t, err, ErrMissingDatabaseURL)
}

func TestLoad_RejectsNonPositiveBatch(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/subsync")
	t.Setenv("SYNC_BATCH_SIZE", "0")

	_, err := Load()
	assert.Error(t, err)
}
