package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/storyline_test")
	t.Setenv("ENVIRONMENT", "")
	t.Setenv("INGESTION_INTERVAL", "")
	t.Setenv("CACHING", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Environment)
	assert.Equal(t, 4004, cfg.Port)
	assert.Equal(t, 8, cfg.RedisDB)
	assert.Equal(t, 6*time.Hour, cfg.IngestionInterval)
	assert.False(t, cfg.CachingDisabled)
	assert.Equal(t, []int64{1}, cfg.AdminUserIDs)
}

func TestLoad_Production(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/storyline")
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("INGESTION_INTERVAL", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9, cfg.RedisDB)
	assert.Equal(t, time.Hour, cfg.IngestionInterval)
	assert.Contains(t, cfg.APIBaseURL(), "dav-backend")
}

func TestLoad_IntervalOverride(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/storyline_test")
	t.Setenv("ENVIRONMENT", "staging")
	t.Setenv("INGESTION_INTERVAL", "30s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.IngestionInterval)
}

func TestLoad_CachingDisabled(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/storyline_test")
	t.Setenv("CACHING", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.CachingDisabled)
}

func TestLoad_RequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	_, err := Load()
	require.Error(t, err)
}

func TestLoad_UnknownEnvironment(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/storyline_test")
	t.Setenv("ENVIRONMENT", "sandbox")

	_, err := Load()
	require.Error(t, err)
}

func TestIsAdmin(t *testing.T) {
	cfg := &Config{AdminUserIDs: []int64{1, 42}}

	assert.True(t, cfg.IsAdmin(1))
	assert.True(t, cfg.IsAdmin(42))
	assert.False(t, cfg.IsAdmin(7))
}
