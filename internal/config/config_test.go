package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, "redis", cfg.CacheBackend)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
	assert.Equal(t, 24*time.Hour, cfg.DueSoonWindow)
	assert.Equal(t, 5, cfg.MaxFilesPerUpload)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr())
	assert.False(t, cfg.IsProduction())
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("CACHE_BACKEND", "memory")
	t.Setenv("CACHE_TTL", "30s")
	t.Setenv("GIN_MODE", "release")
	t.Setenv("WS_ORIGIN_PATTERNS", "app.example.com *.example.org")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, "memory", cfg.CacheBackend)
	assert.Equal(t, 30*time.Second, cfg.CacheTTL)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, []string{"app.example.com", "*.example.org"}, cfg.WSOriginPatterns)
}

func TestLoad_RejectsUnknownDriver(t *testing.T) {
	t.Setenv("DB_DRIVER", "oracle")

	_, err := Load()
	assert.Error(t, err)
}
