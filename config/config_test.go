package config

import (
	"testing"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	var cfg AppConfig
	require.NoError(t, env.Parse(&cfg))
	cfg.Sanitize()

	assert.False(t, cfg.IsDev)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, "localhost", cfg.Postgres.Host)
	assert.Equal(t, 5432, cfg.Postgres.Port)
	assert.True(t, cfg.Postgres.RunMigrationsOnStart)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 7*time.Second, cfg.Auth.Consumer.PromptTimeout)
	assert.Equal(t, "http://localhost:9090/", cfg.Devices.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.Devices.ListCacheTTL)
	assert.Equal(t, "points[*].{t: ts, v: value}", cfg.Devices.TrendPointsExpr)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ENTERPRISE_CLIENT_ID", "ent-client")
	t.Setenv("ENTERPRISE_CLIENT_SECRET", "ent-secret")
	t.Setenv("ENTERPRISE_AUTHORITY", "https://login.example.com/tenant/")
	t.Setenv("CONSUMER_CLIENT_ID", "consumer-client")
	t.Setenv("CONSUMER_PROMPT_TIMEOUT", "12s")
	t.Setenv("DIRECTORY_BASE_URL", "https://directory.example.com/")
	t.Setenv("DIRECTORY_POOL_ID", "pool-1")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "5433")
	t.Setenv("REDIS_ADDR", "redis.internal:6380")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("API_BASE_URL", "https://api.example.com")

	var cfg AppConfig
	require.NoError(t, env.Parse(&cfg))
	cfg.Sanitize()

	assert.Equal(t, "ent-client", cfg.Auth.Enterprise.ClientID)
	// Trailing slashes are normalised away from issuer-style URLs.
	assert.Equal(t, "https://login.example.com/tenant", cfg.Auth.Enterprise.Authority)
	assert.Equal(t, 12*time.Second, cfg.Auth.Consumer.PromptTimeout)
	assert.Equal(t, "https://directory.example.com", cfg.Auth.Directory.BaseURL)
	assert.Equal(t, "pool-1", cfg.Auth.Directory.PoolID)
	assert.Equal(t, "db.internal", cfg.Postgres.Host)
	assert.Equal(t, 5433, cfg.Postgres.Port)
	assert.Equal(t, "redis.internal:6380", cfg.Redis.Addr)
	assert.Equal(t, 3, cfg.Redis.DB)
	// The backend base URL always carries a trailing slash.
	assert.Equal(t, "https://api.example.com/", cfg.Devices.BaseURL)
}

func TestDevModeFromNodeEnv(t *testing.T) {
	t.Setenv("NODE_ENV", "development")

	var cfg AppConfig
	require.NoError(t, env.Parse(&cfg))
	cfg.Sanitize()
	assert.True(t, cfg.IsDev)
}

func TestSanitizeGuardrails(t *testing.T) {
	var cfg AppConfig
	require.NoError(t, env.Parse(&cfg))
	cfg.Auth.Consumer.PromptTimeout = -time.Second
	cfg.Devices.ListCacheTTL = 0
	cfg.Sanitize()

	assert.Equal(t, 7*time.Second, cfg.Auth.Consumer.PromptTimeout)
	assert.Equal(t, 30*time.Second, cfg.Devices.ListCacheTTL)
}
