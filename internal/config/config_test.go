package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()
	assert.Equal(t, ":8080", cfg.APIAddr)
	assert.Equal(t, "memory", cfg.StoreBackend)
	assert.Equal(t, 30*time.Second, cfg.SignatureMaxAge)
	require.NoError(t, cfg.Validate())
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("API_ADDR", ":9090")
	t.Setenv("DEV_MODE", "true")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("SIGNATURE_MAX_SKEW", "1m")
	t.Setenv("RATE_LIMIT", "2.5")
	t.Setenv("STORE_BACKEND", "redis")
	t.Setenv("INIT_FEE_BPS", "not-a-number")

	cfg := Load()
	assert.Equal(t, ":9090", cfg.APIAddr)
	assert.True(t, cfg.DevMode)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.Equal(t, time.Minute, cfg.SignatureMaxAge)
	assert.Equal(t, 2.5, cfg.RateLimit)
	assert.Equal(t, 30, cfg.InitFeeBps)
	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"bad program id", func(c *Config) { c.ProgramID = "nope" }},
		{"bad store", func(c *Config) { c.StoreBackend = "postgres" }},
		{"fee too high", func(c *Config) { c.InitFeeBps = 1001 }},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }},
		{"empty addr", func(c *Config) { c.APIAddr = " " }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Load()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
