package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("SERVER_PORT", "")
	t.Setenv("REDIS_HOST", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "1h", cfg.JWT.TokenDuration)
	assert.Empty(t, cfg.Redis.Host)
	assert.Equal(t, []string{"*"}, cfg.CORS.AllowOrigins)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("REDIS_PORT", "6380")
	t.Setenv("LOG_COMPRESS", "false")
	t.Setenv("CORS_ALLOW_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("LINK_AUDIT_CRON", "*/5 * * * *")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 6380, cfg.Redis.Port)
	assert.False(t, cfg.Log.Compress)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowOrigins)
	assert.Equal(t, "*/5 * * * *", cfg.Audit.Cron)
}

func TestGetEnvAsInt_InvalidFallsBack(t *testing.T) {
	t.Setenv("SOME_INT", "abc")
	assert.Equal(t, 7, getEnvAsInt("SOME_INT", 7))
}
