package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Setenv("DISCORD_BOT_TOKEN", "token-123")
	t.Setenv("DISCORD_CHANNEL_ID", "123456789012345678")
	t.Setenv("PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "token-123", cfg.BotToken)
	assert.Equal(t, "123456789012345678", cfg.DefaultChannelID)
	assert.Equal(t, "9090", cfg.Port)
}

func TestLoadMissingToken(t *testing.T) {
	t.Setenv("DISCORD_BOT_TOKEN", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DISCORD_BOT_TOKEN")
}

func TestLoadInvalidChannelID(t *testing.T) {
	t.Setenv("DISCORD_BOT_TOKEN", "token-123")

	for _, bad := range []string{"general", "-5", "12.5"} {
		t.Setenv("DISCORD_CHANNEL_ID", bad)
		_, err := Load()
		assert.Error(t, err, "channel id %q should be rejected", bad)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DISCORD_BOT_TOKEN", "token-123")
	t.Setenv("DISCORD_CHANNEL_ID", "")
	t.Setenv("PORT", "")
	t.Setenv("LOG_MAX_SIZE_MB", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 1, cfg.LogMaxSizeMB)
	assert.Equal(t, 5, cfg.LogMaxBackups)
}

func TestGetEnvInt(t *testing.T) {
	t.Setenv("TEST_INT_VAR", "123")
	assert.Equal(t, 123, getEnvInt("TEST_INT_VAR", 0))

	t.Setenv("TEST_INT_VAR", "invalid")
	assert.Equal(t, 10, getEnvInt("TEST_INT_VAR", 10))
}
