package audrey

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConfig(t testing.TB) *Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Database = t.TempDir() + "/audrey.sqlite3"
	cfg.Discord.Token = "test-discord-token"
	cfg.Discord.ApplicationID = "test-application-id"
	return cfg
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()

	assert.Equal(t, DefaultHistoryCap, cfg.HistoryCap)
	assert.Equal(t, DefaultShutdownTimeout, cfg.ShutdownTimeout)
	assert.Equal(t, DefaultDatabase, cfg.Database)

	require.NotNil(t, cfg.AI)
	assert.Empty(t, cfg.AI.Token)
	assert.Equal(t, "https://api.routeway.ai/v1", cfg.AI.BaseURL)
	assert.Equal(t, "kimi-k2-0905:free", cfg.AI.Model)
	assert.Equal(t, 300, cfg.AI.MaxTokens)
	assert.Equal(t, float32(0.8), cfg.AI.Temperature)
	assert.Equal(t, 30*time.Second, cfg.AI.RequestTimeout)
	assert.Equal(t, 6, cfg.AI.ContextTurns)

	require.NotNil(t, cfg.Discord)
	assert.Equal(t, DefaultDiscordGatewayIntent, cfg.Discord.GatewayIntents)
	assert.Equal(t, slog.LevelWarn, cfg.Discord.LogLevel.Level())

	require.NotNil(t, cfg.API)
	assert.True(t, cfg.API.Enabled)
	assert.Equal(t, DefaultAPIListen, cfg.API.Listen)
}

func TestValidateConfig(t *testing.T) {
	t.Parallel()
	assert.Error(t, ValidateConfig(nil))

	cfg := newTestConfig(t)
	assert.NoError(t, ValidateConfig(cfg))
}

func TestValidateConfigMissingDiscordToken(t *testing.T) {
	t.Parallel()
	cfg := newTestConfig(t)
	cfg.Discord.Token = ""
	assert.Error(t, ValidateConfig(cfg))
}

func TestValidateConfigBadAI(t *testing.T) {
	t.Parallel()
	cfg := newTestConfig(t)
	cfg.AI.BaseURL = "not a url"
	assert.Error(t, ValidateConfig(cfg))

	cfg = newTestConfig(t)
	cfg.AI.MaxTokens = 0
	assert.Error(t, ValidateConfig(cfg))

	cfg = newTestConfig(t)
	cfg.HistoryCap = 1
	assert.Error(t, ValidateConfig(cfg))
}
