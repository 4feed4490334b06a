package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0", cfg.Gateway.Host)
	assert.Equal(t, 3000, cfg.Gateway.Port)
	assert.Equal(t, int64(100*1024*1024), cfg.Gateway.MaxUploadBytes)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout())
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")

	cfg := DefaultConfig()
	cfg.Discord.GuildID = "g-123"
	cfg.Discord.StorageChannelID = "c-456"
	cfg.Gateway.PublicURL = "https://files.example.com"
	cfg.Relay.RequestTimeoutSeconds = 45

	require.NoError(t, SaveConfig(path, cfg))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "g-123", loaded.Discord.GuildID)
	assert.Equal(t, "c-456", loaded.Discord.StorageChannelID)
	assert.Equal(t, "https://files.example.com", loaded.Gateway.PublicURL)
	assert.Equal(t, 45*time.Second, loaded.RequestTimeout())
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	cfg := DefaultConfig()
	cfg.Discord.GuildID = "from-file"
	require.NoError(t, SaveConfig(path, cfg))

	t.Setenv("FILEBRIDGE_DISCORD_GUILD_ID", "from-env")
	t.Setenv("FILEBRIDGE_GATEWAY_PORT", "8080")

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", loaded.Discord.GuildID)
	assert.Equal(t, 8080, loaded.Gateway.Port)
}

func TestRequestTimeout_NonPositiveFallsBack(t *testing.T) {
	cfg := &Config{}
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout())
}
