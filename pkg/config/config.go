package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Discord DiscordConfig `json:"discord"`
	Gateway GatewayConfig `json:"gateway"`
	Relay   RelayConfig   `json:"relay"`
}

// DiscordConfig identifies the watched guild and the channel used as the
// durable file store. The token is normally supplied via DISCORD_TOKEN.
type DiscordConfig struct {
	Token            string `env:"DISCORD_TOKEN"                         json:"token,omitempty"`
	GuildID          string `env:"FILEBRIDGE_DISCORD_GUILD_ID"           json:"guild_id"`
	StorageChannelID string `env:"FILEBRIDGE_DISCORD_STORAGE_CHANNEL_ID" json:"storage_channel_id"`
}

type GatewayConfig struct {
	Host string `env:"FILEBRIDGE_GATEWAY_HOST" json:"host"`
	Port int    `env:"FILEBRIDGE_GATEWAY_PORT" json:"port"`

	// PublicURL pins the externally reachable origin used in links.
	// When empty the origin is learned from inbound Host headers.
	PublicURL string `env:"FILEBRIDGE_GATEWAY_PUBLIC_URL" json:"public_url,omitempty"`

	MaxUploadBytes int64 `env:"FILEBRIDGE_GATEWAY_MAX_UPLOAD_BYTES" json:"max_upload_bytes"`
}

type RelayConfig struct {
	// RequestTimeoutSeconds bounds every platform API and CDN call so an
	// unresponsive upstream fails one post's run, not the process.
	RequestTimeoutSeconds int `env:"FILEBRIDGE_RELAY_REQUEST_TIMEOUT_SECONDS" json:"request_timeout_seconds"`
}

func DefaultConfig() *Config {
	return &Config{
		Gateway: GatewayConfig{
			Host:           "0.0.0.0",
			Port:           3000,
			MaxUploadBytes: 100 * 1024 * 1024,
		},
		Relay: RelayConfig{
			RequestTimeoutSeconds: 30,
		},
	}
}

func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// No file is fine: defaults plus env overrides.
			if err := env.Parse(cfg); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config %s: %w", path, err)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func SaveConfig(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}

// RequestTimeout returns the bounded per-call timeout for upstream requests.
func (c *Config) RequestTimeout() time.Duration {
	secs := c.Relay.RequestTimeoutSeconds
	if secs <= 0 {
		secs = 30
	}
	return time.Duration(secs) * time.Second
}
