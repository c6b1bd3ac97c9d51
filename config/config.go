package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type ServerConfig struct {
	Port              int      `toml:"port"`
	RequestsPerMinute int      `toml:"requests_per_minute"` // per-IP throttle for the HTTP surface
	AllowedOrigins    []string `toml:"allowed_origins"`     // browser origins that may reach /api and /ws
}

type StorageConfig struct {
	Driver  string `toml:"driver"` // "bolt" or "sqlite"
	DataDir string `toml:"data_dir"`
}

type OpenAIConfig struct {
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

type RateLimitConfig struct {
	MaxRequests   int `toml:"max_requests"`
	WindowMinutes int `toml:"window_minutes"`
}

type IdentityConfig struct {
	Secret          string `toml:"secret"` // HMAC secret for issued tokens; empty disables authentication
	Subject         string `toml:"subject"`
	TokenTTLMinutes int    `toml:"token_ttl_minutes"`
}

type EncryptionConfig struct {
	Key string `toml:"key"` // passphrase for the stored API key
}

type LogConfig struct {
	Level string `toml:"level"`
}

type Config struct {
	Server     ServerConfig     `toml:"server"`
	Storage    StorageConfig    `toml:"storage"`
	OpenAI     OpenAIConfig     `toml:"openai"`
	RateLimit  RateLimitConfig  `toml:"rate_limit"`
	Identity   IdentityConfig   `toml:"identity"`
	Encryption EncryptionConfig `toml:"encryption"`
	Log        LogConfig        `toml:"log"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	var config Config

	config.Server.Port = 3000
	config.Server.RequestsPerMinute = 100

	config.Storage.Driver = "bolt"
	config.Storage.DataDir = "./data"

	config.OpenAI.BaseURL = "https://api.openai.com/v1"
	config.OpenAI.Model = "gpt-3.5-turbo"
	config.OpenAI.TimeoutSeconds = 30

	// 50 generations per trailing hour
	config.RateLimit.MaxRequests = 50
	config.RateLimit.WindowMinutes = 60

	config.Identity.Subject = "smartdraft-user"
	config.Identity.TokenTTLMinutes = 60

	config.Log.Level = "info"

	return &config
}

// LoadConfig reads a TOML config on top of the defaults. A missing file is not an error.
func LoadConfig(filepath string) (*Config, error) {
	config := Default()

	if _, err := os.Stat(filepath); err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return nil, fmt.Errorf("failed to stat config: %w", err)
	}

	if _, err := toml.DecodeFile(filepath, config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks values that cannot be defaulted silently
func (c *Config) Validate() error {
	switch strings.ToLower(c.Storage.Driver) {
	case "bolt", "sqlite":
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}

	if c.Storage.DataDir == "" {
		return fmt.Errorf("storage data_dir is required")
	}

	if c.RateLimit.MaxRequests <= 0 {
		return fmt.Errorf("rate_limit max_requests must be positive")
	}

	if c.RateLimit.WindowMinutes <= 0 {
		return fmt.Errorf("rate_limit window_minutes must be positive")
	}

	if c.OpenAI.BaseURL == "" {
		return fmt.Errorf("openai base_url is required")
	}

	for _, origin := range c.Server.AllowedOrigins {
		if origin == "*" {
			return fmt.Errorf("server allowed_origins cannot contain a wildcard")
		}
	}

	return nil
}

// Origins returns the browser origin allow-list. When none is configured only
// the server's own localhost origins are allowed.
func (c *ServerConfig) Origins() []string {
	if len(c.AllowedOrigins) > 0 {
		return c.AllowedOrigins
	}
	return []string{
		fmt.Sprintf("http://localhost:%d", c.Port),
		fmt.Sprintf("http://127.0.0.1:%d", c.Port),
	}
}

// Timeout returns the client-side wait limit for completion calls
func (c *OpenAIConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Window returns the trailing rate window
func (c *RateLimitConfig) Window() time.Duration {
	return time.Duration(c.WindowMinutes) * time.Minute
}

// TokenTTL returns how long issued identity tokens stay valid
func (c *IdentityConfig) TokenTTL() time.Duration {
	if c.TokenTTLMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(c.TokenTTLMinutes) * time.Minute
}
