// Package config loads server settings from the environment and the optional
// buzzer appearance file.
package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	// SERVER_PORT wins over PORT when both are set.
	Port       int `env:"PORT" envDefault:"8080"`
	ServerPort int `env:"SERVER_PORT"`

	// StoreBackend selects the persistence driver: sqlite or redis.
	StoreBackend string `env:"STORE_BACKEND" envDefault:"sqlite"`
	DBPath       string `env:"DB_PATH" envDefault:"data/neonbeat.db"`
	RedisURL     string `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`

	LogLevel  slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	LogFormat string     `env:"LOG_FORMAT" envDefault:"json"`

	// PersistCooldownMs is the write-behind debounce window.
	PersistCooldownMs int `env:"PERSIST_COOLDOWN_MS" envDefault:"200"`

	// ConfigPath points at a JSON file overriding team colors and LED
	// pattern presets.
	ConfigPath string `env:"CONFIG_PATH"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	switch cfg.StoreBackend {
	case "sqlite", "redis":
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q (want sqlite or redis)", cfg.StoreBackend)
	}
	switch cfg.LogFormat {
	case "json", "text":
	default:
		return nil, fmt.Errorf("unknown LOG_FORMAT %q (want json or text)", cfg.LogFormat)
	}
	return &cfg, nil
}

// ListenAddr resolves the effective listen address.
func (c *Config) ListenAddr() string {
	port := c.Port
	if c.ServerPort != 0 {
		port = c.ServerPort
	}
	return fmt.Sprintf(":%d", port)
}

// PersistCooldown converts the debounce knob to a duration.
func (c *Config) PersistCooldown() time.Duration {
	return time.Duration(c.PersistCooldownMs) * time.Millisecond
}
