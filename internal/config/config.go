package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"eduslide-live/internal/validation"
)

const (
	TransportWebsocket = "websocket"
	TransportRedis     = "redis"
)

type Config struct {
	Server struct {
		Transport string `yaml:"transport" validate:"oneof=websocket redis"`
		URL       string `yaml:"url" validate:"required_if=Transport websocket,omitempty,url"`
	} `yaml:"server"`
	Session struct {
		Code string `yaml:"code"`
		Name string `yaml:"name"`
		Role string `yaml:"role" validate:"omitempty,oneof=student teacher"`
		SID  string `yaml:"sid"`
	} `yaml:"session"`
	Canvas struct {
		Width  float64 `yaml:"width" validate:"gte=0"`
		Height float64 `yaml:"height" validate:"gte=0"`
	} `yaml:"canvas"`
	Reconnect struct {
		Initial    string `yaml:"initial"`
		Max        string `yaml:"max"`
		MaxElapsed string `yaml:"max_elapsed"`
	} `yaml:"reconnect"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db" validate:"gte=0"`
		TTL      string `yaml:"ttl"`
		Prefix   string `yaml:"prefix"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Presentation struct {
		TTL    string `yaml:"ttl"`
		Static string `yaml:"static"`
	} `yaml:"presentation"`
	Log struct {
		Level        string `yaml:"level" validate:"omitempty,oneof=debug info warn warning error"`
		RollbarToken string `yaml:"rollbar_token"`
		Environment  string `yaml:"environment"`
	} `yaml:"log"`
}

// Load reads YAML config from path. A .env file next to it, if present, is
// loaded first and ${VAR} references in the YAML are expanded from the environment.
func Load(path string) (Config, error) {
	cfg := Config{}

	dotEnvPath := filepath.Join(filepath.Dir(path), ".env")
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			return cfg, fmt.Errorf("config.godotenv(%s): %w", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		return cfg, fmt.Errorf("config.stat(%s): %w", dotEnvPath, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return cfg, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Transport == "" {
		c.Server.Transport = TransportWebsocket
	}
	if c.Session.Role == "" {
		c.Session.Role = "student"
	}
	if c.Redis.Prefix == "" {
		c.Redis.Prefix = "eduslide"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate checks field constraints and cross-section requirements.
func (c Config) Validate() error {
	if err := validation.Validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Server.Transport == TransportRedis && c.Redis.Addr == "" {
		return fmt.Errorf("invalid config: redis.addr is required for the redis transport")
	}
	for name, raw := range map[string]string{
		"redis.ttl":             c.Redis.TTL,
		"presentation.ttl":      c.Presentation.TTL,
		"reconnect.initial":     c.Reconnect.Initial,
		"reconnect.max":         c.Reconnect.Max,
		"reconnect.max_elapsed": c.Reconnect.MaxElapsed,
	} {
		if raw == "" {
			continue
		}
		if _, err := time.ParseDuration(raw); err != nil {
			return fmt.Errorf("invalid config: %s: %w", name, err)
		}
	}
	return nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
