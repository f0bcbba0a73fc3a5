package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Channel ChannelConfig `yaml:"channel"`
	Feed    FeedConfig    `yaml:"feed"`
}

type ServerConfig struct {
	BaseURL string `yaml:"base_url"`
	WSURL   string `yaml:"ws_url"`
}

type ChannelConfig struct {
	DialBaseDelay   time.Duration `yaml:"dial_base_delay"`
	DialMaxDelay    time.Duration `yaml:"dial_max_delay"`
	DialMaxAttempts int           `yaml:"dial_max_attempts"`
}

type FeedConfig struct {
	PageSize          int           `yaml:"page_size"`
	ReconcileInterval time.Duration `yaml:"reconcile_interval"`
}

// Load reads the config file at path, applying defaults for anything the
// file does not set. A missing file is not an error; the defaults are
// returned so the client works out of the box against a local server.
// Environment variables (optionally loaded from a .env file) override
// both.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	// .env is optional; ignore a missing file.
	_ = godotenv.Load()
	applyEnv(cfg)

	return cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			BaseURL: "http://127.0.0.1:5000",
			WSURL:   "ws://127.0.0.1:5000/ws",
		},
		Channel: ChannelConfig{
			DialBaseDelay:   time.Second,
			DialMaxDelay:    30 * time.Second,
			DialMaxAttempts: 5,
		},
		Feed: FeedConfig{
			PageSize:          20,
			ReconcileInterval: 60 * time.Second,
		},
	}
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("RIPPLE_BASE_URL"); v != "" {
		cfg.Server.BaseURL = v
	}
	if v := os.Getenv("RIPPLE_WS_URL"); v != "" {
		cfg.Server.WSURL = v
	}
	if v := os.Getenv("RIPPLE_PAGE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Feed.PageSize = n
		}
	}
	if v := os.Getenv("RIPPLE_RECONCILE_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Feed.ReconcileInterval = d
		}
	}
}
