package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-core-fx/config"
)

type http struct {
	Address     string   `koanf:"address"`
	ProxyHeader string   `koanf:"proxy_header"`
	Proxies     []string `koanf:"proxies"`
}

type storageConfig struct {
	DataDir  string `koanf:"data_dir"`
	InMemory bool   `koanf:"in_memory"`
}

type gitConfig struct {
	Backend string        `koanf:"backend"`
	Binary  string        `koanf:"binary"`
	Timeout time.Duration `koanf:"timeout"`
	Exclude []string      `koanf:"exclude"`
}

type changesConfig struct {
	LogDepth int `koanf:"log_depth"`
}

type pollerConfig struct {
	Enabled         bool          `koanf:"enabled"`
	ResyncInterval  time.Duration `koanf:"resync_interval"`
	DefaultInterval time.Duration `koanf:"default_interval"`
	Jitter          float64       `koanf:"jitter"`
}

type Config struct {
	HTTP http `koanf:"http"`

	Storage storageConfig `koanf:"storage"`
	Git     gitConfig     `koanf:"git"`
	Changes changesConfig `koanf:"changes"`
	Poller  pollerConfig  `koanf:"poller"`
}

func Default() Config {
	//nolint:exhaustruct,mnd //default values
	return Config{
		HTTP: http{
			Address:     "127.0.0.1:3000",
			ProxyHeader: "X-Forwarded-For",
			Proxies:     []string{},
		},

		Storage: storageConfig{
			DataDir: "./data",
		},

		Git: gitConfig{
			Backend: "exec",
			Binary:  "git",
			Timeout: 30 * time.Second,
		},

		Changes: changesConfig{
			LogDepth: 100,
		},

		Poller: pollerConfig{
			Enabled:         true,
			ResyncInterval:  15 * time.Second,
			DefaultInterval: 30 * time.Second,
			Jitter:          0.1,
		},
	}
}

func New() (Config, error) {
	cfg := Default()

	options := []config.Option{}
	if yamlPath := os.Getenv("CONFIG_PATH"); yamlPath != "" {
		options = append(options, config.WithLocalYAML(yamlPath))
	}

	if err := config.Load(&cfg, options...); err != nil {
		return Config{}, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}
