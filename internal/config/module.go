package config

import (
	"github.com/chigichan24/duff/internal/changes"
	"github.com/chigichan24/duff/internal/git"
	"github.com/chigichan24/duff/internal/poller"
	"github.com/chigichan24/duff/internal/repos"
	"github.com/chigichan24/duff/pkg/badgerfx"
	"github.com/go-core-fx/fiberfx"
	"go.uber.org/fx"
)

// Override adjusts the loaded Config, e.g. from command line flags.
type Override func(cfg *Config)

// Module provides Config and its per-module projections.
func Module(overrides ...Override) fx.Option {
	return fx.Module(
		"config",
		fx.Provide(func() (Config, error) {
			cfg, err := New()
			if err != nil {
				return Config{}, err
			}

			for _, o := range overrides {
				o(&cfg)
			}

			return cfg, nil
		}),
		fx.Provide(func(cfg Config) fiberfx.Config {
			return fiberfx.Config{
				Address:     cfg.HTTP.Address,
				ProxyHeader: cfg.HTTP.ProxyHeader,
				Proxies:     cfg.HTTP.Proxies,
			}
		}),
		fx.Provide(func(cfg Config) badgerfx.Config {
			return badgerfx.Config{
				Dir:      cfg.Storage.DataDir,
				InMemory: cfg.Storage.InMemory,
			}
		}),
		fx.Provide(func(cfg Config) git.Config {
			return git.Config{
				Backend: git.BackendKind(cfg.Git.Backend),
				Binary:  cfg.Git.Binary,
				Timeout: cfg.Git.Timeout,
				Exclude: cfg.Git.Exclude,
			}
		}),
		fx.Provide(func(cfg Config) changes.Config {
			return changes.Config{
				LogDepth: cfg.Changes.LogDepth,
			}
		}),
		fx.Provide(func(cfg Config) repos.Config {
			return repos.Config{
				DefaultPollInterval: cfg.Poller.DefaultInterval,
			}
		}),
		fx.Provide(func(cfg Config) poller.Config {
			return poller.Config{
				Enabled:        cfg.Poller.Enabled,
				ResyncInterval: cfg.Poller.ResyncInterval,
				Jitter:         cfg.Poller.Jitter,
			}
		}),
	)
}
