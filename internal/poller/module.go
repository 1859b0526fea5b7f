package poller

import (
	"context"

	"github.com/chigichan24/duff/internal/changes"
	"github.com/chigichan24/duff/internal/repos"
	"github.com/go-core-fx/logger"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func Module() fx.Option {
	return fx.Module(
		"poller",
		logger.WithNamedLogger("poller"),
		fx.Provide(func(r *repos.Service, c *changes.Service, config Config, logger *zap.Logger) *Poller {
			return New(r, c, config, prometheus.DefaultRegisterer, logger)
		}),
		fx.Invoke(func(p *Poller, config Config, logger *zap.Logger, lc fx.Lifecycle) {
			if !config.Enabled {
				logger.Info("status polling disabled")
				return
			}

			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan struct{})

			lc.Append(fx.Hook{
				OnStart: func(_ context.Context) error {
					go func() {
						defer close(done)
						p.Run(ctx)
					}()
					return nil
				},
				OnStop: func(stopCtx context.Context) error {
					cancel()
					select {
					case <-done:
						return nil
					case <-stopCtx.Done():
						return stopCtx.Err()
					}
				},
			})
		}),
	)
}
