package internal

import (
	"context"

	"github.com/chigichan24/duff/internal/changes"
	"github.com/chigichan24/duff/internal/config"
	"github.com/chigichan24/duff/internal/git"
	"github.com/chigichan24/duff/internal/poller"
	"github.com/chigichan24/duff/internal/repos"
	"github.com/chigichan24/duff/internal/server"
	"github.com/chigichan24/duff/pkg/badgerfx"
	"github.com/capcom6/go-infra-fx/validator"
	"github.com/go-core-fx/fiberfx"
	"github.com/go-core-fx/healthfx"
	"github.com/go-core-fx/logger"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Version is set at build time.
var Version = "0.1.0" //nolint:gochecknoglobals //ldflags

func Run(overrides ...config.Override) {
	fx.New(
		// CORE MODULES
		logger.Module(),
		logger.WithFxDefaultLogger(),
		badgerfx.Module(),
		healthfx.Module(),
		fiberfx.Module(),
		validator.Module,
		//
		// APP MODULES
		config.Module(overrides...),
		server.Module(),
		git.Module(),
		//
		// BUSINESS MODULES
		fx.Provide(func() healthfx.Version { return healthfx.Version{Version: Version, ReleaseID: 1} }),
		repos.Module(),
		changes.Module(),
		fx.Provide(func(svc *repos.Service) changes.Registry { return svc }),
		poller.Module(),
		//
		// LIFECYCLE MANAGEMENT
		fx.Invoke(func(lc fx.Lifecycle, logger *zap.Logger) {
			lc.Append(fx.Hook{
				OnStart: func(_ context.Context) error {
					logger.Info("🚀 duff starting up", zap.String("version", Version))
					return nil
				},
				OnStop: func(_ context.Context) error {
					logger.Info("🛑 duff shutting down gracefully")
					return nil
				},
			})
		}),
	).Run()
}
