package changes

import (
	"github.com/go-core-fx/logger"
	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module(
		"changes",
		logger.WithNamedLogger("changes"),
		fx.Provide(NewResolver),
		fx.Provide(NewService),
	)
}
