package resolver

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Smart123s/FastLogin/internal/config"
)

func NewModule() fx.Option {
	return fx.Options(
		fx.Provide(
			fx.Annotate(
				func(config *config.AppConfig, log *zap.Logger) Resolver {
					return NewMojangResolver(config.Resolver.BaseURL, config.Resolver.Timeout, log.Named("resolver"))
				},
			),
		),
	)
}
