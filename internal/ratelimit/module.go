package ratelimit

import (
	"go.uber.org/fx"

	"github.com/Smart123s/FastLogin/internal/clock"
	"github.com/Smart123s/FastLogin/internal/config"
)

func NewModule() fx.Option {
	return fx.Options(
		fx.Provide(
			fx.Annotate(
				func(config *config.AppConfig, clk clock.Clock) *Limiter {
					rl := config.RateLimit
					return NewLimiter(clk, rl.Capacity, rl.Period, rl.MaxKeys)
				},
			),
		),
	)
}
