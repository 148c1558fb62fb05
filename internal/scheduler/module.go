package scheduler

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Smart123s/FastLogin/internal/config"
)

func NewModule() fx.Option {
	return fx.Options(
		fx.Provide(
			fx.Annotate(
				func(config *config.AppConfig, log *zap.Logger) *AsyncScheduler {
					return NewAsyncScheduler(config.Scheduler.MaxConcurrent, log.Named("scheduler"))
				},
			),
			fx.Annotate(
				func(s *AsyncScheduler) Scheduler {
					return s
				},
			),
		),
		fx.Invoke(registerHooks),
	)
}

func registerHooks(lifecycle fx.Lifecycle, s *AsyncScheduler, log *zap.Logger) {
	lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			log.Info("waiting for login flows to finish")
			return s.Shutdown(ctx)
		},
	})
}
