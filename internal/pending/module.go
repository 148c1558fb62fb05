package pending

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Smart123s/FastLogin/internal/clock"
	"github.com/Smart123s/FastLogin/internal/config"
)

// NewModule provides the pending registry. It must come before the scheduler module so the
// registry outlives every flow the scheduler drains on stop.
func NewModule() fx.Option {
	return fx.Options(
		fx.Provide(
			fx.Annotate(
				func(config *config.AppConfig, clk clock.Clock, log *zap.Logger) (Registry, error) {
					return newRegistry(&config.Pending, clk, log)
				},
			),
		),
		fx.Invoke(registerHooks),
	)
}

func newRegistry(cfg *config.PendingConfig, clk clock.Clock, log *zap.Logger) (Registry, error) {
	if cfg.Backend != "redis" {
		log.Info("using in-memory pending registry", zap.Duration("ttl", cfg.TTL))
		return NewMemoryRegistry(clk, cfg.TTL, cfg.Capacity), nil
	}

	client, err := NewRedisClient(context.Background(), cfg.Redis)
	if err != nil {
		return nil, err
	}

	log.Info("using redis pending registry", zap.Duration("ttl", cfg.TTL))
	return NewRedisRegistry(client, cfg.Redis.KeyPrefix, cfg.TTL, log.Named("pending")), nil
}

func registerHooks(lifecycle fx.Lifecycle, registry Registry, log *zap.Logger) {
	redisRegistry, ok := registry.(*RedisRegistry)
	if !ok {
		return
	}

	lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			log.Info("closing pending registry")
			return redisRegistry.Close()
		},
	})
}
