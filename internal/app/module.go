package app

import (
	"context"
	"os"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Smart123s/FastLogin/internal/auth"
	"github.com/Smart123s/FastLogin/internal/bridge"
	"github.com/Smart123s/FastLogin/internal/clock"
	"github.com/Smart123s/FastLogin/internal/database"
	"github.com/Smart123s/FastLogin/internal/join"
	"github.com/Smart123s/FastLogin/internal/metrics"
	"github.com/Smart123s/FastLogin/internal/migration"
	"github.com/Smart123s/FastLogin/internal/pending"
	"github.com/Smart123s/FastLogin/internal/profile"
	"github.com/Smart123s/FastLogin/internal/ratelimit"
	"github.com/Smart123s/FastLogin/internal/resolver"
	"github.com/Smart123s/FastLogin/internal/scheduler"
	"github.com/Smart123s/FastLogin/internal/server"
)

// Module combines all application modules
func Module() fx.Option {
	return fx.Options(
		// Logger
		fx.Provide(newLogger),

		// Configuration
		fx.Provide(server.LoadConfig),

		Core(),

		// Start the servers
		fx.Invoke(registerHooks),
	)
}

// Core wires storage, the login orchestrator and the servers without choosing a logger or
// configuration source.
func Core() fx.Option {
	return fx.Options(
		fx.Provide(
			fx.Annotate(clock.New, fx.As(new(clock.Clock))),
		),

		// Storage
		database.Module(),
		migration.Module(),
		profile.NewModule(),

		// Login flow
		metrics.NewModule(),
		ratelimit.NewModule(),
		pending.NewModule(),
		resolver.NewModule(),
		scheduler.NewModule(),
		join.NewModule(),

		// Bridge
		auth.NewModule(),
		bridge.NewModule(),

		// Server
		fx.Provide(
			server.NewServer,
			server.NewOpsServer,
			fx.Annotate(
				func(manager *database.Manager) server.Pinger {
					return manager
				},
			),
		),
	)
}

func newLogger() (*zap.Logger, error) {
	env := os.Getenv("APP_ENV")
	return server.NewLogger(env)
}

func registerHooks(
	lifecycle fx.Lifecycle,
	srv *server.Server,
	ops *server.OpsServer,
	log *zap.Logger,
) {
	lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			lis, err := srv.Listen()
			if err != nil {
				return err
			}
			go func() {
				if err := srv.Serve(lis); err != nil {
					log.Error("failed to start server", zap.Error(err))
				}
			}()

			if !ops.Enabled() {
				return nil
			}
			opsLis, err := ops.Listen()
			if err != nil {
				lis.Close()
				return err
			}
			go func() {
				if err := ops.Serve(opsLis); err != nil {
					log.Error("failed to start ops server", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("shutting down server...")
			srv.Stop()
			if ops.Enabled() {
				return ops.Stop(ctx)
			}
			return nil
		},
	})
}
