package profile

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Smart123s/FastLogin/internal/database"
	"github.com/Smart123s/FastLogin/internal/migration"
)

// NewModule provides the profile storage and migrates its table on start.
func NewModule() fx.Option {
	return fx.Options(
		fx.Provide(
			fx.Annotate(
				func(manager *database.Manager, migrator *migration.Migrator, log *zap.Logger) *Storage {
					return NewStorage(manager.DB(), migrator, log.Named("profile"))
				},
			),
			fx.Annotate(
				func(storage *Storage) Repository {
					return storage
				},
			),
		),
		fx.Invoke(registerHooks),
	)
}

func registerHooks(lifecycle fx.Lifecycle, storage *Storage, log *zap.Logger) {
	lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			// a table left behind keeps serving at its last applied version
			if err := storage.Init(ctx); err != nil {
				log.Error("profile storage migration incomplete", zap.Error(err))
			}
			return nil
		},
	})
}
