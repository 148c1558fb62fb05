package migration

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Smart123s/FastLogin/internal/database"
)

// Module provides the schema migrator bound to the shared database connection.
// Tables run their own migrations when their store starts.
func Module() fx.Option {
	return fx.Options(
		fx.Provide(
			fx.Annotate(
				func(manager *database.Manager, logger *zap.Logger) (*Migrator, error) {
					dialect, err := DialectFor(manager.Driver())
					if err != nil {
						return nil, err
					}
					return NewMigrator(manager.DB(), dialect, logger.Named("migration")), nil
				},
			),
		),
	)
}
