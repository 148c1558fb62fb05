package join

import (
	"go.uber.org/fx"

	"github.com/Smart123s/FastLogin/internal/config"
)

// NewModule provides the orchestrator. The host integration supplies the Continuation and,
// optionally, an AuthHook.
func NewModule() fx.Option {
	return fx.Options(
		fx.Provide(
			fx.Annotate(
				func(config *config.AppConfig) (Options, error) {
					return NewOptions(config.Login, config.RateLimit.Scope)
				},
			),
			NewOrchestrator,
		),
	)
}
