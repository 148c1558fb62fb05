package bridge

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Smart123s/FastLogin/internal/config"
	"github.com/Smart123s/FastLogin/internal/join"
)

// NewModule provides the bridge handler and routes login decisions back to bridge calls.
func NewModule() fx.Option {
	return fx.Options(
		fx.Provide(
			fx.Annotate(
				NewRouter,
				fx.As(new(join.Continuation)),
			),
			fx.Annotate(
				func(orchestrator *join.Orchestrator, config *config.AppConfig, log *zap.Logger) *Handler {
					return NewHandler(orchestrator, config.Bridge.DecisionTimeout, log)
				},
			),
		),
	)
}
