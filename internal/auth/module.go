package auth

import (
	"github.com/Smart123s/FastLogin/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// NewModule returns the auth module options
func NewModule() fx.Option {
	return fx.Options(
		fx.Provide(
			// Provide service
			fx.Annotate(
				func(config *config.AppConfig, log *zap.Logger) *Service {
					return NewService(&config.Auth, log)
				},
			),
			// Provide middleware
			fx.Annotate(
				func(config *config.AppConfig) *AuthMiddleware {
					return NewAuthMiddleware(&config.Auth)
				},
			),
		),
	)
}
