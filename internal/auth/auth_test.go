package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/Smart123s/FastLogin/internal/config"
)

func newTestLogger(t *testing.T) *zap.Logger {
	logger, err := zap.NewDevelopment()
	assert.NoError(t, err)
	return logger
}

func newTestConfig() *config.AuthConfig {
	return &config.AuthConfig{
		JWTSecret:       "test-secret-key",
		TokenExpiration: time.Hour,
	}
}

func newTestService(t *testing.T) *Service {
	return NewService(newTestConfig(), newTestLogger(t))
}
