package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/Smart123s/FastLogin/internal/config"
)

func TestAuthMiddleware(t *testing.T) {
	svc := newTestService(t)
	token, err := svc.GenerateToken("velocity-1")
	require.NoError(t, err)

	middleware := NewAuthMiddleware(newTestConfig())
	assert.True(t, middleware.Enabled())

	tests := []struct {
		name     string
		ctx      context.Context
		wantHost string
	}{
		{
			name:     "raw token",
			ctx:      metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", token)),
			wantHost: "velocity-1",
		},
		{
			name:     "bearer token",
			ctx:      metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer "+token)),
			wantHost: "velocity-1",
		},
		{
			name: "missing metadata",
			ctx:  context.Background(),
		},
		{
			name: "missing token",
			ctx:  metadata.NewIncomingContext(context.Background(), metadata.Pairs("other", "value")),
		},
		{
			name: "invalid token",
			ctx:  metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "invalid")),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, err := middleware.AuthenticationMiddleware(tt.ctx)
			if tt.wantHost == "" {
				assert.Equal(t, codes.Unauthenticated, status.Code(err))
				return
			}

			require.NoError(t, err)
			host, err := GetHostFromContext(ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.wantHost, host)
		})
	}
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	assert.False(t, NewAuthMiddleware(&config.AuthConfig{}).Enabled())

	_, err := GetHostFromContext(context.Background())
	assert.Error(t, err)
}
