package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/Smart123s/FastLogin/internal/config"
)

// Define a custom type for context keys
type contextKey string

const (
	// HostContextKey is the key used to store the authenticated host in the context
	HostContextKey contextKey = "host"
)

type AuthMiddleware struct {
	config *config.AuthConfig
}

func NewAuthMiddleware(config *config.AuthConfig) *AuthMiddleware {
	return &AuthMiddleware{
		config: config,
	}
}

// Enabled reports whether bridge calls must carry a token. Without a secret the bridge is open.
func (m *AuthMiddleware) Enabled() bool {
	return m.config.JWTSecret != ""
}

func (m *AuthMiddleware) AuthenticationMiddleware(ctx context.Context) (context.Context, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing metadata")
	}

	values := md.Get("authorization")
	if len(values) == 0 {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	token := strings.TrimPrefix(values[0], "Bearer ")

	claims, err := validateToken(token, m.config.JWTSecret, time.Now)
	if err != nil {
		return nil, status.Error(codes.Unauthenticated, "invalid token")
	}

	return context.WithValue(ctx, HostContextKey, claims.Host), nil
}

// Helper function to get the authenticated host from context
func GetHostFromContext(ctx context.Context) (string, error) {
	host, ok := ctx.Value(HostContextKey).(string)
	if !ok {
		return "", errors.New("host not found in context")
	}
	return host, nil
}
