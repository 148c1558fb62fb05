package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Smart123s/FastLogin/internal/config"
)

func TestService_GenerateToken(t *testing.T) {
	svc := newTestService(t)

	tests := []struct {
		name    string
		host    string
		wantErr bool
	}{
		{
			name:    "valid host",
			host:    "velocity-1",
			wantErr: false,
		},
		{
			name:    "empty host",
			host:    "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := svc.GenerateToken(tt.host)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.NotEmpty(t, token)

			claims, err := svc.ValidateToken(token)
			require.NoError(t, err)
			assert.Equal(t, tt.host, claims.Host)
			assert.Equal(t, tt.host, claims.Subject)
		})
	}
}

func TestService_ValidateToken(t *testing.T) {
	svc := newTestService(t)
	valid, err := svc.GenerateToken("velocity-1")
	require.NoError(t, err)

	other := NewService(&config.AuthConfig{JWTSecret: "other-secret", TokenExpiration: time.Hour}, newTestLogger(t))
	foreign, err := other.GenerateToken("velocity-1")
	require.NoError(t, err)

	expiring := newTestService(t)
	expiring.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, err := expiring.GenerateToken("velocity-1")
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{Host: "velocity-1"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name    string
		token   string
		wantErr bool
	}{
		{name: "valid token", token: valid, wantErr: false},
		{name: "wrong secret", token: foreign, wantErr: true},
		{name: "expired token", token: expired, wantErr: true},
		{name: "unsigned token", token: none, wantErr: true},
		{name: "garbage", token: "not-a-token", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := svc.ValidateToken(tt.token)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidToken)
				assert.Nil(t, claims)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "velocity-1", claims.Host)
		})
	}
}

func TestService_MissingSecret(t *testing.T) {
	svc := NewService(&config.AuthConfig{}, newTestLogger(t))

	_, err := svc.GenerateToken("velocity-1")
	assert.ErrorIs(t, err, ErrMissingSecret)

	_, err = svc.ValidateToken("anything")
	assert.ErrorIs(t, err, ErrMissingSecret)
}
