package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/Smart123s/FastLogin/internal/config"
)

var (
	ErrMissingSecret = errors.New("jwt secret is not configured")
	ErrInvalidToken  = errors.New("invalid token")
)

// Claims identify the host integration (proxy) a bridge token was issued to.
type Claims struct {
	Host string `json:"host"`
	jwt.RegisteredClaims
}

type Service struct {
	config *config.AuthConfig
	log    *zap.Logger
	now    func() time.Time
}

func NewService(config *config.AuthConfig, log *zap.Logger) *Service {
	return &Service{
		config: config,
		log:    log,
		now:    time.Now,
	}
}

func (s *Service) GenerateToken(host string) (string, error) {
	if s.config.JWTSecret == "" {
		return "", ErrMissingSecret
	}
	if host == "" {
		return "", errors.New("host must not be empty")
	}

	now := s.now()
	claims := &Claims{
		Host: host,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  host,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if s.config.TokenExpiration > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(s.config.TokenExpiration))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	s.log.Info("issued bridge token",
		zap.String("host", host),
		zap.Duration("expiration", s.config.TokenExpiration))
	return signed, nil
}

func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	return validateToken(tokenString, s.config.JWTSecret, s.now)
}

func validateToken(tokenString string, secretKey string, now func() time.Time) (*Claims, error) {
	if secretKey == "" {
		return nil, ErrMissingSecret
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(secretKey), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(now))

	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if !token.Valid || claims.Host == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
