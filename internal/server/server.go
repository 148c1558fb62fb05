package server

import (
	"context"
	"fmt"
	"net"
	"os"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"

	"github.com/Smart123s/FastLogin/internal/api"
	"github.com/Smart123s/FastLogin/internal/auth"
	"github.com/Smart123s/FastLogin/internal/bridge"
	"github.com/Smart123s/FastLogin/internal/config"
)

type Server struct {
	config         *config.AppConfig
	log            *zap.Logger
	grpcServer     *grpc.Server
	health         *health.Server
	bridgeHandler  *bridge.Handler
	authMiddleware *auth.AuthMiddleware
}

type Params struct {
	fx.In

	Config         *config.AppConfig
	Logger         *zap.Logger
	BridgeHandler  *bridge.Handler
	AuthMiddleware *auth.AuthMiddleware
}

func isProtectedEndpoint(method string) bool {
	isPublic, exists := api.PublicEndpoints[method]
	return !exists || !isPublic
}

func NewServer(p Params) *Server {
	authInterceptor := func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if !p.AuthMiddleware.Enabled() || !isProtectedEndpoint(info.FullMethod) {
			return handler(ctx, req)
		}

		newCtx, err := p.AuthMiddleware.AuthenticationMiddleware(ctx)
		if err != nil {
			p.Logger.Warn("authentication failed",
				zap.String("method", info.FullMethod),
				zap.Error(err))
			return nil, status.Error(codes.Unauthenticated, "authentication required")
		}

		return handler(newCtx, req)
	}

	opts := []grpc.ServerOption{
		grpc.UnaryInterceptor(authInterceptor),
		grpc.MaxRecvMsgSize(p.Config.GRPC.MaxReceiveMessageSize),
		grpc.MaxSendMsgSize(p.Config.GRPC.MaxSendMessageSize),
	}

	grpcServer := grpc.NewServer(opts...)
	healthServer := health.NewServer()

	server := &Server{
		config:         p.Config,
		log:            p.Logger,
		grpcServer:     grpcServer,
		health:         healthServer,
		bridgeHandler:  p.BridgeHandler,
		authMiddleware: p.AuthMiddleware,
	}

	bridge.RegisterLoginBridgeServer(grpcServer, p.BridgeHandler)
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus(api.BridgeService, healthpb.HealthCheckResponse_SERVING)

	if p.Config.GRPC.EnableReflection {
		reflection.Register(grpcServer)
	}

	return server
}

// Listen binds the configured gRPC address.
func (s *Server) Listen() (net.Listener, error) {
	addr := net.JoinHostPort(s.config.Server.Host, s.config.Server.Port)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen: %w", err)
	}
	return lis, nil
}

func (s *Server) Serve(lis net.Listener) error {
	s.log.Info("Starting gRPC server",
		zap.String("address", lis.Addr().String()),
		zap.Object("config", serverConfigToField(s.config)),
	)

	if err := s.grpcServer.Serve(lis); err != nil {
		return fmt.Errorf("failed to serve: %w", err)
	}

	return nil
}

func (s *Server) Start() error {
	lis, err := s.Listen()
	if err != nil {
		return err
	}
	return s.Serve(lis)
}

func serverConfigToField(config *config.AppConfig) zapcore.ObjectMarshaler {
	return zapcore.ObjectMarshalerFunc(func(enc zapcore.ObjectEncoder) error {
		enc.AddString("environment", os.Getenv("APP_ENV"))
		enc.AddBool("reflection_enabled", config.GRPC.EnableReflection)
		enc.AddBool("bridge_auth", config.Auth.JWTSecret != "")
		enc.AddInt("max_receive_size", config.GRPC.MaxReceiveMessageSize)
		enc.AddInt("max_send_size", config.GRPC.MaxSendMessageSize)
		return nil
	})
}

func (s *Server) Stop() {
	s.log.Info("shutting down gRPC server")
	s.health.Shutdown()
	s.grpcServer.GracefulStop()
}
