package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Smart123s/FastLogin/internal/config"
	"github.com/Smart123s/FastLogin/internal/metrics"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// OpsServer serves health and metrics for operators.
type OpsServer struct {
	config *config.AppConfig
	log    *zap.Logger
	http   *http.Server
}

type OpsParams struct {
	fx.In

	Config    *config.AppConfig
	Logger    *zap.Logger
	Collector *metrics.Collector
	Pinger    Pinger `optional:"true"`
}

func NewOpsServer(p OpsParams) *OpsServer {
	return &OpsServer{
		config: p.Config,
		log:    p.Logger,
		http: &http.Server{
			Handler:           NewOpsRouter(p.Collector, p.Pinger),
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

func NewOpsRouter(collector *metrics.Collector, pinger Pinger) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if pinger != nil {
			ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
			defer cancel()
			if err := pinger.Ping(ctx); err != nil {
				http.Error(w, "database unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", collector.Handler())

	return r
}

func (s *OpsServer) Enabled() bool {
	return s.config.HTTP.Enabled
}

func (s *OpsServer) Listen() (net.Listener, error) {
	addr := net.JoinHostPort(s.config.HTTP.Host, s.config.HTTP.Port)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen: %w", err)
	}
	return lis, nil
}

func (s *OpsServer) Serve(lis net.Listener) error {
	s.log.Info("Starting ops HTTP server", zap.String("address", lis.Addr().String()))

	if err := s.http.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to serve: %w", err)
	}
	return nil
}

func (s *OpsServer) Stop(ctx context.Context) error {
	s.log.Info("shutting down ops HTTP server")
	return s.http.Shutdown(ctx)
}
