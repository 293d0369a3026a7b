package grpc

import (
	"context"
	"fmt"
	"net"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/wekeepgrowing/todosync/internal/config"
	"github.com/wekeepgrowing/todosync/pkg/logger"
)

// Server exposes the standard gRPC health service for liveness checks.
type Server struct {
	config *config.Config
	logger *zap.Logger
	server *grpc.Server
	health *health.Server
}

func NewServer(cfg *config.Config, log *zap.Logger) *Server {
	s := &Server{
		config: cfg,
		logger: log,
		health: health.NewServer(),
		server: grpc.NewServer(
			grpc.ChainUnaryInterceptor(logger.NewGrpcUnaryServerInterceptor(log)),
			grpc.ChainStreamInterceptor(logger.NewGrpcStreamServerInterceptor(log)),
		),
	}

	healthpb.RegisterHealthServer(s.server, s.health)
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	s.health.SetServingStatus(cfg.Service.Name, healthpb.HealthCheckResponse_SERVING)
	if !cfg.IsProduction() {
		reflection.Register(s.server)
	}
	return s
}

func (s *Server) Start() error {
	addr := s.config.Server.GRPC.Addr()

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	return s.Serve(listener)
}

// Serve runs the server on an existing listener.
func (s *Server) Serve(listener net.Listener) error {
	s.logger.Info("Starting gRPC server", zap.String("address", listener.Addr().String()))

	return s.server.Serve(listener)
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.health.Shutdown()

	stopped := make(chan struct{})
	go func() {
		s.server.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-ctx.Done():
		s.server.Stop()
	}
	return nil
}
