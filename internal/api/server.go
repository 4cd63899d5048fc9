package api

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"time"

	grpc_prometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"

	"github.com/triagelab/feedlens/internal/config"
)

// Server owns the gRPC listener serving TriageEngine, health and reflection.
type Server struct {
	grpcServer      *grpc.Server
	health          *health.Server
	listener        net.Listener
	gracefulTimeout time.Duration
}

// NewServer binds cfg.Address and registers service behind the Prometheus
// and request-logging interceptors. Extra options are appended last.
func NewServer(cfg config.ServerConfig, service TriageEngineServer, logger *slog.Logger, opts ...grpc.ServerOption) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	lis, err := net.Listen("tcp", cfg.Address)
	if err != nil {
		return nil, err
	}

	grpc_prometheus.EnableHandlingTimeHistogram()
	serverOpts := append([]grpc.ServerOption{
		grpc.ChainUnaryInterceptor(grpc_prometheus.UnaryServerInterceptor, logUnary(logger)),
		grpc.ChainStreamInterceptor(grpc_prometheus.StreamServerInterceptor),
	}, opts...)
	grpcServer := grpc.NewServer(serverOpts...)

	RegisterTriageEngineServer(grpcServer, service)
	grpc_prometheus.Register(grpcServer)

	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthSrv)
	reflection.Register(grpcServer)

	s := &Server{
		grpcServer:      grpcServer,
		health:          healthSrv,
		listener:        lis,
		gracefulTimeout: cfg.GracefulTimeout,
	}
	s.SetServing(true)
	return s, nil
}

// logUnary logs every TriageEngine call at debug level and server-side
// failures at error level.
func logUnary(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		code := status.Code(err)
		attrs := []any{
			slog.String("method", info.FullMethod),
			slog.String("code", code.String()),
			slog.Duration("duration", time.Since(start)),
		}
		switch code {
		case codes.Internal, codes.Unknown:
			logger.Error("grpc request failed", append(attrs, slog.Any("error", err))...)
		default:
			logger.Debug("grpc request", attrs...)
		}
		return resp, err
	}
}

// SetServing flips the health status reported for TriageEngine and the
// server as a whole.
func (s *Server) SetServing(serving bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(TriageEngineServiceName, st)
}

// Start serves until Shutdown. A graceful stop returns nil.
func (s *Server) Start() error {
	if s.grpcServer == nil || s.listener == nil {
		return errors.New("server not initialised")
	}
	if err := s.grpcServer.Serve(s.listener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}

// Shutdown reports NOT_SERVING, then drains in-flight calls until ctx
// expires and stops hard.
func (s *Server) Shutdown(ctx context.Context) {
	if s.grpcServer == nil {
		return
	}
	s.health.Shutdown()

	stopped := make(chan struct{})
	go func() {
		s.grpcServer.GracefulStop()
		close(stopped)
	}()

	select {
	case <-ctx.Done():
		s.grpcServer.Stop()
	case <-stopped:
	}
}

// Address returns the bound listener address.
func (s *Server) Address() string {
	return s.listener.Addr().String()
}

// GracefulTimeout is the drain window configured for Shutdown.
func (s *Server) GracefulTimeout() time.Duration {
	return s.gracefulTimeout
}
