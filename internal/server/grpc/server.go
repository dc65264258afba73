package grpc

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"runtime/debug"
	"strconv"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
)

// Service is the health service name reported for the predictor.
const Service = "infero.Predictor"

// Server exposes the standard gRPC health protocol.
type Server struct {
	grpc   *grpc.Server
	health *health.Server
	port   int
}

// New creates a health server for port. Both the overall and the predictor
// status start as NOT_SERVING.
func New(port int) *Server {
	s := &Server{
		grpc: grpc.NewServer(
			grpc.ChainUnaryInterceptor(LoggingInterceptor, RecoveryInterceptor),
		),
		health: health.NewServer(),
		port:   port,
	}

	healthpb.RegisterHealthServer(s.grpc, s.health)
	reflection.Register(s.grpc)

	s.SetServing(false)

	return s
}

// SetServing flips the reported status of the predictor service.
func (s *Server) SetServing(serving bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		st = healthpb.HealthCheckResponse_SERVING
	}

	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(Service, st)
}

// Serve accepts connections on lis until Stop.
func (s *Server) Serve(lis net.Listener) error {
	slog.Info("gRPC server listening", "addr", lis.Addr().String())

	if err := s.grpc.Serve(lis); err != nil {
		return fmt.Errorf("grpc: %w", err)
	}
	return nil
}

// Listen binds the configured port without serving it yet.
func (s *Server) Listen() (net.Listener, error) {
	lis, err := net.Listen("tcp", ":"+strconv.Itoa(s.port))
	if err != nil {
		return nil, fmt.Errorf("grpc: failed to listen on %d: %w", s.port, err)
	}
	return lis, nil
}

// Stop drains in-flight calls, forcing a stop once ctx is done.
func (s *Server) Stop(ctx context.Context) {
	s.health.Shutdown()

	done := make(chan struct{})
	go func() {
		s.grpc.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		s.grpc.Stop()
	}
}

// LoggingInterceptor logs every unary call.
func LoggingInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()

	resp, err := handler(ctx, req)

	slog.Debug("gRPC request",
		"method", info.FullMethod,
		"code", status.Code(err).String(),
		"duration", time.Since(start),
	)

	return resp, err
}

// RecoveryInterceptor turns a handler panic into an Internal status.
func RecoveryInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Panic in gRPC handler", "method", info.FullMethod, "panic", r, "stack", string(debug.Stack()))
			err = status.Errorf(codes.Internal, "panic recovered: %v", r)
		}
	}()

	return handler(ctx, req)
}
