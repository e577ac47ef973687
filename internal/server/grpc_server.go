package server

import (
	"fmt"
	"net"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the health service name reported for the sorter
const ServiceName = "inboxsorter.Sorter"

// HealthServer exposes the standard gRPC health service so process
// supervisors can probe whether the watcher is running.
type HealthServer struct {
	grpcServer *grpc.Server
	health     *health.Server
	logger     *zap.Logger
}

// NewHealthServer creates a health server that starts out NOT_SERVING
func NewHealthServer(logger *zap.Logger) *HealthServer {
	grpcServer := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, hs)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)

	return &HealthServer{
		grpcServer: grpcServer,
		health:     hs,
		logger:     logger,
	}
}

// SetServing flips the sorter's reported status
func (s *HealthServer) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(ServiceName, status)
}

// Serve listens on port and blocks until Stop
func (s *HealthServer) Serve(port int) error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	s.logger.Info("health service listening", zap.Int("port", port))
	return s.grpcServer.Serve(lis)
}

// Stop marks everything NOT_SERVING and drains open RPCs
func (s *HealthServer) Stop() {
	s.health.Shutdown()
	s.grpcServer.GracefulStop()
}

// Health returns the underlying health implementation
func (s *HealthServer) Health() healthpb.HealthServer {
	return s.health
}
