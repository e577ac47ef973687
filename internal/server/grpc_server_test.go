package server

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func check(t *testing.T, s *HealthServer) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	resp, err := s.Health().Check(context.Background(), &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	return resp.GetStatus()
}

func TestHealthServer_Status(t *testing.T) {
	s := NewHealthServer(zap.NewNop())

	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check(t, s))

	s.SetServing(true)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check(t, s))

	s.SetServing(false)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check(t, s))
}

func TestHealthServer_StopWithoutServe(t *testing.T) {
	s := NewHealthServer(zap.NewNop())
	s.SetServing(true)

	s.Stop()

	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check(t, s))
}
