package api

import (
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// InferenceServiceName is the health-check service name of the classifier.
const InferenceServiceName = "derma.Inference"

// Readiness reports whether the models are loaded.
type Readiness interface {
	Ready() bool
}

// HealthServer publishes model readiness over the standard gRPC health
// protocol.
type HealthServer struct {
	*health.Server
	readiness Readiness
}

func NewHealthServer(readiness Readiness) *HealthServer {
	s := &HealthServer{Server: health.NewServer(), readiness: readiness}
	s.Refresh()
	return s
}

// Refresh re-reads readiness and updates both the overall and the
// inference service status.
func (s *HealthServer) Refresh() healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if s.readiness.Ready() {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.SetServingStatus("", status)
	s.SetServingStatus(InferenceServiceName, status)
	return status
}

// NewGRPCServer returns a server exposing the health service and
// reflection.
func NewGRPCServer(hs *HealthServer, opts ...grpc.ServerOption) *grpc.Server {
	srv := grpc.NewServer(opts...)
	healthpb.RegisterHealthServer(srv, hs.Server)
	reflection.Register(srv)
	return srv
}
