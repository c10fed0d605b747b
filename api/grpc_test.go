package api

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
)

type readiness bool

func (r *readiness) Ready() bool { return bool(*r) }

func dialHealth(t *testing.T, hs *HealthServer) healthpb.HealthClient {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := NewGRPCServer(hs)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return healthpb.NewHealthClient(conn)
}

func TestHealthServer_Serving(t *testing.T) {
	ready := readiness(true)
	client := dialHealth(t, NewHealthServer(&ready))

	for _, name := range []string{"", InferenceServiceName} {
		resp, err := client.Check(context.Background(), &healthpb.HealthCheckRequest{Service: name})
		require.NoError(t, err)
		require.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)
	}
}

func TestHealthServer_Refresh(t *testing.T) {
	ready := readiness(false)
	hs := NewHealthServer(&ready)
	client := dialHealth(t, hs)

	resp, err := client.Check(context.Background(), &healthpb.HealthCheckRequest{Service: InferenceServiceName})
	require.NoError(t, err)
	require.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.Status)

	ready = true
	require.Equal(t, healthpb.HealthCheckResponse_SERVING, hs.Refresh())
	resp, err = client.Check(context.Background(), &healthpb.HealthCheckRequest{Service: InferenceServiceName})
	require.NoError(t, err)
	require.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)
}
