package server

import (
	"context"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	telemetryv1 "runtelemetry/api/telemetry/v1"
	"runtelemetry/internal/security"
	"runtelemetry/internal/telemetry/domain"
	"runtelemetry/internal/telemetry/handler"
)

// mockServiceRegistrar implements grpc.ServiceRegistrar for testing.
type mockServiceRegistrar struct {
	services []string
}

func (m *mockServiceRegistrar) RegisterService(desc *grpc.ServiceDesc, impl interface{}) {
	m.services = append(m.services, desc.ServiceName)
}

func TestRegisterServices_AllServicesRegistered(t *testing.T) {
	mockReg := &mockServiceRegistrar{}
	RegisterServices(mockReg, Deps{})

	want := []string{telemetryv1.ServiceName, healthpb.Health_ServiceDesc.ServiceName}
	if len(mockReg.services) != len(want) {
		t.Fatalf("registered %v, want %v", mockReg.services, want)
	}
	for i, name := range want {
		if mockReg.services[i] != name {
			t.Errorf("service[%d] = %q, want %q", i, mockReg.services[i], name)
		}
	}
}

func dialBufconn(t *testing.T, s *grpc.Server) *grpc.ClientConn {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	go func() { _ = s.Serve(lis) }()
	t.Cleanup(s.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestNewServer_AuthAndHealth(t *testing.T) {
	tokens, err := security.NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	s := NewServer(Options{Tokens: tokens})
	RegisterServices(s, Deps{Telemetry: handler.Deps{}})
	conn := dialBufconn(t, s)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Health is public and travels through the proto fallback of the codec.
	health, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{})
	if err != nil {
		t.Fatalf("health Check: %v", err)
	}
	if health.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("health status = %v, want SERVING", health.GetStatus())
	}

	client := telemetryv1.NewTelemetryServiceClient(conn)
	req := &telemetryv1.ReportTelemetryRequest{Report: &domain.Report{RunID: "r1"}}
	if _, err := client.ReportTelemetry(ctx, req); status.Code(err) != codes.Unauthenticated {
		t.Fatalf("without token: code = %v, want Unauthenticated", status.Code(err))
	}

	token, _, err := tokens.Issue("ci-runner", "team")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	authed := metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+token)
	resp, err := client.ReportTelemetry(authed, req)
	if err != nil {
		t.Fatalf("ReportTelemetry: %v", err)
	}
	if !resp.Accepted {
		t.Errorf("resp = %+v, want accepted", resp)
	}
}
