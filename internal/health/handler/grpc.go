package handler

import (
	"context"
	"log"
	"time"

	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	telemetryv1 "runtelemetry/api/telemetry/v1"
)

const checkTimeout = 2 * time.Second

// Pinger checks database connectivity (e.g. *sql.DB).
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PolicyChecker checks that the ingestion policy still evaluates (e.g. *policy.Evaluator).
type PolicyChecker interface {
	HealthCheck(ctx context.Context) error
}

// CachePinger checks the shared dedupe store (e.g. *dedupe.RedisGuard).
type CachePinger interface {
	Ping(ctx context.Context) error
}

// Server implements grpc.health.v1.Health for readiness and liveness probes.
type Server struct {
	healthpb.UnimplementedHealthServer
	pinger Pinger
	policy PolicyChecker
	cache  CachePinger
}

// NewServer returns a new Health gRPC server. Any dependency may be nil; its check is skipped.
func NewServer(pinger Pinger, policy PolicyChecker, cache CachePinger) *Server {
	return &Server{pinger: pinger, policy: policy, cache: cache}
}

// Check reports SERVING when every configured dependency responds. The service name must be
// empty (whole server) or the TelemetryService name; other names return NotFound.
// Dependency failures are reported as NOT_SERVING, never as an RPC error.
func (s *Server) Check(ctx context.Context, req *healthpb.HealthCheckRequest) (*healthpb.HealthCheckResponse, error) {
	switch req.GetService() {
	case "", telemetryv1.ServiceName:
	default:
		return nil, status.Errorf(codes.NotFound, "unknown service %q", req.GetService())
	}
	if !s.ready(ctx) {
		return &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_NOT_SERVING}, nil
	}
	return &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_SERVING}, nil
}

func (s *Server) ready(ctx context.Context) bool {
	checks := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"database", nilCheck(s.pinger != nil, func(ctx context.Context) error { return s.pinger.PingContext(ctx) })},
		{"policy", nilCheck(s.policy != nil, func(ctx context.Context) error { return s.policy.HealthCheck(ctx) })},
		{"redis", nilCheck(s.cache != nil, func(ctx context.Context) error { return s.cache.Ping(ctx) })},
	}
	for _, c := range checks {
		if c.fn == nil {
			continue
		}
		checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
		err := c.fn(checkCtx)
		cancel()
		if err != nil {
			log.Printf("health: %s check failed: %v", c.name, err)
			return false
		}
	}
	return true
}

func nilCheck(enabled bool, fn func(context.Context) error) func(context.Context) error {
	if !enabled {
		return nil
	}
	return fn
}
