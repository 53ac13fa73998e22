package server

import (
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	telemetryv1 "runtelemetry/api/telemetry/v1"
	healthhandler "runtelemetry/internal/health/handler"
	"runtelemetry/internal/server/interceptors"
	"runtelemetry/internal/telemetry/handler"
	"runtelemetry/internal/telemetry/metrics"
)

// Deps holds service dependencies for gRPC handlers.
type Deps struct {
	// Telemetry is the ingestion pipeline for TelemetryService.
	Telemetry handler.Deps
	// HealthPinger is used by the health service for readiness (e.g. *sql.DB). If nil, Check skips the DB ping.
	HealthPinger healthhandler.Pinger
	// HealthPolicyChecker is used by the health service for readiness (e.g. OPA evaluator). If nil, Check skips the policy check.
	HealthPolicyChecker healthhandler.PolicyChecker
	// HealthCache is used by the health service for readiness (e.g. Redis dedupe guard). If nil, Check skips it.
	HealthCache healthhandler.CachePinger
}

// Options configures NewServer.
type Options struct {
	// Tokens validates reporter bearer tokens. If nil, TelemetryService is unauthenticated.
	Tokens interceptors.TokenValidator
	// Metrics records RPC durations. May be nil.
	Metrics *metrics.Metrics
	// Tracing installs the otelgrpc stats handler, which uses the global OTel providers.
	Tracing bool
}

// PublicMethods do not require a reporter token.
var PublicMethods = map[string]bool{
	healthpb.Health_Check_FullMethodName: true,
	healthpb.Health_Watch_FullMethodName: true,
	"/grpc.health.v1.Health/List":        true,
}

// NewServer returns a gRPC server using the telemetry codec, the auth and metrics
// interceptors and, when enabled, otelgrpc instrumentation.
func NewServer(opts Options) *grpc.Server {
	serverOpts := []grpc.ServerOption{
		grpc.ForceServerCodec(telemetryv1.Codec{}),
		grpc.ChainUnaryInterceptor(
			interceptors.MetricsUnary(opts.Metrics, PublicMethods),
			interceptors.AuthUnary(opts.Tokens, PublicMethods),
		),
	}
	if opts.Tracing {
		serverOpts = append(serverOpts, grpc.StatsHandler(otelgrpc.NewServerHandler()))
	}
	return grpc.NewServer(serverOpts...)
}

// RegisterServices registers every gRPC service with the given server.
//
// Service → handler mapping:
//   - runtelemetry.telemetry.v1.TelemetryService → internal/telemetry/handler
//   - grpc.health.v1.Health                      → internal/health/handler
func RegisterServices(s grpc.ServiceRegistrar, deps Deps) {
	telemetryv1.RegisterTelemetryServiceServer(s, handler.NewServer(deps.Telemetry))
	healthpb.RegisterHealthServer(s, healthhandler.NewServer(deps.HealthPinger, deps.HealthPolicyChecker, deps.HealthCache))
}
