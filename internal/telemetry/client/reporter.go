// Package client sends run telemetry reports to the ingestion service.
package client

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"

	telemetryv1 "runtelemetry/api/telemetry/v1"
	"runtelemetry/internal/telemetry/domain"
)

// DefaultTimeout bounds one report RPC when Options.Timeout is zero.
const DefaultTimeout = 10 * time.Second

// ErrRejected is returned by Emit when the service does not accept a report.
var ErrRejected = errors.New("client: report rejected")

// Options configures Dial.
type Options struct {
	// Addr is the ingestion service address (host:port).
	Addr string
	// Token is the reporter bearer token; empty sends no authorization.
	Token string
	// Insecure uses plaintext instead of TLS.
	Insecure bool
	// Timeout bounds each RPC; zero means DefaultTimeout.
	Timeout time.Duration
	// Tracing installs the otelgrpc client stats handler.
	Tracing bool
}

// Reporter is a TelemetryService client. It implements telemetry.EventEmitter so a
// Recorder can hand its final report straight to the service.
type Reporter struct {
	conn    *grpc.ClientConn
	client  telemetryv1.TelemetryServiceClient
	timeout time.Duration
}

// bearer attaches the reporter token to every RPC.
type bearer struct {
	token  string
	secure bool
}

func (b bearer) GetRequestMetadata(context.Context, ...string) (map[string]string, error) {
	return map[string]string{"authorization": "Bearer " + b.token}, nil
}

func (b bearer) RequireTransportSecurity() bool { return b.secure }

// Dial creates a Reporter for opts.Addr. extra dial options are appended (e.g. a context dialer in tests).
func Dial(opts Options, extra ...grpc.DialOption) (*Reporter, error) {
	if strings.TrimSpace(opts.Addr) == "" {
		return nil, errors.New("client: address is required")
	}
	dialOpts := make([]grpc.DialOption, 0, 3+len(extra))
	if opts.Insecure {
		dialOpts = append(dialOpts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	} else {
		dialOpts = append(dialOpts, grpc.WithTransportCredentials(credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS12})))
	}
	if opts.Token != "" {
		dialOpts = append(dialOpts, grpc.WithPerRPCCredentials(bearer{token: opts.Token, secure: !opts.Insecure}))
	}
	if opts.Tracing {
		dialOpts = append(dialOpts, grpc.WithStatsHandler(otelgrpc.NewClientHandler()))
	}
	dialOpts = append(dialOpts, extra...)

	conn, err := grpc.NewClient(opts.Addr, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("client: dial %s: %w", opts.Addr, err)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Reporter{conn: conn, client: telemetryv1.NewTelemetryServiceClient(conn), timeout: timeout}, nil
}

// Report sends one report and returns the service's outcome.
func (r *Reporter) Report(ctx context.Context, report *domain.Report) (*telemetryv1.ReportTelemetryResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return r.client.ReportTelemetry(ctx, &telemetryv1.ReportTelemetryRequest{Report: report})
}

// ReportBatch sends reports in chunks of telemetryv1.MaxBatchSize and returns one result per report.
func (r *Reporter) ReportBatch(ctx context.Context, reports []*domain.Report) ([]*telemetryv1.ReportTelemetryResponse, error) {
	results := make([]*telemetryv1.ReportTelemetryResponse, 0, len(reports))
	for start := 0; start < len(reports); start += telemetryv1.MaxBatchSize {
		end := min(start+telemetryv1.MaxBatchSize, len(reports))
		callCtx, cancel := context.WithTimeout(ctx, r.timeout)
		resp, err := r.client.BatchReportTelemetry(callCtx, &telemetryv1.BatchReportTelemetryRequest{Reports: reports[start:end]})
		cancel()
		if err != nil {
			return results, fmt.Errorf("client: batch %d-%d: %w", start, end, err)
		}
		results = append(results, resp.Results...)
	}
	return results, nil
}

// Emit sends report and returns ErrRejected, wrapped with the service's reasons, when it is not accepted.
func (r *Reporter) Emit(ctx context.Context, report *domain.Report) error {
	resp, err := r.Report(ctx, report)
	if err != nil {
		return fmt.Errorf("client: report %s: %w", report.RunID, err)
	}
	if !resp.Accepted {
		return fmt.Errorf("%w: %s", ErrRejected, strings.Join(resp.Reasons, "; "))
	}
	return nil
}

// Close closes the underlying connection.
func (r *Reporter) Close() error {
	return r.conn.Close()
}
