package handler

import (
	"context"
	"log"
	"strings"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	telemetryv1 "runtelemetry/api/telemetry/v1"
	"runtelemetry/internal/server/interceptors"
	"runtelemetry/internal/telemetry"
	"runtelemetry/internal/telemetry/dedupe"
	"runtelemetry/internal/telemetry/domain"
	"runtelemetry/internal/telemetry/metrics"
	"runtelemetry/internal/telemetry/policy"
	"runtelemetry/internal/telemetry/producer"
	"runtelemetry/internal/telemetry/repository"
)

// PolicyEvaluator decides whether a report is ingested (e.g. *policy.Evaluator).
type PolicyEvaluator interface {
	Evaluate(ctx context.Context, report *domain.Report) (policy.Decision, error)
}

// Deps holds the ingestion pipeline. Every field may be nil; that stage is then skipped.
type Deps struct {
	Policy     PolicyEvaluator
	Guard      dedupe.Guard
	Repository repository.Repository
	// Producer publishes accepted reports synchronously; failures are logged.
	Producer producer.Producer
	// Emitter receives accepted reports asynchronously (e.g. the OTel log emitter).
	Emitter telemetry.EventEmitter
	Metrics *metrics.Metrics
}

// Server implements TelemetryService.
type Server struct {
	telemetryv1.UnimplementedTelemetryServiceServer
	deps Deps
	now  func() time.Time
}

// NewServer returns a new Telemetry gRPC server.
func NewServer(deps Deps) *Server {
	return &Server{deps: deps, now: time.Now}
}

// ReportTelemetry ingests one run's report.
func (s *Server) ReportTelemetry(ctx context.Context, req *telemetryv1.ReportTelemetryRequest) (*telemetryv1.ReportTelemetryResponse, error) {
	if req == nil || req.Report == nil {
		s.deps.Metrics.Outcome(metrics.OutcomeInvalid)
		return nil, status.Error(codes.InvalidArgument, "report is required")
	}
	return s.ingest(ctx, req.Report)
}

// BatchReportTelemetry ingests up to telemetryv1.MaxBatchSize reports. Invalid or foreign reports
// yield a rejected result with the reason; any other failure aborts the batch.
func (s *Server) BatchReportTelemetry(ctx context.Context, req *telemetryv1.BatchReportTelemetryRequest) (*telemetryv1.BatchReportTelemetryResponse, error) {
	if req == nil {
		return &telemetryv1.BatchReportTelemetryResponse{}, nil
	}
	if len(req.Reports) > telemetryv1.MaxBatchSize {
		return nil, status.Errorf(codes.InvalidArgument, "batch holds %d reports, max %d", len(req.Reports), telemetryv1.MaxBatchSize)
	}
	resp := &telemetryv1.BatchReportTelemetryResponse{
		Results: make([]*telemetryv1.ReportTelemetryResponse, 0, len(req.Reports)),
	}
	for _, report := range req.Reports {
		if report == nil {
			s.deps.Metrics.Outcome(metrics.OutcomeInvalid)
			resp.Results = append(resp.Results, rejected("report is required"))
			continue
		}
		result, err := s.ingest(ctx, report)
		if err != nil {
			switch status.Code(err) {
			case codes.InvalidArgument, codes.PermissionDenied:
				resp.Results = append(resp.Results, rejected(status.Convert(err).Message()))
				continue
			}
			return nil, err
		}
		resp.Results = append(resp.Results, result)
	}
	return resp, nil
}

// ingest runs one report through validate, entity scope, policy, dedupe, save,
// metrics, producer and the async emitter, in that order.
func (s *Server) ingest(ctx context.Context, in *domain.Report) (*telemetryv1.ReportTelemetryResponse, error) {
	report := *in
	report.RunID = strings.TrimSpace(report.RunID)
	if report.RunID == "" {
		s.deps.Metrics.Outcome(metrics.OutcomeInvalid)
		return nil, status.Error(codes.InvalidArgument, "run_id is required")
	}
	if report.CreatedAt.IsZero() {
		report.CreatedAt = s.now().UTC()
	}
	if entity, ok := interceptors.GetEntity(ctx); ok && entity != "" {
		switch report.Entity {
		case "":
			report.Entity = entity
		case entity:
		default:
			s.deps.Metrics.Outcome(metrics.OutcomeDenied)
			return nil, status.Error(codes.PermissionDenied, "entity does not match reporter token")
		}
	}

	if s.deps.Policy != nil {
		decision, err := s.deps.Policy.Evaluate(ctx, &report)
		if err != nil {
			log.Printf("telemetry: policy evaluation failed for run %s: %v", report.RunID, err)
			s.deps.Metrics.Outcome(metrics.OutcomeError)
			return nil, status.Error(codes.Internal, "policy evaluation failed")
		}
		if !decision.Allow {
			s.deps.Metrics.Outcome(metrics.OutcomeDenied)
			return &telemetryv1.ReportTelemetryResponse{Reasons: decision.Reasons}, nil
		}
	}

	claimed := false
	if s.deps.Guard != nil {
		first, err := s.deps.Guard.Claim(ctx, report.RunID)
		switch {
		case err != nil:
			log.Printf("telemetry: dedupe claim failed for run %s: %v", report.RunID, err)
		case !first:
			s.deps.Metrics.Outcome(metrics.OutcomeDuplicate)
			return &telemetryv1.ReportTelemetryResponse{Accepted: true, Duplicate: true}, nil
		default:
			claimed = true
		}
	}

	if s.deps.Repository != nil {
		if err := s.deps.Repository.Save(ctx, &report); err != nil {
			log.Printf("telemetry: save failed for run %s: %v", report.RunID, err)
			if claimed {
				if relErr := s.deps.Guard.Release(ctx, report.RunID); relErr != nil {
					log.Printf("telemetry: dedupe release failed for run %s: %v", report.RunID, relErr)
				}
			}
			s.deps.Metrics.Outcome(metrics.OutcomeError)
			return nil, status.Error(codes.Internal, "failed to save report")
		}
	}

	s.deps.Metrics.Accepted(&report.Record)
	if s.deps.Producer != nil {
		if err := s.deps.Producer.Emit(ctx, &report); err != nil {
			log.Printf("telemetry: ReportTelemetry produce failed: %v", err)
		}
	}
	telemetry.EmitAsync(s.deps.Emitter, ctx, &report)
	return &telemetryv1.ReportTelemetryResponse{Accepted: true}, nil
}

func rejected(reason string) *telemetryv1.ReportTelemetryResponse {
	return &telemetryv1.ReportTelemetryResponse{Reasons: []string{reason}}
}
