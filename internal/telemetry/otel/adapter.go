package otel

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"runtelemetry/internal/telemetry"
	"runtelemetry/internal/telemetry/domain"
)

// LoggerName is the instrumentation scope of report log records.
const LoggerName = "runtelemetry.reports"

// NewEventEmitter returns an EventEmitter that sends reports as OTel log records via the given LoggerProvider.
// If provider is nil, returns a no-op emitter.
func NewEventEmitter(provider *sdklog.LoggerProvider) telemetry.EventEmitter {
	if provider == nil {
		return noopEmitter{}
	}
	return &otelEmitter{logger: provider.Logger(LoggerName)}
}

// NewEventEmitterWithLogger returns an EventEmitter writing to logger directly.
func NewEventEmitterWithLogger(logger otellog.Logger) telemetry.EventEmitter {
	return &otelEmitter{logger: logger}
}

type noopEmitter struct{}

func (noopEmitter) Emit(context.Context, *domain.Report) error { return nil }

type otelEmitter struct {
	logger otellog.Logger
}

// Emit converts the report to an OTel log record: envelope and framework as attributes,
// enabled flags as string-slice attributes per group, the record JSON as body.
func (e *otelEmitter) Emit(ctx context.Context, report *domain.Report) error {
	if report == nil {
		return nil
	}
	rec := otellog.Record{}
	rec.SetSeverity(otellog.SeverityInfo)
	if !report.CreatedAt.IsZero() {
		rec.SetTimestamp(report.CreatedAt)
	} else {
		rec.SetTimestamp(time.Now().UTC())
	}
	if body, err := json.Marshal(report.Record); err == nil && !report.Record.Empty() {
		rec.SetBody(otellog.StringValue(string(body)))
	}

	rec.AddAttributes(otellog.String("run_id", report.RunID))
	if report.Entity != "" {
		rec.AddAttributes(otellog.String("entity", report.Entity))
	}
	if report.Project != "" {
		rec.AddAttributes(otellog.String("project", report.Project))
	}
	r := &report.Record
	if r.HasFramework() {
		rec.AddAttributes(otellog.String("framework", r.GetFramework()))
	}
	if r.HasCLIVersion() {
		rec.AddAttributes(otellog.String("cli_version", r.GetCLIVersion()))
	}
	if r.HasPythonVersion() {
		rec.AddAttributes(otellog.String("python_version", r.GetPythonVersion()))
	}
	if r.HasImportsInit() {
		rec.AddAttributes(flagsAttr("imports_init", r.ImportsInit.Enabled()))
	}
	if r.HasImportsFinish() {
		rec.AddAttributes(flagsAttr("imports_finish", r.ImportsFinish.Enabled()))
	}
	if r.HasFeature() {
		rec.AddAttributes(flagsAttr("feature", r.Feature.Enabled()))
	}
	if r.HasEnv() {
		rec.AddAttributes(flagsAttr("env", r.Env.Enabled()))
	}
	if r.HasDeprecated() {
		rec.AddAttributes(flagsAttr("deprecated", r.Deprecated.Enabled()))
	}
	e.logger.Emit(ctx, rec)
	return nil
}

// flagsAttr encodes enabled flag names as a comma-joined string so backends without
// slice support still index them.
func flagsAttr(key string, names []string) otellog.KeyValue {
	return otellog.String(key, strings.Join(names, ","))
}
