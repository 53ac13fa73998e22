// Package metrics counts ingested telemetry for Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"runtelemetry/internal/telemetry/domain"
)

const namespace = "runtelemetry"

// Outcomes of one report, the values of the outcome label.
const (
	OutcomeAccepted  = "accepted"
	OutcomeDuplicate = "duplicate"
	OutcomeDenied    = "denied"
	OutcomeInvalid   = "invalid"
	OutcomeError     = "error"
)

// Metrics holds the service's collectors. A nil *Metrics ignores every call.
type Metrics struct {
	reports     *prometheus.CounterVec
	frameworks  *prometheus.CounterVec
	imports     *prometheus.CounterVec
	features    *prometheus.CounterVec
	envs        *prometheus.CounterVec
	rpcDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		reports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_total",
			Help:      "Telemetry reports received, by outcome.",
		}, []string{"outcome"}),
		frameworks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_by_framework_total",
			Help:      "Accepted reports by detected framework.",
		}, []string{"framework"}),
		imports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "import_flags_total",
			Help:      "Import flags set in accepted reports, by phase and module.",
		}, []string{"phase", "module"}),
		features: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feature_flags_total",
			Help:      "Feature flags set in accepted reports.",
		}, []string{"feature"}),
		envs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "env_flags_total",
			Help:      "Environment flags set in accepted reports.",
		}, []string{"env"}),
		rpcDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rpc_duration_seconds",
			Help:      "gRPC handling time, by method and status code.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "code"}),
	}
	reg.MustRegister(m.reports, m.frameworks, m.imports, m.features, m.envs, m.rpcDuration)
	return m
}

// NewRegistry returns a registry with the Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler serves reg in the Prometheus exposition format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// Outcome counts one report with the given outcome.
func (m *Metrics) Outcome(outcome string) {
	if m == nil {
		return
	}
	m.reports.WithLabelValues(outcome).Inc()
}

// Accepted counts the flags of an accepted report.
func (m *Metrics) Accepted(r *domain.Record) {
	if m == nil || r == nil {
		return
	}
	m.reports.WithLabelValues(OutcomeAccepted).Inc()
	framework := r.GetFramework()
	if framework == "" {
		framework = "none"
	}
	m.frameworks.WithLabelValues(framework).Inc()
	if r.HasImportsInit() {
		for _, name := range r.ImportsInit.Enabled() {
			m.imports.WithLabelValues("init", name).Inc()
		}
	}
	if r.HasImportsFinish() {
		for _, name := range r.ImportsFinish.Enabled() {
			m.imports.WithLabelValues("finish", name).Inc()
		}
	}
	if r.HasFeature() {
		for _, name := range r.Feature.Enabled() {
			m.features.WithLabelValues(name).Inc()
		}
	}
	if r.HasEnv() {
		for _, name := range r.Env.Enabled() {
			m.envs.WithLabelValues(name).Inc()
		}
	}
}

// ObserveRPC records how long a call took.
func (m *Metrics) ObserveRPC(method, code string, d time.Duration) {
	if m == nil {
		return
	}
	m.rpcDuration.WithLabelValues(method, code).Observe(d.Seconds())
}
