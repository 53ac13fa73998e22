package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"runtelemetry/internal/telemetry/domain"
)

func TestAccepted_CountsFlags(t *testing.T) {
	m := New(prometheus.NewRegistry())
	var r domain.Record
	r.SetFramework("torch")
	r.InitImports().Torch = true
	r.FinishImports().Torch = true
	r.FinishImports().Transformers = true
	r.Features().Watch = true
	r.Environment().Kaggle = true

	m.Accepted(&r)
	m.Accepted(&r)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.reports.WithLabelValues(OutcomeAccepted)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.frameworks.WithLabelValues("torch")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.imports.WithLabelValues("init", "torch")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.imports.WithLabelValues("finish", "transformers")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.imports.WithLabelValues("init", "transformers")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.features.WithLabelValues("watch")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.envs.WithLabelValues("kaggle")))
}

func TestAccepted_NoFramework(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.Accepted(&domain.Record{})
	assert.Equal(t, 1.0, testutil.ToFloat64(m.frameworks.WithLabelValues("none")))
}

func TestOutcome(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.Outcome(OutcomeDuplicate)
	m.Outcome(OutcomeDenied)
	m.Outcome(OutcomeDenied)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.reports.WithLabelValues(OutcomeDuplicate)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.reports.WithLabelValues(OutcomeDenied)))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.Outcome(OutcomeError)
	m.Accepted(&domain.Record{})
	m.ObserveRPC("/x", "OK", time.Second)
}

func TestHandler_ExposesMetrics(t *testing.T) {
	reg := NewRegistry()
	m := New(reg)
	m.Outcome(OutcomeAccepted)
	m.ObserveRPC("/runtelemetry.telemetry.v1.TelemetryService/ReportTelemetry", "OK", 20*time.Millisecond)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `runtelemetry_reports_total{outcome="accepted"} 1`), body)
	assert.Contains(t, body, "runtelemetry_rpc_duration_seconds_bucket")
	assert.Contains(t, body, "go_goroutines")
}
