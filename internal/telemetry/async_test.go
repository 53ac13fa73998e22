package telemetry

import (
	"context"
	"sync"
	"testing"
	"time"

	"runtelemetry/internal/telemetry/domain"
)

// mockEventEmitter implements EventEmitter for tests.
type mockEventEmitter struct {
	mu      sync.Mutex
	reports []*domain.Report
	emitErr error
	delay   time.Duration
}

func (m *mockEventEmitter) Emit(ctx context.Context, report *domain.Report) error {
	if m.delay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(m.delay):
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.reports == nil {
		m.reports = make([]*domain.Report, 0)
	}
	m.reports = append(m.reports, report)
	return m.emitErr
}

func (m *mockEventEmitter) getReports() []*domain.Report {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reports
}

func TestEmitAsync_NilEmitter(t *testing.T) {
	ctx := context.Background()
	report := &domain.Report{RunID: "run-1"}

	// Should not panic
	EmitAsync(nil, ctx, report)
}

func TestEmitAsync_NilReport(t *testing.T) {
	emitter := &mockEventEmitter{}
	ctx := context.Background()

	// Should not panic
	EmitAsync(emitter, ctx, nil)

	// Give goroutine time to run (if it starts)
	time.Sleep(10 * time.Millisecond)

	// Should not have emitted anything
	reports := emitter.getReports()
	if len(reports) != 0 {
		t.Errorf("expected 0 reports, got %d", len(reports))
	}
}

func TestEmitAsync_SuccessfulEmit(t *testing.T) {
	emitter := &mockEventEmitter{}
	ctx := context.Background()
	report := &domain.Report{
		RunID:   "run-1",
		Entity:  "team",
		Project: "test_project",
	}

	EmitAsync(emitter, ctx, report)

	// Wait for goroutine to complete
	time.Sleep(100 * time.Millisecond)

	reports := emitter.getReports()
	if len(reports) != 1 {
		t.Fatalf("expected 1 report, got %d", len(reports))
	}
	if reports[0].RunID != "run-1" {
		t.Errorf("report run_id = %q, want %q", reports[0].RunID, "run-1")
	}
	if reports[0].Project != "test_project" {
		t.Errorf("report project = %q, want %q", reports[0].Project, "test_project")
	}
}

func TestEmitAsync_UsesBackgroundContext(t *testing.T) {
	emitter := &mockEventEmitter{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel() // Cancel the request context immediately

	report := &domain.Report{RunID: "run-1"}

	// Should still emit even though request context is cancelled
	EmitAsync(emitter, ctx, report)

	// Wait for goroutine to complete
	time.Sleep(100 * time.Millisecond)

	reports := emitter.getReports()
	if len(reports) != 1 {
		t.Errorf("expected 1 report (context.Background used), got %d", len(reports))
	}
}

func TestEmitAsync_Timeout(t *testing.T) {
	emitter := &mockEventEmitter{
		delay: emitTimeout + 100*time.Millisecond, // Longer than timeout
	}
	ctx := context.Background()
	report := &domain.Report{RunID: "run-1"}

	EmitAsync(emitter, ctx, report)

	// Wait for timeout
	time.Sleep(emitTimeout + 200*time.Millisecond)

	// Event might not be emitted due to timeout, but should not panic
	// The error is logged but doesn't affect the caller
}

func TestEmitAsync_ErrorHandling(t *testing.T) {
	emitter := &mockEventEmitter{
		emitErr: context.DeadlineExceeded,
	}
	ctx := context.Background()
	report := &domain.Report{RunID: "run-1"}

	// Should not panic on error
	EmitAsync(emitter, ctx, report)

	// Wait for goroutine to complete
	time.Sleep(100 * time.Millisecond)

	// Error is logged but doesn't affect the caller
	// Event might still be recorded (implementation detail)
}

func TestEmitAsync_MultipleEvents(t *testing.T) {
	emitter := &mockEventEmitter{}
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		report := &domain.Report{RunID: "run-1"}
		EmitAsync(emitter, ctx, report)
	}

	// Wait for all goroutines to complete
	time.Sleep(200 * time.Millisecond)

	reports := emitter.getReports()
	if len(reports) != 5 {
		t.Errorf("expected 5 reports, got %d", len(reports))
	}
}

func TestEmitAsync_ConcurrentAccess(t *testing.T) {
	emitter := &mockEventEmitter{}
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			report := &domain.Report{RunID: "run-1"}
			EmitAsync(emitter, ctx, report)
		}(i)
	}

	wg.Wait()
	// Wait for all async emits to complete
	time.Sleep(200 * time.Millisecond)

	reports := emitter.getReports()
	if len(reports) != 10 {
		t.Errorf("expected 10 reports, got %d", len(reports))
	}
}
