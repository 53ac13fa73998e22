package telemetry

import (
	"context"

	"runtelemetry/internal/telemetry/domain"
)

// EventEmitter emits telemetry reports (e.g. to OTel Logs or Kafka). Best-effort; callers log and ignore errors.
type EventEmitter interface {
	Emit(ctx context.Context, report *domain.Report) error
}

// MultiEmitter fans a report out to every non-nil emitter. All emitters are called;
// the first error is returned.
type MultiEmitter []EventEmitter

// Emit calls Emit on each emitter in order.
func (m MultiEmitter) Emit(ctx context.Context, report *domain.Report) error {
	var first error
	for _, e := range m {
		if e == nil {
			continue
		}
		if err := e.Emit(ctx, report); err != nil && first == nil {
			first = err
		}
	}
	return first
}
