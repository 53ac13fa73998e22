// Package producer defines the interface for publishing accepted telemetry reports (e.g. to Kafka).
package producer

import (
	"context"

	"runtelemetry/internal/telemetry/domain"
)

// Producer publishes reports. Callers use it best-effort: log and ignore errors.
type Producer interface {
	// Emit sends a single report. Implementations may block briefly; call from a goroutine if needed.
	Emit(ctx context.Context, report *domain.Report) error
	// Close releases resources (e.g. Kafka writer). Safe to call if already closed.
	Close() error
}
