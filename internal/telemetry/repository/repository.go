package repository

import (
	"context"

	"runtelemetry/internal/telemetry/domain"
)

// FrameworkCount is the number of stored runs that reported a framework.
type FrameworkCount struct {
	Framework string
	Runs      int64
}

// Repository defines persistence for run telemetry reports.
type Repository interface {
	// Save stores report, merging it into any report already stored for the same run. Sets report.ID.
	Save(ctx context.Context, report *domain.Report) error
	// GetByRunID returns the stored report for runID, or nil if none.
	GetByRunID(ctx context.Context, runID string) (*domain.Report, error)
	ListByProject(ctx context.Context, entity, project string, limit, offset int32) ([]*domain.Report, error)
	CountByFramework(ctx context.Context) ([]FrameworkCount, error)
}
