package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"runtelemetry/internal/telemetry/domain"
	"runtelemetry/internal/telemetry/wire"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a telemetry repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const selectColumns = `id, run_id, entity, project, record_pb, created_at`

// Save upserts the report by run id inside a transaction. A stored record is merged with the
// incoming one (flags OR-ed, present strings replaced) so a run's telemetry never loses a flag.
// It sets report.ID and report.Record to the stored result.
func (r *PostgresRepository) Save(ctx context.Context, report *domain.Report) error {
	if report == nil || report.RunID == "" {
		return errors.New("repository: report without run_id")
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	merged := report.Record.Clone()
	var stored []byte
	err = tx.QueryRowContext(ctx,
		`SELECT record_pb FROM run_telemetry WHERE run_id = $1 FOR UPDATE`, report.RunID).Scan(&stored)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return err
	default:
		prev, err := wire.UnmarshalRecord(stored)
		if err != nil {
			return fmt.Errorf("repository: stored record for run %s: %w", report.RunID, err)
		}
		prev.Merge(merged)
		merged = *prev
	}

	row, err := newRow(report, merged)
	if err != nil {
		return err
	}
	var id int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO run_telemetry (run_id, entity, project, framework, cli_version, python_version, record, record_pb, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (run_id) DO UPDATE SET
			entity = COALESCE(NULLIF(EXCLUDED.entity, ''), run_telemetry.entity),
			project = COALESCE(NULLIF(EXCLUDED.project, ''), run_telemetry.project),
			framework = EXCLUDED.framework,
			cli_version = EXCLUDED.cli_version,
			python_version = EXCLUDED.python_version,
			record = EXCLUDED.record,
			record_pb = EXCLUDED.record_pb,
			updated_at = now()
		RETURNING id`,
		row.runID, row.entity, row.project, row.framework, row.cliVersion, row.pythonVersion,
		row.recordJSON, row.recordPB, row.createdAt,
	).Scan(&id)
	if err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	report.ID = id
	report.Record = merged
	return nil
}

// GetByRunID returns the report stored for runID, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByRunID(ctx context.Context, runID string) (*domain.Report, error) {
	rep, err := scanReport(r.db.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM run_telemetry WHERE run_id = $1`, runID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return rep, err
}

// ListByProject returns reports for the given entity and project, newest first, paginated by limit and offset.
// Returns (nil, error) only on database errors.
func (r *PostgresRepository) ListByProject(ctx context.Context, entity, project string, limit, offset int32) ([]*domain.Report, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM run_telemetry
		 WHERE entity = $1 AND project = $2
		 ORDER BY created_at DESC, id DESC
		 LIMIT $3 OFFSET $4`, entity, project, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.Report{}
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rep)
	}
	return out, rows.Err()
}

// CountByFramework returns run counts per detected framework, most used first.
// Runs without a framework are counted under "".
func (r *PostgresRepository) CountByFramework(ctx context.Context) ([]FrameworkCount, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT COALESCE(framework, ''), COUNT(*) FROM run_telemetry
		GROUP BY 1 ORDER BY 2 DESC, 1`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []FrameworkCount
	for rows.Next() {
		var c FrameworkCount
		if err := rows.Scan(&c.Framework, &c.Runs); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanReport(s scanner) (*domain.Report, error) {
	var (
		rep       domain.Report
		recordPB  []byte
		createdAt time.Time
	)
	if err := s.Scan(&rep.ID, &rep.RunID, &rep.Entity, &rep.Project, &recordPB, &createdAt); err != nil {
		return nil, err
	}
	rec, err := wire.UnmarshalRecord(recordPB)
	if err != nil {
		return nil, fmt.Errorf("repository: stored record for run %s: %w", rep.RunID, err)
	}
	rep.Record = *rec
	rep.CreatedAt = createdAt.UTC()
	return &rep, nil
}
