package repository

import (
	"database/sql"
	"encoding/json"
	"time"

	"runtelemetry/internal/telemetry/domain"
	"runtelemetry/internal/telemetry/wire"
)

// row is the column set written for one report. The protobuf bytes are the source of truth;
// the JSON and the extracted string columns exist for ad-hoc queries and indexes.
type row struct {
	runID         string
	entity        string
	project       string
	framework     sql.NullString
	cliVersion    sql.NullString
	pythonVersion sql.NullString
	recordJSON    []byte
	recordPB      []byte
	createdAt     time.Time
}

func newRow(report *domain.Report, record domain.Record) (row, error) {
	recordJSON, err := json.Marshal(record)
	if err != nil {
		return row{}, err
	}
	createdAt := report.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	return row{
		runID:         report.RunID,
		entity:        report.Entity,
		project:       report.Project,
		framework:     nullString(record.Framework),
		cliVersion:    nullString(record.CLIVersion),
		pythonVersion: nullString(record.PythonVersion),
		recordJSON:    recordJSON,
		recordPB:      wire.AppendRecord([]byte{}, &record),
		createdAt:     createdAt.UTC(),
	}, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
