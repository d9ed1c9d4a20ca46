// Package storage - SQLite backend
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"pipeline-cost/core/types"
	"pipeline-cost/internal/errors"
)

// timeLayout sorts lexically in chronological order for UTC times
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS reports (
	id TEXT PRIMARY KEY,
	backend TEXT NOT NULL,
	window_start TEXT NOT NULL,
	window_end TEXT NOT NULL,
	currency TEXT NOT NULL,
	generated_at TEXT NOT NULL,
	partial INTEGER NOT NULL,
	record_count INTEGER NOT NULL,
	total TEXT NOT NULL,
	pipeline_runs INTEGER NOT NULL DEFAULT 0,
	activity_runs INTEGER NOT NULL DEFAULT 0,
	skipped_activities INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_reports_generated_at ON reports(generated_at);

CREATE TABLE IF NOT EXISTS cost_records (
	report_id TEXT NOT NULL,
	seq INTEGER NOT NULL,
	pipeline_name TEXT NOT NULL,
	pipeline_run_id TEXT NOT NULL,
	activity_type TEXT NOT NULL,
	activity_start TEXT,
	activity_end TEXT,
	billed_duration_hours REAL NOT NULL,
	billed_meter_type TEXT NOT NULL,
	billed_unit TEXT NOT NULL,
	billed_amount TEXT NOT NULL,
	PRIMARY KEY (report_id, seq),
	FOREIGN KEY (report_id) REFERENCES reports(id) ON DELETE CASCADE
);
`

// SQLiteStore stores reports in an embedded SQLite database
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (and migrates) the database at path
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, errors.Storage("failed to create storage directory", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Storage("failed to open database", err)
	}
	if path == ":memory:" {
		// every connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}

	for _, pragma := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, errors.Storage("failed to configure database", err).WithContext("pragma", pragma)
		}
	}

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, errors.Storage("failed to migrate database", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Save implements Store
func (s *SQLiteStore) Save(ctx context.Context, report *types.Report) error {
	h := Header(report)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Storage("begin tx failed", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO reports (id, backend, window_start, window_end, currency, generated_at, partial, record_count, total,
			pipeline_runs, activity_runs, skipped_activities)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		h.ID, h.Backend,
		formatTime(h.Window.Start), formatTime(h.Window.End),
		string(h.Currency), formatTime(h.GeneratedAt),
		h.Partial, h.RecordCount, h.Total.String(),
		h.Stats.PipelineRuns, h.Stats.ActivityRuns, h.Stats.SkippedActivities,
	)
	if err != nil {
		return errors.Storage("insert report failed", err).WithContext("report", h.ID)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO cost_records (report_id, seq, pipeline_name, pipeline_run_id, activity_type,
			activity_start, activity_end, billed_duration_hours, billed_meter_type, billed_unit, billed_amount)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return errors.Storage("prepare insert failed", err)
	}
	defer stmt.Close()

	for i, rec := range report.Records {
		if _, err := stmt.ExecContext(ctx,
			h.ID, i, rec.PipelineName, rec.PipelineRunID, rec.ActivityType,
			nullTime(rec.ActivityStartTime), nullTime(rec.ActivityEndTime),
			rec.BilledDurationHours, rec.BilledMeterType, rec.BilledUnit, rec.BilledAmount.String(),
		); err != nil {
			return errors.Storage("insert cost record failed", err).WithContext("seq", i)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Storage("commit failed", err)
	}
	return nil
}

const sqliteReportColumns = `id, backend, window_start, window_end, currency, generated_at, partial, record_count, total,
	pipeline_runs, activity_runs, skipped_activities`

// Get implements Store
func (s *SQLiteStore) Get(ctx context.Context, id string) (*StoredReport, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sqliteReportColumns+` FROM reports WHERE id = ?`, id)
	r, err := scanSQLiteReport(row)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("report", id)
	}
	if err != nil {
		return nil, errors.Storage("get report failed", err)
	}
	return r, nil
}

// List implements Store
func (s *SQLiteStore) List(ctx context.Context, limit int) ([]*StoredReport, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sqliteReportColumns+` FROM reports ORDER BY generated_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, errors.Storage("list reports failed", err)
	}
	defer rows.Close()

	var out []*StoredReport
	for rows.Next() {
		r, err := scanSQLiteReport(rows)
		if err != nil {
			return nil, errors.Storage("scan report failed", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Storage("list reports failed", err)
	}
	return out, nil
}

// Records implements Store
func (s *SQLiteStore) Records(ctx context.Context, id string) ([]types.CostRecord, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT pipeline_name, pipeline_run_id, activity_type, activity_start, activity_end,
			billed_duration_hours, billed_meter_type, billed_unit, billed_amount
		 FROM cost_records WHERE report_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, errors.Storage("query cost records failed", err)
	}
	defer rows.Close()

	out := []types.CostRecord{}
	for rows.Next() {
		var (
			rec        types.CostRecord
			start, end sql.NullString
			amount     string
		)
		if err := rows.Scan(&rec.PipelineName, &rec.PipelineRunID, &rec.ActivityType, &start, &end,
			&rec.BilledDurationHours, &rec.BilledMeterType, &rec.BilledUnit, &amount); err != nil {
			return nil, errors.Storage("scan cost record failed", err)
		}
		if rec.ActivityStartTime, err = parseNullTime(start); err != nil {
			return nil, errors.Storage("corrupt activity start", err)
		}
		if rec.ActivityEndTime, err = parseNullTime(end); err != nil {
			return nil, errors.Storage("corrupt activity end", err)
		}
		if rec.BilledAmount, err = decimal.NewFromString(amount); err != nil {
			return nil, errors.Storage("corrupt billed amount", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Storage("query cost records failed", err)
	}
	return out, nil
}

// Close implements Store
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSQLiteReport(row rowScanner) (*StoredReport, error) {
	var (
		r                          StoredReport
		start, end, generated, cur string
		total                      string
	)
	if err := row.Scan(&r.ID, &r.Backend, &start, &end, &cur, &generated, &r.Partial, &r.RecordCount, &total,
		&r.Stats.PipelineRuns, &r.Stats.ActivityRuns, &r.Stats.SkippedActivities); err != nil {
		return nil, err
	}

	var err error
	if r.Window.Start, err = time.Parse(timeLayout, start); err != nil {
		return nil, fmt.Errorf("window start: %w", err)
	}
	if r.Window.End, err = time.Parse(timeLayout, end); err != nil {
		return nil, fmt.Errorf("window end: %w", err)
	}
	if r.GeneratedAt, err = time.Parse(timeLayout, generated); err != nil {
		return nil, fmt.Errorf("generated at: %w", err)
	}
	if r.Total, err = decimal.NewFromString(total); err != nil {
		return nil, fmt.Errorf("total: %w", err)
	}
	r.Currency = types.Currency(cur)
	return &r, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseNullTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := time.Parse(timeLayout, s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
