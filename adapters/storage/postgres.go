// Package storage - PostgreSQL backend
package storage

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"pipeline-cost/core/types"
	"pipeline-cost/internal/errors"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS reports (
	id TEXT PRIMARY KEY,
	backend TEXT NOT NULL,
	window_start TIMESTAMPTZ NOT NULL,
	window_end TIMESTAMPTZ NOT NULL,
	currency TEXT NOT NULL,
	generated_at TIMESTAMPTZ NOT NULL,
	partial BOOLEAN NOT NULL,
	record_count INTEGER NOT NULL,
	total NUMERIC NOT NULL,
	pipeline_runs INTEGER NOT NULL DEFAULT 0,
	activity_runs INTEGER NOT NULL DEFAULT 0,
	skipped_activities INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_reports_generated_at ON reports(generated_at DESC);

CREATE TABLE IF NOT EXISTS cost_records (
	report_id TEXT NOT NULL REFERENCES reports(id) ON DELETE CASCADE,
	seq INTEGER NOT NULL,
	pipeline_name TEXT NOT NULL,
	pipeline_run_id TEXT NOT NULL,
	activity_type TEXT NOT NULL,
	activity_start TIMESTAMPTZ,
	activity_end TIMESTAMPTZ,
	billed_duration_hours DOUBLE PRECISION NOT NULL,
	billed_meter_type TEXT NOT NULL,
	billed_unit TEXT NOT NULL,
	billed_amount NUMERIC NOT NULL,
	PRIMARY KEY (report_id, seq)
);
`

// NewPool opens a small connection pool and checks connectivity
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}

	// a CLI run needs few connections
	cfg.MaxConns = 5
	cfg.MinConns = 1
	cfg.MaxConnIdleTime = 5 * time.Minute
	cfg.MaxConnLifetime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	ctxPing, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := pool.Ping(ctxPing); err != nil {
		pool.Close()
		return nil, err
	}

	return pool, nil
}

// PostgresStore stores reports in PostgreSQL
type PostgresStore struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to databaseURL and ensures the schema exists
func OpenPostgres(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := NewPool(ctx, databaseURL)
	if err != nil {
		return nil, errors.Storage("failed to connect to postgres", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, errors.Storage("failed to migrate database", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Save implements Store
func (s *PostgresStore) Save(ctx context.Context, report *types.Report) error {
	h := Header(report)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return errors.Storage("begin tx failed", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO reports (id, backend, window_start, window_end, currency, generated_at, partial, record_count, total,
			pipeline_runs, activity_runs, skipped_activities)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::text::numeric, $10, $11, $12)`,
		h.ID, h.Backend, h.Window.Start, h.Window.End, string(h.Currency), h.GeneratedAt,
		h.Partial, h.RecordCount, h.Total.String(),
		h.Stats.PipelineRuns, h.Stats.ActivityRuns, h.Stats.SkippedActivities,
	)
	if err != nil {
		return errors.Storage("insert report failed", err).WithContext("report", h.ID)
	}

	batch := &pgx.Batch{}
	for i, rec := range report.Records {
		batch.Queue(
			`INSERT INTO cost_records (report_id, seq, pipeline_name, pipeline_run_id, activity_type,
				activity_start, activity_end, billed_duration_hours, billed_meter_type, billed_unit, billed_amount)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11::text::numeric)`,
			h.ID, i, rec.PipelineName, rec.PipelineRunID, rec.ActivityType,
			rec.ActivityStartTime, rec.ActivityEndTime,
			rec.BilledDurationHours, rec.BilledMeterType, rec.BilledUnit, rec.BilledAmount.String(),
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return errors.Storage("insert cost records failed", err).WithContext("report", h.ID)
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Storage("commit failed", err)
	}
	return nil
}

const postgresReportColumns = `id, backend, window_start, window_end, currency, generated_at, partial, record_count, total::text,
	pipeline_runs, activity_runs, skipped_activities`

// Get implements Store
func (s *PostgresStore) Get(ctx context.Context, id string) (*StoredReport, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+postgresReportColumns+` FROM reports WHERE id = $1`, id)
	r, err := scanPostgresReport(row)
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("report", id)
	}
	if err != nil {
		return nil, errors.Storage("get report failed", err)
	}
	return r, nil
}

// List implements Store
func (s *PostgresStore) List(ctx context.Context, limit int) ([]*StoredReport, error) {
	var limitArg interface{}
	if limit > 0 {
		limitArg = limit
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+postgresReportColumns+` FROM reports ORDER BY generated_at DESC, id LIMIT $1`, limitArg)
	if err != nil {
		return nil, errors.Storage("list reports failed", err)
	}
	defer rows.Close()

	var out []*StoredReport
	for rows.Next() {
		r, err := scanPostgresReport(rows)
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
func (s *PostgresStore) Records(ctx context.Context, id string) ([]types.CostRecord, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx,
		`SELECT pipeline_name, pipeline_run_id, activity_type, activity_start, activity_end,
			billed_duration_hours, billed_meter_type, billed_unit, billed_amount::text
		 FROM cost_records WHERE report_id = $1 ORDER BY seq`, id)
	if err != nil {
		return nil, errors.Storage("query cost records failed", err)
	}
	defer rows.Close()

	out := []types.CostRecord{}
	for rows.Next() {
		var (
			rec    types.CostRecord
			amount string
		)
		if err := rows.Scan(&rec.PipelineName, &rec.PipelineRunID, &rec.ActivityType,
			&rec.ActivityStartTime, &rec.ActivityEndTime,
			&rec.BilledDurationHours, &rec.BilledMeterType, &rec.BilledUnit, &amount); err != nil {
			return nil, errors.Storage("scan cost record failed", err)
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
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func scanPostgresReport(row pgx.Row) (*StoredReport, error) {
	var (
		r          StoredReport
		cur, total string
	)
	if err := row.Scan(&r.ID, &r.Backend, &r.Window.Start, &r.Window.End, &cur, &r.GeneratedAt,
		&r.Partial, &r.RecordCount, &total,
		&r.Stats.PipelineRuns, &r.Stats.ActivityRuns, &r.Stats.SkippedActivities); err != nil {
		return nil, err
	}
	var err error
	if r.Total, err = decimal.NewFromString(total); err != nil {
		return nil, err
	}
	r.Currency = types.Currency(cur)
	r.Window.Start = r.Window.Start.UTC()
	r.Window.End = r.Window.End.UTC()
	r.GeneratedAt = r.GeneratedAt.UTC()
	return &r, nil
}
