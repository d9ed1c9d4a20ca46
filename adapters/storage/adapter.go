// Package storage keeps a history of cost reports.
// Supports SQLite (default, embedded) and PostgreSQL backends.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"pipeline-cost/core/types"
)

// Driver is a storage backend type
type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// Store is the storage interface
type Store interface {
	// Save stores a report and its records atomically
	Save(ctx context.Context, report *types.Report) error

	// Get retrieves a report header by ID
	Get(ctx context.Context, id string) (*StoredReport, error)

	// Records returns the records of a report in their original order
	Records(ctx context.Context, id string) ([]types.CostRecord, error)

	// List returns the most recent reports first; limit <= 0 means all
	List(ctx context.Context, limit int) ([]*StoredReport, error)

	// Close closes the store
	Close() error
}

// StoredReport is a saved report without its records
type StoredReport struct {
	ID          string            `json:"id"`
	Backend     string            `json:"backend"`
	Window      types.TimeRange   `json:"window"`
	Currency    types.Currency    `json:"currency"`
	GeneratedAt time.Time         `json:"generated_at"`
	Partial     bool              `json:"partial"`
	RecordCount int               `json:"record_count"`
	Total       decimal.Decimal   `json:"total"`
	Stats       types.ReportStats `json:"stats"`
}

// Header extracts the stored header of a report
func Header(report *types.Report) *StoredReport {
	return &StoredReport{
		ID:          report.ID,
		Backend:     report.Backend,
		Window:      report.Window,
		Currency:    report.Currency,
		GeneratedAt: report.GeneratedAt.UTC(),
		Partial:     report.Partial,
		RecordCount: len(report.Records),
		Total:       report.Total(),
		Stats:       report.Stats,
	}
}

// Open opens the store for driver
func Open(ctx context.Context, driver Driver, dsn string) (Store, error) {
	switch driver {
	case DriverSQLite, "":
		return OpenSQLite(ctx, dsn)
	case DriverPostgres:
		return OpenPostgres(ctx, dsn)
	default:
		return nil, fmt.Errorf("unknown storage driver: %s", driver)
	}
}
