// Package output - JSON export
package output

import (
	"encoding/json"
	"io"
	"time"

	"github.com/shopspring/decimal"

	"pipeline-cost/core/types"
)

// JSONFormatter renders a report with its records and total
type JSONFormatter struct {
	Indent bool
}

type jsonReport struct {
	ID          string            `json:"id"`
	Backend     string            `json:"backend"`
	Window      types.TimeRange   `json:"window"`
	Currency    types.Currency    `json:"currency"`
	GeneratedAt time.Time         `json:"generatedAt"`
	Partial     bool              `json:"partial"`
	Total       decimal.Decimal   `json:"total"`
	Stats       types.ReportStats `json:"stats"`
	Records     []jsonRecord      `json:"records"`
}

type jsonRecord struct {
	types.CostRecord
	// ActivityRunTimeHours is null when either endpoint is missing
	ActivityRunTimeHours *float64 `json:"activityRunTimeHours"`
}

// Format implements Formatter
func (JSONFormatter) Format() Format { return FormatJSON }

// Render implements Formatter
func (f JSONFormatter) Render(w io.Writer, report *types.Report) error {
	out := jsonReport{
		ID:          report.ID,
		Backend:     report.Backend,
		Window:      report.Window,
		Currency:    report.Currency,
		GeneratedAt: report.GeneratedAt,
		Partial:     report.Partial,
		Total:       report.Total(),
		Stats:       report.Stats,
		Records:     make([]jsonRecord, len(report.Records)),
	}
	for i, rec := range report.Records {
		out.Records[i] = jsonRecord{CostRecord: rec}
		if h, ok := rec.ActivityRunDurationHours(); ok {
			out.Records[i].ActivityRunTimeHours = &h
		}
	}

	enc := json.NewEncoder(w)
	if f.Indent {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(out)
}
