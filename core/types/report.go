// Package types - Cost report types
package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReportStats counts what a traversal visited
type ReportStats struct {
	// PipelineRuns is the number of pipeline runs fully traversed
	PipelineRuns int `json:"pipelineRuns"`

	// ActivityRuns is the number of activity runs inspected
	ActivityRuns int `json:"activityRuns"`

	// SkippedActivities had no billing data and produced no record
	SkippedActivities int `json:"skippedActivities"`
}

// Report is the outcome of one cost traversal
type Report struct {
	// ID uniquely identifies this report
	ID string `json:"id"`

	// Backend names the query source, e.g. synapse:myworkspace
	Backend string `json:"backend"`

	// Window is the time range that was queried
	Window TimeRange `json:"window"`

	// Currency of every amount in the report
	Currency Currency `json:"currency"`

	// GeneratedAt is when the traversal started
	GeneratedAt time.Time `json:"generatedAt"`

	// Records in source order: runs as listed, activities as listed per run
	Records []CostRecord `json:"records"`

	// Partial is set when the traversal was aborted. A partial report must
	// never be presented as complete.
	Partial bool `json:"partial"`

	// Stats describes the traversal
	Stats ReportStats `json:"stats"`
}

// Total returns the sum of all billed amounts
func (r *Report) Total() decimal.Decimal {
	total := decimal.Zero
	for _, rec := range r.Records {
		total = total.Add(rec.BilledAmount)
	}
	return total
}
