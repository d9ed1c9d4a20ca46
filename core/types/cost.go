// Package types - Cost record types
package types

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// CostRecordColumns is the fixed column order used by tabular serializers.
// Row returns values in the same order.
var CostRecordColumns = []string{
	"PipelineName",
	"PipelineRunId",
	"ActivityType",
	"ActivityStartTime",
	"ActivityEndTime",
	"ActivityRunTimeHours",
	"BilledDurationHours",
	"BilledMeterType",
	"BilledUnit",
	"BilledAmount",
}

// CostRecord is the theoretical cost of one billed activity run.
//
// A record exists only for activities whose output carried a valid billing
// reference. Records are values: once built they are never updated.
type CostRecord struct {
	// PipelineName is the pipeline the activity belongs to
	PipelineName string `json:"pipelineName"`

	// PipelineRunID is the owning pipeline run
	PipelineRunID string `json:"pipelineRunId"`

	// ActivityType is read from the billing reference
	ActivityType string `json:"activityType"`

	// ActivityStartTime is nil if the service reported no start
	ActivityStartTime *time.Time `json:"activityStartTime,omitempty"`

	// ActivityEndTime is nil if the service reported no end
	ActivityEndTime *time.Time `json:"activityEndTime,omitempty"`

	// BilledDurationHours is the billable duration, in Unit
	BilledDurationHours float64 `json:"billedDurationHours"`

	// BilledMeterType is the meter the duration was charged against
	BilledMeterType string `json:"billedMeterType"`

	// BilledUnit is the billing unit, e.g. Hours or DIUHours
	BilledUnit string `json:"billedUnit"`

	// BilledAmount is the priced duration
	BilledAmount decimal.Decimal `json:"billedAmount"`
}

// ActivityRunDurationHours is the wall-clock run time of the activity. It
// reports false when either endpoint is missing.
func (r CostRecord) ActivityRunDurationHours() (float64, bool) {
	if r.ActivityStartTime == nil || r.ActivityEndTime == nil {
		return 0, false
	}
	return r.ActivityEndTime.Sub(*r.ActivityStartTime).Hours(), true
}

// Row renders the record as strings in CostRecordColumns order. Missing
// timestamps and durations render as empty cells.
func (r CostRecord) Row() []string {
	runHours := ""
	if h, ok := r.ActivityRunDurationHours(); ok {
		runHours = formatFloat(h)
	}
	return []string{
		r.PipelineName,
		r.PipelineRunID,
		r.ActivityType,
		formatTime(r.ActivityStartTime),
		formatTime(r.ActivityEndTime),
		runHours,
		formatFloat(r.BilledDurationHours),
		r.BilledMeterType,
		r.BilledUnit,
		r.BilledAmount.String(),
	}
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// CopyTime returns a pointer to a copy of *t, or nil
func CopyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
