// Package cost - Report summaries
// Records → Aggregate (per pipeline, per unit and meter) → Summary
package cost

import (
	"sort"

	"github.com/shopspring/decimal"

	"pipeline-cost/core/types"
)

// Aggregate groups cost records by a dimension
type Aggregate struct {
	// Key identifies the group, e.g. a pipeline name
	Key string `json:"key"`

	// Records is the number of records in the group
	Records int `json:"records"`

	// BilledHours sums billed durations. Units are mixed when the group
	// spans units, so only the per-unit grouping is meaningful here.
	BilledHours float64 `json:"billedHours"`

	// Amount is the summed billed amount
	Amount decimal.Decimal `json:"amount"`
}

// Add folds a record into the aggregate
func (a *Aggregate) Add(rec types.CostRecord) {
	a.Records++
	a.BilledHours += rec.BilledDurationHours
	a.Amount = a.Amount.Add(rec.BilledAmount)
}

// Summary rolls a report up by pipeline and by billing meter
type Summary struct {
	// ByPipeline is sorted by descending amount, then key
	ByPipeline []*Aggregate `json:"byPipeline"`

	// ByMeter groups by "unit/meterType", sorted like ByPipeline
	ByMeter []*Aggregate `json:"byMeter"`

	// Total is the overall billed amount
	Total decimal.Decimal `json:"total"`

	// Currency of all amounts
	Currency types.Currency `json:"currency"`

	// Partial mirrors the report flag
	Partial bool `json:"partial"`
}

// MeterKey is the grouping key for a unit and meter type
func MeterKey(unit, meterType string) string {
	return unit + "/" + meterType
}

// Summarize aggregates a report. The result is deterministic for a given
// record sequence.
func Summarize(report *types.Report) *Summary {
	byPipeline := make(map[string]*Aggregate)
	byMeter := make(map[string]*Aggregate)
	total := decimal.Zero

	for _, rec := range report.Records {
		aggregateInto(byPipeline, rec.PipelineName).Add(rec)
		aggregateInto(byMeter, MeterKey(rec.BilledUnit, rec.BilledMeterType)).Add(rec)
		total = total.Add(rec.BilledAmount)
	}

	return &Summary{
		ByPipeline: sorted(byPipeline),
		ByMeter:    sorted(byMeter),
		Total:      total,
		Currency:   report.Currency,
		Partial:    report.Partial,
	}
}

// Top returns at most n pipelines with the highest cost
func (s *Summary) Top(n int) []*Aggregate {
	if n >= len(s.ByPipeline) || n < 0 {
		return s.ByPipeline
	}
	return s.ByPipeline[:n]
}

func aggregateInto(index map[string]*Aggregate, key string) *Aggregate {
	agg, ok := index[key]
	if !ok {
		agg = &Aggregate{Key: key, Amount: decimal.Zero}
		index[key] = agg
	}
	return agg
}

func sorted(index map[string]*Aggregate) []*Aggregate {
	out := make([]*Aggregate, 0, len(index))
	for _, agg := range index {
		out = append(out, agg)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Amount.Cmp(out[j].Amount); c != 0 {
			return c > 0
		}
		return out[i].Key < out[j].Key
	})
	return out
}
