// Package cost turns billing facts into priced cost records and rolls
// records up into summaries.
package cost

import (
	"pipeline-cost/core/billing"
	"pipeline-cost/core/pricing"
	"pipeline-cost/core/types"
)

// NewRecord builds the cost record for an activity run that yielded fact.
// The billed amount is priced against rates at construction time.
func NewRecord(run types.PipelineRun, activity types.ActivityRun, fact billing.Fact, rates *pricing.RateCard) types.CostRecord {
	if rates == nil {
		rates = pricing.Default()
	}
	return types.CostRecord{
		PipelineName:        run.PipelineName,
		PipelineRunID:       run.RunID,
		ActivityType:        fact.ActivityType,
		ActivityStartTime:   types.CopyTime(activity.Start),
		ActivityEndTime:     types.CopyTime(activity.End),
		BilledDurationHours: fact.Duration,
		BilledMeterType:     fact.MeterType,
		BilledUnit:          fact.Unit,
		BilledAmount:        rates.Price(fact.Unit, fact.MeterType, fact.Duration),
	}
}

// FromActivity extracts and prices in one step. It reports false when the
// activity carried no billing data.
func FromActivity(run types.PipelineRun, activity types.ActivityRun, rates *pricing.RateCard) (types.CostRecord, bool) {
	fact, ok := billing.Extract(activity.Output)
	if !ok {
		return types.CostRecord{}, false
	}
	return NewRecord(run, activity, fact, rates), true
}
