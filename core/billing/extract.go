// Package billing extracts billing facts from activity run output.
//
// Pipeline services report chargeable consumption inside the free-form
// output of an activity run:
//
//	{"billingReference": {
//	    "activityType": "DataMovement",
//	    "billableDuration": [{"meterType": "AzureIR", "duration": 0.0167, "unit": "DIUHours"}]}}
//
// Extraction is a validation pipeline. Anything that does not match the
// expected shape yields no fact; nothing here returns an error or panics.
package billing

import (
	"math"

	"pipeline-cost/core/payload"
)

// Keys of the billing reference document
const (
	KeyBillingReference = "billingReference"
	KeyActivityType     = "activityType"
	KeyBillableDuration = "billableDuration"
	KeyDuration         = "duration"
	KeyMeterType        = "meterType"
	KeyUnit             = "unit"
)

// Fact is the normalized billing data of one activity run
type Fact struct {
	// ActivityType comes from the billing reference, not the duration entry
	ActivityType string

	// Duration is the billed quantity, in Unit
	Duration float64

	// MeterType is the billing meter, e.g. AzureIR
	MeterType string

	// Unit is the billing unit, e.g. Hours or DIUHours. Unrecognized units
	// pass through unchanged.
	Unit string
}

// Extract returns the billing fact carried by an activity's output.
//
// Only the first billableDuration entry is honored even when several are
// present. A missing or non-numeric duration degrades to 0, and non-string
// meterType, unit or activityType values degrade to "". Missing keys and
// wrongly shaped containers yield no fact.
func Extract(output payload.Value) (Fact, bool) {
	if output.IsEmpty() {
		return Fact{}, false
	}

	ref, ok := output.Get(KeyBillingReference)
	if !ok || ref.Kind() != payload.KindMap {
		return Fact{}, false
	}

	activityType, ok := ref.Get(KeyActivityType)
	if !ok {
		return Fact{}, false
	}
	durations, ok := ref.Get(KeyBillableDuration)
	if !ok {
		return Fact{}, false
	}

	first, ok := firstEntry(durations)
	if !ok {
		return Fact{}, false
	}
	meterType, ok := first.Get(KeyMeterType)
	if !ok {
		return Fact{}, false
	}
	unit, ok := first.Get(KeyUnit)
	if !ok {
		return Fact{}, false
	}

	fact := Fact{
		ActivityType: stringOrEmpty(activityType),
		MeterType:    stringOrEmpty(meterType),
		Unit:         stringOrEmpty(unit),
	}
	if d, ok := first.Get(KeyDuration); ok {
		if n, ok := d.AsNumber(); ok && !math.IsNaN(n) && !math.IsInf(n, 0) {
			fact.Duration = n
		}
	}
	return fact, true
}

// ExtractAny converts decoded JSON (maps, slices, scalars) and extracts
func ExtractAny(output interface{}) (Fact, bool) {
	return Extract(payload.FromGo(output))
}

// firstEntry returns the first billable duration entry when it is a map
func firstEntry(durations payload.Value) (payload.Value, bool) {
	first, ok := durations.Index(0)
	if !ok || first.Kind() != payload.KindMap {
		return payload.Null(), false
	}
	return first, true
}

func stringOrEmpty(v payload.Value) string {
	s, _ := v.AsString()
	return s
}
