// Package types - Query time window
package types

import (
	"fmt"
	"time"
)

// TimeRange is the half-open interval [Start, End) used to select runs
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewTimeRange builds a range, rejecting empty or inverted intervals
func NewTimeRange(start, end time.Time) (TimeRange, error) {
	if !end.After(start) {
		return TimeRange{}, fmt.Errorf("time range end %s must be after start %s",
			end.Format(time.RFC3339), start.Format(time.RFC3339))
	}
	return TimeRange{Start: start.UTC(), End: end.UTC()}, nil
}

// LastDays returns the window covering the given number of days up to now
func LastDays(now time.Time, days int) TimeRange {
	end := now.UTC()
	return TimeRange{Start: end.AddDate(0, 0, -days), End: end}
}

// Duration returns the length of the range
func (r TimeRange) Duration() time.Duration {
	return r.End.Sub(r.Start)
}

// Overlaps reports whether an interval with optional endpoints intersects
// the range. A missing start is treated as unbounded in the past and a
// missing end as still running.
func (r TimeRange) Overlaps(start, end *time.Time) bool {
	if start != nil && !start.Before(r.End) {
		return false
	}
	if end != nil && end.Before(r.Start) {
		return false
	}
	return true
}

// String returns the range in RFC 3339 form
func (r TimeRange) String() string {
	return r.Start.Format(time.RFC3339) + ".." + r.End.Format(time.RFC3339)
}
