// Package query defines the contract between the cost engine and the
// services that list pipeline and activity runs.
//
// Backends own pagination, retries and authentication. They expose results
// as lazy pull-based sequences: a consumer that stops ranging stops the
// underlying paging, which is how traversals are cancelled.
package query

import (
	"context"
	"iter"

	"pipeline-cost/core/types"
)

// Queryer lists runs from one orchestration backend
type Queryer interface {
	// Name identifies the backend and workspace, e.g. synapse:contoso
	Name() string

	// PipelineRuns yields every pipeline run overlapping window. A non-nil
	// error is yielded at most once and ends the sequence.
	PipelineRuns(ctx context.Context, window types.TimeRange) iter.Seq2[types.PipelineRun, error]

	// ActivityRuns yields the activity runs of one pipeline run that
	// overlap window, with the same error convention.
	ActivityRuns(ctx context.Context, run types.PipelineRun, window types.TimeRange) iter.Seq2[types.ActivityRun, error]
}

// Collect drains a sequence into a slice, stopping at the first error
func Collect[T any](seq iter.Seq2[T, error]) ([]T, error) {
	var out []T
	for v, err := range seq {
		if err != nil {
			return out, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Fail returns a sequence that yields only err
func Fail[T any](err error) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		yield(zero, err)
	}
}
