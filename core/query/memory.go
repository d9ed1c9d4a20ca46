// Package query - In-memory backend
package query

import (
	"context"
	"iter"

	"pipeline-cost/core/types"
)

type memoryRun struct {
	run        types.PipelineRun
	activities []types.ActivityRun
}

type injectedFailure struct {
	after int
	err   error
}

// Memory serves runs from memory, in insertion order. It backs file replay
// and tests. Configure it fully before use; after that it is read-only and
// safe for concurrent traversals.
type Memory struct {
	name            string
	runs            []memoryRun
	runFailure      *injectedFailure
	activityFailure map[string]injectedFailure
}

// NewMemory creates an empty in-memory backend
func NewMemory(name string) *Memory {
	return &Memory{
		name:            name,
		activityFailure: make(map[string]injectedFailure),
	}
}

// Name implements Queryer
func (m *Memory) Name() string {
	return m.name
}

// AddRun appends a pipeline run and its activities
func (m *Memory) AddRun(run types.PipelineRun, activities ...types.ActivityRun) *Memory {
	m.runs = append(m.runs, memoryRun{run: run, activities: activities})
	return m
}

// FailRunsAfter makes PipelineRuns yield err after n runs
func (m *Memory) FailRunsAfter(n int, err error) *Memory {
	m.runFailure = &injectedFailure{after: n, err: err}
	return m
}

// FailActivitiesAfter makes ActivityRuns for runID yield err after n
// activities
func (m *Memory) FailActivitiesAfter(runID string, n int, err error) *Memory {
	m.activityFailure[runID] = injectedFailure{after: n, err: err}
	return m
}

// Len returns the number of stored pipeline runs
func (m *Memory) Len() int {
	return len(m.runs)
}

// PipelineRuns implements Queryer
func (m *Memory) PipelineRuns(ctx context.Context, window types.TimeRange) iter.Seq2[types.PipelineRun, error] {
	return func(yield func(types.PipelineRun, error) bool) {
		emitted := 0
		for _, r := range m.runs {
			if m.runFailure != nil && emitted == m.runFailure.after {
				yield(types.PipelineRun{}, m.runFailure.err)
				return
			}
			if err := ctx.Err(); err != nil {
				yield(types.PipelineRun{}, err)
				return
			}
			if !window.Overlaps(r.run.RunStart, r.run.RunEnd) {
				continue
			}
			emitted++
			if !yield(r.run, nil) {
				return
			}
		}
		if m.runFailure != nil && emitted == m.runFailure.after {
			yield(types.PipelineRun{}, m.runFailure.err)
		}
	}
}

// ActivityRuns implements Queryer. Activities belong to the first stored
// run with run's ID.
func (m *Memory) ActivityRuns(ctx context.Context, run types.PipelineRun, window types.TimeRange) iter.Seq2[types.ActivityRun, error] {
	return func(yield func(types.ActivityRun, error) bool) {
		failure, failing := m.activityFailure[run.RunID]
		emitted := 0
		if r, ok := m.find(run.RunID); ok {
			for _, a := range r.activities {
				if failing && emitted == failure.after {
					yield(types.ActivityRun{}, failure.err)
					return
				}
				if err := ctx.Err(); err != nil {
					yield(types.ActivityRun{}, err)
					return
				}
				if !window.Overlaps(a.Start, a.End) {
					continue
				}
				emitted++
				if !yield(a, nil) {
					return
				}
			}
		}
		if failing && emitted == failure.after {
			yield(types.ActivityRun{}, failure.err)
		}
	}
}

func (m *Memory) find(runID string) (memoryRun, bool) {
	for _, r := range m.runs {
		if r.run.RunID == runID {
			return r, true
		}
	}
	return memoryRun{}, false
}
