package query

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipeline-cost/core/types"
)

func at(hour int) *time.Time {
	t := time.Date(2024, 3, 1, hour, 0, 0, 0, time.UTC)
	return &t
}

func window() types.TimeRange {
	return types.TimeRange{Start: *at(6), End: *at(18)}
}

func TestMemoryFiltersByWindow(t *testing.T) {
	m := NewMemory("memory").
		AddRun(types.PipelineRun{RunID: "early", RunStart: at(1), RunEnd: at(2)}).
		AddRun(types.PipelineRun{RunID: "inside", RunStart: at(8), RunEnd: at(9)}).
		AddRun(types.PipelineRun{RunID: "running", RunStart: at(17)}).
		AddRun(types.PipelineRun{RunID: "late", RunStart: at(19)})

	runs, err := Collect(m.PipelineRuns(context.Background(), window()))
	require.NoError(t, err)

	var ids []string
	for _, r := range runs {
		ids = append(ids, r.RunID)
	}
	assert.Equal(t, []string{"inside", "running"}, ids)
}

func TestMemoryActivitiesKeepOrder(t *testing.T) {
	run := types.PipelineRun{RunID: "r1", RunStart: at(8)}
	m := NewMemory("memory").AddRun(run,
		types.ActivityRun{ActivityName: "b", Start: at(8)},
		types.ActivityRun{ActivityName: "a", Start: at(9)},
		types.ActivityRun{ActivityName: "pending"},
	)

	acts, err := Collect(m.ActivityRuns(context.Background(), run, window()))
	require.NoError(t, err)
	require.Len(t, acts, 3)
	assert.Equal(t, "b", acts[0].ActivityName)
	assert.Equal(t, "a", acts[1].ActivityName)
}

func TestMemoryActivitiesComeFromFirstRunWithID(t *testing.T) {
	run := types.PipelineRun{RunID: "r1", RunStart: at(8)}
	m := NewMemory("memory").
		AddRun(run, types.ActivityRun{ActivityName: "first"}).
		AddRun(run, types.ActivityRun{ActivityName: "second"})

	acts, err := Collect(m.ActivityRuns(context.Background(), run, window()))
	require.NoError(t, err)
	require.Len(t, acts, 1)
	assert.Equal(t, "first", acts[0].ActivityName)
}

func TestMemoryInjectedFailures(t *testing.T) {
	boom := errors.New("boom")
	run := types.PipelineRun{RunID: "r1"}
	m := NewMemory("memory").
		AddRun(run, types.ActivityRun{ActivityName: "one"}, types.ActivityRun{ActivityName: "two"}).
		AddRun(types.PipelineRun{RunID: "r2"}).
		FailRunsAfter(1, boom).
		FailActivitiesAfter("r1", 1, boom)

	runs, err := Collect(m.PipelineRuns(context.Background(), window()))
	assert.ErrorIs(t, err, boom)
	assert.Len(t, runs, 1)

	acts, err := Collect(m.ActivityRuns(context.Background(), run, window()))
	assert.ErrorIs(t, err, boom)
	assert.Len(t, acts, 1)
}

func TestMemoryFailureAfterLastRun(t *testing.T) {
	boom := errors.New("page 2 failed")
	m := NewMemory("memory").AddRun(types.PipelineRun{RunID: "r1"}).FailRunsAfter(1, boom)

	runs, err := Collect(m.PipelineRuns(context.Background(), window()))
	assert.ErrorIs(t, err, boom)
	assert.Len(t, runs, 1)
}

func TestMemoryHonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := NewMemory("memory").AddRun(types.PipelineRun{RunID: "r1"})
	_, err := Collect(m.PipelineRuns(ctx, window()))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemoryStopsWhenConsumerStops(t *testing.T) {
	m := NewMemory("memory").
		AddRun(types.PipelineRun{RunID: "r1"}).
		AddRun(types.PipelineRun{RunID: "r2"})

	seen := 0
	for range m.PipelineRuns(context.Background(), window()) {
		seen++
		break
	}
	assert.Equal(t, 1, seen)
}

func TestFailYieldsOnlyTheError(t *testing.T) {
	boom := errors.New("boom")
	out, err := Collect(Fail[types.PipelineRun](boom))
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, out)
}
