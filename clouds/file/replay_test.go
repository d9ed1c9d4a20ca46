package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipeline-cost/clouds"
	"pipeline-cost/core/engine"
	"pipeline-cost/core/query"
	"pipeline-cost/core/types"
	"pipeline-cost/internal/errors"
)

var june = types.TimeRange{
	Start: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	End:   time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC),
}

func TestLoadExport(t *testing.T) {
	mem, err := Load(filepath.Join("testdata", "export.json"))
	require.NoError(t, err)
	assert.Equal(t, "file:export", mem.Name())
	assert.Equal(t, 3, mem.Len())

	runs, err := query.Collect(mem.PipelineRuns(context.Background(), june))
	require.NoError(t, err)
	require.Len(t, runs, 2, "the April run is outside the window")
	assert.Equal(t, "run-001", runs[0].RunID)
	assert.Nil(t, runs[1].RunEnd)

	acts, err := query.Collect(mem.ActivityRuns(context.Background(), runs[0], june))
	require.NoError(t, err)
	require.Len(t, acts, 2)
	assert.Equal(t, "run-001", acts[0].PipelineRunID, "run ID is filled in from the parent")
}

func TestReplayThroughEngine(t *testing.T) {
	q, err := Plugin{}.Open(context.Background(), clouds.Settings{FixturePath: filepath.Join("testdata", "export.json")})
	require.NoError(t, err)

	report, err := engine.New(q).CollectCosts(context.Background(), june)
	require.NoError(t, err)

	require.Len(t, report.Records, 2)
	assert.Equal(t, "DataMovement", report.Records[0].ActivityType)
	assert.Equal(t, "0.125", report.Records[0].BilledAmount.String())
	assert.Equal(t, "PipelineActivity", report.Records[1].ActivityType)
	assert.Equal(t, "0.0025", report.Records[1].BilledAmount.String())

	_, ok := report.Records[1].ActivityRunDurationHours()
	assert.False(t, ok, "activity still running")
	assert.Equal(t, types.ReportStats{PipelineRuns: 2, ActivityRuns: 3, SkippedActivities: 1}, report.Stats)
}

func TestParseRejectsBadExports(t *testing.T) {
	_, err := Parse("bad", []byte(`{"pipelineRuns": [`))
	assert.True(t, errors.IsType(err, errors.TypeInput))

	_, err = Parse("anon", []byte(`{"pipelineRuns": [{"pipelineName": "p"}]}`))
	assert.True(t, errors.IsType(err, errors.TypeInput))

	_, err = Parse("dup", []byte(`{"pipelineRuns": [
		{"runId": "r1", "pipelineName": "p", "activities": [{"activityName": "a"}]},
		{"runId": "r1", "pipelineName": "p", "activities": [{"activityName": "b"}]}]}`))
	assert.True(t, errors.IsType(err, errors.TypeInput))
	assert.Contains(t, err.Error(), "duplicate runId r1")

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.True(t, errors.IsType(err, errors.TypeInput))
}

func TestParseEmptyExport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"pipelineRuns": []}`), 0644))

	mem, err := Load(path)
	require.NoError(t, err)
	report, err := engine.New(mem).CollectCosts(context.Background(), june)
	require.NoError(t, err)
	assert.Empty(t, report.Records)
}

func TestPluginRequiresFixture(t *testing.T) {
	_, err := Plugin{}.Open(context.Background(), clouds.Settings{})
	assert.True(t, errors.IsType(err, errors.TypeConfig))
}
