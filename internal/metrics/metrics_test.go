package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipeline-cost/core/types"
)

func TestCollectorCountsEvents(t *testing.T) {
	c := NewCollector()
	run := types.PipelineRun{RunID: "r1"}

	c.ActivityVisited(run, types.ActivityRun{}, true)
	c.ActivityVisited(run, types.ActivityRun{}, false)
	c.ActivityVisited(run, types.ActivityRun{}, false)
	c.RecordEmitted(types.CostRecord{BilledUnit: "Hours", BilledMeterType: "AzureIR", BilledAmount: decimal.RequireFromString("0.25")})
	c.RecordEmitted(types.CostRecord{BilledUnit: "Hours", BilledMeterType: "AzureIR", BilledAmount: decimal.RequireFromString("0.5")})
	c.PipelineRunCompleted(run, 2)
	c.TraversalAborted(errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(c.pipelineRuns))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.activityRuns.WithLabelValues("true")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.activityRuns.WithLabelValues("false")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.costRecords.WithLabelValues("Hours", "AzureIR")))
	assert.InDelta(t, 0.75, testutil.ToFloat64(c.billedAmount), 1e-9)
	assert.Equal(t, 1.0, testutil.ToFloat64(c.traversalFails))
}

func TestCollectorsDoNotShareState(t *testing.T) {
	a, b := NewCollector(), NewCollector()
	a.PipelineRunCompleted(types.PipelineRun{}, 0)

	assert.Equal(t, 1.0, testutil.ToFloat64(a.pipelineRuns))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.pipelineRuns))
}

func TestWriteTextfile(t *testing.T) {
	c := NewCollector()
	c.PipelineRunCompleted(types.PipelineRun{}, 0)

	path := filepath.Join(t.TempDir(), "pipeline_cost.prom")
	require.NoError(t, c.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "pipeline_cost_pipeline_runs_total 1")
}
