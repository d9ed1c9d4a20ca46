package ui

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"pipeline-cost/core/types"
)

func TestTableAlignsColumns(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, true)

	tbl := w.NewTable("UNIT", "RATE").AlignRight(1)
	tbl.AddRow("DIUHours", "0.25")
	tbl.AddRow("Hours", "0.001")
	tbl.Render()

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	assert.Equal(t, []string{
		"UNIT     │  RATE",
		"─────────┼──────",
		"DIUHours │  0.25",
		"Hours    │ 0.001",
	}, lines)
}

func TestWriterColorsAndVerbosity(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, false)
	w.Success("done")
	assert.Contains(t, buf.String(), Green)

	buf.Reset()
	w.Debug("hidden")
	assert.Empty(t, buf.String())

	w.SetVerbosity(2)
	w.Debug("shown")
	assert.Contains(t, buf.String(), "shown")

	buf.Reset()
	assert.True(t, ForWriter(&buf).noColor, "buffers are not terminals")
}

func TestProgress(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, true)
	w.SetVerbosity(2)

	p := w.NewProgress()
	start := p.start
	p.now = func() time.Time { return start.Add(1500 * time.Millisecond) }

	run := types.PipelineRun{PipelineName: "LoadSales", RunID: "run-1"}
	p.ActivityVisited(run, types.ActivityRun{}, true)
	p.ActivityVisited(run, types.ActivityRun{}, false)
	p.PipelineRunCompleted(run, 1)
	p.Done()

	out := buf.String()
	assert.Contains(t, out, "Processed pipeline run run-1 for pipeline LoadSales (1 billed)")
	assert.Contains(t, out, "Scanned 1 pipeline runs and 2 activity runs (1 billed) in 1.5s")

	buf.Reset()
	p.TraversalAborted(errors.New("throttled"))
	assert.Contains(t, buf.String(), "Traversal aborted after 1 pipeline runs: throttled")
}
