// Package ui - Traversal progress
package ui

import (
	"time"

	"pipeline-cost/core/types"
)

// Progress reports a cost traversal as it happens. It implements
// engine.Observer.
type Progress struct {
	w          *Writer
	start      time.Time
	now        func() time.Time
	runs       int
	activities int
	billed     int
}

// NewProgress starts progress reporting
func (w *Writer) NewProgress() *Progress {
	return &Progress{w: w, start: time.Now(), now: time.Now}
}

// ActivityVisited counts activity runs
func (p *Progress) ActivityVisited(_ types.PipelineRun, _ types.ActivityRun, billed bool) {
	p.activities++
	if billed {
		p.billed++
	}
}

// RecordEmitted is a no-op; records are counted as activities are visited
func (p *Progress) RecordEmitted(types.CostRecord) {}

// PipelineRunCompleted prints one line per run in verbose mode
func (p *Progress) PipelineRunCompleted(run types.PipelineRun, records int) {
	p.runs++
	p.w.Debug("Processed pipeline run %s for pipeline %s (%d billed)", run.RunID, run.PipelineName, records)
}

// TraversalAborted reports the failure
func (p *Progress) TraversalAborted(err error) {
	p.w.Error("Traversal aborted after %d pipeline runs: %v", p.runs, err)
}

// Done prints the summary line
func (p *Progress) Done() {
	p.w.Success("Scanned %d pipeline runs and %d activity runs (%d billed) in %s",
		p.runs, p.activities, p.billed, formatDuration(p.now().Sub(p.start)))
}
