// Package engine - Traversal observers
package engine

import "pipeline-cost/core/types"

// Observer receives traversal events. Calls happen synchronously on the
// traversal goroutine and must not block.
type Observer interface {
	// ActivityVisited fires for every activity run, billed or not
	ActivityVisited(run types.PipelineRun, activity types.ActivityRun, billed bool)

	// RecordEmitted fires for each record committed to the report
	RecordEmitted(record types.CostRecord)

	// PipelineRunCompleted fires once a run's activities were all listed
	PipelineRunCompleted(run types.PipelineRun, records int)

	// TraversalAborted fires when a traversal stops early
	TraversalAborted(err error)
}

type nopObserver struct{}

func (nopObserver) ActivityVisited(types.PipelineRun, types.ActivityRun, bool) {}
func (nopObserver) RecordEmitted(types.CostRecord)                             {}
func (nopObserver) PipelineRunCompleted(types.PipelineRun, int)                {}
func (nopObserver) TraversalAborted(error)                                     {}

// Observers fans events out to each observer in order
func Observers(observers ...Observer) Observer {
	return multiObserver(observers)
}

type multiObserver []Observer

func (m multiObserver) ActivityVisited(run types.PipelineRun, activity types.ActivityRun, billed bool) {
	for _, o := range m {
		o.ActivityVisited(run, activity, billed)
	}
}

func (m multiObserver) RecordEmitted(record types.CostRecord) {
	for _, o := range m {
		o.RecordEmitted(record)
	}
}

func (m multiObserver) PipelineRunCompleted(run types.PipelineRun, records int) {
	for _, o := range m {
		o.PipelineRunCompleted(run, records)
	}
}

func (m multiObserver) TraversalAborted(err error) {
	for _, o := range m {
		o.TraversalAborted(err)
	}
}
