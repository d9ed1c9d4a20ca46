// Package types - Pipeline and activity run types
package types

import (
	"time"

	"pipeline-cost/core/payload"
)

// PipelineRun identifies one execution of a named pipeline. Values are
// produced by a query backend and are read-only to the cost engine.
type PipelineRun struct {
	// PipelineName is the name of the pipeline definition
	PipelineName string `json:"pipelineName"`

	// RunID is unique per workspace
	RunID string `json:"runId"`

	// RunStart is nil if the service did not report a start time
	RunStart *time.Time `json:"runStart,omitempty"`

	// RunEnd is nil while the run is still in progress
	RunEnd *time.Time `json:"runEnd,omitempty"`

	// Status is the last reported run status
	Status RunStatus `json:"status,omitempty"`
}

// ActivityRun is one step within a pipeline run
type ActivityRun struct {
	// ActivityName is the name given to the step in the pipeline definition
	ActivityName string `json:"activityName"`

	// ActivityType is the step kind, e.g. Copy or ExecuteDataFlow
	ActivityType string `json:"activityType"`

	// ActivityRunID identifies this activity execution
	ActivityRunID string `json:"activityRunId,omitempty"`

	// PipelineRunID links back to the owning pipeline run
	PipelineRunID string `json:"pipelineRunId,omitempty"`

	// Start is nil if the activity has not started
	Start *time.Time `json:"activityRunStart,omitempty"`

	// End is nil if the activity has not completed
	End *time.Time `json:"activityRunEnd,omitempty"`

	// Status is the last reported activity status
	Status RunStatus `json:"status,omitempty"`

	// Output is the raw, free-form result of the activity. It may be null
	// or have any shape.
	Output payload.Value `json:"output"`
}
