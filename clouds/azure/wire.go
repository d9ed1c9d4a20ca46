// Package azure - Wire types shared by the Synapse and Data Factory APIs
package azure

import (
	"context"
	"iter"
	"time"

	"pipeline-cost/core/payload"
	"pipeline-cost/core/types"
)

// RunFilter is the body of queryPipelineRuns and queryActivityruns
type RunFilter struct {
	LastUpdatedAfter  time.Time `json:"lastUpdatedAfter"`
	LastUpdatedBefore time.Time `json:"lastUpdatedBefore"`
	ContinuationToken string    `json:"continuationToken,omitempty"`
}

// FilterFor builds the filter covering window
func FilterFor(window types.TimeRange) RunFilter {
	return RunFilter{
		LastUpdatedAfter:  window.Start.UTC(),
		LastUpdatedBefore: window.End.UTC(),
	}
}

// Page is one response page
type Page[W any] struct {
	Value             []W    `json:"value"`
	ContinuationToken string `json:"continuationToken,omitempty"`
}

// PipelineRunResource is a pipeline run as returned by the service
type PipelineRunResource struct {
	RunID        string     `json:"runId"`
	PipelineName string     `json:"pipelineName"`
	RunStart     *time.Time `json:"runStart,omitempty"`
	RunEnd       *time.Time `json:"runEnd,omitempty"`
	Status       string     `json:"status,omitempty"`
	LastUpdated  *time.Time `json:"lastUpdated,omitempty"`
}

// PipelineRun converts the resource to the domain type
func (r PipelineRunResource) PipelineRun() types.PipelineRun {
	return types.PipelineRun{
		PipelineName: r.PipelineName,
		RunID:        r.RunID,
		RunStart:     r.RunStart,
		RunEnd:       r.RunEnd,
		Status:       types.RunStatus(r.Status),
	}
}

// ActivityRunResource is an activity run as returned by the service
type ActivityRunResource struct {
	ActivityName     string        `json:"activityName"`
	ActivityType     string        `json:"activityType"`
	ActivityRunID    string        `json:"activityRunId"`
	PipelineName     string        `json:"pipelineName,omitempty"`
	PipelineRunID    string        `json:"pipelineRunId"`
	ActivityRunStart *time.Time    `json:"activityRunStart,omitempty"`
	ActivityRunEnd   *time.Time    `json:"activityRunEnd,omitempty"`
	Status           string        `json:"status,omitempty"`
	Output           payload.Value `json:"output"`
}

// ActivityRun converts the resource to the domain type
func (r ActivityRunResource) ActivityRun() types.ActivityRun {
	return types.ActivityRun{
		ActivityName:  r.ActivityName,
		ActivityType:  r.ActivityType,
		ActivityRunID: r.ActivityRunID,
		PipelineRunID: r.PipelineRunID,
		Start:         r.ActivityRunStart,
		End:           r.ActivityRunEnd,
		Status:        types.RunStatus(r.Status),
		Output:        r.Output,
	}
}

// Paginate lazily posts filter to url, following continuation tokens, and
// yields converted items. Pages are fetched only as the consumer pulls.
func Paginate[W, T any](ctx context.Context, c *Client, url string, filter RunFilter, convert func(W) T) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		for {
			if err := ctx.Err(); err != nil {
				yield(zero, err)
				return
			}

			var page Page[W]
			if err := c.PostJSON(ctx, url, filter, &page); err != nil {
				yield(zero, err)
				return
			}

			for _, item := range page.Value {
				if !yield(convert(item), nil) {
					return
				}
			}

			if page.ContinuationToken == "" {
				return
			}
			filter.ContinuationToken = page.ContinuationToken
		}
	}
}
