// Package synapse lists pipeline and activity runs of an Azure Synapse
// workspace through its development endpoint.
package synapse

import (
	"context"
	"iter"
	"net/url"
	"strings"

	"pipeline-cost/clouds/azure"
	"pipeline-cost/core/types"
)

// APIVersion of the Synapse artifacts API
const APIVersion = "2020-12-01"

// EndpointSuffix is appended to the workspace name
const EndpointSuffix = "dev.azuresynapse.net"

// Queryer implements query.Queryer for one workspace
type Queryer struct {
	client    *azure.Client
	workspace string
	endpoint  string
}

// New creates a queryer. An empty endpoint derives it from the workspace.
func New(client *azure.Client, workspace, endpoint string) *Queryer {
	if endpoint == "" {
		endpoint = "https://" + workspace + "." + EndpointSuffix
	}
	return &Queryer{
		client:    client,
		workspace: workspace,
		endpoint:  strings.TrimRight(endpoint, "/"),
	}
}

// Name implements query.Queryer
func (q *Queryer) Name() string {
	return "synapse:" + q.workspace
}

// PipelineRuns implements query.Queryer
func (q *Queryer) PipelineRuns(ctx context.Context, window types.TimeRange) iter.Seq2[types.PipelineRun, error] {
	u := q.endpoint + "/queryPipelineRuns?api-version=" + APIVersion
	return azure.Paginate(ctx, q.client, u, azure.FilterFor(window), azure.PipelineRunResource.PipelineRun)
}

// ActivityRuns implements query.Queryer
func (q *Queryer) ActivityRuns(ctx context.Context, run types.PipelineRun, window types.TimeRange) iter.Seq2[types.ActivityRun, error] {
	u := q.endpoint + "/pipelines/" + url.PathEscape(run.PipelineName) +
		"/pipelineruns/" + url.PathEscape(run.RunID) +
		"/queryActivityruns?api-version=" + APIVersion
	return azure.Paginate(ctx, q.client, u, azure.FilterFor(window), azure.ActivityRunResource.ActivityRun)
}
