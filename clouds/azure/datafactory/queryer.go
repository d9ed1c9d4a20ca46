// Package datafactory lists pipeline and activity runs of an Azure Data
// Factory through Azure Resource Manager.
package datafactory

import (
	"context"
	"fmt"
	"iter"
	"net/url"
	"strings"

	"pipeline-cost/clouds/azure"
	"pipeline-cost/core/types"
)

// APIVersion of the Microsoft.DataFactory resource provider
const APIVersion = "2018-06-01"

// Factory locates a data factory
type Factory struct {
	SubscriptionID string
	ResourceGroup  string
	Name           string
}

// ResourceID returns the ARM resource ID
func (f Factory) ResourceID() string {
	return fmt.Sprintf("/subscriptions/%s/resourceGroups/%s/providers/Microsoft.DataFactory/factories/%s",
		url.PathEscape(f.SubscriptionID), url.PathEscape(f.ResourceGroup), url.PathEscape(f.Name))
}

// Queryer implements query.Queryer for one factory
type Queryer struct {
	client  *azure.Client
	factory Factory
	base    string
}

// New creates a queryer. An empty endpoint uses the public ARM endpoint.
func New(client *azure.Client, factory Factory, endpoint string) *Queryer {
	if endpoint == "" {
		endpoint = azure.ResourceManager
	}
	return &Queryer{
		client:  client,
		factory: factory,
		base:    strings.TrimRight(endpoint, "/") + factory.ResourceID(),
	}
}

// Name implements query.Queryer
func (q *Queryer) Name() string {
	return "datafactory:" + q.factory.Name
}

// PipelineRuns implements query.Queryer
func (q *Queryer) PipelineRuns(ctx context.Context, window types.TimeRange) iter.Seq2[types.PipelineRun, error] {
	u := q.base + "/queryPipelineRuns?api-version=" + APIVersion
	return azure.Paginate(ctx, q.client, u, azure.FilterFor(window), azure.PipelineRunResource.PipelineRun)
}

// ActivityRuns implements query.Queryer
func (q *Queryer) ActivityRuns(ctx context.Context, run types.PipelineRun, window types.TimeRange) iter.Seq2[types.ActivityRun, error] {
	u := q.base + "/pipelineruns/" + url.PathEscape(run.RunID) + "/queryActivityruns?api-version=" + APIVersion
	return azure.Paginate(ctx, q.client, u, azure.FilterFor(window), azure.ActivityRunResource.ActivityRun)
}
