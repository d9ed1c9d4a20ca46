// Package synapse - Backend registration
package synapse

import (
	"context"

	"pipeline-cost/clouds"
	"pipeline-cost/clouds/azure"
	"pipeline-cost/core/query"
	"pipeline-cost/internal/errors"
)

// Plugin opens Synapse workspaces
type Plugin struct{}

// Kind implements clouds.Plugin
func (Plugin) Kind() clouds.BackendKind { return clouds.Synapse }

// Name implements clouds.Plugin
func (Plugin) Name() string { return "Azure Synapse" }

// Description implements clouds.Plugin
func (Plugin) Description() string {
	return "Pipeline runs of a Synapse workspace (" + EndpointSuffix + ")"
}

// Open implements clouds.Plugin
func (Plugin) Open(_ context.Context, s clouds.Settings) (query.Queryer, error) {
	if s.Workspace == "" {
		return nil, errors.Config("synapse backend requires a workspace")
	}
	return New(s.NewClient(azure.ResourceSynapse), s.Workspace, s.Endpoint), nil
}

func init() {
	clouds.MustRegister(Plugin{})
}
