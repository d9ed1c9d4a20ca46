// Package datafactory - Backend registration
package datafactory

import (
	"context"

	"pipeline-cost/clouds"
	"pipeline-cost/clouds/azure"
	"pipeline-cost/core/query"
	"pipeline-cost/internal/errors"
)

// Plugin opens data factories
type Plugin struct{}

// Kind implements clouds.Plugin
func (Plugin) Kind() clouds.BackendKind { return clouds.DataFactory }

// Name implements clouds.Plugin
func (Plugin) Name() string { return "Azure Data Factory" }

// Description implements clouds.Plugin
func (Plugin) Description() string {
	return "Pipeline runs of a data factory via Azure Resource Manager"
}

// Open implements clouds.Plugin
func (Plugin) Open(_ context.Context, s clouds.Settings) (query.Queryer, error) {
	if s.SubscriptionID == "" || s.ResourceGroup == "" || s.Factory == "" {
		return nil, errors.Config("datafactory backend requires subscription, resource group and factory")
	}
	f := Factory{SubscriptionID: s.SubscriptionID, ResourceGroup: s.ResourceGroup, Name: s.Factory}
	return New(s.NewClient(azure.ResourceManager), f, s.Endpoint), nil
}

func init() {
	clouds.MustRegister(Plugin{})
}
