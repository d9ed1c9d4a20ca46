// Package clouds - Backend kinds and connection settings
// Backends list pipeline and activity runs; they never price anything.
package clouds

import (
	"fmt"

	"go.uber.org/zap"

	"pipeline-cost/clouds/azure"
)

// BackendKind identifies a pipeline run source
type BackendKind string

const (
	Synapse     BackendKind = "synapse"
	DataFactory BackendKind = "datafactory"
	File        BackendKind = "file"
)

// String returns the string representation
func (k BackendKind) String() string {
	return string(k)
}

// ParseBackendKind validates a backend name
func ParseBackendKind(s string) (BackendKind, error) {
	switch k := BackendKind(s); k {
	case Synapse, DataFactory, File:
		return k, nil
	default:
		return "", fmt.Errorf("unknown backend %q (want synapse, datafactory or file)", s)
	}
}

// Settings carries everything a backend may need to open a connection.
// Each backend reads only its own fields.
type Settings struct {
	// Workspace is the Synapse workspace name
	Workspace string

	// SubscriptionID, ResourceGroup and Factory locate a data factory
	SubscriptionID string
	ResourceGroup  string
	Factory        string

	// FixturePath is the JSON export replayed by the file backend
	FixturePath string

	// Endpoint overrides the service base URL
	Endpoint string

	// Client configures the shared REST client
	Client azure.ClientConfig

	// Tokens overrides credential discovery
	Tokens azure.TokenSource

	// Logger receives backend diagnostics
	Logger *zap.Logger
}

// TokenSource returns the configured tokens or the default chain for resource
func (s Settings) TokenSource(resource string) azure.TokenSource {
	if s.Tokens != nil {
		return s.Tokens
	}
	return azure.DefaultTokenSource(resource)
}

// NewClient builds the REST client for resource
func (s Settings) NewClient(resource string) *azure.Client {
	logger := s.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return azure.NewClient(s.TokenSource(resource), s.Client, azure.WithLogger(logger))
}
