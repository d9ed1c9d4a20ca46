// Package azure - Bearer token sources
package azure

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"pipeline-cost/internal/errors"
)

// Token audiences
const (
	ResourceSynapse = "https://dev.azuresynapse.net"
	ResourceManager = "https://management.azure.com"
)

// TokenEnvVar holds a pre-acquired access token
const TokenEnvVar = "AZURE_ACCESS_TOKEN"

// TokenSource supplies bearer tokens
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a fixed token
type StaticToken string

// Token returns the token itself
func (t StaticToken) Token(context.Context) (string, error) {
	if t == "" {
		return "", errors.Config("empty access token")
	}
	return string(t), nil
}

// EnvToken reads a token from an environment variable
type EnvToken struct {
	Var    string
	Lookup func(string) (string, bool)
}

// Token returns the variable's value
func (t EnvToken) Token(context.Context) (string, error) {
	lookup := t.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	name := t.Var
	if name == "" {
		name = TokenEnvVar
	}
	if v, ok := lookup(name); ok && v != "" {
		return v, nil
	}
	return "", errors.Newf(errors.TypeConfig, "%s is not set", name)
}

// CommandRunner runs an external command and returns its stdout
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// CLIToken acquires tokens through the Azure CLI and caches them until
// shortly before they expire.
type CLIToken struct {
	Resource string
	Run      CommandRunner

	mu      sync.Mutex
	token   string
	expires time.Time
	now     func() time.Time
}

// NewCLIToken creates a CLI token source for a resource audience
func NewCLIToken(resource string) *CLIToken {
	return &CLIToken{Resource: resource, Run: execRunner, now: time.Now}
}

type cliTokenOutput struct {
	AccessToken string `json:"accessToken"`
	ExpiresOn   int64  `json:"expires_on"`
}

// Token returns a cached token or fetches a new one
func (t *CLIToken) Token(ctx context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now
	if t.now != nil {
		now = t.now
	}
	if t.token != "" && now().Before(t.expires) {
		return t.token, nil
	}

	run := t.Run
	if run == nil {
		run = execRunner
	}
	out, err := run(ctx, "az", "account", "get-access-token", "--resource", t.Resource, "--output", "json")
	if err != nil {
		return "", errors.Wrap(errors.TypeConfig, "az account get-access-token failed", err)
	}

	var parsed cliTokenOutput
	if err := json.Unmarshal(out, &parsed); err != nil {
		return "", errors.Wrap(errors.TypeConfig, "unexpected az output", err)
	}
	if strings.TrimSpace(parsed.AccessToken) == "" {
		return "", errors.Config("az returned an empty access token")
	}

	expires := now().Add(30 * time.Minute)
	if parsed.ExpiresOn > 0 {
		expires = time.Unix(parsed.ExpiresOn, 0).Add(-5 * time.Minute)
	}
	t.token = parsed.AccessToken
	t.expires = expires
	return t.token, nil
}

// ChainToken tries each source in order
type ChainToken []TokenSource

// Token returns the first token obtained
func (c ChainToken) Token(ctx context.Context) (string, error) {
	var lastErr error
	for _, src := range c {
		token, err := src.Token(ctx)
		if err == nil {
			return token, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = errors.Config("no token sources configured")
	}
	return "", errors.Wrap(errors.TypeConfig, "no credentials available", lastErr)
}

// DefaultTokenSource prefers AZURE_ACCESS_TOKEN and falls back to the CLI
func DefaultTokenSource(resource string) TokenSource {
	return ChainToken{EnvToken{Var: TokenEnvVar}, NewCLIToken(resource)}
}
