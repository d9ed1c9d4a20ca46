package cmd

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "none.yaml")}, args...))
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	require.NoError(t, rootCmd.Execute())
	return buf.String()
}

func TestVersionCommand(t *testing.T) {
	assert.Contains(t, execute(t, "version"), "pipeline-cost version "+Version)
}

func TestRatesCommand(t *testing.T) {
	out := execute(t, "rates")
	assert.Contains(t, out, "Rate card (USD per billed hour)")
	assert.Regexp(t, `DIUHours\s+│\s+0\.25\s+│\s+0\.1`, out)
	assert.Regexp(t, `Hours\s+0\.001\s+0\.0015`, out)
}

func TestConfigInitAndShow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	assert.Contains(t, execute(t, "config", "init", path), "Wrote "+path)

	out := execute(t, "config", "show")
	assert.Contains(t, out, "lookback_days: 30")
	assert.Contains(t, out, "backend: synapse")
}
