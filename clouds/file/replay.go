// Package file replays a JSON export of pipeline runs. It lets reports be
// rebuilt offline and backs end-to-end tests.
package file

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"pipeline-cost/clouds"
	"pipeline-cost/clouds/azure"
	"pipeline-cost/core/query"
	"pipeline-cost/core/types"
	"pipeline-cost/internal/errors"
)

// Export is the on-disk layout
type Export struct {
	PipelineRuns []ExportedRun `json:"pipelineRuns"`
}

// ExportedRun is a pipeline run with its activity runs inlined
type ExportedRun struct {
	azure.PipelineRunResource
	Activities []azure.ActivityRunResource `json:"activities"`
}

// Parse decodes an export into an in-memory backend named name
func Parse(name string, data []byte) (*query.Memory, error) {
	var export Export
	if err := json.Unmarshal(data, &export); err != nil {
		return nil, errors.Wrapf(errors.TypeInput, err, "invalid pipeline run export %s", name)
	}

	mem := query.NewMemory("file:" + name)
	seen := make(map[string]bool, len(export.PipelineRuns))
	for i, r := range export.PipelineRuns {
		if r.RunID == "" || r.PipelineName == "" {
			return nil, errors.Newf(errors.TypeInput, "pipeline run %d in %s needs runId and pipelineName", i, name)
		}
		if seen[r.RunID] {
			return nil, errors.Newf(errors.TypeInput, "duplicate runId %s in %s", r.RunID, name)
		}
		seen[r.RunID] = true
		run := r.PipelineRun()
		activities := make([]types.ActivityRun, 0, len(r.Activities))
		for _, a := range r.Activities {
			act := a.ActivityRun()
			if act.PipelineRunID == "" {
				act.PipelineRunID = run.RunID
			}
			activities = append(activities, act)
		}
		mem.AddRun(run, activities...)
	}
	return mem, nil
}

// Load reads an export from path
func Load(path string) (*query.Memory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.TypeInput, "failed to read pipeline run export", err)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return Parse(name, data)
}

// Plugin opens exports from disk
type Plugin struct{}

// Kind implements clouds.Plugin
func (Plugin) Kind() clouds.BackendKind { return clouds.File }

// Name implements clouds.Plugin
func (Plugin) Name() string { return "File replay" }

// Description implements clouds.Plugin
func (Plugin) Description() string {
	return "Pipeline runs replayed from a JSON export"
}

// Open implements clouds.Plugin
func (Plugin) Open(_ context.Context, s clouds.Settings) (query.Queryer, error) {
	if s.FixturePath == "" {
		return nil, errors.Config("file backend requires a fixture path")
	}
	return Load(s.FixturePath)
}

func init() {
	clouds.MustRegister(Plugin{})
}
