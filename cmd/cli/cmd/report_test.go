package cmd

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipeline-cost/adapters/storage"
	"pipeline-cost/core/output"
	"pipeline-cost/core/types"
	"pipeline-cost/core/ui"
	"pipeline-cost/internal/config"
	"pipeline-cost/internal/errors"
)

const runsExport = `{
  "pipelineRuns": [
    {
      "runId": "run-1", "pipelineName": "LoadSales",
      "runStart": "2024-06-03T01:00:00Z", "runEnd": "2024-06-03T02:00:00Z",
      "activities": [
        {"activityName": "Copy", "activityType": "Copy",
         "activityRunStart": "2024-06-03T01:00:00Z", "activityRunEnd": "2024-06-03T01:30:00Z",
         "output": {"billingReference": {"activityType": "DataMovement",
           "billableDuration": [{"meterType": "AzureIR", "duration": 0.5, "unit": "DIUHours"}]}}},
        {"activityName": "Wait", "activityType": "Wait", "output": null}
      ]
    },
    {
      "runId": "run-2", "pipelineName": "Housekeeping",
      "runStart": "2024-06-04T02:00:00Z",
      "activities": [
        {"activityName": "Custom", "activityType": "Custom",
         "output": {"billingReference": {"activityType": "ExternalActivity",
           "billableDuration": [{"meterType": "SelfhostedIR", "duration": 3, "unit": "vCoreHours"}]}}}
      ]
    }
  ]
}`

var reportNow = time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)

func fileConfig(t *testing.T) (*config.Config, string) {
	t.Helper()
	dir := t.TempDir()
	fixture := filepath.Join(dir, "runs.json")
	require.NoError(t, os.WriteFile(fixture, []byte(runsExport), 0644))

	cfg := config.Default()
	cfg.Query.Backend = config.BackendFile
	cfg.Query.FixturePath = fixture
	cfg.Output.Directory = filepath.Join(dir, "out")
	cfg.Storage.Enabled = true
	cfg.Storage.DSN = filepath.Join(dir, "history.db")
	cfg.Metrics.TextfilePath = filepath.Join(dir, "metrics.prom")
	require.NoError(t, cfg.Validate())
	return cfg, dir
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestRunReportWritesAllOutputs(t *testing.T) {
	cfg, dir := fileConfig(t)

	var stdout bytes.Buffer
	report, err := runReport(context.Background(), cfg, reportOptions{Top: 5}, &stdout, reportNow)
	require.NoError(t, err)
	require.Len(t, report.Records, 2)
	assert.False(t, report.Partial)

	path := filepath.Join(dir, "out", "runs_activities_20240630120000.csv")
	rows := readCSV(t, path)
	require.Len(t, rows, 3)
	assert.Equal(t, types.CostRecordColumns, rows[0])
	assert.Equal(t, "0.125", rows[1][9])
	assert.Equal(t, "0", rows[2][9], "unknown unit is priced at zero")

	assert.Contains(t, stdout.String(), "Wrote 2 cost records to "+path)
	assert.Contains(t, stdout.String(), "PIPELINE COST SUMMARY")

	metricsText, err := os.ReadFile(cfg.Metrics.TextfilePath)
	require.NoError(t, err)
	assert.Contains(t, string(metricsText), "pipeline_cost_cost_records_total")

	store, err := storage.Open(context.Background(), storage.DriverSQLite, cfg.Storage.DSN)
	require.NoError(t, err)
	defer store.Close()
	saved, err := store.List(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, report.ID, saved[0].ID)
	assert.Equal(t, 2, saved[0].RecordCount)
}

func TestRunReportPrintsProgress(t *testing.T) {
	cfg, _ := fileConfig(t)

	var progress bytes.Buffer
	w := ui.NewWriter(&progress, true)
	w.SetVerbosity(2)

	_, err := runReport(context.Background(), cfg, reportOptions{Progress: w}, &bytes.Buffer{}, reportNow)
	require.NoError(t, err)
	assert.Contains(t, progress.String(), "Processed pipeline run run-1 for pipeline LoadSales (1 billed)")
	assert.Contains(t, progress.String(), "Scanned 2 pipeline runs and 3 activity runs (2 billed)")
}

func TestRunReportMarksPartialOutput(t *testing.T) {
	cfg, dir := fileConfig(t)
	outPath := filepath.Join(dir, "costs.csv")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var stdout bytes.Buffer
	report, err := runReport(ctx, cfg, reportOptions{Output: outPath}, &stdout, reportNow)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.TypeCancelled))
	require.NotNil(t, report)
	assert.True(t, report.Partial)

	_, statErr := os.Stat(outPath)
	assert.True(t, os.IsNotExist(statErr), "complete-looking file must not remain")

	rows := readCSV(t, filepath.Join(dir, "costs.partial.csv"))
	assert.Equal(t, [][]string{types.CostRecordColumns}, rows)

	store, err := storage.Open(context.Background(), storage.DriverSQLite, cfg.Storage.DSN)
	require.NoError(t, err)
	defer store.Close()
	saved, err := store.Get(context.Background(), report.ID)
	require.NoError(t, err)
	assert.True(t, saved.Partial)
}

func TestRunReportMarksPartialCSVOnStdout(t *testing.T) {
	cfg, _ := fileConfig(t)
	cfg.Storage.Enabled = false

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var stdout bytes.Buffer
	report, err := runReport(ctx, cfg, reportOptions{Output: output.Stdout}, &stdout, reportNow)
	require.Error(t, err)
	require.True(t, report.Partial)

	lines := strings.Split(strings.TrimRight(stdout.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, strings.Join(types.CostRecordColumns, ","), lines[0])
	assert.True(t, output.IsPartialMarker(lines[1]))
}

func TestRunReportJSONToStdout(t *testing.T) {
	cfg, _ := fileConfig(t)
	cfg.Output.DefaultFormat = "json"
	cfg.Storage.Enabled = false
	cfg.Metrics.TextfilePath = ""

	var stdout bytes.Buffer
	_, err := runReport(context.Background(), cfg, reportOptions{Output: output.Stdout}, &stdout, reportNow)
	require.NoError(t, err)
	assert.Contains(t, stdout.String(), `"backend": "file:runs"`)
	assert.Contains(t, stdout.String(), `"total": "0.125"`)
	assert.NotContains(t, stdout.String(), "Wrote")
}

func TestRunReportFailsFastOnUnwritableOutput(t *testing.T) {
	cfg, dir := fileConfig(t)
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0644))

	_, err := runReport(context.Background(), cfg, reportOptions{Output: filepath.Join(blocker, "costs.csv")}, &bytes.Buffer{}, reportNow)
	assert.Error(t, err)
}

func TestRunReportRateCardOverride(t *testing.T) {
	cfg, dir := fileConfig(t)
	cfg.Storage.Enabled = false
	rates := filepath.Join(dir, "rates.hcl")
	require.NoError(t, os.WriteFile(rates, []byte(`
unit "vCoreHours" {
  azure_ir = 0.3
  default  = 0.2
}
`), 0644))
	cfg.Pricing.RateCardPath = rates

	report, err := runReport(context.Background(), cfg, reportOptions{Output: output.Stdout}, &bytes.Buffer{}, reportNow)
	require.NoError(t, err)
	require.Len(t, report.Records, 2)
	assert.Equal(t, "0.6", report.Records[1].BilledAmount.String())
}

func TestReportOptionsApply(t *testing.T) {
	base := config.Default()

	_, err := reportOptions{}.apply(base)
	assert.True(t, errors.IsType(err, errors.TypeConfig), "synapse needs a workspace")

	cfg, err := reportOptions{Workspace: "contoso", Days: 7, Format: "table", Store: true}.apply(base)
	require.NoError(t, err)
	assert.Equal(t, "contoso", cfg.Query.Workspace)
	assert.Equal(t, 7, cfg.Query.LookbackDays)
	assert.Equal(t, "table", cfg.Output.DefaultFormat)
	assert.True(t, cfg.Storage.Enabled)

	assert.Empty(t, base.Query.Workspace, "base config is not modified")
	assert.False(t, base.Storage.Enabled)
}

func TestResolveWindow(t *testing.T) {
	w, err := resolveWindow("", "", 30, reportNow)
	require.NoError(t, err)
	assert.Equal(t, 30*24*time.Hour, w.Duration())
	assert.True(t, w.End.Equal(reportNow))

	w, err = resolveWindow("2024-06-01", "2024-06-15T00:00:00Z", 30, reportNow)
	require.NoError(t, err)
	assert.Equal(t, 14*24*time.Hour, w.Duration())

	w, err = resolveWindow("", "2024-06-15", 7, reportNow)
	require.NoError(t, err)
	assert.True(t, w.Start.Equal(time.Date(2024, 6, 8, 0, 0, 0, 0, time.UTC)))

	_, err = resolveWindow("2024-06-15", "2024-06-01", 30, reportNow)
	assert.Error(t, err)
	_, err = resolveWindow("yesterday", "", 30, reportNow)
	assert.Error(t, err)
}

func TestOutputPath(t *testing.T) {
	assert.Equal(t, output.Stdout, outputPath("", "reports", "synapse:contoso", reportNow, output.FormatTable))
	assert.Equal(t, filepath.Join("reports", "contoso_activities_20240630120000.csv"),
		outputPath("", "reports", "synapse:contoso", reportNow, output.FormatCSV))
	assert.Equal(t, "x.json", outputPath("x.json", "reports", "synapse:contoso", reportNow, output.FormatJSON))
}
