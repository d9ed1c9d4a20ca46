package output

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipeline-cost/core/types"
)

func ts(h, m int) *time.Time {
	t := time.Date(2024, 6, 3, h, m, 0, 0, time.UTC)
	return &t
}

func sampleReport() *types.Report {
	return &types.Report{
		ID:          "rep-1",
		Backend:     "synapse:contoso",
		Window:      types.TimeRange{Start: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), End: time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)},
		Currency:    types.CurrencyUSD,
		GeneratedAt: time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC),
		Records: []types.CostRecord{
			{
				PipelineName: "LoadSales", PipelineRunID: "run-1", ActivityType: "DataMovement",
				ActivityStartTime: ts(1, 0), ActivityEndTime: ts(1, 30),
				BilledDurationHours: 0.5, BilledMeterType: "AzureIR", BilledUnit: "DIUHours",
				BilledAmount: decimal.RequireFromString("0.125"),
			},
			{
				PipelineName: "Housekeeping", PipelineRunID: "run-2", ActivityType: "PipelineActivity",
				ActivityStartTime:   ts(2, 0),
				BilledDurationHours: 2.5, BilledMeterType: "AzureIR", BilledUnit: "Hours",
				BilledAmount: decimal.RequireFromString("0.0025"),
			},
		},
		Stats: types.ReportStats{PipelineRuns: 2, ActivityRuns: 3, SkippedActivities: 1},
	}
}

func TestParseFormat(t *testing.T) {
	for _, f := range Formats() {
		got, err := ParseFormat(string(f))
		require.NoError(t, err)
		assert.Equal(t, f, got)

		formatter, err := For(f)
		require.NoError(t, err)
		assert.Equal(t, f, formatter.Format())
	}
	_, err := ParseFormat("xml")
	assert.Error(t, err)
}

func TestCSVFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, CSVFormatter{}.Render(&buf, sampleReport()))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, types.CostRecordColumns, rows[0])
	assert.Equal(t, []string{
		"LoadSales", "run-1", "DataMovement",
		"2024-06-03T01:00:00Z", "2024-06-03T01:30:00Z", "0.5",
		"0.5", "AzureIR", "DIUHours", "0.125",
	}, rows[1])
	assert.Equal(t, "", rows[2][4], "missing end time")
	assert.Equal(t, "", rows[2][5], "run time absent, not zero")
}

func TestCSVFormatterMarksPartialReport(t *testing.T) {
	report := sampleReport()
	report.Partial = true

	var buf bytes.Buffer
	require.NoError(t, CSVFormatter{}.Render(&buf, report))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	assert.True(t, IsPartialMarker(lines[len(lines)-1]))

	r := csv.NewReader(&buf)
	r.Comment = '#'
	rows, err := r.ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestCSVWriterHeaderFirst(t *testing.T) {
	var buf bytes.Buffer
	w := NewCSVWriter(&buf)
	require.NoError(t, w.WriteHeader())
	assert.Equal(t, strings.Join(types.CostRecordColumns, ",")+"\n", buf.String())

	require.NoError(t, w.WriteRecords(nil))
	assert.Equal(t, 1, strings.Count(buf.String(), "\n"))
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestCSVWriterSurfacesIOErrors(t *testing.T) {
	assert.Error(t, NewCSVWriter(failingWriter{}).WriteHeader())
}

func TestJSONFormatter(t *testing.T) {
	report := sampleReport()
	report.Partial = true

	var buf bytes.Buffer
	require.NoError(t, JSONFormatter{}.Render(&buf, report))

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "0.1275", out["total"])
	assert.Equal(t, true, out["partial"])

	records := out["records"].([]interface{})
	require.Len(t, records, 2)
	first := records[0].(map[string]interface{})
	assert.Equal(t, 0.5, first["activityRunTimeHours"])
	assert.Equal(t, "0.125", first["billedAmount"])
	second := records[1].(map[string]interface{})
	assert.Contains(t, second, "activityRunTimeHours")
	assert.Nil(t, second["activityRunTimeHours"])
}

func TestTableFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, TableFormatter{}.Render(&buf, sampleReport()))
	out := buf.String()

	assert.Contains(t, out, "PIPELINE COST SUMMARY")
	assert.Contains(t, out, "LoadSales (1)")
	assert.Contains(t, out, "DIUHours/AzureIR")
	assert.Contains(t, out, "0.1275 USD")
	assert.Less(t, strings.Index(out, "LoadSales"), strings.Index(out, "Housekeeping"), "sorted by amount")
	assert.NotContains(t, out, "PARTIAL")
}

func TestTableFormatterTopAndPartial(t *testing.T) {
	report := sampleReport()
	report.Partial = true

	var buf bytes.Buffer
	require.NoError(t, TableFormatter{Top: 1}.Render(&buf, report))
	out := buf.String()
	assert.Contains(t, out, "1 more pipelines")
	assert.NotContains(t, out, "Housekeeping (1)")
	assert.Contains(t, out, "PARTIAL")
}

func TestTableFormatterEmptyReport(t *testing.T) {
	report := sampleReport()
	report.Records = nil

	var buf bytes.Buffer
	require.NoError(t, TableFormatter{}.Render(&buf, report))
	assert.Contains(t, buf.String(), "no billed activity runs")
	assert.Contains(t, buf.String(), "0.0000 USD")
}

func TestPaths(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 30, 5, 0, time.FixedZone("CET", 3600))

	assert.Equal(t, "contoso_activities_20240601113005.csv", DefaultFileName("contoso", now, FormatCSV))
	assert.Equal(t, "synapse_ws_activities_20240601113005.json", DefaultFileName("synapse:ws", now, FormatJSON))

	assert.Equal(t, filepath.Join("out", "contoso_activities_20240601113005.csv"), ResolvePath("out", "contoso", now, FormatCSV))
	assert.Equal(t, "contoso_activities_20240601113005.csv", ResolvePath("", "contoso", now, FormatCSV))
	assert.Equal(t, "costs.csv", ResolvePath("costs.csv", "contoso", now, FormatCSV))
	assert.Equal(t, Stdout, ResolvePath(Stdout, "contoso", now, FormatCSV))

	assert.Equal(t, filepath.Join("out", "costs.partial.csv"), PartialPath(filepath.Join("out", "costs.csv")))
}
