// Package output - CSV export
package output

import (
	"encoding/csv"
	"io"
	"strings"

	"pipeline-cost/core/types"
)

// CSVWriter streams cost records as CSV rows in types.CostRecordColumns
// order. The header is written separately so that callers can surface I/O
// errors before a long traversal starts.
type CSVWriter struct {
	out io.Writer
	w   *csv.Writer
}

// PartialMarker is the trailing comment line of CSV streamed for a partial
// report. Readers can skip it with csv.Reader.Comment = '#'.
const PartialMarker = "# partial report: traversal stopped before all pipeline runs were read"

// NewCSVWriter wraps w
func NewCSVWriter(w io.Writer) *CSVWriter {
	return &CSVWriter{out: w, w: csv.NewWriter(w)}
}

// WriteHeader writes and flushes the column header
func (c *CSVWriter) WriteHeader() error {
	if err := c.w.Write(types.CostRecordColumns); err != nil {
		return err
	}
	c.w.Flush()
	return c.w.Error()
}

// WriteRecords writes and flushes one row per record
func (c *CSVWriter) WriteRecords(records []types.CostRecord) error {
	for _, rec := range records {
		if err := c.w.Write(rec.Row()); err != nil {
			return err
		}
	}
	c.w.Flush()
	return c.w.Error()
}

// WritePartialMarker ends the stream with PartialMarker
func (c *CSVWriter) WritePartialMarker() error {
	c.w.Flush()
	if err := c.w.Error(); err != nil {
		return err
	}
	_, err := io.WriteString(c.out, PartialMarker+"\n")
	return err
}

// IsPartialMarker reports whether a CSV line is PartialMarker
func IsPartialMarker(line string) bool {
	return strings.TrimRight(line, "\r\n") == PartialMarker
}

// CSVFormatter renders a whole report as CSV. A partial report ends with
// PartialMarker.
type CSVFormatter struct{}

// Format implements Formatter
func (CSVFormatter) Format() Format { return FormatCSV }

// Render implements Formatter
func (CSVFormatter) Render(w io.Writer, report *types.Report) error {
	cw := NewCSVWriter(w)
	if err := cw.WriteHeader(); err != nil {
		return err
	}
	if err := cw.WriteRecords(report.Records); err != nil {
		return err
	}
	if report.Partial {
		return cw.WritePartialMarker()
	}
	return nil
}
