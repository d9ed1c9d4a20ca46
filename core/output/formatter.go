// Package output provides report formatters.
// This package produces human and machine-readable outputs.
package output

import (
	"fmt"
	"io"

	"pipeline-cost/core/types"
)

// Format represents output format type
type Format string

const (
	// FormatCSV is one row per cost record
	FormatCSV Format = "csv"

	// FormatJSON is machine-readable JSON
	FormatJSON Format = "json"

	// FormatTable is a human-readable summary table
	FormatTable Format = "table"
)

// Formats returns every supported format
func Formats() []Format {
	return []Format{FormatCSV, FormatJSON, FormatTable}
}

// ParseFormat validates a format name
func ParseFormat(s string) (Format, error) {
	for _, f := range Formats() {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown output format %q (want csv, json or table)", s)
}

// Extension returns the file extension used for the format
func (f Format) Extension() string {
	switch f {
	case FormatJSON:
		return ".json"
	case FormatTable:
		return ".txt"
	default:
		return ".csv"
	}
}

// Formatter produces output in a specific format
type Formatter interface {
	// Format returns the format type
	Format() Format

	// Render produces output for the given report
	Render(w io.Writer, report *types.Report) error
}

// For returns the formatter for a format
func For(f Format) (Formatter, error) {
	switch f {
	case FormatCSV:
		return CSVFormatter{}, nil
	case FormatJSON:
		return JSONFormatter{Indent: true}, nil
	case FormatTable:
		return TableFormatter{Top: 20}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q", f)
	}
}
