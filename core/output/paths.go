// Package output - Output file naming
package output

import (
	"path/filepath"
	"strings"
	"time"
)

// Stdout is the output path that selects standard output
const Stdout = "-"

// DefaultFileName names a report file after the source, e.g.
// contoso_activities_20240601120000.csv. The timestamp is UTC.
func DefaultFileName(source string, now time.Time, f Format) string {
	return sanitize(source) + "_activities_" + now.UTC().Format("20060102150405") + f.Extension()
}

// ResolvePath turns the user's output argument into a file path. A path
// without an extension is a directory that receives a generated file name.
func ResolvePath(output, source string, now time.Time, f Format) string {
	if output == Stdout {
		return Stdout
	}
	if output == "" {
		output = "."
	}
	if filepath.Ext(output) == "" {
		return filepath.Join(output, DefaultFileName(source, now, f))
	}
	return output
}

// PartialPath marks a file as holding an incomplete report:
// costs.csv becomes costs.partial.csv.
func PartialPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + ".partial" + ext
}

func sanitize(name string) string {
	if name == "" {
		return "pipelines"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', ' ':
			return '_'
		}
		return r
	}, name)
}
