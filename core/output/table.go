// Package output - Terminal summary table
package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"pipeline-cost/core/cost"
	"pipeline-cost/core/types"
)

// TableFormatter prints a boxed summary by pipeline and by meter
type TableFormatter struct {
	// Top limits the pipelines listed; 0 lists all
	Top int
}

// Format implements Formatter
func (TableFormatter) Format() Format { return FormatTable }

const (
	tableRule   = "─────────────────────────────────────────────────────────────────────────"
	labelWidth  = 50
	amountWidth = 20
)

// Render implements Formatter
func (f TableFormatter) Render(w io.Writer, report *types.Report) error {
	summary := cost.Summarize(report)
	p := &boxPrinter{w: w}

	p.line("┌" + tableRule + "┐")
	p.line("│" + center("PIPELINE COST SUMMARY", len([]rune(tableRule))) + "│")
	p.line("├" + tableRule + "┤")
	p.row(report.Backend, report.Window.Start.Format("2006-01-02")+" → "+report.Window.End.Format("2006-01-02"))
	p.line("├" + tableRule + "┤")

	top := summary.ByPipeline
	if f.Top > 0 {
		top = summary.Top(f.Top)
	}
	for _, agg := range top {
		p.row(fmt.Sprintf("%s (%d)", agg.Key, agg.Records), money(agg.Amount, summary.Currency))
	}
	if hidden := len(summary.ByPipeline) - len(top); hidden > 0 {
		p.row(fmt.Sprintf("… %d more pipelines", hidden), "")
	}
	if len(summary.ByPipeline) == 0 {
		p.row("no billed activity runs", "")
	}

	if len(summary.ByMeter) > 0 {
		p.line("├" + tableRule + "┤")
		for _, agg := range summary.ByMeter {
			p.row(fmt.Sprintf("%s  %g h", agg.Key, agg.BilledHours), money(agg.Amount, summary.Currency))
		}
	}

	p.line("├" + tableRule + "┤")
	p.row("TOTAL", money(summary.Total, summary.Currency))
	p.line("└" + tableRule + "┘")

	p.printf("\n%d pipeline runs, %d activity runs, %d billed\n",
		report.Stats.PipelineRuns, report.Stats.ActivityRuns, len(report.Records))
	if report.Partial {
		p.printf("WARNING: report is PARTIAL, the traversal was aborted\n")
	}
	return p.err
}

type boxPrinter struct {
	w   io.Writer
	err error
}

func (p *boxPrinter) printf(format string, args ...interface{}) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

func (p *boxPrinter) line(s string) {
	p.printf("%s\n", s)
}

func (p *boxPrinter) row(label, amount string) {
	p.printf("│ %-*s %*s │\n", labelWidth, truncate(label, labelWidth), amountWidth, amount)
}

func money(d decimal.Decimal, currency types.Currency) string {
	return d.StringFixed(4) + " " + string(currency)
}

func center(s string, width int) string {
	pad := width - len([]rune(s))
	if pad <= 0 {
		return s
	}
	left := pad / 2
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", pad-left)
}

func truncate(s string, maxLen int) string {
	if len([]rune(s)) <= maxLen {
		return s
	}
	return string([]rune(s)[:maxLen-3]) + "..."
}
