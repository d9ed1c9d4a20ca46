// Package cmd - report command
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pipeline-cost/adapters/storage"
	"pipeline-cost/clouds"
	"pipeline-cost/clouds/azure"
	"pipeline-cost/core/engine"
	"pipeline-cost/core/output"
	"pipeline-cost/core/pricing"
	"pipeline-cost/core/types"
	"pipeline-cost/core/ui"
	"pipeline-cost/internal/config"
	"pipeline-cost/internal/logging"
	"pipeline-cost/internal/metrics"
)

// reportOptions are the report flags. Empty values fall back to config.
type reportOptions struct {
	Backend         string
	Workspace       string
	Subscription    string
	ResourceGroup   string
	Factory         string
	Fixture         string
	Endpoint        string
	Days            int
	From            string
	To              string
	Output          string
	Format          string
	RatesPath       string
	Store           bool
	MetricsTextfile string
	Top             int

	// Progress receives traversal progress; nil disables it
	Progress *ui.Writer
}

var reportOpts reportOptions

// reportCmd represents the report command
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Build a cost report for recent pipeline runs",
	Long: `List the pipeline runs of the selected backend, read the billing data of
every activity run, and write one priced row per billed activity.

The CSV header is written before any run is listed so that output problems
surface immediately. If the traversal fails or is interrupted, the rows
collected so far are kept in a file suffixed .partial and the command exits
with an error. CSV written to stdout (-o -) instead ends with the comment
line "# partial report: ...".

Examples:
  pipeline-cost report --workspace contoso-syn
  pipeline-cost report --workspace contoso-syn --days 7 -o ./reports
  pipeline-cost report --backend file --fixture runs.json --format json -o costs.json`,
	Args: cobra.NoArgs,
	RunE: runReportCmd,
}

func init() {
	f := reportCmd.Flags()
	f.StringVarP(&reportOpts.Backend, "backend", "b", "", "pipeline backend (synapse, datafactory, file)")
	f.StringVarP(&reportOpts.Workspace, "workspace", "w", "", "Synapse workspace name")
	f.StringVar(&reportOpts.Subscription, "subscription", "", "Azure subscription ID of the data factory")
	f.StringVar(&reportOpts.ResourceGroup, "resource-group", "", "resource group of the data factory")
	f.StringVar(&reportOpts.Factory, "factory", "", "data factory name")
	f.StringVar(&reportOpts.Fixture, "fixture", "", "JSON export replayed by the file backend")
	f.StringVar(&reportOpts.Endpoint, "endpoint", "", "override the service endpoint")
	f.IntVar(&reportOpts.Days, "days", 0, "look back this many days (default from config, 30)")
	f.StringVar(&reportOpts.From, "from", "", "window start, RFC 3339 or YYYY-MM-DD")
	f.StringVar(&reportOpts.To, "to", "", "window end, RFC 3339 or YYYY-MM-DD (default now)")
	f.StringVarP(&reportOpts.Output, "output", "o", "", "output file or directory, - for stdout")
	f.StringVarP(&reportOpts.Format, "format", "f", "", "output format (csv, json, table)")
	f.StringVar(&reportOpts.RatesPath, "rates", "", "HCL rate card overriding built-in rates")
	f.BoolVar(&reportOpts.Store, "store", false, "save the report to the history store")
	f.StringVar(&reportOpts.MetricsTextfile, "metrics-textfile", "", "write Prometheus metrics to this file")
	f.IntVar(&reportOpts.Top, "top", 20, "pipelines listed in the summary table")
	_ = f.MarkHidden("endpoint")
}

func runReportCmd(cmd *cobra.Command, args []string) error {
	cfg, err := reportOpts.apply(config.Get())
	if err != nil {
		return err
	}
	opts := reportOpts
	opts.Progress = ui.ForWriter(cmd.ErrOrStderr())
	if verbose {
		opts.Progress.SetVerbosity(2)
	}
	_, err = runReport(cmd.Context(), cfg, opts, cmd.OutOrStdout(), time.Now())
	return err
}

// apply overlays flags on a copy of cfg and validates the result
func (o reportOptions) apply(base *config.Config) (*config.Config, error) {
	cfg := *base
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&cfg.Query.Backend, o.Backend)
	set(&cfg.Query.Workspace, o.Workspace)
	set(&cfg.Query.SubscriptionID, o.Subscription)
	set(&cfg.Query.ResourceGroup, o.ResourceGroup)
	set(&cfg.Query.Factory, o.Factory)
	set(&cfg.Query.FixturePath, o.Fixture)
	set(&cfg.Output.DefaultFormat, o.Format)
	set(&cfg.Pricing.RateCardPath, o.RatesPath)
	set(&cfg.Metrics.TextfilePath, o.MetricsTextfile)
	if o.Days > 0 {
		cfg.Query.LookbackDays = o.Days
	}
	if o.Store {
		cfg.Storage.Enabled = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// runReport performs one traversal and writes every configured output. A
// partial report is still written, renamed and stored; the traversal error
// is returned after that.
func runReport(ctx context.Context, cfg *config.Config, opts reportOptions, stdout io.Writer, now time.Time) (*types.Report, error) {
	logger := logging.Named("report")

	window, err := resolveWindow(opts.From, opts.To, cfg.Query.LookbackDays, now)
	if err != nil {
		return nil, err
	}
	rates, err := loadRates(cfg.Pricing)
	if err != nil {
		return nil, err
	}
	format, err := output.ParseFormat(cfg.Output.DefaultFormat)
	if err != nil {
		return nil, err
	}
	kind, err := clouds.ParseBackendKind(cfg.Query.Backend)
	if err != nil {
		return nil, err
	}

	q, err := clouds.GetDefaultRegistry().Open(ctx, kind, clouds.Settings{
		Workspace:      cfg.Query.Workspace,
		SubscriptionID: cfg.Query.SubscriptionID,
		ResourceGroup:  cfg.Query.ResourceGroup,
		Factory:        cfg.Query.Factory,
		FixturePath:    cfg.Query.FixturePath,
		Endpoint:       opts.Endpoint,
		Client:         clientConfig(cfg.Query),
		Logger:         logging.Named(string(kind)),
	})
	if err != nil {
		return nil, err
	}

	path := outputPath(opts.Output, cfg.Output.Directory, q.Name(), now, format)
	sink, err := openSink(path, format, opts.Top, stdout)
	if err != nil {
		return nil, err
	}

	collector := metrics.NewCollector()
	var observer engine.Observer = &reportObserver{Collector: collector, rates: rates, logger: logger, seen: map[string]bool{}}
	var progress *ui.Progress
	if opts.Progress != nil {
		progress = opts.Progress.NewProgress()
		observer = engine.Observers(observer, progress)
	}
	eng := engine.New(q,
		engine.WithRateCard(rates),
		engine.WithObserver(observer),
		engine.WithLogger(logging.Named("engine")),
	)

	logger.Info("Finding pipeline runs",
		zap.String("backend", q.Name()),
		zap.Stringer("window", window))
	report, runErr := eng.CollectCosts(ctx, window)
	if progress != nil && runErr == nil {
		progress.Done()
	}
	if report == nil {
		sink.close()
		return nil, runErr
	}

	written, err := sink.finish(report)
	if err != nil {
		return report, err
	}
	if report.Partial {
		logger.Warn("Report is partial", zap.String("path", written), zap.Error(runErr))
	}

	// persist even after cancellation
	persistCtx := context.WithoutCancel(ctx)
	if cfg.Storage.Enabled {
		if err := saveReport(persistCtx, cfg.Storage, report); err != nil {
			return report, err
		}
		logger.Debug("Report saved", zap.String("id", report.ID))
	}
	if cfg.Metrics.TextfilePath != "" {
		if err := collector.WriteTextfile(cfg.Metrics.TextfilePath); err != nil {
			return report, fmt.Errorf("failed to write metrics: %w", err)
		}
	}

	if written != output.Stdout {
		fmt.Fprintf(stdout, "Wrote %d cost records to %s\n", len(report.Records), written)
		if format != output.FormatTable {
			if err := (output.TableFormatter{Top: opts.Top}).Render(stdout, report); err != nil {
				return report, err
			}
		}
	}
	return report, runErr
}

// reportObserver counts traversal metrics and logs billing units the rate
// card cannot price
type reportObserver struct {
	*metrics.Collector
	rates  *pricing.RateCard
	logger *zap.Logger
	seen   map[string]bool
}

func (o *reportObserver) RecordEmitted(rec types.CostRecord) {
	o.Collector.RecordEmitted(rec)
	if o.rates.Known(rec.BilledUnit) || o.seen[rec.BilledUnit] {
		return
	}
	o.seen[rec.BilledUnit] = true
	o.logger.Info("Unrecognized billing unit priced at zero",
		zap.String("unit", rec.BilledUnit),
		zap.String("meter_type", rec.BilledMeterType),
		zap.String("pipeline", rec.PipelineName))
}

func resolveWindow(from, to string, days int, now time.Time) (types.TimeRange, error) {
	if from == "" && to == "" {
		return types.LastDays(now, days), nil
	}

	end := now
	if to != "" {
		t, err := parseTime(to)
		if err != nil {
			return types.TimeRange{}, fmt.Errorf("invalid --to: %w", err)
		}
		end = t
	}
	start := end.AddDate(0, 0, -days)
	if from != "" {
		t, err := parseTime(from)
		if err != nil {
			return types.TimeRange{}, fmt.Errorf("invalid --from: %w", err)
		}
		start = t
	}
	return types.NewTimeRange(start, end)
}

func parseTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

func loadRates(cfg config.PricingConfig) (*pricing.RateCard, error) {
	if cfg.RateCardPath != "" {
		return pricing.LoadRateCard(cfg.RateCardPath)
	}
	if cfg.DefaultCurrency != "" && cfg.DefaultCurrency != types.CurrencyUSD {
		return pricing.NewRateCard(cfg.DefaultCurrency, pricing.DefaultTiers()), nil
	}
	return pricing.Default(), nil
}

func clientConfig(q config.QueryConfig) azure.ClientConfig {
	c := azure.DefaultClientConfig()
	c.RequestsPerSecond = q.RequestsPerSecond
	if q.Burst > 0 {
		c.Burst = q.Burst
	}
	c.MaxRetries = q.MaxRetries
	if q.HTTPTimeoutSeconds > 0 {
		c.HTTPTimeout = time.Duration(q.HTTPTimeoutSeconds) * time.Second
	}
	c.UserAgent = "pipeline-cost/" + Version
	return c
}

// outputPath picks the destination. A table with no explicit output goes
// to stdout; everything else defaults to a generated file name.
func outputPath(flag, dir, source string, now time.Time, format output.Format) string {
	if flag == "" && format == output.FormatTable {
		return output.Stdout
	}
	if flag == "" {
		flag = dir
	}
	if _, name, ok := strings.Cut(source, ":"); ok {
		source = name
	}
	return output.ResolvePath(flag, source, now, format)
}

func saveReport(ctx context.Context, cfg config.StorageConfig, report *types.Report) error {
	store, err := storage.Open(ctx, storage.Driver(cfg.Driver), cfg.DSN)
	if err != nil {
		return err
	}
	defer store.Close()
	return store.Save(ctx, report)
}

// reportSink owns the output destination for one report
type reportSink struct {
	path      string
	w         io.Writer
	file      *os.File
	csv       *output.CSVWriter
	formatter output.Formatter
}

// openSink creates the destination. For CSV the header is written right
// away.
func openSink(path string, format output.Format, top int, stdout io.Writer) (*reportSink, error) {
	s := &reportSink{path: path, w: stdout}
	if path != output.Stdout {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
		file, err := os.Create(path)
		if err != nil {
			return nil, fmt.Errorf("failed to create output file: %w", err)
		}
		s.file = file
		s.w = file
	}

	switch format {
	case output.FormatCSV:
		s.csv = output.NewCSVWriter(s.w)
		if err := s.csv.WriteHeader(); err != nil {
			s.close()
			return nil, fmt.Errorf("failed to write %s: %w", path, err)
		}
	case output.FormatTable:
		s.formatter = output.TableFormatter{Top: top}
	default:
		f, err := output.For(format)
		if err != nil {
			s.close()
			return nil, err
		}
		s.formatter = f
	}
	return s, nil
}

// finish writes the report and closes the destination. Files holding a
// partial report are renamed; the final path is returned.
func (s *reportSink) finish(report *types.Report) (string, error) {
	var err error
	if s.csv != nil {
		err = s.csv.WriteRecords(report.Records)
		if err == nil && report.Partial && s.file == nil {
			err = s.csv.WritePartialMarker()
		}
	} else {
		err = s.formatter.Render(s.w, report)
	}
	if cerr := s.close(); err == nil {
		err = cerr
	}
	if err != nil {
		return s.path, fmt.Errorf("failed to write %s: %w", s.path, err)
	}

	if report.Partial && s.file != nil {
		partial := output.PartialPath(s.path)
		if err := os.Rename(s.path, partial); err != nil {
			return s.path, fmt.Errorf("failed to mark %s partial: %w", s.path, err)
		}
		return partial, nil
	}
	return s.path, nil
}

func (s *reportSink) close() error {
	if s.file == nil {
		return nil
	}
	return s.file.Close()
}
