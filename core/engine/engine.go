// Package engine provides the cost traversal engine.
// CLI and storage are thin wrappers around this engine.
package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"pipeline-cost/core/cost"
	"pipeline-cost/core/pricing"
	"pipeline-cost/core/query"
	"pipeline-cost/core/types"
	"pipeline-cost/internal/errors"
)

// Engine walks pipeline runs and their activity runs and prices every
// activity that carries billing data.
//
// An Engine holds no mutable state. Each CollectCosts call owns its own
// report, so one Engine may serve concurrent traversals.
type Engine struct {
	queryer  query.Queryer
	rates    *pricing.RateCard
	observer Observer
	logger   *zap.Logger
	newID    func() string
	now      func() time.Time
}

// Option configures an Engine
type Option func(*Engine)

// WithRateCard prices records with rates instead of the built-in card
func WithRateCard(rates *pricing.RateCard) Option {
	return func(e *Engine) {
		if rates != nil {
			e.rates = rates
		}
	}
}

// WithObserver receives traversal events
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		if o != nil {
			e.observer = o
		}
	}
}

// WithLogger logs traversal progress at debug level
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithIDGenerator overrides report ID generation
func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) {
		if fn != nil {
			e.newID = fn
		}
	}
}

// WithClock overrides the report timestamp source
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// New creates an engine over a query backend
func New(q query.Queryer, opts ...Option) *Engine {
	e := &Engine{
		queryer:  q,
		rates:    pricing.Default(),
		observer: nopObserver{},
		logger:   zap.NewNop(),
		newID:    uuid.NewString,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RateCard returns the rates the engine prices with
func (e *Engine) RateCard() *pricing.RateCard {
	return e.rates
}

// CollectCosts lists the pipeline runs overlapping window, then the
// activity runs of each, and returns a cost record for every activity whose
// output carries billing data. Records keep source order.
//
// The traversal is fail-fast. When the backend fails or ctx is done, the
// returned report holds the records of every run fully traversed so far,
// is marked Partial, and is returned together with a TypeUpstream or
// TypeCancelled error. Records of the run in progress are discarded.
func (e *Engine) CollectCosts(ctx context.Context, window types.TimeRange) (*types.Report, error) {
	report := &types.Report{
		ID:          e.newID(),
		Backend:     e.queryer.Name(),
		Window:      window,
		Currency:    e.rates.Currency(),
		GeneratedAt: e.now().UTC(),
		Records:     []types.CostRecord{},
	}

	e.logger.Debug("Finding pipeline runs",
		zap.String("backend", report.Backend),
		zap.Stringer("window", window))

	for run, err := range e.queryer.PipelineRuns(ctx, window) {
		if err != nil {
			return e.abort(ctx, report, "listing pipeline runs", err)
		}
		if err := ctx.Err(); err != nil {
			return e.abort(ctx, report, "before listing activity runs", err)
		}

		result, err := e.collectRun(ctx, run, window)
		if err != nil {
			return e.abort(ctx, report, "listing activity runs for "+run.RunID, err)
		}

		report.Records = append(report.Records, result.records...)
		report.Stats.PipelineRuns++
		report.Stats.ActivityRuns += result.activities
		report.Stats.SkippedActivities += result.skipped
		for _, rec := range result.records {
			e.observer.RecordEmitted(rec)
		}
		e.observer.PipelineRunCompleted(run, len(result.records))
	}

	e.logger.Debug("Traversal complete",
		zap.String("report", report.ID),
		zap.Int("pipeline_runs", report.Stats.PipelineRuns),
		zap.Int("records", len(report.Records)))
	return report, nil
}

// runResult is what one pipeline run contributes to a report
type runResult struct {
	records    []types.CostRecord
	activities int
	skipped    int
}

// collectRun prices the activities of one run. The caller commits the
// result only when the whole run was listed without error.
func (e *Engine) collectRun(ctx context.Context, run types.PipelineRun, window types.TimeRange) (runResult, error) {
	e.logger.Debug("Processing pipeline run",
		zap.String("pipeline", run.PipelineName),
		zap.String("run_id", run.RunID))

	var result runResult
	for activity, err := range e.queryer.ActivityRuns(ctx, run, window) {
		if err != nil {
			return runResult{}, err
		}
		result.activities++

		// no billing reference is the common case, e.g. control-flow activities
		rec, billed := cost.FromActivity(run, activity, e.rates)
		e.observer.ActivityVisited(run, activity, billed)
		if !billed {
			result.skipped++
			continue
		}
		result.records = append(result.records, rec)
	}
	return result, nil
}

func (e *Engine) abort(ctx context.Context, report *types.Report, stage string, cause error) (*types.Report, error) {
	report.Partial = true

	var err error
	if ctxErr := ctx.Err(); ctxErr != nil {
		err = errors.Cancelled("traversal cancelled "+stage, cause)
	} else {
		err = errors.Upstream("failed "+stage, cause)
	}
	e.logger.Debug("Traversal aborted",
		zap.String("report", report.ID),
		zap.Int("records", len(report.Records)),
		zap.Error(err))
	e.observer.TraversalAborted(err)
	return report, err
}
