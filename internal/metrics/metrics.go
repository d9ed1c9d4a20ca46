// Package metrics exposes traversal counters in Prometheus format.
//
// Counters live on a private registry per Collector so that independent
// reports never share state. The CLI writes them to a node_exporter
// textfile after each run.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"pipeline-cost/core/types"
)

// Collector implements engine.Observer
type Collector struct {
	registry *prometheus.Registry

	pipelineRuns   prometheus.Counter
	activityRuns   *prometheus.CounterVec
	costRecords    *prometheus.CounterVec
	billedAmount   prometheus.Counter
	traversalFails prometheus.Counter
}

// NewCollector creates a collector with its own registry
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		pipelineRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pipeline_cost",
			Name:      "pipeline_runs_total",
			Help:      "Pipeline runs fully traversed.",
		}),
		activityRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pipeline_cost",
			Name:      "activity_runs_total",
			Help:      "Activity runs inspected, by whether they carried billing data.",
		}, []string{"billed"}),
		costRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pipeline_cost",
			Name:      "cost_records_total",
			Help:      "Cost records committed to a report, by billing unit and meter type.",
		}, []string{"unit", "meter_type"}),
		billedAmount: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pipeline_cost",
			Name:      "billed_amount_total",
			Help:      "Sum of billed amounts of committed cost records.",
		}),
		traversalFails: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pipeline_cost",
			Name:      "traversal_aborts_total",
			Help:      "Traversals that stopped early because of an upstream failure or cancellation.",
		}),
	}

	c.registry.MustRegister(
		c.pipelineRuns,
		c.activityRuns,
		c.costRecords,
		c.billedAmount,
		c.traversalFails,
	)
	return c
}

// Registry returns the gatherer holding the collector's metrics
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// ActivityVisited implements engine.Observer
func (c *Collector) ActivityVisited(_ types.PipelineRun, _ types.ActivityRun, billed bool) {
	label := "false"
	if billed {
		label = "true"
	}
	c.activityRuns.WithLabelValues(label).Inc()
}

// RecordEmitted implements engine.Observer
func (c *Collector) RecordEmitted(record types.CostRecord) {
	c.costRecords.WithLabelValues(record.BilledUnit, record.BilledMeterType).Inc()
	c.billedAmount.Add(record.BilledAmount.InexactFloat64())
}

// PipelineRunCompleted implements engine.Observer
func (c *Collector) PipelineRunCompleted(types.PipelineRun, int) {
	c.pipelineRuns.Inc()
}

// TraversalAborted implements engine.Observer
func (c *Collector) TraversalAborted(error) {
	c.traversalFails.Inc()
}

// WriteTextfile writes all metrics in the text exposition format
func (c *Collector) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, c.registry)
}
