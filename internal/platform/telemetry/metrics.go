// Package telemetry exposes Prometheus metrics for the timeline pipeline.
package telemetry

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	pipelineRuns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chartspan_pipeline_runs_total",
		Help: "Number of timeline pipeline runs.",
	})
	droppedRecords = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chartspan_records_dropped_total",
		Help: "Records excluded during normalization for unresolvable dates.",
	})
	emittedEvents = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chartspan_events_emitted_total",
		Help: "Events emitted by the pipeline after aggregation.",
	})
	pipelineDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "chartspan_pipeline_duration_seconds",
		Help:    "Wall time of one pipeline run, fetch included.",
		Buckets: prometheus.DefBuckets,
	})
)

// ObservePipelineRun records the outcome of one pipeline run.
func ObservePipelineRun(dropped, emitted int, elapsed time.Duration) {
	pipelineRuns.Inc()
	droppedRecords.Add(float64(dropped))
	emittedEvents.Add(float64(emitted))
	pipelineDuration.Observe(elapsed.Seconds())
}

// Handler returns the /metrics endpoint handler.
func Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.Handler())
}
