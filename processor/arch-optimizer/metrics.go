package archoptimizer

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/c360studio/semarch/search"
)

// Package-level tracer for optimization runs.
var tracer = otel.Tracer("semarch.optimizer")

// knownReasons bounds the cardinality of the reason label.
var knownReasons = map[search.ConvergenceReason]bool{
	search.ReasonThreshold:     true,
	search.ReasonNoImprovement: true,
	search.ReasonMaxIterations: true,
	search.ReasonInterrupted:   true,
}

// reasonLabel returns a bounded label value for a run outcome.
func reasonLabel(reason search.ConvergenceReason) string {
	if knownReasons[reason] {
		return string(reason)
	}
	return "unknown"
}

var (
	// runsTotal counts finished runs.
	//
	// Labels:
	//   - reason: convergence reason, or "config_error" for rejected runs
	runsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "semarch",
			Subsystem: "optimizer",
			Name:      "runs_total",
			Help:      "Total optimization runs by convergence reason",
		},
		[]string{"reason"},
	)

	runIterations = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "semarch",
			Subsystem: "optimizer",
			Name:      "run_iterations",
			Help:      "Iterations executed per optimization run",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250, 1000},
		},
	)

	runDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "semarch",
			Subsystem: "optimizer",
			Name:      "run_duration_seconds",
			Help:      "Optimization run duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	variantsGeneratedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "semarch",
			Subsystem: "optimizer",
			Name:      "variants_generated_total",
			Help:      "Total candidate variants produced by move operators",
		},
	)

	variantsRejectedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "semarch",
			Subsystem: "optimizer",
			Name:      "variants_rejected_total",
			Help:      "Total candidate variants rejected for hard violations",
		},
	)

	// paretoFrontSize is the front size of the most recently finished run.
	paretoFrontSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "semarch",
			Subsystem: "optimizer",
			Name:      "pareto_front_size",
			Help:      "Pareto front size of the last finished run",
		},
	)

	weightsReloadsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "semarch",
			Subsystem: "optimizer",
			Name:      "weights_reloads_total",
			Help:      "Total successful rule weight table reloads",
		},
	)
)

// recordRun records metrics for a finished run.
func recordRun(res *search.Result, duration time.Duration) {
	runsTotal.WithLabelValues(reasonLabel(res.ConvergenceReason)).Inc()
	runIterations.Observe(float64(res.Iterations))
	runDurationSeconds.Observe(duration.Seconds())
	variantsGeneratedTotal.Add(float64(res.Stats.TotalVariantsGenerated))
	variantsRejectedTotal.Add(float64(res.Stats.VariantsRejected))
	paretoFrontSize.Set(float64(len(res.ParetoFront)))
}

// recordConfigError records a run rejected before iterating.
func recordConfigError() {
	runsTotal.WithLabelValues("config_error").Inc()
}

// startOptimizeSpan creates a span for one optimization run.
func startOptimizeSpan(ctx context.Context, slug string, nodes, edges int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Optimizer.Optimize",
		trace.WithAttributes(
			attribute.String("arch.slug", slug),
			attribute.Int("arch.nodes", nodes),
			attribute.Int("arch.edges", edges),
		),
	)
}

// setOptimizeSpanResult sets the result attributes on a run span.
func setOptimizeSpanResult(span trace.Span, res *search.Result) {
	attrs := []attribute.KeyValue{
		attribute.Int("search.iterations", res.Iterations),
		attribute.String("search.convergence", string(res.ConvergenceReason)),
		attribute.Bool("search.success", res.Success),
		attribute.Int("search.front_size", len(res.ParetoFront)),
	}
	if res.BestVariant != nil {
		attrs = append(attrs, attribute.Float64("search.best_score", res.BestVariant.Score.Weighted))
	}
	span.SetAttributes(attrs...)
}
