// Package metrics exposes the plugin's Prometheus instrumentation. All
// collectors are registered on the default registry, serving them is up to
// the embedding process.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CompilationsTotal counts model compilations by compiler and result.
	CompilationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "npu",
		Subsystem: "compiler",
		Name:      "compilations_total",
		Help:      "Number of model compilations, partitioned by compiler and result.",
	}, []string{"compiler", "result"})

	// CompilationSeconds observes wall clock compilation time by compiler.
	CompilationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "npu",
		Subsystem: "compiler",
		Name:      "compilation_seconds",
		Help:      "Model compilation latency in seconds, partitioned by compiler.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10),
	}, []string{"compiler"})

	// ImportsTotal counts blob imports by compiler and result.
	ImportsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "npu",
		Subsystem: "compiler",
		Name:      "imports_total",
		Help:      "Number of compiled blob imports, partitioned by compiler and result.",
	}, []string{"compiler", "result"})

	// BackendScanTotal counts engine backend scan outcomes.
	BackendScanTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "npu",
		Subsystem: "backends",
		Name:      "scan_total",
		Help:      "Engine backend scan outcomes, partitioned by backend and outcome.",
	}, []string{"backend", "outcome"})

	// InferencesTotal counts inferences by backend and result.
	InferencesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "npu",
		Subsystem: "runtime",
		Name:      "inferences_total",
		Help:      "Number of inference runs, partitioned by backend and result.",
	}, []string{"backend", "result"})

	// InferenceSeconds observes inference latency by backend.
	InferenceSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "npu",
		Subsystem: "runtime",
		Name:      "inference_seconds",
		Help:      "Inference latency in seconds, partitioned by backend.",
		Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 12),
	}, []string{"backend"})
)

// Result label values.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Scan outcome label values.
const (
	OutcomeSelected    = "selected"
	OutcomeRegistered  = "registered"
	OutcomeNoDevices   = "no_devices"
	OutcomeUnavailable = "unavailable"
	OutcomeFailed      = "failed"
)

// ResultLabel maps an error to its result label value.
func ResultLabel(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultOK
}
