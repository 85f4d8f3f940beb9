package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// AnalysesTotal counts completed client analyses by resulting risk level.
var AnalysesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "txrisk_analyses_total",
		Help: "Total number of client risk analyses completed",
	},
	[]string{"level"},
)

// AlertsGenerated counts alerts emitted by priority.
var AlertsGenerated = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "txrisk_alerts_generated_total",
		Help: "Total number of alerts generated by the engine",
	},
	[]string{"priority"},
)

// RedFlagsDetected counts red flags raised by flag type.
var RedFlagsDetected = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "txrisk_red_flags_detected_total",
		Help: "Total number of red flags raised by the detectors",
	},
	[]string{"type"},
)

// AnalysisDuration records wall time per analysis.
var AnalysisDuration = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "txrisk_analysis_duration_seconds",
		Help:    "Latency in seconds of a single client analysis",
		Buckets: prometheus.DefBuckets,
	},
)

// Register registers all engine collectors on the given registerer.
func Register(r prometheus.Registerer) {
	r.MustRegister(AnalysesTotal, AlertsGenerated, RedFlagsDetected, AnalysisDuration)
}
