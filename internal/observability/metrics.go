package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "pdfexport"

var (
	metricExports = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "exports_total",
		Help:      "Finished /generate exports by outcome and failure kind.",
	}, []string{"outcome", "kind"})
	metricExportDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "export_duration_seconds",
		Help:      "Wall time of a whole export, cleanup included.",
		Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 40, 80},
	}, []string{"outcome"})
	metricStageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "stage_duration_seconds",
		Help:      "Time spent in each export stage.",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
	}, []string{"stage"})
	metricBrowsersLive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "browsers_live",
		Help:      "Browser processes currently launched and not yet released.",
	})
	metricIntercepted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "intercepted_requests_total",
		Help:      "Page requests seen by the interception policy.",
	}, []string{"action", "rule"})
	metricSoftFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "soft_failures_total",
		Help:      "Failures downgraded to warnings (ready flag timeouts, close errors).",
	}, []string{"kind"})
)

// ObserveExport records a finished export. kind is empty on success.
func ObserveExport(outcome, kind string, d time.Duration) {
	metricExports.WithLabelValues(outcome, kind).Inc()
	metricExportDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

func ObserveStage(stage string, d time.Duration) {
	metricStageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func BrowserLaunched() { metricBrowsersLive.Inc() }

func BrowserReleased() { metricBrowsersLive.Dec() }

func RequestIntercepted(action, rule string) {
	if rule == "" {
		rule = "default"
	}
	metricIntercepted.WithLabelValues(action, rule).Inc()
}

func SoftFailure(kind string) {
	metricSoftFailures.WithLabelValues(kind).Inc()
}
