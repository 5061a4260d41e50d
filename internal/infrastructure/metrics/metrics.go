package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "sst"

// Recorder owns a private registry so several instances can coexist in tests.
type Recorder struct {
	registry *prometheus.Registry

	// transitions counts lifecycle actions.
	// Labels: family (incident, finding, ...), action, result (ok, rejected, stale, error)
	transitions *prometheus.CounterVec

	// notifications counts outbound deliveries.
	// Labels: event_type, channel (webhook, nats), result (ok, error)
	notifications *prometheus.CounterVec

	// findingsDetected counts findings generated from checklist answers.
	findingsDetected prometheus.Counter

	// indicatorLatency measures indicator aggregation time.
	indicatorLatency prometheus.Histogram
}

func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lifecycle",
			Name:      "transitions_total",
			Help:      "Lifecycle actions applied, by family, action and result",
		}, []string{"family", "action", "result"}),
		notifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "deliveries_total",
			Help:      "Outbound event deliveries, by event type, channel and result",
		}, []string{"event_type", "channel", "result"}),
		findingsDetected: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "inspection",
			Name:      "findings_detected_total",
			Help:      "Findings generated from non-conforming checklist answers",
		}),
		indicatorLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "report",
			Name:      "indicator_seconds",
			Help:      "Indicator aggregation latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),
	}
}

// RecordTransition is nil-safe so callers without a recorder can skip wiring.
func (r *Recorder) RecordTransition(family, action, result string) {
	if r == nil {
		return
	}
	r.transitions.WithLabelValues(family, action, result).Inc()
}

func (r *Recorder) RecordNotification(eventType, channel string, err error) {
	if r == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.notifications.WithLabelValues(eventType, channel, result).Inc()
}

func (r *Recorder) RecordFindings(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.findingsDetected.Add(float64(n))
}

func (r *Recorder) ObserveIndicators(seconds float64) {
	if r == nil {
		return
	}
	r.indicatorLatency.Observe(seconds)
}

func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
