// Package metrics exposes Prometheus metrics for the calling core.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// CallMetrics holds all Prometheus metrics for the call center
type CallMetrics struct {
	// Call Metrics
	callsStartedTotal  *prometheus.CounterVec
	callsAnsweredTotal prometheus.Counter
	callsClosedTotal   *prometheus.CounterVec
	callsMissedTotal   prometheus.Counter
	callsActive        prometheus.Gauge
	callsDuration      prometheus.Histogram

	// Signalling Metrics
	signallingMessagesTotal *prometheus.CounterVec
	bufferedEvents          prometheus.Gauge

	// Engine Metrics
	engineReportsTotal prometheus.Counter
}

// NewCallMetrics creates and registers all call metrics with the given
// registerer.
func NewCallMetrics(reg prometheus.Registerer, serviceName string) *CallMetrics {
	factory := promauto.With(reg)

	return &CallMetrics{
		callsStartedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "calls_started_total",
				Help:        "Total number of calls started or received",
				ConstLabels: prometheus.Labels{"service": serviceName},
			},
			[]string{"direction", "type"},
		),
		callsAnsweredTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name:        "calls_answered_total",
				Help:        "Total number of calls answered locally",
				ConstLabels: prometheus.Labels{"service": serviceName},
			},
		),
		callsClosedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "calls_closed_total",
				Help:        "Total number of closed calls",
				ConstLabels: prometheus.Labels{"service": serviceName},
			},
			[]string{"reason"},
		),
		callsMissedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name:        "calls_missed_total",
				Help:        "Total number of missed calls",
				ConstLabels: prometheus.Labels{"service": serviceName},
			},
		),
		callsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name:        "calls_active",
				Help:        "Number of non-idle calls",
				ConstLabels: prometheus.Labels{"service": serviceName},
			},
		),
		callsDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:        "calls_duration_seconds",
				Help:        "Duration of established calls in seconds",
				ConstLabels: prometheus.Labels{"service": serviceName},
				Buckets:     []float64{10, 30, 60, 180, 600, 1800, 3600},
			},
		),
		signallingMessagesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "signalling_messages_total",
				Help:        "Total number of signalling payloads by direction",
				ConstLabels: prometheus.Labels{"service": serviceName},
			},
			[]string{"direction"},
		),
		bufferedEvents: factory.NewGauge(
			prometheus.GaugeOpts{
				Name:        "signalling_buffered_events",
				Help:        "Signalling payloads held until the engine is ready",
				ConstLabels: prometheus.Labels{"service": serviceName},
			},
		),
		engineReportsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name:        "engine_metric_reports_total",
				Help:        "Metric documents delivered by the media engine",
				ConstLabels: prometheus.Labels{"service": serviceName},
			},
		),
	}
}

// CallStarted records a new call. Direction is "outgoing" or "incoming".
func (m *CallMetrics) CallStarted(direction string, video bool) {
	if m == nil {
		return
	}
	callType := "audio"
	if video {
		callType = "video"
	}
	m.callsStartedTotal.WithLabelValues(direction, callType).Inc()
}

// CallAnswered records a locally answered call.
func (m *CallMetrics) CallAnswered() {
	if m == nil {
		return
	}
	m.callsAnsweredTotal.Inc()
}

// CallClosed records a closed call with its reason.
func (m *CallMetrics) CallClosed(reason string) {
	if m == nil {
		return
	}
	m.callsClosedTotal.WithLabelValues(reason).Inc()
}

// CallMissed records a missed call.
func (m *CallMetrics) CallMissed() {
	if m == nil {
		return
	}
	m.callsMissedTotal.Inc()
}

// SetActiveCalls tracks the current number of non-idle calls.
func (m *CallMetrics) SetActiveCalls(n int) {
	if m == nil {
		return
	}
	m.callsActive.Set(float64(n))
}

// ObserveCallDuration records the duration of an established call.
func (m *CallMetrics) ObserveCallDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.callsDuration.Observe(d.Seconds())
}

// SignallingMessage counts a payload. Direction is "inbound" or "outbound".
func (m *CallMetrics) SignallingMessage(direction string) {
	if m == nil {
		return
	}
	m.signallingMessagesTotal.WithLabelValues(direction).Inc()
}

// SetBufferedEvents tracks the pre-readiness event buffer size.
func (m *CallMetrics) SetBufferedEvents(n int) {
	if m == nil {
		return
	}
	m.bufferedEvents.Set(float64(n))
}

// EngineReport counts a metrics document from the engine.
func (m *CallMetrics) EngineReport() {
	if m == nil {
		return
	}
	m.engineReportsTotal.Inc()
}
