package metrics

import "github.com/prometheus/client_golang/prometheus"

// PortalMetrics exposes counters/histograms for the portal's upstream calls
// and view flows.
type PortalMetrics struct {
	upstreamTotal   *prometheus.CounterVec
	upstreamLatency *prometheus.HistogramVec
	reservations    *prometheus.CounterVec
	staleDiscarded  prometheus.Counter
	messagesSent    *prometheus.CounterVec
}

func NewPortalMetrics(reg prometheus.Registerer) *PortalMetrics {
	m := &PortalMetrics{
		upstreamTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "portal",
			Subsystem: "clinicapi",
			Name:      "requests_total",
			Help:      "Total upstream clinic API requests",
		}, []string{"operation", "status"}),
		upstreamLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "portal",
			Subsystem: "clinicapi",
			Name:      "request_latency_seconds",
			Help:      "Latency of upstream clinic API requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		reservations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "portal",
			Subsystem: "booking",
			Name:      "reservations_total",
			Help:      "Reservation attempts by outcome",
		}, []string{"outcome"}),
		staleDiscarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "portal",
			Subsystem: "messaging",
			Name:      "stale_responses_discarded_total",
			Help:      "Message fetch results dropped because the selection moved on",
		}),
		messagesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "portal",
			Subsystem: "messaging",
			Name:      "messages_sent_total",
			Help:      "Patient message sends by outcome",
		}, []string{"outcome"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.upstreamTotal, m.upstreamLatency, m.reservations, m.staleDiscarded, m.messagesSent)
	return m
}

func (m *PortalMetrics) ObserveUpstream(operation, status string, seconds float64) {
	if m == nil {
		return
	}
	m.upstreamTotal.WithLabelValues(operation, status).Inc()
	m.upstreamLatency.WithLabelValues(operation).Observe(seconds)
}

func (m *PortalMetrics) ObserveReservation(outcome string) {
	if m == nil {
		return
	}
	m.reservations.WithLabelValues(outcome).Inc()
}

func (m *PortalMetrics) ObserveStaleDiscarded() {
	if m == nil {
		return
	}
	m.staleDiscarded.Inc()
}

func (m *PortalMetrics) ObserveMessageSent(outcome string) {
	if m == nil {
		return
	}
	m.messagesSent.WithLabelValues(outcome).Inc()
}
