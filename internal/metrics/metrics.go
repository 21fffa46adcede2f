// Package metrics exposes Prometheus counters for payments and withdrawals.
package metrics

import "github.com/prometheus/client_golang/prometheus"

type Metrics struct {
	webhookTotal          *prometheus.CounterVec
	webhookLatency        *prometheus.HistogramVec
	withdrawalTransitions *prometheus.CounterVec
	sessionResolutions    *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		webhookTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "healthe",
			Subsystem: "payments",
			Name:      "webhook_total",
			Help:      "Payment gateway IPN callbacks by gateway and outcome",
		}, []string{"gateway", "outcome"}),
		webhookLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "healthe",
			Subsystem: "payments",
			Name:      "webhook_latency_seconds",
			Help:      "Latency of IPN processing",
			Buckets:   prometheus.DefBuckets,
		}, []string{"gateway"}),
		withdrawalTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "healthe",
			Subsystem: "withdrawals",
			Name:      "transitions_total",
			Help:      "Withdrawal status transitions",
		}, []string{"from", "to"}),
		sessionResolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "healthe",
			Subsystem: "sessions",
			Name:      "resolutions_total",
			Help:      "Session bootstrap results by tier",
		}, []string{"tier"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.webhookTotal, m.webhookLatency, m.withdrawalTransitions, m.sessionResolutions)
	return m
}

func (m *Metrics) ObserveWebhook(gateway, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.webhookTotal.WithLabelValues(gateway, outcome).Inc()
	m.webhookLatency.WithLabelValues(gateway).Observe(seconds)
}

func (m *Metrics) ObserveWithdrawalTransition(from, to string) {
	if m == nil {
		return
	}
	m.withdrawalTransitions.WithLabelValues(from, to).Inc()
}

func (m *Metrics) ObserveSession(tier string) {
	if m == nil {
		return
	}
	m.sessionResolutions.WithLabelValues(tier).Inc()
}
