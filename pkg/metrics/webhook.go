package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// WebhookMetrics tracks payment notification processing by outcome. The
// outcome label distinguishes confirmations, duplicates, and the failure
// reasons so operators can spot a misconfigured provider quickly.
type WebhookMetrics struct {
	received *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewWebhookMetrics registers the webhook metrics on the provided registerer.
func NewWebhookMetrics(reg prometheus.Registerer) *WebhookMetrics {
	if reg == nil {
		return &WebhookMetrics{}
	}
	received := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_webhook_total",
		Help: "Payment webhooks processed, by outcome.",
	}, []string{"outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "payment_webhook_duration_seconds",
		Help:    "Time spent reconciling a payment webhook.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	reg.MustRegister(received, duration)
	return &WebhookMetrics{received: received, duration: duration}
}

// Observe records one processed webhook with its outcome and latency.
func (w *WebhookMetrics) Observe(outcome string, duration time.Duration) {
	if w == nil || w.received == nil {
		return
	}
	label := normalizeLabel(outcome)
	w.received.WithLabelValues(label).Inc()
	w.duration.WithLabelValues(label).Observe(duration.Seconds())
}
