package metrics

import "github.com/prometheus/client_golang/prometheus"

// Webhook outcomes recorded per notification.
const (
	WebhookOutcomeProcessed = "processed"
	WebhookOutcomeDuplicate = "duplicate"
	WebhookOutcomeIgnored   = "ignored"
	WebhookOutcomeFailed    = "failed"
	WebhookOutcomeUpstream  = "upstream_error"
	WebhookOutcomeRejected  = "rejected"
)

// WebhookMetrics counts provider notifications and subscription activations.
type WebhookMetrics struct {
	notifications *prometheus.CounterVec
	activations   *prometheus.CounterVec
}

// NewWebhookMetrics registers the webhook metrics on the provided registerer.
func NewWebhookMetrics(reg prometheus.Registerer) *WebhookMetrics {
	if reg == nil {
		return &WebhookMetrics{}
	}
	notifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "webhook",
		Name:      "notifications_total",
		Help:      "Payment provider notifications by outcome.",
	}, []string{"provider", "outcome"})
	activations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "webhook",
		Name:      "subscription_activations_total",
		Help:      "Subscriptions activated from approved payments.",
	}, []string{"provider", "billing"})
	reg.MustRegister(notifications, activations)
	return &WebhookMetrics{
		notifications: notifications,
		activations:   activations,
	}
}

// IncNotification records the outcome of one notification.
func (w *WebhookMetrics) IncNotification(provider, outcome string) {
	if w == nil || w.notifications == nil {
		return
	}
	w.notifications.WithLabelValues(normalizeLabel(provider), normalizeLabel(outcome)).Inc()
}

// IncActivation records a subscription activated by an approved payment.
func (w *WebhookMetrics) IncActivation(provider, billing string) {
	if w == nil || w.activations == nil {
		return
	}
	w.activations.WithLabelValues(normalizeLabel(provider), normalizeLabel(billing)).Inc()
}
