package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WebhookRequestsTotal counts payment webhooks by provider, event type and outcome.
	WebhookRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chef",
		Subsystem: "billing",
		Name:      "webhook_requests_total",
		Help:      "Total payment webhook requests by provider, event type and outcome.",
	}, []string{"provider", "event_type", "outcome"})

	// WebhookDuration tracks webhook processing latency.
	WebhookDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "chef",
		Subsystem: "billing",
		Name:      "webhook_duration_seconds",
		Help:      "Payment webhook processing duration in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"provider"})

	// SubscriptionTransitionsTotal counts applied plan changes.
	SubscriptionTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chef",
		Subsystem: "billing",
		Name:      "subscription_transitions_total",
		Help:      "Subscription events applied to user records by provider and target plan.",
	}, []string{"provider", "plan"})

	// EntitlementDecisionsTotal counts generation gate decisions.
	EntitlementDecisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chef",
		Subsystem: "recipes",
		Name:      "entitlement_decisions_total",
		Help:      "Recipe generation gate decisions by plan and result.",
	}, []string{"plan", "result"})

	// RecipesGeneratedTotal counts recipe generations by outcome.
	RecipesGeneratedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chef",
		Subsystem: "recipes",
		Name:      "generated_total",
		Help:      "Recipe generations by outcome.",
	}, []string{"outcome"})

	// LLMRequestDuration tracks language model latency per prompt.
	LLMRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "chef",
		Subsystem: "llm",
		Name:      "request_duration_seconds",
		Help:      "Language model request duration in seconds.",
		Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32, 64},
	}, []string{"prompt", "outcome"})
)
