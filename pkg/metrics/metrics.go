package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "teamhub"

var (
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
	AuthzDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "authz_decisions_total", Help: "Authorization decisions by outcome."},
		[]string{"outcome"},
	)
	FanoutFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "membership_fanout_failures_total", Help: "Per-member propagation failures by operation."},
		[]string{"operation"},
	)
	NotificationFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "notification_failures_total", Help: "Best-effort email deliveries that failed, by kind."},
		[]string{"kind"},
	)
	WebhookEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "billing_webhook_events_total", Help: "Billing webhook events received, by type."},
		[]string{"type"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
	reg.MustRegister(AuthzDecisions)
	reg.MustRegister(FanoutFailures)
	reg.MustRegister(NotificationFailures)
	reg.MustRegister(WebhookEvents)
}
