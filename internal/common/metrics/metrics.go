package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Trigger labels.
const (
	TriggerHTTP         = "http"
	TriggerJob          = "job"
	TriggerPresence     = "presence"
	TriggerUsername     = "username"
	TriggerVerification = "verification"
)

var (
	MembershipSyncs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "membership_sync_total",
			Help: "Reconciliations by trigger and outcome",
		},
		[]string{"trigger", "outcome"},
	)

	MembershipSyncDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "membership_sync_duration_seconds",
			Help:    "Duration of a reconciliation in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"trigger"},
	)

	MembershipEventsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "membership_events_active",
			Help: "Reconciliations currently in flight",
		},
		[]string{"trigger"},
	)

	ExternalRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "external_requests_total",
			Help: "Outbound REST calls by service, operation and status",
		},
		[]string{"service", "operation", "status"},
	)

	ExternalRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "external_request_duration_seconds",
			Help:    "Outbound REST call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "operation"},
	)

	DiscordRoleUpdates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "discord_role_updates_total",
			Help: "Guild member role mutations by result",
		},
		[]string{"result"},
	)

	PendingLinksFlagged = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pending_links_flagged_total",
			Help: "Verifications that linked a subscription but failed to assign a role",
		},
	)
)
