package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	JoinAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hearth_session_join_attempts_total",
		Help: "Join attempts by outcome (success, degraded, cooldown, concurrent, timeout, failure).",
	}, []string{"outcome"})

	CatalogRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hearth_catalog_refreshes_total",
		Help: "Catalog refreshes by outcome (success, throttled, fallback).",
	}, []string{"outcome"})

	FeedResubscribes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hearth_changefeed_resubscribes_total",
		Help: "Change feed resubscriptions after a closed or errored subscription.",
	})

	ModerationActions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hearth_moderation_actions_total",
		Help: "Moderation actions by type (approve, reject, block, unblock, request).",
	}, []string{"action"})

	NotificationsEvicted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hearth_notifications_evicted_total",
		Help: "Notifications dropped by TTL expiry or capacity overflow.",
	})

	ConnectionStatus = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hearth_voice_connection_status",
		Help: "Local audio link state (0 disconnected, 1 connecting, 2 connected, 3 disconnecting).",
	})
)
