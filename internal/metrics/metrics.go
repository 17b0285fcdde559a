package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SyncOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "postsync",
		Name:      "sync_outcomes_total",
		Help:      "Outcome reports from the publishing extension by status and result.",
	}, []string{"status", "result"})

	SweepResolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "postsync",
		Name:      "sweep_resolutions_total",
		Help:      "Posts force-resolved by the reconciliation sweeper.",
	}, []string{"pass"})

	SweepErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "postsync",
		Name:      "sweep_errors_total",
		Help:      "Per-row errors during a sweep.",
	}, []string{"pass"})

	BridgeResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "postsync",
		Name:      "bridge_results_total",
		Help:      "Bridge round trips by message type and result.",
	}, []string{"type", "result"})

	NotificationDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "postsync",
		Name:      "notification_deliveries_total",
		Help:      "Notification mirror deliveries by result.",
	}, []string{"result"})
)

// Result labels.
const (
	ResultApplied     = "applied"
	ResultNoop        = "noop"
	ResultRejected    = "rejected"
	ResultError       = "error"
	ResultOK          = "ok"
	ResultTimeout     = "timeout"
	ResultUnavailable = "unavailable"
)
