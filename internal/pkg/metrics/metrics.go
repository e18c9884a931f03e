// Package metrics defines and registers all custom Prometheus metrics for the
// billing service. It is the single source of truth for metric names, labels,
// and help strings.
//
// Metrics are registered with the default Prometheus registry on package
// initialisation through promauto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "billing"

// ── Payment metrics ───────────────────────────────────────────────────────────

// PaymentsTotal counts payments appended to the ledger.
// Label:
//   - course_type: "rent" or "buy"
var PaymentsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "payments_total",
		Help:      "Total number of course payments committed to the ledger.",
	},
	[]string{"course_type"},
)

// PaymentRejectionsTotal counts payments refused by the access rules.
// Label:
//   - reason: the decision code (e.g. "insufficient_balance", "already_rented")
var PaymentRejectionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "payment_rejections_total",
		Help:      "Total number of payments rejected by the access rules.",
	},
	[]string{"reason"},
)

// PaymentFailuresTotal counts payments and deposits rolled back on storage errors.
var PaymentFailuresTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "payment_failures_total",
		Help:      "Total number of ledger writes rolled back because of a storage failure.",
	},
	[]string{"operation"},
)

// DepositsTotal counts deposits appended to the ledger.
var DepositsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "deposits_total",
		Help:      "Total number of deposits committed to the ledger.",
	},
)

// PaymentDuration measures a locked unit of work end-to-end.
// Label:
//   - operation: "pay" or "deposit"
var PaymentDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "ledger_write_duration_seconds",
		Help:      "Duration of a ledger unit of work including lock wait.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"operation"},
)

// IdempotentReplaysTotal counts payment requests answered from the idempotency store.
var IdempotentReplaysTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "idempotent_replays_total",
		Help:      "Total number of payment requests replayed by Idempotency-Key.",
	},
)

// ── Notification metrics ──────────────────────────────────────────────────────

// NotificationsTotal counts delivery attempts.
// Label:
//   - result: "sent", "failed" or "dropped"
var NotificationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_total",
		Help:      "Total number of notification delivery attempts, by result.",
	},
	[]string{"result"},
)

// NotificationQueueDepth tracks pending messages in each dispatcher worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var NotificationQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "notification_queue_depth",
		Help:      "Current number of notifications pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)
