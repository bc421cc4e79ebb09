package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Matching cycle metrics
	CyclesRun          prometheus.Counter
	CyclesSkipped      prometheus.Counter
	CycleDuration      prometheus.Histogram
	EntriesProcessed   prometheus.Counter
	EntriesMatched     prometheus.Counter
	EntriesFailed      *prometheus.CounterVec
	MatchScore         prometheus.Histogram

	// Offer metrics
	OffersCreated  prometheus.Counter
	OffersResolved *prometheus.CounterVec
	OffersExpired  prometheus.Counter
	PendingOffers  prometheus.Gauge

	// Notification metrics
	NotificationsPublished *prometheus.CounterVec
	NotificationFailures   prometheus.Counter
}

// NewMetrics creates and registers all application metrics
func NewMetrics(namespace, subsystem string) *Metrics {
	return &Metrics{
		CyclesRun: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "cycles_run_total",
			Help:      "Total number of matching cycles executed",
		}),
		CyclesSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "cycles_skipped_total",
			Help:      "Matching cycles skipped because another run held the lock",
		}),
		CycleDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "cycle_duration_seconds",
			Help:      "Time spent running a full matching cycle",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}),
		EntriesProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "entries_processed_total",
			Help:      "Waitlist entries processed across all cycles",
		}),
		EntriesMatched: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "entries_matched_total",
			Help:      "Waitlist entries with at least one proposed slot",
		}),
		EntriesFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "entries_failed_total",
			Help:      "Per-entry matching failures by error code",
		}, []string{"code"}),
		MatchScore: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "match_score",
			Help:      "Distribution of proposed match scores",
			Buckets:   []float64{.1, .2, .3, .4, .5, .6, .7, .8, .9, 1},
		}),
		OffersCreated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "offers_created_total",
			Help:      "Total offers created",
		}),
		OffersResolved: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "offers_resolved_total",
			Help:      "Offers resolved by outcome",
		}, []string{"outcome"}),
		OffersExpired: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "offers_expired_total",
			Help:      "Offers expired by the sweep",
		}),
		PendingOffers: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "pending_offers",
			Help:      "Current number of pending offers",
		}),
		NotificationsPublished: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "notifications_published_total",
			Help:      "Notification events published by type",
		}, []string{"event_type"}),
		NotificationFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "notification_failures_total",
			Help:      "Notification publishes that failed (best-effort, never blocking)",
		}),
	}
}
