package widget

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for registry activity.
// All collectors are safe for concurrent use, so recording them from the
// event loop never needs coordination.
type Metrics struct {
	// Entries tracks the number of live registry entries.
	Entries prometheus.Gauge

	// Broadcasts counts value broadcasts applied.
	Broadcasts prometheus.Counter

	// DroppedBroadcasts counts broadcasts dropped for missing entries.
	DroppedBroadcasts prometheus.Counter

	// Messages counts out-of-band kernel messages delivered.
	Messages prometheus.Counter

	// DroppedMessages counts kernel messages dropped for missing entries.
	DroppedMessages prometheus.Counter

	// Purged counts entries removed by owner purges.
	Purged prometheus.Counter
}

// NewMetrics registers and returns registry metrics on the given registerer.
// Pass prometheus.DefaultRegisterer for production or a fresh
// prometheus.NewRegistry() in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		Entries: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace: "inkwell",
			Subsystem: "widget",
			Name:      "registry_entries",
			Help:      "Number of live widget registry entries.",
		}),
		Broadcasts: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "inkwell",
			Subsystem: "widget",
			Name:      "broadcasts_total",
			Help:      "Value broadcasts applied to the registry.",
		}),
		DroppedBroadcasts: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "inkwell",
			Subsystem: "widget",
			Name:      "broadcasts_dropped_total",
			Help:      "Broadcasts dropped because no entry existed.",
		}),
		Messages: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "inkwell",
			Subsystem: "widget",
			Name:      "messages_total",
			Help:      "Out-of-band kernel messages delivered to members.",
		}),
		DroppedMessages: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "inkwell",
			Subsystem: "widget",
			Name:      "messages_dropped_total",
			Help:      "Kernel messages dropped because no entry existed.",
		}),
		Purged: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "inkwell",
			Subsystem: "widget",
			Name:      "entries_purged_total",
			Help:      "Registry entries removed by owner purges.",
		}),
	}
}
