package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for spot
// ingestion, queries, and delivery.
type Metrics struct {
	// Ingestion, labelled by program.
	RecordsFetched  *prometheus.CounterVec
	SpotsStored     *prometheus.CounterVec
	SpotsSuppressed *prometheus.CounterVec
	SpotsDropped    *prometheus.CounterVec // labels: program, reason={no_spotter,bad_id,bad_time}
	PollErrors      *prometheus.CounterVec // labels: program, stage={fetch,store}
	PollDuration    *prometheus.HistogramVec
	Cursor          *prometheus.GaugeVec
	SpotsPruned     *prometheus.CounterVec

	// Delivery, labelled by channel.
	Notifications *prometheus.CounterVec // labels: channel, outcome={success,error}

	RefLookups  *prometheus.CounterVec // labels: result={hit,miss,error}
	Commands    *prometheus.CounterVec // labels: kind={spots,log,stat}
	QueueLength prometheus.Gauge
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.RecordsFetched,
		m.SpotsStored,
		m.SpotsSuppressed,
		m.SpotsDropped,
		m.PollErrors,
		m.PollDuration,
		m.Cursor,
		m.SpotsPruned,
		m.Notifications,
		m.RefLookups,
		m.Commands,
		m.QueueLength,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		RecordsFetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "spotd",
			Name:      "records_fetched_total",
			Help:      "Feed records newer than the cursor.",
		}, []string{"program"}),
		SpotsStored: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "spotd",
			Name:      "spots_stored_total",
			Help:      "Spots written to the store, posted or not.",
		}, []string{"program"}),
		SpotsSuppressed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "spotd",
			Name:      "spots_suppressed_total",
			Help:      "Spots stored as duplicates inside the suppression window.",
		}, []string{"program"}),
		SpotsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "spotd",
			Name:      "spots_dropped_total",
			Help:      "Feed records discarded before storage.",
		}, []string{"program", "reason"}),
		PollErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "spotd",
			Name:      "poll_errors_total",
			Help:      "Aborted polls by failing stage.",
		}, []string{"program", "stage"}),
		PollDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "spotd",
			Name:      "poll_duration_seconds",
			Help:      "Duration of a complete fetch-normalize-store cycle.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"program"}),
		Cursor: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "spotd",
			Name:      "cursor_id",
			Help:      "Highest upstream spot id processed.",
		}, []string{"program"}),
		SpotsPruned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "spotd",
			Name:      "spots_pruned_total",
			Help:      "Rows removed by the retention window.",
		}, []string{"program"}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "spotd",
			Name:      "notifications_total",
			Help:      "Messages handed to notification channels by outcome.",
		}, []string{"channel", "outcome"}),
		RefLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "spotd",
			Name:      "ref_lookups_total",
			Help:      "Reference name lookups by cache result.",
		}, []string{"result"}),
		Commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "spotd",
			Name:      "commands_total",
			Help:      "Interpreted commands by query kind.",
		}, []string{"kind"}),
		QueueLength: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "spotd",
			Name:      "queue_length",
			Help:      "Jobs waiting in the serialized work queue.",
		}),
	}
}
