package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Event metrics
	EventsEmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fsevents_events_emitted_total",
			Help: "Total number of file events emitted by type",
		},
		[]string{"type"},
	)

	// Subscription metrics
	ActiveSubscriptions = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fsevents_active_subscriptions",
			Help: "Number of active subscriptions by type",
		},
		[]string{"type"},
	)

	SubscriptionsRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fsevents_subscriptions_rejected_total",
			Help: "Subscriptions and cancellations rejected, by reason",
		},
		[]string{"reason"},
	)

	// Flush metrics
	Flushes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fsevents_flushes_total",
			Help: "Total number of aggregated flushes by subscription type and trigger",
		},
		[]string{"type", "trigger"},
	)

	FlushesDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fsevents_flushes_dropped_total",
			Help: "Flushes dropped because the dispatch buffer was full",
		},
	)

	FlushSendDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fsevents_flush_send_duration_seconds",
			Help:    "Time taken to deliver a flush to the provider, retries included",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Transport metrics
	SendFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fsevents_send_failures_total",
			Help: "Flushes that could not be delivered after all retries",
		},
	)

	MalformedMessages = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fsevents_malformed_messages_total",
			Help: "Provider messages dropped because they could not be decoded",
		},
	)

	JournalFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fsevents_journal_failures_total",
			Help: "Flushes that could not be written to the journal",
		},
	)

	RemoteEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fsevents_remote_events_total",
			Help: "Events pushed by the provider to the client",
		},
		[]string{"type"},
	)
)

func init() {
	prometheus.MustRegister(EventsEmitted)
	prometheus.MustRegister(ActiveSubscriptions)
	prometheus.MustRegister(SubscriptionsRejected)
	prometheus.MustRegister(Flushes)
	prometheus.MustRegister(FlushesDropped)
	prometheus.MustRegister(FlushSendDuration)
	prometheus.MustRegister(SendFailures)
	prometheus.MustRegister(MalformedMessages)
	prometheus.MustRegister(JournalFailures)
	prometheus.MustRegister(RemoteEvents)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer measures an operation for a histogram.
type Timer struct {
	start time.Time
}

// NewTimer starts a timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the elapsed time in h.
func (t *Timer) ObserveDuration(h prometheus.Observer) {
	h.Observe(time.Since(t.start).Seconds())
}
