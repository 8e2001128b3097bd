package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rickgao/polywhales/internal/model"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "polywhales"

// Metrics holds all Prometheus metrics for the service. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// Sweep metrics
	SweepsTotal       *prometheus.CounterVec
	SweepDuration     prometheus.Histogram
	LastSweep         prometheus.Gauge
	WalletsTotal      *prometheus.CounterVec
	FetchAttempts     prometheus.Histogram
	WalletDuration    prometheus.Histogram
	ActivitiesTotal   prometheus.Counter
	FailedTradesTotal prometheus.Counter

	// Delivery metrics
	AlertsTotal *prometheus.CounterVec

	// Surface metrics
	HTTPRequests *prometheus.CounterVec
	BotCommands  *prometheus.CounterVec
}

// New creates a Metrics instance on a fresh registry that also carries the
// Go runtime and process collectors.
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = DefaultNamespace
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		SweepsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "runs_total",
			Help:      "Total number of sweeps by result",
		}, []string{"result"}),
		SweepDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "duration_seconds",
			Help:      "Sweep duration in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		}),
		LastSweep: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "last_completed_timestamp_seconds",
			Help:      "Unix time of the last completed sweep",
		}),
		WalletsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "wallets_total",
			Help:      "Total number of wallets swept by terminal state",
		}, []string{"state"}),
		FetchAttempts: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "fetch_attempts",
			Help:      "Trade fetch attempts per wallet",
			Buckets:   []float64{1, 2, 3, 4, 5},
		}),
		WalletDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "wallet_duration_seconds",
			Help:      "Time spent on a single wallet in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		ActivitiesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "activities_recorded_total",
			Help:      "Total number of new activities recorded",
		}),
		FailedTradesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "failed_trades_total",
			Help:      "Total number of trades that could not be persisted",
		}),

		AlertsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "alerts_total",
			Help:      "Total number of alert deliveries by result",
		}, []string{"result"}),

		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by route and status",
		}, []string{"route", "code"}),
		BotCommands: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bot",
			Name:      "commands_total",
			Help:      "Total number of bot commands handled",
		}, []string{"command"}),
	}
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// WalletFinished records one wallet's terminal state.
func (m *Metrics) WalletFinished(state string, attempts int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.WalletsTotal.WithLabelValues(state).Inc()
	m.FetchAttempts.Observe(float64(attempts))
	m.WalletDuration.Observe(elapsed.Seconds())
}

// SweepFinished records a completed sweep.
func (m *Metrics) SweepFinished(stats model.SweepStats, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.SweepsTotal.WithLabelValues("ok").Inc()
	m.SweepDuration.Observe(elapsed.Seconds())
	m.LastSweep.SetToCurrentTime()
	m.ActivitiesTotal.Add(float64(stats.NewActivities))
	m.FailedTradesTotal.Add(float64(stats.FailedTrades))
}

// SweepRejected records a sweep that did not run to completion.
func (m *Metrics) SweepRejected(reason string) {
	if m == nil {
		return
	}
	m.SweepsTotal.WithLabelValues(reason).Inc()
}

// AlertDelivered records the result of an alert fan-out.
func (m *Metrics) AlertDelivered(sent, failed int) {
	if m == nil {
		return
	}
	m.AlertsTotal.WithLabelValues("sent").Add(float64(sent))
	m.AlertsTotal.WithLabelValues("failed").Add(float64(failed))
}

// HTTPRequest counts a served request.
func (m *Metrics) HTTPRequest(route, code string) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, code).Inc()
}

// BotCommand counts a handled bot command.
func (m *Metrics) BotCommand(command string) {
	if m == nil {
		return
	}
	m.BotCommands.WithLabelValues(command).Inc()
}

// QueueStats is the view of the notification queue exported as gauges.
type QueueStats struct {
	Pending   int
	Capacity  int
	Submitted int64
	Dropped   int64
	Failed    int64
}

// RegisterQueue exports the values returned by stats on every scrape.
func (m *Metrics) RegisterQueue(namespace string, stats func() QueueStats) {
	if m == nil {
		return
	}
	if namespace == "" {
		namespace = DefaultNamespace
	}
	factory := promauto.With(m.registry)

	gauge := func(name, help string, v func(QueueStats) float64) {
		factory.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      name,
			Help:      help,
		}, func() float64 { return v(stats()) })
	}
	counter := func(name, help string, v func(QueueStats) float64) {
		factory.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      name,
			Help:      help,
		}, func() float64 { return v(stats()) })
	}

	gauge("queue_pending", "Events waiting in the notification queue",
		func(s QueueStats) float64 { return float64(s.Pending) })
	gauge("queue_capacity", "Current notification queue capacity",
		func(s QueueStats) float64 { return float64(s.Capacity) })
	counter("queue_submitted_total", "Events accepted by the notification queue",
		func(s QueueStats) float64 { return float64(s.Submitted) })
	counter("queue_dropped_total", "Events dropped because the queue was full",
		func(s QueueStats) float64 { return float64(s.Dropped) })
	counter("handler_failures_total", "Notification handler failures",
		func(s QueueStats) float64 { return float64(s.Failed) })
}
