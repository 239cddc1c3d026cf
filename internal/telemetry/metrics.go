// Package telemetry exposes the bot's Prometheus metrics, the gateway
// latency sampler and the metrics/health HTTP endpoint.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// OnlineState is the value of the state label on bot_online_state.
type OnlineState string

const (
	StateStarting OnlineState = "starting"
	StateOnline   OnlineState = "online"
	StateOffline  OnlineState = "offline"
	StateStopping OnlineState = "stopping"
	StateStopped  OnlineState = "stopped"
)

var onlineStates = []OnlineState{StateStarting, StateOnline, StateOffline, StateStopping, StateStopped}

// Metrics holds every collector the bot exports.
type Metrics struct {
	onlineState    *prometheus.GaugeVec
	dbConnected    prometheus.Gauge
	commands       *prometheus.CounterVec
	inFlight       prometheus.Gauge
	processTime    prometheus.Histogram
	latency        prometheus.Gauge
	effectFailures *prometheus.CounterVec
}

// NewMetrics registers the collectors on reg. Pass
// prometheus.DefaultRegisterer in production and a fresh registry in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		onlineState: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "bot_online_state",
			Help: "Connection state of the bot (1 for the current state)",
		}, []string{"state"}),
		dbConnected: f.NewGauge(prometheus.GaugeOpts{
			Name: "bot_main_database_connected",
			Help: "Whether the record store is open and in use",
		}),
		commands: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bot_command_count",
			Help: "Number of handled chat commands",
		}, []string{"command"}),
		inFlight: f.NewGauge(prometheus.GaugeOpts{
			Name: "bot_commands_in_flight",
			Help: "Commands currently being handled",
		}),
		processTime: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "bot_process_time",
			Help:    "Time spent handling a command in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		latency: f.NewGauge(prometheus.GaugeOpts{
			Name: "bot_latency_gauge",
			Help: "Gateway heartbeat latency in seconds",
		}),
		effectFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bot_role_effect_failures_total",
			Help: "Role grants and revokes that failed after commit",
		}, []string{"kind"}),
	}
}

// SetOnlineState marks state as current and clears the others.
func (m *Metrics) SetOnlineState(state OnlineState) {
	for _, s := range onlineStates {
		v := 0.0
		if s == state {
			v = 1
		}
		m.onlineState.WithLabelValues(string(s)).Set(v)
	}
}

// SetDatabaseConnected sets bot_main_database_connected.
func (m *Metrics) SetDatabaseConnected(ok bool) {
	if ok {
		m.dbConnected.Set(1)
		return
	}
	m.dbConnected.Set(0)
}

// TrackCommand counts a command and returns a func that records its
// duration when the command finishes.
func (m *Metrics) TrackCommand(command string) func() {
	start := time.Now()
	m.commands.WithLabelValues(command).Inc()
	m.inFlight.Inc()
	return func() {
		m.inFlight.Dec()
		m.processTime.Observe(time.Since(start).Seconds())
	}
}

// SetLatency records the current gateway latency.
func (m *Metrics) SetLatency(d time.Duration) {
	m.latency.Set(d.Seconds())
}

// RecordEffectFailure counts a role effect that failed.
func (m *Metrics) RecordEffectFailure(kind string) {
	m.effectFailures.WithLabelValues(kind).Inc()
}
