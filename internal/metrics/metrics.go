package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the manager's metric families.
type Collector struct {
	messagesTotal   *prometheus.CounterVec
	sendRejected    *prometheus.CounterVec
	connectAttempts prometheus.Counter
	sessions        prometheus.Counter
	staleEvents     *prometheus.CounterVec
	retryCount      prometheus.Gauge
	state           *prometheus.GaugeVec
}

// NewCollector creates the metric families and registers them on reg.
// A nil reg uses prometheus.DefaultRegisterer.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := &Collector{
		messagesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wifiapp_messages_total",
				Help: "Messages handled by the connection state machine.",
			},
			[]string{"kind"},
		),
		sendRejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wifiapp_send_rejected_total",
				Help: "Messages rejected because the event channel was full.",
			},
			[]string{"kind"},
		),
		connectAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wifiapp_connect_attempts_total",
			Help: "Station connect commands issued, including retries.",
		}),
		sessions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wifiapp_sessions_total",
			Help: "Connect sessions started from saved or portal credentials.",
		}),
		staleEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wifiapp_stale_events_total",
				Help: "Link events dropped because they belonged to a superseded session.",
			},
			[]string{"kind"},
		),
		retryCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "wifiapp_retry_count",
			Help: "Current consecutive connection failure count.",
		}),
		state: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "wifiapp_state",
				Help: "Current connection state (1 for the active state, 0 otherwise).",
			},
			[]string{"state"},
		),
	}

	reg.MustRegister(
		c.messagesTotal,
		c.sendRejected,
		c.connectAttempts,
		c.sessions,
		c.staleEvents,
		c.retryCount,
		c.state,
	)
	return c
}

// MessageHandled counts a message consumed by the state machine.
func (c *Collector) MessageHandled(kind string) {
	if c == nil {
		return
	}
	c.messagesTotal.WithLabelValues(kind).Inc()
}

// SendRejected counts a message dropped at a full channel.
func (c *Collector) SendRejected(kind string) {
	if c == nil {
		return
	}
	c.sendRejected.WithLabelValues(kind).Inc()
}

// ConnectAttempt counts a station connect command.
func (c *Collector) ConnectAttempt() {
	if c == nil {
		return
	}
	c.connectAttempts.Inc()
}

// SessionStarted counts a new connect session.
func (c *Collector) SessionStarted() {
	if c == nil {
		return
	}
	c.sessions.Inc()
}

// StaleEvent counts a link event dropped for a superseded session.
func (c *Collector) StaleEvent(kind string) {
	if c == nil {
		return
	}
	c.staleEvents.WithLabelValues(kind).Inc()
}

// SetRetries records the retry counter.
func (c *Collector) SetRetries(n int) {
	if c == nil {
		return
	}
	c.retryCount.Set(float64(n))
}

// SetState marks state as the active one. All states passed in earlier
// calls are reset to 0.
func (c *Collector) SetState(state string) {
	if c == nil {
		return
	}
	c.state.Reset()
	c.state.WithLabelValues(state).Set(1)
}

// Handler serves the metrics gathered by g in the Prometheus text format.
// A nil g serves prometheus.DefaultGatherer.
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
