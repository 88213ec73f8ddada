package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome classifies one fetch
type Outcome string

const (
	OutcomeOK       Outcome = "ok"       // mapped without issues
	OutcomeDegraded Outcome = "degraded" // mapped, some fields fell back to defaults
	OutcomeEmpty    Outcome = "empty"    // stream ended before the first message
	OutcomeError    Outcome = "error"    // call failed, caller got the default value
)

// Collector holds the feed metrics. A nil *Collector discards everything.
type Collector struct {
	connectAttempts *prometheus.CounterVec
	connected       *prometheus.GaugeVec
	fetches         *prometheus.CounterVec
	fetchDuration   *prometheus.HistogramVec
}

// New creates a collector and registers it with reg when reg is not nil
func New(reg prometheus.Registerer) *Collector {
	c := &Collector{
		connectAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chainfeed",
			Name:      "connect_attempts_total",
			Help:      "Connection attempts per service and result.",
		}, []string{"service", "result"}),
		connected: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "chainfeed",
			Name:      "connected",
			Help:      "1 when a client handle is published for the service.",
		}, []string{"service"}),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chainfeed",
			Name:      "fetches_total",
			Help:      "Accessor calls per service, method and outcome.",
		}, []string{"service", "method", "outcome"}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "chainfeed",
			Name:      "fetch_duration_seconds",
			Help:      "Accessor call latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"service", "method"}),
	}

	if reg != nil {
		reg.MustRegister(c.connectAttempts, c.connected, c.fetches, c.fetchDuration)
	}
	return c
}

// ConnectAttempt counts one connect attempt
func (c *Collector) ConnectAttempt(service string, err error) {
	if c == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	c.connectAttempts.WithLabelValues(service, result).Inc()
}

// SetConnected records whether a handle is published
func (c *Collector) SetConnected(service string, connected bool) {
	if c == nil {
		return
	}
	v := 0.0
	if connected {
		v = 1
	}
	c.connected.WithLabelValues(service).Set(v)
}

// ObserveFetch records one accessor call
func (c *Collector) ObserveFetch(service, method string, outcome Outcome, d time.Duration) {
	if c == nil {
		return
	}
	c.fetches.WithLabelValues(service, method, string(outcome)).Inc()
	c.fetchDuration.WithLabelValues(service, method).Observe(d.Seconds())
}

// Fetches exposes the fetch counter vector
func (c *Collector) Fetches() *prometheus.CounterVec { return c.fetches }

// ConnectAttempts exposes the connect attempt counter vector
func (c *Collector) ConnectAttempts() *prometheus.CounterVec { return c.connectAttempts }

// Connected exposes the connection gauge vector
func (c *Collector) Connected() *prometheus.GaugeVec { return c.connected }

// Handler exposes the metrics gathered by g
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
