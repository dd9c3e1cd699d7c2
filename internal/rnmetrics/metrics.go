// Package rnmetrics collects Prometheus telemetry for a Server or Client:
// bytes moved, retransmissions, out-of-range acks, active connections and
// round-trip latency. It generalizes the teacher repository's per-transfer
// TransferMetrics/ServerMetrics counters to the per-connector transport
// counters this core needs.
package rnmetrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collectors bundles every metric this package exposes, registered against
// a caller-supplied prometheus.Registerer so multiple Nodes in one process
// (or tests) don't collide on the default global registry.
type Collectors struct {
	BytesSentCounter     prometheus.Counter
	BytesReceivedCounter prometheus.Counter
	PacketsRetransmitted prometheus.Counter
	AcksOutOfRangeTotal  prometheus.Counter
	ActiveConnections    prometheus.Gauge
	RoundTripLatency     prometheus.Histogram
}

// New creates and registers a fresh Collectors set under the given role
// label ("server" or "client"), so a process running both doesn't alias
// their series.
func New(reg prometheus.Registerer, role string) *Collectors {
	labels := prometheus.Labels{"role": role}

	c := &Collectors{
		BytesSentCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "rnet_bytes_sent_total",
			Help:        "Total bytes written to the socket or loopback bridge.",
			ConstLabels: labels,
		}),
		BytesReceivedCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "rnet_bytes_received_total",
			Help:        "Total bytes read from the socket or loopback bridge.",
			ConstLabels: labels,
		}),
		PacketsRetransmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "rnet_packets_retransmitted_total",
			Help:        "Total packets resent because they were not acknowledged in time.",
			ConstLabels: labels,
		}),
		AcksOutOfRangeTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "rnet_acks_out_of_range_total",
			Help:        "Acks received for an ordinal past the tail of the send buffer.",
			ConstLabels: labels,
		}),
		ActiveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "rnet_active_connections",
			Help:        "Connectors currently in the Connected state.",
			ConstLabels: labels,
		}),
		RoundTripLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "rnet_round_trip_latency_seconds",
			Help:        "Strongly-acknowledged packet round-trip time.",
			ConstLabels: labels,
			Buckets:     prometheus.ExponentialBuckets(0.001, 2, 14),
		}),
	}

	reg.MustRegister(
		c.BytesSentCounter,
		c.BytesReceivedCounter,
		c.PacketsRetransmitted,
		c.AcksOutOfRangeTotal,
		c.ActiveConnections,
		c.RoundTripLatency,
	)

	return c
}

// The following methods let *Collectors satisfy rnconnector.Telemetry
// without rnconnector importing this package.

func (c *Collectors) AckOutOfRange() { c.AcksOutOfRangeTotal.Inc() }

func (c *Collectors) BytesSent(n int) { c.BytesSentCounter.Add(float64(n)) }

func (c *Collectors) BytesReceived(n int) { c.BytesReceivedCounter.Add(float64(n)) }

func (c *Collectors) PacketRetransmitted() { c.PacketsRetransmitted.Inc() }

func (c *Collectors) RoundTripSample(d time.Duration) { c.RoundTripLatency.Observe(d.Seconds()) }

// ConnectionOpened and ConnectionClosed track the active-connections gauge.
// Neither is part of the Telemetry interface the Connector holds: a
// connector only ever transitions through a Node (Server/Client), which
// already observes Connected/Disconnected events, so the Node calls these
// directly instead of routing them through the Connector.
func (c *Collectors) ConnectionOpened() { c.ActiveConnections.Inc() }

func (c *Collectors) ConnectionClosed() { c.ActiveConnections.Dec() }
