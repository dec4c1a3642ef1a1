// Package metrics exposes protocol-level Prometheus instrumentation for
// both peers. This is pure ambient observability: CLI behavior is
// unchanged whether or not a scrape address is configured.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Sender holds the sender-side counters and gauges.
type Sender struct {
	registry        *prometheus.Registry
	ChunksSent      prometheus.Counter
	ChunksAcked     prometheus.Counter
	Retransmits     prometheus.Counter
	InFlightChunks  prometheus.Gauge
	DiscoveredPeers prometheus.Gauge
}

// NewSender builds a fresh registry with the sender's metric set.
func NewSender() *Sender {
	reg := prometheus.NewRegistry()
	s := &Sender{
		registry: reg,
		ChunksSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dropline", Subsystem: "sender", Name: "chunks_sent_total",
			Help: "Total DATA frames transmitted, including retransmissions.",
		}),
		ChunksAcked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dropline", Subsystem: "sender", Name: "chunks_acked_total",
			Help: "Total distinct chunk ids acknowledged.",
		}),
		Retransmits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dropline", Subsystem: "sender", Name: "retransmits_total",
			Help: "Total chunks resent because their RTO elapsed unacknowledged.",
		}),
		InFlightChunks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "dropline", Subsystem: "sender", Name: "in_flight_chunks",
			Help: "Current number of unacknowledged chunks in the sliding window.",
		}),
		DiscoveredPeers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "dropline", Subsystem: "sender", Name: "discovered_peers",
			Help: "Number of distinct receivers seen during the last discovery window.",
		}),
	}
	reg.MustRegister(s.ChunksSent, s.ChunksAcked, s.Retransmits, s.InFlightChunks, s.DiscoveredPeers)
	return s
}

// Handler returns an http.Handler serving this registry's metrics.
func (s *Sender) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}

// Receiver holds the receiver-side counters and gauges.
type Receiver struct {
	registry           *prometheus.Registry
	ChunksReceived     prometheus.Counter
	DuplicateChunks    prometheus.Counter
	AckBatchesFlushed  prometheus.Counter
	PendingAckQueueLen prometheus.Gauge
}

// NewReceiver builds a fresh registry with the receiver's metric set.
func NewReceiver() *Receiver {
	reg := prometheus.NewRegistry()
	r := &Receiver{
		registry: reg,
		ChunksReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dropline", Subsystem: "receiver", Name: "chunks_received_total",
			Help: "Total DATA frames that wrote new bytes to the output file.",
		}),
		DuplicateChunks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dropline", Subsystem: "receiver", Name: "duplicate_chunks_total",
			Help: "Total DATA frames for a chunk id already marked received.",
		}),
		AckBatchesFlushed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dropline", Subsystem: "receiver", Name: "ack_batches_flushed_total",
			Help: "Total ACK_BATCH frames emitted.",
		}),
		PendingAckQueueLen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "dropline", Subsystem: "receiver", Name: "pending_ack_queue_length",
			Help: "Current number of chunk ids queued for the next ACK_BATCH.",
		}),
	}
	reg.MustRegister(r.ChunksReceived, r.DuplicateChunks, r.AckBatchesFlushed, r.PendingAckQueueLen)
	return r
}

// Handler returns an http.Handler serving this registry's metrics.
func (r *Receiver) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Serve starts an HTTP server on addr exposing h at /metrics. It runs
// until the process exits; callers typically launch it in a goroutine.
func Serve(addr string, h http.Handler) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", h)
	return http.ListenAndServe(addr, mux)
}
