// Package metrics exposes blindftp's Prometheus counters and gauges,
// wired from the reassembly, heartbeat, and sender packages via their
// respective Hooks structs rather than those packages importing
// Prometheus directly.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "blindftp"

// Registry bundles every metric blindftp exports, registered against a
// private prometheus.Registry so a single process can run both a sender
// and a receiver without colliding metric names.
type Registry struct {
	reg *prometheus.Registry

	PacketsSent     prometheus.Counter
	BytesSent       prometheus.Counter
	PacketsReceived prometheus.Counter
	BytesReceived   prometheus.Counter
	DecodeErrors    prometheus.Counter

	FilesPublished     prometheus.Counter
	FilesSuperseded    prometheus.Counter
	FilesSkipped       prometheus.Counter
	IntegrityFailures  prometheus.Counter
	PublishFailures    prometheus.Counter
	BytesPublished     prometheus.Counter

	HeartbeatsObserved prometheus.Counter
	HeartbeatsLost     prometheus.Counter
	HeartbeatSessionID prometheus.Gauge

	FilesInSync      prometheus.Gauge
	RedundancyPasses prometheus.Counter
}

// New builds and registers every metric. Call Handler to expose them.
func New() *Registry {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Registry{
		reg: reg,

		PacketsSent: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "packets_sent_total", Help: "Datagrams transmitted.",
		}),
		BytesSent: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "bytes_sent_total", Help: "Payload bytes transmitted.",
		}),
		PacketsReceived: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "packets_received_total", Help: "Datagrams received.",
		}),
		BytesReceived: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "bytes_received_total", Help: "Payload bytes received.",
		}),
		DecodeErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "decode_errors_total", Help: "Datagrams dropped for failing decode-time validation.",
		}),

		FilesPublished: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "files_published_total", Help: "Files committed to the destination tree.",
		}),
		FilesSuperseded: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "files_superseded_total", Help: "In-flight reassembly records discarded for a metadata change.",
		}),
		FilesSkipped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "files_skipped_total", Help: "Chunks ignored because the destination already matched.",
		}),
		IntegrityFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "integrity_failures_total", Help: "Publishes rejected for a size or CRC32 mismatch.",
		}),
		PublishFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "publish_failures_total", Help: "Asynchronous publishes that failed for a reason other than integrity mismatch.",
		}),
		BytesPublished: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "bytes_published_total", Help: "Bytes committed to the destination tree.",
		}),

		HeartbeatsObserved: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "heartbeats_observed_total", Help: "Heartbeat datagrams observed.",
		}),
		HeartbeatsLost: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "heartbeats_lost_total", Help: "Heartbeat sequence gaps detected.",
		}),
		HeartbeatSessionID: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "heartbeat_session_id", Help: "Most recently observed heartbeat session id.",
		}),

		FilesInSync: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "files_in_sync", Help: "Files currently tracked in the reference tree.",
		}),
		RedundancyPasses: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "redundancy_passes_total", Help: "Synchronization passes completed.",
		}),
	}
}
