// Package metrics registers the Prometheus collectors for the KV/pub-sub
// server (C9), the same promauto shape as
// go-server/internal/metrics/metrics.go and go-server-3/internal/metrics/metrics.go.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every collector the server updates as it accepts
// connections, opens streams, reads/writes frames, and dispatches ops.
type Registry struct {
	ConnectionsAccepted prometheus.Counter
	ConnectionsActive   prometheus.Gauge
	StreamsActive       prometheus.Gauge

	FrameBytesIn        prometheus.Counter
	FrameBytesOut       prometheus.Counter
	FrameCompressedHits prometheus.Counter

	OpsTotal   *prometheus.CounterVec
	OpDuration *prometheus.HistogramVec

	SubscriptionsActive prometheus.Gauge
	TopicsActive        prometheus.Gauge
	BroadcastQueueDepth prometheus.Gauge
	BroadcastDropped    prometheus.Counter

	GoroutineCount prometheus.Gauge
	HeapAllocBytes prometheus.Gauge
	CPUPercent     prometheus.Gauge
}

func NewRegistry() *Registry {
	return &Registry{
		ConnectionsAccepted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "odinkv_connections_accepted_total",
			Help: "Total number of accepted TCP connections",
		}),
		ConnectionsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "odinkv_connections_active",
			Help: "Number of currently active TCP connections",
		}),
		StreamsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "odinkv_streams_active",
			Help: "Number of currently active multiplexed streams",
		}),
		FrameBytesIn: promauto.NewCounter(prometheus.CounterOpts{
			Name: "odinkv_frame_bytes_in_total",
			Help: "Total bytes read across all frame payloads",
		}),
		FrameBytesOut: promauto.NewCounter(prometheus.CounterOpts{
			Name: "odinkv_frame_bytes_out_total",
			Help: "Total bytes written across all frame payloads",
		}),
		FrameCompressedHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "odinkv_frame_compressed_total",
			Help: "Total number of frames written with the compression bit set",
		}),
		OpsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "odinkv_ops_total",
			Help: "Total number of KV/pub-sub operations dispatched, by kind",
		}, []string{"op"}),
		OpDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "odinkv_op_duration_seconds",
			Help:    "Dispatch latency by operation kind",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
		SubscriptionsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "odinkv_subscriptions_active",
			Help: "Number of currently active pub/sub subscriptions",
		}),
		TopicsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "odinkv_topics_active",
			Help: "Number of currently active pub/sub topics",
		}),
		BroadcastQueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "odinkv_broadcast_queue_depth",
			Help: "Aggregate pending frames across all subscription delivery queues",
		}),
		BroadcastDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "odinkv_broadcast_dropped_total",
			Help: "Total number of publishes that found no subscribers for their topic",
		}),
		GoroutineCount: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "odinkv_goroutines",
			Help: "Current number of goroutines",
		}),
		HeapAllocBytes: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "odinkv_heap_alloc_bytes",
			Help: "Current heap allocation in bytes",
		}),
		CPUPercent: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "odinkv_cpu_percent",
			Help: "Smoothed system-wide CPU usage percentage",
		}),
	}
}

// Handler exposes the registry in Prometheus text exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.Handler()
}
