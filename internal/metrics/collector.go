package metrics

import (
	"net/http"
	"strconv"

	"floodsim/internal/dataType"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "floodsim"

// Collector exports per-run flooding metrics. All methods are no-ops on a nil
// Collector so nodes can be built without one.
type Collector struct {
	Registry *prometheus.Registry

	packets *prometheus.CounterVec
	hops    *prometheus.HistogramVec
	latency *prometheus.HistogramVec
	quality *prometheus.GaugeVec
}

// NewCollector builds a collector on its own registry. runID is attached to
// every series as a constant label.
func NewCollector(runID string) *Collector {
	constLabels := prometheus.Labels{"run": runID}
	c := &Collector{
		Registry: prometheus.NewRegistry(),
		packets: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   namespace,
				Name:        "packets_received_total",
				Help:        "Packets received, by node, role, traffic class and uniqueness.",
				ConstLabels: constLabels,
			},
			[]string{"node", "role", "class", "kind"},
		),
		hops: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace:   namespace,
				Name:        "hop_count",
				Help:        "Relay hops of uniquely received packets.",
				ConstLabels: constLabels,
				Buckets:     prometheus.LinearBuckets(0, 1, 12),
			},
			[]string{"role", "class"},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace:   namespace,
				Name:        "propagation_latency_seconds",
				Help:        "Simulated seconds from creation to first receipt.",
				ConstLabels: constLabels,
				// 10ms .. ~20s
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
			},
			[]string{"role", "class"},
		),
		quality: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace:   namespace,
				Name:        "neighbor_quality",
				Help:        "Current quality score of a neighbor as seen by a node.",
				ConstLabels: constLabels,
			},
			[]string{"node", "port"},
		),
	}
	c.Registry.MustRegister(c.packets, c.hops, c.latency, c.quality)
	return c
}

func (c *Collector) ObservePacket(node, role string, class dataType.Class, unique bool) {
	if c == nil {
		return
	}
	kind := "duplicate"
	if unique {
		kind = "unique"
	}
	c.packets.WithLabelValues(node, role, string(class), kind).Inc()
}

func (c *Collector) ObserveHops(role string, class dataType.Class, hops int) {
	if c == nil {
		return
	}
	c.hops.WithLabelValues(role, string(class)).Observe(float64(hops))
}

func (c *Collector) ObserveLatency(role string, class dataType.Class, seconds float64) {
	if c == nil {
		return
	}
	c.latency.WithLabelValues(role, string(class)).Observe(seconds)
}

func (c *Collector) SetQuality(node string, port dataType.Port, quality int) {
	if c == nil {
		return
	}
	c.quality.WithLabelValues(node, strconv.Itoa(int(port))).Set(float64(quality))
}

// DeleteQuality drops the quality series of a neighbor that went away.
func (c *Collector) DeleteQuality(node string, port dataType.Port) {
	if c == nil {
		return
	}
	c.quality.DeleteLabelValues(node, strconv.Itoa(int(port)))
}

// Handler exposes the registry. Mount it with mux.Handle("/metrics", c.Handler()).
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.Registry, promhttp.HandlerOpts{})
}
