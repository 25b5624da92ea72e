// Package observability provides Prometheus metrics for the launchpad services.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const defaultNamespace = "launchpad"

// Metrics holds the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// Polling
	PollCycles   *prometheus.CounterVec
	PollDuration *prometheus.HistogramVec

	// Trade tracking
	TradesDecoded   *prometheus.CounterVec
	TradesMalformed prometheus.Counter
	TradesStored    prometheus.Counter
	TrackedHead     *prometheus.GaugeVec
	RPCCallLatency  *prometheus.HistogramVec

	// Metadata API
	HTTPRequests     *prometheus.CounterVec
	HTTPDuration     *prometheus.HistogramVec
	ImageBytesStored prometheus.Counter
}

// NewMetrics registers all collectors on a fresh registry.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = defaultNamespace
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		PollCycles: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "poller",
			Name:      "cycles_total",
			Help:      "Polling cycles by task and result",
		}, []string{"task", "result"}),
		PollDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "poller",
			Name:      "cycle_duration_seconds",
			Help:      "Duration of a polling cycle",
			Buckets:   prometheus.DefBuckets,
		}, []string{"task"}),

		TradesDecoded: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trades",
			Name:      "decoded_total",
			Help:      "Trade logs decoded by kind",
		}, []string{"kind"}),
		TradesMalformed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trades",
			Name:      "malformed_total",
			Help:      "Logs that matched a trade signature but failed to decode",
		}),
		TradesStored: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trades",
			Name:      "stored_total",
			Help:      "New trades forwarded to the sink",
		}),
		TrackedHead: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "trades",
			Name:      "head_block",
			Help:      "Latest block seen by each tracked pool",
		}, []string{"pool"}),
		RPCCallLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "rpc_latency_seconds",
			Help:      "Latency of chain RPC calls",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"method"}),

		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Metadata API requests by route and status",
		}, []string{"route", "method", "status"}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Metadata API latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		ImageBytesStored: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "metadata",
			Name:      "image_bytes_stored_total",
			Help:      "Bytes of token images accepted",
		}),
	}
}

// Handler serves this instance's registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) RecordPoll(task string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.PollCycles.WithLabelValues(task, result).Inc()
	m.PollDuration.WithLabelValues(task).Observe(elapsed.Seconds())
}

func (m *Metrics) RecordTrades(kind string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.TradesDecoded.WithLabelValues(kind).Add(float64(n))
}

func (m *Metrics) RecordMalformed() {
	if m == nil {
		return
	}
	m.TradesMalformed.Inc()
}

func (m *Metrics) RecordStored(n int) {
	if m == nil || n == 0 {
		return
	}
	m.TradesStored.Add(float64(n))
}

func (m *Metrics) SetHead(pool string, block uint64) {
	if m == nil {
		return
	}
	m.TrackedHead.WithLabelValues(pool).Set(float64(block))
}

func (m *Metrics) RecordRPC(method string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.RPCCallLatency.WithLabelValues(method).Observe(elapsed.Seconds())
}

func (m *Metrics) RecordHTTP(route, method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

func (m *Metrics) RecordImage(size int) {
	if m == nil {
		return
	}
	m.ImageBytesStored.Add(float64(size))
}
