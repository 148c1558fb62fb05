package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "fastlogin"

// Collector holds the login flow metrics on its own registry.
type Collector struct {
	registry *prometheus.Registry

	decisions         *prometheus.CounterVec
	pendingRejections prometheus.Counter
	rateLimitDenied   prometheus.Counter
	resolverLookups   *prometheus.CounterVec
	staleResults      prometheus.Counter
	flowsInFlight     prometheus.Gauge
	flowDuration      prometheus.Histogram
}

func NewCollector() *Collector {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &Collector{
		registry: registry,
		decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "login_decisions_total",
			Help:      "Login flows by decision",
		}, []string{"decision"}),
		pendingRejections: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pending_rejections_total",
			Help:      "Login attempts rejected because the same name was already pending",
		}),
		rateLimitDenied: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ratelimit_denied_total",
			Help:      "Identity lookups skipped by the rate limiter",
		}),
		resolverLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolver_lookups_total",
			Help:      "Identity lookups by outcome",
		}, []string{"outcome"}),
		staleResults: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_results_total",
			Help:      "Identity lookups discarded because their pending entry expired",
		}),
		flowsInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "login_flows_in_flight",
			Help:      "Login flows currently running",
		}),
		flowDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "login_flow_seconds",
			Help:      "Duration of login flows in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

func (c *Collector) Decision(decision string) {
	c.decisions.WithLabelValues(decision).Inc()
}

func (c *Collector) PendingRejected() {
	c.pendingRejections.Inc()
}

func (c *Collector) RateLimitDenied() {
	c.rateLimitDenied.Inc()
}

func (c *Collector) ResolverLookup(outcome string) {
	c.resolverLookups.WithLabelValues(outcome).Inc()
}

func (c *Collector) StaleResult() {
	c.staleResults.Inc()
}

// StartFlow marks a flow as running. The returned func ends it and records its duration.
func (c *Collector) StartFlow() func() {
	start := time.Now()
	c.flowsInFlight.Inc()
	return func() {
		c.flowsInFlight.Dec()
		c.flowDuration.Observe(time.Since(start).Seconds())
	}
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler exposes the collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
