package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is the portal's Prometheus instrumentation.
type Metrics struct {
	registry *prometheus.Registry

	guardDecisions  *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	queryDuration   *prometheus.HistogramVec
	clubflowCalls   *prometheus.HistogramVec
	hydrations      *prometheus.CounterVec
	screenLoads     *prometheus.CounterVec
}

// NewMetrics registers every collector on a fresh registry.
// activeViewers, when non-nil, is sampled on scrape.
func NewMetrics(activeViewers func() int) *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		guardDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fitrit",
			Name:      "guard_decisions_total",
			Help:      "Route guard decisions by guard and outcome.",
		}, []string{"guard", "state"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "fitrit",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		queryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "fitrit",
			Name:      "storage_query_duration_seconds",
			Help:      "Client storage query latency by operation.",
			Buckets:   []float64{.0005, .001, .005, .01, .025, .05, .1, .5},
		}, []string{"op"}),
		clubflowCalls: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "fitrit",
			Name:      "clubflow_call_duration_seconds",
			Help:      "ClubFlow API latency by endpoint and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint", "status"}),
		hydrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fitrit",
			Name:      "session_events_total",
			Help:      "Session store events by kind.",
		}, []string{"kind"}),
		screenLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fitrit",
			Name:      "screen_loads_total",
			Help:      "Lazy screen loads by screen and outcome.",
		}, []string{"screen", "outcome"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.guardDecisions, m.requestDuration, m.queryDuration, m.clubflowCalls, m.hydrations, m.screenLoads,
	)
	if activeViewers != nil {
		reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "fitrit",
			Name:      "active_viewers",
			Help:      "Viewers with live stores in memory.",
		}, func() float64 { return float64(activeViewers()) }))
	}
	return m
}

// Handler serves the registry for scraping.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) ObserveGuard(guard, state string) {
	m.guardDecisions.WithLabelValues(guard, state).Inc()
}

func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	m.requestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}

// ObserveQuery implements storage.QueryObserver.
func (m *Metrics) ObserveQuery(op string, d time.Duration) {
	m.queryDuration.WithLabelValues(op).Observe(d.Seconds())
}

// ObserveClubFlowCall implements clubflow.CallObserver. Status 0 is a transport failure.
func (m *Metrics) ObserveClubFlowCall(endpoint string, status int, d time.Duration) {
	m.clubflowCalls.WithLabelValues(endpoint, strconv.Itoa(status)).Observe(d.Seconds())
}

func (m *Metrics) ObserveSessionEvent(kind string) {
	m.hydrations.WithLabelValues(kind).Inc()
}

func (m *Metrics) ObserveScreenLoad(screen, outcome string) {
	m.screenLoads.WithLabelValues(screen, outcome).Inc()
}
