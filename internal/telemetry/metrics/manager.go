package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Manager struct {
	// counters
	CounterRequests            *prometheus.CounterVec
	CounterHandleRequestPanic  prometheus.Counter
	CounterRateLimitedRequests prometheus.Counter
	CounterLogins              *prometheus.CounterVec
	CounterPageViews           prometheus.Counter
	CounterPageViewsDropped    prometheus.Counter
	CounterPageViewsFailed     prometheus.Counter
	CounterGeoLookups          *prometheus.CounterVec

	// gauges
	GaugeRequests        prometheus.Gauge
	GaugeLifeSignal      prometheus.Gauge
	GaugeTelemetryQueued prometheus.Gauge

	// histograms
	HistogramRequestDuration *prometheus.HistogramVec
}

func NewTestManager() *Manager {
	return NewManager("backend", "test_server", prometheus.NewRegistry())
}

func NewTestManagerAndRegistry() (*Manager, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	return NewManager("backend", "test_server", reg), reg
}

func NewManager(namespace, subsystem string, reg prometheus.Registerer) *Manager {
	factory := promauto.With(reg)

	counterOpts := func(name, help string) prometheus.CounterOpts {
		return prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      name,
			Help:      help,
		}
	}
	gaugeOpts := func(name, help string) prometheus.GaugeOpts {
		return prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      name,
			Help:      help,
		}
	}

	return &Manager{
		CounterRequests: factory.NewCounterVec(
			counterOpts("request", "The total number of incoming requests"),
			[]string{"method", "status"},
		),
		CounterHandleRequestPanic: factory.NewCounter(
			counterOpts("handle_request_panic", "The total number of serve request panics"),
		),
		CounterRateLimitedRequests: factory.NewCounter(
			counterOpts("rate_limited_requests", "The total number of rate limited requests"),
		),
		CounterLogins: factory.NewCounterVec(
			counterOpts("logins", "Login attempts by result"),
			[]string{"result"},
		),
		CounterPageViews: factory.NewCounter(
			counterOpts("page_views", "The total number of recorded page views"),
		),
		CounterPageViewsDropped: factory.NewCounter(
			counterOpts("page_views_dropped", "Page views dropped because the telemetry queue was full or closed"),
		),
		CounterPageViewsFailed: factory.NewCounter(
			counterOpts("page_views_failed", "Page views that could not be stored after all attempts"),
		),
		CounterGeoLookups: factory.NewCounterVec(
			counterOpts("geo_lookups", "Geo IP lookups by source"),
			[]string{"source"},
		),
		GaugeRequests: factory.NewGauge(
			gaugeOpts("current_requests", "Current number of requests served"),
		),
		GaugeLifeSignal: factory.NewGauge(
			gaugeOpts("life_signal", "Shows whether the service is alive"),
		),
		GaugeTelemetryQueued: factory.NewGauge(
			gaugeOpts("telemetry_queued", "Page views waiting in the telemetry queue"),
		),
		HistogramRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "request_duration_seconds",
			Help:      "Histogram of response time for requests in seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"route", "method", "status_code"}),
	}
}
