package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	registry        *prometheus.Registry
	ActiveUsers     prometheus.Gauge
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RedirectsTotal  prometheus.Counter
	CacheHitsTotal  *prometheus.CounterVec
	DroppedEvents   prometheus.Counter
}

func NewMetrics() *Metrics {
	r := prometheus.NewRegistry()
	m := &Metrics{
		registry: r,
		ActiveUsers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "loadpulse",
			Name:      "active_users",
			Help:      "Number of virtual users currently running",
		}),
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "loadpulse",
			Name:      "requests_total",
			Help:      "Total logged requests by status",
		}, []string{"status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "loadpulse",
			Name:      "request_duration_seconds",
			Help:      "Request duration from dispatch to last byte",
			Buckets:   prometheus.DefBuckets,
		}, []string{"status"}),
		RedirectsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "loadpulse",
			Name:      "redirects_total",
			Help:      "Total redirect hops followed",
		}),
		CacheHitsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "loadpulse",
			Name:      "cache_hits_total",
			Help:      "Total redirect/content cache hits",
		}, []string{"tier"}),
		DroppedEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "loadpulse",
			Name:      "dropped_events_total",
			Help:      "Stats events dropped because the sink was saturated",
		}),
	}
	r.MustRegister(m.ActiveUsers, m.RequestsTotal, m.RequestDuration,
		m.RedirectsTotal, m.CacheHitsTotal, m.DroppedEvents)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }
