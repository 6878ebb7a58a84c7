package daemon

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"splice/internal/library"
	"splice/internal/session"
	"splice/internal/timeline"
)

// Metrics collects daemon-wide Prometheus metrics on a dedicated registry so
// /metrics never leaks Go runtime collectors registered elsewhere.
type Metrics struct {
	registry *prometheus.Registry

	mediaTransitions    *prometheus.CounterVec
	timelineTransitions *prometheus.CounterVec
	proxyBuildSeconds   prometheus.Histogram
}

func newMetrics(mgr *session.Manager) *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		mediaTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "splice_media_transitions_total",
			Help: "Media item status transitions applied, by resulting status.",
		}, []string{"status"}),
		timelineTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "splice_timeline_transitions_total",
			Help: "Timeline item status transitions applied, by resulting status.",
		}, []string{"status"}),
		proxyBuildSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "splice_proxy_build_seconds",
			Help:    "Wall time of completed preview proxy encodes.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
	}

	downloadsActive := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "splice_downloads_active",
		Help: "Remote acquisitions currently in flight.",
	}, func() float64 { return float64(mgr.ActiveDownloads()) })
	downloadBytes := prometheus.NewCounterFunc(prometheus.CounterOpts{
		Name: "splice_download_bytes_total",
		Help: "Bytes transferred by remote acquisitions, including failed ones.",
	}, func() float64 { return float64(mgr.DownloadedBytes()) })
	sessionsOpen := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "splice_sessions_open",
		Help: "Editing sessions currently loaded.",
	}, func() float64 { return float64(len(mgr.Sessions())) })

	registry.MustRegister(
		m.mediaTransitions,
		m.timelineTransitions,
		m.proxyBuildSeconds,
		downloadsActive,
		downloadBytes,
		sessionsOpen,
	)
	return m
}

// MediaTransition implements session.Observer.
func (m *Metrics) MediaTransition(status library.Status) {
	m.mediaTransitions.WithLabelValues(string(status)).Inc()
}

// TimelineTransition implements session.Observer.
func (m *Metrics) TimelineTransition(status timeline.Status) {
	m.timelineTransitions.WithLabelValues(string(status)).Inc()
}

// ObserveProxyBuild records one completed proxy encode.
func (m *Metrics) ObserveProxyBuild(seconds float64) {
	m.proxyBuildSeconds.Observe(seconds)
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
