package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the prometheus collectors published by vidarr.
type Metrics struct {
	registry *prometheus.Registry

	// Live transcode pool
	ActiveSessions   prometheus.Gauge
	SessionsRejected prometheus.Counter
	SessionDuration  prometheus.Histogram

	// Streaming decisions
	DirectStreams    prometheus.Counter
	TranscodeStreams prometheus.Counter

	// Batch conversion pipeline
	JobsDispatched prometheus.Counter
	JobsSucceeded  prometheus.Counter
	JobsFailed     prometheus.Counter
	JobETASeconds  *prometheus.GaugeVec
}

// NewMetrics creates and registers all vidarr collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "vidarr_transcode_active_sessions",
			Help: "Number of live transcode sessions currently holding a pool slot.",
		}),
		SessionsRejected: factory.NewCounter(prometheus.CounterOpts{
			Name: "vidarr_transcode_sessions_rejected_total",
			Help: "Number of live transcode requests rejected because the pool was full.",
		}),
		SessionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "vidarr_transcode_session_duration_seconds",
			Help:    "Duration of live transcode sessions from acquire to release.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),
		DirectStreams: factory.NewCounter(prometheus.CounterOpts{
			Name: "vidarr_stream_direct_total",
			Help: "Number of playback requests served by direct byte-range streaming.",
		}),
		TranscodeStreams: factory.NewCounter(prometheus.CounterOpts{
			Name: "vidarr_stream_transcode_total",
			Help: "Number of playback requests served by live transcoding.",
		}),
		JobsDispatched: factory.NewCounter(prometheus.CounterOpts{
			Name: "vidarr_convert_jobs_dispatched_total",
			Help: "Number of conversion jobs submitted to the job runner.",
		}),
		JobsSucceeded: factory.NewCounter(prometheus.CounterOpts{
			Name: "vidarr_convert_jobs_succeeded_total",
			Help: "Number of conversion jobs finalized as succeeded.",
		}),
		JobsFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "vidarr_convert_jobs_failed_total",
			Help: "Number of conversion jobs finalized as failed.",
		}),
		JobETASeconds: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "vidarr_convert_job_eta_seconds",
			Help: "Best-effort remaining time estimate per running conversion job.",
		}, []string{"external_id"}),
	}
}

// Registry returns the prometheus registry holding all vidarr collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
