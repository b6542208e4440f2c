package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the logger's Prometheus collectors. A nil *Metrics is valid
// and records nothing, so sessions can run without a registry.
type Metrics struct {
	registry *prometheus.Registry

	frames    prometheus.Counter
	fixes     prometheus.Counter
	skips     *prometheus.CounterVec
	abandoned prometheus.Counter
	bytesRead prometheus.Counter
	inFlight  prometheus.Gauge
	decode    prometheus.Histogram
	sessions  prometheus.Counter
}

// NewMetrics creates the collectors on a private registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		frames: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rmc", Name: "frames_total",
			Help: "Frames handed to decode tasks.",
		}),
		fixes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rmc", Name: "fixes_total",
			Help: "Fixes committed to the sink.",
		}),
		skips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rmc", Name: "skips_total",
			Help: "Order slots committed as skips, by reason.",
		}, []string{"reason"}),
		abandoned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rmc", Name: "abandoned_frames_total",
			Help: "Partial frames dropped by the framer.",
		}),
		bytesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rmc", Name: "bytes_read_total",
			Help: "Bytes consumed from the GPS source.",
		}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "rmc", Name: "decode_tasks_in_flight",
			Help: "Decode tasks admitted but not yet committed.",
		}),
		decode: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "rmc", Name: "task_seconds",
			Help:    "Decode task duration, including the wait for its commit turn.",
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
		}),
		sessions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rmc", Name: "sessions_total",
			Help: "Sessions started.",
		}),
	}
	reg.MustRegister(m.frames, m.fixes, m.skips, m.abandoned, m.bytesRead, m.inFlight, m.decode, m.sessions)
	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the collectors in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) SessionStarted() {
	if m != nil {
		m.sessions.Inc()
	}
}

func (m *Metrics) FrameAdmitted() {
	if m != nil {
		m.frames.Inc()
		m.inFlight.Inc()
	}
}

// Committed records one commit. An empty reason means a fix was written.
func (m *Metrics) Committed(reason string) {
	if m == nil {
		return
	}
	if reason == "" {
		m.fixes.Inc()
		return
	}
	m.skips.WithLabelValues(reason).Inc()
}

// TaskDone records a finished decode task, whether or not it committed.
func (m *Metrics) TaskDone(seconds float64) {
	if m == nil {
		return
	}
	m.inFlight.Dec()
	m.decode.Observe(seconds)
}

// SourceProgress adds framer counters accumulated since the last call.
func (m *Metrics) SourceProgress(bytes, abandoned int64) {
	if m == nil {
		return
	}
	if bytes > 0 {
		m.bytesRead.Add(float64(bytes))
	}
	if abandoned > 0 {
		m.abandoned.Add(float64(abandoned))
	}
}
