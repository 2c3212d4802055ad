/*
Package metrics exposes the parking monitor's per frame statistics as
Prometheus metrics.
*/
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"net/http"
	"time"
)

// Metrics holds the Prometheus collectors updated by the stream driver
type Metrics struct {
	FramesProcessed prometheus.Counter
	DetectorErrors  prometheus.Counter
	Occupancy       prometheus.Gauge
	Detections      prometheus.Gauge
	FrameDuration   prometheus.Histogram
	StreamClients   prometheus.Gauge

	registry *prometheus.Registry
}

// New creates a Metrics instance with its own registry
func New() *Metrics {

	m := &Metrics{
		registry: prometheus.NewRegistry(),
		FramesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "parkcount_frames_processed_total",
			Help: "Total frames evaluated",
		}),
		DetectorErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "parkcount_detector_errors_total",
			Help: "Total frames where the detector failed",
		}),
		Occupancy: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "parkcount_occupancy",
			Help: "Number of target objects inside the monitored area in the last frame",
		}),
		Detections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "parkcount_detections",
			Help: "Number of objects detected in the last frame before filtering",
		}),
		FrameDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "parkcount_frame_duration_seconds",
			Help:    "Time taken to detect, evaluate and render a frame",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 10),
		}),
		StreamClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "parkcount_stream_clients",
			Help: "Number of connected MJPEG stream clients",
		}),
	}

	m.registry.MustRegister(
		m.FramesProcessed,
		m.DetectorErrors,
		m.Occupancy,
		m.Detections,
		m.FrameDuration,
		m.StreamClients,
	)

	return m
}

// ObserveFrame records the outcome of processing a single frame
func (m *Metrics) ObserveFrame(detections, occupied int, took time.Duration) {
	m.FramesProcessed.Inc()
	m.Detections.Set(float64(detections))
	m.Occupancy.Set(float64(occupied))
	m.FrameDuration.Observe(took.Seconds())
}

// Registry returns the Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the HTTP handler serving the metrics
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
