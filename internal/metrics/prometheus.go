package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RendersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cinereel_renders_total",
		Help: "Total number of renders, by status",
	}, []string{"status"})

	RenderDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cinereel_render_duration_seconds",
		Help:    "Duration of render stages",
		Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
	}, []string{"stage"})

	FramesRenderedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cinereel_frames_rendered_total",
		Help: "Total number of frames rendered, by task kind",
	}, []string{"kind"})

	FrameRenderDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "cinereel_frame_render_duration_seconds",
		Help:    "Time spent producing a single frame",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	})

	ReorderBufferDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cinereel_reorder_buffer_depth",
		Help: "Frames finished out of order and waiting for the sink",
	})

	ActiveWorkers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cinereel_active_workers",
		Help: "Number of frame workers currently rendering",
	})
)
