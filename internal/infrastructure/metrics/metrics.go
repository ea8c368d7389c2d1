// Package metrics собирает метрики сервиса в собственный реестр Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/DRSN-tech/imgshrink/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "imgshrink"

// PromMetrics реализует usecase.Metrics поверх Prometheus.
type PromMetrics struct {
	registry *prometheus.Registry

	transcodes       *prometheus.CounterVec
	transcodeSeconds *prometheus.HistogramVec
	bytesIn          *prometheus.CounterVec
	bytesOut         *prometheus.CounterVec
	downloads        *prometheus.CounterVec
	swept            prometheus.Counter
}

// NewPromMetrics создаёт метрики и регистрирует их вместе с go/process коллекторами.
func NewPromMetrics() *PromMetrics {
	reg := prometheus.NewRegistry()

	m := &PromMetrics{
		registry: reg,
		transcodes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcodes_total",
			Help:      "Total number of transcoded images by target format and outcome",
		}, []string{"format", "outcome"}),
		transcodeSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transcode_duration_seconds",
			Help:      "Time spent transcoding and storing a single image",
			Buckets:   prometheus.DefBuckets,
		}, []string{"format"}),
		bytesIn: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcode_input_bytes_total",
			Help:      "Bytes of successfully transcoded source images",
		}, []string{"format"}),
		bytesOut: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcode_output_bytes_total",
			Help:      "Bytes of stored artifacts",
		}, []string{"format"}),
		downloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "downloads_total",
			Help:      "Total number of download requests by mode and outcome",
		}, []string{"mode", "outcome"}),
		swept: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "swept_artifacts_total",
			Help:      "Artifacts scheduled for removal by the sweeper",
		}),
	}

	reg.MustRegister(
		m.transcodes,
		m.transcodeSeconds,
		m.bytesIn,
		m.bytesOut,
		m.downloads,
		m.swept,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

func (m *PromMetrics) ObserveTranscode(format domain.Format, outcome string, bytesBefore, bytesAfter int, took time.Duration) {
	f := string(format)
	m.transcodes.WithLabelValues(f, outcome).Inc()
	m.transcodeSeconds.WithLabelValues(f).Observe(took.Seconds())

	if outcome == "ok" {
		m.bytesIn.WithLabelValues(f).Add(float64(bytesBefore))
		m.bytesOut.WithLabelValues(f).Add(float64(bytesAfter))
	}
}

func (m *PromMetrics) IncDownload(mode, outcome string) {
	m.downloads.WithLabelValues(mode, outcome).Inc()
}

func (m *PromMetrics) AddSwept(n int) {
	if n > 0 {
		m.swept.Add(float64(n))
	}
}

// Registry возвращает реестр для тестов и дополнительных коллекторов.
func (m *PromMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler отдаёт метрики в формате Prometheus.
func (m *PromMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
