package streaming

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics — Prometheus-метрики стриминга чанков.
type Metrics struct {
	loaded       prometheus.Gauge
	pending      prometheus.Gauge
	failed       prometheus.Gauge
	evictions    prometheus.Counter
	loadFailures prometheus.Counter
	loadDuration prometheus.Histogram
}

// NewMetrics создаёт и регистрирует метрики стриминга.
func NewMetrics() *Metrics {
	m := &Metrics{
		loaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "streaming",
			Name:      "chunks_loaded",
			Help:      "Количество загруженных чанков в кэше.",
		}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "streaming",
			Name:      "chunks_pending",
			Help:      "Количество чанков в ожидании загрузки.",
		}),
		failed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "streaming",
			Name:      "chunks_failed",
			Help:      "Количество чанков с неудачной загрузкой.",
		}),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "streaming",
			Name:      "evictions_total",
			Help:      "Общее число выгруженных чанков.",
		}),
		loadFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "streaming",
			Name:      "load_failures_total",
			Help:      "Общее число отказов загрузки чанков.",
		}),
		loadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "streaming",
			Name:      "load_duration_seconds",
			Help:      "Длительность загрузки одного чанка.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
	}

	prometheus.MustRegister(m.loaded, m.pending, m.failed, m.evictions, m.loadFailures, m.loadDuration)
	return m
}
