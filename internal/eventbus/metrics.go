package eventbus

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/blockcity/voxel-engine/internal/logging"
)

// MetricsExporter публикует Prometheus-метрики шины событий и процесса.
// Экспортер не знает конкретную реализацию шины — только интерфейс EventBus.
// Процессные метрики (CPU, RSS) снимаются через gopsutil: клиентскому движку
// важно видеть собственный след, чанковый кэш легко раздувает память.
type MetricsExporter struct {
	bus  EventBus
	proc *process.Process
	quit chan struct{}
	done chan struct{}

	published prometheus.Counter
	consumed  prometheus.Counter
	dropped   prometheus.Counter
	inflight  prometheus.Gauge
	cpu       prometheus.Gauge
	rss       prometheus.Gauge
}

// NewMetricsExporter создаёт экспортер, но не запускает HTTP-сервер.
func NewMetricsExporter(bus EventBus) *MetricsExporter {
	proc, _ := process.NewProcess(int32(os.Getpid()))

	me := &MetricsExporter{
		bus:  bus,
		proc: proc,
		quit: make(chan struct{}),
		done: make(chan struct{}),
		published: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "eventbus",
			Name:      "messages_published_total",
			Help:      "Общее число опубликованных сообщений.",
		}),
		consumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "eventbus",
			Name:      "messages_consumed_total",
			Help:      "Общее число доставленных сообщений подписчикам.",
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "eventbus",
			Name:      "messages_dropped_total",
			Help:      "Сообщений, отброшенных из-за back-pressure.",
		}),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "eventbus",
			Name:      "messages_inflight",
			Help:      "Количество сообщений в очереди шины.",
		}),
		cpu: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "process",
			Name:      "cpu_percent",
			Help:      "Процент CPU клиентского процесса.",
		}),
		rss: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "process",
			Name:      "resident_memory_bytes",
			Help:      "Резидентная память клиентского процесса.",
		}),
	}

	prometheus.MustRegister(me.published, me.consumed, me.dropped, me.inflight, me.cpu, me.rss)
	return me
}

// Start запускает цикл обновления и HTTP-эндпоинт /metrics на указанном порту.
func (me *MetricsExporter) Start(port int) {
	go me.updateLoop()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	addr := fmt.Sprintf(":%d", port)

	go func() {
		logging.Info("📊 Prometheus метрики доступны на http://localhost%s/metrics", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			logging.Error("Ошибка HTTP-сервера метрик: %v", err)
		}
	}()
}

// Stop останавливает цикл обновления.
func (me *MetricsExporter) Stop() {
	close(me.quit)
	<-me.done
}

// updateLoop раз в секунду перекладывает Stats шины в Prometheus.
// Счётчики Prometheus монотонны, поэтому добавляем только дельту.
func (me *MetricsExporter) updateLoop() {
	defer close(me.done)

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	var prev Stats
	for {
		select {
		case <-me.quit:
			return
		case <-ticker.C:
			stats := me.bus.Metrics()
			me.published.Add(float64(stats.Published - prev.Published))
			me.consumed.Add(float64(stats.Consumed - prev.Consumed))
			me.dropped.Add(float64(stats.Dropped - prev.Dropped))
			me.inflight.Set(float64(stats.InFlight))
			prev = stats

			if me.proc != nil {
				if cpu, err := me.proc.CPUPercent(); err == nil {
					me.cpu.Set(cpu)
				}
				if mem, err := me.proc.MemoryInfo(); err == nil && mem != nil {
					me.rss.Set(float64(mem.RSS))
				}
			}
		}
	}
}
