package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/blockcity/voxel-engine/internal/api"
	"github.com/blockcity/voxel-engine/internal/config"
	"github.com/blockcity/voxel-engine/internal/eventbus"
	"github.com/blockcity/voxel-engine/internal/logging"
	"github.com/blockcity/voxel-engine/internal/observability"
	"github.com/blockcity/voxel-engine/internal/physics"
	"github.com/blockcity/voxel-engine/internal/streaming"
	"github.com/blockcity/voxel-engine/internal/terrain"
	"github.com/blockcity/voxel-engine/internal/world"
)

// Частота тика клиентской симуляции
const tickRate = 20

func main() {
	configPath := flag.String("config", "", "путь к YAML-конфигурации")
	flag.Parse()

	// Инициализируем систему логирования
	if err := logging.InitDefaultLogger("client"); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()

	logging.Info("🧱 Запуск воксельного клиентского движка...")

	// === КОНФИГУРАЦИЯ ===
	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.Error("❌ Ошибка чтения конфигурации: %v", err)
		log.Fatalf("❌ Ошибка чтения конфигурации: %v", err)
	}
	if cfg == nil {
		cfg = &config.Config{}
	}

	seed := cfg.World.GetSeed()
	restPort := cfg.Server.GetRESTPort()
	metricsPort := cfg.Server.GetMetricsPort()
	logging.Info("📡 Конфигурация: seed=%d, радиус=%d, REST=%d, метрики=%d",
		seed, cfg.Streaming.GetRadius(), restPort, metricsPort)

	// === ТЕЛЕМЕТРИЯ ===
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTelemetry, err := observability.InitTelemetry(ctx, "voxel-engine-client")
	if err != nil {
		logging.Warn("⚠️ Телеметрия недоступна: %v", err)
		shutdownTelemetry = func(context.Context) error { return nil }
	}

	// === ШИНА СОБЫТИЙ ===
	// По умолчанию in-memory; при заданном URL — NATS JetStream
	var bus eventbus.EventBus
	var jsBus *eventbus.JetStreamBus
	if cfg.EventBus.URL != "" {
		retention := time.Duration(cfg.EventBus.Retention) * time.Hour
		jsBus, err = eventbus.NewJetStreamBus(cfg.EventBus.URL, cfg.EventBus.Stream, retention)
		if err != nil {
			logging.Warn("⚠️ JetStream недоступен (%v), переключаюсь на in-memory шину", err)
		} else {
			bus = jsBus
			logging.Info("📨 Шина событий: NATS JetStream (%s)", cfg.EventBus.URL)
		}
	}
	if bus == nil {
		bus = eventbus.NewMemoryBus(1024)
		logging.Info("📨 Шина событий: in-memory")
	}
	eventbus.Init(bus)

	// === МЕТРИКИ ===
	exporter := eventbus.NewMetricsExporter(bus)
	exporter.Start(metricsPort)

	// === МИР И СТРИМИНГ ===
	worldManager := world.NewManager(seed)

	provider, err := terrain.NewLocalProvider(worldManager)
	if err != nil {
		logging.Error("❌ Ошибка создания источника чанков: %v", err)
		log.Fatalf("❌ Ошибка создания источника чанков: %v", err)
	}
	defer provider.Close()

	streamOpts := streaming.Options{
		Radius:     cfg.Streaming.GetRadius(),
		Hysteresis: cfg.Streaming.GetHysteresis(),
		BatchSize:  cfg.Streaming.GetBatchSize(),
		BatchPause: time.Duration(cfg.Streaming.BatchPauseMs) * time.Millisecond,
		RingPause:  time.Duration(cfg.Streaming.RingPauseMs) * time.Millisecond,
	}
	streamManager, err := streaming.NewManager(provider, streamOpts, streaming.NewMetrics())
	if err != nil {
		logging.Error("❌ Ошибка создания стриминг-менеджера: %v", err)
		log.Fatalf("❌ Ошибка создания стриминг-менеджера: %v", err)
	}
	defer streamManager.Close()

	// === ФИЗИКА И ИГРОК ===
	engine := physics.NewEngine(streamManager)
	player := &physics.PlayerState{
		Position: worldManager.SpawnPosition(),
	}
	logging.Info("🧍 Игрок расставлен в точке спауна %+v", player.Position)

	// === REST API ===
	restServer := api.NewRestServer(api.Config{
		Port:      restPort,
		World:     worldManager,
		Streaming: streamManager,
	})
	restServer.Start()

	logging.Info("✅ Движок запущен: тик %d Гц", tickRate)

	// Канал для получения сигналов ОС
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// === ИГРОВОЙ ЦИКЛ ===
	ticker := time.NewTicker(time.Second / tickRate)
	defer ticker.Stop()

	dt := 1.0 / float64(tickRate)
	skipped := 0

loop:
	for {
		select {
		case sig := <-sigCh:
			logging.Info("📡 Получен сигнал %v, завершение работы...", sig)
			break loop
		case <-ticker.C:
			streamManager.UpdatePlayerPosition(ctx, player.Position)

			// Тик физики пропускается, пока чанк игрока не загружен
			if !engine.Step(player, physics.InputState{}, dt) {
				skipped++
				if skipped%tickRate == 0 {
					logging.Debug("⏳ Физика ждёт загрузку чанка игрока (%d тиков)", skipped)
				}
				continue
			}
		}
	}

	// === GRACEFUL SHUTDOWN ===
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := restServer.Stop(shutdownCtx); err != nil {
		logging.Error("❌ Ошибка остановки REST API: %v", err)
	}
	exporter.Stop()
	if jsBus != nil {
		jsBus.Close()
	}
	if err := shutdownTelemetry(shutdownCtx); err != nil {
		logging.Warn("⚠️ Ошибка остановки телеметрии: %v", err)
	}

	logging.Info("👋 Движок остановлен")
}
