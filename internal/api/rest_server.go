package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/blockcity/voxel-engine/internal/logging"
	"github.com/blockcity/voxel-engine/internal/middleware"
	"github.com/blockcity/voxel-engine/internal/streaming"
	"github.com/blockcity/voxel-engine/internal/world"
)

// RestServer — управляющий REST-интерфейс клиентского движка:
// статус стриминга, точка спауна, перегенерация мира.
type RestServer struct {
	router    *gin.Engine
	world     *world.Manager
	streaming *streaming.Manager
	srv       *http.Server
	port      int
}

// Config содержит конфигурацию REST-сервера.
type Config struct {
	Port      int
	World     *world.Manager
	Streaming *streaming.Manager
}

// NewRestServer создаёт REST-сервер с полным набором middleware:
// recovery, request-логи, OpenTelemetry, Prometheus.
func NewRestServer(config Config) *RestServer {
	if config.Port == 0 {
		config.Port = 8090
	}

	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())

	// === Observability middleware ===
	loggerMw := middleware.NewRequestLogger()
	router.Use(loggerMw.Handler())

	router.Use(otelgin.Middleware("rest_api"))

	promMw := middleware.NewPrometheusMiddleware("rest_api")
	router.Use(promMw.Handler())
	promMw.RegisterMetricsEndpoint(router)

	server := &RestServer{
		router:    router,
		world:     config.World,
		streaming: config.Streaming,
		port:      config.Port,
	}

	server.setupRoutes()
	return server
}

// setupRoutes настраивает маршруты REST API.
func (rs *RestServer) setupRoutes() {
	rs.router.GET("/health", rs.handleHealth)

	wg := rs.router.Group("/world")
	{
		wg.GET("/status", rs.handleStatus)
		wg.GET("/spawn", rs.handleSpawn)
		wg.POST("/regenerate", rs.handleRegenerate)
	}
}

// handleHealth — простой liveness-чек.
func (rs *RestServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// handleStatus возвращает сид мира и снимок состояния стриминга.
func (rs *RestServer) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"seed":      rs.world.Seed(),
		"streaming": rs.streaming.Snapshot(),
	})
}

// handleSpawn возвращает точку первичной расстановки.
func (rs *RestServer) handleSpawn(c *gin.Context) {
	spawn := rs.world.SpawnPosition()
	c.JSON(http.StatusOK, gin.H{
		"x": spawn.X,
		"y": spawn.Y,
		"z": spawn.Z,
	})
}

// regenerateRequest — тело POST /world/regenerate.
type regenerateRequest struct {
	Seed int64 `json:"seed" binding:"required"`
}

// handleRegenerate меняет сид мира и сбрасывает клиентский кэш чанков.
// Кэш инвалидируется ПОСЛЕ смены сида: результаты идущих загрузок со
// старым сидом отбрасываются по поколению.
func (rs *RestServer) handleRegenerate(c *gin.Context) {
	var req regenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "требуется поле seed"})
		return
	}

	chunks, blocks := rs.world.Regenerate(req.Seed)
	rs.streaming.InvalidateAll()

	c.JSON(http.StatusOK, gin.H{
		"seed":           req.Seed,
		"chunks_touched": chunks,
		"blocks_touched": blocks,
		"cache_reset":    true,
	})
}

// Start запускает HTTP-сервер в отдельной горутине.
func (rs *RestServer) Start() {
	rs.srv = &http.Server{
		Addr:    fmt.Sprintf(":%d", rs.port),
		Handler: rs.router,
	}

	go func() {
		logging.Info("🌐 REST API запущен на порту %d", rs.port)
		if err := rs.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Error("Ошибка REST-сервера: %v", err)
		}
	}()
}

// Stop корректно останавливает HTTP-сервер.
func (rs *RestServer) Stop(ctx context.Context) error {
	if rs.srv == nil {
		return nil
	}
	return rs.srv.Shutdown(ctx)
}

// Router возвращает gin-роутер (для тестов).
func (rs *RestServer) Router() *gin.Engine {
	return rs.router
}
