package config

import (
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config корневая структура конфигурации клиента.
// Геометрия мира (размер чанка, высота, радиус города) задана константами
// в пакете world: менять её на лету нельзя, иначе разойдутся клиенты.

type Config struct {
	World     WorldConfig     `yaml:"world"`
	Streaming StreamingConfig `yaml:"streaming"`
	EventBus  EventBusConfig  `yaml:"eventbus"`
	Server    ServerConfig    `yaml:"server"`
}

type WorldConfig struct {
	Seed int64 `yaml:"seed"`
}

type StreamingConfig struct {
	Radius       int `yaml:"radius"`         // Радиус загрузки в чанках
	Hysteresis   int `yaml:"hysteresis"`     // Запас до выгрузки в чанках
	BatchSize    int `yaml:"batch_size"`     // Запросов в одном батче
	BatchPauseMs int `yaml:"batch_pause_ms"` // Пауза между батчами
	RingPauseMs  int `yaml:"ring_pause_ms"`  // Пауза между кольцами
}

type EventBusConfig struct {
	URL       string `yaml:"url"`
	Stream    string `yaml:"stream"`
	Retention int    `yaml:"retention_hours"`
}

type ServerConfig struct {
	RESTPort    int `yaml:"rest_port"`
	MetricsPort int `yaml:"metrics_port"`
}

// GetSeed возвращает сид мира с поддержкой fallback значений
func (w *WorldConfig) GetSeed() int64 {
	if w.Seed != 0 {
		return w.Seed
	}
	if envVal := os.Getenv("VOXEL_SEED"); envVal != "" {
		if seed, err := strconv.ParseInt(envVal, 10, 64); err == nil && seed != 0 {
			return seed
		}
	}
	return 1337
}

// GetRadius возвращает радиус загрузки чанков (минимум 1)
func (s *StreamingConfig) GetRadius() int {
	if s.Radius > 0 {
		return s.Radius
	}
	return 4
}

// GetHysteresis возвращает запас выгрузки
func (s *StreamingConfig) GetHysteresis() int {
	if s.Hysteresis > 0 {
		return s.Hysteresis
	}
	return 1
}

// GetBatchSize возвращает размер батча запросов
func (s *StreamingConfig) GetBatchSize() int {
	if s.BatchSize > 0 {
		return s.BatchSize
	}
	return 4
}

// GetRESTPort возвращает REST порт с поддержкой fallback значений
func (s *ServerConfig) GetRESTPort() int {
	return getPortWithEnvFallback(s.RESTPort, "VOXEL_REST_PORT", 8090)
}

// GetMetricsPort возвращает Prometheus метрики порт с поддержкой fallback значений
func (s *ServerConfig) GetMetricsPort() int {
	return getPortWithEnvFallback(s.MetricsPort, "VOXEL_METRICS_PORT", 2112)
}

// getPortWithEnvFallback возвращает порт с приоритетом: config -> env -> default
func getPortWithEnvFallback(configPort int, envVar string, defaultPort int) int {
	if configPort > 0 {
		return configPort
	}

	if envVal := os.Getenv(envVar); envVal != "" {
		if port, err := strconv.Atoi(envVal); err == nil && port > 0 {
			return port
		}
	}

	return defaultPort
}

// Load читает YAML файл конфигурации.
// Если path == "", пытается прочитать из ENV VOXEL_CONFIG или возвращает nil, nil.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("VOXEL_CONFIG")
		if path == "" {
			return nil, nil // конфиг не задан — использовать дефолты
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
