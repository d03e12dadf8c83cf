package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_YAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	data := []byte(`
world:
  seed: 42
streaming:
  radius: 6
  hysteresis: 2
  batch_size: 8
server:
  rest_port: 9000
  metrics_port: 9001
`)
	require.NoError(t, os.WriteFile(path, data, 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, int64(42), cfg.World.GetSeed())
	assert.Equal(t, 6, cfg.Streaming.GetRadius())
	assert.Equal(t, 2, cfg.Streaming.GetHysteresis())
	assert.Equal(t, 8, cfg.Streaming.GetBatchSize())
	assert.Equal(t, 9000, cfg.Server.GetRESTPort())
	assert.Equal(t, 9001, cfg.Server.GetMetricsPort())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yml")
	assert.Error(t, err, "Отсутствующий файл должен давать ошибку")
}

func TestLoad_EmptyPathWithoutEnv(t *testing.T) {
	t.Setenv("VOXEL_CONFIG", "")
	cfg, err := Load("")
	assert.NoError(t, err)
	assert.Nil(t, cfg, "Без пути и ENV конфиг не задан")
}

func TestDefaults(t *testing.T) {
	t.Setenv("VOXEL_SEED", "")
	t.Setenv("VOXEL_REST_PORT", "")
	t.Setenv("VOXEL_METRICS_PORT", "")

	var cfg Config
	assert.Equal(t, int64(1337), cfg.World.GetSeed(), "Сид по умолчанию")
	assert.Equal(t, 4, cfg.Streaming.GetRadius(), "Радиус по умолчанию")
	assert.Equal(t, 1, cfg.Streaming.GetHysteresis())
	assert.Equal(t, 4, cfg.Streaming.GetBatchSize())
	assert.Equal(t, 8090, cfg.Server.GetRESTPort())
	assert.Equal(t, 2112, cfg.Server.GetMetricsPort())
}

func TestEnvFallbacks(t *testing.T) {
	t.Setenv("VOXEL_SEED", "777")
	t.Setenv("VOXEL_REST_PORT", "8123")

	var cfg Config
	assert.Equal(t, int64(777), cfg.World.GetSeed(), "ENV должен перекрывать дефолт")
	assert.Equal(t, 8123, cfg.Server.GetRESTPort())

	// Явное значение конфига приоритетнее ENV
	cfg.World.Seed = 5
	cfg.Server.RESTPort = 9999
	assert.Equal(t, int64(5), cfg.World.GetSeed())
	assert.Equal(t, 9999, cfg.Server.GetRESTPort())
}
