package streaming

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockcity/voxel-engine/internal/terrain"
	"github.com/blockcity/voxel-engine/internal/vec"
	"github.com/blockcity/voxel-engine/internal/world"
	"github.com/blockcity/voxel-engine/internal/world/block"
)

// flakyProvider оборачивает локальный источник и отказывает для заданных
// ключей. Считает запросы по ключам.
type flakyProvider struct {
	mu       sync.Mutex
	inner    *terrain.LocalProvider
	failKeys map[vec.Vec2]bool
	requests map[vec.Vec2]int
}

func newFlakyProvider(t *testing.T, seed int64) *flakyProvider {
	t.Helper()
	wm := world.NewManager(seed)
	inner, err := terrain.NewLocalProvider(wm)
	require.NoError(t, err)
	t.Cleanup(inner.Close)

	return &flakyProvider{
		inner:    inner,
		failKeys: make(map[vec.Vec2]bool),
		requests: make(map[vec.Vec2]int),
	}
}

func (p *flakyProvider) RequestChunk(ctx context.Context, key vec.Vec2) (*terrain.ChunkResult, error) {
	p.mu.Lock()
	p.requests[key]++
	fail := p.failKeys[key]
	p.mu.Unlock()

	if fail {
		return nil, errors.New("источник недоступен")
	}
	return p.inner.RequestChunk(ctx, key)
}

func (p *flakyProvider) requestCount(key vec.Vec2) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.requests[key]
}

func newTestManager(t *testing.T, provider terrain.ChunkProvider, radius, hysteresis int) *Manager {
	t.Helper()
	m, err := NewManager(provider, Options{
		Radius:     radius,
		Hysteresis: hysteresis,
		BatchSize:  4,
	}, nil)
	require.NoError(t, err)
	t.Cleanup(m.Close)
	return m
}

func TestManager_LoadsRadius(t *testing.T) {
	provider := newFlakyProvider(t, 1337)
	m := newTestManager(t, provider, 2, 1)

	m.UpdatePlayerPosition(context.Background(), vec.Vec3Float{X: 0.5, Y: 70, Z: 0.5})
	m.Wait()

	// Евклидов радиус 2 вокруг чанка (0,0): 13 чанков
	stats := m.Snapshot()
	assert.Equal(t, 13, stats.Loaded, "Должны загрузиться все чанки в евклидовом радиусе")
	assert.Equal(t, 0, stats.Pending, "Очередь должна опустеть")
	assert.Equal(t, 0, stats.Failed)

	assert.True(t, m.IsChunkLoaded(vec.Vec2{X: 0, Z: 0}))
	assert.True(t, m.IsChunkLoaded(vec.Vec2{X: 2, Z: 0}))
	// Угол (2,2) дальше евклидова радиуса, хотя в пределах Чебышёва
	assert.False(t, m.IsChunkLoaded(vec.Vec2{X: 2, Z: 2}),
		"Углы квадрата за евклидовым радиусом не загружаются")
}

func TestManager_UpdateIdempotentWithinChunk(t *testing.T) {
	provider := newFlakyProvider(t, 1337)
	m := newTestManager(t, provider, 2, 1)

	ctx := context.Background()
	m.UpdatePlayerPosition(ctx, vec.Vec3Float{X: 0.5, Y: 70, Z: 0.5})
	m.Wait()

	// Движение внутри того же чанка не должно порождать новые запросы
	before := provider.requestCount(vec.Vec2{X: 0, Z: 0})
	m.UpdatePlayerPosition(ctx, vec.Vec3Float{X: 7.9, Y: 70, Z: 12.2})
	m.Wait()
	assert.Equal(t, before, provider.requestCount(vec.Vec2{X: 0, Z: 0}),
		"Загруженный чанк не должен перезапрашиваться")
}

func TestManager_UnknownIsNotAir(t *testing.T) {
	provider := newFlakyProvider(t, 1337)
	m := newTestManager(t, provider, 2, 1)

	// До первого апдейта ничего не известно
	_, known := m.BlockAt(0, 10, 0)
	assert.False(t, known, "Блок в незагруженном чанке должен быть неизвестен, а не воздушен")

	m.UpdatePlayerPosition(context.Background(), vec.Vec3Float{X: 0.5, Y: 70, Z: 0.5})
	m.Wait()

	id, known := m.BlockAt(0, 0, 0)
	require.True(t, known, "Блок в загруженном чанке известен")
	assert.Equal(t, block.BedrockBlockID, id, "На дне мира бедрок")

	// Вертикальная отсечка для загруженного чанка — достоверный воздух
	id, known = m.BlockAt(0, -5, 0)
	assert.True(t, known)
	assert.Equal(t, block.AirBlockID, id)
	id, known = m.BlockAt(0, world.WorldHeight+3, 0)
	assert.True(t, known)
	assert.Equal(t, block.AirBlockID, id)

	// Далёкий чанк по-прежнему неизвестен
	_, known = m.BlockAt(500, 10, 500)
	assert.False(t, known, "Чанк за радиусом загрузки неизвестен")
}

func TestManager_EvictionBeyondHysteresis(t *testing.T) {
	provider := newFlakyProvider(t, 1337)
	m := newTestManager(t, provider, 2, 1)

	ctx := context.Background()
	m.UpdatePlayerPosition(ctx, vec.Vec3Float{X: 0.5, Y: 70, Z: 0.5})
	m.Wait()

	// Телепорт на 10 чанков: старый кэш целиком за радиусом удержания
	m.UpdatePlayerPosition(ctx, vec.Vec3Float{X: 160.5, Y: 70, Z: 0.5})
	m.Wait()

	center := vec.Vec2{X: 10, Z: 0}
	m.mu.Lock()
	for key := range m.loaded {
		assert.LessOrEqual(t, center.ChebyshevTo(key), 3,
			"После выгрузки все чанки обязаны быть в радиусе удержания (чанк %v)", key)
	}
	m.mu.Unlock()

	assert.False(t, m.IsChunkLoaded(vec.Vec2{X: 0, Z: 0}), "Старый чанк игрока должен быть выгружен")
	assert.True(t, m.IsChunkLoaded(center), "Новый чанк игрока должен быть загружен")
}

func TestManager_HysteresisKeepsNearbyChunks(t *testing.T) {
	provider := newFlakyProvider(t, 1337)
	m := newTestManager(t, provider, 2, 1)

	ctx := context.Background()
	m.UpdatePlayerPosition(ctx, vec.Vec3Float{X: 0.5, Y: 70, Z: 0.5})
	m.Wait()

	// Шаг в соседний чанк: чанк (-2,0) на Чебышёве 3 от нового центра,
	// это ровно радиус+гистерезис — выгрузки быть не должно
	m.UpdatePlayerPosition(ctx, vec.Vec3Float{X: 16.5, Y: 70, Z: 0.5})
	m.Wait()

	assert.True(t, m.IsChunkLoaded(vec.Vec2{X: -2, Z: 0}),
		"Чанк на границе радиуса удержания не выгружается")
}

func TestManager_FailedChunkNotRetried(t *testing.T) {
	provider := newFlakyProvider(t, 1337)
	badKey := vec.Vec2{X: 1, Z: 0}
	provider.failKeys[badKey] = true

	m := newTestManager(t, provider, 2, 1)

	ctx := context.Background()
	m.UpdatePlayerPosition(ctx, vec.Vec3Float{X: 0.5, Y: 70, Z: 0.5})
	m.Wait()

	stats := m.Snapshot()
	assert.Equal(t, 12, stats.Loaded, "Остальные чанки должны загрузиться")
	assert.Equal(t, 1, stats.Failed, "Отказавший чанк должен быть помечен")
	assert.False(t, m.IsChunkLoaded(badKey))

	requests := provider.requestCount(badKey)
	assert.Equal(t, 1, requests)

	// Уход и возврат не должны перезапрашивать отказавший чанк
	m.UpdatePlayerPosition(ctx, vec.Vec3Float{X: 160.5, Y: 70, Z: 0.5})
	m.Wait()
	m.UpdatePlayerPosition(ctx, vec.Vec3Float{X: 0.5, Y: 70, Z: 0.5})
	m.Wait()
	assert.Equal(t, requests, provider.requestCount(badKey),
		"Отказавший чанк не перезапрашивается автоматически")

	// Явная инвалидация снимает метку отказа
	provider.failKeys[badKey] = false
	m.InvalidateAll()
	m.UpdatePlayerPosition(ctx, vec.Vec3Float{X: 0.5, Y: 70, Z: 0.5})
	m.Wait()
	assert.True(t, m.IsChunkLoaded(badKey), "После инвалидации чанк загружается заново")
}

func TestManager_InvalidateAllResetsCache(t *testing.T) {
	provider := newFlakyProvider(t, 1337)
	m := newTestManager(t, provider, 2, 1)

	m.UpdatePlayerPosition(context.Background(), vec.Vec3Float{X: 0.5, Y: 70, Z: 0.5})
	m.Wait()
	require.True(t, m.IsChunkLoaded(vec.Vec2{X: 0, Z: 0}))

	m.InvalidateAll()

	stats := m.Snapshot()
	assert.Equal(t, 0, stats.Loaded, "После инвалидации кэш пуст")
	assert.Equal(t, 0, stats.Failed)
	assert.False(t, stats.HasPlayer, "Позиция игрока забыта: следующий апдейт перезагрузит всё")

	_, known := m.BlockAt(0, 10, 0)
	assert.False(t, known, "После инвалидации блоки снова неизвестны")
}

func TestManager_ChunkFaces(t *testing.T) {
	provider := newFlakyProvider(t, 1337)
	m := newTestManager(t, provider, 2, 1)

	assert.Nil(t, m.ChunkFaces(vec.Vec2{}), "Грани незагруженного чанка — nil")

	m.UpdatePlayerPosition(context.Background(), vec.Vec3Float{X: 0.5, Y: 70, Z: 0.5})
	m.Wait()

	faces := m.ChunkFaces(vec.Vec2{})
	assert.NotEmpty(t, faces, "Загруженный городской чанк должен нести грани")
}
