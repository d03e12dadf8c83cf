package world

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/blockcity/voxel-engine/internal/eventbus"
	"github.com/blockcity/voxel-engine/internal/logging"
	"github.com/blockcity/voxel-engine/internal/vec"
	"github.com/blockcity/voxel-engine/internal/world/block"
)

// Точка спауна: центр городского плато, заведомо выше любого здания.
// Сущность опускается гравитацией на поверхность после загрузки чанка.
const (
	SpawnX = 0.5
	SpawnY = 70.0
	SpawnZ = 0.5
)

// Manager владеет сидом мира и парой генератор/материализатор.
// Ничего не пре-вычисляет и не хранит: чанки материализуются по запросу,
// поэтому перегенерация — это просто смена сида.
type Manager struct {
	mu   sync.RWMutex
	seed int64
	gen  *TerrainGenerator
	mat  *Materializer
	log  *logging.Logger
}

// NewManager создаёт менеджер мира с указанным сидом
func NewManager(seed int64) *Manager {
	gen := NewTerrainGenerator(seed)
	return &Manager{
		seed: seed,
		gen:  gen,
		mat:  NewMaterializer(gen),
		log:  logging.GetWorldLogger(),
	}
}

// Seed возвращает текущий сид мира
func (m *Manager) Seed() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.seed
}

// MaterializeChunk строит чанк по координатам. Запрос идемпотентен и не
// имеет побочных эффектов: один ключ и сид всегда дают одинаковый чанк.
func (m *Manager) MaterializeChunk(coords vec.Vec2) *Chunk {
	m.mu.RLock()
	mat := m.mat
	m.mu.RUnlock()
	return mat.Materialize(coords)
}

// BlockAt возвращает блок по мировым координатам с отсечкой по вертикали.
// Второе значение false означает «блока нет»: координата ниже дна или выше
// потолка мира. Внутри диапазона генератор тотален.
func (m *Manager) BlockAt(worldX, worldY, worldZ int) (block.BlockID, bool) {
	if worldY < 0 || worldY >= WorldHeight {
		return block.AirBlockID, false
	}

	m.mu.RLock()
	gen := m.gen
	m.mu.RUnlock()
	return gen.BlockAt(worldX, worldY, worldZ), true
}

// ColumnHeight возвращает высоту поверхности для колонки
func (m *Manager) ColumnHeight(worldX, worldZ int) int {
	m.mu.RLock()
	gen := m.gen
	m.mu.RUnlock()
	return gen.ColumnHeight(worldX, worldZ)
}

// SpawnPosition возвращает фиксированную безопасную точку первичной
// расстановки: над городским плато, выше любого здания.
func (m *Manager) SpawnPosition() vec.Vec3Float {
	return vec.Vec3Float{X: SpawnX, Y: SpawnY, Z: SpawnZ}
}

// Regenerate меняет сид мира и сбрасывает генератор. Возвращает количество
// затронутых чанков и блоков: при ленивой генерации ничего не пре-вычислено,
// поэтому оба счётчика легитимно равны нулю — инвалидированные чанки
// считает держатель клиентского кэша (стриминг-менеджер).
func (m *Manager) Regenerate(newSeed int64) (chunksAffected, blocksAffected int) {
	m.mu.Lock()
	oldSeed := m.seed
	m.seed = newSeed
	m.gen = NewTerrainGenerator(newSeed)
	m.mat = NewMaterializer(m.gen)
	m.mu.Unlock()

	m.log.Info("🌍 Мир перегенерирован: сид %d -> %d", oldSeed, newSeed)

	// Сообщаем окружению; ошибка публикации не мешает живой сессии
	ev := &eventbus.Envelope{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Source:    "world",
		EventType: "WorldRegenerated",
		Version:   1,
	}
	if err := eventbus.Publish(context.Background(), ev); err != nil {
		m.log.Warn("Не удалось опубликовать событие перегенерации: %v", err)
	}

	return 0, 0
}
