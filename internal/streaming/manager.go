package streaming

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/blockcity/voxel-engine/internal/eventbus"
	"github.com/blockcity/voxel-engine/internal/logging"
	"github.com/blockcity/voxel-engine/internal/mesh"
	"github.com/blockcity/voxel-engine/internal/terrain"
	"github.com/blockcity/voxel-engine/internal/vec"
	"github.com/blockcity/voxel-engine/internal/world"
	"github.com/blockcity/voxel-engine/internal/world/block"
)

// LoadedChunk — чанк в клиентском кэше вместе с извлечёнными гранями.
type LoadedChunk struct {
	Key    vec.Vec2
	Chunk  *world.Chunk
	Faces  []mesh.BlockFace
	Loaded time.Time
}

// Stats — снимок состояния стриминга для REST-статуса и логов.
type Stats struct {
	Loaded      int      `json:"loaded"`
	Pending     int      `json:"pending"`
	Failed      int      `json:"failed"`
	Radius      int      `json:"radius"`
	Hysteresis  int      `json:"hysteresis"`
	PlayerChunk vec.Vec2 `json:"player_chunk"`
	HasPlayer   bool     `json:"has_player"`
}

// Options — параметры стриминга (радиус в чанках, гистерезис выгрузки,
// размер пакета загрузки и паузы между пакетами/кольцами).
type Options struct {
	Radius     int
	Hysteresis int
	BatchSize  int
	BatchPause time.Duration
	RingPause  time.Duration
}

// Manager поддерживает кэш чанков вокруг позиции игрока.
//
// Каждый чанк находится в одном из состояний: незапрошен (отсутствует во
// всех картах), pending, loaded или failed. Отказавшие чанки не
// перезапрашиваются автоматически — повтор только после InvalidateAll.
// Ключевое различие: «незагружено» не значит «воздух». Пока чанк не в
// кэше, запрос блока возвращает known=false, и физика обязана ждать.
type Manager struct {
	mu       sync.Mutex
	provider terrain.ChunkProvider
	codec    *terrain.Codec

	loaded  map[vec.Vec2]*LoadedChunk
	pending map[vec.Vec2]struct{}
	failed  map[vec.Vec2]error

	playerChunk vec.Vec2
	hasPlayer   bool
	generation  uint64

	opts    Options
	log     *logging.Logger
	metrics *Metrics
	wg      sync.WaitGroup
}

// NewManager создаёт стриминг-менеджер. metrics может быть nil.
func NewManager(provider terrain.ChunkProvider, opts Options, metrics *Metrics) (*Manager, error) {
	if opts.Radius <= 0 {
		opts.Radius = 4
	}
	if opts.Hysteresis < 0 {
		opts.Hysteresis = 0
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 4
	}

	codec, err := terrain.NewCodec()
	if err != nil {
		return nil, fmt.Errorf("codec: %w", err)
	}

	return &Manager{
		provider: provider,
		codec:    codec,
		loaded:   make(map[vec.Vec2]*LoadedChunk),
		pending:  make(map[vec.Vec2]struct{}),
		failed:   make(map[vec.Vec2]error),
		opts:     opts,
		log:      logging.GetStreamingLogger(),
		metrics:  metrics,
	}, nil
}

// UpdatePlayerPosition пересчитывает кэш под новую позицию игрока.
// Повторный вызов в том же чанке — no-op: план загрузки зависит только от
// чанка игрока, не от его позиции внутри чанка.
func (m *Manager) UpdatePlayerPosition(ctx context.Context, pos vec.Vec3Float) {
	chunk := vec.ChunkOf(int(math.Floor(pos.X)), int(math.Floor(pos.Z)))

	m.mu.Lock()
	if m.hasPlayer && m.playerChunk == chunk {
		m.mu.Unlock()
		return
	}
	m.playerChunk = chunk
	m.hasPlayer = true
	generation := m.generation

	m.evictFarLocked(chunk)
	rings := m.planRingsLocked(chunk)
	m.mu.Unlock()

	if len(rings) == 0 {
		return
	}

	m.log.Debug("📦 Чанк игрока %v: план загрузки %d колец", chunk, len(rings))
	m.wg.Add(1)
	go m.loadRings(ctx, rings, generation)
}

// planRingsLocked собирает незапрошенные чанки в радиусе загрузки,
// сгруппированные по кольцам евклидова расстояния, ближние первыми.
// Вызывается под мьютексом; найденные чанки сразу помечаются pending.
func (m *Manager) planRingsLocked(center vec.Vec2) [][]vec.Vec2 {
	radius := m.opts.Radius
	ringMap := make(map[int][]vec.Vec2)

	for dx := -radius; dx <= radius; dx++ {
		for dz := -radius; dz <= radius; dz++ {
			key := vec.Vec2{X: center.X + dx, Z: center.Z + dz}
			dist := center.DistanceTo(key)
			if dist > float64(radius) {
				continue
			}
			if _, ok := m.loaded[key]; ok {
				continue
			}
			if _, ok := m.pending[key]; ok {
				continue
			}
			// Отказавшие чанки не перезапрашиваем
			if _, ok := m.failed[key]; ok {
				continue
			}

			m.pending[key] = struct{}{}
			ring := int(math.Ceil(dist))
			ringMap[ring] = append(ringMap[ring], key)
		}
	}
	m.updateGaugesLocked()

	ringNums := make([]int, 0, len(ringMap))
	for r := range ringMap {
		ringNums = append(ringNums, r)
	}
	sort.Ints(ringNums)

	rings := make([][]vec.Vec2, 0, len(ringNums))
	for _, r := range ringNums {
		keys := ringMap[r]
		sort.Slice(keys, func(i, j int) bool {
			di, dj := center.DistanceTo(keys[i]), center.DistanceTo(keys[j])
			if di != dj {
				return di < dj
			}
			if keys[i].X != keys[j].X {
				return keys[i].X < keys[j].X
			}
			return keys[i].Z < keys[j].Z
		})
		rings = append(rings, keys)
	}
	return rings
}

// loadRings обрабатывает план загрузки: пакеты фиксированного размера с
// паузами, кольцо за кольцом. Устаревание проверяется на завершении каждого
// чанка, а не здесь: сам план дешёвый, дорогая только материализация.
func (m *Manager) loadRings(ctx context.Context, rings [][]vec.Vec2, generation uint64) {
	defer m.wg.Done()

	for ri, ring := range rings {
		for i := 0; i < len(ring); i += m.opts.BatchSize {
			end := i + m.opts.BatchSize
			if end > len(ring) {
				end = len(ring)
			}

			var batch sync.WaitGroup
			for _, key := range ring[i:end] {
				batch.Add(1)
				go func(k vec.Vec2) {
					defer batch.Done()
					m.loadOne(ctx, k, generation)
				}(key)
			}
			batch.Wait()

			if ctx.Err() != nil {
				m.abandonPending(rings, ri, end, generation)
				return
			}
			if end < len(ring) && m.opts.BatchPause > 0 {
				time.Sleep(m.opts.BatchPause)
			}
		}
		if ri < len(rings)-1 && m.opts.RingPause > 0 {
			time.Sleep(m.opts.RingPause)
		}
	}
}

// loadOne запрашивает один чанк и фиксирует результат.
func (m *Manager) loadOne(ctx context.Context, key vec.Vec2, generation uint64) {
	start := time.Now()
	result, err := m.provider.RequestChunk(ctx, key)
	elapsed := time.Since(start)

	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.pending, key)

	// Устаревшее завершение: мир перегенерирован или игрок ушёл так
	// далеко, что чанк уже вне зоны удержания. Результат отбрасываем
	// без следа — чанк снова «незапрошен».
	if generation != m.generation {
		m.updateGaugesLocked()
		return
	}
	if m.hasPlayer && m.playerChunk.ChebyshevTo(key) > m.opts.Radius+m.opts.Hysteresis {
		m.updateGaugesLocked()
		return
	}

	if err != nil {
		m.failed[key] = err
		m.log.Warn("❌ Отказ загрузки чанка %v: %v", key, err)
		if m.metrics != nil {
			m.metrics.loadFailures.Inc()
		}
		m.publishLoadFailed(key, err)
		m.updateGaugesLocked()
		return
	}

	chunk, err := m.codec.Decode(result.Payload)
	if err != nil {
		m.failed[key] = err
		m.log.Error("❌ Повреждённый payload чанка %v: %v", key, err)
		if m.metrics != nil {
			m.metrics.loadFailures.Inc()
		}
		m.publishLoadFailed(key, err)
		m.updateGaugesLocked()
		return
	}

	m.loaded[key] = &LoadedChunk{
		Key:    key,
		Chunk:  chunk,
		Faces:  result.Faces,
		Loaded: time.Now(),
	}
	if m.metrics != nil {
		m.metrics.loadDuration.Observe(elapsed.Seconds())
	}
	m.updateGaugesLocked()
}

// abandonPending снимает метку pending с чанков, которые так и не были
// запрошены из-за отмены контекста.
func (m *Manager) abandonPending(rings [][]vec.Vec2, ringIdx, offset int, generation uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if generation != m.generation {
		return
	}
	for ri := ringIdx; ri < len(rings); ri++ {
		start := 0
		if ri == ringIdx {
			start = offset
		}
		for _, key := range rings[ri][start:] {
			delete(m.pending, key)
		}
	}
	m.updateGaugesLocked()
}

// evictFarLocked выгружает чанки дальше радиуса удержания (радиус +
// гистерезис по Чебышёву). Вызывается под мьютексом.
func (m *Manager) evictFarLocked(center vec.Vec2) {
	keep := m.opts.Radius + m.opts.Hysteresis
	evicted := 0
	for key := range m.loaded {
		if center.ChebyshevTo(key) > keep {
			delete(m.loaded, key)
			evicted++
		}
	}
	if evicted > 0 {
		m.log.Debug("🗑️ Выгружено %d чанков за радиусом удержания %d", evicted, keep)
		if m.metrics != nil {
			m.metrics.evictions.Add(float64(evicted))
		}
	}
	m.updateGaugesLocked()
}

// BlockAt возвращает блок по мировым координатам и признак известности.
// known=false означает, что чанк ещё не загружен: вызывающий обязан
// различать «неизвестно» и «воздух». Для загруженного чанка координаты
// ниже дна и выше потолка мира — достоверный воздух.
func (m *Manager) BlockAt(worldX, worldY, worldZ int) (block.BlockID, bool) {
	key := vec.ChunkOf(worldX, worldZ)

	m.mu.Lock()
	lc, ok := m.loaded[key]
	m.mu.Unlock()

	if !ok {
		return block.AirBlockID, false
	}
	if worldY < 0 || worldY >= world.WorldHeight {
		return block.AirBlockID, true
	}
	id, _ := lc.Chunk.BlockAtWorld(worldX, worldY, worldZ)
	return id, true
}

// IsChunkLoaded сообщает, есть ли чанк в кэше.
func (m *Manager) IsChunkLoaded(key vec.Vec2) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.loaded[key]
	return ok
}

// ChunkFaces возвращает видимые грани загруженного чанка (nil, если чанк
// не загружен).
func (m *Manager) ChunkFaces(key vec.Vec2) []mesh.BlockFace {
	m.mu.Lock()
	defer m.mu.Unlock()
	if lc, ok := m.loaded[key]; ok {
		return lc.Faces
	}
	return nil
}

// Snapshot возвращает текущее состояние стриминга.
func (m *Manager) Snapshot() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Stats{
		Loaded:      len(m.loaded),
		Pending:     len(m.pending),
		Failed:      len(m.failed),
		Radius:      m.opts.Radius,
		Hysteresis:  m.opts.Hysteresis,
		PlayerChunk: m.playerChunk,
		HasPlayer:   m.hasPlayer,
	}
}

// InvalidateAll сбрасывает кэш целиком (перегенерация мира). Поднимает
// поколение, чтобы результаты уже идущих загрузок были отброшены.
func (m *Manager) InvalidateAll() {
	m.mu.Lock()
	invalidated := len(m.loaded)
	m.generation++
	m.loaded = make(map[vec.Vec2]*LoadedChunk)
	m.pending = make(map[vec.Vec2]struct{})
	m.failed = make(map[vec.Vec2]error)
	m.hasPlayer = false
	m.updateGaugesLocked()
	m.mu.Unlock()

	m.log.Info("🔄 Кэш чанков сброшен: инвалидировано %d чанков", invalidated)
}

// Wait блокируется до завершения всех запущенных загрузок.
func (m *Manager) Wait() {
	m.wg.Wait()
}

// Close дожидается загрузок и освобождает кодек.
func (m *Manager) Close() {
	m.wg.Wait()
	m.codec.Close()
}

func (m *Manager) publishLoadFailed(key vec.Vec2, cause error) {
	ev := &eventbus.Envelope{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Source:    "streaming",
		EventType: "ChunkLoadFailed",
		Version:   1,
		Payload:   []byte(fmt.Sprintf(`{"chunk_x":%d,"chunk_z":%d,"error":%q}`, key.X, key.Z, cause.Error())),
	}
	if err := eventbus.Publish(context.Background(), ev); err != nil {
		m.log.Warn("Не удалось опубликовать ChunkLoadFailed: %v", err)
	}
}

func (m *Manager) updateGaugesLocked() {
	if m.metrics == nil {
		return
	}
	m.metrics.loaded.Set(float64(len(m.loaded)))
	m.metrics.pending.Set(float64(len(m.pending)))
	m.metrics.failed.Set(float64(len(m.failed)))
}
