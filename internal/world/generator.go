package world

import (
	"math"

	"github.com/aquilax/go-perlin"

	"github.com/blockcity/voxel-engine/internal/world/block"
)

// Константы генерации ландшафта
const (
	UrbanRadius      = 64.0 // Радиус городского плато в блоках
	FloorElevation   = 10   // Высота поверхности плато
	TerrainSlope     = 0.12 // Подъём рельефа за городом, блоков на блок расстояния
	MaxSurfaceHeight = 28   // Потолок рельефа (меньше WorldHeight)
	DirtDepth        = 3    // Толщина слоя земли под поверхностью
)

// Константы городской застройки
const (
	RoadSpacing       = 16  // Период дорожной сетки
	RoadWidth         = 3   // Ширина дороги в блоках
	MinBuildingLevels = 3   // Минимальная высота здания над плато
	MaxBuildingLevels = 8   // Максимальная высота здания над плато
	GlassChance       = 0.3 // Вероятность стекла вместо стены
)

// Константы рудных жил в глубинном камне
const (
	oreScale     = 0.17 // Масштаб шума рудного поля
	oreThreshold = 0.62 // Порог появления руды
)

// columnSeedK — множитель колоночного сида застройки (x*K + z)
const columnSeedK = 73428767

// Параметры линейного конгруэнтного генератора (как в glibc)
const (
	lcgA = 1103515245
	lcgC = 12345
	lcgM = 1 << 31
)

// TerrainGenerator — чистая функция (worldX, worldY, worldZ) -> BlockID.
// Состояния нет: повторные вызовы с одним сидом всегда дают один результат,
// поэтому генератор безопасен для конкурентных вызовов по разным чанкам.
type TerrainGenerator struct {
	Seed int64
	ore  *perlin.Perlin // Детерминированное 3D-поле руды, только чтение
}

// NewTerrainGenerator создаёт генератор ландшафта для указанного сида
func NewTerrainGenerator(seed int64) *TerrainGenerator {
	return &TerrainGenerator{
		Seed: seed,
		ore:  perlin.NewPerlin(2.0, 2.0, 3, seed+1),
	}
}

// ColumnHeight возвращает высоту поверхности колонки (worldX, worldZ).
// Внутри городского радиуса — плоское плато; дальше высота растёт
// линейно с расстоянием до начала координат вплоть до потолка.
func (g *TerrainGenerator) ColumnHeight(worldX, worldZ int) int {
	dist := math.Hypot(float64(worldX), float64(worldZ))
	if dist <= UrbanRadius {
		return FloorElevation
	}

	height := FloorElevation + int((dist-UrbanRadius)*TerrainSlope)
	if height > MaxSurfaceHeight {
		height = MaxSurfaceHeight
	}
	return height
}

// IsUrban возвращает true для колонок внутри городского радиуса
func (g *TerrainGenerator) IsUrban(worldX, worldZ int) bool {
	return math.Hypot(float64(worldX), float64(worldZ)) <= UrbanRadius
}

// BlockAt возвращает тип блока для мировых координат. Функция тотальна:
// определена для любых целых, включая координаты ниже дна (там бедрок).
// Вертикальную отсечку по высоте мира делает вызывающая сторона.
func (g *TerrainGenerator) BlockAt(worldX, worldY, worldZ int) block.BlockID {
	return g.BlockAtWithHeight(worldX, worldY, worldZ, g.ColumnHeight(worldX, worldZ))
}

// BlockAtWithHeight — вариант BlockAt с уже вычисленной высотой колонки.
// Используется материализатором, который считает высоту один раз на колонку.
func (g *TerrainGenerator) BlockAtWithHeight(worldX, worldY, worldZ, height int) block.BlockID {
	// Дно мира всегда запечатано
	if worldY <= 0 {
		return block.BedrockBlockID
	}

	if g.IsUrban(worldX, worldZ) {
		if id, ok := g.urbanBlockAt(worldX, worldY, worldZ); ok {
			return id
		}
	}

	switch {
	case worldY > height:
		return block.AirBlockID
	case worldY == height:
		if g.IsUrban(worldX, worldZ) {
			return block.StoneBlockID
		}
		return block.GrassBlockID
	case worldY >= height-DirtDepth:
		return block.DirtBlockID
	default:
		return g.deepBlock(worldX, worldY, worldZ)
	}
}

// urbanBlockAt применяет городское правило: периодическая дорожная сетка,
// между дорогами — поколоночные здания. Второе значение false, когда правило
// не даёт определённого типа и действуют обычные правила высоты.
func (g *TerrainGenerator) urbanBlockAt(worldX, worldY, worldZ int) (block.BlockID, bool) {
	if isRoadCell(worldX, worldZ) {
		switch worldY {
		case FloorElevation:
			return block.RoadBlockID, true
		case FloorElevation - 1:
			// Фундамент под дорожным покрытием
			return block.StoneBlockID, true
		}
		return block.AirBlockID, false
	}

	return g.buildingBlockAt(worldX, worldY, worldZ)
}

// buildingBlockAt — детерминированная поколоночная застройка. Генератор
// случайных чисел пересоздаётся на каждый вызов с сидом колонки, а выборки
// идут в фиксированном порядке (высота, затем по одной на уровень), поэтому
// любой запрос к колонке и уровню самосогласован между вызовами.
func (g *TerrainGenerator) buildingBlockAt(worldX, worldY, worldZ int) (block.BlockID, bool) {
	rng := newColumnRand(worldX, worldZ, g.Seed)
	levels := MinBuildingLevels + rng.intn(MaxBuildingLevels-MinBuildingLevels+1)
	top := FloorElevation + levels

	if worldY < FloorElevation || worldY > top {
		return block.AirBlockID, false
	}

	switch worldY {
	case FloorElevation:
		return block.BuildingFloorBlockID, true
	case top:
		return block.BuildingRoofBlockID, true
	}

	// Пропускаем выборки нижних уровней, чтобы уровень worldY всегда
	// получал одно и то же значение из последовательности
	for level := FloorElevation + 1; level < worldY; level++ {
		rng.next()
	}
	if rng.float64() < GlassChance {
		return block.GlassBlockID, true
	}
	return block.BuildingWallBlockID, true
}

// deepBlock возвращает глубинный камень, изредка замещённый рудой.
// Рудное поле — порог над детерминированным 3D-шумом Перлина, тип руды
// зависит от глубины: чем ниже, тем ценнее.
func (g *TerrainGenerator) deepBlock(worldX, worldY, worldZ int) block.BlockID {
	noise := g.ore.Noise3D(
		float64(worldX)*oreScale,
		float64(worldY)*oreScale,
		float64(worldZ)*oreScale,
	)
	if noise < oreThreshold {
		return block.StoneBlockID
	}

	switch {
	case worldY <= 3:
		return block.DiamondOreBlockID
	case worldY <= 5:
		return block.GoldOreBlockID
	case worldY <= 8:
		return block.IronOreBlockID
	default:
		return block.CoalOreBlockID
	}
}

// isRoadCell проверяет попадание колонки в дорожную сетку по любой из осей
func isRoadCell(worldX, worldZ int) bool {
	return floorMod(worldX, RoadSpacing) < RoadWidth || floorMod(worldZ, RoadSpacing) < RoadWidth
}

// floorMod — модуль с неотрицательным результатом для отрицательных координат
func floorMod(a, n int) int {
	m := a % n
	if m < 0 {
		m += n
	}
	return m
}

// columnRand — простой LCG, пересоздаваемый на каждую колонку.
// Не криптография и не math/rand: важна только воспроизводимость
// последовательности от (x, z, seed).
type columnRand struct {
	state int64
}

func newColumnRand(worldX, worldZ int, seed int64) *columnRand {
	state := (int64(worldX)*columnSeedK + int64(worldZ) + seed) % lcgM
	if state < 0 {
		state += lcgM
	}
	return &columnRand{state: state}
}

func (r *columnRand) next() int64 {
	r.state = (r.state*lcgA + lcgC) % lcgM
	return r.state
}

func (r *columnRand) intn(n int) int {
	return int(r.next() % int64(n))
}

func (r *columnRand) float64() float64 {
	return float64(r.next()) / float64(lcgM)
}
