package world

import (
	"github.com/blockcity/voxel-engine/internal/vec"
)

// Materializer строит полный блочный объём чанка повторными вызовами
// генератора. Кэша между чанками нет намеренно: генератор без состояния,
// а пересчёт снимает весь класс ошибок инвалидации. Единственный кэш —
// высоты колонок внутри одной материализации.
type Materializer struct {
	gen *TerrainGenerator
}

// NewMaterializer создаёт материализатор поверх генератора
func NewMaterializer(gen *TerrainGenerator) *Materializer {
	return &Materializer{gen: gen}
}

// Materialize строит чанк по его координатам. Возвращаемый чанк всегда
// содержит ровно 16x16x32 блока, включая воздух.
func (m *Materializer) Materialize(coords vec.Vec2) *Chunk {
	chunk := NewChunk(coords)
	origin := coords.WorldOrigin()

	for localX := 0; localX < ChunkSizeX; localX++ {
		for localZ := 0; localZ < ChunkSizeZ; localZ++ {
			worldX := origin.X + localX
			worldZ := origin.Z + localZ

			// Высота колонки считается один раз на все 32 слоя
			height := m.gen.ColumnHeight(worldX, worldZ)

			for y := 0; y < WorldHeight; y++ {
				chunk.Blocks[y][localX][localZ] = m.gen.BlockAtWithHeight(worldX, y, worldZ, height)
			}
		}
	}

	return chunk
}
