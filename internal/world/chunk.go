package world

import (
	"github.com/blockcity/voxel-engine/internal/vec"
	"github.com/blockcity/voxel-engine/internal/world/block"
)

// Геометрия мира. Константы, а не конфигурация: изменение любого из этих
// значений делает клиентов взаимно несовместимыми.
const (
	ChunkSizeX  = 16 // Горизонтальный размер чанка по X
	ChunkSizeZ  = 16 // Горизонтальный размер чанка по Z
	WorldHeight = 32 // Количество вертикальных слоёв
)

// BlocksPerChunk — полный объём чанка, включая воздух.
const BlocksPerChunk = ChunkSizeX * ChunkSizeZ * WorldHeight

// Chunk представляет участок мира размером 16x16 колонок по 32 слоя.
// Воздушные блоки хранятся наравне с остальными, чтобы отсечение граней
// работало без внешнего запроса «существует ли блок».
type Chunk struct {
	Coords vec.Vec2 // Координаты чанка в мире

	// Blocks[y][x][z] — слой, затем локальные координаты колонки
	Blocks [WorldHeight][ChunkSizeX][ChunkSizeZ]block.BlockID
}

// NewChunk создаёт пустой (воздушный) чанк с указанными координатами
func NewChunk(coords vec.Vec2) *Chunk {
	return &Chunk{Coords: coords}
}

// InBounds проверяет, попадают ли локальные координаты в объём чанка
func InBounds(localX, y, localZ int) bool {
	return localX >= 0 && localX < ChunkSizeX &&
		y >= 0 && y < WorldHeight &&
		localZ >= 0 && localZ < ChunkSizeZ
}

// Get возвращает блок по локальным координатам.
// Вне объёма чанка возвращает воздух.
func (c *Chunk) Get(localX, y, localZ int) block.BlockID {
	if !InBounds(localX, y, localZ) {
		return block.AirBlockID
	}
	return c.Blocks[y][localX][localZ]
}

// Set устанавливает блок по локальным координатам
func (c *Chunk) Set(localX, y, localZ int, id block.BlockID) {
	if !InBounds(localX, y, localZ) {
		return
	}
	c.Blocks[y][localX][localZ] = id
}

// WorldOrigin возвращает мировые координаты колонки (0,0) чанка
func (c *Chunk) WorldOrigin() (worldX, worldZ int) {
	origin := c.Coords.WorldOrigin()
	return origin.X, origin.Z
}

// BlockAtWorld возвращает блок по мировым координатам.
// Второе значение false, если координаты вне этого чанка.
func (c *Chunk) BlockAtWorld(worldX, worldY, worldZ int) (block.BlockID, bool) {
	originX, originZ := c.WorldOrigin()
	localX := worldX - originX
	localZ := worldZ - originZ
	if !InBounds(localX, worldY, localZ) {
		return block.AirBlockID, false
	}
	return c.Blocks[worldY][localX][localZ], true
}

// CountNonAir возвращает количество не-воздушных блоков (для статистики)
func (c *Chunk) CountNonAir() int {
	count := 0
	for y := 0; y < WorldHeight; y++ {
		for x := 0; x < ChunkSizeX; x++ {
			for z := 0; z < ChunkSizeZ; z++ {
				if c.Blocks[y][x][z] != block.AirBlockID {
					count++
				}
			}
		}
	}
	return count
}
