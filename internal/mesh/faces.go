package mesh

import (
	"github.com/blockcity/voxel-engine/internal/vec"
	"github.com/blockcity/voxel-engine/internal/world"
	"github.com/blockcity/voxel-engine/internal/world/block"
)

// FaceDirection — направление видимой грани блока
type FaceDirection int

const (
	FaceTop    FaceDirection = iota // +Y
	FaceBottom                      // -Y
	FaceNorth                       // -Z
	FaceSouth                       // +Z
	FaceEast                        // +X
	FaceWest                        // -X
)

// String возвращает строковое представление направления
func (d FaceDirection) String() string {
	switch d {
	case FaceTop:
		return "top"
	case FaceBottom:
		return "bottom"
	case FaceNorth:
		return "north"
	case FaceSouth:
		return "south"
	case FaceEast:
		return "east"
	case FaceWest:
		return "west"
	default:
		return "unknown"
	}
}

// BlockFace — одна видимая грань блока, готовая к передаче рендереру:
// 4 вершины, 4 нормали, 4 текстурные координаты.
type BlockFace struct {
	Position  vec.Vec3      // Мировые координаты блока
	Block     block.BlockID // Тип блока (выбор текстуры)
	Direction FaceDirection
	Vertices  [12]float32 // 4 вершины x XYZ
	Normals   [12]float32 // 4 нормали x XYZ
	UVs       [8]float32  // 4 вершины x UV
}

// faceDeltas — смещение соседней ячейки для каждого направления
var faceDeltas = [6]vec.Vec3{
	{X: 0, Y: 1, Z: 0},  // top
	{X: 0, Y: -1, Z: 0}, // bottom
	{X: 0, Y: 0, Z: -1}, // north
	{X: 0, Y: 0, Z: 1},  // south
	{X: 1, Y: 0, Z: 0},  // east
	{X: -1, Y: 0, Z: 0}, // west
}

// faceVertices — единичный квад каждой грани в координатах ячейки [0,1]³.
// Обход вершин против часовой стрелки при взгляде снаружи, чтобы нормаль
// смотрела из блока.
var faceVertices = [6][12]float32{
	{0, 1, 0, 0, 1, 1, 1, 1, 1, 1, 1, 0}, // top
	{0, 0, 0, 1, 0, 0, 1, 0, 1, 0, 0, 1}, // bottom
	{1, 0, 0, 0, 0, 0, 0, 1, 0, 1, 1, 0}, // north
	{0, 0, 1, 1, 0, 1, 1, 1, 1, 0, 1, 1}, // south
	{1, 0, 1, 1, 0, 0, 1, 1, 0, 1, 1, 1}, // east
	{0, 0, 0, 0, 0, 1, 0, 1, 1, 0, 1, 0}, // west
}

// faceNormals — нормаль каждой грани, одинаковая во всех 4 вершинах
var faceNormals = [6][3]float32{
	{0, 1, 0},
	{0, -1, 0},
	{0, 0, -1},
	{0, 0, 1},
	{1, 0, 0},
	{-1, 0, 0},
}

// faceUVs — развёртка единичного квада, общая для всех граней
var faceUVs = [8]float32{0, 0, 1, 0, 1, 1, 0, 1}

// ExtractFaces возвращает все видимые грани материализованного чанка.
// Грань видима, если соседняя ячейка — воздух или лежит вне объёма чанка.
// Соседние чанки намеренно не учитываются: граничные грани всегда
// излучаются, даже если соседний чанк их закрыл бы (принятое приближение,
// сосед может быть ещё не материализован).
func ExtractFaces(chunk *world.Chunk) []BlockFace {
	faces := make([]BlockFace, 0, world.ChunkSizeX*world.ChunkSizeZ*8)
	originX, originZ := chunk.WorldOrigin()

	for y := 0; y < world.WorldHeight; y++ {
		for x := 0; x < world.ChunkSizeX; x++ {
			for z := 0; z < world.ChunkSizeZ; z++ {
				id := chunk.Blocks[y][x][z]
				if id == block.AirBlockID {
					continue
				}

				for dir := 0; dir < 6; dir++ {
					delta := faceDeltas[dir]
					nx, ny, nz := x+delta.X, y+delta.Y, z+delta.Z

					// Решётка чанка — и есть O(1)-индекс занятости:
					// вне объёма Get возвращает воздух
					if world.InBounds(nx, ny, nz) && chunk.Blocks[ny][nx][nz] != block.AirBlockID {
						continue
					}

					faces = append(faces, makeFace(
						vec.Vec3{X: originX + x, Y: y, Z: originZ + z},
						id, FaceDirection(dir),
					))
				}
			}
		}
	}

	return faces
}

// makeFace переносит табличный единичный квад в мировую позицию блока
func makeFace(pos vec.Vec3, id block.BlockID, dir FaceDirection) BlockFace {
	face := BlockFace{
		Position:  pos,
		Block:     id,
		Direction: dir,
		UVs:       faceUVs,
	}

	base := faceVertices[dir]
	normal := faceNormals[dir]
	for i := 0; i < 4; i++ {
		face.Vertices[i*3+0] = base[i*3+0] + float32(pos.X)
		face.Vertices[i*3+1] = base[i*3+1] + float32(pos.Y)
		face.Vertices[i*3+2] = base[i*3+2] + float32(pos.Z)
		face.Normals[i*3+0] = normal[0]
		face.Normals[i*3+1] = normal[1]
		face.Normals[i*3+2] = normal[2]
	}

	return face
}
