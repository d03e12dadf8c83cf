package vec

import "math"

// Vec2 представляет целочисленные координаты на горизонтальной плоскости (X, Z).
// Используется как ключ чанка и для колоночных операций.
type Vec2 struct {
	X, Z int
}

// ChunkOf возвращает координаты чанка, содержащего мировую колонку (x, z).
// floor-деление на 16 корректно для отрицательных координат.
func ChunkOf(x, z int) Vec2 {
	return Vec2{X: x >> 4, Z: z >> 4}
}

// WorldOrigin возвращает мировые координаты юго-западного угла чанка.
func (v Vec2) WorldOrigin() Vec2 {
	return Vec2{X: v.X << 4, Z: v.Z << 4}
}

// LocalInChunk возвращает локальные координаты колонки внутри чанка (0..15).
func LocalInChunk(x, z int) Vec2 {
	return Vec2{X: x & 0xF, Z: z & 0xF}
}

// ChebyshevTo возвращает расстояние Чебышёва до другой точки.
func (v Vec2) ChebyshevTo(other Vec2) int {
	dx := v.X - other.X
	if dx < 0 {
		dx = -dx
	}
	dz := v.Z - other.Z
	if dz < 0 {
		dz = -dz
	}
	if dx > dz {
		return dx
	}
	return dz
}

// DistanceTo вычисляет евклидово расстояние до другой точки.
func (v Vec2) DistanceTo(other Vec2) float64 {
	dx := float64(v.X - other.X)
	dz := float64(v.Z - other.Z)
	return math.Sqrt(dx*dx + dz*dz)
}
