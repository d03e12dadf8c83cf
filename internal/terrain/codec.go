package terrain

import (
	"encoding/binary"
	"fmt"

	"github.com/klauspost/compress/zstd"

	"github.com/blockcity/voxel-engine/internal/vec"
	"github.com/blockcity/voxel-engine/internal/world"
	"github.com/blockcity/voxel-engine/internal/world/block"
)

// Формат полезной нагрузки чанка:
//
//	[4] magic "VXC1"
//	[1] версия
//	[4] chunkX (int32 LE)
//	[4] chunkZ (int32 LE)
//	[N] zstd(решётка блоков, uint16 LE, порядок y->x->z)
//
// Решётка чанка — сплошные uint16 с огромными пробегами одинаковых
// значений (воздух, камень), zstd сжимает её на порядок.
const (
	codecMagic   = "VXC1"
	codecVersion = 1
	headerSize   = 4 + 1 + 4 + 4
	gridBytes    = world.BlocksPerChunk * 2
)

// Codec кодирует и декодирует решётку чанка.
// Encoder/Decoder zstd потокобезопасны при использовании EncodeAll/DecodeAll,
// поэтому один Codec разделяется всеми воркерами загрузки.
type Codec struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// NewCodec создаёт кодек с быстрым уровнем сжатия.
func NewCodec() (*Codec, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return nil, fmt.Errorf("zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decoder: %w", err)
	}
	return &Codec{enc: enc, dec: dec}, nil
}

// Encode сериализует чанк в сжатый payload.
func (c *Codec) Encode(chunk *world.Chunk) []byte {
	grid := make([]byte, gridBytes)
	i := 0
	for y := 0; y < world.WorldHeight; y++ {
		for x := 0; x < world.ChunkSizeX; x++ {
			for z := 0; z < world.ChunkSizeZ; z++ {
				binary.LittleEndian.PutUint16(grid[i:], uint16(chunk.Blocks[y][x][z]))
				i += 2
			}
		}
	}

	payload := make([]byte, headerSize, headerSize+len(grid)/4)
	copy(payload[0:4], codecMagic)
	payload[4] = codecVersion
	binary.LittleEndian.PutUint32(payload[5:], uint32(int32(chunk.Coords.X)))
	binary.LittleEndian.PutUint32(payload[9:], uint32(int32(chunk.Coords.Z)))

	return c.enc.EncodeAll(grid, payload)
}

// Decode восстанавливает чанк из payload.
func (c *Codec) Decode(payload []byte) (*world.Chunk, error) {
	if len(payload) < headerSize {
		return nil, fmt.Errorf("payload слишком короткий: %d байт", len(payload))
	}
	if string(payload[0:4]) != codecMagic {
		return nil, fmt.Errorf("неверная сигнатура payload")
	}
	if payload[4] != codecVersion {
		return nil, fmt.Errorf("неподдерживаемая версия payload: %d", payload[4])
	}

	coords := vec.Vec2{
		X: int(int32(binary.LittleEndian.Uint32(payload[5:]))),
		Z: int(int32(binary.LittleEndian.Uint32(payload[9:]))),
	}

	grid, err := c.dec.DecodeAll(payload[headerSize:], make([]byte, 0, gridBytes))
	if err != nil {
		return nil, fmt.Errorf("zstd decode: %w", err)
	}
	if len(grid) != gridBytes {
		return nil, fmt.Errorf("неверный размер решётки: %d байт, ожидалось %d", len(grid), gridBytes)
	}

	chunk := world.NewChunk(coords)
	i := 0
	for y := 0; y < world.WorldHeight; y++ {
		for x := 0; x < world.ChunkSizeX; x++ {
			for z := 0; z < world.ChunkSizeZ; z++ {
				chunk.Blocks[y][x][z] = block.BlockID(binary.LittleEndian.Uint16(grid[i:]))
				i += 2
			}
		}
	}

	return chunk, nil
}

// Close освобождает ресурсы zstd.
func (c *Codec) Close() {
	c.enc.Close()
	c.dec.Close()
}
