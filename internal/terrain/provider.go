package terrain

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/blockcity/voxel-engine/internal/mesh"
	"github.com/blockcity/voxel-engine/internal/vec"
	"github.com/blockcity/voxel-engine/internal/world"
)

// ChunkResult — результат загрузки одного чанка: сжатая решётка блоков
// плюс извлечённые видимые грани. Payload хранится в формате Codec, чтобы
// локальный и сетевой источники выглядели для стриминга одинаково.
type ChunkResult struct {
	Key     vec.Vec2
	Payload []byte
	Faces   []mesh.BlockFace
}

// ChunkProvider — источник чанков для стриминг-менеджера.
// Локальная реализация материализует чанк из генератора; та же сигнатура
// покрывает и удалённый источник (запрос по сети).
type ChunkProvider interface {
	RequestChunk(ctx context.Context, key vec.Vec2) (*ChunkResult, error)
}

// LocalProvider материализует чанки из мирового менеджера в том же процессе.
type LocalProvider struct {
	world  *world.Manager
	codec  *Codec
	tracer trace.Tracer
}

// NewLocalProvider создаёт локальный источник чанков.
func NewLocalProvider(wm *world.Manager) (*LocalProvider, error) {
	codec, err := NewCodec()
	if err != nil {
		return nil, fmt.Errorf("codec: %w", err)
	}
	return &LocalProvider{
		world:  wm,
		codec:  codec,
		tracer: otel.Tracer("voxel-engine/terrain"),
	}, nil
}

// RequestChunk материализует чанк, кодирует решётку и извлекает грани.
func (p *LocalProvider) RequestChunk(ctx context.Context, key vec.Vec2) (*ChunkResult, error) {
	ctx, span := p.tracer.Start(ctx, "terrain.RequestChunk",
		trace.WithAttributes(
			attribute.Int("chunk.x", key.X),
			attribute.Int("chunk.z", key.Z),
		))
	defer span.End()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	_, matSpan := p.tracer.Start(ctx, "terrain.Materialize")
	chunk := p.world.MaterializeChunk(key)
	matSpan.End()

	_, meshSpan := p.tracer.Start(ctx, "terrain.ExtractFaces")
	faces := mesh.ExtractFaces(chunk)
	meshSpan.SetAttributes(attribute.Int("faces.count", len(faces)))
	meshSpan.End()

	payload := p.codec.Encode(chunk)
	span.SetAttributes(attribute.Int("payload.bytes", len(payload)))

	return &ChunkResult{Key: key, Payload: payload, Faces: faces}, nil
}

// Decode восстанавливает чанк из payload результата.
func (p *LocalProvider) Decode(payload []byte) (*world.Chunk, error) {
	return p.codec.Decode(payload)
}

// Close освобождает ресурсы кодека.
func (p *LocalProvider) Close() {
	p.codec.Close()
}
