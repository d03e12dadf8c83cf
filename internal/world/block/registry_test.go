package block

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_CoreBlocks(t *testing.T) {
	// Базовые блоки должны быть зарегистрированы при инициализации пакета
	for _, id := range []BlockID{
		AirBlockID, StoneBlockID, GrassBlockID, DirtBlockID, WaterBlockID,
		RoadBlockID, BuildingWallBlockID, BuildingFloorBlockID,
		BuildingRoofBlockID, GlassBlockID, BedrockBlockID,
	} {
		assert.True(t, IsValidBlockID(id), "Блок %d должен быть зарегистрирован", id)
	}
}

func TestRegistry_Solidity(t *testing.T) {
	assert.False(t, IsSolid(AirBlockID), "Воздух проходим")
	assert.False(t, IsSolid(WaterBlockID), "Вода проходима")
	assert.True(t, IsSolid(StoneBlockID), "Камень твёрдый")
	assert.True(t, IsSolid(GlassBlockID), "Стекло прозрачно, но твёрдо")
	assert.True(t, IsSolid(BedrockBlockID), "Бедрок твёрдый")

	// Незарегистрированный ID трактуется как твёрдый: безопаснее
	// упереться в неизвестный блок, чем провалиться сквозь него
	assert.True(t, IsSolid(BlockID(60000)), "Неизвестный блок считается твёрдым")
}

func TestRegistry_Properties(t *testing.T) {
	props, ok := Get(GlassBlockID)
	require.True(t, ok)
	assert.True(t, props.Transparent, "Стекло должно быть прозрачным")
	assert.True(t, props.Solid)

	assert.Equal(t, "glass", Name(GlassBlockID))
	assert.Equal(t, "unknown", Name(BlockID(60000)), "Имя незарегистрированного блока — unknown")
}
