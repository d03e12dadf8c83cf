package physics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockcity/voxel-engine/internal/vec"
	"github.com/blockcity/voxel-engine/internal/world/block"
)

// flatWorld — плоский мир для тестов: камень до уровня surface включительно,
// выше воздух, плюс произвольные дополнительные блоки. Все блоки известны,
// кроме явно отмеченных незагруженных чанков.
type flatWorld struct {
	surface  int
	extra    map[vec.Vec3]block.BlockID
	unloaded map[vec.Vec2]bool
}

func newFlatWorld(surface int) *flatWorld {
	return &flatWorld{
		surface:  surface,
		extra:    make(map[vec.Vec3]block.BlockID),
		unloaded: make(map[vec.Vec2]bool),
	}
}

func (w *flatWorld) BlockAt(x, y, z int) (block.BlockID, bool) {
	if w.unloaded[vec.ChunkOf(x, z)] {
		return block.AirBlockID, false
	}
	if id, ok := w.extra[vec.Vec3{X: x, Y: y, Z: z}]; ok {
		return id, true
	}
	if y <= w.surface {
		return block.StoneBlockID, true
	}
	return block.AirBlockID, true
}

func (w *flatWorld) IsChunkLoaded(key vec.Vec2) bool {
	return !w.unloaded[key]
}

const testDt = 1.0 / 20.0

func stepN(e *Engine, s *PlayerState, in InputState, n int) {
	for i := 0; i < n; i++ {
		e.Step(s, in, testDt)
	}
}

func TestEngine_GatesOnUnloadedChunk(t *testing.T) {
	w := newFlatWorld(10)
	w.unloaded[vec.Vec2{X: 0, Z: 0}] = true
	e := NewEngine(w)

	state := &PlayerState{
		Position: vec.Vec3Float{X: 0.5, Y: 70, Z: 0.5},
		Velocity: vec.Vec3Float{X: 1, Y: -5, Z: 0},
	}
	before := *state

	ok := e.Step(state, InputState{Forward: true}, testDt)
	assert.False(t, ok, "Тик должен быть пропущен: чанк сущности не загружен")
	assert.Equal(t, before, *state, "Состояние при пропуске тика не меняется, включая скорость")
}

func TestEngine_FallsAndLandsOnSurface(t *testing.T) {
	// Падение со спауна: сущность должна успокоиться на поверхности.
	// Блок на уровне 10 — ноги на 11.
	w := newFlatWorld(10)
	e := NewEngine(w)

	state := &PlayerState{Position: vec.Vec3Float{X: 0.5, Y: 70, Z: 0.5}}
	stepN(e, state, InputState{}, 400)

	assert.True(t, state.OnGround, "После падения сущность должна стоять на земле")
	assert.InDelta(t, 11.0, state.Position.Y, 0.01, "Ноги должны лежать на верхней грани блока y=10")
	assert.InDelta(t, 0.0, state.Velocity.Y, 1e-9, "Вертикальная скорость на земле нулевая")
	assert.InDelta(t, 0.5, state.Position.X, 1e-9, "Горизонтальная позиция без ввода не меняется")
	assert.InDelta(t, 0.5, state.Position.Z, 1e-9)
}

func TestEngine_NoTunnelingAtHighFallSpeed(t *testing.T) {
	// Даже при скорости, близкой к потолку, свип по ячейкам не должен
	// пропустить поверхность
	w := newFlatWorld(10)
	e := NewEngine(w)

	state := &PlayerState{
		Position: vec.Vec3Float{X: 0.5, Y: 60, Z: 0.5},
		Velocity: vec.Vec3Float{Y: -MaxSpeed},
	}
	stepN(e, state, InputState{}, 100)

	assert.True(t, state.OnGround)
	assert.InDelta(t, 11.0, state.Position.Y, 0.01, "Быстрое падение не должно пробивать поверхность")
}

func TestEngine_Jump(t *testing.T) {
	w := newFlatWorld(10)
	e := NewEngine(w)

	state := &PlayerState{Position: vec.Vec3Float{X: 0.5, Y: 11, Z: 0.5}}
	stepN(e, state, InputState{}, 5) // даём встать на землю
	require.True(t, state.OnGround)

	e.Step(state, InputState{Jump: true}, testDt)
	assert.False(t, state.OnGround, "После прыжка сущность в воздухе")
	assert.Greater(t, state.Velocity.Y, 0.0, "Прыжок должен дать вертикальный импульс")

	peak := state.Position.Y
	for i := 0; i < 200; i++ {
		e.Step(state, InputState{}, testDt)
		if state.Position.Y > peak {
			peak = state.Position.Y
		}
	}
	assert.Greater(t, peak, 12.0, "Прыжок должен поднять выше чем на блок")
	assert.True(t, state.OnGround, "После прыжка сущность возвращается на землю")
	assert.InDelta(t, 11.0, state.Position.Y, 0.01)
}

func TestEngine_JumpRequiresGround(t *testing.T) {
	w := newFlatWorld(10)
	e := NewEngine(w)

	state := &PlayerState{Position: vec.Vec3Float{X: 0.5, Y: 20, Z: 0.5}}
	e.Step(state, InputState{Jump: true}, testDt)
	assert.Less(t, state.Velocity.Y, 0.0, "В воздухе прыжок не даёт импульса")
}

func TestEngine_WalkAndRunSpeeds(t *testing.T) {
	w := newFlatWorld(10)
	e := NewEngine(w)

	// Yaw 0: взгляд вдоль +X
	state := &PlayerState{Position: vec.Vec3Float{X: 0.5, Y: 11, Z: 0.5}}
	stepN(e, state, InputState{Forward: true}, 200)

	speed := state.Velocity.HorizontalLength()
	assert.InDelta(t, WalkSpeed, speed, 0.1, "Скорость ходьбы должна сойтись к целевой")
	assert.Greater(t, state.Position.X, 10.0, "Сущность должна продвинуться вдоль взгляда")
	assert.InDelta(t, 0.5, state.Position.Z, 0.01, "Без стрейфа боковой снос отсутствует")

	stepN(e, state, InputState{Forward: true, Run: true}, 200)
	assert.InDelta(t, RunSpeed, state.Velocity.HorizontalLength(), 0.1,
		"Бег должен сойтись к своей целевой скорости")
}

func TestEngine_FrictionStopsMovement(t *testing.T) {
	w := newFlatWorld(10)
	e := NewEngine(w)

	state := &PlayerState{Position: vec.Vec3Float{X: 0.5, Y: 11, Z: 0.5}}
	stepN(e, state, InputState{Forward: true}, 100)
	require.Greater(t, state.Velocity.HorizontalLength(), 1.0)

	stepN(e, state, InputState{}, 200)
	assert.Less(t, state.Velocity.HorizontalLength(), 0.01,
		"Без ввода трение должно погасить горизонтальную скорость")
}

func TestEngine_WallStopsMovement(t *testing.T) {
	// Стена на ячейке x=3 высотой в два блока поперёк пути
	w := newFlatWorld(10)
	for z := -2; z <= 3; z++ {
		for y := 11; y <= 13; y++ {
			w.extra[vec.Vec3{X: 3, Y: y, Z: z}] = block.StoneBlockID
		}
	}
	e := NewEngine(w)

	state := &PlayerState{Position: vec.Vec3Float{X: 0.5, Y: 11, Z: 0.5}}
	stepN(e, state, InputState{Forward: true}, 200)

	assert.LessOrEqual(t, state.Position.X, 3.0-halfWidth, "Стена должна остановить движение")
	assert.InDelta(t, 3.0-halfWidth, state.Position.X, 0.01, "Сущность прижимается к стене")
	assert.InDelta(t, 0.0, state.Velocity.X, 1e-6, "Скорость в стену обнуляется")
	assert.True(t, state.OnGround, "У стены сущность остаётся на земле")
}

func TestEngine_CeilingStopsJump(t *testing.T) {
	// Потолок на ячейке y=13: прыжок в упор должен обнулить подъём
	w := newFlatWorld(10)
	for x := -1; x <= 1; x++ {
		for z := -1; z <= 1; z++ {
			w.extra[vec.Vec3{X: x, Y: 13, Z: z}] = block.StoneBlockID
		}
	}
	e := NewEngine(w)

	state := &PlayerState{Position: vec.Vec3Float{X: 0.5, Y: 11, Z: 0.5}}
	stepN(e, state, InputState{}, 5)
	require.True(t, state.OnGround)

	e.Step(state, InputState{Jump: true}, testDt)
	maxHead := 0.0
	for i := 0; i < 100; i++ {
		e.Step(state, InputState{}, testDt)
		if head := state.Position.Y + bodyHeight; head > maxHead {
			maxHead = head
		}
	}
	assert.LessOrEqual(t, maxHead, 13.0, "Голова не должна войти в потолок")
	assert.True(t, state.OnGround, "После удара о потолок сущность падает обратно")
}

func TestEngine_FlyMode(t *testing.T) {
	w := newFlatWorld(10)
	e := NewEngine(w)

	state := &PlayerState{Position: vec.Vec3Float{X: 0.5, Y: 11, Z: 0.5}}
	stepN(e, state, InputState{}, 5)
	require.True(t, state.OnGround)

	// Включаем полёт и поднимаемся
	e.Step(state, InputState{FlyToggle: true}, testDt)
	require.True(t, state.Flying, "FlyToggle должен включить полёт")

	stepN(e, state, InputState{Jump: true}, 100)
	assert.Greater(t, state.Position.Y, 15.0, "В полёте Jump поднимает вверх")

	// Зависание: без ввода гравитация не действует, остаточная скорость
	// гасится приближением к нулевой цели
	hover := state.Position.Y
	stepN(e, state, InputState{}, 60)
	assert.GreaterOrEqual(t, state.Position.Y, hover, "В полёте без ввода высота не падает")
	assert.Less(t, state.Position.Y-hover, 2.0, "Остаточный подъём должен быстро гаситься")
	assert.Less(t, math.Abs(state.Velocity.Y), 0.01, "Вертикальная скорость в зависании гаснет")

	// Выключаем полёт — гравитация возвращает на землю
	e.Step(state, InputState{FlyToggle: true}, testDt)
	require.False(t, state.Flying)
	stepN(e, state, InputState{}, 400)
	assert.True(t, state.OnGround, "После выключения полёта сущность падает на землю")
	assert.InDelta(t, 11.0, state.Position.Y, 0.01)
}

func TestEngine_SpeedClamp(t *testing.T) {
	w := newFlatWorld(10)
	e := NewEngine(w)

	state := &PlayerState{
		Position: vec.Vec3Float{X: 0.5, Y: 30, Z: 0.5},
		Velocity: vec.Vec3Float{X: 100, Y: -100, Z: 100},
	}
	e.Step(state, InputState{}, testDt)
	assert.LessOrEqual(t, state.Velocity.Length(), MaxSpeed+1e-9,
		"Модуль скорости не должен превышать потолок")
}

func TestEngine_DtClamped(t *testing.T) {
	// Гигантский dt режется до потолка: одна итерация не должна
	// телепортировать сущность сквозь мир
	w := newFlatWorld(10)
	e := NewEngine(w)

	state := &PlayerState{
		Position: vec.Vec3Float{X: 0.5, Y: 20, Z: 0.5},
		Velocity: vec.Vec3Float{Y: -10},
	}
	e.Step(state, InputState{}, 5.0)

	drop := 20 - state.Position.Y
	maxDrop := (10 + math.Abs(Gravity)*maxStepSeconds) * maxStepSeconds
	assert.LessOrEqual(t, drop, maxDrop+1e-9, "Шаг интегрирования должен быть ограничен")
}
