package physics

import (
	"math"

	"github.com/blockcity/voxel-engine/internal/logging"
	"github.com/blockcity/voxel-engine/internal/vec"
	"github.com/blockcity/voxel-engine/internal/world/block"
)

// Параметры движения. Скорости в блоках/сек, гравитация в блоках/сек².
const (
	Gravity     = -24.0 // Ускорение свободного падения
	WalkSpeed   = 4.5   // Целевая скорость ходьбы
	RunSpeed    = 8.0   // Целевая скорость бега
	FlySpeed    = 10.0  // Целевая скорость в полёте (по всем осям)
	JumpImpulse = 8.0   // Мгновенная вертикальная скорость прыжка
	MaxSpeed    = 50.0  // Жёсткий потолок модуля скорости

	// Коэффициент экспоненциального приближения к целевой скорости
	accelRate = 10.0
	// Пер-тиковое затухание при отсутствии ввода (нормировано на 60 Гц)
	groundFriction = 0.85
	airFriction    = 0.98

	// Габариты сущности: AABB шириной 0.6 и высотой 1.8
	halfWidth  = 0.3
	bodyHeight = 1.8

	// Зазор от стены после клампа и допуск прилипания к полу
	wallMargin    = 0.001
	groundSnapTol = 0.05

	// Максимальный шаг интегрирования; больший dt режется, а не дробится
	maxStepSeconds = 0.1
)

// BlockQuerier — источник знания о блоках для физики. Ключевой контракт:
// второе значение BlockAt — «известен ли блок вообще», а не «есть ли там
// блок». Незагруженный чанк не означает воздух.
type BlockQuerier interface {
	BlockAt(worldX, worldY, worldZ int) (block.BlockID, bool)
	IsChunkLoaded(key vec.Vec2) bool
}

// InputState — ввод за один тик. FlyToggle — событие нажатия, не уровень.
type InputState struct {
	Forward   bool
	Backward  bool
	Left      bool
	Right     bool
	Jump      bool
	Descend   bool
	Run       bool
	FlyToggle bool
}

// PlayerState — полное кинематическое состояние сущности.
type PlayerState struct {
	Position vec.Vec3Float
	Velocity vec.Vec3Float
	Yaw      float64 // Радианы, направление взгляда по горизонтали
	OnGround bool
	Jumping  bool // Взведён прыжком, сбрасывается при приземлении
	Running  bool
	Flying   bool
}

// Engine — детерминированная покадровая физика на блочной сетке.
type Engine struct {
	blocks BlockQuerier
	log    *logging.Logger
}

// NewEngine создаёт физический движок поверх источника блоков.
func NewEngine(blocks BlockQuerier) *Engine {
	return &Engine{
		blocks: blocks,
		log:    logging.GetPhysicsLogger(),
	}
}

// Step выполняет один тик физики. Возвращает false, если тик пропущен:
// чанк, в котором стоит сущность, ещё не загружен, и двигать её нельзя —
// иначе она провалится сквозь неизвестный мир. Состояние при пропуске
// не меняется, включая скорость.
func (e *Engine) Step(state *PlayerState, input InputState, dt float64) bool {
	entityChunk := vec.ChunkOf(
		int(math.Floor(state.Position.X)),
		int(math.Floor(state.Position.Z)),
	)
	if !e.blocks.IsChunkLoaded(entityChunk) {
		return false
	}

	if dt <= 0 {
		return true
	}
	if dt > maxStepSeconds {
		dt = maxStepSeconds
	}

	if input.FlyToggle {
		state.Flying = !state.Flying
		if state.Flying {
			state.OnGround = false
		}
		e.log.Debug("✈️ Режим полёта: %v", state.Flying)
	}
	state.Running = input.Run && !state.Flying

	e.applyGravity(state, dt)
	e.applyMovement(state, input, dt)
	e.applyJump(state, input)
	e.applyFriction(state, input, dt)
	e.integrate(state, dt)
	e.clampSpeed(state)

	return true
}

func (e *Engine) applyGravity(state *PlayerState, dt float64) {
	if state.Flying {
		return
	}
	state.Velocity.Y += Gravity * dt
}

// applyMovement экспоненциально подводит горизонтальную (в полёте — и
// вертикальную) скорость к целевой, заданной вводом и направлением взгляда.
func (e *Engine) applyMovement(state *PlayerState, input InputState, dt float64) {
	var forward, strafe float64
	if input.Forward {
		forward++
	}
	if input.Backward {
		forward--
	}
	if input.Right {
		strafe++
	}
	if input.Left {
		strafe--
	}

	speed := WalkSpeed
	if state.Flying {
		speed = FlySpeed
	} else if input.Run {
		speed = RunSpeed
	}

	var targetX, targetZ float64
	if forward != 0 || strafe != 0 {
		// Базис из направления взгляда
		fx, fz := math.Cos(state.Yaw), math.Sin(state.Yaw)
		rx, rz := fz, -fx

		dx := fx*forward + rx*strafe
		dz := fz*forward + rz*strafe
		norm := math.Hypot(dx, dz)
		targetX = dx / norm * speed
		targetZ = dz / norm * speed
	}

	blend := 1 - math.Exp(-accelRate*dt)
	state.Velocity.X += (targetX - state.Velocity.X) * blend
	state.Velocity.Z += (targetZ - state.Velocity.Z) * blend

	if state.Flying {
		var targetY float64
		if input.Jump {
			targetY = FlySpeed
		}
		if input.Descend {
			targetY = -FlySpeed
		}
		state.Velocity.Y += (targetY - state.Velocity.Y) * blend
	}
}

func (e *Engine) applyJump(state *PlayerState, input InputState) {
	if state.Flying || !input.Jump || !state.OnGround || state.Jumping {
		return
	}
	state.Velocity.Y = JumpImpulse
	state.OnGround = false
	state.Jumping = true
}

// applyFriction гасит остаточную горизонтальную скорость при отсутствии
// ввода. Коэффициенты нормированы на тик в 1/60 секунды.
func (e *Engine) applyFriction(state *PlayerState, input InputState, dt float64) {
	if input.Forward || input.Backward || input.Left || input.Right {
		return
	}
	friction := airFriction
	if state.OnGround {
		friction = groundFriction
	}
	factor := math.Pow(friction, dt*60)
	state.Velocity.X *= factor
	state.Velocity.Z *= factor
}

// integrate перемещает сущность с поосевым разрешением столкновений:
// сначала вертикаль (пол и потолок), затем X, затем Z. Порядок даёт
// скольжение вдоль стен вместо полной остановки.
func (e *Engine) integrate(state *PlayerState, dt float64) {
	e.moveVertical(state, state.Velocity.Y*dt)
	e.moveAxisX(state, state.Velocity.X*dt)
	e.moveAxisZ(state, state.Velocity.Z*dt)
}

// moveVertical двигает по Y со свипом по ячейкам: при падении ищем первую
// твёрдую ячейку между старой и новой высотой ног и прилипаем к её верху.
func (e *Engine) moveVertical(state *PlayerState, dy float64) {
	prevY := state.Position.Y
	newY := prevY + dy

	if dy <= 0 {
		from := int(math.Floor(prevY + groundSnapTol))
		to := int(math.Floor(newY))
		landed := false
		for cy := from; cy >= to; cy-- {
			if !e.footprintSolid(state.Position.X, state.Position.Z, cy) {
				continue
			}
			top := float64(cy + 1)
			if newY <= top+groundSnapTol && prevY >= top-groundSnapTol {
				newY = top
				state.Velocity.Y = 0
				state.Jumping = false
				landed = true
			}
			break
		}
		state.OnGround = landed
	} else {
		state.OnGround = false
		prevHead := prevY + bodyHeight
		newHead := newY + bodyHeight
		for cy := int(math.Floor(prevHead)); cy <= int(math.Floor(newHead)); cy++ {
			if !e.footprintSolid(state.Position.X, state.Position.Z, cy) {
				continue
			}
			newY = float64(cy) - bodyHeight - wallMargin
			state.Velocity.Y = 0
			break
		}
	}

	state.Position.Y = newY
}

// moveAxisX двигает по X с клампом к границе первой твёрдой ячейки.
func (e *Engine) moveAxisX(state *PlayerState, dx float64) {
	if dx == 0 {
		return
	}
	newX := state.Position.X + dx

	var edge float64
	if dx > 0 {
		edge = newX + halfWidth
	} else {
		edge = newX - halfWidth
	}
	cellX := int(math.Floor(edge))

	if e.sliceSolidX(cellX, state.Position.Y, state.Position.Z) {
		if dx > 0 {
			newX = float64(cellX) - halfWidth - wallMargin
		} else {
			newX = float64(cellX+1) + halfWidth + wallMargin
		}
		state.Velocity.X = 0
	}

	state.Position.X = newX
}

// moveAxisZ — симметрично moveAxisX.
func (e *Engine) moveAxisZ(state *PlayerState, dz float64) {
	if dz == 0 {
		return
	}
	newZ := state.Position.Z + dz

	var edge float64
	if dz > 0 {
		edge = newZ + halfWidth
	} else {
		edge = newZ - halfWidth
	}
	cellZ := int(math.Floor(edge))

	if e.sliceSolidZ(cellZ, state.Position.X, state.Position.Y) {
		if dz > 0 {
			newZ = float64(cellZ) - halfWidth - wallMargin
		} else {
			newZ = float64(cellZ+1) + halfWidth + wallMargin
		}
		state.Velocity.Z = 0
	}

	state.Position.Z = newZ
}

func (e *Engine) clampSpeed(state *PlayerState) {
	speed := state.Velocity.Length()
	if speed > MaxSpeed {
		scale := MaxSpeed / speed
		state.Velocity.X *= scale
		state.Velocity.Y *= scale
		state.Velocity.Z *= scale
	}
}

// footprintSolid проверяет, есть ли твёрдый блок в слое cy под пятном
// опоры AABB (четыре угла пятна, с запасом по схлопыванию дубликатов).
func (e *Engine) footprintSolid(x, z float64, cy int) bool {
	x0 := int(math.Floor(x - halfWidth))
	x1 := int(math.Floor(x + halfWidth))
	z0 := int(math.Floor(z - halfWidth))
	z1 := int(math.Floor(z + halfWidth))

	for cx := x0; cx <= x1; cx++ {
		for cz := z0; cz <= z1; cz++ {
			if e.solidAt(cx, cy, cz) {
				return true
			}
		}
	}
	return false
}

// sliceSolidX проверяет вертикальный срез тела на плоскости ячейки cellX.
func (e *Engine) sliceSolidX(cellX int, y, z float64) bool {
	y0 := int(math.Floor(y + groundSnapTol))
	y1 := int(math.Floor(y + bodyHeight - wallMargin))
	z0 := int(math.Floor(z - halfWidth))
	z1 := int(math.Floor(z + halfWidth))

	for cy := y0; cy <= y1; cy++ {
		for cz := z0; cz <= z1; cz++ {
			if e.solidAt(cellX, cy, cz) {
				return true
			}
		}
	}
	return false
}

func (e *Engine) sliceSolidZ(cellZ int, x, y float64) bool {
	y0 := int(math.Floor(y + groundSnapTol))
	y1 := int(math.Floor(y + bodyHeight - wallMargin))
	x0 := int(math.Floor(x - halfWidth))
	x1 := int(math.Floor(x + halfWidth))

	for cy := y0; cy <= y1; cy++ {
		for cx := x0; cx <= x1; cx++ {
			if e.solidAt(cx, cy, cellZ) {
				return true
			}
		}
	}
	return false
}

// solidAt трактует неизвестный блок как проходимый: защита от провала в
// несгенерированный мир лежит не здесь, а в гейтинге тика — как только
// сущность окажется в незагруженном чанке, физика замирает до загрузки.
func (e *Engine) solidAt(x, y, z int) bool {
	id, known := e.blocks.BlockAt(x, y, z)
	if !known {
		return false
	}
	return block.IsSolid(id)
}
