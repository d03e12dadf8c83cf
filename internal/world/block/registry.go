package block

// BlockID представляет идентификатор типа блока
type BlockID uint16

// Константы ID блоков
const (
	// Природные типы блоков
	AirBlockID    BlockID = iota // 0
	StoneBlockID                 // 1
	DirtBlockID                  // 2
	GrassBlockID                 // 3
	WoodBlockID                  // 4
	LeavesBlockID                // 5
	SandBlockID                  // 6
	WaterBlockID                 // 7
	SnowBlockID                  // 8
	IceBlockID                   // 9
	ClayBlockID                  // 10
	GravelBlockID                // 11

	// Для возможности расширения оставляем промежутки между категориями

	// Руды (начиная со 100)
	CoalOreBlockID    BlockID = 100
	IronOreBlockID    BlockID = 101
	GoldOreBlockID    BlockID = 102
	DiamondOreBlockID BlockID = 103

	// Городские блоки (начиная с 200)
	RoadBlockID          BlockID = 200 // Дорожное покрытие
	BuildingWallBlockID  BlockID = 201
	BuildingFloorBlockID BlockID = 202
	BuildingRoofBlockID  BlockID = 203
	GlassBlockID         BlockID = 204
	DoorBlockID          BlockID = 205
	WindowBlockID        BlockID = 206

	// Специальные блоки (начиная с 1000)
	BedrockBlockID BlockID = 1000 // Неразрушаемое дно мира
)

// Properties описывает статические свойства типа блока.
// Solid участвует в разрешении коллизий, Transparent — подсказка рендереру.
type Properties struct {
	Name        string
	Solid       bool
	Transparent bool
}

var registry = make(map[BlockID]Properties)

// Register добавляет свойства блока в регистр
func Register(id BlockID, props Properties) {
	registry[id] = props
}

// Get возвращает свойства для указанного ID
func Get(id BlockID) (Properties, bool) {
	props, exists := registry[id]
	return props, exists
}

// IsValidBlockID проверяет, является ли ID допустимым идентификатором блока
func IsValidBlockID(id BlockID) bool {
	_, exists := registry[id]
	return exists
}

// IsSolid возвращает true, если блок участвует в коллизиях.
// Незарегистрированные ID считаются непроходимыми: безопаснее
// упереться в неизвестный блок, чем провалиться сквозь него.
func IsSolid(id BlockID) bool {
	props, exists := registry[id]
	if !exists {
		return true
	}
	return props.Solid
}

// Name возвращает человекочитаемое имя блока.
func Name(id BlockID) string {
	if props, exists := registry[id]; exists {
		return props.Name
	}
	return "unknown"
}

func init() {
	Register(AirBlockID, Properties{Name: "air", Solid: false, Transparent: true})
	Register(StoneBlockID, Properties{Name: "stone", Solid: true})
	Register(DirtBlockID, Properties{Name: "dirt", Solid: true})
	Register(GrassBlockID, Properties{Name: "grass", Solid: true})
	Register(WoodBlockID, Properties{Name: "wood", Solid: true})
	Register(LeavesBlockID, Properties{Name: "leaves", Solid: true, Transparent: true})
	Register(SandBlockID, Properties{Name: "sand", Solid: true})
	Register(WaterBlockID, Properties{Name: "water", Solid: false, Transparent: true})
	Register(SnowBlockID, Properties{Name: "snow", Solid: true})
	Register(IceBlockID, Properties{Name: "ice", Solid: true, Transparent: true})
	Register(ClayBlockID, Properties{Name: "clay", Solid: true})
	Register(GravelBlockID, Properties{Name: "gravel", Solid: true})

	Register(CoalOreBlockID, Properties{Name: "coal_ore", Solid: true})
	Register(IronOreBlockID, Properties{Name: "iron_ore", Solid: true})
	Register(GoldOreBlockID, Properties{Name: "gold_ore", Solid: true})
	Register(DiamondOreBlockID, Properties{Name: "diamond_ore", Solid: true})

	Register(RoadBlockID, Properties{Name: "road", Solid: true})
	Register(BuildingWallBlockID, Properties{Name: "building_wall", Solid: true})
	Register(BuildingFloorBlockID, Properties{Name: "building_floor", Solid: true})
	Register(BuildingRoofBlockID, Properties{Name: "building_roof", Solid: true})
	Register(GlassBlockID, Properties{Name: "glass", Solid: true, Transparent: true})
	Register(DoorBlockID, Properties{Name: "door", Solid: true})
	Register(WindowBlockID, Properties{Name: "window", Solid: true, Transparent: true})

	Register(BedrockBlockID, Properties{Name: "bedrock", Solid: true})
}
