package chunk

// Tile is a single cell value on either layer.
type Tile uint8

const (
	Empty Tile = iota
	Floor
	Wall
	Ceiling
	ExitStairs

	// Cosmetic variants. Each maps back to a base type via Base.
	FloorPuddle
	FloorCardboard
	WallCracked
	WallMouldy
	WallHole
	CeilingStain
	CeilingHole
	LightFluorescent
	LightBroken
)

var tileNames = [...]string{
	Empty:            "EMPTY",
	Floor:            "FLOOR",
	Wall:             "WALL",
	Ceiling:          "CEILING",
	ExitStairs:       "EXIT_STAIRS",
	FloorPuddle:      "FLOOR_PUDDLE",
	FloorCardboard:   "FLOOR_CARDBOARD",
	WallCracked:      "WALL_CRACKED",
	WallMouldy:       "WALL_MOULDY",
	WallHole:         "WALL_HOLE",
	CeilingStain:     "CEILING_STAIN",
	CeilingHole:      "CEILING_HOLE",
	LightFluorescent: "LIGHT_FLUORESCENT",
	LightBroken:      "LIGHT_BROKEN",
}

func (t Tile) String() string {
	if int(t) < len(tileNames) && tileNames[t] != "" {
		return tileNames[t]
	}
	return "UNKNOWN"
}

// Base collapses cosmetic variants onto the type gameplay cares about.
func (t Tile) Base() Tile {
	switch t {
	case FloorPuddle, FloorCardboard:
		return Floor
	case WallCracked, WallMouldy, WallHole:
		return Wall
	case CeilingStain, CeilingHole, LightFluorescent, LightBroken:
		return Ceiling
	default:
		return t
	}
}

func (t Tile) Walkable() bool {
	b := t.Base()
	return b == Floor || b == ExitStairs
}

// Layer selects one of the two tile grids of a sub-chunk.
type Layer int

const (
	LayerBase Layer = iota
	LayerCeiling

	numLayers = 2
)

func (l Layer) String() string {
	switch l {
	case LayerBase:
		return "base"
	case LayerCeiling:
		return "ceiling"
	default:
		return "invalid"
	}
}
