package tuning

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	WorldSeed  int64 `yaml:"world_seed"`
	StartLevel int   `yaml:"start_level"`

	Scheduler SchedulerTuning `yaml:"scheduler"`
	Stitch    StitchTuning    `yaml:"stitch"`
	Spawns    SpawnTuning     `yaml:"spawns"`
	Levels    []LevelSpec     `yaml:"levels"`
}

type SchedulerTuning struct {
	GenerationRadius int `yaml:"generation_radius"`
	UnloadRadius     int `yaml:"unload_radius"`
	MaxLoadedChunks  int `yaml:"max_loaded_chunks"`
	// New chunks handed to the load queue per turn once bootstrap is over.
	SteadyEnqueuePerTurn int `yaml:"steady_enqueue_per_turn"`
}

type StitchTuning struct {
	Depth         int `yaml:"depth"`
	Margin        int `yaml:"margin"`
	Width1Percent int `yaml:"width1_percent"`
	Width2Percent int `yaml:"width2_percent"`
}

type Curve struct {
	Base  float64 `yaml:"base"`
	Slope float64 `yaml:"slope"`
}

type SpawnTuning struct {
	PityThreshold   int                `yaml:"pity_threshold"`
	EntityModifiers map[string]float64 `yaml:"entity_modifiers"`
	ItemCurves      map[string]Curve   `yaml:"item_curves"`
}

type DecorSpec struct {
	PuddlePermille      int `yaml:"puddle_permille"`
	CardboardPermille   int `yaml:"cardboard_permille"`
	CrackPermille       int `yaml:"crack_permille"`
	MouldPermille       int `yaml:"mould_permille"`
	WallHolePermille    int `yaml:"wall_hole_permille"`
	StainPermille       int `yaml:"stain_permille"`
	CeilingHolePermille int `yaml:"ceiling_hole_permille"`
	BrokenLightPermille int `yaml:"broken_light_permille"`
	ExitPermille        int `yaml:"exit_permille"`
	LightSpacing        int `yaml:"light_spacing"`
	CorruptionGain      int `yaml:"corruption_gain"`
}

type LevelSpec struct {
	ID         int    `yaml:"id"`
	Name       string `yaml:"name"`
	SeedOffset int64  `yaml:"seed_offset"`
	Ruleset    string `yaml:"ruleset"`

	FloorWeight   float64 `yaml:"floor_weight"`
	WallWeight    float64 `yaml:"wall_weight"`
	MaxIterations int     `yaml:"max_iterations"`

	CorruptionPerChunk float64 `yaml:"corruption_per_chunk"`

	EntityRolls   int   `yaml:"entity_rolls"`
	EntityDensity Curve `yaml:"entity_density"`
	ItemRolls     int   `yaml:"item_rolls"`

	Decor DecorSpec `yaml:"decor"`
}

func Defaults() Tuning {
	decor := DecorSpec{
		PuddlePermille:      120,
		CardboardPermille:   4,
		CrackPermille:       15,
		MouldPermille:       90,
		WallHolePermille:    2,
		StainPermille:       12,
		CeilingHolePermille: 2,
		BrokenLightPermille: 60,
		ExitPermille:        150,
		LightSpacing:        4,
		CorruptionGain:      400,
	}
	return Tuning{
		WorldSeed:  1337,
		StartLevel: 0,
		Scheduler: SchedulerTuning{
			GenerationRadius:     2,
			UnloadRadius:         4,
			MaxLoadedChunks:      100,
			SteadyEnqueuePerTurn: 1,
		},
		Stitch: StitchTuning{
			Depth:         8,
			Margin:        4,
			Width1Percent: 70,
			Width2Percent: 25,
		},
		Spawns: SpawnTuning{
			PityThreshold: 3,
			EntityModifiers: map[string]float64{
				"common":   -0.35,
				"uncommon": 0.1,
				"rare":     0.5,
				"elite":    1.0,
			},
			ItemCurves: map[string]Curve{
				"common":   {Base: 0.35, Slope: -0.05},
				"uncommon": {Base: 0.15, Slope: 0.05},
				"rare":     {Base: 0.04, Slope: 0.06},
				"elite":    {Base: 0.01, Slope: 0.04},
			},
		},
		Levels: []LevelSpec{
			{
				ID: 0, Name: "The Lobby", SeedOffset: 0, Ruleset: "halls",
				FloorWeight: 0.7, WallWeight: 0.3,
				CorruptionPerChunk: 0.05,
				EntityRolls:        6, EntityDensity: Curve{Base: 0.25, Slope: 0.15},
				ItemRolls: 8,
				Decor:     decor,
			},
			{
				ID: 1, Name: "Habitable Zone", SeedOffset: 1000003, Ruleset: "pillars",
				FloorWeight: 0.8, WallWeight: 0.2,
				CorruptionPerChunk: 0.08,
				EntityRolls:        8, EntityDensity: Curve{Base: 0.3, Slope: 0.2},
				ItemRolls: 8,
				Decor:     decor,
			},
			{
				ID: 2, Name: "Pipe Dreams", SeedOffset: 2000003, Ruleset: "pipes",
				FloorWeight: 0.65, WallWeight: 0.35,
				CorruptionPerChunk: 0.12,
				EntityRolls:        10, EntityDensity: Curve{Base: 0.35, Slope: 0.25},
				ItemRolls: 6,
				Decor:     decor,
			},
		},
	}
}

// Load reads a tuning file over Defaults(). An empty path yields the defaults.
func Load(path string) (Tuning, error) {
	t := Defaults()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return t, err
		}
		if err := yaml.Unmarshal(raw, &t); err != nil {
			return t, fmt.Errorf("tuning.yaml: %w", err)
		}
	}
	t.Normalize()
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t *Tuning) Normalize() {
	if t.Scheduler.SteadyEnqueuePerTurn <= 0 {
		t.Scheduler.SteadyEnqueuePerTurn = 1
	}
	if t.Stitch.Depth <= 0 {
		t.Stitch.Depth = 8
	}
	if t.Stitch.Margin < 0 {
		t.Stitch.Margin = 0
	}
	if t.Spawns.PityThreshold <= 0 {
		t.Spawns.PityThreshold = 3
	}
	for i := range t.Levels {
		l := &t.Levels[i]
		if l.Ruleset == "" {
			l.Ruleset = "halls"
		}
		if l.Name == "" {
			l.Name = fmt.Sprintf("Level %d", l.ID)
		}
	}
	sort.Slice(t.Levels, func(i, j int) bool { return t.Levels[i].ID < t.Levels[j].ID })
}

func (t Tuning) Validate() error {
	s := t.Scheduler
	if s.GenerationRadius < 0 {
		return fmt.Errorf("scheduler.generation_radius must be >= 0")
	}
	if s.UnloadRadius <= s.GenerationRadius {
		return fmt.Errorf("scheduler.unload_radius (%d) must exceed generation_radius (%d)", s.UnloadRadius, s.GenerationRadius)
	}
	side := 2*s.GenerationRadius + 1
	if s.MaxLoadedChunks < side*side {
		return fmt.Errorf("scheduler.max_loaded_chunks (%d) below one generation square (%d)", s.MaxLoadedChunks, side*side)
	}
	if t.Stitch.Width1Percent < 0 || t.Stitch.Width2Percent < 0 || t.Stitch.Width1Percent+t.Stitch.Width2Percent > 100 {
		return fmt.Errorf("stitch width percentages must be non-negative and sum to <= 100")
	}
	if len(t.Levels) == 0 {
		return fmt.Errorf("no levels defined")
	}
	seen := map[int]bool{}
	for _, l := range t.Levels {
		if seen[l.ID] {
			return fmt.Errorf("duplicate level id %d", l.ID)
		}
		seen[l.ID] = true
		if l.FloorWeight <= 0 || l.WallWeight <= 0 {
			return fmt.Errorf("level %d: floor_weight and wall_weight must be positive", l.ID)
		}
		if l.CorruptionPerChunk < 0 {
			return fmt.Errorf("level %d: corruption_per_chunk must be >= 0", l.ID)
		}
		if l.EntityRolls < 0 || l.ItemRolls < 0 {
			return fmt.Errorf("level %d: rolls must be >= 0", l.ID)
		}
	}
	if !seen[t.StartLevel] {
		return fmt.Errorf("start_level %d is not defined", t.StartLevel)
	}
	return nil
}

func (t Tuning) Level(id int) (LevelSpec, bool) {
	for _, l := range t.Levels {
		if l.ID == id {
			return l, true
		}
	}
	return LevelSpec{}, false
}
