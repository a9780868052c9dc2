package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"backrooms.dev/internal/sim/catalogs"
	"backrooms.dev/internal/sim/tuning"
	"backrooms.dev/internal/sim/world"
	"backrooms.dev/internal/sim/world/feature/spawns"
	"backrooms.dev/internal/sim/world/terrain/chunk"
	"backrooms.dev/internal/sim/world/terrain/levels"
)

// mazegen streams a window of chunks headlessly and prints them: an ASCII
// map of one chunk, floor/wall ratios and per-chunk digests.
func main() {
	var (
		configDir  = flag.String("configs", "./configs", "config directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		seed       = flag.Int64("seed", 0, "world seed (default: tuning world_seed)")
		level      = flag.Int("level", -1, "level id (default: tuning start_level)")
		cx         = flag.Int("x", 0, "chunk x of the player")
		cy         = flag.Int("y", 0, "chunk y of the player")
		radius     = flag.Int("radius", -1, "generation radius override")
		showX      = flag.Int("show_x", 0, "chunk x to print")
		showY      = flag.Int("show_y", 0, "chunk y to print")
		noMap      = flag.Bool("no_map", false, "skip the ASCII map")
		timeout    = flag.Duration("timeout", time.Minute, "give up after this long")
		verbose    = flag.Bool("v", false, "log scheduler activity to stderr")
	)
	flag.Parse()

	logger := log.New(os.Stderr, "[mazegen] ", log.LstdFlags|log.Lmicroseconds)
	schedLogger := log.New(os.Stderr, "[scheduler] ", log.Lmicroseconds)
	if !*verbose {
		schedLogger = nil
	}

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		tune = tuning.Defaults()
	}
	if *seed != 0 {
		tune.WorldSeed = *seed
	}
	if *level >= 0 {
		tune.StartLevel = *level
	}
	if *radius >= 0 {
		tune.Scheduler.GenerationRadius = *radius
		if tune.Scheduler.UnloadRadius <= *radius {
			tune.Scheduler.UnloadRadius = *radius + 2
		}
		side := 2*(*radius) + 1
		if tune.Scheduler.MaxLoadedChunks < side*side {
			tune.Scheduler.MaxLoadedChunks = side * side
		}
	}
	if err := tune.Validate(); err != nil {
		logger.Fatalf("tuning: %v", err)
	}

	reg, err := levels.NewRegistry(tune.WorldSeed, tune.Levels, schedLogger)
	if err != nil {
		logger.Fatalf("levels: %v", err)
	}
	cat, err := catalogs.Default()
	if err != nil {
		logger.Fatalf("catalog: %v", err)
	}
	sp, err := spawns.FromConfig(tune, cat)
	if err != nil {
		logger.Fatalf("spawns: %v", err)
	}

	player := &fixedPlayer{
		pos:   chunk.TilePos{X: *cx*chunk.Size + chunk.Size/2, Y: *cy*chunk.Size + chunk.Size/2},
		level: tune.StartLevel,
	}
	sched := world.New(world.ConfigFromTuning(tune), reg, sp, player, schedLogger)
	defer sched.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	start := time.Now()
	sched.OnTurnCompleted()
	if err := sched.Settle(ctx); err != nil {
		logger.Fatalf("settle: %v", err)
	}
	elapsed := time.Since(start)

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()

	keys := sched.LoadedKeys()
	fmt.Fprintf(out, "seed=%d level=%d chunks=%d elapsed=%s corruption=%.2f\n",
		tune.WorldSeed, tune.StartLevel, len(keys), elapsed.Round(time.Millisecond), sched.Corruption(tune.StartLevel))

	digests := sched.Digests()
	var floors, walls, total int
	for _, k := range keys {
		ch, _ := sched.ChunkAt(chunk.TilePos{X: k.X * chunk.Size, Y: k.Y * chunk.Size}, k.Level)
		s := measure(ch)
		floors += s.floor
		walls += s.wall
		total += chunk.Size * chunk.Size
		fmt.Fprintf(out, "  (%3d,%3d) digest=%s floor=%.3f wall=%.3f exits=%d entities=%d items=%d\n",
			k.X, k.Y, digests[k][:16], s.ratio(s.floor), s.ratio(s.wall), s.exits, len(ch.Entities()), len(ch.Items()))
	}
	if total > 0 {
		fmt.Fprintf(out, "overall floor=%.3f wall=%.3f\n", float64(floors)/float64(total), float64(walls)/float64(total))
	}

	if *noMap {
		return
	}
	show, ok := sched.ChunkAt(chunk.TilePos{X: *showX * chunk.Size, Y: *showY * chunk.Size}, tune.StartLevel)
	if !ok {
		logger.Printf("chunk (%d,%d) not loaded; pick one within the radius", *showX, *showY)
		return
	}
	fmt.Fprintf(out, "\nchunk (%d,%d):\n", *showX, *showY)
	render(out, show)
}

type fixedPlayer struct {
	pos   chunk.TilePos
	level int
}

func (p *fixedPlayer) PlayerPosition() (chunk.TilePos, int, bool) { return p.pos, p.level, true }

type tileStats struct {
	floor, wall, exits int
}

func (s tileStats) ratio(n int) float64 { return float64(n) / float64(chunk.Size*chunk.Size) }

func measure(ch *chunk.Chunk) tileStats {
	var s tileStats
	for y := 0; y < chunk.Size; y++ {
		for x := 0; x < chunk.Size; x++ {
			t := ch.LocalTile(chunk.LayerBase, x, y)
			switch t.Base() {
			case chunk.Floor:
				s.floor++
			case chunk.Wall:
				s.wall++
			case chunk.ExitStairs:
				s.exits++
			}
		}
	}
	return s
}

func render(w *bufio.Writer, ch *chunk.Chunk) {
	marks := map[chunk.TilePos]byte{}
	for _, it := range ch.Items() {
		marks[it.Pos()] = '*'
	}
	for _, e := range ch.Entities() {
		marks[e.Pos()] = 'e'
	}
	o := ch.Origin()
	for y := 0; y < chunk.Size; y++ {
		for x := 0; x < chunk.Size; x++ {
			if m, ok := marks[o.Add(x, y)]; ok {
				w.WriteByte(m)
				continue
			}
			w.WriteByte(asciiOf(ch.LocalTile(chunk.LayerBase, x, y)))
		}
		w.WriteByte('\n')
	}
}

func asciiOf(t chunk.Tile) byte {
	switch t {
	case chunk.Floor:
		return '.'
	case chunk.FloorPuddle:
		return '~'
	case chunk.FloorCardboard:
		return '='
	case chunk.WallCracked:
		return '%'
	case chunk.WallHole:
		return 'O'
	case chunk.ExitStairs:
		return '>'
	}
	if t.Base() == chunk.Wall {
		return '#'
	}
	return ' '
}
