package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"os"

	"backrooms.dev/internal/persistence/indexdb"
	persistlog "backrooms.dev/internal/persistence/log"
	"backrooms.dev/internal/sim/tuning"
	"backrooms.dev/internal/sim/world"
	"backrooms.dev/internal/sim/world/genworker"
	"backrooms.dev/internal/sim/world/terrain/chunk"
	"backrooms.dev/internal/sim/world/terrain/levels"
	"backrooms.dev/internal/sim/world/terrain/stitch"
)

// replay regenerates every chunk a session journaled as LOADED and checks
// that the terrain digest matches, stitching against the same neighbors.
func main() {
	var (
		sessionDir = flag.String("session", "", "session dir containing chunks/chunks-*.jsonl.zst")
		tuningPath = flag.String("tuning", "./configs/tuning.yaml", "path to tuning.yaml")
		seed       = flag.Int64("seed", 0, "world seed (default: tuning world_seed, or the index runs table)")
		indexPath  = flag.String("index", "", "session sqlite index; supplies per-run seeds (optional)")
		verbose    = flag.Bool("v", false, "print every mismatch")
	)
	flag.Parse()

	if *sessionDir == "" {
		fmt.Fprintln(os.Stderr, "missing -session")
		os.Exit(2)
	}
	tune, err := tuning.Load(*tuningPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load tuning:", err)
		os.Exit(1)
	}
	reg, err := levels.NewRegistry(tune.WorldSeed, tune.Levels, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, "levels:", err)
		os.Exit(1)
	}

	r := &replayer{
		reg:    reg,
		cfg:    world.ConfigFromTuning(tune).Stitch,
		seed:   tune.WorldSeed,
		loaded: map[chunk.Key]*chunk.Chunk{},
	}
	if *seed != 0 {
		r.seed = *seed
	}
	if *indexPath != "" {
		runs, err := indexdb.ReadRuns(*indexPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "index:", err)
			os.Exit(1)
		}
		r.runs = runs
	}

	if err := persistlog.ReadChunkEvents(*sessionDir, func(ev world.ChunkEvent) error {
		r.apply(ev, *verbose)
		return nil
	}); err != nil {
		fmt.Fprintln(os.Stderr, "replay:", err)
		os.Exit(1)
	}

	fmt.Printf("replay: events=%d loaded=%d stale=%d recovered=%d mismatched=%d\n",
		r.events, r.checked, r.stale, r.recovered, r.mismatched)
	if r.mismatched > 0 {
		os.Exit(1)
	}
}

type replayer struct {
	reg  *levels.Registry
	cfg  stitch.Config
	seed int64
	runs []indexdb.Run

	epoch  uint64
	loaded map[chunk.Key]*chunk.Chunk

	events, checked, stale, recovered, mismatched int
}

func (r *replayer) seedFor(epoch uint64) int64 {
	if s, ok := indexdb.SeedAt(r.runs, epoch); ok {
		return s
	}
	return r.seed
}

func (r *replayer) apply(ev world.ChunkEvent, verbose bool) {
	r.events++
	if ev.Epoch != r.epoch {
		// Every reset unloads everything; drop leftovers from a truncated journal.
		r.epoch = ev.Epoch
		r.loaded = map[chunk.Key]*chunk.Chunk{}
	}
	switch ev.Kind {
	case world.ChunkEventStale:
		r.stale++
	case world.ChunkEventRecovered:
		r.recovered++
	case world.ChunkEventUnloaded:
		delete(r.loaded, ev.Key)
	case world.ChunkEventLoaded:
		r.checked++
		seed := r.seedFor(ev.Epoch)
		ch, err := r.reg.Generate(genworker.Request{
			Key:        ev.Key,
			WorldSeed:  seed,
			Seed:       r.reg.ChunkSeed(seed, ev.Key),
			Corruption: ev.Corruption,
			Epoch:      ev.Epoch,
		})
		if err != nil {
			r.mismatched++
			fmt.Fprintf(os.Stderr, "turn %d %v: generate: %v\n", ev.Turn, ev.Key, err)
			return
		}
		for _, n := range r.neighbors(ev.Key) {
			if _, err := stitch.Carve(ch, n, seed, r.cfg); err != nil {
				fmt.Fprintf(os.Stderr, "turn %d %v: stitch: %v\n", ev.Turn, ev.Key, err)
			}
		}
		r.loaded[ev.Key] = ch
		d := ch.Digest()
		if got := hex.EncodeToString(d[:8]); got != ev.Digest {
			r.mismatched++
			if verbose {
				fmt.Printf("turn %d %v: digest %s != journal %s\n", ev.Turn, ev.Key, got, ev.Digest)
			}
		}
	}
}

func (r *replayer) neighbors(k chunk.Key) []*chunk.Chunk {
	var out []*chunk.Chunk
	for _, d := range [4][2]int{{0, -1}, {1, 0}, {0, 1}, {-1, 0}} {
		if n, ok := r.loaded[k.Neighbor4(d[0], d[1])]; ok {
			out = append(out, n)
		}
	}
	return out
}
