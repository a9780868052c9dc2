package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"

	"backrooms.dev/internal/persistence/indexdb"
	persistlog "backrooms.dev/internal/persistence/log"
	"backrooms.dev/internal/sim/catalogs"
	"backrooms.dev/internal/sim/tuning"
	"backrooms.dev/internal/sim/world"
	"backrooms.dev/internal/sim/world/feature/spawns"
	"backrooms.dev/internal/sim/world/terrain/levels"
)

func main() {
	var (
		configDir   = flag.String("configs", "./configs", "config directory")
		tuningPath  = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		catalogPath = flag.String("catalog", "", "path to spawns.yaml (default: built-in catalog)")
		seed        = flag.Int64("seed", 0, "world seed (default: tuning world_seed)")
		dataDir     = flag.String("data", "./data", "runtime data directory")
		noJournal   = flag.Bool("no_journal", false, "disable turn log and chunk journal")
		disableDB   = flag.Bool("disable_db", false, "disable the sqlite session index")
		mute        = flag.Bool("mute", false, "disable audio cues")
		fps         = flag.Int("fps", 30, "frames per second")
	)
	flag.Parse()

	sessionDir := filepath.Join(*dataDir, "sessions", time.Now().UTC().Format("20060102-150405"))
	if err := os.MkdirAll(sessionDir, 0o755); err != nil {
		fmt.Fprintln(os.Stderr, "session dir:", err)
		os.Exit(1)
	}

	// The terminal belongs to tcell; diagnostics go to a file.
	logger := log.New(io.Discard, "", 0)
	if f, err := os.Create(filepath.Join(sessionDir, "backrooms.log")); err == nil {
		defer f.Close()
		logger = log.New(f, "[backrooms] ", log.LstdFlags|log.Lmicroseconds)
	}

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if !os.IsNotExist(err) {
			fatal(logger, "load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", tp)
		tune = tuning.Defaults()
	}
	if *seed != 0 {
		tune.WorldSeed = *seed
	}
	if err := tune.Validate(); err != nil {
		fatal(logger, "tuning: %v", err)
	}

	cat, err := catalogs.Load(*catalogPath)
	if err != nil {
		fatal(logger, "load catalog: %v", err)
	}
	reg, err := levels.NewRegistry(tune.WorldSeed, tune.Levels, logger)
	if err != nil {
		fatal(logger, "levels: %v", err)
	}
	sp, err := spawns.FromConfig(tune, cat)
	if err != nil {
		fatal(logger, "spawns: %v", err)
	}
	logger.Printf("session=%s seed=%d catalog=%s levels=%v", sessionDir, tune.WorldSeed, cat.Digest[:12], reg.IDs())

	sched := world.New(world.ConfigFromTuning(tune), reg, sp, nil, logger)
	defer sched.Stop()

	var idx *indexdb.SQLiteIndex
	if !*disableDB {
		idx, err = indexdb.OpenSQLite(filepath.Join(sessionDir, "index.sqlite"))
		if err != nil {
			fatal(logger, "open index: %v", err)
		}
		defer idx.Close()
		idx.RecordRun(sched.Epoch(), tune.WorldSeed, tune)
	}
	if !*noJournal {
		turnLog := persistlog.NewTurnLogger(sessionDir)
		journal := persistlog.NewChunkJournal(sessionDir)
		defer turnLog.Close()
		defer journal.Close()
		sched.SetTurnLogger(multiTurnLogger{a: turnLog, b: idx})
		sched.SetChunkJournal(multiChunkJournal{a: journal, b: idx})
	} else if idx != nil {
		sched.SetTurnLogger(idx)
		sched.SetChunkJournal(idx)
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		fatal(logger, "screen: %v", err)
	}
	if err := screen.Init(); err != nil {
		fatal(logger, "screen init: %v", err)
	}
	defer screen.Fini()

	cues := newCues(!*mute, logger)
	defer cues.Close()

	g := NewGame(screen, sched, reg, tune, cues, logger)
	g.onNewRun = func(epoch uint64, seed int64) { idx.RecordRun(epoch, seed, tune) }

	ctx, cancel := signalContext()
	defer cancel()
	g.Start()
	g.Run(ctx, time.Second/time.Duration(max(*fps, 1)))

	// Journal and index must see the final unloads before they close.
	sched.Stop()
	if idx != nil {
		st := idx.Stats()
		logger.Printf("index drops: turn=%d chunk=%d run=%d", st.DropTurnTotal, st.DropChunkEventTotal, st.DropRunTotal)
	}
}

func fatal(logger *log.Logger, format string, args ...any) {
	logger.Printf(format, args...)
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

type multiTurnLogger struct {
	a world.TurnLogger
	b world.TurnLogger
}

func (m multiTurnLogger) WriteTurn(entry world.TurnLogEntry) error {
	if m.a != nil {
		_ = m.a.WriteTurn(entry)
	}
	if m.b != nil {
		_ = m.b.WriteTurn(entry)
	}
	return nil
}

type multiChunkJournal struct {
	a world.ChunkJournal
	b world.ChunkJournal
}

func (m multiChunkJournal) WriteChunkEvent(ev world.ChunkEvent) error {
	if m.a != nil {
		_ = m.a.WriteChunkEvent(ev)
	}
	if m.b != nil {
		_ = m.b.WriteChunkEvent(ev)
	}
	return nil
}
