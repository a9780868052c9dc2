package world

import (
	"context"
	"encoding/hex"
	"io"
	"log"
	"math/rand"
	"sort"
	"time"

	"backrooms.dev/internal/sim/world/corruption"
	"backrooms.dev/internal/sim/world/genworker"
	"backrooms.dev/internal/sim/world/logic/mathx"
	"backrooms.dev/internal/sim/world/terrain/chunk"
	"backrooms.dev/internal/sim/world/terrain/stitch"
	"backrooms.dev/internal/sim/world/terrain/store"
)

// Scheduler streams chunks around the player. It owns the loaded-chunk
// store, the corruption tracker and the generation worker.
//
// Every method except the worker's own goroutine runs on the caller's
// (main) goroutine; the Scheduler is not safe for concurrent use.
type Scheduler struct {
	cfg     Config
	gen     Generator
	spawner Spawner
	player  PlayerSource
	logger  *log.Logger
	worker  *genworker.Worker

	renderer  Renderer
	listeners []Listener
	turnLog   TurnLogger
	journal   ChunkJournal

	store        *store.ChunkStore
	corruption   *corruption.Tracker
	backlog      []chunk.Key
	queued       map[chunk.Key]bool
	inFlight     map[chunk.Key]bool
	materialized map[chunk.Key]bool

	epoch       uint64
	turn        uint64
	turnPending bool
	level       int
	center      chunk.Key
	hasCenter   bool

	bootstrapping  bool
	bootstrapTotal int

	capLogged    bool
	playerLogged bool
	stopped      bool
}

// New builds a scheduler and starts its worker. spawner may be nil.
func New(cfg Config, gen Generator, spawner Spawner, player PlayerSource, logger *log.Logger) *Scheduler {
	cfg.applyDefaults()
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	s := &Scheduler{
		cfg:           cfg,
		gen:           gen,
		spawner:       spawner,
		player:        player,
		logger:        logger,
		worker:        genworker.New(gen, logger),
		store:         store.NewChunkStore(),
		corruption:    corruption.NewTracker(),
		queued:        map[chunk.Key]bool{},
		inFlight:      map[chunk.Key]bool{},
		materialized:  map[chunk.Key]bool{},
		level:         cfg.StartLevel,
		bootstrapping: true,
	}
	s.worker.Start()
	return s
}

// SetRenderer swaps the renderer. Loaded chunks are materialized into the
// new one on the next Process call; nil detaches rendering.
func (s *Scheduler) SetRenderer(r Renderer) {
	s.renderer = r
	s.materialized = map[chunk.Key]bool{}
}

func (s *Scheduler) AddListener(l Listener) {
	if l != nil {
		s.listeners = append(s.listeners, l)
	}
}

func (s *Scheduler) SetPlayerSource(p PlayerSource) { s.player = p }
func (s *Scheduler) SetTurnLogger(l TurnLogger)     { s.turnLog = l }
func (s *Scheduler) SetChunkJournal(j ChunkJournal) { s.journal = j }

// OnTurnCompleted is the only scheduling trigger. It records the player's
// chunk, queues missing chunks and runs one processing pass. A completion
// notification for this turn follows once no work is outstanding.
func (s *Scheduler) OnTurnCompleted() {
	if s.stopped {
		return
	}
	s.turn++
	s.turnPending = true

	if pos, level, ok := s.playerPosition(); ok {
		s.enterChunk(chunk.KeyOf(pos, level))
		s.enqueueCandidates()
	}
	s.Process()
}

func (s *Scheduler) playerPosition() (chunk.TilePos, int, bool) {
	if s.player != nil {
		if pos, level, ok := s.player.PlayerPosition(); ok {
			s.playerLogged = false
			return pos, level, true
		}
	}
	if !s.playerLogged {
		s.logger.Printf("scheduler: no player position at turn %d; deferring", s.turn)
		s.playerLogged = true
	}
	return chunk.TilePos{}, 0, false
}

func (s *Scheduler) enterChunk(key chunk.Key) {
	if s.hasCenter && key == s.center {
		return
	}
	if key.Level != s.level {
		s.logger.Printf("scheduler: player moved to level %d without ChangeLevel", key.Level)
		s.ChangeLevel(key.Level)
	}
	from, had := s.center, s.hasCenter
	s.center, s.hasCenter = key, true
	s.corruption.Visit(key, s.gen.CorruptionPerChunk(key.Level))
	if had {
		for _, l := range s.listeners {
			l.PlayerChunkChanged(from, key)
		}
	}
}

// enqueueCandidates adds unloaded chunks within the generation radius to
// the backlog, nearest first: all of them while bootstrapping, otherwise at
// most SteadyEnqueuePerTurn.
func (s *Scheduler) enqueueCandidates() {
	r := s.cfg.GenerationRadius
	c := s.center
	var cands []chunk.Key
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			k := chunk.Key{X: c.X + dx, Y: c.Y + dy, Level: c.Level}
			if s.State(k) == Unloaded {
				cands = append(cands, k)
			}
		}
	}
	s.sortByDistance(cands)

	limit := s.cfg.SteadyEnqueuePerTurn
	if s.bootstrapping {
		limit = len(cands)
		s.bootstrapTotal = (2*r + 1) * (2*r + 1)
	}
	if limit > len(cands) {
		limit = len(cands)
	}
	for _, k := range cands[:limit] {
		s.backlog = append(s.backlog, k)
		s.queued[k] = true
	}
	if s.bootstrapping {
		s.notifyProgress()
	}
}

func (s *Scheduler) sortByDistance(keys []chunk.Key) {
	c := s.center
	sort.Slice(keys, func(i, j int) bool {
		di := mathx.DistSq(keys[i].X, keys[i].Y, c.X, c.Y)
		dj := mathx.DistSq(keys[j].X, keys[j].Y, c.X, c.Y)
		if di != dj {
			return di < dj
		}
		return keys[i].Less(keys[j])
	})
}

// Process runs one frame's worth of work: hand queued requests to the
// worker, drain finished chunks, retry deferred materialization, evict,
// and emit completion notifications.
func (s *Scheduler) Process() {
	if s.stopped {
		return
	}
	s.pruneBacklog()
	s.pump()
	s.worker.DrainCompleted(s.accept)
	s.materializeDeferred()
	s.evict()
	s.finishPass()
}

func (s *Scheduler) inRange(k chunk.Key) bool {
	return s.hasCenter && k.Level == s.center.Level &&
		mathx.Chebyshev(k.X, k.Y, s.center.X, s.center.Y) <= s.cfg.UnloadRadius
}

// pruneBacklog drops queued keys the player has left behind. Keys already
// handed to the worker are delivered and evicted normally.
func (s *Scheduler) pruneBacklog() {
	kept := s.backlog[:0]
	for _, k := range s.backlog {
		if s.inRange(k) {
			kept = append(kept, k)
			continue
		}
		delete(s.queued, k)
	}
	for i := len(kept); i < len(s.backlog); i++ {
		s.backlog[i] = chunk.Key{}
	}
	s.backlog = kept
}

func (s *Scheduler) atCap() bool {
	return s.store.Len()+len(s.inFlight) >= s.cfg.MaxLoadedChunks
}

func (s *Scheduler) pump() {
	s.sortByDistance(s.backlog)
	for len(s.backlog) > 0 {
		if s.atCap() {
			if !s.capLogged {
				s.logger.Printf("scheduler: loaded-chunk cap %d reached; %d requests held", s.cfg.MaxLoadedChunks, len(s.backlog))
				s.capLogged = true
			}
			return
		}
		k := s.backlog[0]
		req := genworker.Request{
			Key:        k,
			WorldSeed:  s.cfg.WorldSeed,
			Seed:       s.gen.ChunkSeed(s.cfg.WorldSeed, k),
			Corruption: s.corruption.Value(k.Level),
			Epoch:      s.epoch,
		}
		if !s.worker.Enqueue(req) {
			return
		}
		s.backlog = s.backlog[1:]
		delete(s.queued, k)
		s.inFlight[k] = true
	}
	if !s.atCap() {
		s.capLogged = false
	}
}

func (s *Scheduler) accept(res genworker.Result) {
	ch := res.Chunk
	if res.Epoch != s.epoch {
		ch.DetachObservers()
		s.writeChunkEvent(ChunkEvent{Kind: ChunkEventStale, Key: res.Key, Corruption: res.Corruption})
		return
	}
	delete(s.inFlight, res.Key)
	if res.Recovered {
		s.writeChunkEvent(ChunkEvent{Kind: ChunkEventRecovered, Key: res.Key, Corruption: res.Corruption})
	}
	if err := s.store.Put(ch); err != nil {
		s.logger.Printf("scheduler: %v", err)
		ch.DetachObservers()
		return
	}
	s.stitchNeighbors(ch)

	ev := ChunkEvent{Kind: ChunkEventLoaded, Key: ch.Key, Corruption: ch.Corruption, ElapsedMS: res.Elapsed.Milliseconds()}
	if s.spawner != nil {
		rng := rand.New(rand.NewSource(mathx.Seed(mathx.Hash2(res.Seed, 101, 211))))
		sp := s.spawner.Populate(ch, ch.Corruption, rng)
		ev.Entities, ev.Items = sp.Entities, sp.Items
	}
	s.materialize(ch)
	d := ch.Digest()
	ev.Digest = hex.EncodeToString(d[:8])
	s.writeChunkEvent(ev)

	for _, l := range s.listeners {
		l.ChunkLoaded(ch.Key)
	}
	if s.bootstrapping {
		s.notifyProgress()
	}
}

var neighborDirs = [4][2]int{{0, -1}, {1, 0}, {0, 1}, {-1, 0}}

// stitchNeighbors carves hallways between ch and each loaded 4-neighbour.
// Tiles changed in an already materialized neighbour are patched in place.
func (s *Scheduler) stitchNeighbors(ch *chunk.Chunk) {
	for _, d := range neighborDirs {
		nk := ch.Key.Neighbor4(d[0], d[1])
		n, ok := s.store.Get(nk)
		if !ok {
			continue
		}
		patch, err := stitch.Carve(ch, n, s.cfg.WorldSeed, s.cfg.Stitch)
		if err != nil {
			s.logger.Printf("scheduler: stitch %v/%v: %v", ch.Key, nk, err)
			continue
		}
		changes := patch[nk]
		if len(changes) > 0 {
			if s.renderer != nil && s.materialized[nk] {
				s.renderer.PatchTiles(nk, changes)
			}
			for _, l := range s.listeners {
				l.TilesPatched(nk, changes)
			}
		}
		neighbor := nk
		s.writeChunkEvent(ChunkEvent{Kind: ChunkEventStitched, Key: ch.Key, Neighbor: &neighbor, Patched: len(changes)})
	}
}

func (s *Scheduler) materialize(ch *chunk.Chunk) {
	if s.renderer == nil || s.materialized[ch.Key] {
		return
	}
	if err := s.renderer.Materialize(ch); err != nil {
		s.logger.Printf("scheduler: materialize %v deferred: %v", ch.Key, err)
		return
	}
	s.materialized[ch.Key] = true
}

func (s *Scheduler) materializeDeferred() {
	if s.renderer == nil || len(s.materialized) == s.store.Len() {
		return
	}
	for _, k := range s.store.LoadedChunkKeys() {
		if ch, ok := s.store.Get(k); ok {
			s.materialize(ch)
		}
	}
}

func (s *Scheduler) evict() {
	if !s.hasCenter {
		return
	}
	for _, k := range s.store.LoadedChunkKeys() {
		if !s.inRange(k) {
			s.unload(k)
		}
	}
}

// unload tears down the rendered form, severs observers, then drops the chunk.
func (s *Scheduler) unload(k chunk.Key) {
	ch, ok := s.store.Get(k)
	if !ok {
		return
	}
	if s.renderer != nil && s.materialized[k] {
		s.renderer.Teardown(k)
	}
	delete(s.materialized, k)
	ch.DetachObservers()
	s.store.Delete(k)
	s.writeChunkEvent(ChunkEvent{Kind: ChunkEventUnloaded, Key: k, Corruption: ch.Corruption})
	for _, l := range s.listeners {
		l.ChunkUnloaded(k)
	}
}

// noWork is true when nothing is in flight and the backlog is empty or
// held back by the cap.
func (s *Scheduler) noWork() bool {
	return len(s.inFlight) == 0 && (len(s.backlog) == 0 || s.atCap())
}

func (s *Scheduler) finishPass() {
	if !s.noWork() {
		return
	}
	if s.bootstrapping && s.hasCenter {
		s.bootstrapping = false
		s.logger.Printf("scheduler: initial load done level=%d loaded=%d", s.center.Level, s.store.Len())
		for _, l := range s.listeners {
			l.InitialLoadCompleted()
		}
	}
	if s.turnPending {
		s.turnPending = false
		s.writeTurn()
		for _, l := range s.listeners {
			l.ChunkUpdatesCompleted(s.turn)
		}
	}
}

func (s *Scheduler) notifyProgress() {
	done := 0
	r := s.cfg.GenerationRadius
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			if _, ok := s.store.Get(chunk.Key{X: s.center.X + dx, Y: s.center.Y + dy, Level: s.center.Level}); ok {
				done++
			}
		}
	}
	for _, l := range s.listeners {
		l.LoadProgress(done, s.bootstrapTotal)
	}
}

// Idle reports whether a Settle loop would stop now.
func (s *Scheduler) Idle() bool {
	return s.stopped || (s.noWork() && !s.turnPending)
}

// Settle runs Process until the scheduler is idle or ctx ends. It is meant
// for headless tools and tests; interactive front-ends call Process per frame.
func (s *Scheduler) Settle(ctx context.Context) error {
	t := time.NewTicker(s.cfg.SettleInterval)
	defer t.Stop()
	for {
		s.Process()
		if s.Idle() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}

// StartNewRun discards all chunks and corruption and reseeds the world.
// Results of requests issued before the call are dropped on arrival.
func (s *Scheduler) StartNewRun(seed int64) {
	s.resetStreaming()
	s.cfg.WorldSeed = seed
	s.corruption.Reset()
	if s.spawner != nil {
		s.spawner.Reset()
	}
	s.logger.Printf("scheduler: new run seed=%d epoch=%d", seed, s.epoch)
}

// ChangeLevel discards all chunks and re-bootstraps on level once the
// player reports a position there. Corruption of every level is kept.
func (s *Scheduler) ChangeLevel(level int) {
	s.resetStreaming()
	s.level = level
	s.logger.Printf("scheduler: change level=%d epoch=%d", level, s.epoch)
}

func (s *Scheduler) resetStreaming() {
	s.epoch++
	for _, k := range s.store.LoadedChunkKeys() {
		s.unload(k)
	}
	s.backlog = nil
	s.queued = map[chunk.Key]bool{}
	s.inFlight = map[chunk.Key]bool{}
	s.hasCenter = false
	s.center = chunk.Key{}
	s.bootstrapping = true
	s.bootstrapTotal = 0
	s.capLogged = false
}

// Stop joins the worker, then releases every chunk. It blocks while a
// generation is still running.
func (s *Scheduler) Stop() {
	if s.stopped {
		return
	}
	s.stopped = true
	s.worker.Stop()
	s.worker.DrainCompleted(func(res genworker.Result) { res.Chunk.DetachObservers() })
	for _, k := range s.store.LoadedChunkKeys() {
		s.unload(k)
	}
	s.backlog = nil
	s.queued = map[chunk.Key]bool{}
	s.inFlight = map[chunk.Key]bool{}
}

func (s *Scheduler) writeTurn() {
	if s.turnLog == nil {
		return
	}
	entry := TurnLogEntry{
		Turn:        s.turn,
		Epoch:       s.epoch,
		Level:       s.level,
		PlayerChunk: s.center,
		Corruption:  s.corruption.Value(s.level),
		Loaded:      s.store.Len(),
		Queued:      len(s.backlog),
		InFlight:    len(s.inFlight),
		Visited:     s.corruption.VisitedCount(s.level),
		Capped:      len(s.backlog) > 0 && s.atCap(),
	}
	if err := s.turnLog.WriteTurn(entry); err != nil {
		s.logger.Printf("scheduler: turn log: %v", err)
	}
}

func (s *Scheduler) writeChunkEvent(ev ChunkEvent) {
	if s.journal == nil {
		return
	}
	ev.Turn, ev.Epoch = s.turn, s.epoch
	if err := s.journal.WriteChunkEvent(ev); err != nil {
		s.logger.Printf("scheduler: chunk journal: %v", err)
	}
}
