package indexdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"backrooms.dev/internal/sim/tuning"
	"backrooms.dev/internal/sim/world"
)

// SQLiteIndex is a queryable secondary index of a session's telemetry.
// Writes are queued to a single writer goroutine and dropped when the
// queue is full; the JSONL journal remains the source of truth.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropTurn       atomic.Uint64
	dropChunkEvent atomic.Uint64
	dropRun        atomic.Uint64
}

type reqKind int

const (
	reqTurn reqKind = iota + 1
	reqChunkEvent
	reqRun
)

type req struct {
	kind reqKind

	turn  world.TurnLogEntry
	event world.ChunkEvent
	run   runRow
}

type runRow struct {
	Epoch     uint64
	Seed      int64
	StartedAt string
	Tuning    string
}

type Stats struct {
	QueueDepth          int
	QueueCapacity       int
	DropTurnTotal       uint64
	DropChunkEventTotal uint64
	DropRunTotal        uint64
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	return openSQLite(path, 65536)
}

func openSQLite(path string, queue int) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, queue),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS runs (
			epoch INTEGER PRIMARY KEY,
			seed INTEGER NOT NULL,
			started_at TEXT NOT NULL,
			tuning_json TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS turns (
			epoch INTEGER NOT NULL,
			turn INTEGER NOT NULL,
			level INTEGER NOT NULL,
			chunk_x INTEGER NOT NULL,
			chunk_y INTEGER NOT NULL,
			corruption REAL NOT NULL,
			loaded INTEGER NOT NULL,
			queued INTEGER NOT NULL,
			in_flight INTEGER NOT NULL,
			visited INTEGER NOT NULL,
			capped INTEGER NOT NULL,
			PRIMARY KEY (epoch, turn)
		);`,
		`CREATE TABLE IF NOT EXISTS chunk_events (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			epoch INTEGER NOT NULL,
			turn INTEGER NOT NULL,
			kind TEXT NOT NULL,
			level INTEGER NOT NULL,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			digest TEXT,
			corruption REAL NOT NULL,
			elapsed_ms INTEGER NOT NULL,
			raw_json TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_chunk_events_pos ON chunk_events(level, x, y, turn);`,
		`CREATE TABLE IF NOT EXISTS corruption (
			level INTEGER NOT NULL,
			turn INTEGER NOT NULL,
			value REAL NOT NULL,
			PRIMARY KEY (level, turn)
		);`,
		`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1');`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:          len(s.ch),
		QueueCapacity:       cap(s.ch),
		DropTurnTotal:       s.dropTurn.Load(),
		DropChunkEventTotal: s.dropChunkEvent.Load(),
		DropRunTotal:        s.dropRun.Load(),
	}
}

func (s *SQLiteIndex) WriteTurn(entry world.TurnLogEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqTurn, turn: entry}:
	default:
		s.dropTurn.Add(1)
	}
	return nil
}

func (s *SQLiteIndex) WriteChunkEvent(ev world.ChunkEvent) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqChunkEvent, event: ev}:
	default:
		s.dropChunkEvent.Add(1)
	}
	return nil
}

// RecordRun notes the seed and applied tuning of a run.
func (s *SQLiteIndex) RecordRun(epoch uint64, seed int64, tune tuning.Tuning) {
	if s == nil || s.closed.Load() {
		return
	}
	b, _ := json.Marshal(tune)
	r := runRow{
		Epoch:     epoch,
		Seed:      seed,
		StartedAt: time.Now().UTC().Format(time.RFC3339Nano),
		Tuning:    string(b),
	}
	select {
	case s.ch <- req{kind: reqRun, run: r}:
	default:
		s.dropRun.Add(1)
	}
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertTurn, _ := s.db.Prepare(`INSERT OR REPLACE INTO turns(epoch,turn,level,chunk_x,chunk_y,corruption,loaded,queued,in_flight,visited,capped) VALUES(?,?,?,?,?,?,?,?,?,?,?)`)
	insertCorruption, _ := s.db.Prepare(`INSERT OR REPLACE INTO corruption(level,turn,value) VALUES(?,?,?)`)
	insertEvent, _ := s.db.Prepare(`INSERT INTO chunk_events(epoch,turn,kind,level,x,y,digest,corruption,elapsed_ms,raw_json) VALUES(?,?,?,?,?,?,?,?,?,?)`)
	insertRun, _ := s.db.Prepare(`INSERT OR REPLACE INTO runs(epoch,seed,started_at,tuning_json) VALUES(?,?,?,?)`)
	defer func() {
		for _, st := range []*sql.Stmt{insertTurn, insertCorruption, insertEvent, insertRun} {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 500
		commitMaxWait = time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	exec := func(st *sql.Stmt, args ...any) bool {
		if st == nil {
			return true
		}
		if _, err := tx.Stmt(st).Exec(args...); err != nil {
			rollback()
			return false
		}
		opCount++
		return true
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqTurn:
			t := r.turn
			capped := 0
			if t.Capped {
				capped = 1
			}
			if !exec(insertTurn, int64(t.Epoch), int64(t.Turn), t.Level, t.PlayerChunk.X, t.PlayerChunk.Y,
				t.Corruption, t.Loaded, t.Queued, t.InFlight, t.Visited, capped) {
				continue
			}
			exec(insertCorruption, t.Level, int64(t.Turn), t.Corruption)

		case reqChunkEvent:
			ev := r.event
			raw, _ := json.Marshal(ev)
			exec(insertEvent, int64(ev.Epoch), int64(ev.Turn), string(ev.Kind), ev.Key.Level, ev.Key.X, ev.Key.Y,
				ev.Digest, ev.Corruption, ev.ElapsedMS, string(raw))

		case reqRun:
			exec(insertRun, int64(r.run.Epoch), r.run.Seed, r.run.StartedAt, r.run.Tuning)
		}
		if tx != nil && (opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait) {
			commit()
		}
	}

	commit()
}
