package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"

	"backrooms.dev/internal/sim/world"
)

// JSONLZstdWriter appends JSON lines to zstd files segmented by scheduler
// epoch: every StartNewRun or ChangeLevel starts "<prefix>-e<epoch>.jsonl.zst".
// Writing to an earlier epoch reopens its segment and appends a new frame.
type JSONLZstdWriter struct {
	baseDir string
	prefix  string

	mu    sync.Mutex
	open  bool
	epoch uint64
	lines int
	f     *os.File
	enc   *zstd.Encoder
	w     *bufio.Writer
}

func NewJSONLZstdWriter(baseDir, prefix string) *JSONLZstdWriter {
	return &JSONLZstdWriter{
		baseDir: baseDir,
		prefix:  prefix,
	}
}

func (w *JSONLZstdWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

// Write appends v to the segment of epoch.
func (w *JSONLZstdWriter) Write(epoch uint64, v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.open || epoch != w.epoch {
		if err := w.rotateLocked(epoch); err != nil {
			return err
		}
	}

	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	w.lines++
	return w.w.Flush()
}

// Segment reports the open epoch and how many lines went into it.
func (w *JSONLZstdWriter) Segment() (epoch uint64, lines int, ok bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.epoch, w.lines, w.open
}

func (w *JSONLZstdWriter) rotateLocked(epoch uint64) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(w.baseDir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(SegmentPath(w.baseDir, w.prefix, epoch), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f = f
	w.enc = enc
	w.w = bufio.NewWriterSize(enc, 128*1024)
	w.open, w.epoch, w.lines = true, epoch, 0
	return nil
}

func (w *JSONLZstdWriter) closeLocked() error {
	var err1 error
	if w.w != nil {
		_ = w.w.Flush()
	}
	if w.enc != nil {
		err1 = w.enc.Close()
		w.enc = nil
	}
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
	}
	w.w = nil
	w.open = false
	return err1
}

// SegmentPath names the file holding one epoch. Epochs are zero-padded so
// lexical order is epoch order.
func SegmentPath(dir, prefix string, epoch uint64) string {
	return filepath.Join(dir, fmt.Sprintf("%s-e%010d.jsonl.zst", prefix, epoch))
}

// TurnLogger writes one JSONL entry per completed turn, one segment per epoch.
type TurnLogger struct{ w *JSONLZstdWriter }

func NewTurnLogger(sessionDir string) *TurnLogger {
	return &TurnLogger{w: NewJSONLZstdWriter(filepath.Join(sessionDir, "turns"), "turns")}
}

func (l *TurnLogger) WriteTurn(v world.TurnLogEntry) error { return l.w.Write(v.Epoch, v) }
func (l *TurnLogger) Close() error                         { return l.w.Close() }

// ChunkJournal writes chunk lifecycle events, one segment per epoch.
type ChunkJournal struct{ w *JSONLZstdWriter }

func NewChunkJournal(sessionDir string) *ChunkJournal {
	return &ChunkJournal{w: NewJSONLZstdWriter(filepath.Join(sessionDir, "chunks"), "chunks")}
}

func (j *ChunkJournal) WriteChunkEvent(v world.ChunkEvent) error { return j.w.Write(v.Epoch, v) }
func (j *ChunkJournal) Close() error                             { return j.w.Close() }
