package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zstd"

	"backrooms.dev/internal/sim/world"
)

// Files lists dir's "<prefix>-*.jsonl.zst" segments in epoch order.
func Files(dir, prefix string) ([]string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range ents {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, prefix+"-") || !strings.HasSuffix(name, ".jsonl.zst") {
			continue
		}
		out = append(out, filepath.Join(dir, name))
	}
	sort.Strings(out)
	return out, nil
}

// ScanFile calls fn for every line of a compressed JSONL file.
func ScanFile(path string, fn func(line []byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 8*1024*1024)
	n := 0
	for sc.Scan() {
		n++
		if err := fn(sc.Bytes()); err != nil {
			return fmt.Errorf("%s:%d: %w", filepath.Base(path), n, err)
		}
	}
	return sc.Err()
}

// ReadChunkEvents replays a session's chunk journal in order.
func ReadChunkEvents(sessionDir string, fn func(world.ChunkEvent) error) error {
	files, err := Files(filepath.Join(sessionDir, "chunks"), "chunks")
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no chunk journal under %s", sessionDir)
	}
	for _, p := range files {
		err := ScanFile(p, func(line []byte) error {
			var ev world.ChunkEvent
			if err := json.Unmarshal(line, &ev); err != nil {
				return err
			}
			return fn(ev)
		})
		if err != nil {
			return err
		}
	}
	return nil
}
