package indexdb

import (
	"database/sql"
	"fmt"
	"sort"
)

type Run struct {
	Epoch     uint64
	Seed      int64
	StartedAt string
}

// ReadRuns lists the runs recorded in the index at path, by epoch.
func ReadRuns(path string) ([]Run, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.Query(`SELECT epoch, seed, started_at FROM runs ORDER BY epoch`)
	if err != nil {
		return nil, fmt.Errorf("read runs: %w", err)
	}
	defer rows.Close()
	var out []Run
	for rows.Next() {
		var r Run
		var epoch int64
		if err := rows.Scan(&epoch, &r.Seed, &r.StartedAt); err != nil {
			return nil, err
		}
		r.Epoch = uint64(epoch)
		out = append(out, r)
	}
	return out, rows.Err()
}

// SeedAt returns the seed of the latest run started at or before epoch.
func SeedAt(runs []Run, epoch uint64) (int64, bool) {
	i := sort.Search(len(runs), func(i int) bool { return runs[i].Epoch > epoch })
	if i == 0 {
		return 0, false
	}
	return runs[i-1].Seed, true
}
