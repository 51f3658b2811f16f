// Package storage keeps runs, analysis records, price series and raw
// snapshots as JSON files under one data directory, and optionally mirrors
// offers into ClickHouse.
//
// Layout:
//
//	history/<route-slug>/<run-id>.json
//	analysis/<run-id>.json
//	snapshots/<uuid>.txt
//	price_tracking.json
//
// Every write is atomic. Runs and analysis records are append-only.
package storage

import (
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// FileStore groups the stores that share a data directory.
type FileStore struct {
	Dir       string
	History   *HistoryStore
	Analysis  *AnalysisStore
	Prices    *PriceStore
	Snapshots *SnapshotStore
}

// Open prepares the data directory and returns its stores.
func Open(dir string, logger *logrus.Logger) (*FileStore, error) {
	for _, sub := range []string{"history", "analysis", "snapshots"} {
		path := filepath.Join(dir, sub)
		if err := os.MkdirAll(path, 0o755); err != nil {
			return nil, &PersistenceError{Op: "open", Path: path, Err: err}
		}
	}

	return &FileStore{
		Dir:       dir,
		History:   &HistoryStore{dir: filepath.Join(dir, "history"), logger: logger},
		Analysis:  &AnalysisStore{dir: filepath.Join(dir, "analysis"), logger: logger},
		Prices:    &PriceStore{path: filepath.Join(dir, "price_tracking.json")},
		Snapshots: &SnapshotStore{dir: filepath.Join(dir, "snapshots")},
	}, nil
}

// Writable checks that a file can be created in the data directory.
func (s *FileStore) Writable() error {
	return writeFileAtomic(filepath.Join(s.Dir, ".healthcheck"), []byte("ok"))
}

// listJSON returns the ids of the *.json files in dir, newest (largest) first.
func listJSON(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var ids []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || filepath.Ext(name) != ".json" || name[0] == '.' {
			continue
		}
		ids = append(ids, name[:len(name)-len(".json")])
	}
	sortDesc(ids)
	return ids, nil
}
