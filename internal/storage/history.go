package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/navid-fn/fareradar/internal/models"
)

// HistoryStore is the append-only archive of search runs, one file per run.
type HistoryStore struct {
	dir    string
	logger *logrus.Logger
	mu     sync.Mutex
}

func (s *HistoryStore) runPath(key models.RouteKey, runID string) string {
	return filepath.Join(s.dir, key.Slug(), runID+".json")
}

// Append stores a sealed run. It refuses to overwrite an existing run id.
// Once the write has started, cancelling ctx does not interrupt it.
func (s *HistoryStore) Append(ctx context.Context, run *models.SearchRun) error {
	path := s.runPath(run.RouteKey(), run.ID)
	if err := ctx.Err(); err != nil {
		return &PersistenceError{Op: "append run", Path: path, Err: err}
	}
	if !validID(run.ID) {
		return &PersistenceError{Op: "append run", Path: path, Err: errors.New("invalid run id")}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	found, err := exists(path)
	if err != nil {
		return &PersistenceError{Op: "append run", Path: path, Err: err}
	}
	if found {
		return &PersistenceError{Op: "append run", Path: path, Err: ErrRunExists}
	}

	if err := writeJSON("append run", path, run); err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"run_id": run.ID,
		"route":  run.RouteKey(),
		"offers": len(run.Offers),
		"path":   path,
	}).Debug("Run appended to history")
	return nil
}

// Query returns up to limit runs of the route, newest first. A limit of zero
// or less returns every run. Unreadable files are logged and skipped.
func (s *HistoryStore) Query(ctx context.Context, key models.RouteKey, limit int) ([]*models.SearchRun, error) {
	dir := filepath.Join(s.dir, key.Slug())
	ids, err := listJSON(dir)
	if err != nil {
		return nil, &PersistenceError{Op: "query runs", Path: dir, Err: err}
	}

	runs := make([]*models.SearchRun, 0, len(ids))
	for _, id := range ids {
		if limit > 0 && len(runs) >= limit {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var run models.SearchRun
		if err := readJSON("query runs", filepath.Join(dir, id+".json"), &run); err != nil {
			s.logger.WithError(err).WithField("run_id", id).Warn("Skipping unreadable run")
			continue
		}
		runs = append(runs, &run)
	}
	return runs, nil
}

// Get returns one stored run.
func (s *HistoryStore) Get(ctx context.Context, key models.RouteKey, runID string) (*models.SearchRun, error) {
	if !validID(runID) {
		return nil, &PersistenceError{Op: "get run", Path: runID, Err: ErrNotFound}
	}
	var run models.SearchRun
	if err := readJSON("get run", s.runPath(key, runID), &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// Routes lists the route keys with at least one stored run.
func (s *HistoryStore) Routes(ctx context.Context) ([]models.RouteKey, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, &PersistenceError{Op: "list routes", Path: s.dir, Err: err}
	}

	var keys []models.RouteKey
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(s.dir, e.Name())
		ids, err := listJSON(dir)
		if err != nil || len(ids) == 0 {
			continue
		}
		var run models.SearchRun
		if err := readJSON("list routes", filepath.Join(dir, ids[0]+".json"), &run); err != nil {
			continue
		}
		keys = append(keys, run.RouteKey())
	}
	slices.Sort(keys)
	return keys, nil
}

func sortDesc(ids []string) {
	slices.SortFunc(ids, func(a, b string) int {
		return strings.Compare(b, a)
	})
}
