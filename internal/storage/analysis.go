package storage

import (
	"context"
	"errors"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/navid-fn/fareradar/internal/models"
)

// AnalysisStore keeps one analysis record per run.
type AnalysisStore struct {
	dir    string
	logger *logrus.Logger
	mu     sync.Mutex
}

func (s *AnalysisStore) Append(ctx context.Context, record models.AnalysisRecord) error {
	path := filepath.Join(s.dir, record.RunID+".json")
	if !validID(record.RunID) {
		return &PersistenceError{Op: "append analysis", Path: path, Err: errors.New("invalid run id")}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	found, err := exists(path)
	if err != nil {
		return &PersistenceError{Op: "append analysis", Path: path, Err: err}
	}
	if found {
		return &PersistenceError{Op: "append analysis", Path: path, Err: ErrRecordExists}
	}
	return writeJSON("append analysis", path, record)
}

func (s *AnalysisStore) Get(ctx context.Context, runID string) (models.AnalysisRecord, error) {
	var record models.AnalysisRecord
	if !validID(runID) {
		return record, &PersistenceError{Op: "get analysis", Path: runID, Err: ErrNotFound}
	}
	err := readJSON("get analysis", filepath.Join(s.dir, runID+".json"), &record)
	return record, err
}

// List returns up to limit records, newest run first.
func (s *AnalysisStore) List(ctx context.Context, limit int) ([]models.AnalysisRecord, error) {
	ids, err := listJSON(s.dir)
	if err != nil {
		return nil, &PersistenceError{Op: "list analysis", Path: s.dir, Err: err}
	}

	records := make([]models.AnalysisRecord, 0, len(ids))
	for _, id := range ids {
		if limit > 0 && len(records) >= limit {
			break
		}
		var record models.AnalysisRecord
		if err := readJSON("list analysis", filepath.Join(s.dir, id+".json"), &record); err != nil {
			s.logger.WithError(err).WithField("run_id", id).Warn("Skipping unreadable analysis record")
			continue
		}
		records = append(records, record)
	}
	return records, nil
}
