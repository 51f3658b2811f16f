package storage

import (
	"context"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// SnapshotStore keeps the raw text offers were parsed from.
type SnapshotStore struct {
	dir string
}

// Put stores text and returns its reference.
func (s *SnapshotStore) Put(ctx context.Context, text string) (string, error) {
	ref := uuid.NewString()
	path := filepath.Join(s.dir, ref+".txt")
	if err := writeFileAtomic(path, []byte(text)); err != nil {
		return "", &PersistenceError{Op: "put snapshot", Path: path, Err: err}
	}
	return ref, nil
}

func (s *SnapshotStore) Get(ctx context.Context, ref string) (string, error) {
	if err := uuid.Validate(ref); err != nil {
		return "", &PersistenceError{Op: "get snapshot", Path: ref, Err: ErrNotFound}
	}
	path := filepath.Join(s.dir, ref+".txt")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			err = ErrNotFound
		}
		return "", &PersistenceError{Op: "get snapshot", Path: path, Err: err}
	}
	return string(data), nil
}

// Delete removes a snapshot. A missing snapshot is not an error.
func (s *SnapshotStore) Delete(ctx context.Context, ref string) error {
	if err := uuid.Validate(ref); err != nil {
		return &PersistenceError{Op: "delete snapshot", Path: ref, Err: ErrNotFound}
	}
	path := filepath.Join(s.dir, ref+".txt")
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return &PersistenceError{Op: "delete snapshot", Path: path, Err: err}
	}
	return nil
}
