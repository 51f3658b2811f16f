package storage

import (
	"errors"
	"fmt"
)

var (
	// ErrRunExists is returned when a run id is already stored. Runs are never overwritten.
	ErrRunExists = errors.New("run already stored")

	// ErrRecordExists is returned when a run already has an analysis record.
	ErrRecordExists = errors.New("analysis record already stored")

	ErrNotFound = errors.New("not found")
)

// PersistenceError is a failed read or write of the file store.
type PersistenceError struct {
	Op   string
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
