package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

// idPattern guards file names built from caller supplied ids.
var idPattern = regexp.MustCompile(`^[0-9A-Za-z._-]+$`)

func validID(id string) bool {
	return idPattern.MatchString(id) && id != "." && id != ".."
}

// writeFileAtomic writes data to a temp file next to path, syncs it and
// renames it into place, so readers see either the old file or the new one.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		// No-op after a successful rename.
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}
	return syncDir(dir)
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	// Some filesystems refuse to fsync directories; the rename is already done.
	_ = d.Sync()
	return nil
}

func writeJSON(op, path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return &PersistenceError{Op: op, Path: path, Err: fmt.Errorf("encode: %w", err)}
	}
	if err := writeFileAtomic(path, data); err != nil {
		return &PersistenceError{Op: op, Path: path, Err: err}
	}
	return nil
}

func readJSON(op, path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &PersistenceError{Op: op, Path: path, Err: ErrNotFound}
		}
		return &PersistenceError{Op: op, Path: path, Err: err}
	}
	if err := json.Unmarshal(data, v); err != nil {
		return &PersistenceError{Op: op, Path: path, Err: fmt.Errorf("decode: %w", err)}
	}
	return nil
}

func exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}
