package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

const lockFileName = ".spaceradar.lock"

// Lock serializes pipeline runs against one data directory. The stores
// assume a single writer at a time; a second concurrent run must fail
// fast instead of interleaving writes.
type Lock struct {
	path string
}

// Acquire takes the run lock for dir. It fails if another process holds
// it; a stale lock left by a crash must be removed by the operator.
func Acquire(dir string) (*Lock, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	path := filepath.Join(dir, lockFileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if os.IsExist(err) {
			return nil, fmt.Errorf("data dir %s is locked by another run (remove %s if stale)", dir, path)
		}
		return nil, fmt.Errorf("acquire lock: %w", err)
	}

	_, _ = f.WriteString(strconv.Itoa(os.Getpid()))
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("write lock: %w", err)
	}

	return &Lock{path: path}, nil
}

// Release removes the lock file.
func (l *Lock) Release() error {
	return os.Remove(l.path)
}
