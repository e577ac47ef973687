// Package instance guards against two sorters sharing a destination root.
package instance

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ErrAlreadyRunning is returned when another process holds the lock.
var ErrAlreadyRunning = errors.New("another inbox-sorter instance is already running")

// Lock is an advisory lock file held for the life of the process
type Lock struct {
	path string
	lock *flock.Flock
}

// Acquire takes the lock at path without blocking
func Acquire(path string) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}

	l := flock.New(path)
	ok, err := l.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w (lock %s)", ErrAlreadyRunning, path)
	}
	return &Lock{path: path, lock: l}, nil
}

// Path returns the lock file path
func (l *Lock) Path() string {
	return l.path
}

// Release unlocks the lock file
func (l *Lock) Release() error {
	return l.lock.Unlock()
}
