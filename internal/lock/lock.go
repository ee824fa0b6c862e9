// Package lock provides a host-wide single-instance guard backed by an
// advisory file lock.
package lock

import (
	"errors"
	"os"
	"path/filepath"
)

// ErrHeld is returned when another process already holds the lock.
var ErrHeld = errors.New("another instance is already running")

// DefaultPath is the lock file used when none is configured.
func DefaultPath() string {
	return filepath.Join(os.TempDir(), "misp-purge.lock")
}

// File is an exclusive lock on a file path. The zero value is not usable;
// create one with New.
type File struct {
	path string
	f    *os.File
}

// New returns an unacquired lock on path.
func New(path string) *File {
	if path == "" {
		path = DefaultPath()
	}
	return &File{path: path}
}

// Path returns the lock file path.
func (l *File) Path() string { return l.path }
