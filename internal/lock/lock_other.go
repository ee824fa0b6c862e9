//go:build !unix

package lock

import (
	"errors"
	"fmt"
	"os"
	"strconv"
)

// Acquire creates the lock file exclusively. Without flock a crashed
// process leaves the file behind and it must be removed by hand.
func (l *File) Acquire() error {
	f, err := os.OpenFile(l.path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, os.ErrExist) {
		return fmt.Errorf("%w (lock file %s)", ErrHeld, l.path)
	}
	if err != nil {
		return fmt.Errorf("open lock file: %w", err)
	}
	_, _ = f.WriteString(strconv.Itoa(os.Getpid()) + "\n")
	l.f = f
	return nil
}

// Release closes and removes the lock file.
func (l *File) Release() error {
	if l.f == nil {
		return nil
	}
	err := l.f.Close()
	l.f = nil
	if rmErr := os.Remove(l.path); rmErr != nil && err == nil {
		err = rmErr
	}
	return err
}
