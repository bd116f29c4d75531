//go:build unix

// internal/writer/lock_unix.go
package writer

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Lock is an advisory single-writer lock on the write root.
// Concurrent engine instances would interleave ledger appends; the second one fails fast.
type Lock struct {
	f *os.File
}

// AcquireLock takes an exclusive non-blocking flock on the plan's lock file.
func AcquireLock(plan Plan) (*Lock, error) {
	f, err := os.OpenFile(plan.Lock, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("%w: lock file: %w", ErrOutputWrite, err)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		_ = f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, fmt.Errorf("%w: %s", ErrLocked, plan.Lock)
		}
		return nil, fmt.Errorf("%w: flock %s: %w", ErrOutputWrite, plan.Lock, err)
	}

	// Record the holder for operators; the lock itself is the flock.
	_ = f.Truncate(0)
	_, _ = f.WriteAt([]byte(fmt.Sprintf("%d\n", os.Getpid())), 0)

	return &Lock{f: f}, nil
}

// Release drops the lock. Safe to call more than once.
func (l *Lock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	_ = unix.Flock(int(l.f.Fd()), unix.LOCK_UN)
	err := l.f.Close()
	l.f = nil
	return err
}
