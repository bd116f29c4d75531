//go:build !unix

// internal/writer/lock_other.go
package writer

import (
	"fmt"
	"os"
)

// Lock on non-unix platforms uses exclusive creation of the lock file.
// A crashed instance leaves the file behind; remove it by hand.
type Lock struct {
	path string
}

// AcquireLock creates the lock file exclusively.
func AcquireLock(plan Plan) (*Lock, error) {
	f, err := os.OpenFile(plan.Lock, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrLocked, plan.Lock)
		}
		return nil, fmt.Errorf("%w: lock file: %w", ErrOutputWrite, err)
	}
	_, _ = fmt.Fprintf(f, "%d\n", os.Getpid())
	_ = f.Close()
	return &Lock{path: plan.Lock}, nil
}

// Release removes the lock file. Safe to call more than once.
func (l *Lock) Release() error {
	if l == nil || l.path == "" {
		return nil
	}
	err := os.Remove(l.path)
	l.path = ""
	return err
}
