// internal/poller/types.go
package poller

import (
	"context"
	"time"

	"github.com/pytrel/dragon/internal/snapshot"
)

// Source abstracts raw artifact reads from the counterpart-owned read root.
// The poller depends on names only.
// Implementations MUST honor ctx: a read that cannot finish in budget returns an
// error wrapping snapshot.ErrUnavailable instead of hanging.
type Source interface {
	ReadArtifact(ctx context.Context, name string) ([]byte, error)
}

// Config is the minimal runtime config the poller needs.
type Config struct {
	Interval time.Duration
	Timeout  time.Duration // per read attempt
	Retries  int           // extra attempts after the first
	Backoff  time.Duration // linear: attempt * Backoff
}

// CycleFunc consumes one snapshot set. A non-nil error stops the loop.
type CycleFunc func(ctx context.Context, set snapshot.Set) error
