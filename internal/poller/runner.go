// internal/poller/runner.go
package poller

import (
	"context"
	"time"
)

// Run executes one cycle immediately, then one per tick (or per change signal).
// Cycles never overlap: each runs to completion before the next read starts.
// Returns nil on ctx cancellation, or the first error returned by fn.
func (p *Poller) Run(ctx context.Context, fn CycleFunc) error {
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	if err := p.cycle(ctx, fn); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		case _, ok := <-p.changes:
			if !ok {
				p.changes = nil
				continue
			}
			p.log.Debug("read root changed, running early cycle")
		}

		if err := p.cycle(ctx, fn); err != nil {
			return err
		}
	}
}

func (p *Poller) cycle(ctx context.Context, fn CycleFunc) error {
	if ctx.Err() != nil {
		return nil
	}
	return fn(ctx, p.PollOnce(ctx))
}
