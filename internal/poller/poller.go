// internal/poller/poller.go
package poller

import (
	"context"
	"errors"
	"io/fs"
	"time"

	"go.uber.org/zap"

	"github.com/pytrel/dragon/internal/snapshot"
)

// Poller is a dumb, clock-driven reader.
// It holds no state across cycles.
type Poller struct {
	cfg     Config
	src     Source
	log     *zap.Logger
	now     func() time.Time
	changes <-chan struct{}
}

// New creates a poller with immutable config.
func New(cfg Config, src Source, log *zap.Logger) (*Poller, error) {
	if src == nil {
		return nil, errors.New("poller: source required")
	}
	if cfg.Interval <= 0 {
		return nil, errors.New("poller: interval must be > 0")
	}
	if cfg.Timeout <= 0 {
		return nil, errors.New("poller: read timeout must be > 0")
	}
	if cfg.Retries < 0 {
		return nil, errors.New("poller: retries must be >= 0")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Poller{cfg: cfg, src: src, log: log, now: time.Now}, nil
}

// WithChanges adds an early trigger channel (e.g. a directory watcher).
// Each receive runs one extra cycle; the ticker keeps running.
func (p *Poller) WithChanges(ch <-chan struct{}) *Poller {
	p.changes = ch
	return p
}

// PollOnce performs exactly one read of every artifact.
// It never fails: each artifact is either loaded or marked unavailable/invalid.
func (p *Poller) PollOnce(ctx context.Context) snapshot.Set {
	set := snapshot.Set{ReadAt: p.now().UTC()}

	set.Status = load(ctx, p, snapshot.StatusFile, snapshot.DecodeStatus)
	set.Positions = load(ctx, p, snapshot.PositionsFile, snapshot.DecodePositions)
	set.Orders = load(ctx, p, snapshot.OrdersFile, snapshot.DecodeOrders)
	set.Risk = load(ctx, p, snapshot.RiskFile, snapshot.DecodeRisk)
	set.Performance = load(ctx, p, snapshot.PerformanceFile, snapshot.DecodePerformance)

	return set
}

// load reads and decodes one artifact with bounded time and retries.
// Not-exist is final; transient errors and undecodable content are retried,
// since the counterpart may be mid-write.
func load[T any](ctx context.Context, p *Poller, name string, decode func([]byte) (T, error)) snapshot.Artifact[T] {
	var lastErr error

	for attempt := 0; attempt <= p.cfg.Retries; attempt++ {
		if attempt > 0 {
			if !sleep(ctx, time.Duration(attempt)*p.cfg.Backoff) {
				break
			}
		}

		rctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
		b, err := p.src.ReadArtifact(rctx, name)
		cancel()

		if err == nil {
			v, derr := decode(b)
			if derr == nil {
				return snapshot.Loaded(name, v)
			}
			err = derr
		}
		lastErr = err

		if errors.Is(err, fs.ErrNotExist) || ctx.Err() != nil {
			break
		}
		p.log.Debug("artifact read attempt failed",
			zap.String("artifact", name),
			zap.Int("attempt", attempt+1),
			zap.Error(err))
	}

	if lastErr == nil {
		lastErr = ctx.Err()
	}
	if !errors.Is(lastErr, snapshot.ErrInvalid) && !errors.Is(lastErr, snapshot.ErrUnavailable) {
		lastErr = errors.Join(snapshot.ErrUnavailable, lastErr)
	}
	return snapshot.Failed[T](name, lastErr)
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
