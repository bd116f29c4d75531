// internal/engine/run.go
package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	cfg "github.com/pytrel/dragon/internal/config"
	"github.com/pytrel/dragon/internal/metrics"
	"github.com/pytrel/dragon/internal/poller"
	"github.com/pytrel/dragon/internal/writer"
	"github.com/pytrel/dragon/internal/writer/ledger"
)

// Run owns the write root for its lifetime: it takes the instance lock,
// opens the ledger and drives cycles until ctx ends or an output write fails.
// With once set, exactly one cycle runs.
func Run(ctx context.Context, e cfg.EngineConfig, log *zap.Logger, m *metrics.Metrics, once bool) error {
	// --------------------
	// Write side
	// --------------------

	plan, err := writer.BuildPlan(e)
	if err != nil {
		return fmt.Errorf("writer plan: %w", err)
	}

	lock, err := writer.AcquireLock(plan)
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			log.Warn("lock release failed", zap.Error(err))
		}
	}()

	led, err := ledger.Open(plan.Ledger)
	if err != nil {
		return err
	}
	defer led.Close()

	en, err := New(e, plan, led, writer.NewStatusWriter(plan), log, m)
	if err != nil {
		return err
	}

	// --------------------
	// Read side
	// --------------------

	p, closePoller, err := poller.Build(e, log)
	if err != nil {
		return fmt.Errorf("poller build: %w", err)
	}
	defer closePoller()

	log.Info("engine started",
		zap.String("mode", e.Mode),
		zap.String("read_root", e.ReadRoot),
		zap.String("write_root", e.WriteRoot),
		zap.Bool("once", once))

	if once {
		return en.Cycle(ctx, p.PollOnce(ctx))
	}
	return p.Run(ctx, en.Cycle)
}
