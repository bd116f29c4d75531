// internal/engine/engine.go
package engine

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	cfg "github.com/pytrel/dragon/internal/config"
	"github.com/pytrel/dragon/internal/metrics"
	"github.com/pytrel/dragon/internal/snapshot"
	"github.com/pytrel/dragon/internal/status"
	"github.com/pytrel/dragon/internal/writer"
	"github.com/pytrel/dragon/internal/writer/ledger"
)

// Ledger is the append side of the ledger.
type Ledger interface {
	Append(entries ...ledger.Entry) error
}

// Engine evaluates one snapshot set per cycle and emits its consequences.
// It keeps no state between cycles; history is re-read from the ledger.
type Engine struct {
	cfg     cfg.EngineConfig
	plan    writer.Plan
	gate    status.Gate
	th      status.Thresholds
	ledger  Ledger
	out     writer.StatusWriter
	log     *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// New wires an engine. e must be validated and normalized.
func New(e cfg.EngineConfig, plan writer.Plan, led Ledger, out writer.StatusWriter, log *zap.Logger, m *metrics.Metrics) (*Engine, error) {
	if led == nil {
		return nil, errors.New("engine: ledger required")
	}
	if out == nil {
		return nil, errors.New("engine: status writer required")
	}
	if e.EscalationAfterCycles < 1 {
		return nil, errors.New("engine: escalation_after_cycles must be >= 1")
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Engine{
		cfg:  e,
		plan: plan,
		gate: status.Gate{
			Governor:    e.Governor(),
			VersionLock: e.VersionLock,
			OptIn:       e.CounterpartOptIn,
		},
		th: status.Thresholds{
			Freshness: time.Duration(e.FreshnessThresholdSec) * time.Second,
			TickAge:   time.Duration(e.TickAgeThresholdSec) * time.Second,
		},
		ledger:  led,
		out:     out,
		log:     log,
		metrics: m,
		now:     time.Now,
	}, nil
}

// WithClock replaces the engine clock.
func (en *Engine) WithClock(now func() time.Time) *Engine {
	en.now = now
	return en
}

// Cycle is one evaluate-and-emit pass. It matches poller.CycleFunc.
// Input problems never fail a cycle; any output write failure does.
func (en *Engine) Cycle(ctx context.Context, set snapshot.Set) error {
	// A read cut short by shutdown is not an observation.
	if ctx.Err() != nil {
		return nil
	}

	start := time.Now()
	now := en.now().UTC()
	cycleID := uuid.NewString()
	log := en.log.With(zap.String("cycle_id", cycleID))

	// ---- evaluate ----

	fresh := status.EvaluateFreshness(set.Status, now, en.th)
	obs := status.Synthesize(set, fresh, now)
	dec := status.Decide(obs, en.gate)
	// An unavailable status.json already degrades the cycle; it is not reported as a block.
	if en.cfg.Governor() && dec.Blocked() && set.Status.OK() {
		obs = obs.Blocked(dec.Gate.Error())
	}

	for _, st := range set.States() {
		en.metrics.Artifact(st.Name, st.Availability == snapshot.Available)
		if st.Availability != snapshot.Available {
			log.Debug("artifact unavailable",
				zap.String("artifact", st.Name),
				zap.String("availability", string(st.Availability)),
				zap.Error(st.Err))
		}
	}

	window, err := ledger.Tail(en.plan.Ledger, en.cfg.LedgerScanBytes)
	if err != nil {
		// History only shapes which entries are emitted; the cycle still runs.
		log.Warn("ledger scan failed, assuming empty history", zap.Error(err))
		window = nil
	}
	hist := ledger.Summarize(window)

	entries := en.policy(now, cycleID, obs, dec, hist)

	// ---- emit ----

	if err := en.ledger.Append(entries...); err != nil {
		en.metrics.OutputFailure(writer.LedgerFile)
		return err
	}
	for _, e := range entries {
		en.metrics.LedgerEntry(string(e.Type), string(e.Severity))
		if e.Severity != ledger.SeverityInfo {
			log.Warn(e.Summary, zap.String("type", string(e.Type)), zap.String("severity", string(e.Severity)))
		}
	}

	mode := status.ModeObserver
	if en.cfg.Governor() {
		mode = status.ModeGovernor
	}

	if err := en.out.WriteHeartbeat(status.EncodeHeartbeat(obs, en.cfg.Version, mode)); err != nil {
		return en.outputFailed(now, cycleID, writer.HeartbeatFile, err)
	}

	if en.cfg.Governor() {
		if err := en.out.WriteFlags(status.EncodeFlags(now, dec.Effective)); err != nil {
			return en.outputFailed(now, cycleID, writer.FlagsFile, err)
		}
	}

	if en.digestDue(now) {
		d := ledger.BuildDigest(now, append(window, entries...))
		if err := en.out.WriteDigest(d); err != nil {
			return en.outputFailed(now, cycleID, writer.DigestFile, err)
		}
	}

	en.metrics.Cycle(string(obs.Status), obs.Stale(), time.Since(start))
	log.Debug("cycle complete",
		zap.String("status", string(obs.Status)),
		zap.Bool("stale", obs.Stale()),
		zap.Int("entries", len(entries)))

	return nil
}

// outputFailed records the failure in the ledger if it still can, then
// returns the original error so the run terminates.
func (en *Engine) outputFailed(now time.Time, cycleID, artifact string, err error) error {
	en.metrics.OutputFailure(artifact)

	e := ledger.NewEntry(now, cycleID, ledger.EventError, ledger.SeverityErr,
		"failed to write "+artifact,
		map[string]any{"artifact": artifact, "error": err.Error()})
	if lerr := en.ledger.Append(e); lerr != nil {
		en.log.Error("ledger append after output failure", zap.Error(lerr))
	} else {
		en.metrics.LedgerEntry(string(e.Type), string(e.Severity))
	}

	en.log.Error("output write failed", zap.String("artifact", artifact), zap.Error(err))
	return err
}

func (en *Engine) digestDue(now time.Time) bool {
	if en.cfg.DigestIntervalSec <= 0 {
		return false
	}
	last, ok := writer.ReadAsOf(en.plan.Digest)
	if !ok {
		return true
	}
	return now.Sub(last) >= time.Duration(en.cfg.DigestIntervalSec)*time.Second
}
