// internal/engine/engine_test.go
package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	cfg "github.com/pytrel/dragon/internal/config"
	"github.com/pytrel/dragon/internal/poller"
	"github.com/pytrel/dragon/internal/snapshot"
	"github.com/pytrel/dragon/internal/status"
	"github.com/pytrel/dragon/internal/writer"
	"github.com/pytrel/dragon/internal/writer/ledger"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const counterpartVersion = "hawk-1.4.2"

// ---- harness ----

// recordingLedger appends through to the real ledger and remembers what it was given.
type recordingLedger struct {
	inner    *ledger.Writer
	appended []ledger.Entry
}

func (r *recordingLedger) Append(entries ...ledger.Entry) error {
	if err := r.inner.Append(entries...); err != nil {
		return err
	}
	r.appended = append(r.appended, entries...)
	return nil
}

type harness struct {
	t    *testing.T
	e    cfg.EngineConfig
	plan writer.Plan
	led  *recordingLedger
	en   *Engine
	p    *poller.Poller
	now  time.Time
}

func newHarness(t *testing.T, mutate func(e *cfg.EngineConfig)) *harness {
	t.Helper()

	base := t.TempDir()
	retries := 0
	c := &cfg.Config{Dragon: cfg.EngineConfig{
		Version:   "0.3.0",
		ReadRoot:  filepath.Join(base, "hawk"),
		WriteRoot: filepath.Join(base, "dragon"),
		// one read attempt per artifact keeps missing-file cycles fast
		ReadRetries: &retries,
	}}
	if mutate != nil {
		mutate(&c.Dragon)
	}
	require.NoError(t, cfg.Validate(c))
	cfg.Normalize(c)
	require.NoError(t, os.MkdirAll(c.Dragon.ReadRoot, 0o755))

	h := &harness{
		t:   t,
		e:   c.Dragon,
		now: time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC),
	}

	plan, err := writer.BuildPlan(h.e)
	require.NoError(t, err)
	h.plan = plan

	w, err := ledger.Open(plan.Ledger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })
	h.led = &recordingLedger{inner: w}

	h.en, err = New(h.e, plan, h.led, writer.NewStatusWriter(plan), zap.NewNop(), nil)
	require.NoError(t, err)
	h.en.WithClock(func() time.Time { return h.now })

	h.p, _, err = poller.Build(h.e, zap.NewNop())
	require.NoError(t, err)

	return h
}

func (h *harness) ts(ago time.Duration) string {
	return snapshot.FormatTime(h.now.Add(-ago))
}

func (h *harness) put(name, doc string) {
	h.t.Helper()
	require.NoError(h.t, os.WriteFile(filepath.Join(h.e.ReadRoot, name), []byte(doc), 0o644))
}

func (h *harness) remove(name string) {
	h.t.Helper()
	require.NoError(h.t, os.Remove(filepath.Join(h.e.ReadRoot, name)))
}

func (h *harness) putStatus(freshnessSec float64, tickAgo time.Duration, loop string) {
	h.put(snapshot.StatusFile, fmt.Sprintf(`{
  "as_of_utc": %q,
  "version": %q,
  "mode": "paper",
  "loop_state": %q,
  "last_tick_utc": %q,
  "data_freshness_sec": %g
}`, h.ts(5*time.Second), counterpartVersion, loop, h.ts(tickAgo), freshnessSec))
}

func (h *harness) putRisk(level string, killSwitch bool) {
	h.put(snapshot.RiskFile, fmt.Sprintf(`{
  "as_of_utc": %q,
  "risk_state": %q,
  "reserve_pct": "20",
  "max_concurrent_positions": 3,
  "kill_switch": %t,
  "notes": "fixture"
}`, h.ts(5*time.Second), level, killSwitch))
}

// putHealthy writes a complete, fresh, green counterpart namespace.
func (h *harness) putHealthy() {
	h.putStatus(10, 5*time.Second, "ok")
	h.put(snapshot.PositionsFile, fmt.Sprintf(`{"as_of_utc": %q, "positions": [
  {"symbol": "BTC-USD", "qty": "0.5", "avg_price": "61000.25", "unrealized_pnl": "-12.5"}
]}`, h.ts(5*time.Second)))
	h.put(snapshot.OrdersFile, fmt.Sprintf(`{"as_of_utc": %q, "orders": []}`, h.ts(5*time.Second)))
	h.putRisk("green", false)
	h.put(snapshot.PerformanceFile, fmt.Sprintf(`{"as_of_utc": %q, "equity": "10000", "day_pnl": "12.5"}`, h.ts(5*time.Second)))
}

func (h *harness) cycle() error {
	ctx := context.Background()
	return h.en.Cycle(ctx, h.p.PollOnce(ctx))
}

func (h *harness) mustCycle() []ledger.Entry {
	h.t.Helper()
	before := len(h.led.appended)
	require.NoError(h.t, h.cycle())
	return h.led.appended[before:]
}

func (h *harness) ledgerEntries() []ledger.Entry {
	h.t.Helper()
	got, err := ledger.Tail(h.plan.Ledger, 0)
	require.NoError(h.t, err)
	return got
}

func (h *harness) heartbeat() status.Heartbeat {
	h.t.Helper()
	var hb status.Heartbeat
	readJSON(h.t, h.plan.Heartbeat, &hb)
	return hb
}

func (h *harness) flags() status.Flags {
	h.t.Helper()
	var f status.Flags
	readJSON(h.t, h.plan.Flags, &f)
	return f
}

func readJSON(t *testing.T, path string, v any) {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(b, v))
}

func countSeverity(entries []ledger.Entry, sev ledger.Severity) int {
	n := 0
	for _, e := range entries {
		if e.Severity == sev {
			n++
		}
	}
	return n
}

func ofType(entries []ledger.Entry, typ ledger.EventType) []ledger.Entry {
	var out []ledger.Entry
	for _, e := range entries {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

// ---- end-to-end scenarios ----

func TestScenarioA_HealthyCounterpart(t *testing.T) {
	h := newHarness(t, nil)
	h.putHealthy()

	got := h.mustCycle()

	assert.Equal(t, status.StatusOK, h.heartbeat().Status)
	assert.Empty(t, h.heartbeat().Message)
	require.Len(t, got, 1)
	assert.Equal(t, ledger.EventObservation, got[0].Type)
	assert.Equal(t, ledger.SeverityInfo, got[0].Severity)
	assert.Zero(t, countSeverity(h.ledgerEntries(), ledger.SeverityWarn))
	assert.Zero(t, countSeverity(h.ledgerEntries(), ledger.SeverityErr))

	// unchanged healthy state records nothing further
	h.now = h.now.Add(time.Minute)
	h.putHealthy()
	assert.Empty(t, h.mustCycle())
	assert.Equal(t, status.StatusOK, h.heartbeat().Status)
}

func TestScenarioB_StatusMissing(t *testing.T) {
	h := newHarness(t, nil)
	h.putHealthy()
	h.remove(snapshot.StatusFile)

	got := h.mustCycle()

	assert.Equal(t, status.StatusDegraded, h.heartbeat().Status)
	assert.Contains(t, h.heartbeat().Message, "status artifact missing")

	require.Equal(t, 1, countSeverity(got, ledger.SeverityWarn))
	obs := ofType(got, ledger.EventObservation)
	require.Len(t, obs, 1)
	assert.Equal(t, ledger.SeverityWarn, obs[0].Severity)
	assert.Contains(t, obs[0].Summary, "status artifact missing")
	assert.Equal(t, true, obs[0].Evidence[ledger.EvidenceStale])
}

func TestStatusMissing_OneWarnInGovernorMode(t *testing.T) {
	h := newHarness(t, func(e *cfg.EngineConfig) {
		e.Mode = cfg.ModeGovernor
		e.VersionLock = counterpartVersion
		e.CounterpartOptIn = true
	})
	h.putHealthy()
	h.remove(snapshot.StatusFile)

	got := h.mustCycle()

	assert.Equal(t, 1, countSeverity(got, ledger.SeverityWarn))
	// absent status degrades; the closed gate is recorded but is not a block
	assert.Equal(t, status.StatusDegraded, h.heartbeat().Status)
	assert.Equal(t, status.Flags{AsOf: snapshot.FormatTime(h.now)}, h.flags())

	esc := ofType(got, ledger.EventEscalation)
	require.Len(t, esc, 1)
	assert.Equal(t, ledger.SeverityInfo, esc[0].Severity)
	assert.Contains(t, esc[0].Summary, "governor precondition unmet")
}

func TestScenarioC_RiskRedWithKillSwitch(t *testing.T) {
	h := newHarness(t, nil)
	h.putHealthy()
	h.putRisk("red", true)

	got := h.mustCycle()

	esc := ofType(got, ledger.EventEscalation)
	require.Len(t, esc, 1)
	assert.Equal(t, ledger.SeverityErr, esc[0].Severity)
	assert.Contains(t, esc[0].Summary, "kill_switch engaged")
	assert.Equal(t, true, esc[0].Evidence["kill_switch"])

	assert.Equal(t, status.StatusDegraded, h.heartbeat().Status)

	// observer mode never writes flags
	_, err := os.Stat(h.plan.Flags)
	assert.True(t, os.IsNotExist(err))

	// a persisting red state is not re-escalated
	h.now = h.now.Add(time.Minute)
	h.putHealthy()
	h.putRisk("red", true)
	assert.Empty(t, ofType(h.mustCycle(), ledger.EventEscalation))
}

// ---- ledger properties ----

func TestLedger_AppendOnlyAcrossCycles(t *testing.T) {
	h := newHarness(t, nil)

	var prev []byte
	for i := 0; i < 6; i++ {
		switch i % 3 {
		case 0:
			h.putHealthy()
		case 1:
			h.remove(snapshot.StatusFile)
		case 2:
			h.putRisk("red", false)
		}
		h.mustCycle()

		cur, err := os.ReadFile(h.plan.Ledger)
		require.NoError(t, err)
		require.True(t, bytes.HasPrefix(cur, prev), "cycle %d changed committed ledger bytes", i)
		prev = cur

		h.now = h.now.Add(time.Minute)
	}

	onDisk := h.ledgerEntries()
	require.Len(t, onDisk, len(h.led.appended))
	for i := range onDisk {
		assert.Equal(t, h.led.appended[i].ID, onDisk[i].ID, "entry %d out of order", i)
	}
}

func TestEscalation_PersistentStaleness(t *testing.T) {
	h := newHarness(t, nil)
	h.putHealthy()
	h.remove(snapshot.StatusFile)

	var escalatedAt []int
	for i := 1; i <= 7; i++ {
		got := h.mustCycle()
		require.Len(t, ofType(got, ledger.EventObservation), 1, "cycle %d", i)
		if esc := ofType(got, ledger.EventEscalation); len(esc) > 0 {
			require.Len(t, esc, 1)
			assert.Equal(t, ledger.SeverityErr, esc[0].Severity)
			escalatedAt = append(escalatedAt, i)
		}
		h.now = h.now.Add(time.Minute)
	}
	assert.Equal(t, []int{3, 6}, escalatedAt)

	// recovery resets the streak
	h.putHealthy()
	got := h.mustCycle()
	require.Len(t, got, 1)
	assert.Equal(t, ledger.SeverityInfo, got[0].Severity)

	h.remove(snapshot.StatusFile)
	for i := 1; i <= 2; i++ {
		h.now = h.now.Add(time.Minute)
		assert.Empty(t, ofType(h.mustCycle(), ledger.EventEscalation))
	}
}

func TestEscalation_ThresholdConfigurable(t *testing.T) {
	h := newHarness(t, func(e *cfg.EngineConfig) { e.EscalationAfterCycles = 1 })
	h.putHealthy()
	h.putStatus(500, 5*time.Second, "ok")

	for i := 0; i < 3; i++ {
		require.Len(t, ofType(h.mustCycle(), ledger.EventEscalation), 1)
		h.now = h.now.Add(time.Minute)
		h.putStatus(500, 5*time.Second, "ok")
	}
}

func TestStaleness_ExtremeCounterpartClocks(t *testing.T) {
	tests := []struct {
		name      string
		freshness float64
		tickAgo   time.Duration
		reason    string
	}{
		{"reported age 1e10", 1e10, 5 * time.Second, "data_freshness_sec"},
		{"reported age 1e12", 1e12, 5 * time.Second, "data_freshness_sec"},
		{"tick far in the future", 1, -10 * time.Minute, "ahead of engine clock"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, nil)
			h.putHealthy()
			h.putStatus(tt.freshness, tt.tickAgo, "ok")

			got := h.mustCycle()

			obs := ofType(got, ledger.EventObservation)
			require.Len(t, obs, 1)
			assert.Equal(t, true, obs[0].Evidence[ledger.EvidenceStale])
			assert.Equal(t, status.StatusDegraded, h.heartbeat().Status)
			assert.Contains(t, h.heartbeat().Message, tt.reason)
		})
	}
}

func TestStaleness_SmallFutureSkewTolerated(t *testing.T) {
	h := newHarness(t, nil)
	h.putHealthy()
	h.putStatus(10, -30*time.Second, "ok")

	h.mustCycle()
	assert.Equal(t, status.StatusOK, h.heartbeat().Status)
}

// ---- heartbeat ----

func TestHeartbeat_ReflectsLatestCycleOnly(t *testing.T) {
	h := newHarness(t, nil)
	h.putHealthy()
	h.putStatus(10, 10*time.Minute, "degraded")
	h.mustCycle()

	first := h.heartbeat()
	require.Equal(t, status.StatusDegraded, first.Status)
	require.NotEmpty(t, first.Message)

	h.now = h.now.Add(time.Minute)
	h.putHealthy()
	h.mustCycle()

	observed := h.ts(5 * time.Second)
	want := status.Heartbeat{
		AsOf:         snapshot.FormatTime(h.now),
		Version:      "0.3.0",
		Mode:         status.ModeObserver,
		ObservedAsOf: &observed,
		Status:       status.StatusOK,
	}
	if diff := cmp.Diff(want, h.heartbeat()); diff != "" {
		t.Fatalf("heartbeat mismatch (-want +got):\n%s", diff)
	}
}

// ---- governor ----

func TestGovernor_VersionMismatchKeepsFlagsInert(t *testing.T) {
	h := newHarness(t, func(e *cfg.EngineConfig) {
		e.Mode = cfg.ModeGovernor
		e.VersionLock = "hawk-9.9.9"
		e.CounterpartOptIn = true
	})
	h.putHealthy()
	h.putStatus(500, 5*time.Second, "ok")
	h.putRisk("red", true)

	got := h.mustCycle()

	want := status.Flags{AsOf: snapshot.FormatTime(h.now)}
	if diff := cmp.Diff(want, h.flags()); diff != "" {
		t.Fatalf("flags mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, status.StatusBlocked, h.heartbeat().Status)
	assert.Contains(t, h.heartbeat().Message, "does not match lock")

	dec := ofType(got, ledger.EventDecision)
	require.Len(t, dec, 1)
	assert.Equal(t, ledger.SeverityInfo, dec[0].Severity)
	assert.Contains(t, dec[0].Summary, "halts withheld")

	var unmet []ledger.Entry
	for _, e := range ofType(got, ledger.EventEscalation) {
		if _, ok := e.Evidence["precondition"]; ok {
			unmet = append(unmet, e)
		}
	}
	require.Len(t, unmet, 1)
	assert.Equal(t, ledger.SeverityInfo, unmet[0].Severity)
	assert.Contains(t, unmet[0].Summary, "governor precondition unmet")
	assert.Contains(t, unmet[0].Summary, "does not match lock")

	// a persisting mismatch is not re-escalated
	h.now = h.now.Add(time.Minute)
	h.putHealthy()
	h.putStatus(500, 5*time.Second, "ok")
	h.putRisk("red", true)
	assert.Empty(t, ofType(h.mustCycle(), ledger.EventEscalation))
}

func TestGovernor_MismatchWithInvalidPositionsEscalates(t *testing.T) {
	h := newHarness(t, func(e *cfg.EngineConfig) {
		e.Mode = cfg.ModeGovernor
		e.VersionLock = "hawk-9.9.9"
		e.CounterpartOptIn = true
	})
	h.putHealthy()
	h.put(snapshot.PositionsFile, `{"as_of_utc": "2026-10-16T12:00:00Z"}`)

	got := h.mustCycle()

	esc := ofType(got, ledger.EventEscalation)
	require.Len(t, esc, 1)
	assert.Equal(t, []string{"position_exits"}, esc[0].Evidence["intended"])
	assert.Equal(t, status.StatusBlocked, h.heartbeat().Status)
	assert.False(t, h.flags().HaltPositionExits)
}

func TestGovernor_NoOptInKeepsFlagsInert(t *testing.T) {
	h := newHarness(t, func(e *cfg.EngineConfig) {
		e.Mode = cfg.ModeGovernor
		e.VersionLock = counterpartVersion
	})
	h.putHealthy()
	h.putRisk("red", false)

	h.mustCycle()

	f := h.flags()
	assert.False(t, f.HaltNewOrders || f.HaltPositionIncreases || f.HaltPositionExits)
	assert.Empty(t, f.Reason)
	assert.Equal(t, status.StatusBlocked, h.heartbeat().Status)
}

func TestGovernor_OpenGateAssertsAndClears(t *testing.T) {
	h := newHarness(t, func(e *cfg.EngineConfig) {
		e.Mode = cfg.ModeGovernor
		e.VersionLock = counterpartVersion
		e.CounterpartOptIn = true
	})

	// healthy: flags written, inert, no decision recorded
	h.putHealthy()
	got := h.mustCycle()
	assert.Empty(t, ofType(got, ledger.EventDecision))
	assert.Equal(t, status.Flags{AsOf: snapshot.FormatTime(h.now)}, h.flags())

	// risk red: halts asserted
	h.now = h.now.Add(time.Minute)
	h.putHealthy()
	h.putRisk("red", false)
	got = h.mustCycle()

	want := status.Flags{
		AsOf:                  snapshot.FormatTime(h.now),
		HaltNewOrders:         true,
		HaltPositionIncreases: true,
		Reason:                "counterpart risk_state red",
	}
	if diff := cmp.Diff(want, h.flags()); diff != "" {
		t.Fatalf("flags mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, status.StatusDegraded, h.heartbeat().Status)
	dec := ofType(got, ledger.EventDecision)
	require.Len(t, dec, 1)
	assert.Equal(t, ledger.SeverityWarn, dec[0].Severity)

	// unchanged decision is not re-recorded
	h.now = h.now.Add(time.Minute)
	h.putHealthy()
	h.putRisk("red", false)
	assert.Empty(t, ofType(h.mustCycle(), ledger.EventDecision))
	assert.True(t, h.flags().HaltNewOrders)

	// recovery clears
	h.now = h.now.Add(time.Minute)
	h.putHealthy()
	got = h.mustCycle()
	dec = ofType(got, ledger.EventDecision)
	require.Len(t, dec, 1)
	assert.Equal(t, "halts cleared", dec[0].Summary)
	assert.Equal(t, status.Flags{AsOf: snapshot.FormatTime(h.now)}, h.flags())
}

func TestGovernor_InvalidPositionsHaltsExits(t *testing.T) {
	h := newHarness(t, func(e *cfg.EngineConfig) {
		e.Mode = cfg.ModeGovernor
		e.VersionLock = counterpartVersion
		e.CounterpartOptIn = true
	})
	h.putHealthy()
	h.put(snapshot.PositionsFile, `{"as_of_utc": "2026-10-16T12:00:00Z"}`)

	h.mustCycle()

	f := h.flags()
	assert.True(t, f.HaltPositionExits)
	assert.False(t, f.HaltNewOrders)
	assert.Equal(t, "positions artifact invalid", f.Reason)
}

// ---- failures and lifecycle ----

type failingWriter struct {
	writer.StatusWriter
	heartbeatErr error
}

func (w failingWriter) WriteHeartbeat(status.Heartbeat) error { return w.heartbeatErr }

func TestCycle_OutputFailureIsFatal(t *testing.T) {
	h := newHarness(t, nil)
	h.putHealthy()

	boom := fmt.Errorf("%w: heartbeat.json: disk full", writer.ErrOutputWrite)
	en, err := New(h.e, h.plan, h.led, failingWriter{StatusWriter: writer.NewStatusWriter(h.plan), heartbeatErr: boom}, zap.NewNop(), nil)
	require.NoError(t, err)
	en.WithClock(func() time.Time { return h.now })

	ctx := context.Background()
	err = en.Cycle(ctx, h.p.PollOnce(ctx))
	require.ErrorIs(t, err, writer.ErrOutputWrite)

	errs := ofType(h.ledgerEntries(), ledger.EventError)
	require.Len(t, errs, 1)
	assert.Equal(t, ledger.SeverityErr, errs[0].Severity)
	assert.Equal(t, writer.HeartbeatFile, errs[0].Evidence["artifact"])
}

func TestCycle_CancelledContextWritesNothing(t *testing.T) {
	h := newHarness(t, nil)
	h.putHealthy()

	ctx, cancel := context.WithCancel(context.Background())
	set := h.p.PollOnce(ctx)
	cancel()

	require.NoError(t, h.en.Cycle(ctx, set))
	assert.Empty(t, h.ledgerEntries())
	_, err := os.Stat(h.plan.Heartbeat)
	assert.True(t, os.IsNotExist(err))
}

func TestCycle_DigestInterval(t *testing.T) {
	h := newHarness(t, func(e *cfg.EngineConfig) { e.DigestIntervalSec = 3600 })
	h.putHealthy()

	h.mustCycle()
	var d ledger.Digest
	readJSON(t, h.plan.Digest, &d)
	assert.Equal(t, snapshot.FormatTime(h.now), d.AsOf)
	assert.Equal(t, 1, d.WindowEntries)
	assert.Equal(t, "ok", d.LastStatus)

	first := h.now
	h.now = h.now.Add(time.Minute)
	h.putHealthy()
	h.mustCycle()
	readJSON(t, h.plan.Digest, &d)
	assert.Equal(t, snapshot.FormatTime(first), d.AsOf)

	h.now = first.Add(time.Hour)
	h.putHealthy()
	h.remove(snapshot.StatusFile)
	h.mustCycle()
	readJSON(t, h.plan.Digest, &d)
	assert.Equal(t, snapshot.FormatTime(h.now), d.AsOf)
	assert.Equal(t, 2, d.WindowEntries)
	assert.Equal(t, "degraded", d.LastStatus)
	assert.True(t, d.LastStale)
}

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := New(cfg.EngineConfig{EscalationAfterCycles: 3}, writer.Plan{}, nil, writer.NewStatusWriter(writer.Plan{}), nil, nil)
	require.Error(t, err)

	_, err = New(cfg.EngineConfig{EscalationAfterCycles: 3}, writer.Plan{}, &recordingLedger{}, nil, nil, nil)
	require.Error(t, err)

	_, err = New(cfg.EngineConfig{}, writer.Plan{}, &recordingLedger{}, writer.NewStatusWriter(writer.Plan{}), nil, nil)
	require.Error(t, err)
}

func TestRun_OnceAndLock(t *testing.T) {
	h := newHarness(t, nil)
	h.putHealthy()

	require.NoError(t, Run(context.Background(), h.e, zap.NewNop(), nil, true))

	hb := h.heartbeat()
	assert.Equal(t, status.ModeObserver, hb.Mode)
	assert.NotEmpty(t, h.ledgerEntries())

	// lock released after a run
	lock, err := writer.AcquireLock(h.plan)
	require.NoError(t, err)

	// and refused while held
	err = Run(context.Background(), h.e, zap.NewNop(), nil, true)
	require.ErrorIs(t, err, writer.ErrLocked)

	require.NoError(t, lock.Release())
}

func TestRun_StopsOnCancel(t *testing.T) {
	h := newHarness(t, func(e *cfg.EngineConfig) { e.PollIntervalSec = 1 })
	h.putHealthy()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Run(ctx, h.e, zap.NewNop(), nil, false) }()

	require.Eventually(t, func() bool {
		_, err := os.Stat(h.plan.Heartbeat)
		return err == nil
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not stop after cancel")
	}
}
