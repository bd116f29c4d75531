// internal/status/observation.go
package status

import (
	"fmt"
	"time"

	"github.com/pytrel/dragon/internal/snapshot"
)

// Observation is the ephemeral per-cycle record.
// It is never persisted as a unit; only its consequences are.
type Observation struct {
	At        time.Time
	Snapshots snapshot.Set
	Freshness Freshness
	Status    Status

	// Reasons explains a non-ok status, in evaluation order.
	Reasons []string

	// Unavailable lists artifacts that were missing or invalid this cycle.
	Unavailable []snapshot.ArtifactState

	// ObservedAsOf is the latest counterpart as-of seen this cycle, if any.
	ObservedAsOf *time.Time
}

// Synthesize combines the snapshot set and freshness verdict into one Observation.
// Always succeeds: absence of data is a valid (degraded) observation.
// No IO. No side effects. No memory of earlier cycles.
func Synthesize(set snapshot.Set, fresh Freshness, now time.Time) Observation {
	obs := Observation{
		At:        now.UTC(),
		Snapshots: set,
		Freshness: fresh,
		Status:    StatusOK,
	}

	if t, ok := set.LatestAsOf(); ok {
		obs.ObservedAsOf = &t
	}

	if fresh.Stale {
		obs.Reasons = append(obs.Reasons, fresh.Reasons...)
	}

	for _, st := range set.States() {
		if st.Availability == snapshot.Available {
			continue
		}
		obs.Unavailable = append(obs.Unavailable, st)
		// status.json absence is already explained by freshness
		if st.Name != snapshot.StatusFile {
			obs.Reasons = append(obs.Reasons, fmt.Sprintf("%s %s", st.Name, st.Availability))
		}
	}

	if set.Status.OK() && set.Status.Value.LoopState != snapshot.LoopOK {
		obs.Reasons = append(obs.Reasons, fmt.Sprintf("counterpart loop_state %s", set.Status.Value.LoopState))
	}

	if obs.RiskRed() {
		r := set.Risk.Value
		msg := "counterpart risk_state red"
		if r.KillSwitch {
			msg += " with kill_switch engaged"
		}
		obs.Reasons = append(obs.Reasons, msg)
	}

	if fresh.Stale || len(obs.Reasons) > 0 {
		obs.Status = StatusDegraded
	}

	return obs
}

// Stale is shorthand for the freshness verdict.
func (o Observation) Stale() bool { return o.Freshness.Stale }

// RiskRed reports a validated risk artifact at level red.
func (o Observation) RiskRed() bool {
	return o.Snapshots.Risk.OK() && o.Snapshots.Risk.Value.Level == snapshot.RiskRed
}

// KillSwitch reports the counterpart-local kill switch, when known.
func (o Observation) KillSwitch() bool {
	return o.Snapshots.Risk.OK() && o.Snapshots.Risk.Value.KillSwitch
}

// Blocked returns a copy whose status is blocked, with reason appended.
func (o Observation) Blocked(reason string) Observation {
	o.Status = StatusBlocked
	o.Reasons = append(append([]string(nil), o.Reasons...), reason)
	return o
}
