// internal/status/governor.go
package status

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pytrel/dragon/internal/snapshot"
)

// ErrPreconditionUnmet: governor-mode writes are gated and the gate is closed.
var ErrPreconditionUnmet = errors.New("governor precondition unmet")

// Gate is the externally supplied governor precondition.
type Gate struct {
	Governor    bool   // run configured in governor mode
	VersionLock string // expected counterpart version
	OptIn       bool   // counterpart has agreed to honor flags.json
}

// Check returns nil when halts may take effect.
// The version is compared against the counterpart's own status artifact.
func (g Gate) Check(obs Observation) error {
	if !g.Governor {
		return fmt.Errorf("%w: observer mode", ErrPreconditionUnmet)
	}
	if !g.OptIn {
		return fmt.Errorf("%w: counterpart has not opted in", ErrPreconditionUnmet)
	}
	if !obs.Snapshots.Status.OK() {
		return fmt.Errorf("%w: counterpart version unknown (status %s)",
			ErrPreconditionUnmet, obs.Snapshots.Status.Availability)
	}
	if v := obs.Snapshots.Status.Value.Version; v != g.VersionLock {
		return fmt.Errorf("%w: counterpart version %q does not match lock %q",
			ErrPreconditionUnmet, v, g.VersionLock)
	}
	return nil
}

// Halts is a set of halt directives plus the conditions behind them.
type Halts struct {
	NewOrders         bool
	PositionIncreases bool
	PositionExits     bool
	Reasons           []string
}

// Any reports whether at least one halt is set.
func (h Halts) Any() bool {
	return h.NewOrders || h.PositionIncreases || h.PositionExits
}

// Reason joins the triggering conditions; empty when inert.
func (h Halts) Reason() string {
	return strings.Join(h.Reasons, "; ")
}

// Intent derives which halts the observation would justify.
//   - stale                 => new orders
//   - risk red              => new orders + position increases
//   - positions.json invalid => position exits
func Intent(obs Observation) Halts {
	var h Halts

	if obs.Stale() {
		h.NewOrders = true
		h.Reasons = append(h.Reasons, "counterpart state stale")
	}
	if obs.RiskRed() {
		h.NewOrders = true
		h.PositionIncreases = true
		h.Reasons = append(h.Reasons, "counterpart risk_state red")
	}
	if obs.Snapshots.Positions.Availability == snapshot.Invalid {
		h.PositionExits = true
		h.Reasons = append(h.Reasons, "positions artifact invalid")
	}

	return h
}

// Decision is the governor outcome for one cycle.
type Decision struct {
	Intent    Halts // what the observation justifies
	Effective Halts // what is written; inert unless the gate is open
	Gate      error // nil when the precondition holds
}

// Blocked reports an intent to assert that the gate refused.
func (d Decision) Blocked() bool {
	return d.Intent.Any() && d.Gate != nil
}

// Decide applies the gate to the observation's intent.
// Absent a triggering condition or an open gate, all halts stay false.
func Decide(obs Observation, g Gate) Decision {
	d := Decision{Intent: Intent(obs), Gate: g.Check(obs)}
	if d.Gate == nil {
		d.Effective = d.Intent
	}
	return d
}
