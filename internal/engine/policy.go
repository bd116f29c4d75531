// internal/engine/policy.go
package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/pytrel/dragon/internal/snapshot"
	"github.com/pytrel/dragon/internal/status"
	"github.com/pytrel/dragon/internal/writer/ledger"
)

// Decision keys recorded in DECISION evidence.
const (
	decisionNone     = "none"
	decisionAsserted = "asserted"
	decisionWithheld = "withheld"
)

// policy turns one observation plus ledger history into the entries to append.
// Order: observation, escalations, governor decision.
//
//   - OBSERVATION when (status, stale, risk red) changed since the last one, or while stale.
//     INFO if ok, WARN otherwise.
//   - ESCALATION ERR each time the stale streak reaches a multiple of escalation_after_cycles.
//   - ESCALATION ERR when risk turns red.
//   - ESCALATION INFO (governor mode) when halts become withheld by an unmet precondition.
//   - DECISION (governor mode) when the halt decision changed.
func (en *Engine) policy(now time.Time, cycleID string, obs status.Observation, dec status.Decision, hist ledger.History) []ledger.Entry {
	var out []ledger.Entry

	changed := !hist.HasLast ||
		hist.LastStatus != string(obs.Status) ||
		hist.LastStale != obs.Stale() ||
		hist.LastRiskRed != obs.RiskRed()

	if changed || obs.Stale() {
		sev := ledger.SeverityInfo
		if obs.Status != status.StatusOK {
			sev = ledger.SeverityWarn
		}
		out = append(out, ledger.NewEntry(now, cycleID, ledger.EventObservation, sev,
			observationSummary(obs), observationEvidence(obs)))
	}

	if obs.Stale() {
		streak := hist.StaleStreak + 1
		if streak%en.cfg.EscalationAfterCycles == 0 {
			out = append(out, ledger.NewEntry(now, cycleID, ledger.EventEscalation, ledger.SeverityErr,
				fmt.Sprintf("counterpart stale for %d consecutive cycles", streak),
				map[string]any{
					"stale_streak": streak,
					"reasons":      nonNil(obs.Freshness.Reasons),
				}))
		}
	}

	if obs.RiskRed() && !(hist.HasLast && hist.LastRiskRed) {
		summary := "counterpart risk_state red"
		if obs.KillSwitch() {
			summary += " with kill_switch engaged"
		}
		r := obs.Snapshots.Risk.Value
		ev := map[string]any{
			"risk_state":  string(r.Level),
			"kill_switch": r.KillSwitch,
			"reserve_pct": r.ReservePct.String(),
		}
		if r.Notes != nil {
			ev["notes"] = *r.Notes
		}
		out = append(out, ledger.NewEntry(now, cycleID, ledger.EventEscalation, ledger.SeverityErr, summary, ev))
	}

	if en.cfg.Governor() {
		key := decisionKey(dec)
		last := hist.LastDecision
		if last == "" {
			last = decisionNone
		}
		if key != last {
			if dec.Blocked() {
				out = append(out, preconditionEntry(now, cycleID, dec))
			}
			out = append(out, decisionEntry(now, cycleID, key, dec))
		}
	}

	return out
}

func observationSummary(obs status.Observation) string {
	if obs.Status == status.StatusOK {
		return "counterpart ok"
	}
	return fmt.Sprintf("counterpart %s: %s", obs.Status, strings.Join(obs.Reasons, "; "))
}

func observationEvidence(obs status.Observation) map[string]any {
	artifacts := map[string]any{}
	for _, st := range obs.Snapshots.States() {
		artifacts[st.Name] = string(st.Availability)
	}

	ev := map[string]any{
		ledger.EvidenceStatus:  string(obs.Status),
		ledger.EvidenceStale:   obs.Stale(),
		ledger.EvidenceRiskRed: obs.RiskRed(),
		"reasons":              nonNil(obs.Reasons),
		"artifacts":            artifacts,
	}
	if obs.Snapshots.Status.OK() {
		ev["loop_state"] = string(obs.Snapshots.Status.Value.LoopState)
		ev["counterpart_version"] = obs.Snapshots.Status.Value.Version
	}
	if obs.ObservedAsOf != nil {
		ev["observed_as_of_utc"] = snapshot.FormatTime(*obs.ObservedAsOf)
	}
	return ev
}

// decisionKey identifies a halt decision so repeats are not re-recorded.
func decisionKey(dec status.Decision) string {
	if !dec.Intent.Any() {
		return decisionNone
	}
	prefix := decisionAsserted
	if dec.Gate != nil {
		prefix = decisionWithheld
	}
	return prefix + ":" + strings.Join(haltNames(dec.Intent), ",")
}

func haltNames(h status.Halts) []string {
	var names []string
	if h.NewOrders {
		names = append(names, "new_orders")
	}
	if h.PositionIncreases {
		names = append(names, "position_increases")
	}
	if h.PositionExits {
		names = append(names, "position_exits")
	}
	return names
}

// preconditionEntry records that the gate forced flags back to inert.
// INFO: the observation entry already carries the cycle's warning.
func preconditionEntry(now time.Time, cycleID string, dec status.Decision) ledger.Entry {
	return ledger.NewEntry(now, cycleID, ledger.EventEscalation, ledger.SeverityInfo,
		dec.Gate.Error(),
		map[string]any{
			"precondition": dec.Gate.Error(),
			"intended":     haltNames(dec.Intent),
			"reason":       dec.Intent.Reason(),
		})
}

func decisionEntry(now time.Time, cycleID, key string, dec status.Decision) ledger.Entry {
	ev := map[string]any{
		ledger.EvidenceDecision: key,
		"halts":                 nonNil(haltNames(dec.Effective)),
	}

	switch {
	case key == decisionNone:
		return ledger.NewEntry(now, cycleID, ledger.EventDecision, ledger.SeverityInfo,
			"halts cleared", ev)

	case dec.Gate != nil:
		ev["intended"] = haltNames(dec.Intent)
		ev["precondition"] = dec.Gate.Error()
		return ledger.NewEntry(now, cycleID, ledger.EventDecision, ledger.SeverityInfo,
			"halts withheld: "+dec.Gate.Error(), ev)

	default:
		ev["reason"] = dec.Effective.Reason()
		return ledger.NewEntry(now, cycleID, ledger.EventDecision, ledger.SeverityWarn,
			"halts asserted: "+dec.Effective.Reason(), ev)
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
