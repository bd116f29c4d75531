// internal/status/constants.go
package status

// Status values reported in the heartbeat.
// These values define the contract and MUST NOT be configurable.

type Status string

// StatusOK: every artifact available, fresh, counterpart loop ok, risk not red.
const StatusOK Status = "ok"

// StatusDegraded: stale, an artifact unavailable/invalid, or an adverse counterpart state.
const StatusDegraded Status = "degraded"

// StatusBlocked: governor mode wanted to assert a halt but the precondition was unmet.
const StatusBlocked Status = "blocked"

// ---- ENGINE MODE ----

type Mode string

// ModeObserver only reads and records.
const ModeObserver Mode = "observer"

// ModeGovernor may additionally write halt directives.
const ModeGovernor Mode = "governor"

// ---- DEFAULT THRESHOLDS ----

// DefaultFreshnessThresholdSec bounds the counterpart's self-reported data age.
const DefaultFreshnessThresholdSec = 180

// DefaultTickAgeThresholdSec bounds wall-clock time since the counterpart's last tick.
const DefaultTickAgeThresholdSec = 180
