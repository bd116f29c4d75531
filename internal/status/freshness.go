// internal/status/freshness.go
package status

import (
	"fmt"
	"math"
	"time"

	"github.com/pytrel/dragon/internal/snapshot"
)

// Thresholds are the two independent staleness triggers.
type Thresholds struct {
	Freshness time.Duration // against status.data_freshness_sec
	TickAge   time.Duration // against now - status.last_tick_utc
}

// DefaultThresholds returns 180s / 180s.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Freshness: DefaultFreshnessThresholdSec * time.Second,
		TickAge:   DefaultTickAgeThresholdSec * time.Second,
	}
}

// Freshness is the staleness verdict for one cycle.
type Freshness struct {
	Stale   bool
	Reasons []string

	// Inputs, present only when the status artifact was available.
	ReportedAge *time.Duration
	TickAge     *time.Duration
}

// EvaluateFreshness derives staleness from the status artifact.
// Stale if the artifact is unavailable, OR the reported freshness exceeds its
// threshold, OR the engine-clock time since last tick exceeds its threshold
// (in either direction: a tick too far in the future is stale too).
// No IO. No side effects.
func EvaluateFreshness(st snapshot.Artifact[snapshot.Status], now time.Time, th Thresholds) Freshness {
	if !st.OK() {
		return Freshness{
			Stale:   true,
			Reasons: []string{fmt.Sprintf("status artifact %s", st.Availability)},
		}
	}

	var f Freshness

	// Compared in seconds: huge self-reported ages would overflow a Duration.
	reported := secondsToDuration(st.Value.DataFreshnessSec)
	f.ReportedAge = &reported
	if st.Value.DataFreshnessSec > th.Freshness.Seconds() {
		f.Stale = true
		f.Reasons = append(f.Reasons, fmt.Sprintf(
			"data_freshness_sec %gs exceeds %s",
			st.Value.DataFreshnessSec,
			th.Freshness,
		))
	}

	// Engine clock, not the counterpart's self-report.
	tickAge := now.Sub(st.Value.LastTick)
	f.TickAge = &tickAge
	switch {
	case tickAge > th.TickAge:
		f.Stale = true
		f.Reasons = append(f.Reasons, fmt.Sprintf(
			"last tick %s ago exceeds %s",
			tickAge.Round(time.Second),
			th.TickAge,
		))
	case tickAge < -th.TickAge:
		// Skew up to the threshold is tolerated; beyond it the tick proves nothing.
		f.Stale = true
		f.Reasons = append(f.Reasons, fmt.Sprintf(
			"last tick %s ahead of engine clock exceeds %s",
			(-tickAge).Round(time.Second),
			th.TickAge,
		))
	}

	return f
}

// secondsToDuration converts, saturating at the Duration range.
func secondsToDuration(sec float64) time.Duration {
	if sec >= float64(math.MaxInt64)/float64(time.Second) {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(sec * float64(time.Second))
}
