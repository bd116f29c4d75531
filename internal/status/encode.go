// internal/status/encode.go
package status

import (
	"strings"
	"time"

	"github.com/pytrel/dragon/internal/snapshot"
)

// Heartbeat is the overwritten presence artifact (heartbeat.json).
type Heartbeat struct {
	AsOf         string  `json:"as_of_utc"`
	Version      string  `json:"version"`
	Mode         Mode    `json:"mode"`
	ObservedAsOf *string `json:"observed_as_of_utc,omitempty"`
	Status       Status  `json:"status"`
	Message      string  `json:"message,omitempty"`
}

// Flags is the governor directive artifact (flags.json).
type Flags struct {
	AsOf                  string `json:"as_of_utc"`
	HaltNewOrders         bool   `json:"halt_new_orders"`
	HaltPositionIncreases bool   `json:"halt_position_increases"`
	HaltPositionExits     bool   `json:"halt_position_exits"`
	Reason                string `json:"reason"`
}

// EncodeHeartbeat builds the heartbeat from this cycle's observation only.
// No IO. No side effects.
func EncodeHeartbeat(obs Observation, version string, mode Mode) Heartbeat {
	hb := Heartbeat{
		AsOf:    snapshot.FormatTime(obs.At),
		Version: version,
		Mode:    mode,
		Status:  obs.Status,
	}
	if obs.ObservedAsOf != nil {
		s := snapshot.FormatTime(*obs.ObservedAsOf)
		hb.ObservedAsOf = &s
	}
	if obs.Status != StatusOK {
		hb.Message = strings.Join(obs.Reasons, "; ")
	}
	return hb
}

// EncodeFlags renders the effective halts. Inert halts yield all-false and an empty reason.
func EncodeFlags(at time.Time, h Halts) Flags {
	f := Flags{
		AsOf:                  snapshot.FormatTime(at),
		HaltNewOrders:         h.NewOrders,
		HaltPositionIncreases: h.PositionIncreases,
		HaltPositionExits:     h.PositionExits,
	}
	if h.Any() {
		f.Reason = h.Reason()
	}
	return f
}
