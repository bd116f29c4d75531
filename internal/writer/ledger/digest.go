// internal/writer/ledger/digest.go
package ledger

import (
	"time"

	"github.com/pytrel/dragon/internal/snapshot"
)

// Digest is the periodic summary written to digest.json.
// It is derived from the ledger window and carries no state of its own.
type Digest struct {
	AsOf           string            `json:"as_of_utc"`
	WindowEntries  int               `json:"window_entries"`
	WindowStart    string            `json:"window_start_utc,omitempty"`
	ByType         map[EventType]int `json:"by_type"`
	BySeverity     map[Severity]int  `json:"by_severity"`
	LastStatus     string            `json:"last_status,omitempty"`
	LastStale      bool              `json:"last_stale"`
	StaleStreak    int               `json:"stale_streak"`
	LastEscalation *string           `json:"last_escalation,omitempty"`
}

// BuildDigest summarizes the entries of one ledger window.
func BuildDigest(at time.Time, entries []Entry) Digest {
	d := Digest{
		AsOf:          snapshot.FormatTime(at),
		WindowEntries: len(entries),
		ByType:        map[EventType]int{},
		BySeverity:    map[Severity]int{},
	}
	if len(entries) > 0 {
		d.WindowStart = entries[0].TS
	}

	for _, e := range entries {
		d.ByType[e.Type]++
		d.BySeverity[e.Severity]++
		if e.Type == EventEscalation {
			s := e.Summary
			d.LastEscalation = &s
		}
	}

	h := Summarize(entries)
	d.LastStatus = h.LastStatus
	d.LastStale = h.LastStale
	d.StaleStreak = h.StaleStreak

	return d
}
