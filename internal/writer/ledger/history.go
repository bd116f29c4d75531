// internal/writer/ledger/history.go
package ledger

// History is what the engine needs to remember between cycles, rebuilt from
// the ledger tail each cycle rather than held in memory.
type History struct {
	HasLast      bool
	LastStatus   string
	LastStale    bool
	LastRiskRed  bool
	StaleStreak  int    // trailing consecutive stale OBSERVATION entries
	LastDecision string // key of the last DECISION entry, "" if none
}

// Evidence keys shared by the engine's entries and Summarize.
const (
	EvidenceStatus   = "status"
	EvidenceStale    = "stale"
	EvidenceRiskRed  = "risk_red"
	EvidenceDecision = "decision"
)

// Summarize walks entries oldest to newest.
// Entries lacking the expected evidence are ignored.
func Summarize(entries []Entry) History {
	var h History
	for _, e := range entries {
		switch e.Type {
		case EventObservation:
			st, ok1 := e.Evidence[EvidenceStatus].(string)
			stale, ok2 := e.Evidence[EvidenceStale].(bool)
			if !ok1 || !ok2 {
				continue
			}
			red, _ := e.Evidence[EvidenceRiskRed].(bool)

			h.HasLast = true
			h.LastStatus = st
			h.LastStale = stale
			h.LastRiskRed = red
			if stale {
				h.StaleStreak++
			} else {
				h.StaleStreak = 0
			}

		case EventDecision:
			if key, ok := e.Evidence[EvidenceDecision].(string); ok {
				h.LastDecision = key
			}
		}
	}
	return h
}
