// internal/writer/ledger/entry.go
package ledger

import (
	"time"

	"github.com/google/uuid"

	"github.com/pytrel/dragon/internal/snapshot"
)

// EventType classifies a ledger entry.
type EventType string

const (
	EventObservation EventType = "OBSERVATION"
	EventEscalation  EventType = "ESCALATION"
	EventDecision    EventType = "DECISION"
	EventError       EventType = "ERROR"
)

// Severity of a ledger entry.
type Severity string

const (
	SeverityInfo Severity = "INFO"
	SeverityWarn Severity = "WARN"
	SeverityErr  Severity = "ERR"
)

// Entry is one JSONL line. Once appended it is never rewritten.
type Entry struct {
	ID       string         `json:"id"`
	TS       string         `json:"ts_utc"`
	CycleID  string         `json:"cycle_id,omitempty"`
	Type     EventType      `json:"type"`
	Severity Severity       `json:"severity"`
	Summary  string         `json:"summary"`
	Evidence map[string]any `json:"evidence,omitempty"`
}

// NewEntry stamps a fresh entry with a random id.
func NewEntry(at time.Time, cycleID string, typ EventType, sev Severity, summary string, evidence map[string]any) Entry {
	return Entry{
		ID:       uuid.NewString(),
		TS:       snapshot.FormatTime(at),
		CycleID:  cycleID,
		Type:     typ,
		Severity: sev,
		Summary:  summary,
		Evidence: evidence,
	}
}

// Valid reports whether the entry carries the mandatory fields.
func (e Entry) Valid() bool {
	if e.ID == "" || e.TS == "" || e.Summary == "" {
		return false
	}
	switch e.Type {
	case EventObservation, EventEscalation, EventDecision, EventError:
	default:
		return false
	}
	switch e.Severity {
	case SeverityInfo, SeverityWarn, SeverityErr:
	default:
		return false
	}
	return true
}
