// internal/snapshot/artifact.go
package snapshot

import (
	"errors"
	"time"
)

var (
	// ErrUnavailable: the artifact file is missing or could not be read in budget.
	ErrUnavailable = errors.New("input unavailable")
	// ErrInvalid: the artifact is present but fails parsing or schema validation.
	ErrInvalid = errors.New("input invalid")
)

// Fixed artifact names inside the counterpart-owned read root.
const (
	StatusFile      = "status.json"
	PositionsFile   = "positions.json"
	OrdersFile      = "orders.json"
	RiskFile        = "risk.json"
	PerformanceFile = "performance.json"
)

// Files lists every counterpart artifact in read order.
var Files = []string{StatusFile, PositionsFile, OrdersFile, RiskFile, PerformanceFile}

// Availability is the typed outcome of loading one artifact.
type Availability string

const (
	Available Availability = "available"
	Missing   Availability = "missing" // InputUnavailable
	Invalid   Availability = "invalid" // InputInvalid
)

// Artifact is either a validated record or an explicit absence marker.
// Value is only meaningful when Availability == Available.
type Artifact[T any] struct {
	Name         string
	Availability Availability
	Value        T
	Err          error
}

// OK reports whether the artifact holds a validated record.
func (a Artifact[T]) OK() bool {
	return a.Availability == Available
}

// Loaded wraps a validated record.
func Loaded[T any](name string, v T) Artifact[T] {
	return Artifact[T]{Name: name, Availability: Available, Value: v}
}

// Failed classifies err into a Missing or Invalid marker.
func Failed[T any](name string, err error) Artifact[T] {
	a := Artifact[T]{Name: name, Err: err}
	if errors.Is(err, ErrInvalid) {
		a.Availability = Invalid
	} else {
		a.Availability = Missing
	}
	return a
}

// Set is the result of reading the whole read root once.
type Set struct {
	ReadAt      time.Time
	Status      Artifact[Status]
	Positions   Artifact[Positions]
	Orders      Artifact[Orders]
	Risk        Artifact[Risk]
	Performance Artifact[Performance]
}

// ArtifactState is a name/availability pair, used for reporting.
type ArtifactState struct {
	Name         string
	Availability Availability
	Err          error
}

// States returns per-artifact availability in read order.
func (s Set) States() []ArtifactState {
	return []ArtifactState{
		{s.Status.Name, s.Status.Availability, s.Status.Err},
		{s.Positions.Name, s.Positions.Availability, s.Positions.Err},
		{s.Orders.Name, s.Orders.Availability, s.Orders.Err},
		{s.Risk.Name, s.Risk.Availability, s.Risk.Err},
		{s.Performance.Name, s.Performance.Availability, s.Performance.Err},
	}
}

// LatestAsOf returns the most recent as-of among available artifacts.
func (s Set) LatestAsOf() (time.Time, bool) {
	var latest time.Time
	found := false

	consider := func(ok bool, t time.Time) {
		if ok && (!found || t.After(latest)) {
			latest = t
			found = true
		}
	}

	consider(s.Status.OK(), s.Status.Value.AsOf)
	consider(s.Positions.OK(), s.Positions.Value.AsOf)
	consider(s.Orders.OK(), s.Orders.Value.AsOf)
	consider(s.Risk.OK(), s.Risk.Value.AsOf)
	consider(s.Performance.OK(), s.Performance.Value.AsOf)

	return latest, found
}
