// internal/writer/status_writer.go
package writer

import (
	"github.com/pytrel/dragon/internal/status"
)

// StatusWriter is the delivery-only contract for engine artifacts.
// It receives encoded artifacts and writes them verbatim.
// No logic, no state, no interpretation.
type StatusWriter interface {
	WriteHeartbeat(hb status.Heartbeat) error
	WriteFlags(f status.Flags) error
	WriteDigest(d any) error
}

// artifactWriter is the concrete implementation used by the engine.
type artifactWriter struct {
	plan Plan
}

// NewStatusWriter builds a StatusWriter for the plan's overwritten artifacts.
func NewStatusWriter(plan Plan) StatusWriter {
	return &artifactWriter{plan: plan}
}

// WriteHeartbeat atomically replaces heartbeat.json.
func (w *artifactWriter) WriteHeartbeat(hb status.Heartbeat) error {
	return WriteJSONAtomic(w.plan.Heartbeat, hb)
}

// WriteFlags atomically replaces flags.json.
func (w *artifactWriter) WriteFlags(f status.Flags) error {
	return WriteJSONAtomic(w.plan.Flags, f)
}

// WriteDigest atomically replaces digest.json.
func (w *artifactWriter) WriteDigest(d any) error {
	return WriteJSONAtomic(w.plan.Digest, d)
}
