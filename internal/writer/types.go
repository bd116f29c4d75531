// internal/writer/types.go
package writer

import "errors"

var (
	// ErrOutputWrite: an engine-owned artifact could not be persisted. Fatal to the run.
	ErrOutputWrite = errors.New("output write failure")
	// ErrLocked: another engine instance owns the write root.
	ErrLocked = errors.New("write root locked by another instance")
)

// Fixed artifact names inside the engine-owned write root.
const (
	HeartbeatFile = "heartbeat.json"
	LedgerFile    = "ledger.jsonl"
	FlagsFile     = "flags.json"
	DigestFile    = "digest.json"
	LockFile      = "engine.lock"
)

// Plan is the fully-built set of engine-owned paths.
// Every path lives directly under WriteRoot; nothing else is ever written.
type Plan struct {
	WriteRoot string
	Heartbeat string
	Ledger    string
	Flags     string
	Digest    string
	Lock      string
}
