// internal/config/normalize.go
package config

import "path/filepath"

// Normalize applies post-validation normalization.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	e := &cfg.Dragon

	e.ReadRoot = filepath.Clean(e.ReadRoot)
	e.WriteRoot = filepath.Clean(e.WriteRoot)

	if e.Mode == "" {
		e.Mode = ModeObserver
	}
	if e.Version == "" {
		e.Version = DefaultVersion
	}

	// ------------------------------------------------------------
	// ZERO VALUES => DEFAULTS
	// ------------------------------------------------------------

	if e.PollIntervalSec == 0 {
		e.PollIntervalSec = DefaultPollIntervalSec
	}
	if e.FreshnessThresholdSec == 0 {
		e.FreshnessThresholdSec = DefaultFreshnessThresholdSec
	}
	if e.TickAgeThresholdSec == 0 {
		e.TickAgeThresholdSec = DefaultTickAgeThresholdSec
	}
	if e.EscalationAfterCycles == 0 {
		e.EscalationAfterCycles = DefaultEscalationAfterCycles
	}
	if e.ReadTimeoutMs == 0 {
		e.ReadTimeoutMs = DefaultReadTimeoutMs
	}
	if e.ReadRetries == nil {
		n := DefaultReadRetries
		e.ReadRetries = &n
	}
	if e.MaxArtifactBytes == 0 {
		e.MaxArtifactBytes = DefaultMaxArtifactBytes
	}
	if e.LedgerScanBytes == 0 {
		e.LedgerScanBytes = DefaultLedgerScanBytes
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLogLevel
	}
	if cfg.Logging.Encoding == "" {
		cfg.Logging.Encoding = DefaultLogEncoding
	}
}
