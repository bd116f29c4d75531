// internal/config/validate.go
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config: nil")
	}
	e := cfg.Dragon

	// ------------------------------------------------------------
	// NAMESPACES
	// ------------------------------------------------------------

	if strings.TrimSpace(e.ReadRoot) == "" {
		return errors.New("dragon.read_root is required")
	}
	if strings.TrimSpace(e.WriteRoot) == "" {
		return errors.New("dragon.write_root is required")
	}
	if !filepath.IsAbs(e.ReadRoot) {
		return fmt.Errorf("dragon.read_root %q must be absolute", e.ReadRoot)
	}
	if !filepath.IsAbs(e.WriteRoot) {
		return fmt.Errorf("dragon.write_root %q must be absolute", e.WriteRoot)
	}

	// The engine never writes into the counterpart's namespace and vice versa.
	// Symlinks are resolved so a linked root cannot hide inside the other.
	rr := resolve(e.ReadRoot)
	wr := resolve(e.WriteRoot)
	if rr == wr {
		return fmt.Errorf("dragon.read_root and dragon.write_root must differ (both %q)", rr)
	}
	if within(rr, wr) || within(wr, rr) {
		return fmt.Errorf(
			"dragon.read_root %q and dragon.write_root %q must not be nested",
			rr,
			wr,
		)
	}

	// ------------------------------------------------------------
	// MODE + GOVERNOR PRECONDITION
	// ------------------------------------------------------------

	switch e.Mode {
	case "", ModeObserver:
	case ModeGovernor:
		if strings.TrimSpace(e.VersionLock) == "" {
			return errors.New("dragon.version_lock is required in governor mode")
		}
	default:
		return fmt.Errorf("dragon.mode %q: must be %q or %q", e.Mode, ModeObserver, ModeGovernor)
	}

	// ------------------------------------------------------------
	// NUMERIC KNOBS (zero => default, negative => error)
	// ------------------------------------------------------------

	ints := []struct {
		name string
		v    int
	}{
		{"poll_interval_sec", e.PollIntervalSec},
		{"freshness_threshold_sec", e.FreshnessThresholdSec},
		{"tick_age_threshold_sec", e.TickAgeThresholdSec},
		{"escalation_after_cycles", e.EscalationAfterCycles},
		{"read_timeout_ms", e.ReadTimeoutMs},
		{"digest_interval_sec", e.DigestIntervalSec},
	}
	for _, n := range ints {
		if n.v < 0 {
			return fmt.Errorf("dragon.%s must be >= 0, got %d", n.name, n.v)
		}
	}
	if e.ReadRetries != nil && *e.ReadRetries < 0 {
		return fmt.Errorf("dragon.read_retries must be >= 0, got %d", *e.ReadRetries)
	}
	if e.MaxArtifactBytes < 0 {
		return fmt.Errorf("dragon.max_artifact_bytes must be >= 0, got %d", e.MaxArtifactBytes)
	}
	if e.LedgerScanBytes < 0 {
		return fmt.Errorf("dragon.ledger_scan_bytes must be >= 0, got %d", e.LedgerScanBytes)
	}

	// ------------------------------------------------------------
	// LOGGING
	// ------------------------------------------------------------

	switch cfg.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q is not supported", cfg.Logging.Level)
	}
	switch cfg.Logging.Encoding {
	case "", "json", "console":
	default:
		return fmt.Errorf("logging.encoding %q is not supported", cfg.Logging.Encoding)
	}

	return nil
}

// within reports whether child is strictly inside parent.
func within(parent, child string) bool {
	rel, err := filepath.Rel(parent, child)
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// resolve cleans p and evaluates symlinks in its longest existing prefix.
// Components that do not exist yet are kept as written.
func resolve(p string) string {
	p = filepath.Clean(p)

	var rest []string
	for cur := p; ; {
		if real, err := filepath.EvalSymlinks(cur); err == nil {
			return filepath.Join(append([]string{real}, rest...)...)
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return p
		}
		rest = append([]string{filepath.Base(cur)}, rest...)
		cur = parent
	}
}
