// internal/config/config.go
package config

// Config is the explicit configuration object passed at start.
type Config struct {
	Dragon  EngineConfig  `yaml:"dragon"`
	Logging LoggingConfig `yaml:"logging"`
}

// ---- ENGINE ----

type EngineConfig struct {
	Version string `yaml:"version"`
	Mode    string `yaml:"mode"` // observer | governor

	// Namespaces. Read root is counterpart-owned, write root is engine-owned.
	ReadRoot  string `yaml:"read_root"`
	WriteRoot string `yaml:"write_root"`

	PollIntervalSec int `yaml:"poll_interval_sec"`

	// Staleness triggers (independent, OR)
	FreshnessThresholdSec int `yaml:"freshness_threshold_sec"`
	TickAgeThresholdSec   int `yaml:"tick_age_threshold_sec"`

	// Governor precondition
	VersionLock      string `yaml:"version_lock"`
	CounterpartOptIn bool   `yaml:"counterpart_opt_in"`

	EscalationAfterCycles int `yaml:"escalation_after_cycles"`

	// Bounded reads
	ReadTimeoutMs    int   `yaml:"read_timeout_ms"`
	ReadRetries      *int  `yaml:"read_retries"` // nil => default; 0 is valid
	MaxArtifactBytes int64 `yaml:"max_artifact_bytes"`

	LedgerScanBytes   int64 `yaml:"ledger_scan_bytes"`
	DigestIntervalSec int   `yaml:"digest_interval_sec"` // 0 disables

	Watch       bool   `yaml:"watch"`
	MetricsAddr string `yaml:"metrics_addr"` // "" disables
}

// ---- LOGGING ----

type LoggingConfig struct {
	Level    string `yaml:"level"`    // debug | info | warn | error
	Encoding string `yaml:"encoding"` // json | console
}

// ---- MODES ----

const (
	ModeObserver = "observer"
	ModeGovernor = "governor"
)

// ---- DEFAULTS ----

const (
	DefaultVersion               = "0.1.0"
	DefaultPollIntervalSec       = 60
	DefaultFreshnessThresholdSec = 180
	DefaultTickAgeThresholdSec   = 180
	DefaultEscalationAfterCycles = 3
	DefaultReadTimeoutMs         = 2000
	DefaultReadRetries           = 2
	DefaultMaxArtifactBytes      = 1 << 20
	DefaultLedgerScanBytes       = 64 << 10
	DefaultLogLevel              = "info"
	DefaultLogEncoding           = "json"
)

// Governor reports whether the run is configured for governor mode.
func (e EngineConfig) Governor() bool {
	return e.Mode == ModeGovernor
}
