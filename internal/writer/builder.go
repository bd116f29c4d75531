// internal/writer/builder.go
package writer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	cfg "github.com/pytrel/dragon/internal/config"
)

// BuildPlan converts the engine config into a write Plan and ensures the write root exists.
// Assumes config has already passed namespace validation.
func BuildPlan(e cfg.EngineConfig) (Plan, error) {
	if e.WriteRoot == "" {
		return Plan{}, errors.New("writer: write_root required")
	}

	root := filepath.Clean(e.WriteRoot)
	if err := os.MkdirAll(root, 0o755); err != nil {
		return Plan{}, fmt.Errorf("%w: create write root %s: %w", ErrOutputWrite, root, err)
	}

	return Plan{
		WriteRoot: root,
		Heartbeat: filepath.Join(root, HeartbeatFile),
		Ledger:    filepath.Join(root, LedgerFile),
		Flags:     filepath.Join(root, FlagsFile),
		Digest:    filepath.Join(root, DigestFile),
		Lock:      filepath.Join(root, LockFile),
	}, nil
}
