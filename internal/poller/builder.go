// internal/poller/builder.go
package poller

import (
	"time"

	"go.uber.org/zap"

	cfg "github.com/pytrel/dragon/internal/config"
	"github.com/pytrel/dragon/internal/poller/files"
	"github.com/pytrel/dragon/internal/snapshot"
)

const (
	readBackoff   = 50 * time.Millisecond
	watchDebounce = 250 * time.Millisecond
)

// Build constructs a Poller over the configured read root.
// If watch is enabled the returned closer stops the directory watcher.
func Build(e cfg.EngineConfig, log *zap.Logger) (*Poller, func() error, error) {
	src, err := files.New(files.Config{
		Root:     e.ReadRoot,
		MaxBytes: e.MaxArtifactBytes,
	})
	if err != nil {
		return nil, nil, err
	}

	retries := cfg.DefaultReadRetries
	if e.ReadRetries != nil {
		retries = *e.ReadRetries
	}

	p, err := New(
		Config{
			Interval: time.Duration(e.PollIntervalSec) * time.Second,
			Timeout:  time.Duration(e.ReadTimeoutMs) * time.Millisecond,
			Retries:  retries,
			Backoff:  readBackoff,
		},
		src,
		log,
	)
	if err != nil {
		return nil, nil, err
	}

	if !e.Watch {
		return p, func() error { return nil }, nil
	}

	w, err := files.NewWatcher(e.ReadRoot, snapshot.Files, watchDebounce, log)
	if err != nil {
		return nil, nil, err
	}
	p.WithChanges(w.Changes())

	return p, w.Close, nil
}
