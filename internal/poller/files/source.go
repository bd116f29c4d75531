// internal/poller/files/source.go
package files

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pytrel/dragon/internal/snapshot"
)

// Source implements poller.Source over a read-only directory.
// It opens files read-only and never creates, renames or removes anything.
type Source struct {
	root     string
	maxBytes int64
}

// Config is minimal source config.
type Config struct {
	Root     string
	MaxBytes int64
}

// New creates a filesystem source rooted at cfg.Root.
func New(cfg Config) (*Source, error) {
	if cfg.Root == "" {
		return nil, errors.New("files source: root required")
	}
	if cfg.MaxBytes <= 0 {
		return nil, errors.New("files source: max bytes must be > 0")
	}
	return &Source{root: filepath.Clean(cfg.Root), maxBytes: cfg.MaxBytes}, nil
}

// Root returns the directory being read.
func (s *Source) Root() string { return s.root }

// ReadArtifact reads one named artifact, giving up when ctx expires.
// A read stuck in the kernel keeps its goroutine until the syscall returns,
// but the caller is released at the deadline.
func (s *Source) ReadArtifact(ctx context.Context, name string) ([]byte, error) {
	if name != filepath.Base(name) {
		return nil, fmt.Errorf("files source: artifact name %q must not contain a path", name)
	}

	type result struct {
		b   []byte
		err error
	}
	ch := make(chan result, 1)

	go func() {
		b, err := s.read(name)
		ch <- result{b, err}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %s: %w", snapshot.ErrUnavailable, name, ctx.Err())
	case r := <-ch:
		return r.b, r.err
	}
}

func (s *Source) read(name string) ([]byte, error) {
	path := filepath.Join(s.root, name)

	f, err := os.Open(path)
	if err != nil {
		// wraps fs.ErrNotExist when missing; the poller does not retry those
		return nil, fmt.Errorf("%w: %s: %w", snapshot.ErrUnavailable, name, err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", snapshot.ErrUnavailable, name, err)
	}
	if !st.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s: not a regular file", snapshot.ErrInvalid, name)
	}

	b, err := io.ReadAll(io.LimitReader(f, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", snapshot.ErrUnavailable, name, err)
	}
	if int64(len(b)) > s.maxBytes {
		return nil, fmt.Errorf("%w: %s: exceeds %d bytes", snapshot.ErrInvalid, name, s.maxBytes)
	}
	return b, nil
}
