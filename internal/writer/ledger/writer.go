// internal/writer/ledger/writer.go
package ledger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/pytrel/dragon/internal/writer"
)

// Writer appends entries to ledger.jsonl.
// The file is opened O_APPEND; existing bytes are never touched.
type Writer struct {
	mu   sync.Mutex
	path string
	f    *os.File
}

// Open opens (or creates) the ledger for appending.
// A torn final line left by a crash is terminated so the next entry starts on its own line.
func Open(path string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("%w: open ledger: %w", writer.ErrOutputWrite, err)
	}

	torn, err := endsTorn(path)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%w: inspect ledger: %w", writer.ErrOutputWrite, err)
	}
	if torn {
		if _, err := f.Write([]byte{'\n'}); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("%w: terminate torn ledger line: %w", writer.ErrOutputWrite, err)
		}
	}

	return &Writer{path: path, f: f}, nil
}

// endsTorn reports a non-empty file whose last byte is not a newline.
func endsTorn(path string) (bool, error) {
	r, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer r.Close()

	st, err := r.Stat()
	if err != nil {
		return false, err
	}
	if st.Size() == 0 {
		return false, nil
	}

	last := make([]byte, 1)
	if _, err := r.ReadAt(last, st.Size()-1); err != nil && err != io.EOF {
		return false, err
	}
	return last[0] != '\n', nil
}

// Path returns the ledger file path.
func (w *Writer) Path() string { return w.path }

// Append writes each entry as one line and syncs.
// All entries of a call go out in a single write.
func (w *Writer) Append(entries ...Entry) error {
	if len(entries) == 0 {
		return nil
	}

	var buf bytes.Buffer
	for _, e := range entries {
		if !e.Valid() {
			return fmt.Errorf("%w: refusing malformed ledger entry %q", writer.ErrOutputWrite, e.Summary)
		}
		b, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("%w: encode ledger entry: %w", writer.ErrOutputWrite, err)
		}
		buf.Write(b)
		buf.WriteByte('\n')
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.f == nil {
		return fmt.Errorf("%w: ledger closed", writer.ErrOutputWrite)
	}
	if _, err := w.f.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("%w: append ledger: %w", writer.ErrOutputWrite, err)
	}
	if err := w.f.Sync(); err != nil {
		return fmt.Errorf("%w: sync ledger: %w", writer.ErrOutputWrite, err)
	}
	return nil
}

// Close releases the file. Safe to call more than once.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.f == nil {
		return nil
	}
	err := w.f.Close()
	w.f = nil
	return err
}
