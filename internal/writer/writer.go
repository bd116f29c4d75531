// internal/writer/writer.go
package writer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// WriteJSONAtomic replaces path with the JSON encoding of v.
// Write-to-temp, fsync, rename: a reader never observes a half-written file.
// Any failure is wrapped in ErrOutputWrite and leaves the previous file intact.
func WriteJSONAtomic(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode %s: %w", ErrOutputWrite, filepath.Base(path), err)
	}
	b = append(b, '\n')

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrOutputWrite, filepath.Base(path), err)
	}
	tmpName := tmp.Name()

	fail := func(step string, err error) error {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: %s: %s: %w", ErrOutputWrite, filepath.Base(path), step, err)
	}

	if _, err := tmp.Write(b); err != nil {
		return fail("write", err)
	}
	if err := tmp.Sync(); err != nil {
		return fail("sync", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		return fail("chmod", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: %s: close: %w", ErrOutputWrite, filepath.Base(path), err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: %s: rename: %w", ErrOutputWrite, filepath.Base(path), err)
	}

	syncDir(dir)
	return nil
}

// syncDir persists the rename. Best effort: not all platforms support it.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}

// ReadAsOf returns the as_of_utc of a previously written engine artifact.
// Missing or unreadable files report ok=false.
func ReadAsOf(path string) (time.Time, bool) {
	b, err := os.ReadFile(path)
	if err != nil {
		return time.Time{}, false
	}
	var doc struct {
		AsOf string `json:"as_of_utc"`
	}
	if err := json.Unmarshal(b, &doc); err != nil || doc.AsOf == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, doc.AsOf)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}
