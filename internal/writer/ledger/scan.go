// internal/writer/ledger/scan.go
package ledger

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
)

// Tail returns the entries found in the last maxBytes of the ledger, oldest first.
// A missing ledger yields no entries. Lines that do not decode into a valid
// entry are skipped. maxBytes <= 0 scans the whole file.
func Tail(path string, maxBytes int64) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat ledger: %w", err)
	}

	var offset int64
	if maxBytes > 0 && st.Size() > maxBytes {
		offset = st.Size() - maxBytes
	}

	b := make([]byte, st.Size()-offset)
	if _, err := f.ReadAt(b, offset); err != nil && err != io.EOF {
		return nil, fmt.Errorf("read ledger: %w", err)
	}

	// Mid-file start: the first line is partial unless the preceding byte was a newline.
	if offset > 0 {
		prev := make([]byte, 1)
		if _, err := f.ReadAt(prev, offset-1); err != nil {
			return nil, fmt.Errorf("read ledger: %w", err)
		}
		if prev[0] != '\n' {
			i := bytes.IndexByte(b, '\n')
			if i < 0 {
				return nil, nil
			}
			b = b[i+1:]
		}
	}

	return parse(b), nil
}

func parse(b []byte) []Entry {
	var out []Entry

	sc := bufio.NewScanner(bytes.NewReader(b))
	sc.Buffer(make([]byte, 0, 64*1024), len(b)+1)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(line, &e); err != nil || !e.Valid() {
			continue
		}
		out = append(out, e)
	}
	return out
}
