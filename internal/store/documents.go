package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	// DateLayout is the label format used for document names and ledger dates.
	DateLayout = "2006-01-02"

	indexFile  = "index.json"
	LedgerFile = "players.json"
)

// ErrNotFound is returned when a requested document does not exist.
var ErrNotFound = errors.New("document not found")

// DocumentStore reads and writes the dated game documents and their index
// under a single data directory.
type DocumentStore struct {
	Root string // e.g. "docs/data"
}

// NewDocumentStore returns a store rooted at dir.
func NewDocumentStore(dir string) *DocumentStore {
	return &DocumentStore{Root: dir}
}

// Path joins rel onto the store root.
func (s *DocumentStore) Path(rel string) string {
	return filepath.Join(s.Root, rel)
}

func (s *DocumentStore) dayPath(date string) string {
	return s.Path(date + ".json")
}

// Exists reports whether a document for date has already been written.
func (s *DocumentStore) Exists(date string) bool {
	_, err := os.Stat(s.dayPath(date))
	return err == nil
}

// WriteDay writes doc to <root>/<date>.json, replacing any previous version.
func (s *DocumentStore) WriteDay(doc *DayDocument) error {
	if _, err := time.Parse(DateLayout, doc.Date); err != nil {
		return fmt.Errorf("invalid document date %q: %w", doc.Date, err)
	}
	return WriteJSONAtomic(s.dayPath(doc.Date), doc)
}

// ReadDay loads the document for date.
func (s *DocumentStore) ReadDay(date string) (*DayDocument, error) {
	b, err := os.ReadFile(s.dayPath(date))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", date, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read day document: %w", err)
	}

	var doc DayDocument
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("decode day document %s: %w", date, err)
	}
	return &doc, nil
}

// ListDates returns every dated document name, newest first. The index and
// the player ledger share the directory and are excluded.
func (s *DocumentStore) ListDates() ([]string, error) {
	matches, err := filepath.Glob(s.Path("*.json"))
	if err != nil {
		return nil, err
	}

	dates := make([]string, 0, len(matches))
	for _, m := range matches {
		base := filepath.Base(m)
		if base == indexFile || base == LedgerFile {
			continue
		}
		stem := strings.TrimSuffix(base, ".json")
		if _, err := time.Parse(DateLayout, stem); err != nil {
			continue
		}
		dates = append(dates, stem)
	}

	sort.Sort(sort.Reverse(sort.StringSlice(dates)))
	return dates, nil
}

// WriteIndex rebuilds index.json from the documents on disk.
func (s *DocumentStore) WriteIndex() (*Index, error) {
	dates, err := s.ListDates()
	if err != nil {
		return nil, fmt.Errorf("list dates: %w", err)
	}
	idx := &Index{Dates: dates}
	if err := WriteJSONAtomic(s.Path(indexFile), idx); err != nil {
		return nil, err
	}
	return idx, nil
}

// ReadIndex loads index.json. A missing index reads as empty.
func (s *DocumentStore) ReadIndex() (*Index, error) {
	b, err := os.ReadFile(s.Path(indexFile))
	if errors.Is(err, os.ErrNotExist) {
		return &Index{Dates: []string{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read index: %w", err)
	}
	var idx Index
	if err := json.Unmarshal(b, &idx); err != nil {
		return nil, fmt.Errorf("decode index: %w", err)
	}
	if idx.Dates == nil {
		idx.Dates = []string{}
	}
	return &idx, nil
}

// WriteJSONAtomic marshals v with two-space indentation and swaps it into
// place with a rename, so readers never observe a half-written file.
func WriteJSONAtomic(path string, v interface{}) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	b = append(b, '\n')
	return WriteFileAtomic(path, b)
}

// WriteFileAtomic writes body to a temp file next to path and renames it.
func WriteFileAtomic(path string, body []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op once renamed

	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace %s: %w", filepath.Base(path), err)
	}
	return nil
}
