package ledger

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/fortuna/hoopsdaily/internal/store"
)

// Store loads the ledger once at run start and saves it once at run end.
type Store interface {
	Load(ctx context.Context) (*Ledger, error)
	Save(ctx context.Context, l *Ledger) error
}

// FileStore persists the ledger as a single JSON document.
type FileStore struct {
	Path string
}

// NewFileStore returns a FileStore writing to path.
func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

// Load reads the ledger file. A missing file is the first-run condition and
// yields an empty ledger; any other failure is returned.
func (s *FileStore) Load(ctx context.Context) (*Ledger, error) {
	b, err := os.ReadFile(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read ledger %s: %w", s.Path, err)
	}

	l := New()
	if err := l.UnmarshalJSON(b); err != nil {
		return nil, fmt.Errorf("load ledger %s: %w", s.Path, err)
	}
	return l, nil
}

// Save overwrites the ledger file atomically.
func (s *FileStore) Save(ctx context.Context, l *Ledger) error {
	if err := store.WriteJSONAtomic(s.Path, l); err != nil {
		return fmt.Errorf("save ledger: %w", err)
	}
	return nil
}
