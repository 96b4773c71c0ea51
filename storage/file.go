package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/ldelacroix/proofchain/ledger"
)

// File persists the snapshot as a JSON document. Writes go through a
// temporary file and a rename so a crash never leaves a torn snapshot.
type File struct {
	mu   sync.Mutex
	path string
}

var _ ledger.Gateway = (*File)(nil)

func NewFile(path string) *File {
	return &File{path: path}
}

func (f *File) Load() ([]ledger.Block, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	raw, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not read snapshot: %w", err)
	}

	var chain []ledger.Block
	if err := json.Unmarshal(raw, &chain); err != nil {
		return nil, fmt.Errorf("could not decode snapshot: %w", err)
	}
	return chain, nil
}

func (f *File) Save(chain []ledger.Block) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	raw, err := json.MarshalIndent(chain, "", "  ")
	if err != nil {
		return fmt.Errorf("could not encode snapshot: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".snapshot-*")
	if err != nil {
		return fmt.Errorf("could not create temp snapshot: %w", err)
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("could not write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("could not close snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("could not replace snapshot: %w", err)
	}
	return nil
}
