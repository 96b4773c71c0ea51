// Package storage provides persistence gateways for chain snapshots.
// Every gateway stores the full chain wholesale and round-trips all
// block fields exactly, including the validation outcome.
package storage

import (
	"sync"

	"github.com/ldelacroix/proofchain/ledger"
)

// Memory keeps the snapshot in process memory. Used by tests and as the
// throwaway backend for short-lived demos.
type Memory struct {
	mu    sync.RWMutex
	chain []ledger.Block
}

var _ ledger.Gateway = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Load() ([]ledger.Block, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.chain == nil {
		return nil, nil
	}
	out := make([]ledger.Block, len(m.chain))
	copy(out, m.chain)
	return out, nil
}

func (m *Memory) Save(chain []ledger.Block) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.chain = make([]ledger.Block, len(chain))
	copy(m.chain, chain)
	return nil
}
