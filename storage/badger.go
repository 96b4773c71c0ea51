package storage

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v2"
	"github.com/fxamacker/cbor/v2"

	"github.com/ldelacroix/proofchain/ledger"
)

// snapshotKey is the single key the full chain snapshot lives under.
var snapshotKey = []byte("chain/snapshot")

// Badger persists the snapshot CBOR-encoded in an embedded badger DB.
type Badger struct {
	db *badger.DB
}

var _ ledger.Gateway = (*Badger)(nil)

// NewBadger wraps an already opened DB. The caller keeps ownership.
func NewBadger(db *badger.DB) *Badger {
	return &Badger{db: db}
}

// OpenBadger opens (or creates) a badger DB at dir and wraps it. Close
// must be called when done.
func OpenBadger(dir string) (*Badger, error) {
	db, err := badger.Open(badger.DefaultOptions(dir).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("could not open badger db: %w", err)
	}
	return &Badger{db: db}, nil
}

func (b *Badger) Close() error {
	return b.db.Close()
}

func (b *Badger) Load() ([]ledger.Block, error) {
	var chain []ledger.Block
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(snapshotKey)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("could not retrieve snapshot: %w", err)
		}
		return item.Value(func(val []byte) error {
			if err := cbor.Unmarshal(val, &chain); err != nil {
				return fmt.Errorf("could not decode snapshot: %w", err)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return chain, nil
}

func (b *Badger) Save(chain []ledger.Block) error {
	val, err := cbor.Marshal(chain)
	if err != nil {
		return fmt.Errorf("could not encode snapshot: %w", err)
	}
	err = b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(snapshotKey, val)
	})
	if err != nil {
		return fmt.Errorf("could not store snapshot: %w", err)
	}
	return nil
}
