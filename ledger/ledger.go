package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/atomic"

	"github.com/ldelacroix/proofchain/hashing"
)

// DefaultGenesisData seeds the payload of a freshly created genesis block.
const DefaultGenesisData = "Genesis Block"

var (
	// ErrStaleCandidate is returned by AppendMinedBlock when the candidate
	// no longer chains onto the current tail. The caller should re-mine.
	ErrStaleCandidate = errors.New("candidate does not chain onto current tail")

	// ErrIndexOutOfRange is returned by EditBlockData for an index outside
	// the chain.
	ErrIndexOutOfRange = errors.New("block index out of range")

	// ErrMiningInProgress marks the idempotent rejection of a mining
	// request while another search is active. It is a no-op signal, the
	// running search is unaffected.
	ErrMiningInProgress = errors.New("a mining operation is already running")
)

// Gateway persists full chain snapshots. Load reports a missing snapshot
// as (nil, nil); Save overwrites the previous snapshot wholesale.
type Gateway interface {
	Load() ([]Block, error)
	Save(chain []Block) error
}

// Searcher finds a proof-of-work candidate chained onto tail. It must
// return the fully formed block without appending it anywhere, and stop
// with ctx.Err() when cancelled.
type Searcher interface {
	Search(ctx context.Context, tail Block, data string, difficulty int) (Block, error)
}

// Ledger owns the single mutable chain. All mutation happens under one
// lock; the proof-of-work search itself runs unlocked and only the final
// append re-acquires the lock, re-checking that the tail has not moved.
type Ledger struct {
	log    zerolog.Logger
	hash   hashing.Func
	store  Gateway
	search Searcher

	mu     sync.Mutex
	blocks []Block

	// mining is the Idle/Mining state of this instance. A compare-and-swap
	// failure means another search is active and the request is rejected.
	mining atomic.Bool
}

// Open loads the persisted chain through gw, or creates and persists a
// fresh genesis block when no snapshot exists. The loaded chain is never
// trusted blindly: it goes through a full validation pass, so corrupted
// snapshots surface as invalid blocks rather than being repaired.
func Open(log zerolog.Logger, f hashing.Func, gw Gateway, s Searcher) (*Ledger, error) {
	l := &Ledger{
		log:    log.With().Str("component", "ledger").Logger(),
		hash:   f,
		store:  gw,
		search: s,
	}

	chain, err := gw.Load()
	if err != nil {
		return nil, fmt.Errorf("could not load chain: %w", err)
	}

	if len(chain) == 0 {
		genesis := NewGenesis(f, DefaultGenesisData, time.Now().UnixMilli())
		l.blocks = Validate(f, []Block{genesis})
		if err := gw.Save(l.blocks); err != nil {
			return nil, fmt.Errorf("could not persist genesis: %w", err)
		}
		l.log.Info().Str("hash", genesis.Hash).Msg("created genesis block")
		return l, nil
	}

	l.blocks = Validate(f, chain)
	if err := Explain(f, l.blocks); err != nil {
		l.log.Warn().Err(err).Msg("loaded chain has integrity failures")
	}
	l.log.Info().Int("blocks", len(l.blocks)).Msg("loaded chain")
	return l, nil
}

// Len returns the number of blocks in the chain.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.blocks)
}

// Blocks returns a copy of the chain.
func (l *Ledger) Blocks() []Block {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Block, len(l.blocks))
	copy(out, l.blocks)
	return out
}

// Tail returns the last block of the chain.
func (l *Ledger) Tail() Block {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.blocks[len(l.blocks)-1]
}

// Mine runs one proof-of-work search for a block carrying data and
// appends the result. While a search is active any further Mine call is
// rejected with ErrMiningInProgress and leaves the running search alone.
// Cancelling ctx aborts the search without touching the chain.
//
// The search runs without holding the chain lock; AppendMinedBlock
// re-checks the tail, so an edit or reset that lands during a long
// search surfaces as ErrStaleCandidate instead of corrupting the chain.
func (l *Ledger) Mine(ctx context.Context, data string, difficulty int) (Block, error) {
	if !l.mining.CompareAndSwap(false, true) {
		return Block{}, ErrMiningInProgress
	}
	defer l.mining.Store(false)

	tail := l.Tail()
	l.log.Info().Uint64("tail", tail.Index).Int("difficulty", difficulty).Msg("mining started")

	candidate, err := l.search.Search(ctx, tail, data, difficulty)
	if err != nil {
		l.log.Info().Err(err).Msg("mining aborted")
		return Block{}, err
	}

	if err := l.AppendMinedBlock(candidate); err != nil {
		return Block{}, err
	}
	return candidate, nil
}

// Mining reports whether a search is currently active.
func (l *Ledger) Mining() bool {
	return l.mining.Load()
}

// AppendMinedBlock appends a mined candidate, revalidates the whole
// chain and persists it. The candidate must chain onto the current tail;
// otherwise nothing is mutated and ErrStaleCandidate is returned.
func (l *Ledger) AppendMinedBlock(candidate Block) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	tail := l.blocks[len(l.blocks)-1]
	if candidate.PrevHash != tail.Hash || candidate.Index != tail.Index+1 {
		return fmt.Errorf("%w: candidate %d on %s, tail is %d with hash %s",
			ErrStaleCandidate, candidate.Index, candidate.PrevHash, tail.Index, tail.Hash)
	}

	l.blocks = Validate(l.hash, append(l.blocks, candidate))
	l.log.Info().
		Uint64("index", candidate.Index).
		Uint64("nonce", candidate.Nonce).
		Str("hash", candidate.Hash).
		Msg("appended mined block")
	return l.persistLocked()
}

// EditBlockData overwrites the payload of the block at index and
// recomputes that block's own hash from its new content. The successor's
// PrevHash is deliberately left untouched: the edited block stays
// self-consistent while the revalidation pass exposes the broken link.
func (l *Ledger) EditBlockData(index uint64, newData string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if index >= uint64(len(l.blocks)) {
		return fmt.Errorf("%w: %d (chain length %d)", ErrIndexOutOfRange, index, len(l.blocks))
	}

	b := l.blocks[index]
	b.Data = newData
	b.Hash = ComputeHash(l.hash, b)
	l.blocks[index] = b

	l.blocks = Validate(l.hash, l.blocks)
	l.log.Info().Uint64("index", index).Msg("edited block data")
	return l.persistLocked()
}

// Reset discards the chain and installs a fresh validated genesis block.
func (l *Ledger) Reset() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	genesis := NewGenesis(l.hash, DefaultGenesisData, time.Now().UnixMilli())
	l.blocks = Validate(l.hash, []Block{genesis})
	l.log.Info().Str("hash", genesis.Hash).Msg("chain reset")
	return l.persistLocked()
}

// persistLocked saves the current chain. The in-memory mutation is kept
// even when the save fails: snapshots are full overwrites, so the next
// successful save reconverges.
func (l *Ledger) persistLocked() error {
	if err := l.store.Save(l.blocks); err != nil {
		return fmt.Errorf("could not persist chain: %w", err)
	}
	return nil
}
