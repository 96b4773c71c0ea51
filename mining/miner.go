// Package mining implements the proof-of-work nonce search.
package mining

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ldelacroix/proofchain/hashing"
	"github.com/ldelacroix/proofchain/ledger"
)

// DefaultBatchSize is the number of hash attempts between cancellation
// checks and progress reports.
const DefaultBatchSize = 500

// ErrNonceExhausted is returned when the search runs through the whole
// uint64 nonce space without a hit. The counter never wraps silently.
var ErrNonceExhausted = errors.New("nonce space exhausted")

// Progress is a point-in-time snapshot of a running search.
type Progress struct {
	Nonce uint64
	Hash  string
}

// Params fully determines one search. Timestamp is an explicit input so
// that a search is reproducible: fixed Params and a fixed hash function
// always yield the same nonce and hash.
type Params struct {
	Index      uint64
	Timestamp  int64
	Data       string
	PrevHash   string
	Difficulty int // required number of leading '0' hex characters
}

// Miner searches for nonces whose block hash meets a difficulty target.
// It never appends to a ledger or validates a chain; it only produces
// candidates.
type Miner struct {
	log      zerolog.Logger
	hash     hashing.Func
	batch    uint64
	progress chan<- Progress
}

var _ ledger.Searcher = (*Miner)(nil)

// Option configures a Miner.
type Option func(*Miner)

// WithBatchSize overrides the cancellation/reporting cadence.
func WithBatchSize(n int) Option {
	return func(m *Miner) {
		if n > 0 {
			m.batch = uint64(n)
		}
	}
}

// WithProgress attaches a channel receiving periodic Progress snapshots.
// Sends are non-blocking: a consumer that falls behind loses events, the
// search is never stalled by reporting.
func WithProgress(ch chan<- Progress) Option {
	return func(m *Miner) {
		m.progress = ch
	}
}

// New creates a Miner hashing through f.
func New(log zerolog.Logger, f hashing.Func, opts ...Option) *Miner {
	m := &Miner{
		log:   log.With().Str("component", "miner").Logger(),
		hash:  f,
		batch: DefaultBatchSize,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Mine searches nonces from 0 upward until the candidate hash starts
// with p.Difficulty '0' characters, and returns the fully formed block.
// Difficulty 0 succeeds immediately at nonce 0. Every batch of attempts
// the search polls ctx and reports progress, so cancellation takes
// effect within bounded latency; a cancelled search returns ctx's error
// and retains nothing.
func (m *Miner) Mine(ctx context.Context, p Params) (ledger.Block, error) {
	if p.Difficulty < 0 {
		return ledger.Block{}, fmt.Errorf("negative difficulty %d", p.Difficulty)
	}
	target := strings.Repeat("0", p.Difficulty)

	for nonce := uint64(0); ; nonce++ {
		h := ledger.HashFields(m.hash, p.Index, p.Timestamp, p.Data, p.PrevHash, nonce)
		if strings.HasPrefix(h, target) {
			m.log.Debug().
				Uint64("index", p.Index).
				Uint64("nonce", nonce).
				Str("hash", h).
				Msg("found nonce")
			return ledger.Block{
				Index:     p.Index,
				Timestamp: p.Timestamp,
				Data:      p.Data,
				PrevHash:  p.PrevHash,
				Hash:      h,
				Nonce:     nonce,
			}, nil
		}

		if nonce%m.batch == m.batch-1 {
			if err := ctx.Err(); err != nil {
				return ledger.Block{}, err
			}
			m.report(nonce, h)
		}

		if nonce == math.MaxUint64 {
			return ledger.Block{}, ErrNonceExhausted
		}
	}
}

// Search adapts Mine to the ledger's Searcher contract, chaining the
// candidate onto tail and stamping it with the current wall clock.
func (m *Miner) Search(ctx context.Context, tail ledger.Block, data string, difficulty int) (ledger.Block, error) {
	return m.Mine(ctx, Params{
		Index:      tail.Index + 1,
		Timestamp:  time.Now().UnixMilli(),
		Data:       data,
		PrevHash:   tail.Hash,
		Difficulty: difficulty,
	})
}

func (m *Miner) report(nonce uint64, hash string) {
	if m.progress == nil {
		return
	}
	select {
	case m.progress <- Progress{Nonce: nonce, Hash: hash}:
	default:
	}
}
