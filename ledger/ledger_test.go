package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ldelacroix/proofchain/hashing"
)

// fakeGateway is an in-memory Gateway recording every save.
type fakeGateway struct {
	mu    sync.Mutex
	chain []Block
	saves int
	fail  error
}

func (g *fakeGateway) Load() ([]Block, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.chain == nil {
		return nil, nil
	}
	out := make([]Block, len(g.chain))
	copy(out, g.chain)
	return out, nil
}

func (g *fakeGateway) Save(chain []Block) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.fail != nil {
		return g.fail
	}
	g.chain = make([]Block, len(chain))
	copy(g.chain, chain)
	g.saves++
	return nil
}

// instantSearcher produces a chained candidate without any real work,
// optionally blocking until released to simulate a long search.
type instantSearcher struct {
	hash    hashing.Func
	release chan struct{}
}

func (s *instantSearcher) Search(ctx context.Context, tail Block, data string, difficulty int) (Block, error) {
	if s.release != nil {
		select {
		case <-s.release:
		case <-ctx.Done():
			return Block{}, ctx.Err()
		}
	}
	b := Block{
		Index:     tail.Index + 1,
		Timestamp: tail.Timestamp + 1000,
		Data:      data,
		PrevHash:  tail.Hash,
	}
	b.Hash = ComputeHash(s.hash, b)
	return b, nil
}

func openTestLedger(t *testing.T, gw *fakeGateway) *Ledger {
	t.Helper()
	f := hashing.Default()
	led, err := Open(zerolog.Nop(), f, gw, &instantSearcher{hash: f})
	require.NoError(t, err)
	return led
}

func TestOpenCreatesGenesis(t *testing.T) {
	gw := &fakeGateway{}
	led := openTestLedger(t, gw)

	require.Equal(t, 1, led.Len())
	genesis := led.Tail()
	assert.Equal(t, uint64(0), genesis.Index)
	assert.Equal(t, GenesisPrevHash, genesis.PrevHash)
	assert.Equal(t, ValidityValid, genesis.Validity)

	// The fresh genesis must already be persisted.
	require.Equal(t, 1, gw.saves)
	require.Len(t, gw.chain, 1)
}

func TestOpenValidatesLoadedChain(t *testing.T) {
	f := hashing.Default()
	chain := buildChain(f, 3)
	chain[1].Data = "hand-edited on disk"

	gw := &fakeGateway{chain: chain}
	led := openTestLedger(t, gw)

	got := led.Blocks()
	require.Len(t, got, 3)
	assert.Equal(t, ValidityValid, got[0].Validity)
	assert.Equal(t, ValidityInvalid, got[1].Validity, "corrupted snapshot must surface as invalid, not be repaired")
	assert.Equal(t, ValidityInvalid, got[2].Validity)
	assert.Equal(t, "hand-edited on disk", got[1].Data)
}

func TestMineAppendsAndPersists(t *testing.T) {
	gw := &fakeGateway{}
	led := openTestLedger(t, gw)

	block, err := led.Mine(context.Background(), "payload", 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), block.Index)

	require.Equal(t, 2, led.Len())
	for _, b := range led.Blocks() {
		assert.Equal(t, ValidityValid, b.Validity)
	}
	require.Len(t, gw.chain, 2)
	assert.False(t, led.Mining())
}

func TestMineRejectedWhileMining(t *testing.T) {
	gw := &fakeGateway{}
	f := hashing.Default()
	searcher := &instantSearcher{hash: f, release: make(chan struct{})}
	led, err := Open(zerolog.Nop(), f, gw, searcher)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := led.Mine(context.Background(), "slow", 0)
		done <- err
	}()

	require.Eventually(t, led.Mining, time.Second, time.Millisecond)

	_, err = led.Mine(context.Background(), "rejected", 0)
	require.ErrorIs(t, err, ErrMiningInProgress)

	close(searcher.release)
	require.NoError(t, <-done)
	require.Equal(t, 2, led.Len(), "the rejected request must not have produced a block")
}

func TestMineCancelledLeavesChainUntouched(t *testing.T) {
	gw := &fakeGateway{}
	f := hashing.Default()
	searcher := &instantSearcher{hash: f, release: make(chan struct{})}
	led, err := Open(zerolog.Nop(), f, gw, searcher)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = led.Mine(ctx, "never", 0)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, led.Len())
	assert.False(t, led.Mining())
}

func TestAppendMinedBlockStaleCandidate(t *testing.T) {
	gw := &fakeGateway{}
	led := openTestLedger(t, gw)
	f := hashing.Default()

	tail := led.Tail()
	candidate := Block{
		Index:     tail.Index + 1,
		Timestamp: tail.Timestamp + 1000,
		Data:      "raced",
		PrevHash:  tail.Hash,
	}
	candidate.Hash = ComputeHash(f, candidate)

	// The tail moves while the candidate is in flight.
	require.NoError(t, led.EditBlockData(0, "moved"))

	err := led.AppendMinedBlock(candidate)
	require.ErrorIs(t, err, ErrStaleCandidate)
	require.Equal(t, 1, led.Len())
}

func TestAppendMinedBlockWrongIndex(t *testing.T) {
	gw := &fakeGateway{}
	led := openTestLedger(t, gw)
	f := hashing.Default()

	tail := led.Tail()
	candidate := Block{
		Index:     tail.Index + 2,
		Timestamp: tail.Timestamp + 1000,
		Data:      "gap",
		PrevHash:  tail.Hash,
	}
	candidate.Hash = ComputeHash(f, candidate)

	require.ErrorIs(t, led.AppendMinedBlock(candidate), ErrStaleCandidate)
}

func TestEditBlockDataCascades(t *testing.T) {
	gw := &fakeGateway{}
	led := openTestLedger(t, gw)

	_, err := led.Mine(context.Background(), "one", 0)
	require.NoError(t, err)
	_, err = led.Mine(context.Background(), "two", 0)
	require.NoError(t, err)

	require.NoError(t, led.EditBlockData(0, "Tampered"))

	got := led.Blocks()
	require.Len(t, got, 3)

	// The edited block is rehashed and stays self-consistent; everything
	// after it breaks because block 1 still stores the old link.
	assert.Equal(t, "Tampered", got[0].Data)
	assert.Equal(t, ValidityValid, got[0].Validity)
	assert.Equal(t, ValidityInvalid, got[1].Validity)
	assert.Equal(t, ValidityInvalid, got[2].Validity)

	// The tamper touched nothing but block 0's data and hash.
	assert.Equal(t, uint64(0), got[0].Nonce)
	assert.NotEqual(t, got[1].PrevHash, got[0].Hash)

	// The broken state is persisted as-is.
	require.Equal(t, ValidityInvalid, gw.chain[2].Validity)
}

func TestEditBlockDataOutOfRange(t *testing.T) {
	gw := &fakeGateway{}
	led := openTestLedger(t, gw)

	err := led.EditBlockData(5, "nope")
	require.ErrorIs(t, err, ErrIndexOutOfRange)
	require.Equal(t, 1, led.Len())
}

func TestResetInstallsFreshGenesis(t *testing.T) {
	gw := &fakeGateway{}
	led := openTestLedger(t, gw)

	_, err := led.Mine(context.Background(), "one", 0)
	require.NoError(t, err)
	require.NoError(t, led.EditBlockData(0, "Tampered"))

	require.NoError(t, led.Reset())

	got := led.Blocks()
	require.Len(t, got, 1)
	assert.Equal(t, uint64(0), got[0].Index)
	assert.Equal(t, GenesisPrevHash, got[0].PrevHash)
	assert.Equal(t, ValidityValid, got[0].Validity)
	require.Len(t, gw.chain, 1)
}

func TestPersistFailureKeepsMutation(t *testing.T) {
	gw := &fakeGateway{}
	led := openTestLedger(t, gw)

	gw.fail = errors.New("disk full")
	err := led.EditBlockData(0, "still applied")
	require.Error(t, err)
	assert.Equal(t, "still applied", led.Blocks()[0].Data)
}
