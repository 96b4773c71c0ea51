package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ldelacroix/proofchain/hashing"
)

func TestCanonicalPreimage(t *testing.T) {
	f := hashing.Default()

	// The hash input is the exact unseparated concatenation of index,
	// timestamp, data, previous hash and nonce.
	got := HashFields(f, 1, 2000, "X", "abc", 42)
	want := hashing.Digest(f, []byte("12000Xabc42"))
	require.Equal(t, want, got)
}

func TestComputeHashIgnoresDerivedFields(t *testing.T) {
	f := hashing.Default()

	b := Block{Index: 3, Timestamp: 1234, Data: "payload", PrevHash: "ff", Nonce: 7}
	base := ComputeHash(f, b)

	b.Hash = "deadbeef"
	b.Validity = ValidityInvalid
	require.Equal(t, base, ComputeHash(f, b))
}

func TestNewGenesis(t *testing.T) {
	f := hashing.Default()

	g := NewGenesis(f, "Genesis Block", 1000)
	assert.Equal(t, uint64(0), g.Index)
	assert.Equal(t, int64(1000), g.Timestamp)
	assert.Equal(t, GenesisPrevHash, g.PrevHash)
	assert.Equal(t, uint64(0), g.Nonce)
	assert.Equal(t, ValidityUnknown, g.Validity)

	// Concrete scenario: H("0" + "1000" + "Genesis Block" + "0" + "0").
	require.Equal(t, hashing.Digest(f, []byte("01000Genesis Block00")), g.Hash)
}

func TestValidityString(t *testing.T) {
	assert.Equal(t, "unknown", ValidityUnknown.String())
	assert.Equal(t, "valid", ValidityValid.String())
	assert.Equal(t, "invalid", ValidityInvalid.String())
}
