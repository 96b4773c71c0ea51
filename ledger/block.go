package ledger

import (
	"strconv"

	"github.com/ldelacroix/proofchain/hashing"
)

// GenesisPrevHash is the sentinel previous hash of the index-0 block.
const GenesisPrevHash = "0"

// Validity is the outcome of the last validation pass over a block.
// A block that has never been validated carries ValidityUnknown.
type Validity int8

const (
	ValidityUnknown Validity = iota
	ValidityValid
	ValidityInvalid
)

func (v Validity) String() string {
	switch v {
	case ValidityValid:
		return "valid"
	case ValidityInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// Block is a single ledger entry. Hash and Validity are derived fields:
// Hash is recomputed only when the block is created or edited, Validity
// only by Validate. Neither feeds the hash preimage.
type Block struct {
	Index     uint64   `json:"index"`
	Timestamp int64    `json:"timestamp"` // milliseconds since epoch
	Data      string   `json:"data"`
	PrevHash  string   `json:"prev_hash"`
	Hash      string   `json:"hash"`
	Nonce     uint64   `json:"nonce"`
	Validity  Validity `json:"validity"`
}

// preimage holds exactly the fields that feed the block hash, in hashing
// order. Keeping the projection typed means a derived field can never
// slip into the digest input.
type preimage struct {
	index     uint64
	timestamp int64
	data      string
	prevHash  string
	nonce     uint64
}

// bytes renders the canonical hash input: the unseparated concatenation
// of the decimal index, decimal timestamp, data, previous hash and
// decimal nonce. The format is a compatibility contract, do not add
// delimiters or reorder fields.
func (p preimage) bytes() []byte {
	b := make([]byte, 0, 64+len(p.data)+len(p.prevHash))
	b = strconv.AppendUint(b, p.index, 10)
	b = strconv.AppendInt(b, p.timestamp, 10)
	b = append(b, p.data...)
	b = append(b, p.prevHash...)
	b = strconv.AppendUint(b, p.nonce, 10)
	return b
}

// HashFields computes the canonical digest for raw field values. The
// miner uses it to hash candidates that do not exist as Blocks yet.
func HashFields(f hashing.Func, index uint64, timestamp int64, data, prevHash string, nonce uint64) string {
	return hashing.Digest(f, preimage{index, timestamp, data, prevHash, nonce}.bytes())
}

// ComputeHash recomputes the digest of b from its own stored fields.
func ComputeHash(f hashing.Func, b Block) string {
	return HashFields(f, b.Index, b.Timestamp, b.Data, b.PrevHash, b.Nonce)
}

// NewGenesis builds the index-0 block with the sentinel previous hash
// and a self-computed hash. Validity is left for the validator.
func NewGenesis(f hashing.Func, data string, timestamp int64) Block {
	b := Block{
		Index:     0,
		Timestamp: timestamp,
		Data:      data,
		PrevHash:  GenesisPrevHash,
		Nonce:     0,
	}
	b.Hash = ComputeHash(f, b)
	return b
}
