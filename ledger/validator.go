package ledger

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/ldelacroix/proofchain/hashing"
)

// Validate recomputes Validity for every block of chain and returns the
// result as a new slice. No other field is touched, in particular stored
// hashes stay exactly as found, so a tampered block surfaces as invalid
// instead of being repaired.
//
// A block is self-consistent when its stored hash matches the digest
// recomputed from its own fields. Blocks after genesis additionally need
// their PrevHash to equal the stored hash of their predecessor. Once any
// block fails, every later block is invalid regardless of its own checks.
//
// Validation always covers the whole chain; there is no incremental mode,
// so the cascade is recomputed from a clean baseline after every mutation.
func Validate(f hashing.Func, chain []Block) []Block {
	out := make([]Block, len(chain))
	copy(out, chain)

	for i := range out {
		selfOK := ComputeHash(f, out[i]) == out[i].Hash

		if i == 0 {
			// Genesis has no predecessor check.
			out[i].Validity = toValidity(selfOK)
			continue
		}

		chainOK := out[i].PrevHash == chain[i-1].Hash
		localOK := selfOK && chainOK
		out[i].Validity = toValidity(localOK && out[i-1].Validity == ValidityValid)
	}

	return out
}

func toValidity(ok bool) Validity {
	if ok {
		return ValidityValid
	}
	return ValidityInvalid
}

// Explain is the diagnostic counterpart of Validate: it reports every
// integrity failure of chain as one aggregated error, or nil when the
// chain is intact. Unlike Validate it also checks index contiguity and
// the genesis sentinel, which the hash checks alone do not cover.
func Explain(f hashing.Func, chain []Block) error {
	if len(chain) == 0 {
		return errors.New("empty chain")
	}

	var result *multierror.Error

	if chain[0].PrevHash != GenesisPrevHash {
		result = multierror.Append(result, fmt.Errorf("genesis previous hash is %q, want %q", chain[0].PrevHash, GenesisPrevHash))
	}

	for i, b := range chain {
		if b.Index != uint64(i) {
			result = multierror.Append(result, fmt.Errorf("block at position %d carries index %d", i, b.Index))
		}
		if recomputed := ComputeHash(f, b); recomputed != b.Hash {
			result = multierror.Append(result, fmt.Errorf("block %d: stored hash %s does not match recomputed %s", b.Index, b.Hash, recomputed))
		}
		if i > 0 && b.PrevHash != chain[i-1].Hash {
			result = multierror.Append(result, fmt.Errorf("block %d: previous hash does not match block %d", b.Index, chain[i-1].Index))
		}
	}

	return result.ErrorOrNil()
}
