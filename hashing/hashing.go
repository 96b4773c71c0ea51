// Package hashing provides the digest shared by mining and validation.
// Both sides must hash through the same Func so that recomputed block
// hashes agree bit-for-bit with the ones found during the search.
package hashing

import (
	"encoding/hex"
	"hash"

	"go.dedis.ch/kyber/v4/suites"
)

// Func returns a fresh digest instance on every call.
type Func func() hash.Hash

// Default returns the hash of the Ed25519 suite (SHA-256).
func Default() Func {
	suite := suites.MustFind("Ed25519")
	return suite.Hash
}

// Digest hashes b with a fresh instance of f and returns the lowercase
// hex encoding of the sum.
func Digest(f Func, b []byte) string {
	h := f()
	h.Write(b)
	return hex.EncodeToString(h.Sum(nil))
}
