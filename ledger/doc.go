// Package ledger implements a proof-of-work hash-chain ledger for
// demonstrating tamper detection.
//
// # Core Components
//
// Block: a single entry carrying an index, an opaque payload, the stored
// hash of its predecessor and a proof-of-work nonce/hash pair.
//
// Ledger: the single-writer owner of the chain. It orchestrates mining,
// in-place edits, whole-chain validation and snapshot persistence.
//
// Validate: a pure pass that recomputes every block's Validity without
// touching any other field.
//
// # Integrity Properties
//
// Every block hash covers the block's index, timestamp, payload,
// previous hash and nonce. Editing a block's payload recomputes only
// that block's hash; its successor keeps the old link, so validation
// marks the successor and everything after it invalid. Invalidity
// cascades strictly forward: once one block fails, no later block can be
// valid regardless of its own consistency.
//
// # Usage
//
// Open a ledger over a persistence gateway, mine blocks onto it with a
// Searcher, and use EditBlockData to demonstrate how tampering is
// detected on the next validation pass.
package ledger
