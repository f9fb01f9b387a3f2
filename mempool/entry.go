// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package mempool implements the TransactionStore: the mempool of
// unconfirmed transactions, with verification pipelining, in-flight
// deduplication via a shared future per hash, orphan-transaction
// handling, and conflict removal on block confirmation.
package mempool

import (
	"github.com/kaspoin/kaspoind/block"
	"github.com/kaspoin/kaspoind/chainhash"
)

// entryState tags which of the three states a pool entry is in: in
// flight verification, accepted, or orphaned awaiting a missing source.
type entryState int

const (
	stateVerifying entryState = iota
	stateAccepted
	stateOrphan
)

// AddCallback is invoked with the outcome of an Add call: a non-nil error
// and the submitted transaction on failure (including the MissingSource
// case), or (nil, tx) on success.
type AddCallback func(err error, tx *block.Transaction)

// entry is the tri-state mempool record keyed by transaction hash.
type entry struct {
	state entryState

	// populated in all states
	tx *block.Transaction

	// stateVerifying, stateOrphan: callers waiting on the outcome of the
	// one shared verification for this hash, in flight or pending the
	// orphan's missing parent.
	waiters []AddCallback

	// stateOrphan
	missing chainhash.Hash

	// removeOnAccept records a Remove call that arrived while this
	// entry was still verifying; it is honored only if verification
	// succeeds (a failed entry is already gone).
	removeOnAccept bool
}
