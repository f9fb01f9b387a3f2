// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package block

import (
	"time"

	"github.com/kaspoin/kaspoind/chainhash"
	"github.com/kaspoin/kaspoind/wire"
)

// Transaction wraps a wire.MsgTx with its derived hash and the bookkeeping
// the mempool needs: the time it was first observed and, once confirmed,
// the block that contains it.
type Transaction struct {
	msgTx        *wire.MsgTx
	hash         *chainhash.Hash
	firstSeen    time.Time
	containingBlockHash *chainhash.Hash
	indexInBlock int
}

// NewTransaction returns a Transaction instance for the given wire.MsgTx,
// deriving its hash.
func NewTransaction(msgTx *wire.MsgTx) *Transaction {
	txHash := msgTx.TxHash()
	return &Transaction{msgTx: msgTx, hash: &txHash}
}

// MsgTx returns the underlying wire.MsgTx.
func (t *Transaction) MsgTx() *wire.MsgTx { return t.msgTx }

// Hash returns the transaction's identifier hash.
func (t *Transaction) Hash() *chainhash.Hash { return t.hash }

// IsCoinBase reports whether this is a coinbase transaction: a single
// input with a null outpoint.
func (t *Transaction) IsCoinBase() bool { return t.msgTx.IsCoinBase() }

// FirstSeen returns the time the transaction was first observed by the
// mempool. Zero until the mempool stamps it.
func (t *Transaction) FirstSeen() time.Time { return t.firstSeen }

// SetFirstSeen stamps the transaction's first-seen time.
func (t *Transaction) SetFirstSeen(when time.Time) { t.firstSeen = when }

// SetContainingBlock records which block (and index within it) confirmed
// this transaction.
func (t *Transaction) SetContainingBlock(blockHash *chainhash.Hash, index int) {
	t.containingBlockHash = blockHash
	t.indexInBlock = index
}

// ContainingBlock returns the hash of the block that confirmed this
// transaction and its index within it, or nil if unconfirmed.
func (t *Transaction) ContainingBlock() (*chainhash.Hash, int) {
	return t.containingBlockHash, t.indexInBlock
}
