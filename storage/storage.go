// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package storage defines the durable content-addressed map the chain and
// pool engine persists blocks and transactions into, and provides a
// goleveldb-backed implementation of it.
package storage

import (
	"github.com/kaspoin/kaspoind/block"
	"github.com/kaspoin/kaspoind/chainhash"
)

// TxRef records where a transaction is contained: the hash of the block it
// was confirmed in and its index within that block.
type TxRef struct {
	BlockHash chainhash.Hash
	Index     int
}

// BlockRecord is the durable representation of a stored block: the block
// itself plus the chain bookkeeping fields the engine assigned to it.
type BlockRecord struct {
	Block     *block.Block
	Height    int32
	Active    bool
	ChainWork []byte // big.Int bytes, big-endian
}

// Storage is the durable map the block chain and mempool persist into. It
// is the only shared mutable resource in the engine; implementations must
// serialize writes per key.
type Storage interface {
	// PutBlock durably stores a block record, keyed by its hash.
	PutBlock(rec *BlockRecord) error

	// GetBlockByHash returns the stored block record for hash, or
	// (nil, nil) if unknown.
	GetBlockByHash(hash *chainhash.Hash) (*BlockRecord, error)

	// GetBlocksByPrev returns every stored block whose PrevHash equals
	// hash: the children of the given block.
	GetBlocksByPrev(hash *chainhash.Hash) ([]*BlockRecord, error)

	// KnowsBlock reports whether a block with the given hash is stored.
	KnowsBlock(hash *chainhash.Hash) (bool, error)

	// PutTx durably stores a transaction along with the reference to
	// the block that confirmed it.
	PutTx(tx *block.Transaction, ref TxRef) error

	// GetTx returns the stored transaction for hash, or (nil, nil) if
	// unknown.
	GetTx(hash *chainhash.Hash) (*block.Transaction, error)

	// ActiveChainHashAtHeight returns the hash of the active-chain block
	// at the given height, used to build locators. Returns (nil, nil)
	// if no active block exists at that height.
	ActiveChainHashAtHeight(height int32) (*chainhash.Hash, error)

	// ActiveTipHeight returns the height of the current active tip, or
	// -1 if no blocks are stored.
	ActiveTipHeight() (int32, error)
}
