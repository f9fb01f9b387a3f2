// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package block provides Block and Transaction, the typed entities the
// chain-and-pool engine operates on. Each wraps the corresponding wire
// message with the derived fields (hash, height, size, active status,
// cumulative chain work) the rest of the engine keys off of.
package block

import (
	"math/big"

	"github.com/kaspoin/kaspoind/chainhash"
	"github.com/kaspoin/kaspoind/wire"
)

// UnknownHeight is used when a block's height within the chain has not yet
// been assigned (it is either unmined or not yet connected to a parent).
const UnknownHeight = -1

// Block wraps a wire.MsgBlock with the chain-level bookkeeping fields the
// rest of the engine relies on: its derived hash, its assigned height, its
// on-the-wire size, whether it currently sits on the active chain, and its
// cumulative proof-of-work (chain_work).
type Block struct {
	msgBlock  *wire.MsgBlock
	hash      *chainhash.Hash
	height    int32
	size      uint32
	active    bool
	chainWork *big.Int
}

// NewBlock returns a Block instance for the given wire.MsgBlock, deriving
// its hash and size but leaving height, active, and chain_work unassigned
// until the block chain assigns them on admission.
func NewBlock(msgBlock *wire.MsgBlock) *Block {
	blockHash := msgBlock.BlockHash()
	return &Block{
		msgBlock: msgBlock,
		hash:     &blockHash,
		height:   UnknownHeight,
		size:     uint32(msgBlock.SerializeSize()),
	}
}

// MsgBlock returns the underlying wire.MsgBlock.
func (b *Block) MsgBlock() *wire.MsgBlock { return b.msgBlock }

// Hash returns the block identifier hash.
func (b *Block) Hash() *chainhash.Hash { return b.hash }

// Header returns the block's 80-byte header.
func (b *Block) Header() *wire.BlockHeader { return &b.msgBlock.Header }

// PrevHash returns the hash of the block's parent. A block is the genesis
// block iff this is the zero hash.
func (b *Block) PrevHash() *chainhash.Hash { return &b.msgBlock.Header.PrevBlock }

// IsGenesis reports whether the block has no parent.
func (b *Block) IsGenesis() bool { return b.msgBlock.Header.PrevBlock == chainhash.ZeroHash }

// Transactions returns the block's typed transaction list.
func (b *Block) Transactions() []*Transaction {
	txs := make([]*Transaction, len(b.msgBlock.Transactions))
	for i, msgTx := range b.msgBlock.Transactions {
		txs[i] = NewTransaction(msgTx)
	}
	return txs
}

// Height returns the block's height on the chain it is stored against, or
// UnknownHeight if unassigned.
func (b *Block) Height() int32 { return b.height }

// SetHeight assigns the block's height.
func (b *Block) SetHeight(height int32) { b.height = height }

// Size returns the block's serialized size in bytes.
func (b *Block) Size() uint32 { return b.size }

// IsActive reports whether the block is on the current best chain.
func (b *Block) IsActive() bool { return b.active }

// SetActive sets whether the block is on the current best chain.
func (b *Block) SetActive(active bool) { b.active = active }

// ChainWork returns the block's cumulative chain work.
func (b *Block) ChainWork() *big.Int { return b.chainWork }

// SetChainWork assigns the block's cumulative chain work.
func (b *Block) SetChainWork(work *big.Int) { b.chainWork = work }
