// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"time"

	"github.com/kaspoin/kaspoind/block"
	"github.com/kaspoin/kaspoind/chainhash"
	"github.com/kaspoin/kaspoind/wire"
)

// genesisCoinbaseScript is the arbitrary payload carried in the signature
// script of the genesis block's single coinbase input, a human-readable
// marker rather than a spendable script in this node's simplified
// scheme.
var genesisCoinbaseScript = []byte("kaspoind genesis block")

// genesisCoinbaseTx is the genesis block's only transaction, so the
// genesis merkle root is just this transaction's own hash.
var genesisCoinbaseTx = &wire.MsgTx{
	Version: 1,
	TxIn: []*wire.TxIn{{
		PreviousOutpoint: wire.Outpoint{Index: 0xffffffff},
		SignatureScript:  genesisCoinbaseScript,
		Sequence:         wire.MaxTxInSequenceNum,
	}},
	TxOut: []*wire.TxOut{{
		Value:    0,
		PkScript: nil,
	}},
	LockTime: 0,
}

// GenesisParams configures the difficulty bits and timestamp a deployment
// wants baked into its genesis block; left as parameters rather than
// constants since a regression-test network wants trivial difficulty
// and a fixed timestamp while a production network wants neither.
type GenesisParams struct {
	Bits      uint32
	Timestamp time.Time
}

// DefaultGenesisParams is the genesis configuration used when none is
// supplied: minimal difficulty, a fixed timestamp so every fresh node
// derives an identical genesis hash.
var DefaultGenesisParams = GenesisParams{
	Bits:      0x207fffff,
	Timestamp: time.Unix(1600000000, 0).UTC(),
}

// NewGenesisBlock constructs the single-transaction block that seeds an
// empty chain, per params.
func NewGenesisBlock(params GenesisParams) *block.Block {
	merkleRoot := genesisCoinbaseTx.TxHash()

	msgBlock := &wire.MsgBlock{
		Header: wire.BlockHeader{
			Version:    1,
			PrevBlock:  chainhash.ZeroHash,
			MerkleRoot: merkleRoot,
			Timestamp:  params.Timestamp,
			Bits:       params.Bits,
			Nonce:      0,
		},
		Transactions: []*wire.MsgTx{genesisCoinbaseTx},
	}
	return block.NewBlock(msgBlock)
}
