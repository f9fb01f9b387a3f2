// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"testing"
	"time"

	"github.com/kaspoin/kaspoind/block"
	"github.com/kaspoin/kaspoind/chainhash"
	"github.com/kaspoin/kaspoind/storage"
	"github.com/kaspoin/kaspoind/wire"
)

// easyBits is a low difficulty target that about half of all header
// hashes satisfy, so makeBlock finds a valid nonce within a few tries.
const easyBits = 0x207fffff

func coinbaseTx(extraNonce byte) *wire.MsgTx {
	return &wire.MsgTx{
		Version: 1,
		TxIn: []*wire.TxIn{{
			PreviousOutpoint: wire.Outpoint{Index: 0xffffffff},
			SignatureScript:  []byte{extraNonce},
			Sequence:         wire.MaxTxInSequenceNum,
		}},
		TxOut: []*wire.TxOut{{Value: 0}},
	}
}

// makeBlock builds a valid (per checkBlockSanity) child of prev.
func makeBlock(prevHash chainhash.Hash, extraNonce byte, ts time.Time) *block.Block {
	cb := coinbaseTx(extraNonce)
	cbHash := cb.TxHash()
	merkle := block.CalcMerkleRoot([]*chainhash.Hash{&cbHash})

	msgBlock := &wire.MsgBlock{
		Header: wire.BlockHeader{
			Version:    1,
			PrevBlock:  prevHash,
			MerkleRoot: merkle,
			Timestamp:  ts,
			Bits:       easyBits,
		},
		Transactions: []*wire.MsgTx{cb},
	}
	b := block.NewBlock(msgBlock)
	for checkProofOfWork(b) != nil {
		msgBlock.Header.Nonce++
		b = block.NewBlock(msgBlock)
	}
	return b
}

func newTestChain(t *testing.T) (*BlockChain, *block.Block) {
	t.Helper()
	bc := New(storage.NewMemStorage())
	genesis := NewGenesisBlock(DefaultGenesisParams)
	if err := bc.Init(genesis); err != nil {
		t.Fatalf("Init: %s", err)
	}
	return bc, genesis
}

func TestLinearExtension(t *testing.T) {
	bc, genesis := newTestChain(t)
	defer bc.Shutdown()

	now := time.Now()
	b1 := makeBlock(*genesis.Hash(), 1, now)
	isOrphan, err := bc.Add(b1, b1.Transactions())
	if err != nil {
		t.Fatalf("Add(b1): %s", err)
	}
	if isOrphan {
		t.Fatalf("b1 reported as orphan, expected direct extension")
	}

	b2 := makeBlock(*b1.Hash(), 2, now.Add(time.Second))
	isOrphan, err = bc.Add(b2, b2.Transactions())
	if err != nil {
		t.Fatalf("Add(b2): %s", err)
	}
	if isOrphan {
		t.Fatalf("b2 reported as orphan")
	}

	if tip := bc.ActiveTip(); tip != *b2.Hash() {
		t.Fatalf("active tip = %s, want %s", tip, b2.Hash())
	}
}

func TestDuplicateAddIsIdempotent(t *testing.T) {
	bc, genesis := newTestChain(t)
	defer bc.Shutdown()

	now := time.Now()
	b1 := makeBlock(*genesis.Hash(), 1, now)
	if _, err := bc.Add(b1, b1.Transactions()); err != nil {
		t.Fatalf("first Add: %s", err)
	}
	isOrphan, err := bc.Add(b1, b1.Transactions())
	if err != nil {
		t.Fatalf("second Add: %s", err)
	}
	if isOrphan {
		t.Fatalf("duplicate add reported as orphan")
	}
	if tip := bc.ActiveTip(); tip != *b1.Hash() {
		t.Fatalf("active tip changed after duplicate add: %s", tip)
	}
}

func TestOrphanBlockIsBufferedThenDrained(t *testing.T) {
	bc, genesis := newTestChain(t)
	defer bc.Shutdown()

	now := time.Now()
	b1 := makeBlock(*genesis.Hash(), 1, now)
	b2 := makeBlock(*b1.Hash(), 2, now.Add(time.Second))

	isOrphan, err := bc.Add(b2, b2.Transactions())
	if err != nil {
		t.Fatalf("Add(b2): %s", err)
	}
	if !isOrphan {
		t.Fatalf("b2 should be an orphan, its parent b1 is unknown")
	}
	if tip := bc.ActiveTip(); tip != *genesis.Hash() {
		t.Fatalf("active tip moved while b1 is still missing: %s", tip)
	}

	isOrphan, err = bc.Add(b1, b1.Transactions())
	if err != nil {
		t.Fatalf("Add(b1): %s", err)
	}
	if isOrphan {
		t.Fatalf("b1 should extend genesis directly")
	}

	if tip := bc.ActiveTip(); tip != *b2.Hash() {
		t.Fatalf("active tip = %s, want %s after orphan drain", tip, b2.Hash())
	}
}

func TestReorgToHeavierSideChain(t *testing.T) {
	bc, genesis := newTestChain(t)
	defer bc.Shutdown()

	now := time.Now()
	a1 := makeBlock(*genesis.Hash(), 1, now)
	if _, err := bc.Add(a1, a1.Transactions()); err != nil {
		t.Fatalf("Add(a1): %s", err)
	}

	b1 := makeBlock(*genesis.Hash(), 2, now.Add(time.Second))
	if _, err := bc.Add(b1, b1.Transactions()); err != nil {
		t.Fatalf("Add(b1): %s", err)
	}
	if tip := bc.ActiveTip(); tip != *a1.Hash() {
		t.Fatalf("active tip = %s, want a1 (first seen at equal work)", tip)
	}

	b2 := makeBlock(*b1.Hash(), 3, now.Add(2*time.Second))
	isOrphan, err := bc.Add(b2, b2.Transactions())
	if err != nil {
		t.Fatalf("Add(b2): %s", err)
	}
	if isOrphan {
		t.Fatalf("b2 should extend known parent b1")
	}

	if tip := bc.ActiveTip(); tip != *b2.Hash() {
		t.Fatalf("active tip = %s, want b2 after reorg to heavier chain", tip)
	}
}

func TestRejectsTamperedBlock(t *testing.T) {
	bc, genesis := newTestChain(t)
	defer bc.Shutdown()

	b1 := makeBlock(*genesis.Hash(), 1, time.Now())
	// Mutating the header after construction desyncs it from the hash
	// NewBlock derived, so sanity checking must reject it as malformed.
	b1.Header().MerkleRoot = chainhash.Hash{0xff}

	_, err := bc.Add(b1, b1.Transactions())
	if err == nil {
		t.Fatalf("expected tampered block to be rejected")
	}
	if !IsRuleError(err) {
		t.Fatalf("expected a RuleError, got %T: %s", err, err)
	}
}
