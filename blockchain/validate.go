// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"fmt"
	"time"

	"github.com/kaspoin/kaspoind/block"
	"github.com/kaspoin/kaspoind/chainhash"
)

// maxTimeOffset is the maximum amount of time a block's timestamp is
// allowed to be ahead of the wall clock.
const maxTimeOffset = 2 * time.Hour

// checkBlockSanity runs every context-independent structural and proof-
// of-work check on a candidate block, in order. A failure here is fatal
// for the block: it is never stored or placed in the orphan pool.
func checkBlockSanity(b *block.Block, now time.Time) error {
	if err := checkHashIntegrity(b); err != nil {
		return err
	}
	if err := checkProofOfWork(b); err != nil {
		return err
	}
	if err := checkTimestamp(b, now); err != nil {
		return err
	}
	txs := b.Transactions()
	if err := checkTransactionListShape(txs); err != nil {
		return err
	}
	if err := checkMerkleRoot(b, txs); err != nil {
		return err
	}
	return nil
}

// checkHashIntegrity verifies dSHA256(header(B)) == B.hash.
func checkHashIntegrity(b *block.Block) error {
	computed := b.Header().BlockHash()
	if computed != *b.Hash() {
		return ruleError(ErrInvalidStructure, fmt.Sprintf(
			"block hash %s does not match computed hash %s", b.Hash(), computed))
	}
	return nil
}

// checkProofOfWork verifies the block's hash, interpreted as an unsigned
// 256-bit little-endian integer, is at most the target decoded from bits.
// The bits value itself is taken as given: it is not checked against any
// difficulty-retarget schedule.
func checkProofOfWork(b *block.Block) error {
	target := chainhash.CompactToBig(b.Header().Bits)
	if target.Sign() <= 0 {
		return ruleError(ErrInvalidProofOfWork, fmt.Sprintf(
			"block target difficulty of %064x is too low", target))
	}

	hash := b.Header().BlockHash()
	hashNum := chainhash.HashToBig(&hash)
	if hashNum.Cmp(target) > 0 {
		return ruleError(ErrInvalidProofOfWork, fmt.Sprintf(
			"block hash of %064x is higher than expected max of %064x", hashNum, target))
	}
	return nil
}

// checkTimestamp verifies B.timestamp <= wall_clock + 2h.
func checkTimestamp(b *block.Block, now time.Time) error {
	maxTimestamp := now.Add(maxTimeOffset)
	if b.Header().Timestamp.After(maxTimestamp) {
		return ruleError(ErrInvalidTimestamp, fmt.Sprintf(
			"block timestamp %s is too far in the future (max %s)",
			b.Header().Timestamp, maxTimestamp))
	}
	return nil
}

// checkTransactionListShape verifies the transaction list is non-empty,
// its first transaction is coinbase, and no other transaction is.
func checkTransactionListShape(txs []*block.Transaction) error {
	if len(txs) == 0 {
		return ruleError(ErrInvalidStructure, "block has no transactions")
	}
	if !txs[0].IsCoinBase() {
		return ruleError(ErrInvalidStructure, "first transaction is not a coinbase")
	}
	for _, tx := range txs[1:] {
		if tx.IsCoinBase() {
			return ruleError(ErrInvalidStructure, fmt.Sprintf(
				"block contains a second coinbase at tx %s", tx.Hash()))
		}
	}
	return nil
}

// checkMerkleRoot computes the canonical merkle root over the block's
// transaction hashes and compares it to the claimed root, accepting only
// when they match.
func checkMerkleRoot(b *block.Block, txs []*block.Transaction) error {
	hashes := make([]*chainhash.Hash, len(txs))
	for i, tx := range txs {
		hashes[i] = tx.Hash()
	}

	computed := block.CalcMerkleRoot(hashes)
	if computed != b.Header().MerkleRoot {
		return ruleError(ErrInvalidMerkle, fmt.Sprintf(
			"block merkle root is invalid - block header indicates %s, but calculated value is %s",
			b.Header().MerkleRoot, computed))
	}
	return nil
}
