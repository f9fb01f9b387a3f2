// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"github.com/kaspoin/kaspoind/block"
	"github.com/kaspoin/kaspoind/storage"
	"github.com/pkg/errors"
)

// reorgTo switches the active chain onto the branch ending at b, whose
// chain_work exceeds the current active tip's. It locates the fork point
// by walking parent pointers from both tips (the lowest common ancestor),
// revokes every active block down to, but not including, the fork
// point, then applies every block on the new branch from the fork point
// up to b. The revoke phase completes in full before any block on the
// new branch is applied.
func (bc *BlockChain) reorgTo(b *block.Block, txs []*block.Transaction) error {
	revoke, apply, err := bc.planReorg(b)
	if err != nil {
		return err
	}
	log.Infof("Reorganizing chain: revoking %d block(s), applying %d block(s), new tip %s",
		len(revoke), len(apply), b.Hash())

	for _, rec := range revoke {
		if err := bc.revokeBlock(rec); err != nil {
			return err
		}
	}

	for _, step := range apply {
		stepTxs := step.txs
		if step.rec.Block.Hash().IsEqual(b.Hash()) {
			stepTxs = txs
		}
		step.rec.Block.SetActive(true)
		if err := bc.persistBlock(step.rec.Block, stepTxs, true); err != nil {
			return err
		}
	}

	bc.activeTip = *b.Hash()
	bc.activeTipWork = b.ChainWork()
	return nil
}

type applyStep struct {
	rec *storage.BlockRecord
	txs []*block.Transaction
}

// planReorg computes the fork point between the current active tip and b
// by walking parent pointers, returning the list of currently-active
// blocks to revoke (tip-to-fork order) and the list of already-stored
// side-chain blocks plus b itself to apply (fork-to-tip order).
func (bc *BlockChain) planReorg(b *block.Block) (revoke []*storage.BlockRecord, apply []applyStep, err error) {
	tipRec, err := bc.store.GetBlockByHash(&bc.activeTip)
	if err != nil {
		return nil, nil, errors.Wrap(err, "loading active tip")
	}
	parentRec, err := bc.store.GetBlockByHash(b.PrevHash())
	if err != nil {
		return nil, nil, errors.Wrap(err, "loading new branch parent")
	}

	a, bside := tipRec, parentRec
	var applyAncestors []*storage.BlockRecord

	for a.Height > bside.Height {
		revoke = append(revoke, a)
		a, err = bc.store.GetBlockByHash(a.Block.PrevHash())
		if err != nil {
			return nil, nil, errors.Wrap(err, "walking revoked branch")
		}
	}
	for bside.Height > a.Height {
		applyAncestors = append(applyAncestors, bside)
		bside, err = bc.store.GetBlockByHash(bside.Block.PrevHash())
		if err != nil {
			return nil, nil, errors.Wrap(err, "walking new branch")
		}
	}
	for !a.Block.Hash().IsEqual(bside.Block.Hash()) {
		revoke = append(revoke, a)
		applyAncestors = append(applyAncestors, bside)
		a, err = bc.store.GetBlockByHash(a.Block.PrevHash())
		if err != nil {
			return nil, nil, errors.Wrap(err, "walking revoked branch")
		}
		bside, err = bc.store.GetBlockByHash(bside.Block.PrevHash())
		if err != nil {
			return nil, nil, errors.Wrap(err, "walking new branch")
		}
	}

	for i := len(applyAncestors) - 1; i >= 0; i-- {
		rec := applyAncestors[i]
		apply = append(apply, applyStep{rec: rec, txs: rec.Block.Transactions()})
	}
	apply = append(apply, applyStep{rec: &storage.BlockRecord{Block: b, Height: b.Height()}})

	return revoke, apply, nil
}

// revokeBlock demotes a previously-active block from the chain: its
// transactions are revoked in-block order, then the block itself is
// marked inactive and persisted.
func (bc *BlockChain) revokeBlock(rec *storage.BlockRecord) error {
	for _, tx := range rec.Block.Transactions() {
		if err := bc.sendNotification(NTTxRevoke, nil, tx); err != nil {
			return err
		}
	}

	rec.Block.SetActive(false)
	if err := bc.store.PutBlock(&storage.BlockRecord{
		Block:     rec.Block,
		Height:    rec.Height,
		Active:    false,
		ChainWork: rec.ChainWork,
	}); err != nil {
		return errors.Wrap(err, "demoting revoked block")
	}

	return bc.sendNotification(NTBlockRevoke, rec.Block, nil)
}
