// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"math/big"

	"github.com/kaspoin/kaspoind/block"
	"github.com/kaspoin/kaspoind/chainhash"
	"github.com/kaspoin/kaspoind/logs"
	"github.com/kaspoin/kaspoind/storage"
	"github.com/pkg/errors"
)

var log = logs.ChainLog()

// Add runs the block-add pipeline for the candidate block b with its
// transactions txs. It reports whether the block was buffered as an
// orphan (pending its parent) and any hard validation or storage error.
// Two Add calls for the same hash are idempotent: the second is a no-op
// and emits no events.
func (bc *BlockChain) Add(b *block.Block, txs []*block.Transaction) (isOrphan bool, err error) {
	bc.do(func() {
		isOrphan, err = bc.addLocked(b, txs)
	})
	return isOrphan, err
}

func (bc *BlockChain) addLocked(b *block.Block, txs []*block.Transaction) (bool, error) {
	known, err := bc.store.KnowsBlock(b.Hash())
	if err != nil {
		return false, errors.Wrap(err, "checking for duplicate block")
	}
	if known {
		return false, nil
	}

	if err := checkBlockSanity(b, bc.now()); err != nil {
		return false, err
	}

	if b.IsGenesis() {
		return false, errors.New("a second genesis block cannot be added via Add; only Init may establish genesis")
	}

	parentRec, err := bc.store.GetBlockByHash(b.PrevHash())
	if err != nil {
		return false, errors.Wrap(err, "looking up parent block")
	}
	if parentRec == nil {
		log.Debugf("Adding orphan block %s", b.Hash())
		bc.orphans[*b.PrevHash()] = append(bc.orphans[*b.PrevHash()], &orphanBlock{block: b, txs: txs})
		return true, nil
	}

	if err := bc.admit(b, txs, parentRec); err != nil {
		return false, err
	}
	log.Debugf("Accepted block %s at height %d", b.Hash(), b.Height())

	if err := bc.drainOrphans(b.Hash()); err != nil {
		return false, err
	}

	return false, nil
}

// admit assigns height/chain-work, fires the pre-persist NTBlockAdd hook,
// then decides chain membership and persists accordingly.
func (bc *BlockChain) admit(b *block.Block, txs []*block.Transaction, parentRec *storage.BlockRecord) error {
	b.SetHeight(parentRec.Height + 1)
	parentWork := new(big.Int).SetBytes(parentRec.ChainWork)
	b.SetChainWork(new(big.Int).Add(parentWork, chainhash.CalcWork(b.Header().Bits)))

	if err := bc.sendNotification(NTBlockAdd, b, nil); err != nil {
		return errors.Wrap(err, "blockAdd listener aborted admission")
	}

	switch {
	case parentRec.Active && b.PrevHash().IsEqual(&bc.activeTip):
		return bc.extendActiveChain(b, txs)

	case b.ChainWork().Cmp(bc.activeTipWork) > 0:
		return bc.reorgTo(b, txs)

	default:
		b.SetActive(false)
		return bc.persistBlock(b, nil, false)
	}
}

// extendActiveChain handles the common case: b's parent is the current
// active tip, so b simply extends it.
func (bc *BlockChain) extendActiveChain(b *block.Block, txs []*block.Transaction) error {
	b.SetActive(true)
	if err := bc.persistBlock(b, txs, true); err != nil {
		return err
	}
	bc.activeTip = *b.Hash()
	bc.activeTipWork = b.ChainWork()
	return nil
}

// persistBlock writes b (and, if active, its transactions) to storage,
// emitting NTTxAdd/NTTxSave per transaction when active, followed by
// NTBlockSave.
func (bc *BlockChain) persistBlock(b *block.Block, txs []*block.Transaction, active bool) error {
	rec := &storage.BlockRecord{
		Block:     b,
		Height:    b.Height(),
		Active:    active,
		ChainWork: b.ChainWork().Bytes(),
	}
	if err := bc.store.PutBlock(rec); err != nil {
		return errors.Wrap(err, "persisting block")
	}

	if active {
		for i, tx := range txs {
			if err := bc.store.PutTx(tx, storage.TxRef{BlockHash: *b.Hash(), Index: i}); err != nil {
				return errors.Wrap(err, "persisting transaction")
			}
			if err := bc.sendNotification(NTTxAdd, nil, tx); err != nil {
				return err
			}
			if err := bc.sendNotification(NTTxSave, nil, tx); err != nil {
				return err
			}
		}
	}

	return bc.sendNotification(NTBlockSave, b, nil)
}

// drainOrphans re-feeds, iteratively to a fixpoint, every orphan block
// whose missing parent is now hash.
func (bc *BlockChain) drainOrphans(hash *chainhash.Hash) error {
	queue := []chainhash.Hash{*hash}
	for len(queue) > 0 {
		h := queue[0]
		queue = queue[1:]

		pending := bc.orphans[h]
		delete(bc.orphans, h)

		for _, o := range pending {
			if _, err := bc.addLocked(o.block, o.txs); err != nil {
				return err
			}
			queue = append(queue, *o.block.Hash())
		}
	}
	return nil
}
