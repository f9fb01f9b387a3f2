// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package blockchain implements the BlockChain: block ingestion,
// validation, chain-selection (active tip, reorgs, chain-work
// comparison), and the merkle-tree / proof-of-work checks a candidate
// block must pass before it is admitted.
//
// All mutating operations are serialized onto a single goroutine draining
// a command channel, so that between suspension points, the only one
// here being a Storage round trip, all state is consistent and
// observable atomically.
package blockchain

import (
	"math/big"
	"sync"
	"time"

	"github.com/kaspoin/kaspoind/block"
	"github.com/kaspoin/kaspoind/chainhash"
	"github.com/kaspoin/kaspoind/storage"
	"github.com/pkg/errors"
)

// orphanBlock is a block buffered because its parent is not yet known.
type orphanBlock struct {
	block *block.Block
	txs   []*block.Transaction
}

// BlockChain owns the authoritative block index and the active tip.
type BlockChain struct {
	store storage.Storage
	now   func() time.Time

	subscribersMu sync.RWMutex
	subscribers   []NotificationCallback

	cmdCh chan func()
	quit  chan struct{}

	genesisHash   chainhash.Hash
	activeTip     chainhash.Hash
	activeTipWork *big.Int

	// orphans buffers blocks whose parent has not yet been seen, keyed
	// by the missing parent's hash.
	orphans map[chainhash.Hash][]*orphanBlock
}

// New constructs a BlockChain bound to the given Storage. Init must be
// called before the chain is used.
func New(store storage.Storage) *BlockChain {
	return &BlockChain{
		store:   store,
		now:     time.Now,
		cmdCh:   make(chan func()),
		quit:    make(chan struct{}),
		orphans: make(map[chainhash.Hash][]*orphanBlock),
	}
}

// run is the single goroutine that serializes every mutation of chain
// state. It is started by Init.
func (bc *BlockChain) run() {
	for {
		select {
		case cmd := <-bc.cmdCh:
			cmd()
		case <-bc.quit:
			return
		}
	}
}

// do executes fn on the chain's single processing goroutine and blocks
// until it completes.
func (bc *BlockChain) do(fn func()) {
	done := make(chan struct{})
	bc.cmdCh <- func() {
		fn()
		close(done)
	}
	<-done
}

// Init ensures the genesis block is stored and rehydrates the active tip
// from Storage. It must be called exactly once, before any other method.
// On completion the caller should treat this as the signal that chain
// state is ready and the node's network/sync machinery may start.
func (bc *BlockChain) Init(genesis *block.Block) error {
	go bc.run()

	var initErr error
	bc.do(func() {
		bc.genesisHash = *genesis.Hash()

		known, err := bc.store.KnowsBlock(genesis.Hash())
		if err != nil {
			initErr = errors.Wrap(err, "checking for genesis block")
			return
		}

		if !known {
			genesis.SetHeight(0)
			genesis.SetActive(true)
			genesis.SetChainWork(chainhash.CalcWork(genesis.Header().Bits))

			rec := &storage.BlockRecord{
				Block:     genesis,
				Height:    0,
				Active:    true,
				ChainWork: genesis.ChainWork().Bytes(),
			}
			if err := bc.store.PutBlock(rec); err != nil {
				initErr = errors.Wrap(err, "storing genesis block")
				return
			}
			for i, tx := range genesis.Transactions() {
				if err := bc.store.PutTx(tx, storage.TxRef{BlockHash: *genesis.Hash(), Index: i}); err != nil {
					initErr = errors.Wrap(err, "storing genesis transactions")
					return
				}
			}
			bc.activeTip = *genesis.Hash()
			bc.activeTipWork = genesis.ChainWork()
			return
		}

		tipHeight, err := bc.store.ActiveTipHeight()
		if err != nil {
			initErr = errors.Wrap(err, "reading active tip height")
			return
		}
		tipHash, err := bc.store.ActiveChainHashAtHeight(tipHeight)
		if err != nil {
			initErr = errors.Wrap(err, "reading active tip hash")
			return
		}
		if tipHash == nil {
			bc.activeTip = *genesis.Hash()
			bc.activeTipWork = chainhash.CalcWork(genesis.Header().Bits)
			return
		}
		rec, err := bc.store.GetBlockByHash(tipHash)
		if err != nil {
			initErr = errors.Wrap(err, "reading active tip block")
			return
		}
		bc.activeTip = *tipHash
		bc.activeTipWork = new(big.Int).SetBytes(rec.ChainWork)
	})
	return initErr
}

// Shutdown stops the chain's processing goroutine.
func (bc *BlockChain) Shutdown() {
	close(bc.quit)
}

// ActiveTip returns the hash of the current active tip.
func (bc *BlockChain) ActiveTip() chainhash.Hash {
	var tip chainhash.Hash
	bc.do(func() { tip = bc.activeTip })
	return tip
}

// GetBlockByHash returns the stored block for hash, or nil if unknown.
func (bc *BlockChain) GetBlockByHash(hash *chainhash.Hash) (*block.Block, error) {
	var b *block.Block
	var err error
	bc.do(func() {
		var rec *storage.BlockRecord
		rec, err = bc.store.GetBlockByHash(hash)
		if rec != nil {
			b = rec.Block
		}
	})
	return b, err
}

// GetBlockByLocator returns the first hash in the ordered locator list
// that names a block on the active chain, else the genesis block's hash.
func (bc *BlockChain) GetBlockByLocator(locator []*chainhash.Hash) (*chainhash.Hash, error) {
	var result *chainhash.Hash
	var err error
	bc.do(func() {
		for _, candidate := range locator {
			rec, e := bc.store.GetBlockByHash(candidate)
			if e != nil {
				err = e
				return
			}
			if rec != nil && rec.Active {
				h := *candidate
				result = &h
				return
			}
		}
		h := bc.genesisHash
		result = &h
	})
	return result, err
}

