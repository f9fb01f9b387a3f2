// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package storage

import (
	"sync"

	"github.com/kaspoin/kaspoind/block"
	"github.com/kaspoin/kaspoind/chainhash"
)

// MemStorage is an in-memory Storage implementation used by tests. It is
// not considered safe for production use.
type MemStorage struct {
	mu          sync.Mutex
	blocks      map[chainhash.Hash]*BlockRecord
	byPrev      map[chainhash.Hash][]chainhash.Hash
	txs         map[chainhash.Hash]*block.Transaction
	txRefs      map[chainhash.Hash]TxRef
	activeByHgt map[int32]chainhash.Hash
	tipHeight   int32
}

// NewMemStorage returns an empty in-memory Storage.
func NewMemStorage() *MemStorage {
	return &MemStorage{
		blocks:      make(map[chainhash.Hash]*BlockRecord),
		byPrev:      make(map[chainhash.Hash][]chainhash.Hash),
		txs:         make(map[chainhash.Hash]*block.Transaction),
		txRefs:      make(map[chainhash.Hash]TxRef),
		activeByHgt: make(map[int32]chainhash.Hash),
		tipHeight:   -1,
	}
}

// PutBlock stores a block record and updates the by-prev and by-height
// indices.
func (s *MemStorage) PutBlock(rec *BlockRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	hash := *rec.Block.Hash()
	s.blocks[hash] = rec
	prev := *rec.Block.PrevHash()
	s.byPrev[prev] = append(s.byPrev[prev], hash)
	if rec.Active {
		s.activeByHgt[rec.Height] = hash
		if rec.Height > s.tipHeight {
			s.tipHeight = rec.Height
		}
	} else if cur, ok := s.activeByHgt[rec.Height]; ok && cur == hash {
		delete(s.activeByHgt, rec.Height)
		for s.tipHeight >= 0 {
			if _, ok := s.activeByHgt[s.tipHeight]; ok {
				break
			}
			s.tipHeight--
		}
	}
	return nil
}

// GetBlockByHash returns the stored block record for hash, or (nil, nil)
// if unknown.
func (s *MemStorage) GetBlockByHash(hash *chainhash.Hash) (*BlockRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.blocks[*hash], nil
}

// GetBlocksByPrev returns every stored block whose PrevHash equals hash.
func (s *MemStorage) GetBlocksByPrev(hash *chainhash.Hash) ([]*BlockRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	hashes := s.byPrev[*hash]
	recs := make([]*BlockRecord, 0, len(hashes))
	for _, h := range hashes {
		recs = append(recs, s.blocks[h])
	}
	return recs, nil
}

// KnowsBlock reports whether a block with the given hash is stored.
func (s *MemStorage) KnowsBlock(hash *chainhash.Hash) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.blocks[*hash]
	return ok, nil
}

// PutTx durably stores a transaction along with the reference to the
// block that confirmed it.
func (s *MemStorage) PutTx(tx *block.Transaction, ref TxRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx.SetContainingBlock(&ref.BlockHash, ref.Index)
	s.txs[*tx.Hash()] = tx
	s.txRefs[*tx.Hash()] = ref
	return nil
}

// GetTx returns the stored transaction for hash, or (nil, nil) if unknown.
func (s *MemStorage) GetTx(hash *chainhash.Hash) (*block.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.txs[*hash], nil
}

// ActiveChainHashAtHeight returns the hash of the active-chain block at
// the given height.
func (s *MemStorage) ActiveChainHashAtHeight(height int32) (*chainhash.Hash, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.activeByHgt[height]
	if !ok {
		return nil, nil
	}
	return &h, nil
}

// ActiveTipHeight returns the height of the current active tip, or -1 if
// no blocks are stored.
func (s *MemStorage) ActiveTipHeight() (int32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tipHeight, nil
}
