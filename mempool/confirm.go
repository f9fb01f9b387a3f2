// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"github.com/kaspoin/kaspoind/block"
	"github.com/kaspoin/kaspoind/chainhash"
	"github.com/kaspoin/kaspoind/wire"
)

// ConfirmTransaction removes tx from the pool because it has been mined
// into the active chain, and evicts every pool entry that conflicts with
// it (an input spending one of the same outpoints), recursively
// including anything that in turn depended on an evicted entry.
func (ts *TransactionStore) ConfirmTransaction(tx *block.Transaction) {
	ts.do(func() {
		ts.confirmLocked(tx)
	})
}

func (ts *TransactionStore) confirmLocked(tx *block.Transaction) {
	h := tx.Hash()
	if e, ok := ts.entries[*h]; ok {
		switch e.state {
		case stateAccepted:
			ts.evict(h, e)
		default:
			delete(ts.entries, *h)
		}
	}

	spent := outpointsOf(tx)
	ts.evictConflicting(spent)
}

func outpointsOf(tx *block.Transaction) map[wire.Outpoint]struct{} {
	m := make(map[wire.Outpoint]struct{}, len(tx.MsgTx().TxIn))
	for _, in := range tx.MsgTx().TxIn {
		m[in.PreviousOutpoint] = struct{}{}
	}
	return m
}

// evictConflicting drops every accepted entry whose inputs touch an
// outpoint in spent, then folds each evicted entry's own outputs into
// spent and repeats until a pass finds nothing new. An evicted entry's
// outputs will never be created, so anything in the pool spending them
// is evicted in turn, carrying the eviction through a whole chain of
// dependent mempool transactions.
func (ts *TransactionStore) evictConflicting(spent map[wire.Outpoint]struct{}) {
	for {
		var found []chainhash.Hash
		for hash, e := range ts.entries {
			if e.state != stateAccepted {
				continue
			}
			for _, in := range e.tx.MsgTx().TxIn {
				if _, conflict := spent[in.PreviousOutpoint]; conflict {
					found = append(found, hash)
					break
				}
			}
		}
		if len(found) == 0 {
			return
		}
		for i := range found {
			h := found[i]
			e := ts.entries[h]
			ts.evict(&h, e)
			for idx := range e.tx.MsgTx().TxOut {
				spent[wire.Outpoint{Hash: h, Index: uint32(idx)}] = struct{}{}
			}
		}
	}
}
