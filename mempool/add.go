// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"github.com/kaspoin/kaspoind/block"
	"github.com/kaspoin/kaspoind/chainhash"
)

// Add submits tx to the pool. If its hash is already known, cb is
// enqueued or invoked immediately depending on the existing entry's
// state and Add reports false. Synchronous rejections (coinbase,
// non-standard) fire cb immediately, create no entry, and Add reports
// false. Otherwise a new entry is created and begins asynchronous
// verification; Add reports true.
func (ts *TransactionStore) Add(tx *block.Transaction, cb AddCallback) (wasNew bool) {
	ts.do(func() {
		wasNew = ts.addLocked(tx, cb)
	})
	return wasNew
}

func (ts *TransactionStore) addLocked(tx *block.Transaction, cb AddCallback) bool {
	h := tx.Hash()
	if e, ok := ts.entries[*h]; ok {
		switch e.state {
		case stateAccepted:
			if cb != nil {
				cb(nil, e.tx)
			}
		case stateVerifying, stateOrphan:
			if cb != nil {
				e.waiters = append(e.waiters, cb)
			}
		}
		return false
	}

	if tx.IsCoinBase() {
		if cb != nil {
			cb(ruleError(ErrCoinbase, "coinbase transaction submitted directly to the pool"), tx)
		}
		return false
	}
	if !ts.cfg.StandardnessChecker.IsStandard(tx) {
		if cb != nil {
			cb(ruleError(ErrNonStandard, "transaction failed the standardness check"), tx)
		}
		return false
	}

	tx.SetFirstSeen(ts.cfg.Now())
	e := &entry{state: stateVerifying, tx: tx}
	if cb != nil {
		e.waiters = append(e.waiters, cb)
	}
	ts.entries[*h] = e
	ts.verifyAsync(tx, ts.handleVerifyResult)
	return true
}

// handleVerifyResult runs on the actor goroutine (posted there by
// verifyAsync) and applies the outcome of one verification round to the
// entry it belongs to: missing-source failures demote the entry to an
// orphan awaiting its source, other failures drop the entry and notify
// its waiters, and success promotes it to accepted, notifies waiters and
// subscribers, and re-feeds any orphans that were waiting on this hash.
func (ts *TransactionStore) handleVerifyResult(tx *block.Transaction, err error) {
	h := tx.Hash()
	e, ok := ts.entries[*h]
	if !ok {
		return
	}

	if ruleErr, isRuleErr := err.(*RuleError); isRuleErr && ruleErr.ErrorCode == ErrMissingSource {
		log.Debugf("Transaction %s is an orphan, missing source %s", h, ruleErr.MissingTxHash)
		e.state = stateOrphan
		e.missing = *ruleErr.MissingTxHash
		ts.orphansByMissing[e.missing] = append(ts.orphansByMissing[e.missing], *h)
		waiters := e.waiters
		e.waiters = nil
		for _, w := range waiters {
			w(err, tx)
		}
		return
	}

	if err != nil {
		log.Debugf("Rejected transaction %s: %s", h, err)
		waiters := e.waiters
		delete(ts.entries, *h)
		for _, w := range waiters {
			w(err, tx)
		}
		return
	}

	log.Debugf("Accepted transaction %s into the pool", h)
	e.state = stateAccepted
	waiters := e.waiters
	e.waiters = nil
	for _, w := range waiters {
		w(nil, tx)
	}
	ts.emit(Event{Type: EventTxNotify, Tx: tx})
	for _, addr := range addressesOf(tx) {
		ts.emitAddress(addr, Event{Type: EventTxNotify, Tx: tx})
	}

	if e.removeOnAccept {
		ts.evict(h, e)
		return
	}

	ts.promoteOrphans(h)
}

// promoteOrphans re-runs verification for every orphan entry waiting on
// hash, now that its source transaction has been accepted.
func (ts *TransactionStore) promoteOrphans(hash *chainhash.Hash) {
	pending := ts.orphansByMissing[*hash]
	delete(ts.orphansByMissing, *hash)
	for _, oh := range pending {
		ohCopy := oh
		oe, ok := ts.entries[ohCopy]
		if !ok || oe.state != stateOrphan {
			continue
		}
		oe.state = stateVerifying
		ts.verifyAsync(oe.tx, ts.handleVerifyResult)
	}
}
