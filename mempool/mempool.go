// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"sync"
	"time"

	"github.com/kaspoin/kaspoind/block"
	"github.com/kaspoin/kaspoind/chainhash"
	"github.com/kaspoin/kaspoind/logs"
	"github.com/kaspoin/kaspoind/storage"
	"github.com/kaspoin/kaspoind/wire"
	"golang.org/x/sync/errgroup"
)

var log = logs.PoolLog()

// EventType is the type of notification TransactionStore emits.
type EventType int

const (
	// EventTxNotify fires once a transaction is accepted into the pool.
	EventTxNotify EventType = iota

	// EventTxCancel fires once an accepted transaction leaves the pool,
	// either evicted or confirmed.
	EventTxCancel
)

// Event is the typed payload delivered to subscribers.
type Event struct {
	Type EventType
	Tx   *block.Transaction
}

// EventListener receives pool-wide events. Per-address listeners are
// registered separately via SubscribeAddress.
type EventListener func(Event)

// Config bundles TransactionStore's collaborators.
type Config struct {
	Storage             storage.Storage
	ScriptVerifier       ScriptVerifier
	StandardnessChecker  StandardnessChecker
	// LiveAccounting enables the per-address index and its
	// txNotify:<addr>/txCancel:<addr> events.
	LiveAccounting bool
	// Now stubs the wall clock for tests; defaults to time.Now.
	Now func() time.Time
}

// TransactionStore is the mempool: a map from transaction hash to a
// tri-state entry, with orphan indices and per-address fan-out.
type TransactionStore struct {
	cfg Config

	cmdCh chan func()
	quit  chan struct{}

	entries map[chainhash.Hash]*entry

	// orphansByMissing indexes orphan transactions by the hash of the
	// source transaction they're waiting on; every value here must
	// appear as a key in entries tagged stateOrphan.
	orphansByMissing map[chainhash.Hash][]chainhash.Hash

	subscribersMu sync.RWMutex
	subscribers   []EventListener
	addrSubs      map[string][]EventListener

	wg    sync.WaitGroup
	group errgroup.Group
}

// maxConcurrentVerifications bounds the script-verification worker pool.
const maxConcurrentVerifications = 16

// New constructs an empty TransactionStore.
func New(cfg Config) *TransactionStore {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.StandardnessChecker == nil {
		cfg.StandardnessChecker = AcceptAllStandardnessChecker{}
	}
	ts := &TransactionStore{
		cfg:              cfg,
		cmdCh:            make(chan func()),
		quit:             make(chan struct{}),
		entries:          make(map[chainhash.Hash]*entry),
		orphansByMissing: make(map[chainhash.Hash][]chainhash.Hash),
		addrSubs:         make(map[string][]EventListener),
	}
	ts.group.SetLimit(maxConcurrentVerifications)
	return ts
}

// Start launches the pool's single processing goroutine. Must be called
// before Add/Get/Remove.
func (ts *TransactionStore) Start() {
	go ts.run()
}

// Shutdown stops the processing goroutine and waits for any in-flight
// verification goroutines to finish; a result that is ready only after
// the processing goroutine has stopped is discarded.
func (ts *TransactionStore) Shutdown() {
	close(ts.quit)
	ts.wg.Wait()
}

func (ts *TransactionStore) run() {
	for {
		select {
		case cmd := <-ts.cmdCh:
			cmd()
		case <-ts.quit:
			return
		}
	}
}

func (ts *TransactionStore) do(fn func()) {
	done := make(chan struct{})
	ts.cmdCh <- func() {
		fn()
		close(done)
	}
	<-done
}

// Subscribe registers a listener for every pool-wide event.
func (ts *TransactionStore) Subscribe(l EventListener) {
	ts.subscribersMu.Lock()
	defer ts.subscribersMu.Unlock()
	ts.subscribers = append(ts.subscribers, l)
}

// SubscribeAddress registers a listener for events affecting transactions
// touching the given address, active only when Config.LiveAccounting is
// set.
func (ts *TransactionStore) SubscribeAddress(addr string, l EventListener) {
	ts.subscribersMu.Lock()
	defer ts.subscribersMu.Unlock()
	ts.addrSubs[addr] = append(ts.addrSubs[addr], l)
}

func (ts *TransactionStore) emit(evt Event) {
	ts.subscribersMu.RLock()
	subs := make([]EventListener, len(ts.subscribers))
	copy(subs, ts.subscribers)
	ts.subscribersMu.RUnlock()
	for _, l := range subs {
		l(evt)
	}
}

func (ts *TransactionStore) emitAddress(addr string, evt Event) {
	if !ts.cfg.LiveAccounting {
		return
	}
	ts.subscribersMu.RLock()
	subs := make([]EventListener, len(ts.addrSubs[addr]))
	copy(subs, ts.addrSubs[addr])
	ts.subscribersMu.RUnlock()
	for _, l := range subs {
		l(evt)
	}
}

// addressesOf derives the set of addresses touched by tx's outputs, used
// to fan out per-address events when live accounting is enabled. Full
// address decoding belongs to the txscript package; this returns the raw
// pkScript bytes as a stand-in key space when no richer decoding is
// wired in.
func addressesOf(tx *block.Transaction) []string {
	addrs := make([]string, 0, len(tx.MsgTx().TxOut))
	for _, out := range tx.MsgTx().TxOut {
		if len(out.PkScript) == 0 {
			continue
		}
		addrs = append(addrs, string(out.PkScript))
	}
	return addrs
}

// IsKnown reports whether h is in any of the three states: verifying,
// accepted, or orphan. A caller testing "have I seen this inv?" wants
// this superset.
func (ts *TransactionStore) IsKnown(h *chainhash.Hash) bool {
	var known bool
	ts.do(func() {
		_, known = ts.entries[*h]
	})
	return known
}

// Get returns the accepted transaction for h synchronously if present. If
// h is currently verifying, cb is enqueued onto its waiter queue instead
// and (nil, false) is returned. If h is unknown, (nil, false) is returned
// and cb is not retained.
func (ts *TransactionStore) Get(h *chainhash.Hash, cb AddCallback) (tx *block.Transaction, found bool) {
	ts.do(func() {
		e, ok := ts.entries[*h]
		if !ok {
			return
		}
		switch e.state {
		case stateAccepted:
			tx, found = e.tx, true
		case stateVerifying:
			if cb != nil {
				e.waiters = append(e.waiters, cb)
			}
		}
	})
	return tx, found
}

// Remove evicts h from the pool. If h is currently verifying, the removal
// is deferred until verification completes and only honored if it
// succeeds; a failed verification already removes the entry itself.
func (ts *TransactionStore) Remove(h *chainhash.Hash) {
	ts.do(func() {
		e, ok := ts.entries[*h]
		if !ok {
			return
		}
		switch e.state {
		case stateVerifying:
			e.removeOnAccept = true
		case stateAccepted:
			ts.evict(h, e)
		}
	})
}

// evict drops an accepted entry and emits txCancel for it and for every
// address it touches. Caller must hold the actor goroutine (called only
// from within do()).
func (ts *TransactionStore) evict(h *chainhash.Hash, e *entry) {
	delete(ts.entries, *h)
	ts.emit(Event{Type: EventTxCancel, Tx: e.tx})
	for _, addr := range addressesOf(e.tx) {
		ts.emitAddress(addr, Event{Type: EventTxCancel, Tx: e.tx})
	}
}

// verifyAsync snapshots the currently-accepted entries (on the actor
// goroutine, so the snapshot is consistent) and then runs verification on
// a worker drawn from the pool's bounded concurrency group, posting the
// result back onto the actor goroutine via onDone. Distinct hashes verify
// concurrently; Add only ever calls verifyAsync once per hash, so two
// Add calls for the same hash share a single verification.
func (ts *TransactionStore) verifyAsync(tx *block.Transaction, onDone func(*block.Transaction, error)) {
	snapshot := make(map[chainhash.Hash]*block.Transaction, len(ts.entries))
	for h, e := range ts.entries {
		if e.state == stateAccepted {
			snapshot[h] = e.tx
		}
	}

	ts.wg.Add(1)
	ts.group.Go(func() error {
		defer ts.wg.Done()
		err := ts.verify(tx, snapshot)
		select {
		case ts.cmdCh <- func() { onDone(tx, err) }:
		case <-ts.quit:
		}
		return nil
	})
}

// verify resolves every input's outpoint against the supplied snapshot of
// accepted mempool entries and Storage, then runs script verification per
// input. It does not touch pool state and is safe to run concurrently
// with other verifications for distinct hashes.
func (ts *TransactionStore) verify(tx *block.Transaction, accepted map[chainhash.Hash]*block.Transaction) error {
	for i, in := range tx.MsgTx().TxIn {
		prevTx, err := ts.resolveOutpoint(&in.PreviousOutpoint, accepted)
		if err != nil {
			return err
		}
		if prevTx == nil {
			return missingSourceError("referenced previous transaction is unknown", &in.PreviousOutpoint.Hash)
		}
		if ts.cfg.ScriptVerifier != nil {
			if err := ts.cfg.ScriptVerifier.VerifyInput(tx, i, prevTx); err != nil {
				return err
			}
		}
	}
	return nil
}

// resolveOutpoint resolves an outpoint's source transaction against the
// accepted-entries snapshot first, then Storage.
func (ts *TransactionStore) resolveOutpoint(op *wire.Outpoint, accepted map[chainhash.Hash]*block.Transaction) (*block.Transaction, error) {
	if tx, ok := accepted[op.Hash]; ok {
		return tx, nil
	}
	return ts.cfg.Storage.GetTx(&op.Hash)
}
