// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package txrelay periodically re-announces every transaction the mempool
// has accepted and not yet confirmed, so a transaction whose original inv
// announcement was dropped or missed still eventually reaches the rest of
// the network. It does not distinguish transactions the node submitted
// itself from ones relayed to it by peers.
package txrelay

import (
	"sync"
	"time"

	"github.com/kaspoin/kaspoind/block"
	"github.com/kaspoin/kaspoind/chainhash"
	"github.com/kaspoin/kaspoind/logs"
	"github.com/kaspoin/kaspoind/mempool"
)

var log = logs.PoolLog()

const rebroadcastInterval = 30 * time.Second

// Relay tracks transactions worth periodically re-announcing and drives
// the ticker that does so.
type Relay struct {
	pool *mempool.TransactionStore

	// broadcast is invoked with each hash due for re-announcement.
	broadcast func(hash *chainhash.Hash)

	mu      sync.Mutex
	pending map[chainhash.Hash]struct{}

	quit chan struct{}
}

// New returns a relay driving broadcast for transactions still
// unconfirmed in pool.
func New(pool *mempool.TransactionStore, broadcast func(hash *chainhash.Hash)) *Relay {
	return &Relay{
		pool:      pool,
		broadcast: broadcast,
		pending:   make(map[chainhash.Hash]struct{}),
		quit:      make(chan struct{}),
	}
}

// Start subscribes to the pool's accept/cancel events and launches the
// rebroadcast ticker.
func (r *Relay) Start() {
	r.pool.Subscribe(r.onPoolEvent)
	go r.run()
}

// Stop halts the rebroadcast ticker.
func (r *Relay) Stop() {
	close(r.quit)
}

func (r *Relay) onPoolEvent(evt mempool.Event) {
	if evt.Tx == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	switch evt.Type {
	case mempool.EventTxNotify:
		r.pending[*evt.Tx.Hash()] = struct{}{}
	case mempool.EventTxCancel:
		delete(r.pending, *evt.Tx.Hash())
	}
}

func (r *Relay) run() {
	ticker := time.NewTicker(rebroadcastInterval)
	defer ticker.Stop()
	for {
		select {
		case <-r.quit:
			return
		case <-ticker.C:
			r.rebroadcast()
		}
	}
}

func (r *Relay) rebroadcast() {
	hashes := r.snapshot()
	for i := range hashes {
		h := hashes[i]
		if tx, found := r.pool.Get(&h, nil); found {
			r.announce(tx)
		}
	}
}

func (r *Relay) snapshot() []chainhash.Hash {
	r.mu.Lock()
	defer r.mu.Unlock()
	hashes := make([]chainhash.Hash, 0, len(r.pending))
	for h := range r.pending {
		hashes = append(hashes, h)
	}
	return hashes
}

func (r *Relay) announce(tx *block.Transaction) {
	log.Debugf("rebroadcasting transaction %s", tx.Hash())
	r.broadcast(tx.Hash())
}
