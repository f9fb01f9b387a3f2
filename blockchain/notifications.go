// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"fmt"

	"github.com/kaspoin/kaspoind/block"
)

// NotificationType represents the type of a notification message emitted
// by the block chain.
type NotificationType int

// Constants for the type of a notification message: blockAdd, blockSave,
// blockRevoke, txAdd, txSave, txRevoke.
const (
	// NTBlockAdd fires once a candidate block has passed validation and
	// its parent and height/chain-work have been resolved, but before
	// it is persisted. A listener returning an error from its callback
	// aborts admission of the block.
	NTBlockAdd NotificationType = iota

	// NTBlockSave fires once a block (and, if newly active, its
	// transactions) has been durably persisted.
	NTBlockSave

	// NTBlockRevoke fires for each block demoted from the active chain
	// during a reorg, after its contained transactions' NTTxRevoke has
	// fired.
	NTBlockRevoke

	// NTTxAdd fires once per transaction as its containing block
	// becomes (or remains) active.
	NTTxAdd

	// NTTxSave fires once per transaction once it has been durably
	// persisted alongside its containing block.
	NTTxSave

	// NTTxRevoke fires once per transaction as its containing block is
	// demoted from the active chain during a reorg.
	NTTxRevoke
)

var notificationTypeStrings = map[NotificationType]string{
	NTBlockAdd:    "NTBlockAdd",
	NTBlockSave:   "NTBlockSave",
	NTBlockRevoke: "NTBlockRevoke",
	NTTxAdd:       "NTTxAdd",
	NTTxSave:      "NTTxSave",
	NTTxRevoke:    "NTTxRevoke",
}

// String returns the NotificationType in human-readable form.
func (n NotificationType) String() string {
	if s, ok := notificationTypeStrings[n]; ok {
		return s
	}
	return fmt.Sprintf("Unknown Notification Type (%d)", int(n))
}

// Notification is the typed payload delivered to subscribers. Exactly one
// of the Block/Tx fields is populated, depending on Type.
type Notification struct {
	Type  NotificationType
	Block *block.Block
	Tx    *block.Transaction
}

// NotificationCallback is used for a caller to provide a callback for
// notifications about block chain events. A callback responding to
// NTBlockAdd may return a non-nil error to abort admission of the block
// currently being processed.
type NotificationCallback func(*Notification) error

// BlockAddedData groups the transactions a candidate block contains. It
// is not attached to NTBlockAdd notifications: a Notification carries only
// the block itself, whose transactions Block.Transactions returns.
type BlockAddedData struct {
	Txs []*block.Transaction
}

// Subscribe registers a callback to be invoked for every notification the
// block chain emits. Callbacks run synchronously on the block chain's
// single processing goroutine and so observe a consistent, non-
// interleaved view of a single block's event bracket.
func (bc *BlockChain) Subscribe(callback NotificationCallback) {
	bc.subscribersMu.Lock()
	defer bc.subscribersMu.Unlock()
	bc.subscribers = append(bc.subscribers, callback)
}

func (bc *BlockChain) sendNotification(typ NotificationType, b *block.Block, tx *block.Transaction) error {
	n := &Notification{Type: typ, Block: b, Tx: tx}

	bc.subscribersMu.RLock()
	subs := make([]NotificationCallback, len(bc.subscribers))
	copy(subs, bc.subscribers)
	bc.subscribersMu.RUnlock()

	for _, callback := range subs {
		if err := callback(n); err != nil {
			return err
		}
	}
	return nil
}
