// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"testing"
	"time"

	"github.com/kaspoin/kaspoind/block"
	"github.com/kaspoin/kaspoind/chainhash"
	"github.com/kaspoin/kaspoind/storage"
	"github.com/kaspoin/kaspoind/wire"
)

// acceptVerifier treats every input as valid.
type acceptVerifier struct{}

func (acceptVerifier) VerifyInput(tx *block.Transaction, inputIndex int, prevTx *block.Transaction) error {
	return nil
}

// blockingVerifier blocks every VerifyInput call until release is closed,
// letting a test pin a verification in flight for as long as it needs.
type blockingVerifier struct {
	release chan struct{}
}

func (v *blockingVerifier) VerifyInput(tx *block.Transaction, inputIndex int, prevTx *block.Transaction) error {
	<-v.release
	return nil
}

// fundingTx is a standalone coinbase-shaped transaction used only as a
// source of spendable outpoints already resident in Storage, simulating
// a confirmed ancestor.
func fundingTx(extraNonce byte) *block.Transaction {
	msgTx := &wire.MsgTx{
		Version: 1,
		TxIn: []*wire.TxIn{{
			PreviousOutpoint: wire.Outpoint{Index: 0xffffffff},
			SignatureScript:  []byte{extraNonce},
			Sequence:         wire.MaxTxInSequenceNum,
		}},
		TxOut: []*wire.TxOut{{Value: 10, PkScript: []byte("payee")}},
	}
	return block.NewTransaction(msgTx)
}

// spendTx builds a non-coinbase transaction spending outpoint src:index.
func spendTx(src chainhash.Hash, index uint32, pkScript []byte) *block.Transaction {
	msgTx := &wire.MsgTx{
		Version: 1,
		TxIn: []*wire.TxIn{{
			PreviousOutpoint: wire.Outpoint{Hash: src, Index: index},
			Sequence:         wire.MaxTxInSequenceNum,
		}},
		TxOut: []*wire.TxOut{{Value: 5, PkScript: pkScript}},
	}
	return block.NewTransaction(msgTx)
}

func newTestStore(t *testing.T, verifier ScriptVerifier, store storage.Storage) *TransactionStore {
	t.Helper()
	ts := New(Config{
		Storage:        store,
		ScriptVerifier: verifier,
		Now:            func() time.Time { return time.Unix(0, 0) },
	})
	ts.Start()
	t.Cleanup(ts.Shutdown)
	return ts
}

func TestAddDedupesInFlightSubmission(t *testing.T) {
	store := storage.NewMemStorage()
	funding := fundingTx(1)
	if err := store.PutTx(funding, storage.TxRef{}); err != nil {
		t.Fatalf("seeding funding tx: %s", err)
	}

	verifier := &blockingVerifier{release: make(chan struct{})}
	ts := newTestStore(t, verifier, store)

	tx := spendTx(*funding.Hash(), 0, []byte("payee"))

	done := make(chan struct{}, 2)
	cb := func(err error, tx *block.Transaction) { done <- struct{}{} }

	wasNew1 := ts.Add(tx, cb)
	wasNew2 := ts.Add(tx, cb)

	if !wasNew1 {
		t.Fatalf("first Add reported wasNew=false")
	}
	if wasNew2 {
		t.Fatalf("second Add for the same hash reported wasNew=true, expected dedup")
	}
	if !ts.IsKnown(tx.Hash()) {
		t.Fatalf("tx not known while verification is in flight")
	}

	close(verifier.release)
	<-done
	<-done

	got, found := ts.Get(tx.Hash(), nil)
	if !found {
		t.Fatalf("tx not accepted after verification completed")
	}
	if got.Hash().String() != tx.Hash().String() {
		t.Fatalf("Get returned a different transaction")
	}
}

func TestOrphanTransactionPromotedOnceSourceArrives(t *testing.T) {
	store := storage.NewMemStorage()
	funding := fundingTx(2)
	if err := store.PutTx(funding, storage.TxRef{}); err != nil {
		t.Fatalf("seeding funding tx: %s", err)
	}

	ts := newTestStore(t, acceptVerifier{}, store)

	mid := spendTx(*funding.Hash(), 0, []byte("mid-payee"))
	child := spendTx(*mid.Hash(), 0, []byte("child-payee"))

	// The original submitter is told about the missing source immediately
	// rather than being left hanging on a parent that may never arrive.
	firstDone := make(chan error, 1)
	ts.Add(child, func(err error, tx *block.Transaction) { firstDone <- err })

	select {
	case err := <-firstDone:
		ruleErr, ok := err.(*RuleError)
		if !ok || ruleErr.ErrorCode != ErrMissingSource {
			t.Fatalf("child callback error = %v, want an ErrMissingSource RuleError", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("child tx's callback was never invoked for its missing source")
	}

	if !ts.IsKnown(child.Hash()) {
		t.Fatalf("orphan transaction should still be known")
	}
	if _, found := ts.Get(child.Hash(), nil); found {
		t.Fatalf("orphan transaction should not be immediately gettable as accepted")
	}

	// A fresh subscription registered while the entry sits in the orphan
	// pool gets its own, independent notification once promotion actually
	// succeeds; it does not share the first callback's already-fired slot.
	promotedDone := make(chan error, 1)
	ts.Add(child, func(err error, tx *block.Transaction) { promotedDone <- err })

	midDone := make(chan error, 1)
	ts.Add(mid, func(err error, tx *block.Transaction) { midDone <- err })
	if err := <-midDone; err != nil {
		t.Fatalf("mid tx rejected: %s", err)
	}

	select {
	case err := <-promotedDone:
		if err != nil {
			t.Fatalf("child tx rejected after promotion: %s", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("child tx was never promoted out of the orphan pool")
	}

	if _, found := ts.Get(child.Hash(), nil); !found {
		t.Fatalf("child tx should be accepted after its source was accepted")
	}
}

func TestConfirmEvictsConflictingAndDescendantTransactions(t *testing.T) {
	store := storage.NewMemStorage()
	funding := fundingTx(3)
	if err := store.PutTx(funding, storage.TxRef{}); err != nil {
		t.Fatalf("seeding funding tx: %s", err)
	}

	ts := newTestStore(t, acceptVerifier{}, store)

	txA := spendTx(*funding.Hash(), 0, []byte("a-payee"))
	addAndWait(t, ts, txA)

	txChild := spendTx(*txA.Hash(), 0, []byte("child-payee"))
	addAndWait(t, ts, txChild)

	if _, found := ts.Get(txA.Hash(), nil); !found {
		t.Fatalf("txA should be accepted before confirmation")
	}
	if _, found := ts.Get(txChild.Hash(), nil); !found {
		t.Fatalf("txChild should be accepted before confirmation")
	}

	// confirmingTx spends the same funding output as txA: it is what
	// actually got mined, so txA double-spends it and must be evicted,
	// along with txChild which only exists by spending txA's output.
	confirmingTx := spendTx(*funding.Hash(), 0, []byte("winner-payee"))
	ts.ConfirmTransaction(confirmingTx)

	if ts.IsKnown(txA.Hash()) {
		t.Fatalf("txA should have been evicted as a conflicting double-spend")
	}
	if ts.IsKnown(txChild.Hash()) {
		t.Fatalf("txChild should have been evicted transitively with its parent txA")
	}
}

func addAndWait(t *testing.T, ts *TransactionStore, tx *block.Transaction) {
	t.Helper()
	done := make(chan error, 1)
	ts.Add(tx, func(err error, tx *block.Transaction) { done <- err })
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Add(%s): %s", tx.Hash(), err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Add(%s) never completed", tx.Hash())
	}
}
