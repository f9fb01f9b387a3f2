// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package node

import (
	"net"
	"testing"
	"time"

	"github.com/kaspoin/kaspoind/block"
	"github.com/kaspoin/kaspoind/blockchain"
	"github.com/kaspoin/kaspoind/chainhash"
	"github.com/kaspoin/kaspoind/mempool"
	"github.com/kaspoin/kaspoind/peer"
	"github.com/kaspoin/kaspoind/storage"
	"github.com/kaspoin/kaspoind/wire"
)

const easyBits = 0x207fffff

func coinbaseTx(extraNonce byte) *wire.MsgTx {
	return &wire.MsgTx{
		Version: 1,
		TxIn: []*wire.TxIn{{
			PreviousOutpoint: wire.Outpoint{Index: 0xffffffff},
			SignatureScript:  []byte{extraNonce},
			Sequence:         wire.MaxTxInSequenceNum,
		}},
		TxOut: []*wire.TxOut{{Value: 0, PkScript: []byte("payee")}},
	}
}

func makeBlock(prevHash chainhash.Hash, extraNonce byte, ts time.Time) *block.Block {
	cb := coinbaseTx(extraNonce)
	cbHash := cb.TxHash()
	merkle := block.CalcMerkleRoot([]*chainhash.Hash{&cbHash})

	msgBlock := &wire.MsgBlock{
		Header: wire.BlockHeader{
			Version:    1,
			PrevBlock:  prevHash,
			MerkleRoot: merkle,
			Timestamp:  ts,
			Bits:       easyBits,
		},
		Transactions: []*wire.MsgTx{cb},
	}
	// Step the nonce until the header hash meets the easyBits target.
	target := chainhash.CompactToBig(easyBits)
	for {
		h := msgBlock.Header.BlockHash()
		if chainhash.HashToBig(&h).Cmp(target) <= 0 {
			break
		}
		msgBlock.Header.Nonce++
	}
	return block.NewBlock(msgBlock)
}

func newTestNode(t *testing.T) (*Node, *blockchain.BlockChain, *mempool.TransactionStore) {
	t.Helper()
	chain := blockchain.New(storage.NewMemStorage())
	genesis := blockchain.NewGenesisBlock(blockchain.DefaultGenesisParams)
	if err := chain.Init(genesis); err != nil {
		t.Fatalf("chain.Init: %s", err)
	}

	pool := mempool.New(mempool.Config{Storage: storage.NewMemStorage()})
	pool.Start()

	n := New(chain, pool)
	n.Init()

	t.Cleanup(func() {
		n.Shutdown()
		pool.Shutdown()
		chain.Shutdown()
	})
	return n, chain, pool
}

// newPipePeer returns a Peer backed by one end of an in-memory pipe and
// the other end, so a test can observe whatever the node queues for it.
func newPipePeer(t *testing.T) (*peer.Peer, net.Conn) {
	t.Helper()
	connA, connB := net.Pipe()
	p := peer.New(connA, false)
	p.Start()
	t.Cleanup(p.Disconnect)
	return p, connB
}

func readMessage(t *testing.T, conn net.Conn) wire.Message {
	t.Helper()
	type result struct {
		msg wire.Message
		err error
	}
	ch := make(chan result, 1)
	go func() {
		msg, err := wire.ReadMessage(conn)
		ch <- result{msg, err}
	}()
	select {
	case r := <-ch:
		if r.err != nil {
			t.Fatalf("reading message: %s", r.err)
		}
		return r.msg
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for a message")
		return nil
	}
}

func TestHandleInvRequestsOnlyUnknownItems(t *testing.T) {
	n, chain, _ := newTestNode(t)
	p, remote := newPipePeer(t)

	genesisHash := chain.ActiveTip()
	unknownBlockHash := chainhash.Hash{0xaa}
	unknownTxHash := chainhash.Hash{0xbb}

	inv := wire.NewMsgInv()
	mustAddInv(t, inv, wire.NewInvVect(wire.InvTypeBlock, &genesisHash))
	mustAddInv(t, inv, wire.NewInvVect(wire.InvTypeBlock, &unknownBlockHash))
	mustAddInv(t, inv, wire.NewInvVect(wire.InvTypeTx, &unknownTxHash))

	if err := n.HandleMessage(p, inv); err != nil {
		t.Fatalf("HandleMessage: %s", err)
	}

	msg := readMessage(t, remote)
	getData, ok := msg.(*wire.MsgGetData)
	if !ok {
		t.Fatalf("got %T, want *wire.MsgGetData", msg)
	}
	if len(getData.InvList) != 2 {
		t.Fatalf("getdata requested %d items, want 2 (the known genesis hash must be excluded)", len(getData.InvList))
	}
	for _, iv := range getData.InvList {
		if iv.Hash == genesisHash {
			t.Fatalf("getdata requested the already-known genesis block")
		}
	}
}

func mustAddInv(t *testing.T, inv *wire.MsgInv, iv *wire.InvVect) {
	t.Helper()
	if err := inv.AddInvVect(iv); err != nil {
		t.Fatalf("AddInvVect: %s", err)
	}
}

func TestHandleGetDataSendsRequestedBlock(t *testing.T) {
	n, chain, pool := newTestNode(t)
	p, remote := newPipePeer(t)

	genesis := blockchain.NewGenesisBlock(blockchain.DefaultGenesisParams)
	b1 := makeBlock(*genesis.Hash(), 1, time.Now())
	if _, err := chain.Add(b1, b1.Transactions()); err != nil {
		t.Fatalf("chain.Add: %s", err)
	}

	// A coinbase transaction submitted directly is rejected synchronously
	// (coinbases never enter the pool), so it can never be served via
	// getdata; only the block is requested below.
	rejectedTx := block.NewTransaction(coinbaseTx(9))
	done := make(chan error, 1)
	pool.Add(rejectedTx, func(err error, _ *block.Transaction) { done <- err })
	select {
	case err := <-done:
		if err == nil {
			t.Fatalf("expected a coinbase transaction to be rejected by the pool")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("pool.Add never invoked its callback")
	}
	getData := wire.NewMsgGetData()
	mustAddInv(t, getData, wire.NewInvVect(wire.InvTypeBlock, b1.Hash()))

	if err := n.HandleMessage(p, getData); err != nil {
		t.Fatalf("HandleMessage: %s", err)
	}

	msg := readMessage(t, remote)
	gotBlock, ok := msg.(*wire.MsgBlock)
	if !ok {
		t.Fatalf("got %T, want *wire.MsgBlock", msg)
	}
	if gotBlock.Header.PrevBlock != *genesis.Hash() {
		t.Fatalf("got a different block than requested")
	}
}

func TestHandleBlockBroadcastsToOtherPeersExcludingSender(t *testing.T) {
	n, chain, _ := newTestNode(t)
	sender, senderRemote := newPipePeer(t)
	other, otherRemote := newPipePeer(t)

	n.mu.Lock()
	n.peers[sender] = struct{}{}
	n.peers[other] = struct{}{}
	n.mu.Unlock()

	genesisHash := chain.ActiveTip()
	b1 := makeBlock(genesisHash, 1, time.Now())

	if err := n.HandleMessage(sender, b1.MsgBlock()); err != nil {
		t.Fatalf("HandleMessage: %s", err)
	}

	msg := readMessage(t, otherRemote)
	inv, ok := msg.(*wire.MsgInv)
	if !ok {
		t.Fatalf("got %T, want *wire.MsgInv", msg)
	}
	if len(inv.InvList) != 1 || inv.InvList[0].Hash != *b1.Hash() {
		t.Fatalf("broadcast inv does not announce the new block")
	}

	select {
	case <-chanFromReadMessage(senderRemote):
		t.Fatalf("the sending peer should not receive its own block echoed back")
	case <-time.After(100 * time.Millisecond):
	}
}

// chanFromReadMessage attempts a single non-blocking-relative read,
// returning a channel that fires only if a message actually arrives.
func chanFromReadMessage(conn net.Conn) <-chan wire.Message {
	ch := make(chan wire.Message, 1)
	go func() {
		msg, err := wire.ReadMessage(conn)
		if err == nil {
			ch <- msg
		}
	}()
	return ch
}

func TestHandleTxAddsTransactionToPool(t *testing.T) {
	n, _, pool := newTestNode(t)
	p, _ := newPipePeer(t)

	// References a source nothing in this test ever provides, so the
	// entry settles into the orphan state rather than disappearing,
	// keeping the IsKnown check below deterministic regardless of how
	// quickly the asynchronous verification round happens to run.
	tx := block.NewTransaction(&wire.MsgTx{
		Version: 1,
		TxIn: []*wire.TxIn{{
			PreviousOutpoint: wire.Outpoint{Hash: chainhash.Hash{0x01}, Index: 0},
			Sequence:         wire.MaxTxInSequenceNum,
		}},
		TxOut: []*wire.TxOut{{Value: 1, PkScript: []byte("payee")}},
	})

	if err := n.HandleMessage(p, tx.MsgTx()); err != nil {
		t.Fatalf("HandleMessage: %s", err)
	}

	if !pool.IsKnown(tx.Hash()) {
		t.Fatalf("transaction should be known to the pool after handleTx")
	}
}
