// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package node implements the state machine that drives a peer-to-peer
// connection from handshake through block download, dispatching wire
// messages to the block chain and mempool.
package node

import (
	"sync"

	"github.com/kaspoin/kaspoind/blockchain"
	"github.com/kaspoin/kaspoind/chainhash"
	"github.com/kaspoin/kaspoind/logs"
	"github.com/kaspoin/kaspoind/mempool"
	"github.com/kaspoin/kaspoind/peer"
	"github.com/kaspoin/kaspoind/wire"
)

var log = logs.NodeLog()

// State names the phase of the node's startup and sync sequence.
type State int

const (
	// StateUninitialized is the state before Init has run.
	StateUninitialized State = iota

	// StateInit covers chain-state rehydration; the node does not yet
	// accept peer connections.
	StateInit

	// StateNetConnect covers establishing outbound connections and
	// completing the version handshake with each peer.
	StateNetConnect

	// StateBlockDownload is the steady operating state: peers are
	// connected and inv/getdata/block/tx traffic flows normally.
	StateBlockDownload
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInit:
		return "init"
	case StateNetConnect:
		return "netConnect"
	case StateBlockDownload:
		return "blockDownload"
	default:
		return "unknown"
	}
}

// Node owns the set of connected peers and dispatches wire traffic
// between them and the block chain and mempool.
type Node struct {
	chain *blockchain.BlockChain
	pool  *mempool.TransactionStore

	cmdCh chan func()
	quit  chan struct{}

	mu    sync.Mutex
	state State
	peers map[*peer.Peer]struct{}
}

// New constructs a Node bound to chain and pool. Init must be called
// before peers are added.
func New(chain *blockchain.BlockChain, pool *mempool.TransactionStore) *Node {
	return &Node{
		chain: chain,
		pool:  pool,
		cmdCh: make(chan func()),
		quit:  make(chan struct{}),
		peers: make(map[*peer.Peer]struct{}),
		state: StateUninitialized,
	}
}

func (n *Node) run() {
	for {
		select {
		case cmd := <-n.cmdCh:
			cmd()
		case <-n.quit:
			return
		}
	}
}

func (n *Node) do(fn func()) {
	done := make(chan struct{})
	n.cmdCh <- func() {
		fn()
		close(done)
	}
	<-done
}

// Init transitions the node from uninitialized to init state. The block
// chain and mempool must already be initialized by the caller.
func (n *Node) Init() {
	go n.run()
	n.mu.Lock()
	n.state = StateInit
	n.mu.Unlock()
	n.pool.Subscribe(n.onPoolEvent)
	n.chain.Subscribe(n.onChainNotification)
	log.Infof("Node initialized, active tip %s", n.chain.ActiveTip())
}

// Shutdown stops the node's processing goroutine.
func (n *Node) Shutdown() {
	close(n.quit)
}

// State returns the node's current lifecycle state.
func (n *Node) State() State {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}

// AddPeer registers p with the node, transitioning to netConnect and then
// blockDownload once the handshake completes, and launches its message
// loop.
func (n *Node) AddPeer(p *peer.Peer) {
	n.mu.Lock()
	if n.state == StateInit {
		n.state = StateNetConnect
	}
	n.peers[p] = struct{}{}
	n.mu.Unlock()

	p.Start()
	n.sendVersion(p)
	go n.readLoop(p)
}

// RemovePeer disconnects and forgets p.
func (n *Node) RemovePeer(p *peer.Peer) {
	n.mu.Lock()
	delete(n.peers, p)
	n.mu.Unlock()
	p.Disconnect()
}

func (n *Node) readLoop(p *peer.Peer) {
	defer n.RemovePeer(p)
	for {
		msg, err := p.ReadMessage()
		if err != nil {
			log.Debugf("read error from %s: %s", p, err)
			return
		}
		if err := n.HandleMessage(p, msg); err != nil {
			log.Warnf("error handling message from %s: %s", p, err)
			return
		}
	}
}

func (n *Node) sendVersion(p *peer.Peer) {
	height := int32(0)
	if b, err := n.chain.GetBlockByHash(hashPtr(n.chain.ActiveTip())); err == nil && b != nil {
		height = b.Height()
	}
	p.QueueMessage(wire.NewMsgVersion(0, height, "kaspoind"))
}

func hashPtr(h chainhash.Hash) *chainhash.Hash { return &h }
