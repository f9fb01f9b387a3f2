// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package peer models a single remote connection: its address, protocol
// handshake state, and the outbound message queue the node writes wire
// messages onto.
package peer

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/kaspoin/kaspoind/chainhash"
	"github.com/kaspoin/kaspoind/logs"
	"github.com/kaspoin/kaspoind/wire"
)

var log = logs.PeerLog()

// outboundQueueSize bounds how many messages may be queued for a peer
// before QueueMessage blocks.
const outboundQueueSize = 200

// Peer represents one connected remote node.
type Peer struct {
	conn    net.Conn
	addr    string
	inbound bool

	outbound chan wire.Message
	quit     chan struct{}
	wg       sync.WaitGroup

	mu          sync.Mutex
	verackRecvd bool
	lastBlock   chainhash.Hash
	connectedAt time.Time
}

// New wraps conn as a Peer, inbound reporting whether the remote side
// dialed us.
func New(conn net.Conn, inbound bool) *Peer {
	return &Peer{
		conn:        conn,
		addr:        conn.RemoteAddr().String(),
		inbound:     inbound,
		outbound:    make(chan wire.Message, outboundQueueSize),
		quit:        make(chan struct{}),
		connectedAt: time.Now(),
	}
}

// Addr returns the peer's remote network address.
func (p *Peer) Addr() string {
	return p.addr
}

// Inbound reports whether the remote side initiated the connection.
func (p *Peer) Inbound() bool {
	return p.inbound
}

// String implements fmt.Stringer for logging.
func (p *Peer) String() string {
	return fmt.Sprintf("%s (%s)", p.addr, map[bool]string{true: "inbound", false: "outbound"}[p.inbound])
}

// SetVerAckReceived records that the version handshake completed.
func (p *Peer) SetVerAckReceived() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.verackRecvd = true
}

// HandshakeComplete reports whether the version handshake has completed.
func (p *Peer) HandshakeComplete() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.verackRecvd
}

// SetLastBlock records the tip hash the peer last announced.
func (p *Peer) SetLastBlock(hash chainhash.Hash) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastBlock = hash
}

// LastBlock returns the tip hash the peer last announced.
func (p *Peer) LastBlock() chainhash.Hash {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastBlock
}

// QueueMessage enqueues msg for delivery to the peer. It never blocks the
// caller beyond the queue filling up.
func (p *Peer) QueueMessage(msg wire.Message) {
	select {
	case p.outbound <- msg:
	case <-p.quit:
	}
}

// Start launches the peer's outbound writer goroutine.
func (p *Peer) Start() {
	p.wg.Add(1)
	go p.writeHandler()
}

func (p *Peer) writeHandler() {
	defer p.wg.Done()
	for {
		select {
		case msg := <-p.outbound:
			if err := wire.WriteMessage(p.conn, msg); err != nil {
				log.Errorf("failed to write message to %s: %s", p, err)
				p.Disconnect()
				return
			}
		case <-p.quit:
			return
		}
	}
}

// Disconnect closes the underlying connection and stops the peer's
// goroutines. Safe to call more than once.
func (p *Peer) Disconnect() {
	select {
	case <-p.quit:
		return
	default:
		close(p.quit)
	}
	p.conn.Close()
}

// ReadMessage blocks until the next wire message arrives from the peer.
func (p *Peer) ReadMessage() (wire.Message, error) {
	return wire.ReadMessage(p.conn)
}

// WaitForDisconnect blocks until the peer's goroutines have exited.
func (p *Peer) WaitForDisconnect() {
	p.wg.Wait()
}
