// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package node

import (
	"github.com/kaspoin/kaspoind/block"
	"github.com/kaspoin/kaspoind/blockchain"
	"github.com/kaspoin/kaspoind/chainhash"
	"github.com/kaspoin/kaspoind/mempool"
	"github.com/kaspoin/kaspoind/peer"
	"github.com/kaspoin/kaspoind/wire"
	"github.com/pkg/errors"
)

// HandleMessage dispatches a single wire message received from p.
func (n *Node) HandleMessage(p *peer.Peer, msg wire.Message) error {
	switch m := msg.(type) {
	case *wire.MsgVersion:
		return n.handleVersion(p, m)
	case *wire.MsgVerAck:
		return n.handleVerAck(p, m)
	case *wire.MsgInv:
		return n.handleInv(p, m)
	case *wire.MsgGetData:
		return n.handleGetData(p, m)
	case *wire.MsgGetBlocks:
		return n.handleGetBlocks(p, m)
	case *wire.MsgBlock:
		return n.handleBlock(p, m)
	case *wire.MsgTx:
		return n.handleTx(p, m)
	case *wire.MsgPing:
		p.QueueMessage(&wire.MsgPong{Nonce: m.Nonce})
		return nil
	case *wire.MsgPong:
		return nil
	default:
		log.Debugf("unhandled message type %T from %s", msg, p)
		return nil
	}
}

func (n *Node) handleVersion(p *peer.Peer, m *wire.MsgVersion) error {
	p.QueueMessage(&wire.MsgVerAck{})
	log.Debugf("peer %s announced height %d, user agent %q", p, m.LastBlockHeight, m.UserAgent)
	return nil
}

func (n *Node) handleVerAck(p *peer.Peer, m *wire.MsgVerAck) error {
	p.SetVerAckReceived()
	if p.HandshakeComplete() {
		n.mu.Lock()
		n.state = StateBlockDownload
		n.mu.Unlock()
		n.requestBlocksFrom(p)
	}
	return nil
}

// requestBlocksFrom sends a getblocks message built from the active
// chain's tip, asking p to announce anything beyond it.
func (n *Node) requestBlocksFrom(p *peer.Peer) {
	tip := n.chain.ActiveTip()
	getBlocks := wire.NewMsgGetBlocks(&chainhash.ZeroHash)
	if err := getBlocks.AddBlockLocatorHash(&tip); err != nil {
		log.Warnf("building getblocks locator: %s", err)
		return
	}
	p.QueueMessage(getBlocks)
}

func (n *Node) handleInv(p *peer.Peer, m *wire.MsgInv) error {
	getData := wire.NewMsgGetData()
	for _, iv := range m.InvList {
		switch iv.Type {
		case wire.InvTypeBlock:
			if b, err := n.chain.GetBlockByHash(&iv.Hash); err == nil && b != nil {
				continue
			}
			if err := getData.AddInvVect(iv); err != nil {
				return err
			}
		case wire.InvTypeTx:
			if n.pool.IsKnown(&iv.Hash) {
				continue
			}
			if err := getData.AddInvVect(iv); err != nil {
				return err
			}
		}
	}
	if len(getData.InvList) > 0 {
		p.QueueMessage(getData)
	}
	return nil
}

func (n *Node) handleGetData(p *peer.Peer, m *wire.MsgGetData) error {
	for _, iv := range m.InvList {
		switch iv.Type {
		case wire.InvTypeBlock:
			b, err := n.chain.GetBlockByHash(&iv.Hash)
			if err != nil {
				return errors.Wrap(err, "looking up requested block")
			}
			if b == nil {
				continue
			}
			p.QueueMessage(b.MsgBlock())
		case wire.InvTypeTx:
			tx, found := n.pool.Get(&iv.Hash, nil)
			if !found {
				continue
			}
			p.QueueMessage(tx.MsgTx())
		}
	}
	return nil
}

func (n *Node) handleGetBlocks(p *peer.Peer, m *wire.MsgGetBlocks) error {
	startHash, err := n.chain.GetBlockByLocator(m.BlockLocators)
	if err != nil {
		return errors.Wrap(err, "resolving block locator")
	}
	if startHash == nil {
		return nil
	}

	inv := wire.NewMsgInv()
	hash := startHash
	for i := 0; i < wire.MaxInvPerMsg; i++ {
		b, err := n.chain.GetBlockByHash(hash)
		if err != nil || b == nil {
			break
		}
		if err := inv.AddInvVect(wire.NewInvVect(wire.InvTypeBlock, hash)); err != nil {
			break
		}
		if hash.IsEqual(&m.HashStop) {
			break
		}
		next := b.Hash()
		if next.IsEqual(hash) {
			break
		}
		hash = next
	}
	if len(inv.InvList) > 0 {
		p.QueueMessage(inv)
	}
	return nil
}

func (n *Node) handleBlock(p *peer.Peer, m *wire.MsgBlock) error {
	b := block.NewBlock(m)
	txs := make([]*block.Transaction, len(m.Transactions))
	for i, mtx := range m.Transactions {
		txs[i] = block.NewTransaction(mtx)
	}

	isOrphan, err := n.chain.Add(b, txs)
	if err != nil {
		if blockchain.IsRuleError(err) {
			log.Debugf("rejected block %s from %s: %s", b.Hash(), p, err)
			return nil
		}
		return errors.Wrap(err, "adding block")
	}
	if isOrphan {
		log.Debugf("buffered orphan block %s from %s", b.Hash(), p)
		n.requestBlocksFrom(p)
		return nil
	}

	p.SetLastBlock(*b.Hash())
	n.broadcastInv(wire.NewInvVect(wire.InvTypeBlock, b.Hash()), p)
	return nil
}

func (n *Node) handleTx(p *peer.Peer, m *wire.MsgTx) error {
	tx := block.NewTransaction(m)
	wasNew := n.pool.Add(tx, nil)
	if wasNew {
		log.Debugf("accepted transaction %s from %s into verification pipeline", tx.Hash(), p)
	}
	return nil
}

// broadcastInv announces iv to every connected peer except from.
func (n *Node) broadcastInv(iv *wire.InvVect, from *peer.Peer) {
	inv := wire.NewMsgInv()
	if err := inv.AddInvVect(iv); err != nil {
		return
	}

	n.mu.Lock()
	peers := make([]*peer.Peer, 0, len(n.peers))
	for pr := range n.peers {
		if pr == from {
			continue
		}
		peers = append(peers, pr)
	}
	n.mu.Unlock()

	for _, pr := range peers {
		pr.QueueMessage(inv)
	}
}

// onChainNotification relays a newly accepted block to the network and
// confirms its transactions out of the pool.
func (n *Node) onChainNotification(note *blockchain.Notification) error {
	switch note.Type {
	case blockchain.NTTxAdd:
		if note.Tx != nil {
			n.pool.ConfirmTransaction(note.Tx)
		}
	case blockchain.NTBlockSave:
		if note.Block != nil {
			n.broadcastInv(wire.NewInvVect(wire.InvTypeBlock, note.Block.Hash()), nil)
		}
	}
	return nil
}

// onPoolEvent relays a newly accepted mempool transaction to the network.
func (n *Node) onPoolEvent(evt mempool.Event) {
	if evt.Type != mempool.EventTxNotify || evt.Tx == nil {
		return
	}
	n.broadcastInv(wire.NewInvVect(wire.InvTypeTx, evt.Tx.Hash()), nil)
}

// BroadcastTx announces hash to every connected peer. It is exported for
// the periodic rebroadcaster, which re-announces still-unconfirmed pool
// transactions independently of their original acceptance event.
func (n *Node) BroadcastTx(hash *chainhash.Hash) {
	n.broadcastInv(wire.NewInvVect(wire.InvTypeTx, hash), nil)
}
