// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/kaspoin/kaspoind/addrindex"
	"github.com/kaspoin/kaspoind/addrmgr"
	"github.com/kaspoin/kaspoind/blockchain"
	"github.com/kaspoin/kaspoind/config"
	"github.com/kaspoin/kaspoind/connmgr"
	"github.com/kaspoin/kaspoind/logs"
	"github.com/kaspoin/kaspoind/mempool"
	"github.com/kaspoin/kaspoind/node"
	"github.com/kaspoin/kaspoind/peer"
	"github.com/kaspoin/kaspoind/rpcserver"
	"github.com/kaspoin/kaspoind/storage"
	"github.com/kaspoin/kaspoind/txrelay"
	"github.com/kaspoin/kaspoind/txscript"
)

var log = logs.ConfigLog()

// kaspoind wraps every long-running service the process hosts: storage,
// block chain, mempool, peer listener, connection manager and RPC
// server.
type kaspoind struct {
	cfg *config.Config

	store *storage.LevelDBStorage
	chain *blockchain.BlockChain
	pool  *mempool.TransactionStore

	addrManager *addrmgr.Manager
	connManager *connmgr.ConnManager
	n           *node.Node
	rpc         *rpcserver.Server
	relay       *txrelay.Relay
	addrIndex   *addrindex.Index

	listener net.Listener
}

func newKaspoind(cfg *config.Config) (*kaspoind, error) {
	store, err := storage.Open(filepath.Join(cfg.DataDir, "blocks"))
	if err != nil {
		return nil, fmt.Errorf("opening block storage: %w", err)
	}

	chain := blockchain.New(store)
	if err := chain.Init(blockchain.NewGenesisBlock(blockchain.DefaultGenesisParams)); err != nil {
		return nil, fmt.Errorf("initializing block chain: %w", err)
	}

	pool := mempool.New(mempool.Config{
		ScriptVerifier: txscript.NewVerifier(),
		Storage:        store,
		LiveAccounting: cfg.LiveAccounting,
	})
	pool.Start()

	n := node.New(chain, pool)
	n.Init()

	addrManager := addrmgr.New()
	if len(cfg.ConnectOnly) > 0 {
		addrManager.AddAddresses(cfg.ConnectOnly)
	} else {
		addrManager.AddAddresses(cfg.AddPeer)
	}

	connManager := connmgr.New(connmgr.Config{
		TargetOutbound: cfg.MaxPeers,
		AddrManager:    addrManager,
		OnConnect: func(conn net.Conn, release func()) {
			p := peer.New(conn, false)
			n.AddPeer(p)
			go func() {
				p.WaitForDisconnect()
				release()
			}()
		},
	})

	k := &kaspoind{
		cfg:         cfg,
		store:       store,
		chain:       chain,
		pool:        pool,
		addrManager: addrManager,
		connManager: connManager,
		n:           n,
	}

	k.rpc = rpcserver.New(cfg.RPCListen, chain, pool)
	k.relay = txrelay.New(pool, n.BroadcastTx)

	if cfg.LiveAccounting {
		idx, err := addrindex.Open(filepath.Join(cfg.DataDir, "addrindex.db"))
		if err != nil {
			return nil, fmt.Errorf("opening address index: %w", err)
		}
		k.addrIndex = idx
		k.wireAddrIndex()
	}

	return k, nil
}

// wireAddrIndex feeds the address index from the pool's accept/cancel
// events and the chain's confirm/revoke notifications, keeping it in
// sync with both unconfirmed and confirmed activity.
func (k *kaspoind) wireAddrIndex() {
	k.pool.Subscribe(func(evt mempool.Event) {
		if evt.Tx == nil {
			return
		}
		var err error
		switch evt.Type {
		case mempool.EventTxNotify:
			err = k.addrIndex.AddUnconfirmed(evt.Tx)
		case mempool.EventTxCancel:
			err = k.addrIndex.RemoveUnconfirmed(evt.Tx)
		}
		if err != nil {
			log.Warnf("updating address index from pool event: %s", err)
		}
	})

	k.chain.Subscribe(func(note *blockchain.Notification) error {
		if note.Tx == nil {
			return nil
		}
		var err error
		switch note.Type {
		case blockchain.NTTxSave:
			// note.Block is not populated for per-transaction
			// notifications; height is recorded best-effort via the
			// active tip rather than the exact containing block.
			height := int32(0)
			tipHash := k.chain.ActiveTip()
			if tip, terr := k.chain.GetBlockByHash(&tipHash); terr == nil && tip != nil {
				height = tip.Height()
			}
			err = k.addrIndex.Confirm(note.Tx, height)
		case blockchain.NTTxRevoke:
			err = k.addrIndex.Revoke(note.Tx)
		}
		if err != nil {
			log.Warnf("updating address index from chain notification: %s", err)
		}
		return nil
	})
}

func (k *kaspoind) start() error {
	listener, err := net.Listen("tcp", k.cfg.Listen)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", k.cfg.Listen, err)
	}
	k.listener = listener

	go k.acceptLoop()

	k.connManager.Start()
	k.rpc.Start()
	k.relay.Start()

	log.Infof("kaspoind started, listening on %s", k.cfg.Listen)
	return nil
}

func (k *kaspoind) acceptLoop() {
	for {
		conn, err := k.listener.Accept()
		if err != nil {
			return
		}
		p := peer.New(conn, true)
		k.n.AddPeer(p)
	}
}

func (k *kaspoind) stop() {
	log.Warnf("kaspoind shutting down")

	if k.listener != nil {
		k.listener.Close()
	}
	k.connManager.Stop()
	k.relay.Stop()
	if err := k.rpc.Stop(); err != nil {
		log.Errorf("stopping RPC server: %s", err)
	}
	if k.addrIndex != nil {
		if err := k.addrIndex.Close(); err != nil {
			log.Errorf("closing address index: %s", err)
		}
	}
	k.n.Shutdown()
	k.pool.Shutdown()
	k.chain.Shutdown()
	if err := k.store.Close(); err != nil {
		log.Errorf("closing block storage: %s", err)
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading configuration: %s\n", err)
		os.Exit(1)
	}

	k, err := newKaspoind(cfg)
	if err != nil {
		log.Errorf("initializing kaspoind: %s", err)
		os.Exit(1)
	}

	if err := k.start(); err != nil {
		log.Errorf("starting kaspoind: %s", err)
		os.Exit(1)
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	<-interrupt

	k.stop()
}
