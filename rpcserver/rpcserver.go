// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package rpcserver exposes a read-only HTTP surface over the block
// chain and mempool, plus a websocket endpoint streaming newly accepted
// blocks and transactions as they happen.
package rpcserver

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/kaspoin/kaspoind/blockchain"
	"github.com/kaspoin/kaspoind/chainhash"
	"github.com/kaspoin/kaspoind/logs"
	"github.com/kaspoin/kaspoind/mempool"
)

var log = logs.RPCLog()

// Server serves the HTTP and websocket RPC surface.
type Server struct {
	chain *blockchain.BlockChain
	pool  *mempool.TransactionStore

	httpServer *http.Server
	hub        *notificationHub
}

// New builds a server bound to chain and pool, listening on addr once
// Start is called.
func New(addr string, chain *blockchain.BlockChain, pool *mempool.TransactionStore) *Server {
	s := &Server{
		chain: chain,
		pool:  pool,
		hub:   newNotificationHub(),
	}

	router := mux.NewRouter()
	router.HandleFunc("/block/{hash}", s.handleGetBlock).Methods(http.MethodGet)
	router.HandleFunc("/tx/{hash}", s.handleGetTx).Methods(http.MethodGet)
	router.HandleFunc("/tip", s.handleGetTip).Methods(http.MethodGet)
	router.HandleFunc("/ws", s.hub.handleWebsocket)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: router,
	}
	return s
}

// Start subscribes to chain and pool notifications and begins serving
// HTTP requests in the background.
func (s *Server) Start() {
	s.chain.Subscribe(s.onChainNotification)
	s.pool.Subscribe(s.onPoolEvent)

	go func() {
		log.Infof("RPC server listening on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("RPC server stopped: %s", err)
		}
	}()
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) onChainNotification(note *blockchain.Notification) error {
	if note.Type == blockchain.NTBlockSave && note.Block != nil {
		s.hub.broadcast(wsEvent{Kind: "block", Hash: note.Block.Hash().String(), Height: note.Block.Height()})
	}
	return nil
}

func (s *Server) onPoolEvent(evt mempool.Event) {
	if evt.Type == mempool.EventTxNotify && evt.Tx != nil {
		s.hub.broadcast(wsEvent{Kind: "tx", Hash: evt.Tx.Hash().String()})
	}
}

func (s *Server) handleGetBlock(w http.ResponseWriter, r *http.Request) {
	hashStr := mux.Vars(r)["hash"]
	hash, err := chainhash.NewHashFromStr(hashStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	b, err := s.chain.GetBlockByHash(hash)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if b == nil {
		writeError(w, http.StatusNotFound, errNotFound)
		return
	}
	writeJSON(w, map[string]interface{}{
		"hash":     b.Hash().String(),
		"prevHash": b.PrevHash().String(),
		"height":   b.Height(),
		"active":   b.IsActive(),
		"numTxs":   len(b.Transactions()),
	})
}

func (s *Server) handleGetTx(w http.ResponseWriter, r *http.Request) {
	hashStr := mux.Vars(r)["hash"]
	hash, err := chainhash.NewHashFromStr(hashStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	tx, found := s.pool.Get(hash, nil)
	if !found {
		writeError(w, http.StatusNotFound, errNotFound)
		return
	}
	writeJSON(w, map[string]interface{}{
		"hash":      tx.Hash().String(),
		"isCoinbase": tx.IsCoinBase(),
		"numInputs": len(tx.MsgTx().TxIn),
		"numOutputs": len(tx.MsgTx().TxOut),
	})
}

func (s *Server) handleGetTip(w http.ResponseWriter, r *http.Request) {
	tip := s.chain.ActiveTip()
	writeJSON(w, map[string]interface{}{"tip": tip.String()})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warnf("encoding RPC response: %s", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

var errNotFound = httpError("not found")

type httpError string

func (e httpError) Error() string { return string(e) }
