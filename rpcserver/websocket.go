// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2015-2017 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package rpcserver

import (
	"net/http"
	"sync"

	"github.com/btcsuite/websocket"
)

// websocketSendBufferSize is the number of queued events a slow client
// can fall behind by before the hub drops further events for it.
const websocketSendBufferSize = 50

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// wsEvent is the JSON payload pushed to every subscribed websocket
// client as new blocks and transactions arrive.
type wsEvent struct {
	Kind   string `json:"kind"`
	Hash   string `json:"hash"`
	Height int32  `json:"height,omitempty"`
}

type notificationHub struct {
	mu      sync.Mutex
	clients map[chan wsEvent]struct{}
}

func newNotificationHub() *notificationHub {
	return &notificationHub{clients: make(map[chan wsEvent]struct{})}
}

func (h *notificationHub) broadcast(evt wsEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.clients {
		select {
		case ch <- evt:
		default:
			log.Warnf("websocket client send buffer full, dropping event")
		}
	}
}

func (h *notificationHub) register() chan wsEvent {
	ch := make(chan wsEvent, websocketSendBufferSize)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *notificationHub) unregister(ch chan wsEvent) {
	h.mu.Lock()
	delete(h.clients, ch)
	h.mu.Unlock()
	close(ch)
}

func (h *notificationHub) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warnf("upgrading websocket connection: %s", err)
		return
	}
	defer conn.Close()

	ch := h.register()
	defer h.unregister(ch)

	for evt := range ch {
		if err := conn.WriteJSON(evt); err != nil {
			log.Debugf("writing websocket event: %s", err)
			return
		}
	}
}
