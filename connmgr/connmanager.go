// Copyright (c) 2013-2014 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package connmgr manages a target number of outbound connections,
// dialing addresses supplied by an address manager and handing
// established connections to a caller-supplied handler.
package connmgr

import (
	"net"
	"sync"
	"time"

	"github.com/kaspoin/kaspoind/addrmgr"
	"github.com/kaspoin/kaspoind/logs"
)

var log = logs.ConnMgrLog()

const dialTimeout = 10 * time.Second

// Config configures a connection manager's target connection count and
// the addresses it is seeded with or learns about.
type Config struct {
	// TargetOutbound is the number of outbound connections the manager
	// tries to maintain.
	TargetOutbound int

	// AddrManager supplies and records candidate addresses.
	AddrManager *addrmgr.Manager

	// OnConnect is invoked with each newly established outbound
	// connection and a release func the caller must invoke once the
	// connection closes, freeing its outbound slot.
	OnConnect func(conn net.Conn, release func())

	// Dial overrides the network dialer, used by tests to avoid real
	// connections. Defaults to net.DialTimeout with the package's
	// timeout.
	Dial func(addr string) (net.Conn, error)
}

// ConnManager drives outbound connection attempts toward Config's
// target count, retrying failed dials with the address manager's
// backoff.
type ConnManager struct {
	cfg Config

	mu      sync.Mutex
	active  int
	quit    chan struct{}
	wakeCh  chan struct{}
	stopped bool
}

// New returns a connection manager using cfg. Start must be called to
// begin connecting.
func New(cfg Config) *ConnManager {
	if cfg.Dial == nil {
		cfg.Dial = func(addr string) (net.Conn, error) {
			return net.DialTimeout("tcp", addr, dialTimeout)
		}
	}
	return &ConnManager{
		cfg:    cfg,
		quit:   make(chan struct{}),
		wakeCh: make(chan struct{}, 1),
	}
}

// Start launches the manager's connection loop.
func (cm *ConnManager) Start() {
	go cm.run()
	cm.poke()
}

// Stop halts further connection attempts.
func (cm *ConnManager) Stop() {
	cm.mu.Lock()
	if cm.stopped {
		cm.mu.Unlock()
		return
	}
	cm.stopped = true
	cm.mu.Unlock()
	close(cm.quit)
}

func (cm *ConnManager) release() {
	cm.mu.Lock()
	cm.active--
	cm.mu.Unlock()
	cm.poke()
}

func (cm *ConnManager) poke() {
	select {
	case cm.wakeCh <- struct{}{}:
	default:
	}
}

func (cm *ConnManager) needsMore() bool {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	return cm.active < cm.cfg.TargetOutbound
}

func (cm *ConnManager) run() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-cm.quit:
			return
		case <-cm.wakeCh:
			cm.fillSlots()
		case <-ticker.C:
			cm.fillSlots()
		}
	}
}

func (cm *ConnManager) fillSlots() {
	for cm.needsMore() {
		addr := cm.cfg.AddrManager.GetAddress()
		if addr == "" {
			return
		}
		go cm.connect(addr)
		cm.mu.Lock()
		cm.active++
		cm.mu.Unlock()
	}
}

func (cm *ConnManager) connect(addr string) {
	conn, err := cm.cfg.Dial(addr)
	if err != nil {
		log.Debugf("dialing %s: %s", addr, err)
		cm.cfg.AddrManager.Attempt(addr, false)
		cm.release()
		return
	}
	cm.cfg.AddrManager.Attempt(addr, true)
	log.Infof("connected to %s", addr)
	cm.cfg.OnConnect(conn, cm.release)
}
