// Copyright (c) 2013-2014 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package addrmgr tracks the set of known peer addresses and their
// recent connection history, so the connection manager can pick
// addresses to dial without repeatedly hammering dead peers.
package addrmgr

import (
	"math/rand"
	"sync"
	"time"

	"github.com/kaspoin/kaspoind/logs"
)

var log = logs.AddrMgrLog()

// KnownAddress tracks a network address along with metadata about its
// history with the local peer.
type KnownAddress struct {
	addr        string
	lastSeen    time.Time
	lastAttempt time.Time
	lastSuccess time.Time
	attempts    int
}

// Addr returns the dialable network address.
func (ka *KnownAddress) Addr() string { return ka.addr }

// LastAttempt returns when the address was last dialed, the zero value
// if never.
func (ka *KnownAddress) LastAttempt() time.Time { return ka.lastAttempt }

// Manager maintains the set of known peer addresses, safe for concurrent
// use by the connection manager and its dial goroutines.
type Manager struct {
	mu    sync.Mutex
	addrs map[string]*KnownAddress
}

// New returns an empty address manager.
func New() *Manager {
	return &Manager{addrs: make(map[string]*KnownAddress)}
}

// AddAddress records addr as known without marking any connection attempt
// against it.
func (m *Manager) AddAddress(addr string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.addrs[addr]; ok {
		m.addrs[addr].lastSeen = time.Now()
		return
	}
	m.addrs[addr] = &KnownAddress{addr: addr, lastSeen: time.Now()}
}

// AddAddresses records each of addrs as known.
func (m *Manager) AddAddresses(addrs []string) {
	for _, a := range addrs {
		m.AddAddress(a)
	}
}

// Attempt marks addr as having just been dialed, successfully or not.
func (m *Manager) Attempt(addr string, success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ka, ok := m.addrs[addr]
	if !ok {
		ka = &KnownAddress{addr: addr}
		m.addrs[addr] = ka
	}
	ka.lastAttempt = time.Now()
	ka.attempts++
	if success {
		ka.lastSuccess = time.Now()
		ka.attempts = 0
	}
}

// NumAddresses returns the number of addresses currently known.
func (m *Manager) NumAddresses() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.addrs)
}

// GetAddress returns a random known address not currently backed off,
// or "" if none qualify. An address backs off for the square of its
// failed-attempt count in seconds, capped at a day.
func (m *Manager) GetAddress() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	candidates := make([]*KnownAddress, 0, len(m.addrs))
	now := time.Now()
	for _, ka := range m.addrs {
		if ka.attempts > 0 {
			backoff := retryBackoff(ka.attempts)
			if now.Sub(ka.lastAttempt) < backoff {
				continue
			}
		}
		candidates = append(candidates, ka)
	}
	if len(candidates) == 0 {
		return ""
	}
	return candidates[rand.Intn(len(candidates))].addr
}

const maxRetryBackoff = 24 * time.Hour

func retryBackoff(attempts int) time.Duration {
	backoff := time.Duration(attempts) * time.Duration(attempts) * time.Second
	if backoff > maxRetryBackoff {
		return maxRetryBackoff
	}
	return backoff
}
