// Copyright (c) 2013-2014 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package connmgr

import (
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/kaspoin/kaspoind/addrmgr"
)

// waitFor polls cond until it reports true or the deadline passes, failing
// the test on timeout. Needed because ConnManager drives everything off its
// own goroutine and wake channel.
func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf(msg)
}

func TestFillsSlotsUpToTargetOutbound(t *testing.T) {
	am := addrmgr.New()
	am.AddAddresses([]string{"10.0.0.1:8333", "10.0.0.2:8333", "10.0.0.3:8333"})

	var mu sync.Mutex
	var connected []net.Conn

	dial := func(addr string) (net.Conn, error) {
		client, server := net.Pipe()
		t.Cleanup(func() { server.Close() })
		go func() {
			buf := make([]byte, 1)
			client.Read(buf)
			client.Close()
		}()
		return server, nil
	}

	cm := New(Config{
		TargetOutbound: 2,
		AddrManager:    am,
		Dial:           dial,
		OnConnect: func(conn net.Conn, release func()) {
			mu.Lock()
			connected = append(connected, conn)
			mu.Unlock()
		},
	})
	cm.Start()
	t.Cleanup(cm.Stop)

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(connected) == 2
	}, "connection manager never reached its target outbound count")

	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	got := len(connected)
	mu.Unlock()
	if got != 2 {
		t.Fatalf("connected count = %d, want exactly TargetOutbound (2)", got)
	}
}

func TestFailedDialMarksAddressAttemptedAndFrees(t *testing.T) {
	am := addrmgr.New()
	am.AddAddresses([]string{"10.0.0.1:8333"})

	dial := func(addr string) (net.Conn, error) {
		return nil, fmt.Errorf("connection refused")
	}

	connectCh := make(chan struct{}, 1)
	cm := New(Config{
		TargetOutbound: 1,
		AddrManager:    am,
		Dial:           dial,
		OnConnect: func(conn net.Conn, release func()) {
			connectCh <- struct{}{}
		},
	})
	cm.Start()
	t.Cleanup(cm.Stop)

	select {
	case <-connectCh:
		t.Fatalf("OnConnect should never fire for a failing dial")
	case <-time.After(200 * time.Millisecond):
	}

	// A failed dial must both record the attempt (so GetAddress backs it
	// off) and free its outbound slot (so the manager isn't stuck
	// thinking it already holds a connection it doesn't have).
	waitFor(t, func() bool {
		return am.GetAddress() == "" // backed off after the failed Attempt
	}, "address was never marked as attempted after a failed dial")
	waitFor(t, func() bool {
		cm.mu.Lock()
		defer cm.mu.Unlock()
		return cm.active == 0
	}, "failed dial never freed its outbound slot")
}

func TestReleaseFreesSlotForAnotherConnection(t *testing.T) {
	am := addrmgr.New()
	am.AddAddresses([]string{"10.0.0.1:8333"})

	var mu sync.Mutex
	var releaseFns []func()
	connectCount := 0

	dial := func(addr string) (net.Conn, error) {
		client, server := net.Pipe()
		t.Cleanup(func() { server.Close() })
		go func() {
			buf := make([]byte, 1)
			client.Read(buf)
			client.Close()
		}()
		return server, nil
	}

	cm := New(Config{
		TargetOutbound: 1,
		AddrManager:    am,
		Dial:           dial,
		OnConnect: func(conn net.Conn, release func()) {
			mu.Lock()
			connectCount++
			releaseFns = append(releaseFns, release)
			mu.Unlock()
		},
	})
	cm.Start()
	t.Cleanup(cm.Stop)

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return connectCount == 1
	}, "never made the first outbound connection")

	// Without a release, the slot stays occupied and a second connection
	// must not be attempted even though the address is eligible again (a
	// successful attempt carries no backoff).
	am.Attempt("10.0.0.1:8333", true)
	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	got := connectCount
	mu.Unlock()
	if got != 1 {
		t.Fatalf("connectCount = %d before release, want 1", got)
	}

	mu.Lock()
	releaseFns[0]()
	mu.Unlock()

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return connectCount == 2
	}, "releasing a connection never freed a slot for a reconnect")
}

func TestStopHaltsFurtherConnections(t *testing.T) {
	am := addrmgr.New()
	am.AddAddresses([]string{"10.0.0.1:8333"})

	connectCh := make(chan struct{}, 4)
	dial := func(addr string) (net.Conn, error) {
		client, server := net.Pipe()
		t.Cleanup(func() { server.Close() })
		go func() {
			buf := make([]byte, 1)
			client.Read(buf)
			client.Close()
		}()
		return server, nil
	}

	cm := New(Config{
		TargetOutbound: 1,
		AddrManager:    am,
		Dial:           dial,
		OnConnect: func(conn net.Conn, release func()) {
			connectCh <- struct{}{}
			release()
		},
	})
	cm.Start()

	<-connectCh
	cm.Stop()
	cm.Stop() // must be safe to call twice

	time.Sleep(1200 * time.Millisecond) // longer than the internal tick
	select {
	case <-connectCh:
		t.Fatalf("connection manager kept connecting after Stop")
	default:
	}
}
