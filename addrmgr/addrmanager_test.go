// Copyright (c) 2013-2014 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package addrmgr

import (
	"testing"
	"time"
)

func TestAddAddressIsIdempotentAndCounted(t *testing.T) {
	m := New()
	m.AddAddress("10.0.0.1:8333")
	m.AddAddress("10.0.0.2:8333")
	m.AddAddress("10.0.0.1:8333")

	if got := m.NumAddresses(); got != 2 {
		t.Fatalf("NumAddresses() = %d, want 2", got)
	}
}

func TestGetAddressReturnsEmptyWhenNoneKnown(t *testing.T) {
	m := New()
	if addr := m.GetAddress(); addr != "" {
		t.Fatalf("GetAddress() = %q, want empty manager to return \"\"", addr)
	}
}

func TestAttemptFailureBacksOffAddress(t *testing.T) {
	m := New()
	m.AddAddress("10.0.0.1:8333")
	m.Attempt("10.0.0.1:8333", false)

	if addr := m.GetAddress(); addr != "" {
		t.Fatalf("GetAddress() = %q, want a freshly failed address to be backed off", addr)
	}
}

func TestAttemptSuccessResetsBackoff(t *testing.T) {
	m := New()
	m.AddAddress("10.0.0.1:8333")
	m.Attempt("10.0.0.1:8333", false)
	m.Attempt("10.0.0.1:8333", true)

	if addr := m.GetAddress(); addr != "10.0.0.1:8333" {
		t.Fatalf("GetAddress() = %q, want the address back after a successful attempt clears its backoff", addr)
	}
}

func TestGetAddressSkipsBackedOffButReturnsEligible(t *testing.T) {
	m := New()
	m.AddAddress("10.0.0.1:8333")
	m.AddAddress("10.0.0.2:8333")
	m.Attempt("10.0.0.1:8333", false)

	for i := 0; i < 20; i++ {
		if addr := m.GetAddress(); addr != "10.0.0.2:8333" {
			t.Fatalf("GetAddress() = %q, want only the non-backed-off address", addr)
		}
	}
}

func TestRetryBackoffGrowsAndCaps(t *testing.T) {
	if got, want := retryBackoff(1), time.Second; got != want {
		t.Fatalf("retryBackoff(1) = %s, want %s", got, want)
	}
	if got, want := retryBackoff(2), 4*time.Second; got != want {
		t.Fatalf("retryBackoff(2) = %s, want %s", got, want)
	}
	if got := retryBackoff(10000); got != maxRetryBackoff {
		t.Fatalf("retryBackoff(10000) = %s, want the %s cap", got, maxRetryBackoff)
	}
}

func TestAddAddressesRecordsEachAddress(t *testing.T) {
	m := New()
	m.AddAddresses([]string{"10.0.0.1:8333", "10.0.0.2:8333", "10.0.0.3:8333"})
	if got := m.NumAddresses(); got != 3 {
		t.Fatalf("NumAddresses() = %d, want 3", got)
	}
}

func TestAttemptOnUnknownAddressRecordsIt(t *testing.T) {
	m := New()
	m.Attempt("10.0.0.9:8333", true)
	if got := m.NumAddresses(); got != 1 {
		t.Fatalf("NumAddresses() = %d, want 1 after Attempt on an unseen address", got)
	}
}
