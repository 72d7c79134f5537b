package ratelimiter

import (
	"net/http/httptest"
	"testing"
	"time"
)

func TestAllowWithinBurst(t *testing.T) {
	rl := New(Options{MaxRatePerSecond: 10, MaxBurst: 3})

	for i := 0; i < 3; i++ {
		if !rl.Allow("client") {
			t.Fatalf("request %d denied within burst", i+1)
		}
	}
	if rl.Allow("client") {
		t.Fatal("request allowed beyond burst")
	}
}

func TestBucketsAreIndependentPerSource(t *testing.T) {
	rl := New(Options{MaxRatePerSecond: 10, MaxBurst: 1})

	if !rl.Allow("a") {
		t.Fatal("first request for a denied")
	}
	if rl.Allow("a") {
		t.Fatal("second request for a allowed")
	}
	if !rl.Allow("b") {
		t.Fatal("b throttled by a's bucket")
	}
}

func TestTokensRefillOverTime(t *testing.T) {
	rl := New(Options{MaxRatePerSecond: 50, MaxBurst: 1})

	if !rl.Allow("client") {
		t.Fatal("first request denied")
	}
	if rl.Allow("client") {
		t.Fatal("bucket not drained")
	}

	deadline := time.Now().Add(time.Second)
	for !rl.Allow("client") {
		if time.Now().After(deadline) {
			t.Fatal("bucket never refilled")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestGetSourceKeyPrefersHeader(t *testing.T) {
	rl := New(Options{MaxRatePerSecond: 1, SourceHeaderKey: "X-Client-ID"})

	r := httptest.NewRequest("GET", "/api/rooms", nil)
	r.RemoteAddr = "127.0.0.1:54321"
	if key := rl.GetSourceKey(r); key != "127.0.0.1:54321" {
		t.Fatalf("key = %q, want remote addr fallback", key)
	}

	r.Header.Set("X-Client-ID", "shell-1")
	if key := rl.GetSourceKey(r); key != "shell-1" {
		t.Fatalf("key = %q, want header value", key)
	}
}

func TestRemainingTracksConsumption(t *testing.T) {
	rl := New(Options{MaxRatePerSecond: 1, MaxBurst: 5})

	if got := rl.Remaining("client"); got != 5 {
		t.Fatalf("remaining = %d, want 5", got)
	}
	rl.Allow("client")
	if got := rl.Remaining("client"); got != 4 {
		t.Fatalf("remaining = %d, want 4", got)
	}
}
