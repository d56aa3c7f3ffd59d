package api

import (
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiterPerClient(t *testing.T) {
	rl := NewRateLimiter(0.001, 2, time.Minute)
	for i := 0; i < 2; i++ {
		if ok, _ := rl.Allow("a"); !ok {
			t.Fatalf("Request %d should pass within burst", i+1)
		}
	}
	ok, retry := rl.Allow("a")
	if ok || retry <= 0 {
		t.Errorf("Expected limited with positive retry, got ok=%v retry=%s", ok, retry)
	}
	if ok, _ := rl.Allow("b"); !ok {
		t.Error("Other client should have its own bucket")
	}
}

func TestRateLimiterSweep(t *testing.T) {
	rl := NewRateLimiter(1, 1, time.Minute)
	rl.Allow("a")
	if n := rl.Sweep(time.Now()); n != 0 {
		t.Errorf("Fresh client swept: %d", n)
	}
	if n := rl.Sweep(time.Now().Add(2 * time.Minute)); n != 1 {
		t.Errorf("Expected idle client swept, got %d", n)
	}
}

func TestClientKey(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "10.0.0.1:5555"
	if got := clientKey(r); got != "10.0.0.1" {
		t.Errorf("clientKey() = %q", got)
	}
	r.Header.Set("X-Forwarded-For", "1.2.3.4, 10.0.0.1")
	if got := clientKey(r); got != "1.2.3.4" {
		t.Errorf("clientKey() with XFF = %q", got)
	}
}
