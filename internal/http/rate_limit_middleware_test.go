package httpx

import (
	"testing"
	"time"
)

func TestMemoryRateLimiterEnforcesWindow(t *testing.T) {
	rl := NewMemoryRateLimiter()
	defer rl.Close()

	for i := 0; i < 3; i++ {
		if d := rl.Allow("user:u1", 3, time.Minute); !d.allowed {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	d := rl.Allow("user:u1", 3, time.Minute)
	if d.allowed {
		t.Fatal("fourth request in the window must be rejected")
	}
	if d.count != 3 {
		t.Fatalf("expected count pinned at limit, got %d", d.count)
	}
}

func TestMemoryRateLimiterIsolatesKeys(t *testing.T) {
	rl := NewMemoryRateLimiter()
	defer rl.Close()

	if d := rl.Allow("user:u1", 1, time.Minute); !d.allowed {
		t.Fatal("first key should be allowed")
	}
	if d := rl.Allow("user:u1", 1, time.Minute); d.allowed {
		t.Fatal("first key should now be limited")
	}
	if d := rl.Allow("user:u2", 1, time.Minute); !d.allowed {
		t.Fatal("second key must have its own window")
	}
}

func TestMemoryRateLimiterZeroLimitDisables(t *testing.T) {
	rl := NewMemoryRateLimiter()
	defer rl.Close()

	for i := 0; i < 10; i++ {
		if d := rl.Allow("user:u1", 0, time.Minute); !d.allowed {
			t.Fatal("zero limit disables rate limiting")
		}
	}
}

func TestMemoryRateLimiterCleanupExpiresWindows(t *testing.T) {
	rl := &memoryRateLimiter{entries: make(map[string]rateState), stopCh: make(chan struct{})}
	rl.entries["stale"] = rateState{count: 5, windowEnd: time.Now().Add(-time.Minute)}
	rl.entries["live"] = rateState{count: 1, windowEnd: time.Now().Add(time.Minute)}

	rl.cleanup(time.Now())
	if _, ok := rl.entries["stale"]; ok {
		t.Fatal("expired window must be swept")
	}
	if _, ok := rl.entries["live"]; !ok {
		t.Fatal("active window must survive the sweep")
	}
}

func TestRateMetricKeyStripsIdentifier(t *testing.T) {
	if got := rateMetricKey("user:abc"); got != "user" {
		t.Fatalf("expected user, got %q", got)
	}
	if got := rateMetricKey("ip:10.0.0.1"); got != "ip" {
		t.Fatalf("expected ip, got %q", got)
	}
	if got := rateMetricKey(""); got != "unknown" {
		t.Fatalf("expected unknown, got %q", got)
	}
}
