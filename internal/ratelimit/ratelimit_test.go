package ratelimit

import (
	"testing"
	"time"
)

func newTestLimiter(limit int, window time.Duration) (*Limiter, *time.Time) {
	l := New(limit, window)
	now := time.Unix(1_700_000_000, 0)
	l.now = func() time.Time { return now }
	return l, &now
}

func TestAllowExhaustsAndRefills(t *testing.T) {
	l, now := newTestLimiter(3, time.Minute)
	defer l.Stop()

	for i := 0; i < 3; i++ {
		if ok, _ := l.Allow("10.0.0.1"); !ok {
			t.Fatalf("request %d rejected", i)
		}
	}
	ok, wait := l.Allow("10.0.0.1")
	if ok {
		t.Fatal("fourth request allowed")
	}
	if wait <= 0 || wait > 20*time.Second {
		t.Fatalf("retry after = %v, want within one refill interval", wait)
	}

	if ok, _ := l.Allow("10.0.0.2"); !ok {
		t.Fatal("other client limited")
	}

	*now = now.Add(21 * time.Second)
	if ok, _ := l.Allow("10.0.0.1"); !ok {
		t.Fatal("token not refilled after 21s")
	}
	if ok, _ := l.Allow("10.0.0.1"); ok {
		t.Fatal("refill exceeded rate")
	}
}

func TestReset(t *testing.T) {
	l, _ := newTestLimiter(1, time.Minute)
	defer l.Stop()
	l.Allow("k")
	if ok, _ := l.Allow("k"); ok {
		t.Fatal("second request allowed")
	}
	l.Reset("k")
	if ok, _ := l.Allow("k"); !ok {
		t.Fatal("request rejected after reset")
	}
}

func TestEvictIdle(t *testing.T) {
	l, now := newTestLimiter(5, time.Minute)
	defer l.Stop()
	l.Allow("old")
	*now = now.Add(90 * time.Second)
	l.Allow("fresh")
	*now = now.Add(45 * time.Second)
	l.evictIdle()
	if l.Len() != 1 {
		t.Fatalf("tracked keys = %d, want 1", l.Len())
	}
	l.Stop()
	l.Stop()
}
