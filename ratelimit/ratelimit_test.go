package ratelimit

import (
	"testing"
	"time"
)

func TestLimiter_NewFromKbps(t *testing.T) {
	l := NewFromKbps(8000)
	want := 8000.0 * 1000 / 8
	if l.Ceiling() != want {
		t.Errorf("expected ceiling %v, got %v", want, l.Ceiling())
	}
}

func TestLimiter_EnforceBlocksOverCeiling(t *testing.T) {
	l := New(100) // 100 bytes/sec

	fakeNow := time.Unix(1000, 0)
	l.now = func() time.Time { return fakeNow }
	l.start = fakeNow

	var slept time.Duration
	l.sleep = func(d time.Duration) {
		slept += d
		fakeNow = fakeNow.Add(time.Second) // make next check pass
	}

	l.Account(1000) // way over ceiling for the first instant
	l.Enforce()

	if slept == 0 {
		t.Errorf("expected Enforce to sleep when over ceiling")
	}
}

func TestLimiter_EnforceNoopUnderCeiling(t *testing.T) {
	l := New(1_000_000)

	fakeNow := time.Unix(1000, 0)
	l.now = func() time.Time { return fakeNow }
	l.start = fakeNow.Add(-time.Second) // 10 bytes over one second

	l.Account(10)

	slept := false
	l.sleep = func(time.Duration) { slept = true }

	l.Enforce()
	if slept {
		t.Errorf("did not expect Enforce to sleep under ceiling")
	}
}

func TestLimiter_RestartZeroesAccumulator(t *testing.T) {
	l := New(100)
	l.Account(500)
	l.Restart()

	slept := false
	l.sleep = func(time.Duration) { slept = true }
	l.Enforce()
	if slept {
		t.Errorf("did not expect Enforce to sleep immediately after restart")
	}
}
