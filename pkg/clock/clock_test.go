package clock

import (
	"testing"
	"time"
)

func TestMonotonicRateConversion(t *testing.T) {
	src := NewMonotonic(1000) // 1000 ticks/sec for a fast, deterministic test
	start := src.Now()
	time.Sleep(5 * time.Millisecond)
	if src.Now() <= start {
		t.Fatalf("expected ticks to advance, start=%d now=%d", start, src.Now())
	}
}

func TestTimerExpired(t *testing.T) {
	src := NewMonotonic(1_000_000)
	var timer Timer
	if timer.Expired(src) {
		t.Fatal("unarmed timer must not report expired")
	}
	timer.Set(src, time.Millisecond)
	if timer.Expired(src) {
		t.Fatal("timer should not be expired immediately")
	}
	time.Sleep(5 * time.Millisecond)
	if !timer.Expired(src) {
		t.Fatal("timer should be expired after its duration elapsed")
	}
	timer.Clear()
	if timer.Armed() {
		t.Fatal("cleared timer should not be armed")
	}
}

func TestElapsedClampsAtZero(t *testing.T) {
	src := NewMonotonic(1000)
	if got := Elapsed(src, Tick(^uint64(0))); got != 0 {
		t.Fatalf("expected 0 for a start tick in the future, got %d", got)
	}
}
