// Package clock provides the monotonic tick counter and millisecond timer
// abstraction the MAC engine and application dispatch are built against.
// Production firmware drives this from a 25MHz hardware timer ISR; tests
// and the host CLI drive it from a goroutine ticking against time.Now.
package clock

import "time"

// Tick is a monotonic count of clock units since the clock was created.
// The MAC engine's timers (spec.md §4.2) are expressed in 25MHz ticks
// (40ns each); Source.Rate reports how many Ticks correspond to one
// second so callers can convert between ticks and wall time.
type Tick uint64

// Source is the clock abstraction consumed by the rest of the stack.
// A Source never blocks: Now returns immediately with the latest known
// tick count.
type Source interface {
	// Now returns the current tick count.
	Now() Tick
	// Rate returns the number of ticks per second.
	Rate() uint64
}

// Monotonic is a Source backed by time.Now, scaled to a caller-chosen
// tick rate. It is the reference implementation used by tests, the CLI,
// and any host that does not have direct access to the 25MHz hardware
// timer.
type Monotonic struct {
	start time.Time
	rate  uint64
}

// NewMonotonic creates a Source ticking at ticksPerSecond, anchored to the
// moment of creation.
func NewMonotonic(ticksPerSecond uint64) *Monotonic {
	if ticksPerSecond == 0 {
		ticksPerSecond = 25_000_000
	}
	return &Monotonic{start: time.Now(), rate: ticksPerSecond}
}

// Now implements Source.
func (m *Monotonic) Now() Tick {
	elapsed := time.Since(m.start)
	return Tick(uint64(elapsed.Seconds() * float64(m.rate)))
}

// Rate implements Source.
func (m *Monotonic) Rate() uint64 {
	return m.rate
}

// Timer is a one-shot millisecond-granularity deadline measured in clock
// ticks. Zero value is "not set" (Expired reports false until Set).
type Timer struct {
	deadline Tick
	set      bool
}

// Set arms the timer to expire after d from now, as observed on src.
func (t *Timer) Set(src Source, d time.Duration) {
	ticks := Tick(uint64(d.Seconds() * float64(src.Rate())))
	t.deadline = src.Now() + ticks
	t.set = true
}

// SetTicks arms the timer to expire after the given number of raw ticks.
func (t *Timer) SetTicks(src Source, ticks Tick) {
	t.deadline = src.Now() + ticks
	t.set = true
}

// Expired reports whether the timer is armed and its deadline has passed.
func (t *Timer) Expired(src Source) bool {
	return t.set && src.Now() >= t.deadline
}

// Clear disarms the timer.
func (t *Timer) Clear() {
	t.set = false
}

// Armed reports whether Set/SetTicks has been called without a matching
// Clear.
func (t *Timer) Armed() bool {
	return t.set
}

// Elapsed returns how many ticks have passed since the timer was armed
// relative to startTick. Used by the MAC engine's idle-timer accounting
// (spec.md §4.2 "now - idleTimerStart").
func Elapsed(src Source, startTick Tick) Tick {
	now := src.Now()
	if now < startTick {
		return 0
	}
	return now - startTick
}
