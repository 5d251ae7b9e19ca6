package mac

import (
	"testing"

	"github.com/LonMarkTech/lon-stack-dx-lmi-sub001/pkg/clock"
	"github.com/LonMarkTech/lon-stack-dx-lmi-sub001/pkg/xcvrlink"
)

// fakeClock is a manually-advanced clock.Source used so MAC timer math
// can be tested without sleeping on wall-clock time.
type fakeClock struct {
	t    clock.Tick
	rate uint64
}

func (f *fakeClock) Now() clock.Tick { return f.t }
func (f *fakeClock) Rate() uint64    { return f.rate }
func (f *fakeClock) Advance(d clock.Tick) {
	f.t += d
}

func zeroTiming() TimingConfig {
	return TimingConfig{
		ConfigReserved:    [3]byte{0, 1, 0},
		ChannelPriorities: 0,
		NodePriority:      0,
		Nts:               1,
	}
}

// TestBacklogBoundsUnderCollisionScenario exercises spec.md §8 scenario 3:
// preload backlog=5, non-priority packet, force a collision on the first
// transmitted byte, and check backlog/collision bookkeeping.
func TestBacklogBoundsUnderCollisionScenario(t *testing.T) {
	src := &fakeClock{rate: 1}
	link := xcvrlink.NewMock()
	timing := zeroTiming()
	e := NewEngine(link, src, timing, func(n int) int { return 0 })
	e.backlog.Increment(5)

	if ok := e.SubmitTx(TxRequest{Priority: false, Data: []byte{0xAA, 0xBB}}); !ok {
		t.Fatal("expected SubmitTx to accept the first packet")
	}

	// BUSY -> BETA1_IDLE
	e.tick(xcvrlink.RxFrame{}, true)
	if e.phase != PhaseBeta1Idle {
		t.Fatalf("expected BETA1_IDLE, got %s", e.phase)
	}
	beta1 := e.beta1

	// Wait out beta1 -> PRIORITY_IDLE (non-priority packet).
	src.Advance(beta1)
	e.tick(xcvrlink.RxFrame{}, true)
	if e.phase != PhasePriorityIdle {
		t.Fatalf("expected PRIORITY_IDLE, got %s", e.phase)
	}

	// Wait out priorityChannelTicks+beta1 -> RANDOM_WAIT_TX (packet ready).
	total := timing.PriorityChannelTicks(!e.lastActivityRx) + beta1
	src.Advance(total)
	e.tick(xcvrlink.RxFrame{}, true)
	if e.phase != PhaseRandomWaitTx {
		t.Fatalf("expected RANDOM_WAIT_TX, got %s", e.phase)
	}

	// rng is pinned to 0 so randomTicks == 0: immediately eligible for START_TX.
	e.tick(xcvrlink.RxFrame{}, true)
	if e.phase != PhaseStartTx {
		t.Fatalf("expected START_TX, got %s", e.phase)
	}

	// START_TX -> handshake REQ_TX.
	e.tick(xcvrlink.RxFrame{}, true)
	if e.handshake != HandshakeReqTx {
		t.Fatalf("expected REQ_TX handshake, got %s", e.handshake)
	}

	// Transceiver clears the request and grants CTS -> TRANSMIT.
	e.tick(xcvrlink.RxFrame{ClrTxReqFlag: true, TxDataCTS: true, SetTxFlag: true}, true)
	if e.handshake != HandshakeTransmit {
		t.Fatalf("expected TRANSMIT handshake, got %s", e.handshake)
	}

	// Force a collision on the first transmitted byte.
	e.tick(xcvrlink.RxFrame{SetCollDet: true}, true)

	if got := e.Backlog(); got != 6 {
		t.Fatalf("expected backlog=6 after collision, got %d", got)
	}
	if got := e.CollisionsThisPacket(); got != 1 {
		t.Fatalf("expected 1 collision on this packet, got %d", got)
	}
	if e.phase != PhaseBeta1Idle {
		t.Fatalf("expected state to return to an idle phase, got %s", e.phase)
	}
	if got := e.Stats().Collisions; got != 1 {
		t.Fatalf("expected collisions statistic = 1, got %d", got)
	}
	if !e.Pending() {
		t.Fatal("packet should still be pending after a single collision (dropped only after 255)")
	}
}

// TestBacklogNeverExceedsBounds is a property check: for an arbitrary
// sequence of increments/decrements, backlog stays within [0, 63].
func TestBacklogNeverExceedsBounds(t *testing.T) {
	var b Backlog
	deltas := []int{10, 20, 40, -100, 5, 5, 5, 5, 5, 5, 5, 5, 70, -1000}
	for _, d := range deltas {
		if d >= 0 {
			b.Increment(d)
		} else {
			b.Decrement(-d)
		}
		if b.Value() < 0 || b.Value() > 63 {
			t.Fatalf("backlog out of bounds: %d", b.Value())
		}
	}
}

func TestBacklogRejectsOutOfRangeDelta(t *testing.T) {
	var b Backlog
	b.Increment(64)
	if b.Value() != 0 {
		t.Fatalf("expected out-of-range delta to be rejected, got %d", b.Value())
	}
	if b.Overflow() != 1 {
		t.Fatalf("expected overflow counter to increment, got %d", b.Overflow())
	}
}

func TestHardResetAfterSustainedTxOn(t *testing.T) {
	src := &fakeClock{rate: 1}
	link := xcvrlink.NewMock()
	timing := zeroTiming()
	e := NewEngine(link, src, timing, func(n int) int { return 0 })
	e.handshake = HandshakeDoneTx
	e.pending = &TxRequest{Data: []byte{0x01}}

	found := false
	for i := 0; i < ResetCountLimit+1; i++ {
		for _, ev := range e.tick(xcvrlink.RxFrame{TxOn: true}, true) {
			if ev == EventHardReset {
				found = true
			}
		}
	}
	if !found {
		t.Fatal("expected a hard reset event after sustained txOn")
	}
	if link.Resets() == 0 {
		t.Fatal("expected the transceiver link to observe a hard reset")
	}
}
