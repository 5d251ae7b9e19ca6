// Package mac implements the predictive p-persistent CSMA channel-access
// engine (spec.md §4.2): phase state machine, backlog accounting, cycle
// timer, priority slots, collision recovery, and the handshake with the
// transceiver through the framed SPI exchange (pkg/xcvrlink).
//
// Grounded on the teacher's pkg/protocols/stack.go scheduler/thread model
// and pkg/protocols/stp.go's timed state machine, generalized to the
// LonTalk MAC's phases and timers.
package mac

import (
	"github.com/LonMarkTech/lon-stack-dx-lmi-sub001/pkg/clock"
	"github.com/LonMarkTech/lon-stack-dx-lmi-sub001/pkg/queue"
	"github.com/LonMarkTech/lon-stack-dx-lmi-sub001/pkg/xcvrlink"
)

// RESET_COUNT_LIMIT bounds how many consecutive frames the transceiver
// may hold txOn asserted past DONE_TX before a hard reset is issued
// (spec.md §4.2).
const ResetCountLimit = 16

// maxCollisionsPerPacket is spec.md §4.2's "a packet is silently dropped
// after 255 same-packet collisions".
const maxCollisionsPerPacket = 255

// TxRequest is a transmit-ready buffer with its attached delta-backlog
// and priority flag (spec.md §4.2's MAC contract).
type TxRequest struct {
	Priority bool
	AltPath  bool
	DeltaBL  int
	Data     []byte
}

// RxIndication is a CRC-checked frame delivered to the link layer input
// queue, with the transceiver-reported signal snapshot attached.
type RxIndication struct {
	Data      []byte
	XcvrParam xcvrlink.XcvrParam
}

// Event reports a MAC-level occurrence the caller (link layer /
// scheduler) should observe.
type Event int

const (
	EventNone Event = iota
	EventTxComplete
	EventTxDroppedAfterCollisions
	EventHardReset
)

// Stats are the MAC-level statistics named by spec.md §7/§8.
type Stats struct {
	Collisions      uint64
	BacklogOverflow uint64
	Resets          uint64
}

// Engine is the MAC channel-access state machine.
type Engine struct {
	link   xcvrlink.XcvrLink
	src    clock.Source
	timing TimingConfig
	rng    func(n int) int

	phase     Phase
	handshake Handshake
	backlog   Backlog

	idleTimerStart clock.Tick
	beta1          clock.Tick
	lastActivityRx bool
	altPathWritten bool

	transmitTimerStart clock.Tick
	transmitTimerDur   clock.Tick

	cycleTimer clock.Timer
	wbaseTimer clock.Timer

	pending              *TxRequest
	collisionsThisPacket int
	txByteIndex          int
	rxBuf                []byte
	doneTxWaitFrames     int

	ownsPrioritySlot bool

	rxQueue *queue.Queue[RxIndication]
	stats   Stats
}

// NewEngine creates a MAC engine driving link through src's clock,
// parameterized by timing. rng, if nil, defaults to a simple LCG seeded
// from the clock so behavior is reproducible in tests that supply a
// fixed clock.Source.
func NewEngine(link xcvrlink.XcvrLink, src clock.Source, timing TimingConfig, rng func(n int) int) *Engine {
	if rng == nil {
		rng = defaultRNG(src)
	}
	return &Engine{
		link:             link,
		src:              src,
		timing:           timing,
		rng:              rng,
		phase:            PhaseBusy,
		handshake:        HandshakeIdle,
		ownsPrioritySlot: timing.NodePriority > 0,
		rxQueue:          queue.New[RxIndication](32),
	}
}

func defaultRNG(src clock.Source) func(int) int {
	state := uint64(src.Now()) | 1
	return func(n int) int {
		if n <= 0 {
			return 0
		}
		state = state*6364136223846793005 + 1442695040888963407
		return int((state >> 33) % uint64(n))
	}
}

// Phase returns the current MAC phase.
func (e *Engine) Phase() Phase { return e.phase }

// HandshakeState returns the current transceiver handshake sub-state.
func (e *Engine) HandshakeState() Handshake { return e.handshake }

// Backlog returns the current channel backlog estimate (0..63).
func (e *Engine) Backlog() int { return e.backlog.Value() }

// Stats returns a copy of the MAC statistics.
func (e *Engine) Stats() Stats { return e.stats }

// RxQueue returns the queue of CRC-checked received frames delivered to
// the link layer.
func (e *Engine) RxQueue() *queue.Queue[RxIndication] { return e.rxQueue }

// CollisionsThisPacket returns the collision count for the packet
// currently (or most recently) being transmitted.
func (e *Engine) CollisionsThisPacket() int { return e.collisionsThisPacket }

// SubmitTx hands a transmit-ready buffer to the MAC. Returns false if a
// packet is already pending (the MAC holds exactly one at a time, per
// spec.md §4.2's "Given a transmit-ready byte buffer").
func (e *Engine) SubmitTx(req TxRequest) bool {
	if e.pending != nil {
		return false
	}
	e.pending = &req
	e.collisionsThisPacket = 0
	e.txByteIndex = 0
	return true
}

// Pending reports whether a transmit-ready buffer is currently held.
func (e *Engine) Pending() bool { return e.pending != nil }

// Tick advances the state machine by one ISR-equivalent step, reading at
// most one frame from the transceiver link.
func (e *Engine) Tick() []Event {
	frame, ok := e.link.RecvFrame()
	return e.tick(frame, ok)
}

func (e *Engine) tick(frame xcvrlink.RxFrame, haveFrame bool) []Event {
	var events []Event

	if haveFrame {
		e.accumulateRx(frame)
	}

	busy := haveFrame && (frame.RxFlag || frame.TxOn)

	switch e.phase {
	case PhaseBusy:
		if busy {
			if frame.RxFlag {
				e.lastActivityRx = true
			} else if frame.TxOn {
				e.lastActivityRx = false
			}
			break
		}
		e.idleTimerStart = e.src.Now()
		if e.lastActivityRx {
			e.beta1 = e.timing.Beta1PostRx()
		} else {
			e.beta1 = e.timing.Beta1PostTx()
		}
		e.altPathWritten = false
		e.phase = PhaseBeta1Idle

	case PhaseBeta1Idle:
		if busy {
			e.phase = PhaseBusy
			break
		}
		if e.pending != nil && !e.altPathWritten {
			e.writeAltPathUnacked()
			e.altPathWritten = true
		}
		if clock.Elapsed(e.src, e.idleTimerStart) >= e.beta1 {
			if e.pending != nil && e.pending.Priority && e.ownsPrioritySlot &&
				e.lastActivityRx && e.collisionsThisPacket < 2 {
				e.phase = PhasePriorityWaitTx
				e.transmitTimerStart = e.idleTimerStart + e.beta1
				e.transmitTimerDur = e.timing.PriorityNodeTicks()
			} else {
				e.phase = PhasePriorityIdle
			}
		}

	case PhasePriorityIdle:
		if busy {
			e.phase = PhaseBusy
			break
		}
		total := e.timing.PriorityChannelTicks(!e.lastActivityRx) + e.beta1
		if clock.Elapsed(e.src, e.idleTimerStart) >= total {
			if e.pending != nil {
				e.enterRandomWait()
			} else {
				e.phase = PhaseRandomIdle
				e.cycleTimer.SetTicks(e.src, e.timing.CycleTicks())
			}
		}

	case PhaseRandomIdle:
		if busy {
			e.phase = PhaseBusy
			break
		}
		if e.cycleTimer.Expired(e.src) {
			e.backlog.Decrement(1)
			e.cycleTimer.SetTicks(e.src, e.timing.CycleTicks())
		}
		if e.pending != nil {
			e.enterRandomWait()
		}

	case PhasePriorityWaitTx:
		if busy {
			e.phase = PhaseBusy
			break
		}
		if clock.Elapsed(e.src, e.transmitTimerStart) >= e.transmitTimerDur {
			e.phase = PhaseStartTx
		}

	case PhaseRandomWaitTx:
		if busy {
			e.phase = PhaseBusy
			break
		}
		if e.wbaseTimer.Expired(e.src) {
			e.backlog.Decrement(1)
			e.wbaseTimer.SetTicks(e.src, e.timing.Wbase())
		}
		if clock.Elapsed(e.src, e.transmitTimerStart) >= e.transmitTimerDur {
			e.phase = PhaseStartTx
		}

	case PhaseStartTx:
		if e.handshake == HandshakeIdle {
			if !busy && e.pending != nil {
				e.handshake = HandshakeReqTx
			} else {
				e.idleTimerStart = e.src.Now()
				e.phase = PhaseBeta1Idle
			}
		}
	}

	if ev, ok := e.driveHandshake(frame, haveFrame); ok {
		events = append(events, ev)
	}

	return events
}

func (e *Engine) enterRandomWait() {
	r := e.rng(int(e.backlog.Value()+1) * 16)
	e.transmitTimerStart = e.src.Now()
	e.transmitTimerDur = clock.Tick(r) * e.timing.Beta2()
	e.wbaseTimer.SetTicks(e.src, e.timing.Wbase())
	e.phase = PhaseRandomWaitTx
}

// LastRandomWindowTicks exposes the most recently drawn random backoff, in
// ticks, for test assertions against spec.md §8 scenario 3's "next
// random draw ∈ [0, 6·16·β2]".
func (e *Engine) LastRandomWindowTicks() clock.Tick {
	return e.transmitTimerDur
}

func (e *Engine) writeAltPathUnacked() {
	_ = e.link.SendFrame(xcvrlink.TxFrame{TxAddrRW: true, TxAddr: 0x1})
}

// accumulateRx buffers payload bytes while a receive frame is in
// progress and, once the frame completes (RxFlag drops after having
// been set), verifies its CRC and delivers it to the link layer queue,
// applying the receive-side backlog adjustment from spec.md §4.2.
func (e *Engine) accumulateRx(frame xcvrlink.RxFrame) {
	if frame.RxFlag {
		e.rxBuf = append(e.rxBuf, frame.Data)
		return
	}
	if len(e.rxBuf) == 0 {
		return
	}
	buf := e.rxBuf
	e.rxBuf = nil
	if !VerifyCRC(buf) {
		return
	}
	payload := buf[:len(buf)-2]
	if len(payload) > 0 {
		e.backlog.ApplyRxResult(DeltaBLFromFirstByte(payload[0]))
	}
	e.rxQueue.Push(RxIndication{
		Data:      payload,
		XcvrParam: e.link.XcvrParams(),
	})
}

// driveHandshake advances the independent transceiver handshake state
// machine (spec.md §4.2), returning a terminal event if one occurred.
func (e *Engine) driveHandshake(frame xcvrlink.RxFrame, haveFrame bool) (Event, bool) {
	switch e.handshake {
	case HandshakeReqTx:
		if !haveFrame {
			return EventNone, false
		}
		if frame.ClrTxReqFlag {
			if frame.TxDataCTS && frame.SetTxFlag {
				e.handshake = HandshakeTransmit
				e.txByteIndex = 0
			} else {
				e.handshake = HandshakeIdle
				e.phase = PhaseBeta1Idle
				e.idleTimerStart = e.src.Now()
			}
		}

	case HandshakeTransmit:
		if frame.SetCollDet {
			e.backlog.Increment(1)
			e.collisionsThisPacket++
			e.stats.Collisions++
			if e.collisionsThisPacket >= maxCollisionsPerPacket {
				e.pending = nil
				e.handshake = HandshakeIdle
				e.phase = PhaseBeta1Idle
				e.idleTimerStart = e.src.Now()
				return EventTxDroppedAfterCollisions, true
			}
			e.handshake = HandshakeIdle
			e.phase = PhaseBeta1Idle
			e.idleTimerStart = e.src.Now()
			return EventNone, false
		}
		if e.pending != nil && e.txByteIndex < len(e.pending.Data) {
			_ = e.link.SendFrame(xcvrlink.EncodeTxData(e.pending.Data[e.txByteIndex]))
			e.txByteIndex++
		}
		if e.pending != nil && e.txByteIndex >= len(e.pending.Data) {
			e.handshake = HandshakeDoneTx
			e.doneTxWaitFrames = 0
		}

	case HandshakeDoneTx:
		if !haveFrame || !frame.TxOn {
			deltaBL := 0
			if e.pending != nil {
				deltaBL = e.pending.DeltaBL
			}
			e.backlog.ApplyTxResult(deltaBL)
			e.pending = nil
			e.handshake = HandshakeIdle
			e.phase = PhaseBeta1Idle
			e.idleTimerStart = e.src.Now()
			return EventTxComplete, true
		}
		e.doneTxWaitFrames++
		if e.doneTxWaitFrames >= ResetCountLimit {
			e.stats.Resets++
			_ = e.link.ResetHard()
			e.handshake = HandshakeIdle
			e.phase = PhaseBusy
			return EventHardReset, true
		}
	}
	return EventNone, false
}
