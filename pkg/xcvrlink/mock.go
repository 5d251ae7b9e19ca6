package xcvrlink

import "fmt"

// Mock is a scripted XcvrLink used by tests: it plays back a fixed
// sequence of RxFrame values and records every TxFrame/reset it is asked
// to perform, mirroring the teacher's pkg/capture/playback.go approach of
// driving protocol handlers from a recorded sequence instead of a live
// pcap handle.
type Mock struct {
	script       []RxFrame
	pos          int
	sent         []TxFrame
	resets       int
	registers    ConfigRegisters
	pushedRegs   []ConfigRegisters
	backlog      int
	txPending    bool
	enabled      bool
	xcvrParam    XcvrParam
	failNextInit bool
}

// NewMock creates a Mock transceiver with the given scripted receive
// frames, played back in order by successive RecvFrame calls.
func NewMock(script ...RxFrame) *Mock {
	return &Mock{script: script, xcvrParam: XcvrParam{Valid: true}}
}

// Enable implements XcvrLink.
func (m *Mock) Enable() error {
	m.enabled = true
	return nil
}

// Disable implements XcvrLink.
func (m *Mock) Disable() error {
	m.enabled = false
	return nil
}

// ResetHard implements XcvrLink. It re-pushes the six configuration
// registers in reverse order, matching spec.md §4.2's recovery
// procedure, retrying from the top if failNextInit simulates a missed
// ack.
func (m *Mock) ResetHard() error {
	m.resets++
	for attempt := 0; attempt < 2; attempt++ {
		var pushed ConfigRegisters
		ok := true
		for i := len(m.registers) - 1; i >= 0; i-- {
			if m.failNextInit && attempt == 0 {
				ok = false
				break
			}
			pushed[i] = m.registers[i]
		}
		if ok {
			m.pushedRegs = append(m.pushedRegs, pushed)
			m.failNextInit = false
			return nil
		}
	}
	return fmt.Errorf("xcvrlink: hard reset failed to re-push config registers")
}

// SetConfigRegisters sets the registers ResetHard will re-push.
func (m *Mock) SetConfigRegisters(r ConfigRegisters) {
	m.registers = r
}

// PushedRegisterSequences returns every register set pushed by a
// successful ResetHard, in call order, for test assertions.
func (m *Mock) PushedRegisterSequences() []ConfigRegisters {
	return m.pushedRegs
}

// FailNextInit arms a single simulated missed-ack on the next ResetHard.
func (m *Mock) FailNextInit() {
	m.failNextInit = true
}

// Resets returns the number of ResetHard calls observed.
func (m *Mock) Resets() int {
	return m.resets
}

// SendFrame implements XcvrLink.
func (m *Mock) SendFrame(f TxFrame) error {
	m.sent = append(m.sent, f)
	return nil
}

// Sent returns every frame passed to SendFrame, in order.
func (m *Mock) Sent() []TxFrame {
	return m.sent
}

// RecvFrame implements XcvrLink, playing back the scripted sequence.
func (m *Mock) RecvFrame() (RxFrame, bool) {
	if m.pos >= len(m.script) {
		return RxFrame{}, false
	}
	f := m.script[m.pos]
	m.pos++
	return f, true
}

// Push appends a frame to the end of the playback script, letting tests
// feed frames incrementally (e.g. simulating a collision mid-test).
func (m *Mock) Push(f RxFrame) {
	m.script = append(m.script, f)
}

// SetBacklog sets the value Status/Backlog report.
func (m *Mock) SetBacklog(n int) {
	m.backlog = n
}

// SetTxPending sets the value Status reports for the transmit-pending
// signal.
func (m *Mock) SetTxPending(p bool) {
	m.txPending = p
}

// Status implements XcvrLink.
func (m *Mock) Status() (int, bool) {
	return m.backlog, m.txPending
}

// Backlog implements XcvrLink.
func (m *Mock) Backlog() int {
	return m.backlog
}

// SetXcvrParams sets the value XcvrParams reports.
func (m *Mock) SetXcvrParams(p XcvrParam) {
	m.xcvrParam = p
}

// XcvrParams implements XcvrLink.
func (m *Mock) XcvrParams() XcvrParam {
	return m.xcvrParam
}

var _ XcvrLink = (*Mock)(nil)
