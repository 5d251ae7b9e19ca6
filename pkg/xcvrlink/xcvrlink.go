// Package xcvrlink hides the hardware-specific SPI/GPIO transceiver
// driver (out of scope per spec.md §1) behind a small interface, and
// defines the 16-bit SPM frame bit layout (spec.md §6) exchanged with it.
// Grounded on the teacher's pkg/capture Engine: an interface abstraction
// over a physical medium with open/close/send/read/status methods.
package xcvrlink

// RxFrame is one 16-bit frame received from the transceiver (spec.md §6).
type RxFrame struct {
	SetTxFlag    bool
	ClrTxReqFlag bool
	RxDataValid  bool
	TxDataCTS    bool
	SetCollDet   bool
	RxFlag       bool
	RWAck        bool
	TxOn         bool
	Data         byte
}

// TxFrame is one 16-bit frame sent to the transceiver (spec.md §6).
type TxFrame struct {
	TxFlag      bool
	TxReqFlag   bool
	TxDataValid bool
	TxAddrRW    bool
	TxAddr      uint8 // 3 bits
	Data        byte
}

// txFrameDataTag is the high nibble prefix spec.md §4.2 documents for
// streamed transmit-data frames ("Tx-frame encoding 0xA0 + data").
const txFrameDataTag = 0xA0

// EncodeTxData builds a streamed-data Tx frame carrying one payload byte,
// matching spec.md §4.2's "0xA0 + data" encoding.
func EncodeTxData(data byte) TxFrame {
	return TxFrame{TxDataValid: true, Data: data}
}

// Pack16 encodes a TxFrame into its 16-bit wire representation. Bit 15 is
// the tag nibble's top bit per the 0xA0 data-frame convention; callers
// that need raw register frames (config writes) use the named boolean
// fields directly via the XcvrLink implementation instead of Pack16.
func (f TxFrame) Pack16() uint16 {
	var v uint16 = txFrameDataTag << 8
	v |= uint16(f.Data)
	if f.TxFlag {
		v |= 1 << 15
	}
	if f.TxReqFlag {
		v |= 1 << 14
	}
	if f.TxDataValid {
		v |= 1 << 13
	}
	if f.TxAddrRW {
		v |= 1 << 11
	}
	v |= uint16(f.TxAddr&0x7) << 8
	return v
}

// XcvrLink is the interface the MAC engine is written against. A real
// implementation drives the hardware SPI transceiver; tests and the host
// CLI use a Mock.
type XcvrLink interface {
	// Enable powers on / activates the transceiver.
	Enable() error
	// Disable powers down the transceiver.
	Disable() error
	// ResetHard performs a hard reset and re-pushes configuration
	// registers, per spec.md §4.2's failure-recovery procedure.
	ResetHard() error
	// SendFrame writes one Tx frame to the transceiver.
	SendFrame(TxFrame) error
	// RecvFrame reads the next Rx frame, if one is pending. ok is false
	// if no frame is currently available.
	RecvFrame() (frame RxFrame, ok bool)
	// Status reports the current backlog estimate (0..63) and transmit-
	// pending signal exposed by the transceiver.
	Status() (backlog int, txPending bool)
	// Backlog returns the transceiver-reported channel backlog.
	Backlog() int
	// XcvrParams returns the most recently observed signal-strength /
	// transceiver parameter snapshot (spec.md §4.3's XcvrParam).
	XcvrParams() XcvrParam
}

// XcvrParam is the transceiver-reported signal snapshot attached to
// received link-layer frames (spec.md §4.3, §4.7 QUERY_XCVR).
type XcvrParam struct {
	Valid      bool
	SignalDB   int8
	Collisions uint8
}

// ConfigRegisters holds the six configuration registers spec.md §4.2
// requires a hard reset to re-push in reverse order.
type ConfigRegisters [6]byte
