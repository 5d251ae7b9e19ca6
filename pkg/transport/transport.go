// Package transport implements the Transport/Session/Auth (TSA) layer of
// spec.md §4.5: acknowledged/request/response retries driven by an
// address-table entry's timer/retry fields, duplicate detection keyed on
// (source, TID, priority), and the two-message challenge/reply
// authentication handshake.
//
// Grounded on the teacher's pkg/protocols/tcp.go retry/ack bookkeeping
// (per-connection retransmit timer and retry counter) and
// pkg/snmp/agent.go's request/response correlation style, retargeted from
// sockets to LonTalk's addressed PDU exchange.
package transport

import (
	"github.com/LonMarkTech/lon-stack-dx-lmi-sub001/pkg/clock"
)

// Service selects the TSA delivery semantics of a transmit request
// (spec.md §4.5).
type Service int

const (
	ServiceUnackd Service = iota
	ServiceAckd
	ServiceRequest
	ServiceUnackdRpt
)

// AddrTableEntry carries the per-attempt retry timer and retry count that
// drive ACKD/REQUEST retransmission (spec.md §6 "Address table entry").
type AddrTableEntry struct {
	RetryCount  int
	RptTimer    clock.Tick // per-attempt timeout
	GroupFlag   bool
	GroupSize   int // response collection target for REQUEST on MULTICAST_ACK
}

// OutgoingState is the lifecycle of one outbound acknowledged/request
// transaction.
type OutgoingState int

const (
	OutgoingIdle OutgoingState = iota
	OutgoingWaiting
	OutgoingDone
	OutgoingCancelled
)

// Outgoing tracks one in-flight outbound transaction (spec.md §4.5, §5
// "Cancellation").
type Outgoing struct {
	Priority   bool
	TID        byte
	Service    Service
	Payload    []byte
	Entry      AddrTableEntry
	State      OutgoingState
	attempts   int
	deadline   clock.Tick
	responses  int  // REQUEST/ack count collected so far
	succeeded  bool // set true only by AckReceived/ResponseReceived/the initial UNACKD send
	Tag        string // app-supplied correlation tag, echoed on Completion
}

// Completion is delivered to the application layer when an outbound
// transaction concludes, successfully or not (spec.md §4.5, §5).
type Completion struct {
	Tag     string
	Success bool
}

// NewOutgoing starts tracking a new outbound transaction and arms its
// first-attempt deadline.
func NewOutgoing(src clock.Source, priority bool, tid byte, svc Service, payload []byte, entry AddrTableEntry, tag string) *Outgoing {
	o := &Outgoing{
		Priority: priority,
		TID:      tid,
		Service:  svc,
		Payload:  payload,
		Entry:    entry,
		State:    OutgoingWaiting,
		Tag:      tag,
	}
	o.arm(src)
	return o
}

func (o *Outgoing) arm(src clock.Source) {
	o.attempts++
	o.deadline = src.Now() + o.Entry.RptTimer
}

// Expired reports whether the current attempt's timer has elapsed.
func (o *Outgoing) Expired(src clock.Source) bool {
	return o.State == OutgoingWaiting && src.Now() >= o.deadline
}

// RetriesExhausted reports whether every retry attempt has been used.
func (o *Outgoing) RetriesExhausted() bool {
	return o.attempts > o.Entry.RetryCount
}

// Retry rearms the timer for another attempt, unless retries are
// exhausted, in which case it marks the transaction failed and returns
// false.
func (o *Outgoing) Retry(src clock.Source) bool {
	if o.RetriesExhausted() {
		o.State = OutgoingDone
		return false
	}
	o.arm(src)
	return true
}

// AckReceived marks a ServiceAckd transaction complete on the first ack.
func (o *Outgoing) AckReceived() {
	if o.Service == ServiceAckd {
		o.succeeded = true
		o.State = OutgoingDone
	}
}

// ResponseReceived records one response to a ServiceRequest transaction.
// It completes the transaction once the group size (MULTICAST_ACK) or, for
// a non-group destination, the first response, has been collected.
func (o *Outgoing) ResponseReceived() {
	o.responses++
	o.succeeded = true
	if !o.Entry.GroupFlag {
		o.State = OutgoingDone
		return
	}
	if o.responses >= o.Entry.GroupSize {
		o.State = OutgoingDone
	}
}

// MarkSent records that the (sole, for UNACKD; or a copy, for UNACKD_RPT)
// wire transmission completed; these services need no response to
// succeed.
func (o *Outgoing) MarkSent() {
	if o.Service == ServiceUnackd || o.Service == ServiceUnackdRpt {
		o.succeeded = true
		o.State = OutgoingDone
	}
}

// Cancel marks the transaction dead without waiting for further retries,
// per spec.md §5's AppCancel(tag).
func (o *Outgoing) Cancel() {
	o.State = OutgoingCancelled
}

// Done reports whether the transaction has reached a terminal state.
func (o *Outgoing) Done() bool {
	return o.State == OutgoingDone || o.State == OutgoingCancelled
}

// Success reports whether a terminal transaction concluded successfully.
func (o *Outgoing) Success() bool {
	return o.succeeded
}

// Copies returns how many wire copies an outbound transaction sends for
// its service: UNACKD_RPT sends retryCount+1 copies up front; the
// acknowledged/request services send one copy per attempt, driven by
// Expired/Retry.
func Copies(svc Service, entry AddrTableEntry) int {
	if svc == ServiceUnackdRpt {
		return entry.RetryCount + 1
	}
	return 1
}
