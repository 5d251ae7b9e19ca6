package node

import (
	"testing"

	"github.com/LonMarkTech/lon-stack-dx-lmi-sub001/pkg/appdispatch"
	"github.com/LonMarkTech/lon-stack-dx-lmi-sub001/pkg/clock"
	"github.com/LonMarkTech/lon-stack-dx-lmi-sub001/pkg/link"
	"github.com/LonMarkTech/lon-stack-dx-lmi-sub001/pkg/mac"
	"github.com/LonMarkTech/lon-stack-dx-lmi-sub001/pkg/network"
	"github.com/LonMarkTech/lon-stack-dx-lmi-sub001/pkg/nodeconfig"
	"github.com/LonMarkTech/lon-stack-dx-lmi-sub001/pkg/transport"
	"github.com/LonMarkTech/lon-stack-dx-lmi-sub001/pkg/xcvrlink"
)

// fakeClock is a manually-advanced clock.Source, mirroring pkg/mac's test
// helper of the same shape, so Sweep's retry/debounce timing can be
// driven deterministically.
type fakeClock struct {
	t    clock.Tick
	rate uint64
}

func (f *fakeClock) Now() clock.Tick  { return f.t }
func (f *fakeClock) Rate() uint64     { return f.rate }
func (f *fakeClock) Advance(d clock.Tick) { f.t += d }

func testConfig() *nodeconfig.Config {
	cfg := nodeconfig.Default([6]byte{1, 2, 3, 4, 5, 6}, [8]byte{9, 9, 9, 9, 9, 9, 9, 9})
	cfg.DomainTable[0] = nodeconfig.Domain{ID: []byte{0x2C}, Subnet: 1, Node: 5, Valid: true}
	cfg.ProgramState = nodeconfig.ConfigOnline
	cfg.Recalc()
	return cfg
}

func newTestNode() (*Node, *fakeClock, *xcvrlink.Mock) {
	src := &fakeClock{rate: 1}
	mockLink := xcvrlink.NewMock()
	timing := mac.TimingConfig{ConfigReserved: [3]byte{0, 1, 0}, Nts: 1}
	n := New(testConfig(), src, mockLink, timing, nil, nil)
	return n, src, mockLink
}

// buildInboundLPDU encodes an NPDU carrying a TSA-framed request (or a
// bare APDU, if pduType is PDUTypeAPDU) into the raw bytes the link layer
// expects from the MAC's receive queue: {flag, pduSize, header, npdu},
// with no trailing CRC since the MAC has already verified and stripped
// it (mirroring mac.Engine.accumulateRx's contract).
func buildInboundLPDU(t *testing.T, pduType network.PDUType, srcSubnet, srcNode byte, dest network.Address, payload []byte) []byte {
	t.Helper()
	npdu, err := network.Encode(network.NPDU{
		Version:      network.ProtocolVersion,
		PDUType:      pduType,
		SourceSubnet: srcSubnet,
		SourceNode:   srcNode,
		Dest:         dest,
		Domain:       []byte{0x2C},
		Payload:      payload,
	})
	if err != nil {
		t.Fatalf("encode NPDU: %v", err)
	}
	identity := func(b []byte) []byte { return b } // no CRC trailer
	return link.Encode(0, link.NewHeader(false, false), npdu, identity)
}

// TestSweepDispatchesAckdRequestAndCachesResponse exercises the full
// receive path (LinkReceive -> NWReceive -> TSAReceive -> AppReceive ->
// AppSend -> TSASend) for an acknowledged CHECKSUM_RECALC request, and
// checks the response was both queued for transmission and recorded in
// the duplicate table for retransmission handling.
func TestSweepDispatchesAckdRequestAndCachesResponse(t *testing.T) {
	n, _, _ := newTestNode()

	dest := network.Address{Mode: network.SubnetNode, Subnet: 1, Node: 5}
	payload := append([]byte{byte(encodeTSAHeader(3, false))}, byte(appdispatch.CodeChecksumRecalc))
	raw := buildInboundLPDU(t, network.PDUTypeTPDU, 1, 9, dest, payload)

	n.MAC.RxQueue().Push(mac.RxIndication{Data: raw, XcvrParam: xcvrlink.XcvrParam{Valid: true}})
	n.Sweep()

	key := peerKeyFor(1, 9, false)
	cached, dup := n.dedup.Check(key, 3)
	if !dup {
		t.Fatal("expected the response to be recorded in the duplicate table")
	}
	if len(cached) != 1 || cached[0] != 0x73 {
		t.Fatalf("expected cached success response {0x73}, got %v", cached)
	}
	if !n.MAC.Pending() {
		t.Fatal("expected the framed response to have reached the MAC transmit queue")
	}
}

// TestSweepIgnoresUnackdManualServiceOnReceive pins spec.md §4.7's note
// that MANUAL_SERVICE_REQUEST is transmit-only: receiving one must not
// produce a response.
func TestSweepIgnoresUnackdManualServiceOnReceive(t *testing.T) {
	n, _, _ := newTestNode()
	dest := network.Address{Mode: network.Broadcast, Subnet: 0}
	payload := []byte{byte(appdispatch.CodeManualService)}
	raw := buildInboundLPDU(t, network.PDUTypeAPDU, 1, 9, dest, payload)

	n.MAC.RxQueue().Push(mac.RxIndication{Data: raw, XcvrParam: xcvrlink.XcvrParam{Valid: true}})
	n.Sweep()

	if n.MAC.Pending() {
		t.Fatal("expected no response to be queued for an unacknowledged manual service broadcast")
	}
}

// TestServicePinDebounceEmitsExactlyOneBroadcast pins the 100ms debounce
// window: repeated RequestService calls inside the window collapse into
// one broadcast, emitted only once the window elapses.
func TestServicePinDebounceEmitsExactlyOneBroadcast(t *testing.T) {
	n, src, _ := newTestNode()
	n.RequestService()
	n.RequestService() // still debouncing; must not re-arm or double-fire

	n.Sweep()
	if !n.nwSendQ.Empty() || n.MAC.Pending() {
		t.Fatal("expected no broadcast before the debounce window elapses")
	}

	src.Advance(clock.Tick(servicePinDebounceMS))
	n.Sweep()
	if !n.MAC.Pending() {
		t.Fatal("expected the manual service broadcast to be submitted for transmission")
	}
}

// TestSendCommandUnackdSubmitsImmediately exercises the originate path
// used by the CLI's NM command: an UNACKD send needs no retry tracking
// and should reach the MAC transmit queue after one sweep.
func TestSendCommandUnackdSubmitsImmediately(t *testing.T) {
	n, _, _ := newTestNode()
	dest := network.Address{Mode: network.SubnetNode, Subnet: 1, Node: 9}
	err := n.SendCommand(0, dest, false, transport.ServiceUnackd, byte(appdispatch.CodeQueryStatus), nil, transport.AddrTableEntry{}, "probe")
	if err != nil {
		t.Fatalf("SendCommand: %v", err)
	}
	n.Sweep()
	if !n.MAC.Pending() {
		t.Fatal("expected the UNACKD request to reach the MAC transmit queue")
	}
	if len(n.outgoing) != 0 {
		t.Fatalf("expected no tracked outgoing transaction for UNACKD, got %d", len(n.outgoing))
	}
}

// TestSendCommandAckdTracksOutgoingAndRetries exercises the retry half of
// TSASend: an ACKD request that times out without an ack must be
// resubmitted up to its retry budget, then abandoned.
func TestSendCommandAckdTracksOutgoingAndRetries(t *testing.T) {
	n, src, _ := newTestNode()
	dest := network.Address{Mode: network.SubnetNode, Subnet: 1, Node: 9}
	entry := transport.AddrTableEntry{RetryCount: 1, RptTimer: 5}
	err := n.SendCommand(0, dest, false, transport.ServiceAckd, byte(appdispatch.CodeQueryStatus), nil, entry, "probe")
	if err != nil {
		t.Fatalf("SendCommand: %v", err)
	}
	if len(n.outgoing) != 1 {
		t.Fatalf("expected one tracked outgoing transaction, got %d", len(n.outgoing))
	}

	src.Advance(entry.RptTimer)
	n.Sweep() // first retry
	if len(n.outgoing) != 1 {
		t.Fatal("expected the transaction to still be tracked after its first retry")
	}

	src.Advance(entry.RptTimer)
	n.Sweep() // retries exhausted
	if len(n.outgoing) != 0 {
		t.Fatal("expected the transaction to be abandoned once retries are exhausted")
	}
}
