package node

import (
	"github.com/LonMarkTech/lon-stack-dx-lmi-sub001/pkg/appdispatch"
	"github.com/LonMarkTech/lon-stack-dx-lmi-sub001/pkg/network"
	"github.com/LonMarkTech/lon-stack-dx-lmi-sub001/pkg/xcvrlink"
)

// linkInbound is one decoded LPDU awaiting network-layer processing
// (spec.md §4.3's delivery to the network input queue).
type linkInbound struct {
	priority bool
	altPath  bool
	npdu     []byte
	xcvr     xcvrlink.XcvrParam
}

// tsaInbound is an NPDU that has passed network-layer admission, awaiting
// TSA processing (spec.md §4.4 -> §4.5 handoff).
type tsaInbound struct {
	npdu      network.NPDU
	domainIdx int
	priority  bool
	xcvr      xcvrlink.XcvrParam
}

// replyRoute carries everything AppSend/TSASend need to frame a response
// to an inbound request without threading the whole tsaInbound record
// through the application dispatcher.
type replyRoute struct {
	pduType   network.PDUType
	tid       byte
	priority  bool
	dest      network.Address
	domainIdx int
	peer      peerFromNPDU
}

// peerFromNPDU identifies the sender of the request this reply answers,
// for dedup-table recording (spec.md §4.5).
type peerFromNPDU struct {
	subnet byte
	node   byte
}

// appInbound is one APDU ready for application dispatch.
type appInbound struct {
	code  appdispatch.Code
	data  []byte
	ctx   appdispatch.ReceiveContext
	route replyRoute
	hasRoute bool // false for UNACKD traffic, which carries no reply route
}

// appOutbound is a dispatcher response awaiting TSA framing.
type appOutbound struct {
	data  []byte
	route replyRoute
}

// nwOutbound is a fully TSA-framed payload awaiting network-layer
// encoding.
type nwOutbound struct {
	domainIdx  int
	pduType    network.PDUType
	dest       network.Address
	payload    []byte
	authExempt bool
	priority   bool
}

// linkOutbound is an encoded NPDU awaiting link-layer framing and
// handoff to the MAC engine.
type linkOutbound struct {
	priority bool
	altPath  bool
	npdu     []byte
}
