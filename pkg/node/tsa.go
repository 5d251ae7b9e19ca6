package node

import (
	"github.com/LonMarkTech/lon-stack-dx-lmi-sub001/pkg/appdispatch"
	"github.com/LonMarkTech/lon-stack-dx-lmi-sub001/pkg/clock"
	"github.com/LonMarkTech/lon-stack-dx-lmi-sub001/pkg/errlog"
	"github.com/LonMarkTech/lon-stack-dx-lmi-sub001/pkg/network"
	"github.com/LonMarkTech/lon-stack-dx-lmi-sub001/pkg/transport"
)

// tsaHeader is the one-byte framing this implementation prefixes to a
// TPDU/SPDU payload: bit7 marks a response (vs. a fresh request), the
// low nibble is the transaction id (spec.md §4.5/§4.6 "the (source, TID,
// priority) tuple" and "Transaction is identified by (priority, tid:
// 0..15)"). spec.md documents the TID and service semantics but not a
// concrete TPDU/SPDU bit layout beyond the pduType discriminator already
// carried by the NPDU header (§6); this header is the minimal framing
// needed to carry a TID and ack/request bit across the wire.
type tsaHeader byte

const tsaResponseBit = 0x80

func encodeTSAHeader(tid byte, isResponse bool) tsaHeader {
	h := tsaHeader(tid & 0x0F)
	if isResponse {
		h |= tsaResponseBit
	}
	return h
}

func (h tsaHeader) tid() byte        { return byte(h) & 0x0F }
func (h tsaHeader) isResponse() bool { return byte(h)&tsaResponseBit != 0 }

// authSubtype discriminates the two-message challenge/reply round
// (spec.md §4.5).
type authSubtype byte

const (
	authChallenge authSubtype = 0
	authReply     authSubtype = 1
)

func peerKeyFor(subnet, node byte, priority bool) transport.PeerKey {
	return transport.PeerKey{SourceSubnet: subnet, SourceNode: node, Priority: priority}
}

// tsaReceive implements the TSAReceive scheduler step: it demultiplexes
// an admitted NPDU by pduType into the unacknowledged fast-path, the
// acknowledged/request retry+dedup machinery, or the auth responder, and
// hands anything destined for the application to appRecvQ.
func (n *Node) tsaReceive() {
	if n.tsaRecvQ.Empty() {
		return
	}
	in, _ := n.tsaRecvQ.Pop()
	npdu := in.npdu

	switch npdu.PDUType {
	case network.PDUTypeAPDU:
		n.deliverToApp(npdu, in, replyRoute{}, false)

	case network.PDUTypeAuth:
		n.handleAuthPDU(npdu, in)

	case network.PDUTypeTPDU, network.PDUTypeSPDU:
		n.handleAckdOrRequest(npdu, in)
	}
}

func (n *Node) handleAckdOrRequest(npdu network.NPDU, in tsaInbound) {
	if len(npdu.Payload) < 1 {
		n.Errors.Record(errlog.UnknownPDU)
		return
	}
	hdr := tsaHeader(npdu.Payload[0])
	key := peerKeyFor(npdu.SourceSubnet, npdu.SourceNode, in.priority)

	if hdr.isResponse() {
		ok := outKey{priority: in.priority, tid: hdr.tid()}
		p, found := n.outgoing[ok]
		if !found {
			return
		}
		if npdu.PDUType == network.PDUTypeTPDU {
			p.out.AckReceived()
		} else {
			p.out.ResponseReceived()
		}
		return
	}

	if cached, dup := n.dedup.Check(key, hdr.tid()); dup {
		if cached != nil {
			n.sendFramedResponse(npdu, in, hdr.tid(), cached)
		}
		return
	}

	// The application sees only the APDU that follows the TSA header byte.
	npdu.Payload = npdu.Payload[1:]
	route := replyRoute{
		pduType:   npdu.PDUType,
		tid:       hdr.tid(),
		priority:  in.priority,
		dest:      network.Address{Mode: network.SubnetNode, Subnet: npdu.SourceSubnet, Node: npdu.SourceNode},
		domainIdx: in.domainIdx,
		peer:      peerFromNPDU{subnet: npdu.SourceSubnet, node: npdu.SourceNode},
	}
	n.deliverToApp(npdu, in, route, true)
}

func (n *Node) deliverToApp(npdu network.NPDU, in tsaInbound, route replyRoute, hasRoute bool) {
	if len(npdu.Payload) < 1 {
		n.Errors.Record(errlog.UnknownPDU)
		return
	}
	code := appdispatch.Code(npdu.Payload[0])
	data := npdu.Payload[1:]
	ctx := appdispatch.ReceiveContext{
		Authenticated: n.authedFor(npdu.SourceSubnet, npdu.SourceNode, in.priority),
		Multicast:     false,
		DomainIndex:   in.domainIdx,
		Group:         0,
		XcvrParam:     in.xcvr,
	}
	n.appRecvQ.Push(appInbound{code: code, data: data, ctx: ctx, route: route, hasRoute: hasRoute})
}

func (n *Node) authedFor(subnet, node byte, priority bool) bool {
	key := peerKeyFor(subnet, node, priority)
	expires, ok := n.authed[key]
	if !ok {
		return false
	}
	return n.Clock.Now() < expires
}

// handleAuthPDU answers an inbound challenge with this node's reply
// (computed from the key of the domain the PDU was received on) or verifies an inbound
// reply against a challenge this node previously issued, marking the
// peer authenticated for authTTLSeconds on success (spec.md §4.5's
// "two-message challenge/reply authentication using the 6-byte key per
// domain").
func (n *Node) handleAuthPDU(npdu network.NPDU, in tsaInbound) {
	if len(npdu.Payload) < 9 {
		return
	}
	sub := authSubtype(npdu.Payload[0])
	var c transport.Challenge
	copy(c[:], npdu.Payload[1:9])
	key := peerKeyFor(npdu.SourceSubnet, npdu.SourceNode, in.priority)
	dest := network.Address{Mode: network.SubnetNode, Subnet: npdu.SourceSubnet, Node: npdu.SourceNode}

	switch sub {
	case authChallenge:
		domKey := n.domainKey(in.domainIdx)
		reply := transport.ComputeReply(c, domKey)
		payload := append([]byte{byte(authReply)}, reply[:]...)
		n.nwSendQ.Push(nwOutbound{domainIdx: in.domainIdx, pduType: network.PDUTypeAuth, dest: dest, payload: payload, authExempt: true, priority: in.priority})
	case authReply:
		pending, ok := n.challenges[key]
		if !ok {
			return
		}
		domKey := n.domainKey(in.domainIdx)
		var reply transport.Reply
		copy(reply[:], npdu.Payload[1:9])
		if transport.VerifyReply(pending, domKey, reply) {
			n.authed[key] = n.Clock.Now() + clock.Tick(authTTLSeconds*n.Clock.Rate())
			delete(n.challenges, key)
		}
	}
}

func (n *Node) domainKey(domainIdx int) []byte {
	if domainIdx < 0 || domainIdx >= len(n.Config.DomainTable) {
		return nil
	}
	return n.Config.DomainTable[domainIdx].Key[:]
}

// Challenge issues a challenge to dest over domainIdx, the first half of
// the authentication round this node initiates before sending a gated
// command to a peer it has not yet proven itself to.
func (n *Node) Challenge(domainIdx int, dest network.Address, priority bool) {
	c := transport.Challenge{byte(n.Clock.Now()), byte(n.Clock.Now() >> 8), 1, 2, 3, 4, 5, 6}
	key := peerKeyFor(dest.Subnet, dest.Node, priority)
	n.challenges[key] = c
	payload := append([]byte{byte(authChallenge)}, c[:]...)
	n.nwSendQ.Push(nwOutbound{domainIdx: domainIdx, pduType: network.PDUTypeAuth, dest: dest, payload: payload, authExempt: true, priority: priority})
}

func (n *Node) sendFramedResponse(npdu network.NPDU, in tsaInbound, tid byte, body []byte) {
	hdr := encodeTSAHeader(tid, true)
	payload := append([]byte{byte(hdr)}, body...)
	dest := network.Address{Mode: network.SubnetNode, Subnet: npdu.SourceSubnet, Node: npdu.SourceNode}
	n.nwSendQ.Push(nwOutbound{domainIdx: in.domainIdx, pduType: npdu.PDUType, dest: dest, payload: payload, priority: in.priority})
}

// appSend implements the AppSend scheduler step: it moves every response
// the application dispatcher queued into TSA framing.
func (n *Node) appSend() {
	for !n.appSendQ.Empty() {
		out, _ := n.appSendQ.Pop()
		n.tsaSendOne(out)
	}
}

// tsaSendOne implements the per-item body of the TSASend scheduler step
// for responses the application layer produced this sweep.
func (n *Node) tsaSendOne(out appOutbound) {
	if !out.route.hasRouteOK() {
		n.nwSendQ.Push(nwOutbound{domainIdx: out.route.domainIdx, pduType: network.PDUTypeAPDU, dest: out.route.dest, payload: out.data, priority: out.route.priority})
		return
	}
	hdr := encodeTSAHeader(out.route.tid, true)
	payload := append([]byte{byte(hdr)}, out.data...)
	n.nwSendQ.Push(nwOutbound{domainIdx: out.route.domainIdx, pduType: out.route.pduType, dest: out.route.dest, payload: payload, priority: out.route.priority})

	key := peerKeyFor(out.route.peer.subnet, out.route.peer.node, out.route.priority)
	n.dedup.Record(key, out.route.tid, out.data)
}

// hasRouteOK reports whether route carries a TSA reply target (zero
// value means the original request was UNACKD and expects no response
// framing beyond the bare APDU).
func (r replyRoute) hasRouteOK() bool {
	return r.pduType == network.PDUTypeTPDU || r.pduType == network.PDUTypeSPDU
}

// tsaServiceOutgoing drives retry/timeout bookkeeping for every
// transaction this node itself originated (NM/ND requests issued via
// SendCommand, and proxy forwarding), as the remaining half of the
// TSASend scheduler step.
func (n *Node) tsaServiceOutgoing() {
	for k, p := range n.outgoing {
		if p.out.Done() {
			n.TIDs.TransDone(k.priority)
			n.completeOutgoing(p)
			delete(n.outgoing, k)
			continue
		}
		if p.out.Expired(n.Clock) {
			if p.out.Retry(n.Clock) {
				n.linkSendQ.Push(linkOutbound{priority: k.priority, npdu: p.frame})
			} else {
				n.TIDs.TransDone(k.priority)
				n.completeOutgoing(p)
				delete(n.outgoing, k)
			}
		}
	}
}

// completeOutgoing delivers p's terminal result on Completions without
// blocking the scheduler sweep if no one is listening.
func (n *Node) completeOutgoing(p *pendingOutgoing) {
	select {
	case n.Completions <- transport.Completion{Tag: p.out.Tag, Success: p.out.Success()}:
	default:
	}
}
