package node

import (
	"github.com/LonMarkTech/lon-stack-dx-lmi-sub001/pkg/network"
	"github.com/LonMarkTech/lon-stack-dx-lmi-sub001/pkg/transaction"
	"github.com/LonMarkTech/lon-stack-dx-lmi-sub001/pkg/transport"
)

// appReceive implements the AppReceive scheduler step: every APDU TSA
// admitted this sweep is dispatched to the NM/ND command surface, and any
// response the dispatcher produces is queued for AppSend to frame.
func (n *Node) appReceive() {
	for !n.appRecvQ.Empty() {
		in, _ := n.appRecvQ.Pop()
		resp, send := n.Dispatch.Handle(in.code, in.data, in.ctx)
		if !send || !in.hasRoute {
			continue
		}
		n.appSendQ.Push(appOutbound{data: resp, route: in.route})
	}
}

// SendCommand originates an NM/ND request to dest over domainIdx under
// svc's delivery semantics, the entry point cmd/lonnode's "nm" subcommand
// drives. It allocates a transaction id and frames the request. ACKD and
// REQUEST sends are tracked as a pendingOutgoing transaction for TSASend's
// retry servicing; other services are queued once and not tracked.
// tag is echoed back to the caller once the transaction completes (spec.md
// §5's AppCancel/Completion contract); it has no wire effect.
func (n *Node) SendCommand(domainIdx int, dest network.Address, priority bool, svc transport.Service, code byte, data []byte, entry transport.AddrTableEntry, tag string) error {
	sig := transaction.Signature{Mode: int(dest.Mode), Key: uint32(dest.Subnet)<<8 | uint32(dest.Node)}
	if domainIdx >= 0 && domainIdx < len(n.Config.DomainTable) {
		sig.Domain = string(n.Config.DomainTable[domainIdx].ID)
	}
	tid, err := n.TIDs.NewTrans(priority, sig)
	if err != nil {
		return err
	}

	body := append([]byte{code}, data...)
	isAckd := svc == transport.ServiceAckd || svc == transport.ServiceRequest
	hdr := encodeTSAHeader(tid, false)
	payload := body
	pduType := network.PDUTypeAPDU
	if isAckd {
		payload = append([]byte{byte(hdr)}, body...)
		pduType = network.PDUTypeTPDU
		if svc == transport.ServiceRequest {
			pduType = network.PDUTypeSPDU
		}
	}

	wire, err := network.NWSend(n.identity, network.SendParams{
		DomainIndex: domainIdx,
		PDUType:     pduType,
		Dest:        dest,
		Payload:     payload,
	})
	if err != nil {
		n.TIDs.TransDone(priority)
		return err
	}

	if !isAckd {
		n.linkSendQ.Push(linkOutbound{priority: priority, npdu: wire})
		n.TIDs.TransDone(priority)
		return nil
	}

	out := transport.NewOutgoing(n.Clock, priority, tid, svc, payload, entry, tag)
	n.outgoing[outKey{priority: priority, tid: tid}] = &pendingOutgoing{
		out:       out,
		domainIdx: domainIdx,
		dest:      dest,
		pduType:   pduType,
		frame:     wire,
	}
	n.linkSendQ.Push(linkOutbound{priority: priority, npdu: wire})
	return nil
}

// OutgoingPending reports how many originated transactions SendCommand is
// still tracking retries for, the poll condition cmd/lonnode's "nm"
// subcommand waits on before reporting a result.
func (n *Node) OutgoingPending() int {
	return len(n.outgoing)
}
