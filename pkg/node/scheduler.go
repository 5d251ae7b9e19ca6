package node

import (
	"context"

	"github.com/LonMarkTech/lon-stack-dx-lmi-sub001/pkg/errlog"
	"github.com/LonMarkTech/lon-stack-dx-lmi-sub001/pkg/link"
	"github.com/LonMarkTech/lon-stack-dx-lmi-sub001/pkg/mac"
	"github.com/LonMarkTech/lon-stack-dx-lmi-sub001/pkg/network"
)

// Sweep runs one full scheduler pass, in the exact order spec.md §5
// mandates: PHYSend+MAC tick (collapsed into one Engine.Tick call, since
// the MAC engine already interleaves the transceiver read with its own
// transmit handshake — see DESIGN.md), LinkReceive, NWReceive,
// TSAReceive, AppReceive, AppSend, TSASend, NWSend, LinkSend. No step
// suspends; a PDU a step enqueues this sweep is only visible to the step
// after it, which is exactly the order these calls already run in.
func (n *Node) Sweep() {
	n.handleMACEvents(n.MAC.Tick())
	n.servicePinTick()

	n.linkReceive()
	n.nwReceive()
	n.tsaReceive()
	n.appReceive()
	n.appSend()
	n.tsaServiceOutgoing()
	n.nwSend()
	n.linkSend()

	n.handleResetScheduled()
}

// Run drives Sweep until ctx is cancelled.
func (n *Node) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
			n.Sweep()
		}
	}
}

// handleMACEvents folds MAC-layer terminal events into statistics and the
// error log (spec.md §7's backlogOverflow/collisions/transmissionErrors
// counters, and EventHardReset's LcsLost signal).
func (n *Node) handleMACEvents(events []mac.Event) {
	for _, ev := range events {
		switch ev {
		case mac.EventTxComplete:
			n.Dispatch.Stats.TransmitTries++
		case mac.EventTxDroppedAfterCollisions:
			n.Dispatch.Stats.TransmitErrors++
			n.Errors.Record(errlog.TransmissionErrors)
		case mac.EventHardReset:
			n.Errors.Record(errlog.LcsLost)
		}
	}
}

// linkReceive implements the LinkReceive scheduler step: drain every
// CRC-checked frame the MAC delivered this tick, decode its LPDU header,
// and hand the enclosed NPDU bytes to the network layer's input queue.
func (n *Node) linkReceive() {
	rx := n.MAC.RxQueue()
	for !rx.Empty() {
		ind, _ := rx.Pop()
		frame, err := link.FromMAC(ind.Data, ind.XcvrParam)
		if err != nil {
			n.Errors.Record(errlog.UnknownPDU)
			continue
		}
		n.nwRecvQ.Push(linkInbound{
			priority: frame.Priority,
			altPath:  frame.AltPath,
			npdu:     frame.NPDU,
			xcvr:     frame.XcvrParam,
		})
	}
}

// nwReceive implements the NWReceive scheduler step: decode the NPDU,
// run the receive-side domain/address filter, discard anything the
// filter rejects, and hand admitted PDUs to the TSA input queue.
func (n *Node) nwReceive() {
	if n.nwRecvQ.Empty() {
		return
	}
	in, _ := n.nwRecvQ.Pop()

	npdu, err := network.Decode(in.npdu)
	if err != nil {
		n.Errors.Record(errlog.UnknownPDU)
		return
	}

	domainIdx, ok := network.Accept(n.identity, npdu, n.groups)
	if !ok {
		return
	}
	n.tsaRecvQ.Push(tsaInbound{
		npdu:      npdu,
		domainIdx: domainIdx,
		priority:  in.priority,
		xcvr:      in.xcvr,
	})
}

// nwSend implements the NWSend scheduler step: encode every TSA-framed
// payload queued this sweep into wire NPDU bytes and hand them to the
// link-layer output queue.
func (n *Node) nwSend() {
	for !n.nwSendQ.Empty() {
		out, _ := n.nwSendQ.Pop()
		wire, err := network.NWSend(n.identity, network.SendParams{
			DomainIndex: out.domainIdx,
			PDUType:     out.pduType,
			Dest:        out.dest,
			Payload:     out.payload,
			AuthExempt:  out.authExempt,
		})
		if err != nil {
			continue
		}
		n.linkSendQ.Push(linkOutbound{priority: out.priority, npdu: wire})
	}
}

// linkSend implements the LinkSend scheduler step: frame each outbound
// NPDU as an LPDU and submit it to the MAC engine for transmission. The
// MAC holds exactly one transmit-ready buffer at a time (mac.Engine's
// single-pending contract), so a buffer SubmitTx rejects stays queued
// for the next sweep.
func (n *Node) linkSend() {
	for !n.linkSendQ.Empty() {
		out := *n.linkSendQ.Head()
		header := link.NewHeader(out.priority, out.altPath)
		frame := link.Encode(0, header, out.npdu, mac.AppendCRC)
		if !n.MAC.SubmitTx(mac.TxRequest{Priority: out.priority, AltPath: out.altPath, Data: frame}) {
			return
		}
		n.linkSendQ.Pop()
	}
}

// handleResetScheduled implements the node-reset half of spec.md §6/§7:
// once a handler schedules a reset, clear the transaction-id table when
// the reset cause requires it (POWER_UP_RESET/EXTERNAL_RESET, not
// SOFTWARE_RESET) and acknowledge the request.
func (n *Node) handleResetScheduled() {
	cause, scheduled := n.Dispatch.ResetScheduled()
	if !scheduled {
		return
	}
	if cause.ClearsTIDTable() {
		n.TIDs.ClearTable()
	}
	n.Dispatch.AckResetScheduled()
}
