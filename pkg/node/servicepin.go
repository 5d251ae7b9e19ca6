package node

import (
	"github.com/LonMarkTech/lon-stack-dx-lmi-sub001/pkg/appdispatch"
	"github.com/LonMarkTech/lon-stack-dx-lmi-sub001/pkg/clock"
	"github.com/LonMarkTech/lon-stack-dx-lmi-sub001/pkg/network"
)

// servicePin debounces the node's physical manual-service-request button
// (spec.md §4.7's MANUAL_SERVICE_REQUEST and §6's wire format for it) by
// servicePinDebounceMS, so a single press produces exactly one broadcast
// regardless of contact bounce. This is a supplemental feature the
// distilled spec names only by its wire format; the debounce window
// itself is this implementation's addition, grounded on the teacher's
// pkg/device button-debounce style used for simulated hardware inputs.
type servicePin struct {
	requested  bool
	debouncing bool
	armedAt    clock.Tick
}

// RequestService latches a manual service request. Repeated calls within
// the debounce window collapse into the single broadcast the first call
// schedules.
func (n *Node) RequestService() {
	if n.pin.debouncing {
		return
	}
	n.pin.requested = true
	n.pin.debouncing = true
	n.pin.armedAt = n.Clock.Now()
}

// servicePinTick implements the debounce timer and, once it elapses,
// queues the unacknowledged broadcast {uniqueNodeId, programId} APDU
// spec.md §6 documents for MANUAL_SERVICE_REQUEST (APDU code 0x7F,
// domain length 0 so it reaches nodes regardless of domain membership).
func (n *Node) servicePinTick() {
	if !n.pin.requested {
		return
	}
	if uint64(clock.Elapsed(n.Clock, n.pin.armedAt))*1000 < servicePinDebounceMS*n.Clock.Rate() {
		return
	}
	n.pin.requested = false
	n.pin.debouncing = false

	payload := make([]byte, 0, 1+6+8)
	payload = append(payload, byte(appdispatch.CodeManualService))
	payload = append(payload, n.Config.NodeID[:]...)
	payload = append(payload, n.Config.ProgramID[:]...)

	n.nwSendQ.Push(nwOutbound{
		domainIdx: -1,
		pduType:   network.PDUTypeAPDU,
		dest:      network.Address{Mode: network.Broadcast, Subnet: 0},
		payload:   payload,
	})
}
