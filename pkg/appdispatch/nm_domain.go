package appdispatch

import "github.com/LonMarkTech/lon-stack-dx-lmi-sub001/pkg/nodeconfig"

// Response codes. Most NM mutations acknowledge with a bare RespAck;
// commands that return data use RespWithPayload, except QUERY_DOMAIN,
// which spec.md §8 scenario 2 pins to the distinct code RespQueryDomain.
// These are literal per-command codes in the reference protocol, not a
// formula over the request code.
const (
	RespAck         byte = 0x73
	RespFail        byte = 0x60 | respFailureBit
	RespWithPayload byte = 0x7B
	RespQueryDomain byte = 0x7A
)

func (d *Dispatcher) handleQueryID(data []byte) ([]byte, bool) {
	if len(data) < 1 {
		return []byte{RespWithPayload}, true // null response: malformed request
	}
	selector := Selector(data[0])
	configured := !d.Config.AllDomainsInvalid()

	matches := false
	switch selector {
	case SelectorUnconfigured:
		matches = !configured
	case SelectorSelected:
		matches = d.selectQuery
	case SelectorSelectedUncfg:
		matches = d.selectQuery && !configured
	}

	if len(data) >= 3 {
		// Optional memory-match window: data[1:] holds {addr(ignored-here), expected...}
		// compared against the current config's node id region; a mismatch
		// forces a null response regardless of selector.
		if !bytesEqualLocal(data[2:], d.Config.NodeID[:min(len(data)-2, len(d.Config.NodeID))]) {
			matches = false
		}
	}

	if !matches {
		return nil, true // null response body, still terminates the request
	}
	body := append([]byte{RespWithPayload}, d.Config.NodeID[:]...)
	body = append(body, d.Config.ProgramID[:]...)
	return body, true
}

func bytesEqualLocal(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (d *Dispatcher) handleRespondToQuery(data []byte) ([]byte, bool) {
	d.selectQuery = !d.selectQuery
	return []byte{RespAck}, true
}

// domainEntryWire is 15 bytes: {id[6], len, subnet, node, key[6]} packed
// as {id(padded to 6), idLenCode, subnet, node, key[6]} to match the
// QUERY_DOMAIN scenario's 15-byte body.
func encodeDomainEntry(d nodeconfig.Domain) []byte {
	out := make([]byte, 15)
	copy(out[0:6], d.ID)
	out[6] = byte(len(d.ID))
	out[7] = d.Subnet
	out[8] = d.Node
	copy(out[9:15], d.Key[:])
	return out
}

// updateDomainSuffixLen is the fixed width of the {idLen, subnet, node,
// reserved, key[6]} tail that follows the variable-length domain id in an
// UPDATE_DOMAIN request; the id occupies whatever is left between the
// index byte and this tail.
const updateDomainSuffixLen = 1 + 1 + 1 + 1 + 6

func (d *Dispatcher) handleUpdateDomain(data []byte) ([]byte, bool) {
	if len(data) < 1+updateDomainSuffixLen {
		return []byte{RespFail}, true
	}
	idx := int(data[0])
	if idx < 0 || idx >= len(d.Config.DomainTable) {
		return []byte{RespFail}, true
	}

	idLen := len(data) - 1 - updateDomainSuffixLen
	if idLen < 0 || idLen > 6 {
		return []byte{RespFail}, true
	}
	id := data[1 : 1+idLen]
	tail := data[1+idLen:]
	if int(tail[0]) != idLen {
		return []byte{RespFail}, true
	}
	subnet, node := tail[1], tail[2]&0x7F
	key := tail[4:10]

	dom := &d.Config.DomainTable[idx]
	dom.ID = append([]byte(nil), id...)
	dom.Subnet = subnet
	dom.Node = node
	copy(dom.Key[:], key)
	dom.Valid = true

	d.Config.Recalc()
	d.save()
	return []byte{RespAck}, true
}

func (d *Dispatcher) handleLeaveDomain(data []byte) ([]byte, bool) {
	if len(data) < 1 {
		return []byte{RespFail}, true
	}
	idx := int(data[0])
	if idx < 0 || idx >= len(d.Config.DomainTable) {
		return []byte{RespFail}, true
	}
	d.Config.DomainTable[idx].Leave()
	d.Config.Recalc()
	d.save()

	if d.Config.AllDomainsInvalid() {
		d.Config.ProgramState = nodeconfig.ApplUnconfig
		d.resetCause = nodeconfig.ResetSoftware
		d.resetScheduled = true
		// No response is sent on the domain just left (spec.md §8
		// scenario 5): the caller must suppress transmission for this
		// command when this branch is taken.
		return nil, false
	}
	return []byte{RespAck}, true
}

func (d *Dispatcher) handleUpdateKey(data []byte) ([]byte, bool) {
	if len(data) < 7 {
		return []byte{RespFail}, true
	}
	idx := int(data[0])
	if idx < 0 || idx >= len(d.Config.DomainTable) {
		return []byte{RespFail}, true
	}
	d.Config.DomainTable[idx].UpdateKey(data[1:7])
	d.Config.Recalc()
	d.save()
	return []byte{RespAck}, true
}

func (d *Dispatcher) handleQueryDomain(data []byte) ([]byte, bool) {
	if len(data) < 1 {
		return []byte{RespFail}, true
	}
	idx := int(data[0])
	if idx < 0 || idx >= len(d.Config.DomainTable) {
		return []byte{RespFail}, true
	}
	body := append([]byte{RespQueryDomain}, encodeDomainEntry(d.Config.DomainTable[idx])...)
	return body, true
}

func (d *Dispatcher) handleUpdateAddr(data []byte) ([]byte, bool) {
	if len(data) < 2 {
		return []byte{RespFail}, true
	}
	idx := int(data[0])
	if idx < 0 || idx >= len(d.Config.AddrTable) {
		return []byte{RespFail}, true
	}
	entry := &d.Config.AddrTable[idx]
	entry.Mode = int(data[1])
	if len(data) > 2 {
		entry.DomainIndex = int(data[2])
	}
	if len(data) > 3 {
		entry.Subnet = data[3]
	}
	if len(data) > 4 {
		entry.NodeOrGroup = data[4]
	}
	d.Config.Recalc()
	d.save()
	return []byte{RespAck}, true
}

func (d *Dispatcher) handleQueryAddr(data []byte) ([]byte, bool) {
	if len(data) < 1 {
		return []byte{RespFail}, true
	}
	idx := int(data[0])
	if idx < 0 || idx >= len(d.Config.AddrTable) {
		return []byte{RespFail}, true
	}
	e := d.Config.AddrTable[idx]
	body := []byte{RespWithPayload, byte(e.Mode), byte(e.DomainIndex), e.Subnet, e.NodeOrGroup}
	return body, true
}

func (d *Dispatcher) handleUpdateGroupAddr(data []byte, ctx ReceiveContext) ([]byte, bool) {
	// Only honoured if received by MULTICAST on a non-flex domain
	// (spec.md §4.7).
	if !ctx.Multicast || ctx.DomainIndex < 0 {
		return nil, false
	}
	if len(data) < 1 {
		return []byte{RespFail}, true
	}
	for i := range d.Config.AddrTable {
		e := &d.Config.AddrTable[i]
		if e.DomainIndex == ctx.DomainIndex && e.NodeOrGroup == ctx.Group {
			e.Mode = int(data[0])
			d.Config.Recalc()
			d.save()
			return []byte{RespAck}, true
		}
	}
	return []byte{RespFail}, true
}

func (d *Dispatcher) handleSetNodeMode(data []byte) ([]byte, bool) {
	if len(data) < 1 {
		return []byte{RespFail}, true
	}
	switch SetNodeModeSub(data[0]) {
	case NodeModeSoftOffline:
		d.Config.ProgramState = nodeconfig.ConfigOffline
	case NodeModeOnline:
		d.Config.ProgramState = nodeconfig.ConfigOnline
	case NodeModeReset:
		d.resetCause = nodeconfig.ResetSoftware
		d.resetScheduled = true
	case NodeModeExplicitState:
		if len(data) < 2 {
			return []byte{RespFail}, true
		}
		d.Config.ProgramState = nodeconfig.ProgramState(data[1])
		if d.Config.ProgramState == nodeconfig.NoApplUnconfig {
			d.appRunning = false
		}
	default:
		return []byte{RespFail}, true
	}
	d.save()
	return []byte{RespAck}, true
}
