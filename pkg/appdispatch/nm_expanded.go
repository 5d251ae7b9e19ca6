package appdispatch

func (d *Dispatcher) handleExpanded(data []byte) ([]byte, bool) {
	if len(data) == 0 {
		return []byte{RespFail}, true
	}
	switch ExpandedSub(data[0]) {
	case SubQueryVersion, SubQueryVersionNME:
		caps := byte(CapOMA | CapProxy | CapSSI)
		return []byte{RespWithPayload, ExpandedVersion, caps}, true

	case SubUpdateDomainNoKey:
		if len(data) < 10 {
			return []byte{RespFail}, true
		}
		idx := int(data[1])
		if idx < 0 || idx >= len(d.Config.DomainTable) {
			return []byte{RespFail}, true
		}
		idLen := int(data[2])
		if idLen > 6 || len(data) < 3+idLen+2 {
			return []byte{RespFail}, true
		}
		dom := &d.Config.DomainTable[idx]
		dom.ID = append([]byte(nil), data[3:3+idLen]...)
		off := 3 + idLen
		dom.Subnet = data[off]
		dom.Node = data[off+1] & 0x7F
		dom.Valid = true
		d.Config.Recalc()
		d.save()
		return []byte{RespAck}, true

	case SubReportDomainNoKey:
		if len(data) < 2 {
			return []byte{RespFail}, true
		}
		idx := int(data[1])
		if idx < 0 || idx >= len(d.Config.DomainTable) {
			return []byte{RespFail}, true
		}
		entry := encodeDomainEntry(d.Config.DomainTable[idx])
		return append([]byte{RespWithPayload}, entry[:9]...), true // id+len+subnet+node, no key

	case SubReportKey:
		if len(data) < 2 {
			return []byte{RespFail}, true
		}
		idx := int(data[1])
		if idx < 0 || idx >= len(d.Config.DomainTable) {
			return []byte{RespFail}, true
		}
		key := d.Config.DomainTable[idx].Key
		return append([]byte{RespWithPayload}, key[:]...), true

	case SubUpdateKeyOMA:
		if len(data) < 13 {
			return []byte{RespFail}, true
		}
		copy(d.OMAKey[:], data[1:13])
		for i := range d.Config.DomainTable {
			// The OMA key is shared across both domains (spec.md §4.7
			// "12-byte OMA key add-or-replace across both domains").
			copy(d.Config.DomainTable[i].Key[:], d.OMAKey[:6])
		}
		d.Config.Recalc()
		d.save()
		return []byte{RespAck}, true

	default:
		return []byte{RespFail}, true
	}
}
