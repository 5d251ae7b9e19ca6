package appdispatch

import "github.com/LonMarkTech/lon-stack-dx-lmi-sub001/pkg/nodeconfig"

// encodeNVConfigEntry packs an NVConfigEntry into the wire form UPDATE_NV_CNFG
// sends and QUERY_NV_CNFG/NV_FETCH return: {direction<<7|priority<<6|auth<<5
// |turnaround<<4|service, selectorHi, selectorLo, length}.
func encodeNVConfigEntry(nv nodeconfig.NVConfigEntry) []byte {
	flags := byte(nv.Service & 0x03)
	if nv.Direction != 0 {
		flags |= 1 << 7
	}
	if nv.Priority {
		flags |= 1 << 6
	}
	if nv.Auth {
		flags |= 1 << 5
	}
	if nv.Turnaround {
		flags |= 1 << 4
	}
	return []byte{flags, byte(nv.Selector >> 8), byte(nv.Selector), byte(nv.Length)}
}

func decodeNVConfigEntry(data []byte) (nodeconfig.NVConfigEntry, bool) {
	if len(data) < 4 {
		return nodeconfig.NVConfigEntry{}, false
	}
	flags := data[0]
	return nodeconfig.NVConfigEntry{
		Direction:  int(flags>>7) & 1,
		Service:    int(flags & 0x03),
		Priority:   flags&(1<<6) != 0,
		Auth:       flags&(1<<5) != 0,
		Turnaround: flags&(1<<4) != 0,
		Bound:      true,
		Selector:   int(data[1])<<8 | int(data[2]),
		Length:     int(data[3]),
	}, true
}

func (d *Dispatcher) handleUpdateNVCnfg(data []byte) ([]byte, bool) {
	idx, consumed, err := nodeconfig.NVIndex(data)
	if err != nil || len(data) < consumed+4 {
		return []byte{RespFail}, true
	}
	if idx < 0 || idx >= len(d.Config.NVConfigTable) {
		return []byte{RespFail}, true
	}
	entry, ok := decodeNVConfigEntry(data[consumed:])
	if !ok {
		return []byte{RespFail}, true
	}
	d.Config.NVConfigTable[idx] = entry
	d.Config.Recalc()
	d.save()
	// spec.md §8 scenario 6 pins a RespWithPayload acknowledgement for
	// UPDATE_NV_CNFG, distinct from the bare RespAck most mutations use.
	return []byte{RespWithPayload}, true
}

func (d *Dispatcher) handleQueryNV(data []byte) ([]byte, bool) {
	idx, _, err := nodeconfig.NVIndex(data)
	if err != nil {
		return []byte{RespFail}, true
	}
	nv, alias, err := d.Config.QueryNV(idx)
	if err != nil {
		return []byte{RespFail}, true
	}
	if nv != nil {
		return append([]byte{RespWithPayload}, encodeNVConfigEntry(*nv)...), true
	}
	return []byte{RespWithPayload, byte(alias.Primary), byte(alias.Selector >> 8), byte(alias.Selector)}, true
}
