package appdispatch

// memoryMode selects which base READ_MEMORY/WRITE_MEMORY addresses against
// (spec.md §4.7 "mode-selected base": absolute, config-relative,
// read-only-relative, stats-relative).
type memoryMode byte

const (
	memAbsolute        memoryMode = 0
	memConfigRelative  memoryMode = 1
	memReadOnlyRelative memoryMode = 2
	memStatsRelative   memoryMode = 3
)

// BaseFirmwareVersion is the single byte returned by READ_MEMORY for
// absolute address 0, length 1 (spec.md §9 open question 2): the reference
// firmware special-cases this one request as a version query rather than a
// literal read of NodeID[0], while any longer read starting at address 0
// returns the actual memory image. Reproduced as-is, pinned by a
// regression test rather than unified with the general read path.
const BaseFirmwareVersion byte = 0x01

// memoryImage lays out the node's persistent state as one flat buffer in
// the order spec.md §6 mandates for the NM absolute address space:
// ReadOnlyData, ConfigData, DomainTable[2], AddrTable[15], NVConfigTable,
// NVAliasTable, ConfigCheckSum. ErrorLog is reachable only via the
// stats-relative base, not the absolute window.
func (d *Dispatcher) memoryImage() []byte {
	var buf []byte
	buf = append(buf, d.Config.NodeID[:]...)
	buf = append(buf, d.Config.ProgramID[:]...)

	buf = append(buf, boolByte(d.Config.TwoDomains), boolByte(d.Config.NmAuth), boolByte(d.Config.ReadWriteProtect))

	for _, dom := range d.Config.DomainTable {
		buf = append(buf, encodeDomainEntry(dom)...)
	}
	for _, a := range d.Config.AddrTable {
		buf = append(buf, byte(a.Mode), byte(a.DomainIndex), a.Subnet, a.NodeOrGroup, byte(a.RetryCount))
	}
	for _, nv := range d.Config.NVConfigTable {
		buf = append(buf, encodeNVConfigEntry(nv)...)
	}
	for _, al := range d.Config.NVAliasTable {
		buf = append(buf, byte(al.Primary), byte(al.Selector>>8), byte(al.Selector))
	}
	buf = append(buf, byte(d.Config.ConfigCheckSum>>8), byte(d.Config.ConfigCheckSum))
	return buf
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

const readOnlyDataLen = 14 // NodeID(6) + ProgramID(8)

func (d *Dispatcher) baseOffset(mode memoryMode) int {
	switch mode {
	case memReadOnlyRelative:
		return 0
	case memConfigRelative:
		return readOnlyDataLen
	default:
		return 0
	}
}

func (d *Dispatcher) handleReadMemory(data []byte) ([]byte, bool) {
	if len(data) < 4 {
		return []byte{RespFail}, true
	}
	mode := memoryMode(data[0])
	addr := int(data[1])<<8 | int(data[2])
	count := int(data[3])

	if mode == memAbsolute && addr == 0 && count == 1 {
		return []byte{RespWithPayload, BaseFirmwareVersion}, true
	}

	if mode == memStatsRelative {
		return d.readStats(addr, count)
	}

	image := d.memoryImage()
	start := d.baseOffset(mode) + addr
	if start < 0 || start+count > len(image) {
		return []byte{RespFail}, true
	}
	return append([]byte{RespWithPayload}, image[start:start+count]...), true
}

func (d *Dispatcher) readStats(addr, count int) ([]byte, bool) {
	buf := []byte{
		byte(d.Stats.TransmitErrors >> 8), byte(d.Stats.TransmitErrors),
		byte(d.Stats.TransmitTries >> 8), byte(d.Stats.TransmitTries),
		byte(d.Stats.ReceiveErrors >> 8), byte(d.Stats.ReceiveErrors),
		byte(d.Stats.MissedMessages >> 8), byte(d.Stats.MissedMessages),
	}
	for _, k := range d.Errors.Entries() {
		buf = append(buf, byte(len(k)))
		buf = append(buf, []byte(k)...)
	}
	if addr < 0 || addr+count > len(buf) {
		return []byte{RespFail}, true
	}
	return append([]byte{RespWithPayload}, buf[addr:addr+count]...), true
}

func (d *Dispatcher) handleWriteMemory(data []byte) ([]byte, bool) {
	if len(data) < 4 {
		return []byte{RespFail}, true
	}
	mode := memoryMode(data[0])
	if d.Config.ReadWriteProtect && mode != memStatsRelative {
		return []byte{RespFail}, true
	}
	addr := int(data[1])<<8 | int(data[2])
	payload := data[3:]

	if mode == memStatsRelative {
		// A stats-relative write is acknowledged without changing any
		// statistic or error-log entry; CLEAR_STATUS is what resets them.
		return []byte{RespAck}, true
	}

	image := d.memoryImage()
	start := d.baseOffset(mode) + addr
	if start < 0 || start+len(payload) > len(image) {
		return []byte{RespFail}, true
	}
	copy(image[start:], payload)
	d.writeMemoryImage(image)
	d.Config.Recalc()
	d.save()
	return []byte{RespAck}, true
}

// writeMemoryImage scatters a mutated flat image back into the structured
// config fields it was built from by memoryImage.
func (d *Dispatcher) writeMemoryImage(image []byte) {
	off := 0
	copy(d.Config.NodeID[:], image[off:off+6])
	off += 6
	copy(d.Config.ProgramID[:], image[off:off+8])
	off += 8

	d.Config.TwoDomains = image[off] != 0
	d.Config.NmAuth = image[off+1] != 0
	d.Config.ReadWriteProtect = image[off+2] != 0
	off += 3

	for i := range d.Config.DomainTable {
		entry := image[off : off+15]
		dom := &d.Config.DomainTable[i]
		idLen := int(entry[6])
		if idLen > 6 {
			idLen = 6
		}
		dom.ID = append([]byte(nil), entry[0:idLen]...)
		dom.Subnet = entry[7]
		dom.Node = entry[8]
		copy(dom.Key[:], entry[9:15])
		off += 15
	}
	for i := range d.Config.AddrTable {
		entry := image[off : off+5]
		a := &d.Config.AddrTable[i]
		a.Mode = int(entry[0])
		a.DomainIndex = int(entry[1])
		a.Subnet = entry[2]
		a.NodeOrGroup = entry[3]
		a.RetryCount = int(entry[4])
		off += 5
	}
	for i := range d.Config.NVConfigTable {
		entry, ok := decodeNVConfigEntry(image[off : off+4])
		if ok {
			d.Config.NVConfigTable[i] = entry
		}
		off += 4
	}
	for i := range d.Config.NVAliasTable {
		entry := image[off : off+3]
		d.Config.NVAliasTable[i].Primary = int(entry[0])
		d.Config.NVAliasTable[i].Selector = int(entry[1])<<8 | int(entry[2])
		off += 3
	}
}
