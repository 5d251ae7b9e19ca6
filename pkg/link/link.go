// Package link implements LPDU framing (spec.md §4.3): the single header
// byte encoding priority and alt-path, CRC delegated to the transceiver/
// MAC layer, and delivery to the network-layer input queue together with
// a signal-strength snapshot.
//
// Grounded on the teacher's pkg/protocols/packet.go Get16/Put16 byte-
// accessor style, generalized to the LPDU's {flag, pduSize, header, npdu,
// crc} frame shape.
package link

import (
	"encoding/binary"
	"fmt"

	"github.com/LonMarkTech/lon-stack-dx-lmi-sub001/pkg/xcvrlink"
)

// Header is the single LPDU header byte (spec.md §4.3): priority in bit
// 7, alt-path in bit 6.
type Header byte

const (
	headerPriorityBit = 0x80
	headerAltPathBit  = 0x40
)

// NewHeader builds an LPDU header byte.
func NewHeader(priority, altPath bool) Header {
	var h Header
	if priority {
		h |= headerPriorityBit
	}
	if altPath {
		h |= headerAltPathBit
	}
	return h
}

// Priority reports the header's priority bit.
func (h Header) Priority() bool { return h&headerPriorityBit != 0 }

// AltPath reports the header's alt-path bit.
func (h Header) AltPath() bool { return h&headerAltPathBit != 0 }

// Frame is an LPDU framed as {flag[1], pduSize[2], header[1], npdu[...], crc[2]}.
type Frame struct {
	Flag   byte
	Header Header
	NPDU   []byte
}

// Encode serializes the frame, appending the CRC. flag is a caller-
// supplied framing byte (reserved for future link conventions; 0 by
// default).
func Encode(flag byte, header Header, npdu []byte, crc func([]byte) []byte) []byte {
	body := make([]byte, 0, 1+2+1+len(npdu))
	body = append(body, flag)
	size := make([]byte, 2)
	binary.BigEndian.PutUint16(size, uint16(1+len(npdu)))
	body = append(body, size...)
	body = append(body, byte(header))
	body = append(body, npdu...)
	return crc(body)
}

// Decode parses a framed LPDU (with the trailing CRC already verified by
// the MAC layer) and returns its header, enclosed NPDU bytes, and an
// error if the frame is structurally malformed.
func Decode(frame []byte) (Header, []byte, error) {
	if len(frame) < 3 {
		return 0, nil, fmt.Errorf("link: frame too short (%d bytes)", len(frame))
	}
	size := binary.BigEndian.Uint16(frame[1:3])
	if int(size) < 1 {
		return 0, nil, fmt.Errorf("link: invalid pduSize %d", size)
	}
	if len(frame) < 3+int(size) {
		return 0, nil, fmt.Errorf("link: frame shorter than declared pduSize %d", size)
	}
	header := Header(frame[3])
	npdu := frame[4 : 3+int(size)]
	return header, npdu, nil
}

// Indication is delivered to the network layer's receive queue: the
// decoded header plus a snapshot of the transceiver-reported signal
// strength at the time of reception (spec.md §4.3).
type Indication struct {
	Priority  bool
	AltPath   bool
	NPDU      []byte
	XcvrParam xcvrlink.XcvrParam
}

// FromMAC converts a MAC-delivered, CRC-checked receive indication into a
// link-layer Indication ready for the network layer.
func FromMAC(raw []byte, param xcvrlink.XcvrParam) (Indication, error) {
	header, npdu, err := Decode(raw)
	if err != nil {
		return Indication{}, err
	}
	return Indication{
		Priority:  header.Priority(),
		AltPath:   header.AltPath(),
		NPDU:      npdu,
		XcvrParam: param,
	}, nil
}
