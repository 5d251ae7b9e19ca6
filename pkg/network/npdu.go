package network

import "fmt"

// PDUType is the network-layer payload discriminator (spec.md §6).
type PDUType int

const (
	PDUTypeAPDU PDUType = iota
	PDUTypeTPDU
	PDUTypeSPDU
	PDUTypeAuth
)

// wire encodes PDUType per spec.md §6's literal bit mapping: "bit 5-4 =
// pduType (0=TPDU, 1=SPDU, 2=AUTHPDU, 3=APDU)" — note this differs from
// §3's prose enumeration order (APDU, TPDU, SPDU, AUTHPDU), which names
// no wire values; §6 is the wire-format authority.
func (p PDUType) wire() (byte, error) {
	switch p {
	case PDUTypeTPDU:
		return 0, nil
	case PDUTypeSPDU:
		return 1, nil
	case PDUTypeAuth:
		return 2, nil
	case PDUTypeAPDU:
		return 3, nil
	default:
		return 0, fmt.Errorf("network: invalid pduType %d", p)
	}
}

func pduTypeFromWire(v byte) (PDUType, error) {
	switch v & 0x3 {
	case 0:
		return PDUTypeTPDU, nil
	case 1:
		return PDUTypeSPDU, nil
	case 2:
		return PDUTypeAuth, nil
	case 3:
		return PDUTypeAPDU, nil
	default:
		return 0, fmt.Errorf("network: invalid pduType wire value %d", v)
	}
}

// ProtocolVersion is the single supported NPDU protocol version (spec.md §6).
const ProtocolVersion = 0

// NPDU is a decoded network-layer protocol data unit (spec.md §6).
type NPDU struct {
	Version      byte
	PDUType      PDUType
	SourceSubnet byte
	SourceNode   byte
	Dest         Address
	Domain       []byte
	Payload      []byte
}

// Encode serializes an NPDU header, destination address, domain bytes, and
// payload into wire bytes. The header byte layout is:
//
//	bit7:   protocolVersion (0)
//	bit6-5: pduType
//	bit4-3: addrFmt
//	bit2:   selField (SUBNET_NODE=0 / MULTICAST_ACK=1, meaningful only for addrFmt=2)
//	bit1-0: domainLenCode
func Encode(n NPDU) ([]byte, error) {
	pduType, err := n.PDUType.wire()
	if err != nil {
		return nil, err
	}
	domainLenCode, err := DomainLenCode(len(n.Domain))
	if err != nil {
		return nil, err
	}
	addrFmt := n.Dest.Mode.AddrFmt()

	var header byte
	header |= (n.Version & 0x1) << 7
	header |= (pduType & 0x3) << 5
	header |= (addrFmt & 0x3) << 3
	if n.Dest.Mode == MulticastAck {
		header |= 1 << 2
	}
	header |= domainLenCode & 0x3

	out := make([]byte, 0, 1+2+6+len(n.Domain)+len(n.Payload))
	out = append(out, header)
	out = append(out, n.SourceSubnet, n.SourceNode)

	switch n.Dest.Mode {
	case Broadcast:
		out = append(out, n.Dest.Subnet)
	case Multicast:
		out = append(out, n.Dest.Subnet, n.Dest.Group)
	case SubnetNode:
		// addrFmt=2 always carries 3 address bytes on the wire; the first
		// is only meaningful when selField designates MULTICAST_ACK.
		out = append(out, 0, n.Dest.Subnet, n.Dest.Node&0x7F)
	case MulticastAck:
		out = append(out, n.Dest.Group, n.Dest.Subnet, n.Dest.Member&0x7F)
	case UniqueNodeID:
		out = append(out, n.Dest.Subnet)
		out = append(out, n.Dest.UniqueID[:]...)
	default:
		return nil, fmt.Errorf("network: unknown destination address mode %d", n.Dest.Mode)
	}

	out = append(out, n.Domain...)
	out = append(out, n.Payload...)
	return out, nil
}

// Decode parses wire bytes into an NPDU (spec.md §6). It returns an error
// for any structurally malformed input; it does not apply receive filters
// (see Accept), which require node-local domain-table context.
func Decode(data []byte) (NPDU, error) {
	if len(data) < 3 {
		return NPDU{}, fmt.Errorf("network: NPDU too short (%d bytes)", len(data))
	}
	header := data[0]
	version := (header >> 7) & 0x1
	pduType, err := pduTypeFromWire(header >> 5)
	if err != nil {
		return NPDU{}, err
	}
	addrFmt := (header >> 3) & 0x3
	selField := (header>>2)&0x1 != 0
	domainLen, err := DomainLenFromCode(header)
	if err != nil {
		return NPDU{}, err
	}

	n := NPDU{Version: version, PDUType: pduType}
	n.SourceSubnet = data[1]
	n.SourceNode = data[2]
	off := 3

	switch addrFmt {
	case 0:
		if len(data) < off+1 {
			return NPDU{}, fmt.Errorf("network: NPDU truncated in BROADCAST address")
		}
		n.Dest = Address{Mode: Broadcast, Subnet: data[off]}
		off++
	case 1:
		if len(data) < off+2 {
			return NPDU{}, fmt.Errorf("network: NPDU truncated in MULTICAST address")
		}
		n.Dest = Address{Mode: Multicast, Subnet: data[off], Group: data[off+1]}
		off += 2
	case 2:
		if len(data) < off+3 {
			return NPDU{}, fmt.Errorf("network: NPDU truncated in SUBNET_NODE/MULTICAST_ACK address")
		}
		if selField {
			n.Dest = Address{
				Mode:   MulticastAck,
				Group:  data[off],
				Subnet: data[off+1],
				Member: data[off+2] & 0x7F,
			}
		} else {
			n.Dest = Address{
				Mode:   SubnetNode,
				Subnet: data[off+1],
				Node:   data[off+2] & 0x7F,
			}
		}
		off += 3
	case 3:
		if len(data) < off+7 {
			return NPDU{}, fmt.Errorf("network: NPDU truncated in UNIQUE_NODE_ID address")
		}
		var uid [6]byte
		copy(uid[:], data[off+1:off+7])
		n.Dest = Address{Mode: UniqueNodeID, Subnet: data[off], UniqueID: uid}
		off += 7
	default:
		return NPDU{}, fmt.Errorf("network: invalid addrFmt %d", addrFmt)
	}

	if len(data) < off+domainLen {
		return NPDU{}, fmt.Errorf("network: NPDU truncated in domain bytes")
	}
	if domainLen > 0 {
		n.Domain = append([]byte(nil), data[off:off+domainLen]...)
	}
	off += domainLen

	n.Payload = append([]byte(nil), data[off:]...)
	return n, nil
}
