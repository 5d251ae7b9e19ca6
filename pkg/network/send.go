package network

import "errors"

// ErrDropUnconfigured is returned by NWSend when the node has no valid
// domain and the outbound PDU is not one of the auth exemptions (spec.md
// §9 open question 4).
var ErrDropUnconfigured = errors.New("network: dropped, node unconfigured")

// SendParams describes one outbound NPDU before domain/source-address
// resolution (spec.md §4.4's transmit path, mirroring the source's
// NWSend).
type SendParams struct {
	DomainIndex int // index into LocalIdentity.Domains; -1 for flex-domain sends
	PDUType     PDUType
	Dest        Address
	Payload     []byte

	// AuthExempt marks an ack/challenge/reply AuthPDU, which the reference
	// firmware's dropIfUnconfigured still transmits even on an unconfigured
	// node so that authentication handshakes can complete before the node
	// has any valid domain (spec.md §9 open question 4: "clarify which PDU
	// types should be exempted" — resolved here as exactly this set,
	// narrower than exempting all AuthPDUs, since an authentication
	// *request* from an unconfigured node would have no key to answer
	// with anyway).
	AuthExempt bool
}

// NWSend resolves the source subnet/node and domain bytes for domainIdx
// against id, applies the dropIfUnconfigured policy, and encodes the
// resulting NPDU.
func NWSend(id LocalIdentity, p SendParams) ([]byte, error) {
	if !id.Configured && !p.AuthExempt {
		return nil, ErrDropUnconfigured
	}

	n := NPDU{
		Version: ProtocolVersion,
		PDUType: p.PDUType,
		Dest:    p.Dest,
		Payload: p.Payload,
	}
	if p.DomainIndex >= 0 && p.DomainIndex < len(id.Domains) {
		d := id.Domains[p.DomainIndex]
		n.Domain = d.ID
		n.SourceSubnet = d.Subnet
		n.SourceNode = d.Node
	}
	return Encode(n)
}
