package network

// Domain describes one of a node's (up to two) configured domains, used to
// classify a received NPDU's domain bytes against the node's table
// (spec.md §4.4, §7).
type Domain struct {
	ID     []byte
	Subnet byte
	Node   byte
}

// LocalIdentity is the receive-side context a node supplies to Accept: its
// configured domains and its own subnet/node address, used to classify and
// possibly discard an inbound NPDU.
type LocalIdentity struct {
	Domains    []Domain
	UniqueID   [6]byte
	Configured bool // false until at least one domain table entry is valid
}

// MatchResult classifies an inbound NPDU against the node's domain table.
type MatchResult struct {
	DomainIndex int  // index into LocalIdentity.Domains, or -1 for FlexDomain
	Flex        bool // true when no configured domain matched
}

// ClassifyDomain finds which configured domain (if any) an NPDU's domain
// bytes belong to. A flex domain (no match) is still accepted; unconfigured
// acceptance is governed by the caller per spec.md §4.4's exemption for
// ACKD/challenge/reply AuthPDUs.
func ClassifyDomain(id LocalIdentity, domainBytes []byte) MatchResult {
	for i, d := range id.Domains {
		if bytesEqual(d.ID, domainBytes) {
			return MatchResult{DomainIndex: i, Flex: false}
		}
	}
	return MatchResult{DomainIndex: -1, Flex: true}
}

func bytesEqual(a, b []byte) bool {
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

// IsSelfLoop reports whether an inbound NPDU originated from this same
// node, by comparing source subnet/node to the node's configured address
// in the matched domain (spec.md §4.4: received NPDUs that this node itself
// transmitted must be discarded to avoid a self-echo loop).
func IsSelfLoop(n NPDU, matched Domain) bool {
	return n.SourceSubnet == matched.Subnet && n.SourceNode == matched.Node
}

// AddressAccepts reports whether an inbound NPDU's destination address
// admits this node, given the node's address in the matched domain and its
// group memberships.
func AddressAccepts(n NPDU, self Domain, groups map[byte]bool) bool {
	switch n.Dest.Mode {
	case Broadcast:
		return n.Dest.Subnet == 0 || n.Dest.Subnet == self.Subnet
	case Multicast:
		return groups[n.Dest.Group]
	case MulticastAck:
		return groups[n.Dest.Group]
	case SubnetNode:
		return (n.Dest.Subnet == 0 || n.Dest.Subnet == self.Subnet) && n.Dest.Node == self.Node
	case UniqueNodeID:
		return false // resolved by caller against the node's unique ID, not the domain table
	default:
		return false
	}
}

// Accept runs the receive-side filter pipeline of spec.md §4.4 in order:
// protocol-version check, self-echo suppression, then domain/address
// admission.
//
// Flex-domain handling follows spec.md §4.4/§8 exactly: unconfigured nodes
// accept only BROADCAST and UNIQUE_NODE_ID; configured nodes on a flex
// domain (one that matched none of their domain-table entries) accept only
// UNIQUE_NODE_ID whose id matches id.UniqueID.
func Accept(id LocalIdentity, n NPDU, groups map[byte]bool) (matchedDomainIdx int, ok bool) {
	if n.Version != ProtocolVersion {
		return -1, false
	}
	match := ClassifyDomain(id, n.Domain)

	if match.Flex {
		if !id.Configured {
			if n.Dest.Mode == Broadcast {
				return -1, true
			}
		}
		if n.Dest.Mode == UniqueNodeID && n.Dest.UniqueID == id.UniqueID {
			return -1, true
		}
		return -1, false
	}

	self := id.Domains[match.DomainIndex]
	if IsSelfLoop(n, self) {
		return -1, false
	}
	if n.Dest.Mode == UniqueNodeID {
		if n.Dest.UniqueID == id.UniqueID {
			return match.DomainIndex, true
		}
		return match.DomainIndex, false
	}
	if !AddressAccepts(n, self, groups) {
		return match.DomainIndex, false
	}
	return match.DomainIndex, true
}
