package network

import "testing"

func baseIdentity() LocalIdentity {
	return LocalIdentity{
		Domains:    []Domain{{ID: []byte{0x01, 0x02, 0x03}, Subnet: 4, Node: 9}},
		UniqueID:   [6]byte{1, 2, 3, 4, 5, 6},
		Configured: true,
	}
}

func TestAcceptRejectsWrongProtocolVersion(t *testing.T) {
	n := NPDU{Version: 1, Domain: []byte{0x01, 0x02, 0x03}, Dest: Address{Mode: Broadcast}}
	if _, ok := Accept(baseIdentity(), n, nil); ok {
		t.Fatal("expected a non-zero protocol version to be rejected")
	}
}

func TestAcceptSuppressesSelfLoop(t *testing.T) {
	n := NPDU{
		Domain:       []byte{0x01, 0x02, 0x03},
		SourceSubnet: 4,
		SourceNode:   9,
		Dest:         Address{Mode: Broadcast, Subnet: 4},
	}
	if _, ok := Accept(baseIdentity(), n, nil); ok {
		t.Fatal("expected self-originated NPDU to be discarded")
	}
}

func TestAcceptRejectsUnconfiguredDomainByDefault(t *testing.T) {
	n := NPDU{Domain: []byte{0x99}, Dest: Address{Mode: Broadcast}}
	if _, ok := Accept(baseIdentity(), n, nil); ok {
		t.Fatal("expected a configured node's flex-domain BROADCAST NPDU to be rejected")
	}
}

func TestAcceptAdmitsFlexDomainUniqueIDMatch(t *testing.T) {
	id := baseIdentity()
	n := NPDU{
		Domain: []byte{0x99},
		Dest:   Address{Mode: UniqueNodeID, Subnet: 1, UniqueID: id.UniqueID},
	}
	idx, ok := Accept(id, n, nil)
	if !ok {
		t.Fatal("expected flex-domain NPDU addressed to this node's unique id to be admitted")
	}
	if idx != -1 {
		t.Fatalf("expected flex match index -1, got %d", idx)
	}

	n.Dest.UniqueID = [6]byte{9, 9, 9, 9, 9, 9}
	if _, ok := Accept(id, n, nil); ok {
		t.Fatal("expected a non-matching unique id to be rejected")
	}
}

func TestUnconfiguredNodeAcceptsOnlyBroadcastAndUniqueID(t *testing.T) {
	id := LocalIdentity{UniqueID: [6]byte{1, 2, 3, 4, 5, 6}, Configured: false}

	broadcast := NPDU{Domain: nil, Dest: Address{Mode: Broadcast}}
	if _, ok := Accept(id, broadcast, nil); !ok {
		t.Fatal("expected an unconfigured node to accept BROADCAST")
	}

	uid := NPDU{Domain: nil, Dest: Address{Mode: UniqueNodeID, UniqueID: id.UniqueID}}
	if _, ok := Accept(id, uid, nil); !ok {
		t.Fatal("expected an unconfigured node to accept a matching UNIQUE_NODE_ID")
	}

	subnetNode := NPDU{Domain: nil, Dest: Address{Mode: SubnetNode, Subnet: 1, Node: 1}}
	if _, ok := Accept(id, subnetNode, nil); ok {
		t.Fatal("expected an unconfigured node to reject SUBNET_NODE")
	}
}

func TestAcceptFiltersSubnetNodeAddress(t *testing.T) {
	id := baseIdentity()
	n := NPDU{
		Domain:       []byte{0x01, 0x02, 0x03},
		SourceSubnet: 4,
		SourceNode:   1, // not self, so not a self-loop
		Dest:         Address{Mode: SubnetNode, Subnet: 4, Node: 9},
	}
	if _, ok := Accept(id, n, nil); !ok {
		t.Fatal("expected matching subnet/node address to be admitted")
	}

	n.Dest.Node = 10
	if _, ok := Accept(id, n, nil); ok {
		t.Fatal("expected mismatched node address to be rejected")
	}
}

func TestAcceptFiltersMulticastByGroupMembership(t *testing.T) {
	id := baseIdentity()
	n := NPDU{
		Domain:       []byte{0x01, 0x02, 0x03},
		SourceSubnet: 4,
		SourceNode:   1,
		Dest:         Address{Mode: Multicast, Group: 42},
	}
	if _, ok := Accept(id, n, map[byte]bool{42: true}); !ok {
		t.Fatal("expected group member to admit a matching multicast NPDU")
	}
	if _, ok := Accept(id, n, map[byte]bool{7: true}); ok {
		t.Fatal("expected non-member to reject a non-matching multicast NPDU")
	}
}

func TestEncodeRejectsUnknownDomainLength(t *testing.T) {
	n := NPDU{Dest: Address{Mode: Broadcast}, Domain: []byte{1, 2}}
	if _, err := Encode(n); err == nil {
		t.Fatal("expected an error for an invalid 2-byte domain length")
	}
}
