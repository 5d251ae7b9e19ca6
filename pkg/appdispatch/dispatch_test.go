package appdispatch

import (
	"bytes"
	"testing"

	"github.com/LonMarkTech/lon-stack-dx-lmi-sub001/pkg/errlog"
	"github.com/LonMarkTech/lon-stack-dx-lmi-sub001/pkg/nodeconfig"
)

func newDispatcher(cfg *nodeconfig.Config) *Dispatcher {
	return New(cfg, errlog.New(), func() {})
}

// TestQueryIDOnUnconfiguredNode pins spec.md §8 scenario 1.
func TestQueryIDOnUnconfiguredNode(t *testing.T) {
	nodeID := [6]byte{0x00, 0xFD, 0xFF, 0xFF, 0xFF, 0x01}
	programID := [8]byte{'c', 'S', 't', 'a', 'c', 'k', '1', 0x00}
	cfg := nodeconfig.Default(nodeID, programID)
	d := newDispatcher(cfg)

	resp, send := d.Handle(CodeQueryID, []byte{byte(SelectorUnconfigured)}, ReceiveContext{})
	if !send {
		t.Fatal("expected a response to be sent")
	}
	want := append([]byte{RespWithPayload}, nodeID[:]...)
	want = append(want, programID[:]...)
	if !bytes.Equal(resp, want) {
		t.Fatalf("got % X, want % X", resp, want)
	}
}

// TestUpdateThenQueryDomain pins spec.md §8 scenario 2.
func TestUpdateThenQueryDomain(t *testing.T) {
	cfg := nodeconfig.Default([6]byte{1, 2, 3, 4, 5, 6}, [8]byte{})
	d := newDispatcher(cfg)

	req := []byte{0x00, 0x2C, 0x01, 0x01, 0x07, 0x00, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}
	resp, send := d.Handle(CodeUpdateDomain, req, ReceiveContext{})
	if !send || !bytes.Equal(resp, []byte{RespAck}) {
		t.Fatalf("expected bare success ack, got resp=% X send=%v", resp, send)
	}

	got := cfg.DomainTable[0]
	if len(got.ID) != 1 || got.ID[0] != 0x2C || got.Subnet != 1 || got.Node != 7 {
		t.Fatalf("unexpected domain after update: %+v", got)
	}
	for _, b := range got.Key {
		if b != 0xFF {
			t.Fatalf("expected an all-0xFF key, got %+v", got.Key)
		}
	}

	resp, send = d.Handle(CodeQueryDomain, []byte{0x00}, ReceiveContext{})
	if !send {
		t.Fatal("expected a response")
	}
	want := append([]byte{RespQueryDomain}, encodeDomainEntry(got)...)
	if !bytes.Equal(resp, want) {
		t.Fatalf("got % X, want % X", resp, want)
	}
}

// TestLeaveLastDomainSchedulesSoftwareReset pins spec.md §8 scenario 5.
func TestLeaveLastDomainSchedulesSoftwareReset(t *testing.T) {
	cfg := nodeconfig.Default([6]byte{1, 2, 3, 4, 5, 6}, [8]byte{})
	cfg.DomainTable[0] = nodeconfig.Domain{ID: []byte{0x01}, Subnet: 1, Node: 1, Valid: true}
	cfg.ProgramState = nodeconfig.ConfigOnline
	d := newDispatcher(cfg)

	resp, send := d.Handle(CodeLeaveDomain, []byte{0x00}, ReceiveContext{})
	if send || resp != nil {
		t.Fatalf("expected no response on the domain just left, got resp=% X send=%v", resp, send)
	}

	cause, scheduled := d.ResetScheduled()
	if !scheduled || cause != nodeconfig.ResetSoftware {
		t.Fatalf("expected a scheduled software reset, got cause=%v scheduled=%v", cause, scheduled)
	}
	if cfg.ProgramState != nodeconfig.ApplUnconfig {
		t.Fatalf("expected APPL_UNCNFG after leaving the last domain, got %v", cfg.ProgramState)
	}
}

// TestUpdateNVCnfgRecomputesChecksum pins spec.md §8 scenario 6.
func TestUpdateNVCnfgRecomputesChecksum(t *testing.T) {
	cfg := nodeconfig.Default([6]byte{1, 2, 3, 4, 5, 6}, [8]byte{})
	cfg.NVConfigTable = make([]nodeconfig.NVConfigEntry, 6)
	cfg.Recalc()
	before := cfg.ConfigCheckSum
	d := newDispatcher(cfg)

	entry := nodeconfig.NVConfigEntry{Direction: 1, Selector: 300, Priority: true, Service: 2, Length: 4, Bound: true}
	payload := append([]byte{0x05}, encodeNVConfigEntry(entry)...)

	resp, send := d.Handle(CodeUpdateNVCnfg, payload, ReceiveContext{})
	if !send || !bytes.Equal(resp, []byte{RespWithPayload}) {
		t.Fatalf("expected a RespWithPayload ack, got resp=% X send=%v", resp, send)
	}
	if cfg.NVConfigTable[5] != entry {
		t.Fatalf("expected nvConfigTable[5] to equal the written entry, got %+v", cfg.NVConfigTable[5])
	}
	if cfg.ConfigCheckSum == before {
		t.Fatal("expected the checksum to change after the NV write")
	}
}

// TestAuthGatingAllowsOnlyAllowListedCommands pins the "NM auth gating"
// property of spec.md §8.
func TestAuthGatingAllowsOnlyAllowListedCommands(t *testing.T) {
	cfg := nodeconfig.Default([6]byte{1, 2, 3, 4, 5, 6}, [8]byte{})
	cfg.DomainTable[0] = nodeconfig.Domain{ID: []byte{0x01}, Subnet: 1, Node: 1, Valid: true}
	cfg.NmAuth = true
	d := newDispatcher(cfg)

	before := cfg.DomainTable[1]
	resp, send := d.Handle(CodeUpdateDomain,
		[]byte{0x01, 0x2C, 0x01, 0x01, 0x07, 0x00, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF},
		ReceiveContext{Authenticated: false})
	if !send || resp[0] != (CodeUpdateDomain.Family()|respFailureBit) {
		t.Fatalf("expected an auth-gated failure response, got % X send=%v", resp, send)
	}
	if cfg.DomainTable[1] != before {
		t.Fatal("expected the unauthenticated command to leave state unmutated")
	}
	if d.Errors.Count(errlog.AuthenticationMismatch) != 1 {
		t.Fatal("expected the authentication mismatch to be recorded")
	}

	// QUERY_ID is allow-listed even without authentication.
	_, send = d.Handle(CodeQueryID, []byte{byte(SelectorUnconfigured)}, ReceiveContext{Authenticated: false})
	if !send {
		t.Fatal("expected QUERY_ID to be answered without authentication")
	}
}

// TestReadMemoryBaseFirmwareVersionQuirk pins spec.md §9 open question 2:
// an absolute read of address 0, length 1 returns BASE_FIRMWARE_VERSION,
// not the first byte of NodeID, while a longer read at address 0 returns
// the actual memory image.
func TestReadMemoryBaseFirmwareVersionQuirk(t *testing.T) {
	cfg := nodeconfig.Default([6]byte{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF}, [8]byte{})
	d := newDispatcher(cfg)

	resp, send := d.Handle(CodeReadMemory, []byte{byte(memAbsolute), 0x00, 0x00, 0x01}, ReceiveContext{})
	if !send || !bytes.Equal(resp, []byte{RespWithPayload, BaseFirmwareVersion}) {
		t.Fatalf("expected the quirky single-byte version read, got % X", resp)
	}

	resp, send = d.Handle(CodeReadMemory, []byte{byte(memAbsolute), 0x00, 0x00, 0x02}, ReceiveContext{})
	if !send || !bytes.Equal(resp, []byte{RespWithPayload, 0xAA, 0xBB}) {
		t.Fatalf("expected a longer read at address 0 to return real memory, got % X", resp)
	}
}

// TestWinkSendIDInfoToleratesMissingNIIndex pins spec.md §9 open question 3:
// SEND_ID_INFO's niIndex byte is read without a prior length check in the
// reference firmware; this must not panic or bypass anything here, just
// default the missing index to 0.
func TestWinkSendIDInfoToleratesMissingNIIndex(t *testing.T) {
	nodeID := [6]byte{9, 9, 9, 9, 9, 9}
	cfg := nodeconfig.Default(nodeID, [8]byte{1, 2, 3, 4, 5, 6, 7, 8})
	d := newDispatcher(cfg)

	resp, send := d.Handle(CodeWink, []byte{byte(WinkSendIDInfo)}, ReceiveContext{})
	if !send {
		t.Fatal("expected a response")
	}
	want := append([]byte{RespWithPayload}, nodeID[:]...)
	want = append(want, cfg.ProgramID[:]...)
	if !bytes.Equal(resp, want) {
		t.Fatalf("got % X, want % X", resp, want)
	}
}

func TestWinkWithoutSubCommandTriggersLocalWink(t *testing.T) {
	cfg := nodeconfig.Default([6]byte{1, 2, 3, 4, 5, 6}, [8]byte{})
	d := newDispatcher(cfg)

	triggered := false
	prev := WinkTrigger
	WinkTrigger = func() { triggered = true }
	defer func() { WinkTrigger = prev }()

	resp, send := d.Handle(CodeWink, nil, ReceiveContext{})
	if send || resp != nil {
		t.Fatalf("expected no response for a local wink, got resp=% X send=%v", resp, send)
	}
	if !triggered {
		t.Fatal("expected the local wink action to fire")
	}
}

func TestExpandedQueryVersionReportsCapabilities(t *testing.T) {
	cfg := nodeconfig.Default([6]byte{1, 2, 3, 4, 5, 6}, [8]byte{})
	d := newDispatcher(cfg)

	resp, send := d.Handle(CodeExpanded, []byte{byte(SubQueryVersion)}, ReceiveContext{})
	if !send {
		t.Fatal("expected a response")
	}
	want := []byte{RespWithPayload, ExpandedVersion, CapOMA | CapProxy | CapSSI}
	if !bytes.Equal(resp, want) {
		t.Fatalf("got % X, want % X", resp, want)
	}
}

func TestQueryStatusUsesHighBitNDResponseCode(t *testing.T) {
	cfg := nodeconfig.Default([6]byte{1, 2, 3, 4, 5, 6}, [8]byte{})
	d := newDispatcher(cfg)

	resp, send := d.Handle(CodeQueryStatus, nil, ReceiveContext{})
	if !send || len(resp) == 0 || resp[0] != 0xD1 {
		t.Fatalf("expected QUERY_STATUS to answer with code 0xD1, got % X", resp)
	}
}

func TestServiceLEDReflectsProgramState(t *testing.T) {
	cfg := nodeconfig.Default([6]byte{1, 2, 3, 4, 5, 6}, [8]byte{})
	d := newDispatcher(cfg)

	if on, flash := d.ServiceLED(); !on || !flash {
		t.Fatalf("expected APPL_UNCNFG to flash, got on=%v flash=%v", on, flash)
	}

	cfg.ProgramState = nodeconfig.ConfigOnline
	if on, flash := d.ServiceLED(); on || flash {
		t.Fatalf("expected a healthy online node to keep the LED off, got on=%v flash=%v", on, flash)
	}

	cfg.ProgramState = nodeconfig.NoApplUnconfig
	if on, flash := d.ServiceLED(); !on || flash {
		t.Fatalf("expected NO_APPL_UNCNFG to show a solid LED, got on=%v flash=%v", on, flash)
	}
}
