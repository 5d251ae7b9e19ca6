package link

import (
	"testing"

	"github.com/LonMarkTech/lon-stack-dx-lmi-sub001/pkg/mac"
	"github.com/LonMarkTech/lon-stack-dx-lmi-sub001/pkg/xcvrlink"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	npdu := []byte{0x11, 0x22, 0x33}
	header := NewHeader(true, false)
	framed := Encode(0, header, npdu, mac.AppendCRC)

	gotHeader, gotNPDU, err := Decode(framed[:len(framed)-2])
	if err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	if gotHeader.Priority() != true || gotHeader.AltPath() != false {
		t.Fatalf("unexpected header flags: priority=%v altpath=%v", gotHeader.Priority(), gotHeader.AltPath())
	}
	if string(gotNPDU) != string(npdu) {
		t.Fatalf("npdu mismatch: got %v want %v", gotNPDU, npdu)
	}
	if !mac.VerifyCRC(framed) {
		t.Fatal("expected appended CRC to verify")
	}
}

func TestFromMACAttachesXcvrParam(t *testing.T) {
	npdu := []byte{0xAA}
	framed := Encode(0, NewHeader(false, true), npdu, mac.AppendCRC)
	param := xcvrlink.XcvrParam{Valid: true, SignalDB: -42}

	ind, err := FromMAC(framed[:len(framed)-2], param)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ind.Priority || !ind.AltPath {
		t.Fatalf("unexpected flags: priority=%v altpath=%v", ind.Priority, ind.AltPath)
	}
	if ind.XcvrParam != param {
		t.Fatalf("expected XcvrParam to be carried through, got %+v", ind.XcvrParam)
	}
}

func TestDecodeRejectsShortFrame(t *testing.T) {
	if _, _, err := Decode([]byte{0x00, 0x00}); err == nil {
		t.Fatal("expected error for too-short frame")
	}
}
