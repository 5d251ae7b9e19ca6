// Package trace is a diagnostic capture-file writer for decoded LPDU
// frames: each frame handed to Write is appended to a pcap file other
// tools (or a custom Wireshark dissector) can later replay.
//
// Grounded on the teacher's pkg/capture/capture.go use of gopacket to
// serialize and emit frames, narrowed here to the pure-Go
// gopacket/pcapgo writer rather than pkg/capture's cgo-backed
// gopacket/pcap handle, since this stack has no Ethernet interface to
// capture from — only frames already decoded off the XcvrLink.
package trace

import (
	"fmt"
	"io"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

// linkTypeLonTalkLPDU is an unassigned DLT_USER slot (147) used to mark
// captured frames as raw LonTalk LPDUs rather than any registered link
// type; a companion dissector can interpret them accordingly.
const linkTypeLonTalkLPDU = layers.LinkType(147)

// Writer appends raw LPDU frames to a pcap-format capture file.
type Writer struct {
	w   *pcapgo.Writer
	now func() gopacket.CaptureInfo
}

// NewWriter wraps dst with a pcap file header for LonTalk LPDU capture.
// nowFn supplies the capture timestamp per frame (injected so callers can
// avoid a direct wall-clock dependency in tests).
func NewWriter(dst io.Writer, nowFn func() gopacket.CaptureInfo) (*Writer, error) {
	w := pcapgo.NewWriter(dst)
	if err := w.WriteFileHeader(65536, linkTypeLonTalkLPDU); err != nil {
		return nil, fmt.Errorf("trace: write file header: %w", err)
	}
	return &Writer{w: w, now: nowFn}, nil
}

// Write appends one LPDU frame (as already framed by pkg/link.Encode) to
// the capture.
func (t *Writer) Write(frame []byte) error {
	ci := t.now()
	ci.CaptureLength = len(frame)
	ci.Length = len(frame)
	return t.w.WritePacket(ci, frame)
}
