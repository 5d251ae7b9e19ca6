package transport

import "github.com/LonMarkTech/lon-stack-dx-lmi-sub001/pkg/clock"

// PeerKey identifies the sender of an inbound acknowledged/request PDU for
// duplicate detection (spec.md §4.5: "the (source, TID, priority) tuple").
type PeerKey struct {
	SourceSubnet byte
	SourceNode   byte
	Priority     bool
}

type peerRecord struct {
	lastTID  byte
	response []byte // cached response body, re-sent verbatim on a duplicate request
	expires  clock.Tick
}

// DuplicateTable holds one receive-transaction record per peer signature,
// used to detect and answer retransmitted requests without re-running the
// application handler (spec.md §4.5).
type DuplicateTable struct {
	src     clock.Source
	ttl     clock.Tick
	records map[PeerKey]*peerRecord
}

// NewDuplicateTable builds a table whose records expire ttl ticks after
// their last refresh.
func NewDuplicateTable(src clock.Source, ttl clock.Tick) *DuplicateTable {
	return &DuplicateTable{src: src, ttl: ttl, records: make(map[PeerKey]*peerRecord)}
}

// Check reports whether (key, tid) is a duplicate of the most recently
// seen transaction from that peer, and if so returns the cached response
// to resend (nil if none was cached, e.g. for UNACKD traffic).
func (d *DuplicateTable) Check(key PeerKey, tid byte) (cachedResponse []byte, isDuplicate bool) {
	rec, ok := d.records[key]
	if !ok || d.src.Now() > rec.expires {
		return nil, false
	}
	if rec.lastTID != tid {
		return nil, false
	}
	return rec.response, true
}

// Record stores the outcome of a freshly handled (non-duplicate)
// transaction from key, so a retransmitted request can be answered without
// re-invoking the handler.
func (d *DuplicateTable) Record(key PeerKey, tid byte, response []byte) {
	d.records[key] = &peerRecord{
		lastTID:  tid,
		response: response,
		expires:  d.src.Now() + d.ttl,
	}
}
