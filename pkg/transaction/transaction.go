// Package transaction implements the transaction-id allocator of
// spec.md §4.6: one in-progress outbound transaction per priority class,
// and a bounded table of recently used (destination signature -> last TID)
// entries with age-based eviction, so a peer does not see a replayed TID
// within its freshness window.
//
// Grounded on the teacher's pkg/protocols/neighbors.go aged-entry table
// (upsert-or-evict-oldest against a fixed capacity, entries timestamped
// and swept for expiry), the closest teacher analogue to a bounded table
// with timed eviction.
package transaction

import (
	"errors"

	"github.com/LonMarkTech/lon-stack-dx-lmi-sub001/pkg/clock"
)

// ErrBusy is returned by NewTrans when a transaction at the requested
// priority is already in progress.
var ErrBusy = errors.New("transaction: busy")

// ErrTableFull is returned by NewTrans when the TID table has no room for
// a new destination signature and no entry is evictable.
var ErrTableFull = errors.New("transaction: TID table full")

const (
	minTID = 1
	maxTID = 15
)

// DefaultLifetime returns the 24-second eviction window of spec.md §4.6,
// expressed in src's own tick rate.
func DefaultLifetime(src clock.Source) clock.Tick {
	return clock.Tick(24 * src.Rate())
}

// Signature identifies a destination for TID-table lookups: the domain
// bytes, address mode, and an address-mode-specific key (spec.md §4.6:
// "domain-bytes, address mode, and address key").
type Signature struct {
	Domain string // string(domainBytes), used as a comparable map-friendly key
	Mode   int
	Key    uint32
}

type entry struct {
	sig       Signature
	lastTID   byte
	expiresAt clock.Tick
}

// Table is the bounded TID-table plus per-priority in-progress counters of
// spec.md §4.6.
type Table struct {
	src      clock.Source
	capacity int
	entries  []entry

	inProgress [2]bool // index by priority (false=non-priority, true=priority)
	current    [2]byte
	next       [2]byte
	lifetime   clock.Tick
}

// New builds a Table with the given capacity and entry lifetime (in the
// clock source's own tick units).
func New(src clock.Source, capacity int, lifetime clock.Tick) *Table {
	return &Table{
		src:      src,
		capacity: capacity,
		lifetime: lifetime,
		next:     [2]byte{minTID, minTID},
	}
}

func priIndex(priority bool) int {
	if priority {
		return 1
	}
	return 0
}

func wrapTID(tid byte) byte {
	if tid > maxTID {
		return minTID
	}
	return tid
}

// NewTrans allocates a TID for an outbound transaction at the given
// priority to the given destination signature, implementing spec.md
// §4.6 steps 1-5.
func (t *Table) NewTrans(priority bool, dest Signature) (byte, error) {
	idx := priIndex(priority)
	if t.inProgress[idx] {
		return 0, ErrBusy
	}

	tid := t.next[idx]

	if i := t.find(dest); i >= 0 {
		e := &t.entries[i]
		if e.lastTID == tid {
			tid = wrapTID(tid + 1)
		}
		e.lastTID = tid
		e.expiresAt = t.src.Now() + t.lifetime
	} else {
		if len(t.entries) >= t.capacity {
			if !t.evictExpired() {
				return 0, ErrTableFull
			}
		}
		t.entries = append(t.entries, entry{sig: dest, lastTID: tid, expiresAt: t.src.Now() + t.lifetime})
	}

	t.inProgress[idx] = true
	t.current[idx] = tid
	return tid, nil
}

// TransDone releases the in-progress slot at priority and advances the
// per-priority counter with 15->1 wraparound.
func (t *Table) TransDone(priority bool) {
	idx := priIndex(priority)
	t.inProgress[idx] = false
	t.next[idx] = wrapTID(t.next[idx] + 1)
}

// ValidateTrans reports whether tid matches the in-progress transaction id
// at priority.
func (t *Table) ValidateTrans(priority bool, tid byte) bool {
	idx := priIndex(priority)
	return t.inProgress[idx] && t.current[idx] == tid
}

// ClearTable empties the TID table, as required on POWER_UP_RESET and
// EXTERNAL_RESET (spec.md §4.6, §7). It does not affect in-progress
// transactions or the per-priority counters.
func (t *Table) ClearTable() {
	t.entries = t.entries[:0]
}

func (t *Table) find(sig Signature) int {
	for i := range t.entries {
		if t.entries[i].sig == sig {
			return i
		}
	}
	return -1
}

// evictExpired removes the first expired entry it finds, returning true if
// one was evicted.
func (t *Table) evictExpired() bool {
	now := t.src.Now()
	for i := range t.entries {
		if t.entries[i].expiresAt <= now {
			t.entries = append(t.entries[:i], t.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Len reports the current number of tracked destination signatures.
func (t *Table) Len() int { return len(t.entries) }
