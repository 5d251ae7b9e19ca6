// Package errlog implements the LCS error log and per-kind statistics
// counters of spec.md §7: a bounded ring of recently recorded error
// kinds, fed by LCS_RecordError, plus running counters for the resource
// kinds (backlog overflow, missed messages, collisions, transmission
// errors, lost connections) that are also surfaced as raw statistics.
//
// Adapted from the teacher's pkg/errors.StateManager shape (a mutex-
// guarded map of named states with set/get/clear operations), re-keyed
// from per-device error injection state to the node's own LCS error
// kinds and counters.
package errlog

import "sync"

// Kind is one of the error taxonomy entries of spec.md §7.
type Kind string

const (
	BadAddressType           Kind = "BAD_ADDRESS_TYPE"
	InvalidDomain            Kind = "INVALID_DOMAIN"
	WritePastEndOfNetBuffer  Kind = "WRITE_PAST_END_OF_NET_BUFFER"
	WritePastEndOfApplBuffer Kind = "WRITE_PAST_END_OF_APPL_BUFFER"
	UnknownPDU               Kind = "UNKNOWN_PDU"

	AuthenticationMismatch Kind = "AUTHENTICATION_MISMATCH"
	InvalidAddrTableIndex  Kind = "INVALID_ADDR_TABLE_INDEX"
	InvalidNVIndex         Kind = "INVALID_NV_INDEX"

	BacklogOverflow    Kind = "backlogOverflow"
	MissedMessages     Kind = "missedMessages"
	Collisions         Kind = "collisions"
	TransmissionErrors Kind = "transmissionErrors"
	LcsLost            Kind = "LcsLost"
)

// maxEntries bounds the in-memory error log, mirroring an embedded
// target's fixed-size errorLog buffer (spec.md §6 "Persistent state
// layout").
const maxEntries = 16

// Log is the LCS error log: a bounded recent-errors ring plus per-kind
// statistics counters.
type Log struct {
	mu      sync.RWMutex
	entries []Kind
	counts  map[Kind]uint64
}

// New builds an empty error log.
func New() *Log {
	return &Log{counts: make(map[Kind]uint64)}
}

// Record appends kind to the error log and increments its counter,
// implementing LCS_RecordError (spec.md §7).
func (l *Log) Record(kind Kind) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.counts[kind]++
	l.entries = append(l.entries, kind)
	if len(l.entries) > maxEntries {
		l.entries = l.entries[len(l.entries)-maxEntries:]
	}
}

// Count returns how many times kind has been recorded since the last
// Clear.
func (l *Log) Count(kind Kind) uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.counts[kind]
}

// Entries returns a copy of the recent-errors ring, oldest first.
func (l *Log) Entries() []Kind {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Kind, len(l.entries))
	copy(out, l.entries)
	return out
}

// Clear zeroes the statistics and error log, as CLEAR_STATUS (0x53) must
// do (spec.md §4.7).
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
	l.counts = make(map[Kind]uint64)
}
