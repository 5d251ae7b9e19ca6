package transaction

import (
	"testing"

	"github.com/LonMarkTech/lon-stack-dx-lmi-sub001/pkg/clock"
)

type fakeClock struct {
	t clock.Tick
}

func (f *fakeClock) Now() clock.Tick  { return f.t }
func (f *fakeClock) Rate() uint64     { return 1 }
func (f *fakeClock) Advance(d clock.Tick) { f.t += d }

func dest(key uint32) Signature {
	return Signature{Domain: "dom", Mode: 2, Key: key}
}

func TestNewTransRefusesWhenBusy(t *testing.T) {
	src := &fakeClock{}
	tbl := New(src, 4, 24)

	if _, err := tbl.NewTrans(false, dest(1)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := tbl.NewTrans(false, dest(2)); err != ErrBusy {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	// A different priority class is independent.
	if _, err := tbl.NewTrans(true, dest(3)); err != nil {
		t.Fatalf("unexpected error on priority class: %v", err)
	}
}

func TestTIDFreshnessAcrossConsecutiveTransactions(t *testing.T) {
	src := &fakeClock{}
	tbl := New(src, 4, 24)
	d := dest(1)

	first, err := tbl.NewTrans(false, d)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tbl.TransDone(false)

	second, err := tbl.NewTrans(false, d)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second == first {
		t.Fatalf("expected consecutive TIDs for same destination to differ: %d == %d", first, second)
	}
}

func TestTIDWrapsFifteenToOne(t *testing.T) {
	src := &fakeClock{}
	tbl := New(src, 4, 24)
	d := dest(1)

	tbl.next[0] = 15
	tid, err := tbl.NewTrans(false, d)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tid != 15 {
		t.Fatalf("expected first allocation to use the pre-set counter value 15, got %d", tid)
	}
	tbl.TransDone(false)
	if tbl.next[0] != 1 {
		t.Fatalf("expected counter to wrap 15->1, got %d", tbl.next[0])
	}
}

func TestValidateTransMatchesOnlyInProgressTID(t *testing.T) {
	src := &fakeClock{}
	tbl := New(src, 4, 24)
	tid, _ := tbl.NewTrans(false, dest(1))

	if !tbl.ValidateTrans(false, tid) {
		t.Fatal("expected in-progress tid to validate")
	}
	if tbl.ValidateTrans(false, tid+1) {
		t.Fatal("expected a mismatched tid to not validate")
	}
	if tbl.ValidateTrans(true, tid) {
		t.Fatal("expected the other priority class to have no in-progress transaction")
	}
}

func TestClearTableRemovesEntriesNotCounters(t *testing.T) {
	src := &fakeClock{}
	tbl := New(src, 4, 24)
	tbl.NewTrans(false, dest(1))
	tbl.TransDone(false)

	if tbl.Len() != 1 {
		t.Fatalf("expected one tracked signature, got %d", tbl.Len())
	}
	tbl.ClearTable()
	if tbl.Len() != 0 {
		t.Fatalf("expected ClearTable to empty the table, got %d", tbl.Len())
	}
}

func TestTableEvictsExpiredEntryWhenFull(t *testing.T) {
	src := &fakeClock{}
	tbl := New(src, 1, 10)

	if _, err := tbl.NewTrans(false, dest(1)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tbl.TransDone(false)

	// Table is now full (capacity 1). A new destination before expiry fails.
	if _, err := tbl.NewTrans(false, dest(2)); err != ErrTableFull {
		t.Fatalf("expected ErrTableFull before expiry, got %v", err)
	}

	src.Advance(11)
	if _, err := tbl.NewTrans(false, dest(2)); err != nil {
		t.Fatalf("expected eviction of the expired entry to make room, got %v", err)
	}
}
