package configstore

import (
	"path/filepath"
	"testing"

	"github.com/LonMarkTech/lon-stack-dx-lmi-sub001/pkg/nodeconfig"
)

func TestOpenRejectsDisabled(t *testing.T) {
	if _, err := Open("disabled"); err == nil {
		t.Fatal("expected Open(\"disabled\") to error")
	}
	if _, err := Open(""); err == nil {
		t.Fatal("expected Open(\"\") to error")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "node.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	cfg := nodeconfig.Default([6]byte{1, 2, 3, 4, 5, 6}, [8]byte{})
	if err := s.Save(cfg); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := s.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got == nil || got.NodeID != cfg.NodeID {
		t.Fatalf("expected round-tripped config to match, got %+v", got)
	}
}

func TestHistoryAccumulatesRevisions(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "node.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	cfg := nodeconfig.Default([6]byte{1, 2, 3, 4, 5, 6}, [8]byte{})
	for i := 0; i < 3; i++ {
		cfg.ConfigCheckSum = uint16(i)
		if err := s.Save(cfg); err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
	}

	hist, err := s.History(10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(hist) != 3 {
		t.Fatalf("expected 3 revisions, got %d", len(hist))
	}
	if hist[0].Config.ConfigCheckSum != 2 {
		t.Fatalf("expected most recent revision first, got %+v", hist[0])
	}
}

func TestLoadWithoutSaveReturnsNil(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "node.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	got, err := s.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil config before any save, got %+v", got)
	}
}
