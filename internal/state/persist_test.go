package state

import (
	"os"
	"path/filepath"
	"testing"

	"codeberg.org/opensuse/docbuildd/internal/model"
)

func TestStoreSaveAndLoadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir, "docbuildd")

	done := model.NewBuildInstruction("public", "sles-server", "15-SP6", "en-us")
	done.Status = model.InstructionDone

	scheduled := model.NewBuildInstruction("public", "sles-server", "15-SP5", "en-us")
	d := model.NewDeliverable("public", "sles-server", "15-SP5", "en-us", "DC-admin", model.FormatHTML, nil)
	scheduled.PutDeliverable(d)
	scheduled.Status = model.InstructionBuilding
	scheduled.DispenseNext()

	s.Checkpoint(nil, []*model.BuildInstruction{scheduled}, []*model.BuildInstruction{done})

	if _, err := os.Stat(filepath.Join(dir, "docbuildd.json")); err != nil {
		t.Fatalf("expected state file written: %v", err)
	}

	restored := s.Load()
	if len(restored.Past) != 1 || restored.Past[0].ID != done.ID {
		t.Fatalf("expected done instruction restored to past, got %+v", restored.Past)
	}
	if len(restored.Scheduled) != 1 || restored.Scheduled[0].ID != scheduled.ID {
		t.Fatalf("expected building instruction requeued as scheduled, got %+v", restored.Scheduled)
	}
	if restored.Scheduled[0].Status != model.InstructionScheduled {
		t.Fatalf("expected requeued status scheduled, got %s", restored.Scheduled[0].Status)
	}
}

func TestStoreLoadMissingFileIsEmpty(t *testing.T) {
	s := NewStore(t.TempDir(), "docbuildd")

	restored := s.Load()
	if len(restored.Scheduled) != 0 || len(restored.Past) != 0 {
		t.Fatal("expected empty restored state for a missing file")
	}
}

func TestStoreLoadCorruptFileIsEmpty(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "docbuildd.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	s := NewStore(dir, "docbuildd")

	restored := s.Load()
	if len(restored.Scheduled) != 0 || len(restored.Past) != 0 {
		t.Fatal("expected empty restored state for a corrupt file")
	}
}
