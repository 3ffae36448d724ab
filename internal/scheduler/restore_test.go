package scheduler

import (
	"testing"

	"codeberg.org/opensuse/docbuildd/internal/model"
)

func TestRestoreSeedsScheduledAndPast(t *testing.T) {
	s := newTestScheduler()

	scheduled := model.NewBuildInstruction("public", "sles-server", "15-SP6", "en-us")
	past := model.NewBuildInstruction("public", "sles-server", "15-SP4", "en-us")
	past.Status = model.InstructionDone

	s.Restore([]*model.BuildInstruction{scheduled}, []*model.BuildInstruction{past})

	if !s.scheduled.has(scheduled.ID) {
		t.Fatal("expected restored scheduled instruction to be present in scheduled")
	}
	if !s.past.has(past.ID) {
		t.Fatal("expected restored past instruction to be present in past")
	}

	all := s.AllInstructions()
	if len(all) != 2 {
		t.Fatalf("expected 2 restored instructions visible, got %d", len(all))
	}
}
