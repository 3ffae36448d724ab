package model

import "testing"

func TestNewBuildInstructionIDIsDeterministic(t *testing.T) {
	a := NewBuildInstruction("sles", "sles-server", "15-SP6", "en-us")
	b := NewBuildInstruction("sles", "sles-server", "15-SP6", "en-us")
	if a.ID != b.ID {
		t.Fatalf("expected identical ids for identical tuples, got %s and %s", a.ID, b.ID)
	}
	if len(a.ID) != 9 {
		t.Fatalf("expected 9-hex-digit id, got %q (%d chars)", a.ID, len(a.ID))
	}
}

func TestNewBuildInstructionIDDiffersByTuple(t *testing.T) {
	a := NewBuildInstruction("sles", "sles-server", "15-SP6", "en-us")
	b := NewBuildInstruction("sles", "sles-server", "15-SP6", "de-de")
	if a.ID == b.ID {
		t.Fatalf("expected different ids for different language, got same id %s", a.ID)
	}
}

func TestOverallStatusSuccessRequiresAllDeliverablesSucceed(t *testing.T) {
	bi := NewBuildInstruction("sles", "sles-server", "15-SP6", "en-us")
	d1 := NewDeliverable(bi.Target, bi.Product, bi.Docset, bi.Language, "doc1.xml", FormatHTML, nil)
	d2 := NewDeliverable(bi.Target, bi.Product, bi.Docset, bi.Language, "doc2.xml", FormatPDF, nil)
	d1.Finish(true, "abc123")
	d2.Finish(false, "abc123")
	bi.Deliverables[d1.ID] = d1
	bi.Deliverables[d2.ID] = d2

	if got := bi.OverallStatus(); got != InstructionFailed {
		t.Fatalf("expected failed when one deliverable fails, got %s", got)
	}

	d2.Finish(true, "abc123")
	if got := bi.OverallStatus(); got != InstructionDone {
		t.Fatalf("expected done when all deliverables succeed, got %s", got)
	}
}

func TestOverallStatusDoneWhenNoDeliverables(t *testing.T) {
	bi := NewBuildInstruction("sles", "sles-server", "15-SP6", "en-us")
	if got := bi.OverallStatus(); got != InstructionDone {
		t.Fatalf("expected done for an instruction with no deliverables, got %s", got)
	}
}

func TestDispenseNextMovesFromOpenToBuilding(t *testing.T) {
	bi := NewBuildInstruction("sles", "sles-server", "15-SP6", "en-us")
	d := NewDeliverable(bi.Target, bi.Product, bi.Docset, bi.Language, "doc1.xml", FormatHTML, nil)
	bi.PutDeliverable(d)

	id, result := bi.DispenseNext()
	if result != DispenseReady || id != d.ID {
		t.Fatalf("expected DispenseReady for %s, got result=%v id=%s", d.ID, result, id)
	}
	if len(bi.Open) != 0 || len(bi.Building) != 1 {
		t.Fatalf("expected deliverable moved from open to building, got open=%v building=%v", bi.Open, bi.Building)
	}

	d.Finish(true, "abc123")
	bi.CompleteBuilding(d.ID)
	if len(bi.Building) != 0 {
		t.Fatalf("expected building list empty after completion, got %v", bi.Building)
	}
	if !bi.AllTerminal() {
		t.Fatal("expected instruction to report all terminal")
	}

	if _, result := bi.DispenseNext(); result != DispenseDone {
		t.Fatalf("expected DispenseDone once open and building are empty, got %v", result)
	}
}

func TestDispenseNextReportsNoneAvailableYetWhileBuilding(t *testing.T) {
	bi := NewBuildInstruction("sles", "sles-server", "15-SP6", "en-us")
	d := NewDeliverable(bi.Target, bi.Product, bi.Docset, bi.Language, "doc1.xml", FormatHTML, nil)
	bi.PutDeliverable(d)

	if _, result := bi.DispenseNext(); result != DispenseReady {
		t.Fatalf("expected first dispense to be ready")
	}
	if _, result := bi.DispenseNext(); result != DispenseNoneAvailableYet {
		t.Fatalf("expected none-available-yet while the sole deliverable is still building, got %v", result)
	}
}
