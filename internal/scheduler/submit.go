package scheduler

import (
	"log/slog"

	"codeberg.org/opensuse/docbuildd/internal/logfields"
	"codeberg.org/opensuse/docbuildd/internal/model"
	"codeberg.org/opensuse/docbuildd/internal/pipeline"
)

// Descriptor is one submitted instruction request.
type Descriptor struct {
	Target  string
	Docset  string
	Lang    string
	Product string
}

// Submit enqueues one instruction descriptor, applying the dedup/promotion
// rule: an instruction already scheduled or active is a no-op; one found
// only in past builds is promoted back into scheduled, retaining its
// previous deliverable metadata (successful-commit hashes, etc).
func (s *Scheduler) Submit(d Descriptor) {
	id := model.NewBuildInstruction(d.Target, d.Product, d.Docset, d.Lang).ID

	if s.scheduled.has(id) || s.active.has(id) {
		slog.Info("submission is a duplicate of a scheduled or active instruction", logfields.Name(id))
		return
	}

	if tracked, ok := s.past.get(id); ok {
		tracked.bi.Status = model.InstructionScheduled
		s.past.remove(id)
		s.scheduled.put(id, tracked)
		s.publish(pipeline.EventInstructionScheduled, id)
		slog.Info("promoted past instruction back to scheduled", logfields.Name(id))
		return
	}

	bi := model.NewBuildInstruction(d.Target, d.Product, d.Docset, d.Lang)
	s.scheduled.put(id, &trackedInstruction{bi: bi})
	s.publish(pipeline.EventInstructionScheduled, id)
}

// claimScheduled moves one scheduled-but-not-yet-claimed instruction id
// into the updating set and reports it, or reports false if none are
// available.
func (s *Scheduler) claimScheduled() (string, bool) {
	for _, tracked := range s.scheduled.values() {
		id := tracked.bi.ID
		s.updating.mu.Lock()
		if _, claimed := s.updating.items[id]; claimed {
			s.updating.mu.Unlock()
			continue
		}
		s.updating.items[id] = struct{}{}
		s.updating.mu.Unlock()
		return id, true
	}
	return "", false
}
