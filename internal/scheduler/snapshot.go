package scheduler

import "codeberg.org/opensuse/docbuildd/internal/model"

// AllInstructions returns every instruction record known to the scheduler
// (scheduled, active, and past), for the control plane's read endpoints.
func (s *Scheduler) AllInstructions() []*model.BuildInstruction {
	all := s.allScheduled()
	all = append(all, s.allActive()...)
	all = append(all, s.allPast()...)
	return all
}

// ActiveDeliverables returns the deliverable map of every currently-active
// instruction, keyed by deliverable id.
func (s *Scheduler) ActiveDeliverables() map[string]*model.Deliverable {
	out := make(map[string]*model.Deliverable)
	for _, bi := range s.allActive() {
		bi.DeliverablesMu.Lock()
		for id, d := range bi.Deliverables {
			out[id] = d
		}
		bi.DeliverablesMu.Unlock()
	}
	return out
}
