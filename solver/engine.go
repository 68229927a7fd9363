package solver

// The propagation engine: drives clausal propagation and the dirty-propagator
// queue to a fixpoint, or reports the first conflict met.

// schedule marks the propagator at propIdx dirty.
func (s *Solver) schedule(propIdx int) {
	if !s.dirty[propIdx] {
		s.dirty[propIdx] = true
		s.nbDirty++
	}
}

// markAllDirty schedules every propagator. Called at the start of a solve
// and after every backjump or restart, so that no wake-up is lost across
// trail truncations.
func (s *Solver) markAllDirty() {
	for i := range s.dirty {
		s.schedule(i)
	}
}

// propagateFixpoint runs the propagation loop until no clause is forcing and
// no propagator is dirty, or until a conflict arises. Clausal propagation is
// drained first after every step; dirty propagators are drained in
// registration order, which keeps search trees reproducible when several are
// dirty at once.
func (s *Solver) propagateFixpoint() *conflict {
	for {
		if confl := s.propagateClauses(); confl != nil {
			return confl
		}
		idx := -1
		for i := range s.dirty {
			if s.dirty[i] {
				idx = i
				break
			}
		}
		if idx == -1 {
			return nil
		}
		s.dirty[idx] = false
		s.nbDirty--
		if confl := s.props[idx].Propagate(s); confl != nil {
			return confl
		}
	}
}
