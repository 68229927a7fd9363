package solver

import "sort"

// The all-different propagator combines forward checking on fixed variables
// with Hall interval detection on the bounds: an interval of values that some
// set of variables saturates cannot serve any variable outside the set.

type allDifferent struct {
	propBase
	xs []IntVar
}

func newAllDifferent(s *Solver, xs []IntVar) *allDifferent {
	p := &allDifferent{xs: append([]IntVar(nil), xs...)}
	s.registerProp(p, &p.propBase)
	for _, x := range p.xs {
		s.watchVar(x, p.idx, evAny)
	}
	return p
}

func (p *allDifferent) Name() string { return "all_different" }

func (p *allDifferent) Propagate(s *Solver) *conflict {
	if confl := p.forwardCheck(s); confl != nil {
		return confl
	}
	return p.pruneHallIntervals(s)
}

// forwardCheck removes each fixed variable's value from every other domain.
func (p *allDifferent) forwardCheck(s *Solver) *conflict {
	takenBy := make(map[int]IntVar, len(p.xs))
	for _, x := range p.xs {
		if !s.Fixed(x) {
			continue
		}
		v := s.Value(x)
		if y, ok := takenBy[v]; ok {
			expl := s.appendFixExplanation(y, nil)
			expl = s.appendFixExplanation(x, expl)
			return &conflict{lits: expl}
		}
		takenBy[v] = x
		for _, y := range p.xs {
			if y == x || !s.Contains(y, v) {
				continue
			}
			expl := s.appendFixExplanation(x, nil)
			if confl := s.propRemove(&p.propBase, y, v, expl); confl != nil {
				return confl
			}
		}
	}
	return nil
}

// pruneHallIntervals looks for value intervals [a, b] saturated by the
// variables whose domain they contain. An overfull interval is a conflict; an
// exactly full one pushes every outside variable's bounds off the interval.
func (p *allDifferent) pruneHallIntervals(s *Solver) *conflict {
	lbs := make([]int, 0, len(p.xs))
	ubs := make([]int, 0, len(p.xs))
	for _, x := range p.xs {
		lbs = append(lbs, s.Lb(x))
		ubs = append(ubs, s.Ub(x))
	}
	sort.Ints(lbs)
	sort.Ints(ubs)
	lbs = dedupInts(lbs)
	ubs = dedupInts(ubs)
	for _, a := range lbs {
		for _, b := range ubs {
			if b < a {
				continue
			}
			inside := p.inside(s, a, b)
			size := b - a + 1
			if len(inside) > size {
				var expl []Lit
				for _, z := range inside {
					expl = s.appendLbExplanation(z, a, expl)
					expl = s.appendUbExplanation(z, b, expl)
				}
				return &conflict{lits: expl}
			}
			if len(inside) != size {
				continue
			}
			for _, y := range p.xs {
				if s.Lb(y) >= a && s.Ub(y) <= b {
					continue
				}
				if confl := p.pruneOffInterval(s, y, a, b, inside); confl != nil {
					return confl
				}
			}
		}
	}
	return nil
}

// inside collects the variables whose whole domain sits in [a, b].
func (p *allDifferent) inside(s *Solver, a, b int) []IntVar {
	var vars []IntVar
	for _, x := range p.xs {
		if s.Lb(x) >= a && s.Ub(x) <= b {
			vars = append(vars, x)
		}
	}
	return vars
}

// pruneOffInterval moves y's bounds off the saturated interval [a, b].
func (p *allDifferent) pruneOffInterval(s *Solver, y IntVar, a, b int, hall []IntVar) *conflict {
	hallExpl := func() []Lit {
		var expl []Lit
		for _, z := range hall {
			expl = s.appendLbExplanation(z, a, expl)
			expl = s.appendUbExplanation(z, b, expl)
		}
		return expl
	}
	if lb := s.Lb(y); lb >= a && lb <= b {
		expl := s.appendLbExplanation(y, a, hallExpl())
		if confl := s.propSetMin(&p.propBase, y, b+1, expl); confl != nil {
			return confl
		}
	}
	if ub := s.Ub(y); ub >= a && ub <= b {
		expl := s.appendUbExplanation(y, b, hallExpl())
		if confl := s.propSetMax(&p.propBase, y, a-1, expl); confl != nil {
			return confl
		}
	}
	return nil
}

func dedupInts(sorted []int) []int {
	out := sorted[:0]
	for i, v := range sorted {
		if i == 0 || v != sorted[i-1] {
			out = append(out, v)
		}
	}
	return out
}
