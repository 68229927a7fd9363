package solver

import "fmt"

// The trail: an append-only log of literal assignments tagged with their
// decision level and reason. Assigning a predicate literal applies the
// corresponding domain update; truncating the trail restores domains exactly
// and notifies propagators whose deferred explanations become stale.

// A reason justifies a trail entry. The zero value means "no reason"
// (decisions and root facts). Either a concrete clause, or a deferred
// (propagator, tag) handle whose explanation is only built when conflict
// analysis asks for it.
type reason struct {
	clause *Clause
	prop   int // Propagator index + 1; 0 means no propagator.
	tag    int // Opaque payload handle, meaningful to the propagator only.
}

func (r reason) isSet() bool { return r.clause != nil || r.prop != 0 }

// A trailEntry records one assignment together with the domain bookkeeping
// it caused, so that truncation restores the exact previous state.
type trailEntry struct {
	lit            Lit
	r              reason
	nLb, nUb       int32 // Bound history entries pushed by this assignment.
	nHoles         int32 // Values removed by this assignment.
	touched        IntVar
	hasTouched     bool
	becameFixed    bool
	becameConflict bool
}

// A conflict is the transient value produced when a propagation meets an
// already-false literal or empties a domain. lits holds currently-true
// literals that cannot all hold together; clause, if non-nil, is the
// falsified clause (kept for activity bumping).
type conflict struct {
	clause *Clause
	lits   []Lit
}

// litValue returns the truth value of l: Sat, Unsat or Indet.
func (s *Solver) litValue(l Lit) Status {
	a := s.assign[l.Var()]
	if a == 0 {
		return Indet
	}
	if (a > 0) == l.IsPositive() {
		return Sat
	}
	return Unsat
}

// litLevel returns the level l's variable was assigned at (0 if unassigned).
func (s *Solver) litLevel(l Lit) decLevel {
	return abs(s.assign[l.Var()])
}

// reasonAntecedents appends to buf the true literals whose conjunction
// implied l according to r. Deferred reasons are expanded by asking the
// owning propagator, which is the lazy-explanation path; the explanation
// contract is checked on the way.
func (s *Solver) reasonAntecedents(r reason, l Lit, buf []Lit) []Lit {
	switch {
	case r.clause != nil:
		for _, cl := range r.clause.lits {
			if cl != l {
				buf = append(buf, cl.Negation())
			}
		}
	case r.prop != 0:
		p := s.props[r.prop-1]
		for _, a := range p.Explain(r.tag) {
			if s.litValue(a) != Sat {
				panic(fmt.Sprintf("propagator %s explained %s with non-true antecedent %s (trail length %d)",
					p.Name(), s.litString(l), s.litString(a), len(s.trail)))
			}
			buf = append(buf, a)
		}
	}
	return buf
}

// enqueue assigns l at the given level with the given reason, applies the
// domain update its predicate stands for, and wakes interested propagators.
// It returns a conflict when the complement is already true or the update
// empties a domain; the caller backtracks, which undoes the partial entry.
func (s *Solver) enqueue(l Lit, lvl decLevel, r reason) *conflict {
	b := l.Var()
	if a := s.assign[b]; a != 0 {
		if (a > 0) == l.IsPositive() {
			return nil
		}
		lits := s.reasonAntecedents(r, l, nil)
		lits = append(lits, l.Negation())
		return &conflict{clause: r.clause, lits: lits}
	}
	s.assign[b] = lvlToSignedLvl(l, lvl)
	if r.clause != nil {
		r.clause.lock()
	}
	s.reasons[b] = r
	s.trail = append(s.trail, trailEntry{lit: l, r: r})
	e := &s.trail[len(s.trail)-1]
	s.Stats.Propagations++
	p := s.preds[b]
	if p.kind == predNone {
		return nil
	}
	e.touched = p.x
	e.hasTouched = true
	iv := s.vars[p.x]
	wasFixed := iv.lb == iv.ub
	var mask event
	switch p.kind {
	case predLE:
		if l.IsPositive() {
			mask |= s.applyUb(iv, p.v, l, e)
		} else {
			mask |= s.applyLb(iv, p.v+1, l, e)
		}
	case predEQ:
		if l.IsPositive() {
			mask |= s.applyLb(iv, p.v, l, e)
			mask |= s.applyUb(iv, p.v, l, e)
		} else {
			mask |= s.applyHole(iv, p.v, l, e)
		}
	}
	if iv.lb > iv.ub {
		e.becameConflict = true
		lits := s.appendLbExplanation(p.x, iv.lb, nil)
		lits = s.appendUbExplanation(p.x, iv.ub, lits)
		return &conflict{lits: lits}
	}
	if !wasFixed && iv.lb == iv.ub {
		mask |= evFix
		e.becameFixed = true
	}
	if mask != 0 {
		s.notifyWatchers(p.x, mask)
	}
	return nil
}

// applyUb tightens iv's upper bound to v, collapsing over removed values.
// Returns the events generated. A crossed bound is left in place for the
// caller to turn into a conflict; backtracking restores it.
func (s *Solver) applyUb(iv *intVar, v int, cause Lit, e *trailEntry) event {
	if v >= iv.ub {
		return 0
	}
	iv.ubHist = append(iv.ubHist, boundEvent{bound: v, lit: cause})
	iv.ub = v
	e.nUb++
	for iv.ub >= iv.lb {
		hole, ok := iv.removed[iv.ub]
		if !ok {
			break
		}
		iv.ubHist = append(iv.ubHist, boundEvent{bound: iv.ub - 1, lit: hole})
		iv.ub--
		e.nUb++
	}
	return evUpperBound
}

// applyLb tightens iv's lower bound to v. See applyUb.
func (s *Solver) applyLb(iv *intVar, v int, cause Lit, e *trailEntry) event {
	if v <= iv.lb {
		return 0
	}
	iv.lbHist = append(iv.lbHist, boundEvent{bound: v, lit: cause})
	iv.lb = v
	e.nLb++
	for iv.lb <= iv.ub {
		hole, ok := iv.removed[iv.lb]
		if !ok {
			break
		}
		iv.lbHist = append(iv.lbHist, boundEvent{bound: iv.lb + 1, lit: hole})
		iv.lb++
		e.nLb++
	}
	return evLowerBound
}

// applyHole removes value v from iv's domain. Removing a bound value
// advances that bound instead.
func (s *Solver) applyHole(iv *intVar, v int, cause Lit, e *trailEntry) event {
	if v < iv.lb || v > iv.ub {
		return 0
	}
	if _, ok := iv.removed[v]; ok {
		return 0
	}
	if iv.lb == iv.ub {
		// Removing the only value left: record the crossing so the caller
		// reports the emptied domain.
		iv.lbHist = append(iv.lbHist, boundEvent{bound: v + 1, lit: cause})
		iv.lb = v + 1
		e.nLb++
		return evLowerBound
	}
	if v == iv.lb {
		return s.applyLb(iv, v+1, cause, e)
	}
	if v == iv.ub {
		return s.applyUb(iv, v-1, cause, e)
	}
	iv.removed[v] = cause
	iv.holeHist = append(iv.holeHist, v)
	e.nHoles++
	return evHole
}

// decisionLevel returns the current decision level.
func (s *Solver) decisionLevel() decLevel {
	return s.currentLevel
}

// backtrackTo truncates the trail down to the given level, in reverse
// assignment order. Domains are restored to the exact state they had when
// that level's last entry was pushed; propagators are told about discarded
// deferred explanations through Undo.
func (s *Solver) backtrackTo(lvl decLevel) {
	i := len(s.trail)
	for i > 0 {
		e := &s.trail[i-1]
		if abs(s.assign[e.lit.Var()]) <= lvl {
			break
		}
		i--
		b := e.lit.Var()
		s.assign[b] = 0
		if e.r.clause != nil {
			e.r.clause.unlock()
		}
		if e.r.prop != 0 {
			s.props[e.r.prop-1].Undo(e.r.tag)
		}
		s.reasons[b] = reason{}
		if e.hasTouched {
			iv := s.vars[e.touched]
			for k := int32(0); k < e.nLb; k++ {
				iv.lbHist = iv.lbHist[:len(iv.lbHist)-1]
			}
			if len(iv.lbHist) > 0 {
				iv.lb = iv.lbHist[len(iv.lbHist)-1].bound
			} else {
				iv.lb = iv.initLb
			}
			for k := int32(0); k < e.nUb; k++ {
				iv.ubHist = iv.ubHist[:len(iv.ubHist)-1]
			}
			if len(iv.ubHist) > 0 {
				iv.ub = iv.ubHist[len(iv.ubHist)-1].bound
			} else {
				iv.ub = iv.initUb
			}
			for k := int32(0); k < e.nHoles; k++ {
				v := iv.holeHist[len(iv.holeHist)-1]
				iv.holeHist = iv.holeHist[:len(iv.holeHist)-1]
				delete(iv.removed, v)
			}
			if !s.varQueue.contains(int(e.touched)) {
				s.varQueue.insert(int(e.touched))
			}
		}
	}
	s.trail = s.trail[:i]
	s.qhead = i
	s.currentLevel = lvl
}
