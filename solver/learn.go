package solver

import "sort"

// computeLbd computes and sets c's LBD (Literal Block Distance).
func (s *Solver) computeLbd(c *Clause) {
	c.setLbd(1)
	curLvl := s.litLevel(c.Get(0))
	for i := 0; i < c.Len(); i++ {
		if lvl := s.litLevel(c.Get(i)); lvl != curLvl {
			curLvl = lvl
			c.incLbd()
		}
	}
}

// sortLiterals sorts lits by decreasing assignment level. The asserting
// literal, being the only one from the conflict level, ends up first.
func (s *Solver) sortLiterals(lits []Lit) {
	sort.SliceStable(lits, func(i, j int) bool {
		return s.litLevel(lits[i]) > s.litLevel(lits[j])
	})
}

// addConflictLits is a helper function for learnClause.
// It deals with the literals of the conflicting assignment.
func (s *Solver) addConflictLits(confl *conflict, lvl decLevel, met, metLvl []bool, lits *[]Lit) int {
	nbLvl := 0
	for _, t := range confl.lits {
		l := t.Negation() // False under the current assignment.
		v := l.Var()
		if met[v] {
			continue
		}
		met[v] = true
		s.varBumpActivity(v)
		if s.litLevel(l) == lvl {
			metLvl[v] = true
			nbLvl++
		} else if s.litLevel(l) > rootLevel {
			*lits = append(*lits, l)
		}
	}
	return nbLvl
}

// learnClause derives the first-UIP clause from the given conflict and
// returns either the clause itself, if its length is at least 2, or a nil
// clause and a unit literal, if its length is exactly 1. Deferred propagator
// reasons are expanded into antecedents here and nowhere else: this is where
// the laziness of explanations pays off.
func (s *Solver) learnClause(confl *conflict, lvl decLevel) (learned *Clause, unit Lit) {
	if confl.clause != nil {
		s.clauseBumpActivity(confl.clause)
	}
	lits := make([]Lit, 1, len(confl.lits)+1) // Slot 0 is for the asserting literal.
	buf := make([]bool, 2*len(s.preds))
	met := buf[:len(s.preds)]    // All vars already met.
	metLvl := buf[len(s.preds):] // Vars from the conflict level still to resolve.
	nbLvl := s.addConflictLits(confl, lvl, met, metLvl, &lits)
	ptr := len(s.trail) - 1 // Pointer in the propagation trail.
	var ante []Lit
	for nbLvl > 1 { // Stop once a single literal from the conflict level is left.
		for !metLvl[s.trail[ptr].lit.Var()] {
			ptr--
		}
		e := s.trail[ptr]
		v := e.lit.Var()
		ptr--
		nbLvl--
		if r := s.reasons[v]; r.isSet() {
			if r.clause != nil {
				s.clauseBumpActivity(r.clause)
			}
			ante = s.reasonAntecedents(r, e.lit, ante[:0])
			for _, a := range ante {
				l := a.Negation()
				if v2 := l.Var(); !met[v2] {
					met[v2] = true
					s.varBumpActivity(v2)
					if s.litLevel(l) == lvl {
						metLvl[v2] = true
						nbLvl++
					} else if s.litLevel(l) > rootLevel {
						lits = append(lits, l)
					}
				}
			}
		}
	}
	// The single unresolved var from the conflict level is the first UIP.
	for !metLvl[s.trail[ptr].lit.Var()] {
		ptr--
	}
	lits[0] = s.trail[ptr].lit.Negation()
	s.varDecayActivity()
	s.clauseDecayActivity()
	s.sortLiterals(lits)
	sz := s.minimizeLearned(met, lits)
	if sz == 1 {
		return nil, lits[0]
	}
	learned = newLearnedClause(s.alloc.newLits(lits[0:sz]...))
	s.computeLbd(learned)
	return learned, litUndef
}

// minimizeLearned reduces (if possible) the length of the learned clause and
// returns the size of the new list of lits. A literal is redundant when every
// antecedent of its reason is already part of the clause's implication cone.
func (s *Solver) minimizeLearned(met []bool, learned []Lit) int {
	sz := 1
	var ante []Lit
	for i := 1; i < len(learned); i++ {
		v := learned[i].Var()
		if r := s.reasons[v]; !r.isSet() {
			learned[sz] = learned[i]
			sz++
		} else {
			ante = s.reasonAntecedents(r, learned[i].Negation(), ante[:0])
			for _, a := range ante {
				if !met[a.Var()] && s.litLevel(a) > rootLevel {
					learned[sz] = learned[i]
					sz++
					break
				}
			}
		}
	}
	return sz
}
