package solver

import (
	"fmt"
	"sort"
)

const (
	initNbMaxClauses  = 2000  // Maximum # of learned clauses, at first.
	incrNbMaxClauses  = 300   // By how much # of learned clauses is incremented at each reduction.
	incrPostponeNbMax = 1000  // By how much # of learned is increased when lots of good clauses are currently learned.
	clauseDecay       = 0.999 // By how much clause bumping decays over time.
	defaultVarDecay   = 0.8   // On each var decay, how much the varInc should be decayed at startup.
)

type watcher struct {
	other  Lit // The other lit from a binary clause.
	clause *Clause
}

// A watcherList stores clauses and propagates forced literals efficiently.
// Binary clauses get a dedicated representation.
type watcherList struct {
	nbMax     int         // Max # of learned clauses at current moment.
	idxReduce int64       // # of calls to reduce + 1.
	wlistBin  [][]watcher // For each literal, binary clauses where its negation appears.
	wlist     [][]*Clause // For each literal, longer clauses where its negation is watched.
	original  []*Clause   // Model and linking clauses; never deleted.
	learned   []*Clause
}

// growWatches makes room in the watch lists for the latest allocated BVar.
func (s *Solver) growWatches() {
	s.wl.wlistBin = append(s.wl.wlistBin, nil, nil)
	s.wl.wlist = append(s.wl.wlist, nil, nil)
}

// bumpNbMax increases the max nb of learned clauses kept.
func (s *Solver) bumpNbMax() {
	s.wl.nbMax += incrNbMaxClauses
}

// postponeNbMax increases the max nb of learned clauses kept, when too many
// good clauses were learned and a cleaning was expected.
func (s *Solver) postponeNbMax() {
	s.wl.nbMax += incrPostponeNbMax
}

// Watches the provided clause.
func (s *Solver) watchClause(c *Clause) {
	if c.Len() == 2 {
		first := c.First()
		second := c.Second()
		neg0 := first.Negation()
		neg1 := second.Negation()
		s.wl.wlistBin[neg0] = append(s.wl.wlistBin[neg0], watcher{clause: c, other: second})
		s.wl.wlistBin[neg1] = append(s.wl.wlistBin[neg1], watcher{clause: c, other: first})
	} else {
		neg0 := c.First().Negation()
		neg1 := c.Second().Negation()
		s.wl.wlist[neg0] = append(s.wl.wlist[neg0], c)
		s.wl.wlist[neg1] = append(s.wl.wlist[neg1], c)
	}
}

// unwatchClause removes the watches of a non-binary clause.
func (s *Solver) unwatchClause(c *Clause) {
	for i := 0; i < 2; i++ {
		neg := c.Get(i).Negation()
		lst := s.wl.wlist[neg]
		j := 0
		for lst[j] != c {
			j++
		}
		lst[j] = lst[len(lst)-1]
		s.wl.wlist[neg] = lst[:len(lst)-1]
	}
}

// conflictFromClause turns a falsified clause into a conflict value.
func (s *Solver) conflictFromClause(c *Clause) *conflict {
	lits := make([]Lit, c.Len())
	for i, l := range c.lits {
		lits[i] = l.Negation()
	}
	return &conflict{clause: c, lits: lits}
}

// propagateClauses processes all pending trail entries through the watch
// lists, enqueueing forced literals, until fixpoint or conflict.
func (s *Solver) propagateClauses() *conflict {
	for s.qhead < len(s.trail) {
		l := s.trail[s.qhead].lit
		s.qhead++
		for _, w := range s.wl.wlistBin[l] {
			switch s.litValue(w.other) {
			case Unsat:
				return s.conflictFromClause(w.clause)
			case Indet:
				if confl := s.enqueue(w.other, s.currentLevel, reason{clause: w.clause}); confl != nil {
					return confl
				}
			}
		}
		falseLit := l.Negation()
		for i := 0; i < len(s.wl.wlist[l]); {
			c := s.wl.wlist[l][i]
			if c.First() == falseLit {
				c.swap(0, 1)
			}
			if s.litValue(c.First()) == Sat {
				i++
				continue
			}
			moved := false
			for j := 2; j < c.Len(); j++ {
				if s.litValue(c.Get(j)) != Unsat {
					c.swap(1, j)
					other := c.Second().Negation()
					s.wl.wlist[other] = append(s.wl.wlist[other], c)
					lst := s.wl.wlist[l]
					lst[i] = lst[len(lst)-1]
					s.wl.wlist[l] = lst[:len(lst)-1]
					moved = true
					break
				}
			}
			if moved {
				continue
			}
			if s.litValue(c.First()) == Unsat {
				return s.conflictFromClause(c)
			}
			if confl := s.enqueue(c.First(), s.currentLevel, reason{clause: c}); confl != nil {
				return confl
			}
			i++
		}
	}
	return nil
}

// watchRank orders literals for watching a clause added mid-search: true
// literals first, then unassigned ones, then false literals by decreasing
// assignment level.
func (s *Solver) watchRank(l Lit) int64 {
	switch s.litValue(l) {
	case Sat:
		return 1 << 40
	case Indet:
		return 1 << 30
	default:
		return int64(s.litLevel(l))
	}
}

// addClauseDynamic posts a clause that must hold in every solution. It can be
// called at any decision level: the clause is simplified against the constant
// literals, watched, and immediately propagated when forcing. Linking clauses
// from lazy literal allocation and model clauses posted at build time both
// come through here.
func (s *Solver) addClauseDynamic(lits []Lit) {
	// Constant and duplicate literals are stripped structurally; a clause
	// containing the true constant or a complementary pair always holds.
	clean := make([]Lit, 0, len(lits))
	for _, l := range lits {
		if l == litTrue {
			return
		}
		if l == litFalse {
			continue
		}
		dup := false
		for _, k := range clean {
			if k == l {
				dup = true
			}
			if k == l.Negation() {
				return
			}
		}
		if !dup {
			clean = append(clean, l)
		}
	}
	if len(clean) == 0 {
		s.status = Unsat
		return
	}
	c := newClause(clean)
	s.appendClauseToDB(c)
	if len(clean) == 1 {
		if confl := s.enqueue(clean[0], s.currentLevel, reason{clause: c}); confl != nil {
			if s.currentLevel == rootLevel {
				s.status = Unsat
				return
			}
			panic(fmt.Sprintf("entailed unit clause %s conflicts above root level", c.String(s)))
		}
		return
	}
	sort.SliceStable(c.lits, func(i, j int) bool {
		return s.watchRank(c.lits[i]) > s.watchRank(c.lits[j])
	})
	s.watchClause(c)
	v0, v1 := s.litValue(c.First()), s.litValue(c.Second())
	if v0 == Unsat {
		if s.currentLevel == rootLevel {
			s.status = Unsat
			return
		}
		panic(fmt.Sprintf("entailed clause %s falsified above root level", c.String(s)))
	}
	if v0 == Indet && v1 == Unsat {
		if confl := s.enqueue(c.First(), s.currentLevel, reason{clause: c}); confl != nil {
			if s.currentLevel == rootLevel {
				s.status = Unsat
				return
			}
			panic(fmt.Sprintf("entailed clause %s conflicts above root level", c.String(s)))
		}
	}
}

// appendClauseToDB stores the clause without watching it.
func (s *Solver) appendClauseToDB(c *Clause) {
	if c.Learned() {
		s.wl.learned = append(s.wl.learned, c)
	} else {
		s.wl.original = append(s.wl.original, c)
	}
}

// addLearned adds a learned clause and its watches.
func (s *Solver) addLearned(c *Clause) {
	s.appendClauseToDB(c)
	s.watchClause(c)
	s.clauseBumpActivity(c)
}

// reduceLearned removes about half the learned clauses, those deemed less
// useful according to their LBD and activity. Clauses serving as a live
// reason are locked and never removed.
func (s *Solver) reduceLearned() {
	learned := s.wl.learned
	sort.SliceStable(learned, func(i, j int) bool {
		if learned[i].lbd() != learned[j].lbd() {
			return learned[i].lbd() > learned[j].lbd()
		}
		return learned[i].activity < learned[j].activity
	})
	length := len(learned) / 2
	if length > 0 && learned[length].lbd() <= 3 {
		// Lots of good clauses, postpone the next reduction.
		s.postponeNbMax()
	}
	kept := make([]*Clause, 0, len(learned))
	for i, c := range learned {
		if i >= length || c.lbd() <= 2 || c.Len() == 2 || c.isLocked() {
			kept = append(kept, c)
			continue
		}
		s.unwatchClause(c)
		s.Stats.Deleted++
	}
	s.wl.learned = kept
}

// Decays each clause's activity.
func (s *Solver) clauseDecayActivity() {
	s.clauseInc *= 1 / clauseDecay
}

// Bumps the given clause's activity.
func (s *Solver) clauseBumpActivity(c *Clause) {
	if c.Learned() {
		c.activity += s.clauseInc
		if c.activity > 1e30 { // Rescale to avoid overflow.
			for _, c2 := range s.wl.learned {
				c2.activity *= 1e-30
			}
			s.clauseInc *= 1e-30
		}
	}
}
