package solver

import (
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// conflictLevel returns the deepest level among the conflicting literals.
// The conflict can only be resolved by backtracking below that level.
func (s *Solver) conflictLevel(confl *conflict) decLevel {
	lvl := rootLevel
	for _, l := range confl.lits {
		if ll := s.litLevel(l); ll > lvl {
			lvl = ll
		}
	}
	return lvl
}

// decide picks the next unfixed variable according to the configured
// brancher, or reports that every variable is fixed.
func (s *Solver) decide() (IntVar, bool) {
	switch s.opts.Brancher {
	case BranchFirstFail:
		best := IntVar(-1)
		bestSize := 0
		for i := range s.vars {
			x := IntVar(i)
			if s.Fixed(x) {
				continue
			}
			if sz := s.domSize(x); best == -1 || sz < bestSize {
				best, bestSize = x, sz
			}
		}
		return best, best == -1
	case BranchRandom:
		unfixed := make([]IntVar, 0, len(s.vars))
		for i := range s.vars {
			if x := IntVar(i); !s.Fixed(x) {
				unfixed = append(unfixed, x)
			}
		}
		if len(unfixed) == 0 {
			return -1, true
		}
		return unfixed[s.rng.Intn(len(unfixed))], false
	default: // BranchActivity
		for !s.varQueue.empty() {
			if x := IntVar(s.varQueue.removeMin()); !s.Fixed(x) {
				return x, false
			}
		}
		for i := range s.vars { // The queue only tracks vars touched by the trail.
			if x := IntVar(i); !s.Fixed(x) {
				return x, false
			}
		}
		return -1, true
	}
}

// recordSolution snapshots the current full assignment.
func (s *Solver) recordSolution() {
	if s.lastValues == nil {
		s.lastValues = make([]int, len(s.vars))
	}
	for i := range s.vars {
		s.lastValues[i] = s.vars[i].lb
	}
}

// budgetExhausted reports whether a search budget ran out. It is only
// consulted between conflicts, so a conflict found on the last allowed
// decision is still analyzed and can still prove unsatisfiability.
func (s *Solver) budgetExhausted(deadline time.Time) bool {
	if !deadline.IsZero() && time.Now().After(deadline) {
		return true
	}
	if s.opts.MaxConflicts != 0 && s.Stats.Conflicts >= s.opts.MaxConflicts {
		return true
	}
	if s.opts.MaxDecisions != 0 && s.Stats.Decisions >= s.opts.MaxDecisions {
		return true
	}
	return false
}

// runSearch is the CDCL loop: propagate to fixpoint, learn from conflicts,
// otherwise restart, reduce the clause database or take a decision. It
// returns Sat with the solution recorded, Unsat on a root-level conflict, or
// Indet when a budget ran out.
func (s *Solver) runSearch(deadline time.Time) Status {
	var lubyIdx uint = 1
	restartBudget := int64(luby(lubyIdx)) * lubyConstant
	var conflictsSinceRestart int64
	s.markAllDirty()
	var confl *conflict
	for {
		if confl == nil {
			confl = s.propagateFixpoint()
		}
		if confl == nil {
			restart := false
			switch s.opts.Restarts {
			case RestartLuby:
				restart = conflictsSinceRestart >= restartBudget
				if restart {
					lubyIdx++
					restartBudget = int64(luby(lubyIdx)) * lubyConstant
				}
			default: // RestartLBD
				restart = s.lbdStats.mustRestart()
			}
			if restart && s.currentLevel > rootLevel {
				s.Stats.Restarts++
				conflictsSinceRestart = 0
				s.lbdStats.clear()
				s.backtrackTo(rootLevel)
				s.markAllDirty()
				s.log.WithFields(logrus.Fields{
					"restarts":  s.Stats.Restarts,
					"conflicts": s.Stats.Conflicts,
					"learned":   len(s.wl.learned),
				}).Debug("restarting")
				continue
			}
			if s.Stats.Conflicts >= s.wl.idxReduce*int64(s.wl.nbMax) {
				s.wl.idxReduce = s.Stats.Conflicts/int64(s.wl.nbMax) + 1
				s.reduceLearned()
				s.bumpNbMax()
			}
			x, done := s.decide()
			if done {
				s.recordSolution()
				return Sat
			}
			// Checked only once the root-level outcome had its chance: a
			// problem decided without search beats an exhausted budget.
			if s.budgetExhausted(deadline) {
				return Indet
			}
			l := s.litEQ(x, s.Lb(x))
			s.Stats.Decisions++
			s.currentLevel++
			confl = s.enqueue(l, s.currentLevel, reason{})
			continue
		}
		// Conflict handling.
		s.Stats.Conflicts++
		conflictsSinceRestart++
		if s.Stats.Conflicts%5000 == 0 && s.varDecay < 0.95 {
			s.varDecay += 0.01
		}
		lvl := s.conflictLevel(confl)
		if lvl <= rootLevel {
			s.status = Unsat
			return Unsat
		}
		if lvl < s.currentLevel {
			// Every conflicting literal sits below the current level;
			// analysis runs at the level of the deepest one.
			s.backtrackTo(lvl)
			s.markAllDirty()
		}
		learnt, unit := s.learnClause(confl, lvl)
		confl = nil
		if learnt == nil { // Unit clause was learned: this literal is known for sure.
			if unit == litUndef || (s.litLevel(unit) == rootLevel && s.litValue(unit) == Unsat) {
				s.status = Unsat
				return Unsat
			}
			s.Stats.UnitLearned++
			s.lbdStats.add(1)
			s.backtrackTo(rootLevel)
			s.markAllDirty()
			c := newClause([]Lit{unit})
			s.appendClauseToDB(c)
			if cf := s.enqueue(unit, rootLevel, reason{clause: c}); cf != nil {
				s.status = Unsat
				return Unsat
			}
			continue
		}
		if learnt.Len() == 2 {
			s.Stats.BinaryLearned++
		}
		s.Stats.Learned++
		s.lbdStats.add(int(learnt.lbd()))
		btLevel := s.litLevel(learnt.Get(1))
		s.backtrackTo(btLevel)
		s.markAllDirty()
		s.addLearned(learnt)
		confl = s.enqueue(learnt.First(), btLevel, reason{clause: learnt})
	}
}

// deadlineFrom turns the timeout option into an absolute deadline.
func (s *Solver) deadlineFrom(start time.Time) time.Time {
	if s.opts.Timeout <= 0 {
		return time.Time{}
	}
	return start.Add(s.opts.Timeout)
}

func (s *Solver) result(st Status) Result {
	res := Result{Status: st, Stats: s.Stats}
	if st == Sat {
		res.Values = append([]int(nil), s.lastValues...)
		res.HasSolution = true
	}
	return res
}

// Solve searches for an assignment satisfying every posted constraint.
// It returns Sat with the values found, Unsat when no assignment exists, or
// Indet when a budget or the timeout ran out first.
func (s *Solver) Solve() Result {
	start := time.Now()
	s.solving = true
	defer func() {
		s.solving = false
		s.Stats.Elapsed += time.Since(start)
	}()
	if s.status == Unsat {
		return s.result(Unsat)
	}
	st := s.runSearch(s.deadlineFrom(start))
	s.status = st
	if st != Unsat {
		s.backtrackTo(rootLevel)
	}
	return s.result(st)
}

// Optimize searches for the assignment minimizing or maximizing the given
// variable, by branch and bound: each time a solution is found, search
// resumes under a bound excluding any solution not strictly better. The
// returned status is Sat if the optimum was proved, Indet if a budget ran
// out; in the latter case the best solution found so far, if any, is
// reported with HasSolution set.
func (s *Solver) Optimize(obj IntVar, dir Direction) Result {
	start := time.Now()
	if err := s.checkVar(obj); err != nil {
		s.log.WithError(err).Error("invalid objective")
		return s.result(Indet)
	}
	s.solving = true
	defer func() {
		s.solving = false
		s.Stats.Elapsed += time.Since(start)
	}()
	deadline := s.deadlineFrom(start)
	s.hasIncumbent = false
	if s.status == Unsat {
		return s.result(Unsat)
	}
	for {
		st := s.runSearch(deadline)
		switch st {
		case Sat:
			val := s.Value(obj)
			s.bestObj = val
			s.bestValues = append(s.bestValues[:0], s.lastValues...)
			s.hasIncumbent = true
			s.log.WithFields(logrus.Fields{
				"objective": val,
				"conflicts": s.Stats.Conflicts,
				"elapsed":   time.Since(start),
			}).Info("improved solution")
			if s.opts.OnImprovement != nil {
				s.opts.OnImprovement(append([]int(nil), s.bestValues...), val)
			}
			s.backtrackTo(rootLevel)
			var bound Lit
			if dir == Minimize {
				bound = s.litLE(obj, val-1)
			} else {
				bound = s.litLE(obj, val).Negation()
			}
			if bound == litFalse {
				return s.optimalResult()
			}
			if cf := s.enqueue(bound, rootLevel, reason{}); cf != nil {
				return s.optimalResult()
			}
		case Unsat:
			if s.hasIncumbent {
				return s.optimalResult()
			}
			s.status = Unsat
			return s.result(Unsat)
		default:
			res := Result{Status: Indet, Stats: s.Stats}
			if s.hasIncumbent {
				res.Values = append([]int(nil), s.bestValues...)
				res.Objective = s.bestObj
				res.HasSolution = true
			}
			s.backtrackTo(rootLevel)
			return res
		}
	}
}

// optimalResult builds the Sat result for a proved optimum.
func (s *Solver) optimalResult() Result {
	s.status = Sat
	s.backtrackTo(rootLevel)
	return Result{
		Status:      Sat,
		Values:      append([]int(nil), s.bestValues...),
		Objective:   s.bestObj,
		HasSolution: true,
		Stats:       s.Stats,
	}
}

// Values returns the assignment of the last solution found.
func (s *Solver) Values() ([]int, error) {
	if s.lastValues == nil {
		return nil, errors.New("no solution recorded")
	}
	return append([]int(nil), s.lastValues...), nil
}
