package solver

import (
	"fmt"
	"sort"

	"github.com/pkg/errors"
)

// The variable store: integer domain variables and their on-demand boolean
// predicate literals. A predicate literal is only allocated when a propagator,
// a brancher or conflict analysis actually asks for it; allocation posts the
// linking clauses needed to keep all literals of the same variable logically
// consistent.

// A boundEvent records one tightening of a variable's bound: the resulting
// bound and the literal whose assignment caused it. The per-variable stacks
// of boundEvents are the source of lazy bound explanations.
type boundEvent struct {
	bound int
	lit   Lit
}

// A varWatch registers a propagator's interest in some events of a variable.
type varWatch struct {
	propIdx int
	mask    event
}

type intVar struct {
	initLb, initUb int
	lb, ub         int
	removed        map[int]Lit // Values strictly removed, with the literal that removed them.
	holeHist       []int       // Removal order, for exact restoration on backtrack.
	leLits         map[int]Lit // Memoized positive literals for x <= v.
	leVals         []int       // Sorted bounds with a materialized <= literal.
	eqLits         map[int]Lit // Memoized positive literals for x == v.
	lbHist         []boundEvent
	ubHist         []boundEvent
	watchers       []varWatch
}

// NewIntVar creates an integer variable with the inclusive domain [lb, ub].
func (s *Solver) NewIntVar(lb, ub int) (IntVar, error) {
	if lb > ub {
		return -1, errors.Errorf("inverted bounds [%d, %d] for new variable", lb, ub)
	}
	if s.solving {
		return -1, errors.New("cannot create a variable while solving")
	}
	x := IntVar(len(s.vars))
	s.vars = append(s.vars, &intVar{
		initLb:  lb,
		initUb:  ub,
		lb:      lb,
		ub:      ub,
		removed: make(map[int]Lit),
		leLits:  make(map[int]Lit),
		eqLits:  make(map[int]Lit),
	})
	s.varActivity = append(s.varActivity, 0)
	s.varQueue.insert(int(x))
	return x, nil
}

// NbVars returns the number of integer variables of the solver.
func (s *Solver) NbVars() int {
	return len(s.vars)
}

func (s *Solver) checkVar(x IntVar) error {
	if x < 0 || int(x) >= len(s.vars) {
		return errors.Errorf("undeclared variable %d", x)
	}
	return nil
}

// Lb returns the current lower bound of x.
func (s *Solver) Lb(x IntVar) int { return s.vars[x].lb }

// Ub returns the current upper bound of x.
func (s *Solver) Ub(x IntVar) int { return s.vars[x].ub }

// Fixed returns true iff x's domain is a singleton.
func (s *Solver) Fixed(x IntVar) bool { return s.vars[x].lb == s.vars[x].ub }

// Value returns the value of a fixed variable.
// It panics if the variable is not fixed.
func (s *Solver) Value(x IntVar) int {
	iv := s.vars[x]
	if iv.lb != iv.ub {
		panic(fmt.Sprintf("Value called on unfixed variable %d [%d, %d]", x, iv.lb, iv.ub))
	}
	return iv.lb
}

// Contains returns true iff value v is still in x's domain.
func (s *Solver) Contains(x IntVar, v int) bool {
	iv := s.vars[x]
	if v < iv.lb || v > iv.ub {
		return false
	}
	_, gone := iv.removed[v]
	return !gone
}

// domSize returns the number of values left in x's domain.
func (s *Solver) domSize(x IntVar) int {
	iv := s.vars[x]
	n := iv.ub - iv.lb + 1
	for v := range iv.removed {
		if v > iv.lb && v < iv.ub {
			n--
		}
	}
	return n
}

// newBVar allocates a boolean variable for the given predicate.
func (s *Solver) newBVar(p pred) BVar {
	b := BVar(len(s.preds))
	s.preds = append(s.preds, p)
	s.assign = append(s.assign, 0)
	s.reasons = append(s.reasons, reason{})
	s.growWatches()
	return b
}

// litLE returns the literal standing for x <= v, allocating it on demand.
// Out-of-domain bounds resolve to the constant literals without allocation.
func (s *Solver) litLE(x IntVar, v int) Lit {
	iv := s.vars[x]
	if v >= iv.initUb {
		return litTrue
	}
	if v < iv.initLb {
		return litFalse
	}
	if l, ok := iv.leLits[v]; ok {
		return l
	}
	l := s.newBVar(pred{kind: predLE, x: x, v: v}).Lit()
	iv.leLits[v] = l
	// Chain with the nearest materialized bounds: (x<=u) -> (x<=v) -> (x<=w)
	// for the largest u < v and smallest w > v already allocated.
	idx := sort.SearchInts(iv.leVals, v)
	if idx > 0 {
		below := iv.leLits[iv.leVals[idx-1]]
		s.addClauseDynamic([]Lit{below.Negation(), l})
	}
	if idx < len(iv.leVals) {
		above := iv.leLits[iv.leVals[idx]]
		s.addClauseDynamic([]Lit{l.Negation(), above})
	}
	iv.leVals = append(iv.leVals, 0)
	copy(iv.leVals[idx+1:], iv.leVals[idx:])
	iv.leVals[idx] = v
	// A literal born while bounds are already tighter than its predicate is
	// assigned right away, justified by the bound history.
	if s.assign[l.Var()] == 0 {
		if iv.ub <= v {
			s.enqueueImplied(l, s.appendUbExplanation(x, v, nil))
		} else if iv.lb > v {
			s.enqueueImplied(l.Negation(), s.appendLbExplanation(x, v+1, nil))
		}
	}
	return l
}

// litEQ returns the literal standing for x == v, allocating it on demand.
func (s *Solver) litEQ(x IntVar, v int) Lit {
	iv := s.vars[x]
	if v < iv.initLb || v > iv.initUb {
		return litFalse
	}
	if iv.initLb == iv.initUb {
		return litTrue
	}
	if l, ok := iv.eqLits[v]; ok {
		return l
	}
	l := s.newBVar(pred{kind: predEQ, x: x, v: v}).Lit()
	iv.eqLits[v] = l
	// Channel the equality to the bound literals:
	// (x=v) -> (x<=v), (x=v) -> (x>=v), (x<=v) /\ (x>=v) -> (x=v).
	at := s.litLE(x, v)
	below := s.litLE(x, v-1)
	if at != litTrue {
		s.addClauseDynamic([]Lit{l.Negation(), at})
	}
	if below != litFalse {
		s.addClauseDynamic([]Lit{l.Negation(), below.Negation()})
	}
	full := []Lit{l}
	if at != litTrue {
		full = append(full, at.Negation())
	}
	if below != litFalse {
		full = append(full, below)
	}
	s.addClauseDynamic(full)
	if s.assign[l.Var()] == 0 {
		if v < iv.lb {
			s.enqueueImplied(l.Negation(), s.appendLbExplanation(x, v+1, nil))
		} else if v > iv.ub {
			s.enqueueImplied(l.Negation(), s.appendUbExplanation(x, v-1, nil))
		} else if iv.lb == iv.ub && iv.lb == v {
			expl := s.appendLbExplanation(x, v, nil)
			expl = s.appendUbExplanation(x, v, expl)
			s.enqueueImplied(l, expl)
		}
	}
	return l
}

// enqueueImplied assigns a freshly created literal that the current domain
// already implies. The antecedents become an original clause so that the
// assignment has a stable reason for later analysis.
func (s *Solver) enqueueImplied(l Lit, antecedents []Lit) {
	lits := make([]Lit, 0, len(antecedents)+1)
	lits = append(lits, l)
	for _, a := range antecedents {
		lits = append(lits, a.Negation())
	}
	c := newClause(lits)
	s.appendClauseToDB(c)
	if confl := s.enqueue(l, s.currentLevel, reason{clause: c}); confl != nil {
		// The complement cannot be true: the literal was just created and
		// unassigned, and the domain implies l.
		panic(fmt.Sprintf("conflict while assigning implied literal %s", s.litString(l)))
	}
}

// selfSufficient reports whether the assignment of the bound event's literal
// implies its bound on its own. Hole-driven bound advances also depend on the
// previous bound, so their explanation walks further back in the history.
func (s *Solver) selfSufficient(e boundEvent) bool {
	p := s.preds[e.lit.Var()]
	switch p.kind {
	case predLE:
		return true // x<=v or its negation x>=v+1 carries the bound alone.
	case predEQ:
		return e.lit.IsPositive() // x=v does; x!=v is a hole advance.
	}
	return false
}

// appendUbExplanation appends to buf literals whose assignments force
// x <= v. All returned literals are true and sit on the trail before any
// entry made after the bound reached v. If the initial domain already
// implies the bound, nothing is appended.
func (s *Solver) appendUbExplanation(x IntVar, v int, buf []Lit) []Lit {
	iv := s.vars[x]
	if iv.initUb <= v {
		return buf
	}
	hist := iv.ubHist
	p := 0
	for p < len(hist) && hist[p].bound > v {
		p++
	}
	if p == len(hist) {
		panic(fmt.Sprintf("no upper bound explanation: var %d, bound %d, ub %d", x, v, iv.ub))
	}
	for i := p; i >= 0; i-- {
		buf = append(buf, hist[i].lit)
		if s.selfSufficient(hist[i]) {
			break
		}
	}
	return buf
}

// appendLbExplanation appends to buf literals whose assignments force
// x >= v. See appendUbExplanation.
func (s *Solver) appendLbExplanation(x IntVar, v int, buf []Lit) []Lit {
	iv := s.vars[x]
	if iv.initLb >= v {
		return buf
	}
	hist := iv.lbHist
	p := 0
	for p < len(hist) && hist[p].bound < v {
		p++
	}
	if p == len(hist) {
		panic(fmt.Sprintf("no lower bound explanation: var %d, bound %d, lb %d", x, v, iv.lb))
	}
	for i := p; i >= 0; i-- {
		buf = append(buf, hist[i].lit)
		if s.selfSufficient(hist[i]) {
			break
		}
	}
	return buf
}

// appendFixExplanation appends literals forcing x to its current, fixed value.
func (s *Solver) appendFixExplanation(x IntVar, buf []Lit) []Lit {
	iv := s.vars[x]
	buf = s.appendLbExplanation(x, iv.lb, buf)
	return s.appendUbExplanation(x, iv.ub, buf)
}

// watchVar registers the propagator at propIdx to be woken on the given
// events of x.
func (s *Solver) watchVar(x IntVar, propIdx int, mask event) {
	iv := s.vars[x]
	iv.watchers = append(iv.watchers, varWatch{propIdx: propIdx, mask: mask})
}

// notifyWatchers schedules every propagator interested in the events that
// just happened on x.
func (s *Solver) notifyWatchers(x IntVar, mask event) {
	for _, w := range s.vars[x].watchers {
		if w.mask&mask != 0 {
			s.schedule(w.propIdx)
		}
	}
}

// litString renders a literal as the domain predicate it encodes.
func (s *Solver) litString(l Lit) string {
	if l == litTrue {
		return "true"
	}
	if l == litFalse {
		return "false"
	}
	p := s.preds[l.Var()]
	switch p.kind {
	case predLE:
		if l.IsPositive() {
			return fmt.Sprintf("x%d<=%d", p.x, p.v)
		}
		return fmt.Sprintf("x%d>=%d", p.x, p.v+1)
	case predEQ:
		if l.IsPositive() {
			return fmt.Sprintf("x%d=%d", p.x, p.v)
		}
		return fmt.Sprintf("x%d!=%d", p.x, p.v)
	}
	return fmt.Sprintf("b%d", l)
}
