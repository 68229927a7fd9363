package solver

import (
	"math/rand"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Stats are statistics about the resolution of the problem.
// They are provided for information purpose only.
type Stats struct {
	Restarts      int64
	Conflicts     int64
	Decisions     int64
	Propagations  int64 // How many literals were pushed on the trail
	UnitLearned   int64 // How many unit clauses were learned
	BinaryLearned int64 // How many binary clauses were learned
	Learned       int64 // How many clauses were learned
	Deleted       int64 // How many clauses were deleted
	Elapsed       time.Duration
}

// Nodes returns the size of the explored search tree.
func (st Stats) Nodes() int64 {
	return st.Decisions + st.Conflicts
}

// A Brancher is a strategy for picking the next variable to branch on.
type Brancher byte

const (
	// BranchActivity picks the unfixed variable most active in recent conflicts.
	BranchActivity = Brancher(iota)
	// BranchFirstFail picks the unfixed variable with the smallest domain.
	BranchFirstFail
	// BranchRandom picks a pseudo-random unfixed variable.
	BranchRandom
)

// A RestartPolicy decides when the solver abandons the current search tree.
type RestartPolicy byte

const (
	// RestartLBD restarts when recent learned clauses are markedly worse
	// than the historical average, judged by their literal block distance.
	RestartLBD = RestartPolicy(iota)
	// RestartLuby restarts on a conflict schedule following the Luby series.
	RestartLuby
)

// Options control the search. The zero value is usable and means: no limits,
// activity branching, LBD restarts, quiet logging.
type Options struct {
	Timeout       time.Duration // Wall-clock limit; 0 means none.
	MaxConflicts  int64         // Conflict budget; 0 means unbounded, negative allows none.
	MaxDecisions  int64         // Decision budget; 0 means unbounded, negative allows none.
	Brancher      Brancher
	Restarts      RestartPolicy
	RandomSeed    int64
	Verbose       bool
	Logger        logrus.FieldLogger // If nil, a default logger is built according to Verbose.
	OnImprovement func(values []int, objective int)
}

// A Result is the outcome of a Solve or Optimize call. Values holds one value
// per declared variable when Status is Sat. For an optimization run that
// exhausted a budget, Status is Indet but Values may still hold the best
// solution found, flagged by HasSolution.
type Result struct {
	Status      Status
	Values      []int
	Objective   int
	HasSolution bool
	Stats       Stats
}

// A modelCheck verifies a posted constraint against a full assignment,
// independently from its propagator.
type modelCheck struct {
	name string
	fn   func(values []int) error
}

// A Solver holds a constraint model over integer variables and solves it.
// It is the main data structure.
type Solver struct {
	Stats Stats // Statistics about the solving process.

	vars  []*intVar
	preds []pred // Predicate of each boolean var; index 0 is the true constant.

	assign       []decLevel // Signed assignment level of each boolean var; 0 means unbound.
	reasons      []reason
	trail        []trailEntry
	qhead        int
	currentLevel decLevel

	wl      watcherList
	alloc   allocator
	props   []propagator
	dirty   []bool
	nbDirty int
	checks  []modelCheck

	varActivity []float64 // How often each integer var is involved in conflicts.
	varQueue    queue
	varInc      float64 // On each var bump, how big the increment should be.
	varDecay    float64 // On each var decay, how much the varInc should be decayed.
	clauseInc   float32
	lbdStats    lbdStats

	status  Status
	solving bool
	opts    Options
	log     logrus.FieldLogger
	rng     *rand.Rand

	lastValues   []int
	bestValues   []int
	bestObj      int
	hasIncumbent bool
}

// New creates an empty solver with the given options.
func New(opts Options) *Solver {
	log := opts.Logger
	if log == nil {
		l := logrus.New()
		if opts.Verbose {
			l.SetLevel(logrus.DebugLevel)
		} else {
			l.SetLevel(logrus.ErrorLevel)
		}
		log = l
	}
	s := &Solver{
		status:       Indet,
		currentLevel: rootLevel,
		varInc:       1.0,
		clauseInc:    1.0,
		varDecay:     defaultVarDecay,
		opts:         opts,
		log:          log,
		rng:          rand.New(rand.NewSource(opts.RandomSeed)),
	}
	s.wl.nbMax = initNbMaxClauses
	s.wl.idxReduce = 1
	s.varQueue = newQueue(&s.varActivity)
	// Boolean var 0 is the true constant, assigned at root level once and
	// for all so that constant literals have a status and a level.
	b := s.newBVar(pred{})
	s.assign[b] = lvlToSignedLvl(litTrue, rootLevel)
	s.trail = append(s.trail, trailEntry{lit: litTrue})
	return s
}

func (s *Solver) varDecayActivity() {
	s.varInc *= 1 / s.varDecay
}

// varBumpActivity bumps the activity of the integer variable behind the
// boolean var. The true constant has no variable and is ignored.
func (s *Solver) varBumpActivity(b BVar) {
	p := s.preds[b]
	if p.kind == predNone {
		return
	}
	x := int(p.x)
	s.varActivity[x] += s.varInc
	if s.varActivity[x] > 1e100 { // Rescaling is needed to avoid overflowing.
		for i := range s.varActivity {
			s.varActivity[i] *= 1e-100
		}
		s.varInc *= 1e-100
	}
	if s.varQueue.contains(x) {
		s.varQueue.decrease(x)
	}
}

func (s *Solver) checkAllVars(xs []IntVar) error {
	for _, x := range xs {
		if err := s.checkVar(x); err != nil {
			return err
		}
	}
	return nil
}

// AddAllDifferent posts the constraint that all the given variables take
// pairwise distinct values.
func (s *Solver) AddAllDifferent(xs []IntVar) error {
	if err := s.checkAllVars(xs); err != nil {
		return errors.Wrap(err, "all_different")
	}
	if s.solving {
		return errors.New("cannot post a constraint while solving")
	}
	if len(xs) < 2 {
		return nil
	}
	newAllDifferent(s, xs)
	vars := append([]IntVar(nil), xs...)
	s.checks = append(s.checks, modelCheck{name: "all_different", fn: func(values []int) error {
		seen := make(map[int]IntVar, len(vars))
		for _, x := range vars {
			if y, ok := seen[values[x]]; ok {
				return errors.Errorf("variables %d and %d both take value %d", y, x, values[x])
			}
			seen[values[x]] = x
		}
		return nil
	}})
	return nil
}

// AddCircuit posts the constraint that the successor variables form a single
// Hamiltonian circuit: next[i] is the node following node i, and following
// successors from any node visits every node exactly once.
func (s *Solver) AddCircuit(next []IntVar) error {
	if err := s.checkAllVars(next); err != nil {
		return errors.Wrap(err, "circuit")
	}
	if s.solving {
		return errors.New("cannot post a constraint while solving")
	}
	if len(next) == 0 {
		return errors.New("circuit: no variables")
	}
	newCircuit(s, next)
	vars := append([]IntVar(nil), next...)
	s.checks = append(s.checks, modelCheck{name: "circuit", fn: func(values []int) error {
		n := len(vars)
		cur := 0
		for i := 1; i < n; i++ {
			nxt := values[vars[cur]]
			if nxt < 0 || nxt >= n || nxt == cur {
				return errors.Errorf("successor of node %d is %d", cur, nxt)
			}
			if nxt == 0 {
				return errors.Errorf("circuit closes after %d nodes instead of %d", i, n)
			}
			cur = nxt
		}
		if values[vars[cur]] != 0 {
			return errors.Errorf("circuit does not close: node %d points to %d", cur, values[vars[cur]])
		}
		return nil
	}})
	return nil
}

// AddLinear posts sum(coeffs[i]*xs[i]) op rhs with the default order encoding.
func (s *Solver) AddLinear(coeffs []int, xs []IntVar, op LinearOp, rhs int) error {
	return s.AddLinearWithEncoding(coeffs, xs, op, rhs, EncOrder)
}

// AddLinearWithEncoding posts a linear constraint, choosing how the
// propagator expresses its domain prunings as literals.
func (s *Solver) AddLinearWithEncoding(coeffs []int, xs []IntVar, op LinearOp, rhs int, enc Encoding) error {
	if len(coeffs) != len(xs) {
		return errors.Errorf("linear: %d coefficients for %d variables", len(coeffs), len(xs))
	}
	if err := s.checkAllVars(xs); err != nil {
		return errors.Wrap(err, "linear")
	}
	if s.solving {
		return errors.New("cannot post a constraint while solving")
	}
	// GE and EQ reduce to LE propagators on negated terms.
	switch op {
	case LinearLE:
		newLinearLE(s, coeffs, xs, rhs, enc)
	case LinearGE:
		newLinearLE(s, negated(coeffs), xs, -rhs, enc)
	case LinearEQ:
		newLinearLE(s, coeffs, xs, rhs, enc)
		newLinearLE(s, negated(coeffs), xs, -rhs, enc)
	default:
		return errors.Errorf("linear: unknown operator %d", op)
	}
	cs := append([]int(nil), coeffs...)
	vars := append([]IntVar(nil), xs...)
	s.checks = append(s.checks, modelCheck{name: "linear", fn: func(values []int) error {
		sum := 0
		for i, x := range vars {
			sum += cs[i] * values[x]
		}
		ok := false
		switch op {
		case LinearLE:
			ok = sum <= rhs
		case LinearGE:
			ok = sum >= rhs
		case LinearEQ:
			ok = sum == rhs
		}
		if !ok {
			return errors.Errorf("sum is %d, want op %d against %d", sum, op, rhs)
		}
		return nil
	}})
	return nil
}

func negated(coeffs []int) []int {
	neg := make([]int, len(coeffs))
	for i, c := range coeffs {
		neg[i] = -c
	}
	return neg
}

// Check verifies a full assignment against every posted constraint and the
// initial domains, without involving the propagators. values holds one value
// per declared variable.
func (s *Solver) Check(values []int) error {
	if len(values) != len(s.vars) {
		return errors.Errorf("got %d values for %d variables", len(values), len(s.vars))
	}
	for i, iv := range s.vars {
		v := values[i]
		if v < iv.initLb || v > iv.initUb {
			return errors.Errorf("value %d out of domain [%d, %d] of variable %d", v, iv.initLb, iv.initUb, i)
		}
	}
	for _, c := range s.checks {
		if err := c.fn(values); err != nil {
			return errors.Wrap(err, c.name)
		}
	}
	return nil
}
