package solver

// Basic types and constants shared by the whole engine.

// Status is the outcome of a solve or optimize call.
type Status byte

const (
	// Indet means the problem is not proven sat or unsat yet.
	// It is the terminal status when a timeout or budget was exhausted.
	Indet = Status(iota)
	// Sat means the problem is satisfied.
	Sat
	// Unsat means the problem cannot be satisfied.
	Unsat
)

func (s Status) String() string {
	switch s {
	case Indet:
		return "INDETERMINATE"
	case Sat:
		return "SAT"
	case Unsat:
		return "UNSAT"
	default:
		panic("invalid status")
	}
}

// An IntVar identifies an integer domain variable of the solver.
type IntVar int32

// A BVar is a boolean variable backing a domain predicate. BVars start at 0;
// BVar 0 is reserved for the solver's constant true literal.
type BVar int32

// A Lit is a boolean literal: a BVar together with a sign, encoded as
// 2*var + sign. The sign is the last bit, so negation is a xor.
type Lit int32

const (
	litUndef Lit = -1
	// litTrue is always true, litFalse always false. They back predicates
	// that fall outside a variable's initial domain.
	litTrue  Lit = 0
	litFalse Lit = 1
)

// Lit returns the positive Lit associated to v.
func (v BVar) Lit() Lit {
	return Lit(v * 2)
}

// Var returns the variable of l.
func (l Lit) Var() BVar {
	return BVar(l / 2)
}

// IsPositive is true iff l is the positive literal of its variable.
func (l Lit) IsPositive() bool {
	return l%2 == 0
}

// Negation returns the complement of l.
func (l Lit) Negation() Lit {
	return l ^ 1
}

// predKind is the kind of domain predicate a BVar stands for.
type predKind uint8

const (
	predNone predKind = iota // Constant literal, not tied to a domain.
	predLE                   // Positive literal means x <= v, negation x >= v+1.
	predEQ                   // Positive literal means x == v, negation x != v.
)

// A pred maps a BVar back to the domain predicate it encodes.
type pred struct {
	kind predKind
	x    IntVar
	v    int
}

// Domain events propagators can wake on.
type event uint8

const (
	evLowerBound event = 1 << iota // Lower bound tightened.
	evUpperBound                   // Upper bound tightened.
	evHole                         // A value strictly inside the bounds was removed.
	evFix                          // The variable became fixed.

	evBounds = evLowerBound | evUpperBound
	evAny    = evBounds | evHole | evFix
)

// Encoding selects how the linear propagator materializes tightened bounds
// as predicate literals. The propagated bounds and the produced explanations
// are identical for all encodings; only the number and shape of the
// materialized literals and linking clauses differ.
type Encoding byte

const (
	// EncOrder materializes the exact bound literal (x <= b). Default.
	EncOrder = Encoding(iota)
	// EncDirect removes the excluded values one by one through equality
	// literals (x != v).
	EncDirect
	// EncLog materializes intermediate bound literals at power-of-two
	// aligned cut points before the exact bound literal.
	EncLog
)

func (e Encoding) String() string {
	switch e {
	case EncOrder:
		return "order"
	case EncDirect:
		return "direct"
	case EncLog:
		return "log"
	default:
		panic("invalid encoding")
	}
}

// ParseEncoding converts a CLI-level encoding name to an Encoding.
func ParseEncoding(name string) (Encoding, bool) {
	switch name {
	case "order":
		return EncOrder, true
	case "direct":
		return EncDirect, true
	case "log":
		return EncLog, true
	}
	return EncOrder, false
}

// Direction is the direction of an optimization.
type Direction byte

const (
	// Minimize looks for the smallest objective value.
	Minimize = Direction(iota)
	// Maximize looks for the largest objective value.
	Maximize
)

// LinearOp is the relational operator of a linear constraint.
type LinearOp byte

const (
	// LinearLE constrains the weighted sum to be at most the constant.
	LinearLE = LinearOp(iota)
	// LinearGE constrains the weighted sum to be at least the constant.
	LinearGE
	// LinearEQ constrains the weighted sum to equal the constant.
	LinearEQ
)

// The level a literal was assigned at. Level 1 holds root facts, decisions
// start at level 2; 0 means "unassigned". In the assignment slice, a
// positive value means "assigned true at that level", a negative value
// "assigned false at that level".
type decLevel int32

const rootLevel decLevel = 1

func abs(val decLevel) decLevel {
	if val < 0 {
		return -val
	}
	return val
}

// If l is negative, -lvl is returned. Else, lvl is returned.
func lvlToSignedLvl(l Lit, lvl decLevel) decLevel {
	if l.IsPositive() {
		return lvl
	}
	return -lvl
}
