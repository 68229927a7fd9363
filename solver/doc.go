// Package solver gives access to a hybrid SAT/CP solver over integer
// variables, in the lazy clause generation style.
//
// A model is built by declaring variables with NewIntVar and posting
// constraints (AddAllDifferent, AddCircuit, AddLinear). Solve looks for a
// satisfying assignment; Optimize additionally minimizes or maximizes a
// variable by branch and bound.
//
// Internally, domain changes are carried by boolean predicate literals that
// are only allocated when something needs them. Propagators push consequences
// with deferred explanations, which conflict analysis expands into learned
// clauses the way a SAT solver does.
//
// The solver is NOT safe for concurrent use.
package solver
