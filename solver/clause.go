package solver

import (
	"fmt"
	"strings"
)

// A Clause is a list of Lit, associated with bookkeeping data for learned clauses.
type Clause struct {
	lits []Lit
	// lbdValue's bits are as follow:
	// leftmost bit: learned flag.
	// second bit: locked flag (the clause is the live reason of a trail entry).
	// last 30 bits: LBD value (learned clauses only).
	lbdValue uint32
	activity float32
}

const (
	learnedMask uint32 = 1 << 31
	lockedMask  uint32 = 1 << 30
	bothMasks   uint32 = learnedMask | lockedMask
)

// newClause returns a clause whose lits are given as an argument.
func newClause(lits []Lit) *Clause {
	return &Clause{lits: lits}
}

// newLearnedClause returns a new clause marked as learned.
func newLearnedClause(lits []Lit) *Clause {
	return &Clause{lits: lits, lbdValue: learnedMask}
}

// Learned returns true iff c was a learned clause.
func (c *Clause) Learned() bool {
	return c.lbdValue&learnedMask == learnedMask
}

func (c *Clause) lock() {
	c.lbdValue = c.lbdValue | lockedMask
}

func (c *Clause) unlock() {
	c.lbdValue = c.lbdValue & ^lockedMask
}

func (c *Clause) lbd() int {
	return int(c.lbdValue & ^bothMasks)
}

func (c *Clause) setLbd(lbd int) {
	c.lbdValue = (c.lbdValue & bothMasks) | uint32(lbd)
}

func (c *Clause) incLbd() {
	c.lbdValue++
}

func (c *Clause) isLocked() bool {
	return c.lbdValue&bothMasks == bothMasks
}

// Len returns the nb of lits in the clause.
func (c *Clause) Len() int {
	return len(c.lits)
}

// First returns the first lit from the clause.
func (c *Clause) First() Lit {
	return c.lits[0]
}

// Second returns the second lit from the clause.
func (c *Clause) Second() Lit {
	return c.lits[1]
}

// Get returns the ith literal from the clause.
func (c *Clause) Get(i int) Lit {
	return c.lits[i]
}

// Set sets the ith literal of the clause.
func (c *Clause) Set(i int, l Lit) {
	c.lits[i] = l
}

// swap swaps the ith and jth lits from the clause.
func (c *Clause) swap(i, j int) {
	c.lits[i], c.lits[j] = c.lits[j], c.lits[i]
}

// String returns a readable representation of the clause, in terms of the
// domain predicates its literals encode.
func (c *Clause) String(s *Solver) string {
	terms := make([]string, len(c.lits))
	for i, l := range c.lits {
		terms[i] = s.litString(l)
	}
	return fmt.Sprintf("[%s]", strings.Join(terms, ", "))
}

// This file also holds an allocator for learned clause literals.
// Since lots of clauses are created then (sometimes) destroyed, literal
// slices are carved from a preallocated pool to relax the GC's work.

const nbLitsAlloc = 1 << 20 // How many literals are pooled at once.

type allocator struct {
	lits    []Lit // A pool of lits, sliced to make []Lit values.
	ptrFree int   // Index of the first free item in lits.
}

// newLits returns a slice containing the given literals, carved from the
// pool if possible.
func (a *allocator) newLits(lits ...Lit) []Lit {
	if a.ptrFree+len(lits) > len(a.lits) {
		a.lits = make([]Lit, nbLitsAlloc)
		copy(a.lits, lits)
		a.ptrFree = len(lits)
		return a.lits[:len(lits)]
	}
	copy(a.lits[a.ptrFree:], lits)
	a.ptrFree += len(lits)
	return a.lits[a.ptrFree-len(lits) : a.ptrFree]
}
