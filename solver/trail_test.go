package solver

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBacktrackRestoresDomains(t *testing.T) {
	s := New(Options{})
	x := mustVar(t, s, 0, 9)

	s.currentLevel = 2
	require.Nil(t, s.enqueue(s.litLE(x, 7), 2, reason{}))
	s.currentLevel = 3
	require.Nil(t, s.enqueue(s.litEQ(x, 5).Negation(), 3, reason{}))
	s.currentLevel = 4
	require.Nil(t, s.enqueue(s.litLE(x, 3).Negation(), 4, reason{}))

	require.Equal(t, 4, s.Lb(x))
	require.Equal(t, 7, s.Ub(x))
	require.False(t, s.Contains(x, 5))

	s.backtrackTo(3)
	require.Equal(t, 0, s.Lb(x))
	require.Equal(t, 7, s.Ub(x))
	require.False(t, s.Contains(x, 5), "the hole was made at level 3 and must survive")

	s.backtrackTo(2)
	require.True(t, s.Contains(x, 5))
	require.Equal(t, 7, s.Ub(x))

	s.backtrackTo(rootLevel)
	require.Equal(t, 0, s.Lb(x))
	require.Equal(t, 9, s.Ub(x))
	require.Equal(t, 10, s.domSize(x))
}

func TestBacktrackUnassignsLiterals(t *testing.T) {
	s := New(Options{})
	x := mustVar(t, s, 0, 9)
	l := s.litLE(x, 4)
	s.currentLevel = 2
	require.Nil(t, s.enqueue(l, 2, reason{}))
	require.Equal(t, Sat, s.litValue(l))
	require.Equal(t, decLevel(2), s.litLevel(l))

	s.backtrackTo(rootLevel)
	require.Equal(t, Indet, s.litValue(l))
	require.Equal(t, decLevel(0), s.litLevel(l))
}

func TestEnqueueAlreadyFalseReportsConflict(t *testing.T) {
	s := New(Options{})
	x := mustVar(t, s, 0, 9)
	l := s.litLE(x, 4)
	s.currentLevel = 2
	require.Nil(t, s.enqueue(l.Negation(), 2, reason{}))
	confl := s.enqueue(l, 2, reason{})
	require.NotNil(t, confl)
	for _, cl := range confl.lits {
		require.Equal(t, Sat, s.litValue(cl), "conflict literals must all be true")
	}
}

func TestEmptiedDomainReportsConflict(t *testing.T) {
	s := New(Options{})
	x := mustVar(t, s, 0, 1)
	s.currentLevel = 2
	require.Nil(t, s.enqueue(s.litEQ(x, 0).Negation(), 2, reason{}))
	require.True(t, s.Fixed(x))
	require.Equal(t, 1, s.Value(x))
	confl := s.enqueue(s.litEQ(x, 1).Negation(), 2, reason{})
	require.NotNil(t, confl, "removing the last value must conflict")
	for _, cl := range confl.lits {
		require.Equal(t, Sat, s.litValue(cl))
	}
	s.backtrackTo(rootLevel)
	require.Equal(t, 2, s.domSize(x), "the partial update must be rolled back")
}

func TestDeferredUndoTrimsPayloads(t *testing.T) {
	s := New(Options{})
	x := mustVar(t, s, 0, 9)
	p := &linearLE{}
	s.registerProp(p, &p.propBase)
	s.currentLevel = 2
	require.Nil(t, s.propEnqueue(&p.propBase, s.litLE(x, 6), []Lit{}))
	require.Len(t, p.payloads, 1)
	s.backtrackTo(rootLevel)
	require.Len(t, p.payloads, 0, "backtracking must discard the deferred explanation")
}
