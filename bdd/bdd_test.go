package bdd_test

import (
	"testing"

	"github.com/katalvlaran/qbfdp/bdd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewManager_RejectsNonPositive verifies the variable count guard.
func TestNewManager_RejectsNonPositive(t *testing.T) {
	_, err := bdd.NewManager(0)
	assert.Error(t, err, "zero variables must be rejected")

	_, err = bdd.NewManager(-3)
	assert.Error(t, err, "negative variables must be rejected")
}

// TestManager_Constants checks the constant handles and their
// classification.
func TestManager_Constants(t *testing.T) {
	m, err := bdd.NewManager(2)
	require.NoError(t, err)

	assert.True(t, m.IsOne(m.One()), "One must classify as constant true")
	assert.True(t, m.IsZero(m.Zero()), "Zero must classify as constant false")
	assert.False(t, m.IsOne(m.Zero()))
	assert.True(t, m.Equal(m.One(), m.One()))
	assert.False(t, m.Equal(m.One(), m.Zero()))
}

// TestManager_BooleanAlgebra exercises conjunction, disjunction and
// negation against their truth-table identities.
func TestManager_BooleanAlgebra(t *testing.T) {
	m, err := bdd.NewManager(2)
	require.NoError(t, err)

	x, y := m.Var(0), m.Var(1)
	assert.True(t, m.Equal(m.And(x, m.One()), x), "x ∧ 1 = x")
	assert.True(t, m.IsZero(m.And(x, m.Not(x))), "x ∧ ¬x = 0")
	assert.True(t, m.IsOne(m.Or(x, m.Not(x))), "x ∨ ¬x = 1")
	assert.True(t, m.Equal(m.And(x, y), m.And(y, x)), "conjunction commutes")
}

// TestManager_Quantification checks existential and universal
// abstraction of single variables and cubes.
func TestManager_Quantification(t *testing.T) {
	m, err := bdd.NewManager(3)
	require.NoError(t, err)

	x, y := m.Var(0), m.Var(1)
	f := m.And(x, y)

	ex := m.Exists(f, m.Cube([]int{0}))
	assert.True(t, m.Equal(ex, y), "∃x(x∧y) = y")

	all := m.Forall(f, m.Cube([]int{0}))
	assert.True(t, m.IsZero(all), "∀x(x∧y) = 0")

	g := m.Or(x, y)
	assert.True(t, m.Equal(m.Forall(g, m.Cube([]int{0})), y), "∀x(x∨y) = y")
	assert.True(t, m.IsOne(m.Exists(g, m.Cube([]int{0, 1}))), "∃xy(x∨y) = 1")
}

// TestManager_Restrict checks both cofactors.
func TestManager_Restrict(t *testing.T) {
	m, err := bdd.NewManager(2)
	require.NoError(t, err)

	x, y := m.Var(0), m.Var(1)
	f := m.Or(m.And(x, y), m.And(m.Not(x), m.Not(y))) // x ↔ y

	assert.True(t, m.Equal(m.Restrict(f, 0, true), y), "f|x=1 = y")
	assert.True(t, m.Equal(m.Restrict(f, 0, false), m.Not(y)), "f|x=0 = ¬y")
}

// TestManager_Implies verifies the semantic implication test used by
// subsumption compression.
func TestManager_Implies(t *testing.T) {
	m, err := bdd.NewManager(2)
	require.NoError(t, err)

	x, y := m.Var(0), m.Var(1)
	assert.True(t, m.Implies(m.And(x, y), x), "x∧y ⟹ x")
	assert.False(t, m.Implies(x, m.And(x, y)), "x ⟹̸ x∧y")
	assert.True(t, m.Implies(m.Zero(), x), "0 implies everything")
	assert.True(t, m.Implies(x, m.One()), "everything implies 1")
}

// TestManager_SupportAndTopVar checks structural inspection helpers.
func TestManager_SupportAndTopVar(t *testing.T) {
	m, err := bdd.NewManager(4)
	require.NoError(t, err)

	f := m.And(m.Var(1), m.Var(3))
	assert.Equal(t, []int{1, 3}, m.Support(f))

	top, ok := m.TopVar(f)
	require.True(t, ok)
	assert.Equal(t, 1, top, "topmost variable has the smallest level")

	_, ok = m.TopVar(m.One())
	assert.False(t, ok, "constants have no top variable")
	assert.Empty(t, m.Support(m.Zero()))
}

// TestManager_SizeMonotone checks that node counting distinguishes
// constants from structured functions.
func TestManager_SizeMonotone(t *testing.T) {
	m, err := bdd.NewManager(3)
	require.NoError(t, err)

	small := m.Size(m.Var(0))
	big := m.Size(m.And(m.Var(0), m.And(m.Var(1), m.Var(2))))
	assert.Greater(t, big, small, "a three-variable cube has more nodes than a literal")
}

// TestManager_EachSat enumerates the assignment classes of a disjunction.
func TestManager_EachSat(t *testing.T) {
	m, err := bdd.NewManager(2)
	require.NoError(t, err)

	f := m.Or(m.Var(0), m.Var(1))
	count := 0
	err = m.EachSat(f, func(profile []int) error {
		count++
		return nil
	})
	require.NoError(t, err)
	assert.Positive(t, count, "x∨y has satisfying assignment classes")
}
