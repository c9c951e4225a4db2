package nsf_test

import (
	"testing"

	"github.com/katalvlaran/qbfdp/bdd"
	"github.com/katalvlaran/qbfdp/nsf"
	"github.com/katalvlaran/qbfdp/qbf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestOptions_Validate covers the contradictory combinations.
func TestOptions_Validate(t *testing.T) {
	valid := nsf.DefaultOptions()
	assert.NoError(t, valid.Validate())

	negOpt := valid
	negOpt.OptimizeInterval = -1
	assert.ErrorIs(t, negOpt.Validate(), nsf.ErrInvalidOption)

	negUnsat := valid
	negUnsat.UnsatCheckInterval = -2
	assert.ErrorIs(t, negUnsat.Validate(), nsf.ErrInvalidOption)

	negBDD := valid
	negBDD.MaxBDDSize = -5
	assert.ErrorIs(t, negBDD.Validate(), nsf.ErrInvalidOption)

	cacheClash := valid
	cacheClash.DisableCache = true
	cacheClash.Scheme = nsf.SchemeSimple
	assert.ErrorIs(t, cacheClash.Validate(), nsf.ErrInvalidOption)

	noOracle := valid
	noOracle.Scheme = nsf.SchemeStandard
	assert.ErrorIs(t, noOracle.Validate(), nsf.ErrInvalidOption)
}

// TestDefaultOptions pins the documented defaults.
func TestDefaultOptions(t *testing.T) {
	opts := nsf.DefaultOptions()
	assert.Equal(t, 1000, opts.MaxGlobalNSFSize)
	assert.Equal(t, 3000, opts.MaxBDDSize)
	assert.Equal(t, 4, opts.OptimizeInterval)
	assert.Equal(t, 2, opts.UnsatCheckInterval)
	assert.Equal(t, nsf.SchemeNaive, opts.Scheme)
	assert.False(t, opts.SortBeforeJoining)
	assert.False(t, opts.DisableCache)
}

// TestSchemeKindFromString round-trips the option spellings.
func TestSchemeKindFromString(t *testing.T) {
	for _, kind := range []nsf.SchemeKind{
		nsf.SchemeNaive, nsf.SchemeSimple, nsf.SchemeStandard, nsf.SchemeDynamic,
	} {
		parsed, err := nsf.SchemeKindFromString(kind.String())
		require.NoError(t, err)
		assert.Equal(t, kind, parsed)
	}
	_, err := nsf.SchemeKindFromString("resolution-path")
	assert.ErrorIs(t, err, nsf.ErrInvalidOption)
}

// TestManager_DisableCacheAppliesClausesImmediately: the plain variant
// conjoins clauses on creation instead of deferring them.
func TestManager_DisableCacheAppliesClausesImmediately(t *testing.T) {
	opts := nsf.DefaultOptions()
	opts.DisableCache = true
	man, bddm, inst := testSetup(t, []qbf.Quantifier{qbf.Exists}, []int{1, 1}, opts)
	cubes := fullCubes(bddm, inst)

	clause := bddm.Or(bddm.Var(0), bddm.Var(1))
	c := man.NewComputation(cubes, []bdd.Node{clause})
	ev := c.Evaluate(onesCubes(bddm, inst), false)
	assert.True(t, bddm.Equal(ev, clause), "plain computations hold clauses in the leaves")
}

// TestManager_CacheDefersClauses: with the cache on, a clause over
// in-scope variables stays parked until its variables are removed.
func TestManager_CacheDefersClauses(t *testing.T) {
	opts := nsf.DefaultOptions()
	opts.OptimizeInterval = 0
	man, bddm, inst := testSetup(t, []qbf.Quantifier{qbf.Exists}, []int{1, 1}, opts)
	cubes := fullCubes(bddm, inst)

	clause := bddm.Or(bddm.Var(0), bddm.Var(1))
	c := man.NewComputation(cubes, []bdd.Node{clause})
	ev := c.Evaluate(onesCubes(bddm, inst), false)
	assert.True(t, bddm.IsOne(ev), "deferred clauses are not in the leaves yet")

	man.RemoveApply(c, [][]nsf.Variable{{{ID: 1, Level: 1}, {ID: 2, Level: 1}}}, onesCubes(bddm, inst), nil)
	assert.Equal(t, nsf.Sat, man.Decide(c), "∃xy(x∨y) = 1 after flush and abstraction")
	assert.GreaterOrEqual(t, man.Stats().AbstractCount, 2)
}

// TestManager_RemovalBlockedByCachedClause: a variable is not
// abstracted while a cached clause still mentions it; the removal is
// retried once the clause can be flushed.
func TestManager_RemovalBlockedByCachedClause(t *testing.T) {
	opts := nsf.DefaultOptions()
	opts.OptimizeInterval = 0
	man, bddm, inst := testSetup(t, []qbf.Quantifier{qbf.Exists, qbf.Forall}, []int{1, 2}, opts)
	cubes := fullCubes(bddm, inst)

	// (x ∨ y) with x at level 1 and y at level 2.
	clause := bddm.Or(bddm.Var(0), bddm.Var(1))
	c := man.NewComputation(cubes, []bdd.Node{clause})

	// Forget x while y is still in scope: x must stay pending because
	// flushing the clause now would leave y's quantifier misplaced.
	scopeY := []bdd.Node{bddm.One(), bddm.Cube([]int{1})}
	man.RemoveApply(c, [][]nsf.Variable{{{ID: 1, Level: 1}}, nil}, scopeY, nil)
	ev := c.Evaluate(onesCubes(bddm, inst), false)
	assert.True(t, bddm.IsOne(ev), "nothing flushed, nothing abstracted")

	// Forgetting y unblocks everything: flush, then ∀y, then ∃x.
	man.RemoveApply(c, [][]nsf.Variable{nil, {{ID: 2, Level: 2}}}, onesCubes(bddm, inst), nil)
	assert.Equal(t, nsf.Sat, man.Decide(c), "∃x∀y(x∨y) = 1")
}

// TestManager_IntermediateUnsatAbort: the interval check on joins
// raises the sentinel as soon as the partial NSF is false.
func TestManager_IntermediateUnsatAbort(t *testing.T) {
	opts := nsf.DefaultOptions()
	opts.UnsatCheckInterval = 1
	opts.OptimizeInterval = 0
	man, bddm, inst := testSetup(t, []qbf.Quantifier{qbf.Exists}, []int{1}, opts)
	cubes := fullCubes(bddm, inst)

	a := man.NewComputation(cubes, nil)
	z := man.NewComputation(cubes, nil)
	install(man, z, cubes, bddm.Zero(), bddm)

	err := man.Conjunct(a, z)
	assert.ErrorIs(t, err, nsf.ErrIntermediateUnsat)
}

// TestManager_EstimationStaysPositive: the global size estimation
// never drops below one.
func TestManager_EstimationStaysPositive(t *testing.T) {
	opts := nsf.DefaultOptions()
	opts.UnsatCheckInterval = 0
	man, bddm, inst := testSetup(t, []qbf.Quantifier{qbf.Exists}, []int{1, 1}, opts)
	cubes := fullCubes(bddm, inst)

	a := man.NewComputation(cubes, nil)
	b := man.NewComputation(cubes, nil)
	require.NoError(t, man.Conjunct(a, b))
	man.Release(a)
	man.Release(a)
	assert.GreaterOrEqual(t, man.Estimation(), int64(1))
}

// TestSchemeResolution_Dynamic falls back to naive without an oracle
// and upgrades to standard with one on deep prefixes.
func TestSchemeResolution_Dynamic(t *testing.T) {
	opts := nsf.DefaultOptions()
	opts.Scheme = nsf.SchemeDynamic
	man, _, _ := testSetup(t, []qbf.Quantifier{qbf.Exists, qbf.Forall, qbf.Exists}, []int{1, 2, 3}, opts)
	assert.Equal(t, "naive", man.Scheme().Name())

	opts.Oracle = oracleFunc(func(outer, inner int) bool { return true })
	man, _, _ = testSetup(t, []qbf.Quantifier{qbf.Exists, qbf.Forall, qbf.Exists}, []int{1, 2, 3}, opts)
	assert.Equal(t, "standard", man.Scheme().Name())

	man, _, _ = testSetup(t, []qbf.Quantifier{qbf.Exists, qbf.Forall}, []int{1, 2}, opts)
	assert.Equal(t, "naive", man.Scheme().Name(), "two blocks stay naive")
}

type oracleFunc func(outer, inner int) bool

func (f oracleFunc) Depends(outer, inner int) bool { return f(outer, inner) }

// TestSimpleScheme_DefersOuterRemoval: the quantifier-prefix scheme
// refuses to abstract an outer variable while an inner one remains.
func TestSimpleScheme_DefersOuterRemoval(t *testing.T) {
	opts := nsf.DefaultOptions()
	opts.Scheme = nsf.SchemeSimple
	opts.OptimizeInterval = 0
	man, bddm, inst := testSetup(t, []qbf.Quantifier{qbf.Exists, qbf.Forall}, []int{1, 2}, opts)
	cubes := fullCubes(bddm, inst)

	c := man.NewComputation(cubes, nil)
	install(man, c, cubes, bddm.Or(bddm.Var(0), bddm.Var(1)), bddm)

	man.Remove(c, nsf.Variable{ID: 1, Level: 1})
	ev := c.Evaluate(onesCubes(bddm, inst), false)
	assert.True(t, bddm.Equal(ev, bddm.Or(bddm.Var(0), bddm.Var(1))),
		"outer removal must wait for the inner block")

	man.Remove(c, nsf.Variable{ID: 2, Level: 2})
	assert.Equal(t, nsf.Sat, man.Decide(c), "retry abstracts both once the inner block is done")
}

// TestStandardScheme_OracleDecides: an always-independent oracle lets
// the outer variable go early; an always-dependent one blocks it.
func TestStandardScheme_OracleDecides(t *testing.T) {
	build := func(oracle nsf.Oracle) (*nsf.Manager, *bdd.Manager, *qbf.Instance) {
		opts := nsf.DefaultOptions()
		opts.Scheme = nsf.SchemeStandard
		opts.Oracle = oracle
		opts.OptimizeInterval = 0
		return testSetup(t, []qbf.Quantifier{qbf.Exists, qbf.Forall}, []int{1, 2}, opts)
	}

	man, bddm, inst := build(oracleFunc(func(outer, inner int) bool { return false }))
	cubes := fullCubes(bddm, inst)
	c := man.NewComputation(cubes, nil)
	install(man, c, cubes, bddm.Var(0), bddm)
	man.Remove(c, nsf.Variable{ID: 1, Level: 1})
	assert.Equal(t, nsf.Sat, man.Decide(c), "independent variables abstract early")

	man, bddm, inst = build(oracleFunc(func(outer, inner int) bool { return true }))
	cubes = fullCubes(bddm, inst)
	c = man.NewComputation(cubes, nil)
	install(man, c, cubes, bddm.Var(0), bddm)
	man.Remove(c, nsf.Variable{ID: 1, Level: 1})
	ev := c.Evaluate(onesCubes(bddm, inst), false)
	assert.True(t, bddm.Equal(ev, bddm.Var(0)), "dependent variables wait")
}

// TestResult_Spellings checks strings and exit codes.
func TestResult_Spellings(t *testing.T) {
	assert.Equal(t, "SAT", nsf.Sat.String())
	assert.Equal(t, "UNSAT", nsf.Unsat.String())
	assert.Equal(t, "UNDECIDED", nsf.Undecided.String())
	assert.Equal(t, 10, nsf.Sat.ExitCode())
	assert.Equal(t, 20, nsf.Unsat.ExitCode())
	assert.Equal(t, 0, nsf.Undecided.ExitCode())
}
