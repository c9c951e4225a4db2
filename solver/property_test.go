package solver_test

import (
	"math/rand"
	"testing"

	"github.com/katalvlaran/qbfdp/decompose"
	"github.com/katalvlaran/qbfdp/nsf"
	"github.com/katalvlaran/qbfdp/qbf"
	"github.com/katalvlaran/qbfdp/solver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// bruteForce decides a small instance by expanding the full assignment
// tree in prefix order.
func bruteForce(inst *qbf.Instance) bool {
	order := make([]int, 0, inst.NumVars)
	for level := 1; level <= inst.NumLevels(); level++ {
		order = append(order, inst.VarsAtLevel(level)...)
	}
	assign := make([]bool, inst.NumVars+1)

	var eval func(i int) bool
	eval = func(i int) bool {
		if i == len(order) {
			return matrixValue(inst, assign)
		}
		v := order[i]
		assign[v] = false
		r0 := eval(i + 1)
		assign[v] = true
		r1 := eval(i + 1)
		if inst.Quantifier(inst.VarLevel(v)) == qbf.Exists {
			return r0 || r1
		}
		return r0 && r1
	}
	return eval(0)
}

func matrixValue(inst *qbf.Instance, assign []bool) bool {
	for _, clause := range inst.Clauses {
		satisfied := false
		for _, lit := range clause {
			v := lit
			if v < 0 {
				v = -v
			}
			if assign[v] == (lit > 0) {
				satisfied = true
				break
			}
		}
		if !satisfied {
			return false
		}
	}
	return true
}

// randomInstance draws a small prenex-CNF instance: up to three
// alternating blocks, up to six variables, short random clauses.
func randomInstance(rng *rand.Rand) *qbf.Instance {
	numLevels := 1 + rng.Intn(3)
	prefix := make([]qbf.Quantifier, numLevels)
	kind := qbf.Quantifier(rng.Intn(2))
	for i := range prefix {
		prefix[i] = kind
		kind = 1 - kind
	}

	numVars := 2 + rng.Intn(5)
	level := make([]int, numVars+1)
	for v := 1; v <= numVars; v++ {
		level[v] = 1 + rng.Intn(numLevels)
	}

	numClauses := 1 + rng.Intn(6)
	clauses := make([]qbf.Clause, 0, numClauses)
	for i := 0; i < numClauses; i++ {
		width := 1 + rng.Intn(3)
		seen := make(map[int]struct{})
		var clause qbf.Clause
		for len(clause) < width {
			v := 1 + rng.Intn(numVars)
			if _, dup := seen[v]; dup {
				continue
			}
			seen[v] = struct{}{}
			lit := v
			if rng.Intn(2) == 1 {
				lit = -v
			}
			clause = append(clause, lit)
		}
		clauses = append(clauses, clause)
	}

	return &qbf.Instance{
		NumVars: numVars,
		Prefix:  prefix,
		Level:   level,
		Clauses: clauses,
	}
}

// propertyOptions is the option grid randomized instances are solved
// under.
func propertyOptions() map[string]solver.Options {
	base := solver.DefaultOptions()

	noOpt := base
	noOpt.NSF.OptimizeInterval = 0

	tiny := base
	tiny.NSF.MaxBDDSize = 1
	tiny.NSF.OptimizeInterval = 1

	sorted := base
	sorted.NSF.SortBeforeJoining = true
	sorted.NSF.UnsatCheckInterval = 1

	simple := base
	simple.NSF.Scheme = nsf.SchemeSimple

	natural := base
	natural.Decompose.Ordering = decompose.Natural
	natural.Decompose.Iterations = 1
	natural.NSF.UnsatCheckInterval = 0

	return map[string]solver.Options{
		"defaults":        base,
		"no optimization": noOpt,
		"tiny bdd bound":  tiny,
		"sorted joins":    sorted,
		"simple scheme":   simple,
		"natural order":   natural,
	}
}

// TestSolve_MatchesBruteForce cross-checks the DP solver against the
// truth-table evaluator on randomized instances under every option
// set.
func TestSolve_MatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	opts := propertyOptions()

	for i := 0; i < 60; i++ {
		inst := randomInstance(rng)
		require.NoError(t, inst.Validate())

		want := nsf.Unsat
		if bruteForce(inst) {
			want = nsf.Sat
		}

		for name, o := range opts {
			out, err := solver.Solve(inst, o)
			require.NoError(t, err, "instance %d under %q", i, name)
			assert.Equal(t, want, out.Result,
				"instance %d under %q: vars=%d prefix=%v clauses=%v",
				i, name, inst.NumVars, inst.Prefix, inst.Clauses)
		}
	}
}

// TestSolveMonolithic_MatchesBruteForce cross-checks the
// decomposition-free path on the same generator.
func TestSolveMonolithic_MatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for i := 0; i < 60; i++ {
		inst := randomInstance(rng)

		want := nsf.Unsat
		if bruteForce(inst) {
			want = nsf.Sat
		}

		out, err := solver.SolveMonolithic(inst, false)
		require.NoError(t, err, "instance %d", i)
		assert.Equal(t, want, out.Result, "instance %d: clauses=%v", i, inst.Clauses)
	}
}

// TestSolve_EnumerationMatchesBruteForce checks, for instances with an
// existential first block, that the enumerated outer assignments are
// exactly those extendable to a satisfying strategy.
func TestSolve_EnumerationMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(23))
	checked := 0
	for i := 0; checked < 20 && i < 200; i++ {
		inst := randomInstance(rng)
		if inst.Quantifier(1) != qbf.Exists {
			continue
		}
		checked++

		opts := solver.DefaultOptions()
		opts.Enumerate = true
		out, err := solver.Solve(inst, opts)
		require.NoError(t, err)

		want := bruteModels(inst)
		if len(want) == 0 {
			assert.Equal(t, nsf.Unsat, out.Result, "instance %d", i)
			continue
		}
		require.Equal(t, nsf.Sat, out.Result, "instance %d", i)
		assert.Equal(t, want, out.Models(), "instance %d: clauses=%v", i, inst.Clauses)
	}
	assert.Equal(t, 20, checked, "generator must produce enough existential-first instances")
}

// bruteModels enumerates the level-1 assignments under which the rest
// of the prefix evaluates true, in the Models() ordering.
func bruteModels(inst *qbf.Instance) [][]int {
	outer := inst.VarsAtLevel(1)
	inner := make([]int, 0, inst.NumVars)
	for level := 2; level <= inst.NumLevels(); level++ {
		inner = append(inner, inst.VarsAtLevel(level)...)
	}
	assign := make([]bool, inst.NumVars+1)

	var evalInner func(i int) bool
	evalInner = func(i int) bool {
		if i == len(inner) {
			return matrixValue(inst, assign)
		}
		v := inner[i]
		assign[v] = false
		r0 := evalInner(i + 1)
		assign[v] = true
		r1 := evalInner(i + 1)
		if inst.Quantifier(inst.VarLevel(v)) == qbf.Exists {
			return r0 || r1
		}
		return r0 && r1
	}

	var models [][]int
	var walk func(i int)
	walk = func(i int) {
		if i == len(outer) {
			if evalInner(0) {
				lits := make([]int, len(outer))
				for j, v := range outer {
					if assign[v] {
						lits[j] = v
					} else {
						lits[j] = -v
					}
				}
				models = append(models, lits)
			}
			return
		}
		v := outer[i]
		assign[v] = false
		walk(i + 1)
		assign[v] = true
		walk(i + 1)
	}
	walk(0)
	sortModels(models)
	return models
}

func sortModels(models [][]int) {
	for i := 1; i < len(models); i++ {
		for j := i; j > 0; j-- {
			if lessLits(models[j], models[j-1]) {
				models[j], models[j-1] = models[j-1], models[j]
			} else {
				break
			}
		}
	}
}

func lessLits(a, b []int) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}
