package solver

import (
	"github.com/katalvlaran/qbfdp/bdd"
	"github.com/katalvlaran/qbfdp/nsf"
	"github.com/katalvlaran/qbfdp/qbf"
)

// SolveMonolithic decides the instance without a tree decomposition:
// the whole matrix is conjoined into a single BDD and the quantifier
// blocks are abstracted from the innermost level outward. Exponential
// in general, but immune to decomposition heuristics, which makes it a
// convenient oracle and a fallback for tiny inputs.
func SolveMonolithic(inst *qbf.Instance, enumerate bool) (*Output, error) {
	if inst == nil {
		return nil, ErrNoInstance
	}
	if err := inst.Validate(); err != nil {
		return nil, err
	}
	if inst.HasEmptyClause() {
		return &Output{Result: nsf.Unsat}, nil
	}
	if inst.NumVars == 0 {
		return &Output{Result: nsf.Sat}, nil
	}

	bddm, err := bdd.NewManager(inst.NumVars)
	if err != nil {
		return nil, err
	}

	matrix := bddm.One()
	for _, clause := range inst.Clauses {
		acc := bddm.Zero()
		for _, lit := range clause {
			if lit > 0 {
				acc = bddm.Or(acc, bddm.Var(lit-1))
			} else {
				acc = bddm.Or(acc, bddm.NVar(-lit-1))
			}
		}
		matrix = bddm.And(matrix, acc)
	}

	keepUntil := 0
	if enumerate && inst.NumLevels() > 0 && inst.Quantifier(1) == qbf.Exists {
		keepUntil = 1
	}
	for level := inst.NumLevels(); level > keepUntil; level-- {
		vars := inst.VarsAtLevel(level)
		if len(vars) == 0 {
			continue
		}
		indices := make([]int, len(vars))
		for i, v := range vars {
			indices[i] = v - 1
		}
		cube := bddm.Cube(indices)
		matrix = bddm.Abstract(matrix, cube, inst.Quantifier(level) == qbf.Forall)
	}
	if err := bddm.Err(); err != nil {
		return nil, err
	}

	// The verdict is read off a plain (cache-less) computation holding
	// the collapsed BDD as its single leaf.
	nsfOpts := nsf.DefaultOptions()
	nsfOpts.DisableCache = true
	nsfOpts.Enumerate = enumerate
	man, err := nsf.NewManager(bddm, inst, nsfOpts)
	if err != nil {
		return nil, err
	}
	c := man.NewComputation(nil, []bdd.Node{matrix})

	out := &Output{bddm: bddm, Stats: man.Stats()}
	if keepUntil == 1 {
		sols := man.Solutions(c)
		out.enumVars = inst.VarsAtLevel(1)
		if bddm.IsZero(sols) {
			out.Result = nsf.Unsat
		} else {
			out.Result = nsf.Sat
			out.solutions = sols
		}
	} else {
		out.Result = man.Decide(c)
	}
	man.Release(c)
	return out, nil
}
