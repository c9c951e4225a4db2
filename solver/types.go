package solver

import (
	"errors"
	"sort"

	"github.com/katalvlaran/qbfdp/bdd"
	"github.com/katalvlaran/qbfdp/decompose"
	"github.com/katalvlaran/qbfdp/nsf"
)

// ErrNoInstance is returned when the solver is constructed without an
// instance.
var ErrNoInstance = errors.New("solver: nil instance")

// Options bundles the configuration of the whole pipeline.
type Options struct {
	// NSF configures the computation manager (§ option table).
	NSF nsf.Options

	// Decompose configures tree decomposition construction.
	Decompose decompose.Options

	// Enumerate requests satisfying assignments to the outermost
	// existential block alongside the verdict.
	Enumerate bool

	// CheckUnsat decides the partial NSF after every bag, aborting as
	// soon as unsatisfiability is certain. The manager's interval
	// check on joins stays active independently.
	CheckUnsat bool

	// Verbose logs per-bag progress.
	Verbose bool
}

// DefaultOptions returns the default pipeline configuration.
func DefaultOptions() Options {
	return Options{
		NSF:       nsf.DefaultOptions(),
		Decompose: decompose.DefaultOptions(),
	}
}

// Output carries the verdict and, when enumeration was requested and
// possible, the satisfying assignments to the outermost block.
type Output struct {
	// Result is the verdict: Sat, Unsat or Undecided.
	Result nsf.Result

	// Stats holds the manager's operation counters for the run; zero
	// when a fast path answered before any NSF was built.
	Stats nsf.Stats

	bddm      *bdd.Manager
	solutions bdd.Node
	enumVars  []int
}

// HasModels reports whether assignments can be enumerated from this
// output.
func (o *Output) HasModels() bool {
	return o.solutions != nil && o.bddm != nil && !o.bddm.IsZero(o.solutions)
}

// EachModel invokes f once per satisfying assignment to the outermost
// existential block, don't-care variables expanded to both polarities.
// Each assignment is a literal slice over the block's variables in
// increasing variable order. Iteration stops on the first error from f.
func (o *Output) EachModel(f func(lits []int) error) error {
	if !o.HasModels() {
		return nil
	}
	seen := make(map[string]struct{})
	return o.bddm.EachSat(o.solutions, func(profile []int) error {
		lits := make([]int, 0, len(o.enumVars))
		return o.expand(profile, 0, lits, seen, f)
	})
}

// expand walks enumVars, fixing don't cares both ways.
func (o *Output) expand(profile []int, i int, lits []int, seen map[string]struct{}, f func([]int) error) error {
	if i == len(o.enumVars) {
		out := make([]int, len(lits))
		copy(out, lits)
		key := litsKey(out)
		if _, dup := seen[key]; dup {
			return nil
		}
		seen[key] = struct{}{}
		return f(out)
	}
	v := o.enumVars[i]
	switch profile[v-1] {
	case 0:
		return o.expand(profile, i+1, append(lits, -v), seen, f)
	case 1:
		return o.expand(profile, i+1, append(lits, v), seen, f)
	default:
		if err := o.expand(profile, i+1, append(lits, -v), seen, f); err != nil {
			return err
		}
		return o.expand(profile, i+1, append(lits, v), seen, f)
	}
}

// Models collects every enumerated assignment; intended for tests and
// small outermost blocks.
func (o *Output) Models() [][]int {
	var models [][]int
	_ = o.EachModel(func(lits []int) error {
		models = append(models, lits)
		return nil
	})
	sort.Slice(models, func(a, b int) bool {
		for i := range models[a] {
			if models[a][i] != models[b][i] {
				return models[a][i] < models[b][i]
			}
		}
		return false
	})
	return models
}

func litsKey(lits []int) string {
	key := make([]byte, len(lits))
	for i, lit := range lits {
		if lit > 0 {
			key[i] = '1'
		} else {
			key[i] = '0'
		}
	}
	return string(key)
}
