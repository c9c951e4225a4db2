package nsf

import (
	"log"
	"math"

	"github.com/katalvlaran/qbfdp/bdd"
	"github.com/katalvlaran/qbfdp/qbf"
)

// Manager owns every live Computation and all mutation policy: the
// global NSF size estimation, the optimize and unsat-check intervals,
// sorting before joins, and the dependency scheme. It is single-
// threaded; no operator suspends.
type Manager struct {
	bddm   *bdd.Manager
	prefix []qbf.Quantifier

	// levels maps each 1-based variable id to its quantifier level.
	levels        []int
	countAtLevels []int

	opts   Options
	scheme DependencyScheme

	// estimation approximates the product of leaves counts across live
	// computations; it never drops below 1.
	estimation int64

	optCounter   int
	unsatCounter int
	splitLeft    bool

	stats Stats
}

// NewManager builds a manager for the given instance over the given
// BDD manager. DisableCache coerces the size bounds and scheme as
// documented on Options.
func NewManager(bddm *bdd.Manager, inst *qbf.Instance, opts Options) (*Manager, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if opts.DisableCache {
		opts.MaxGlobalNSFSize = -1
		opts.MaxBDDSize = 0
		opts.Scheme = SchemeNaive
	}
	counts := inst.CountAtLevels()
	varsAtLevels := make([][]int, inst.NumLevels())
	for level := 1; level <= inst.NumLevels(); level++ {
		varsAtLevels[level-1] = inst.VarsAtLevel(level)
	}
	return &Manager{
		bddm:          bddm,
		prefix:        append([]qbf.Quantifier(nil), inst.Prefix...),
		levels:        append([]int(nil), inst.Level...),
		countAtLevels: counts,
		opts:          opts,
		scheme:        resolveScheme(opts, inst.NumLevels(), counts, varsAtLevels),
		estimation:    1,
	}, nil
}

// BDD returns the underlying BDD manager.
func (m *Manager) BDD() *bdd.Manager { return m.bddm }

// NumLevels returns the quantifier block count.
func (m *Manager) NumLevels() int { return len(m.prefix) }

// Quantifier returns the quantifier of the 1-based level.
func (m *Manager) Quantifier(level int) qbf.Quantifier { return m.prefix[level-1] }

// Scheme returns the resolved dependency scheme.
func (m *Manager) Scheme() DependencyScheme { return m.scheme }

// Stats returns the operation counters accumulated so far.
func (m *Manager) Stats() Stats { return m.stats }

// Estimation returns the current global NSF size estimation.
func (m *Manager) Estimation() int64 { return m.estimation }

// NewComputation creates a fresh single-leaf NSF holding the constant
// true, then introduces the given clause BDDs. cubes carry the
// variables in scope at the creating bag, one cube per level. The
// first existential block is kept when enumeration was requested.
func (m *Manager) NewComputation(cubes []bdd.Node, clauses []bdd.Node) *Computation {
	keepFirst := m.opts.Enumerate && len(m.prefix) > 0 && m.prefix[0] == qbf.Exists
	c := &Computation{
		m:              m,
		root:           newChain(len(m.prefix), m.bddm.One()),
		leaves:         1,
		keepFirstLevel: keepFirst,
		maxBDDSize:     m.opts.MaxBDDSize,
	}
	if !m.opts.DisableCache {
		c.cache = newRemoveCache(len(m.prefix))
	}
	c.ApplyClauses(cubes, clauses)
	m.multiplyEstimation(int64(c.leaves))
	return c
}

// Copy returns a deep copy of c, counted as a live computation.
func (m *Manager) Copy(c *Computation) *Computation {
	nc := c.Clone()
	m.multiplyEstimation(int64(nc.leaves))
	return nc
}

// Release drops a live computation from the size estimation. The
// driver calls it when a computation is consumed or abandoned.
func (m *Manager) Release(c *Computation) {
	m.divideEstimation(int64(c.leaves))
}

// Apply rewrites every leaf of c through f and runs interval
// optimization.
func (m *Manager) Apply(c *Computation, cubes []bdd.Node, f func(bdd.Node) bdd.Node) {
	c.Apply(cubes, f)
	m.maybeOptimize(c)
}

// ApplyClauses conjoins clause BDDs into c and runs interval
// optimization.
func (m *Manager) ApplyClauses(c *Computation, cubes []bdd.Node, clauses []bdd.Node) {
	c.ApplyClauses(cubes, clauses)
	m.maybeOptimize(c)
}

// Conjunct merges other into c, consuming other. With sorting enabled
// both operands' children are ordered by increasing BDD size first.
// Every UnsatCheckInterval-th join the partial NSF is decided; a
// proved UNSAT aborts with ErrIntermediateUnsat.
func (m *Manager) Conjunct(c, other *Computation) error {
	m.divideEstimation(int64(c.leaves))
	m.divideEstimation(int64(other.leaves))
	if m.opts.SortBeforeJoining {
		c.sortByIncreasingSize()
		other.sortByIncreasingSize()
	}
	if err := c.Conjunct(other); err != nil {
		return err
	}
	m.multiplyEstimation(int64(c.leaves))
	m.maybeOptimize(c)

	if m.opts.UnsatCheckInterval > 0 {
		m.unsatCounter = (m.unsatCounter + 1) % m.opts.UnsatCheckInterval
		if m.unsatCounter == 0 {
			if m.Decide(c) == Unsat {
				if m.opts.Verbose {
					log.Printf("nsf: intermediate unsat check successful")
				}
				return ErrIntermediateUnsat
			}
		}
	}
	return nil
}

// Remove abstracts a single variable from c.
func (m *Manager) Remove(c *Computation, v Variable) {
	m.divideEstimation(int64(c.leaves))
	c.Remove(v)
	m.multiplyEstimation(int64(c.leaves))
	m.maybeOptimize(c)
}

// RemoveAll abstracts the per-level variable sets from c.
func (m *Manager) RemoveAll(c *Computation, removed [][]Variable) {
	m.divideEstimation(int64(c.leaves))
	c.RemoveAll(removed)
	m.multiplyEstimation(int64(c.leaves))
	m.maybeOptimize(c)
}

// RemoveApply conjoins the clauses leaving scope and abstracts the
// forgotten variables, fused per the forget-bag contract.
func (m *Manager) RemoveApply(c *Computation, removed [][]Variable, cubes []bdd.Node, clauses []bdd.Node) {
	m.divideEstimation(int64(c.leaves))
	c.RemoveApply(removed, cubes, clauses)
	m.multiplyEstimation(int64(c.leaves))
	m.maybeOptimize(c)
}

// Optimize splits oversized leaves while the global estimation stays
// under budget, alternating the split side. Exported so the driver can
// force a round outside the interval cadence.
func (m *Manager) Optimize(c *Computation) {
	for m.estimation < int64(m.opts.MaxGlobalNSFSize) || m.opts.MaxGlobalNSFSize <= 0 {
		m.divideEstimation(int64(c.leaves))
		split := c.Optimize(m.splitLeft)
		if split {
			m.splitLeft = !m.splitLeft
		}
		m.multiplyEstimation(int64(c.leaves))
		if !split {
			break
		}
	}
}

// maybeOptimize runs Optimize on every OptimizeInterval-th mutating
// operation.
func (m *Manager) maybeOptimize(c *Computation) {
	if m.opts.OptimizeInterval <= 0 {
		return
	}
	m.optCounter = (m.optCounter + 1) % m.opts.OptimizeInterval
	if m.optCounter == 0 {
		m.Optimize(c)
	}
}

// Decide evaluates c to a constant if possible.
func (m *Manager) Decide(c *Computation) Result { return c.Decide() }

// IsUnsat runs the cheap conservative unsat test on c.
func (m *Manager) IsUnsat(c *Computation) bool { return c.IsUnsat() }

// Solutions evaluates c keeping the outermost existential block.
func (m *Manager) Solutions(c *Computation) bdd.Node { return c.Solutions() }

//–––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––
// Internal helpers
//–––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––

func (m *Manager) divideEstimation(value int64) {
	if value > 0 {
		m.estimation /= value
	}
	if m.estimation < 1 {
		m.estimation = 1
	}
}

func (m *Manager) multiplyEstimation(value int64) {
	if value <= 0 {
		return
	}
	if m.estimation > math.MaxInt64/value {
		m.estimation = math.MaxInt64
		return
	}
	m.estimation *= value
}

// onesCubes returns one constant-true cube per level: evaluation then
// abstracts nothing beyond what removal already abstracted.
func (m *Manager) onesCubes() []bdd.Node {
	cubes := make([]bdd.Node, len(m.prefix))
	for i := range cubes {
		cubes[i] = m.bddm.One()
	}
	return cubes
}

// maxLevelOf returns the deepest quantifier level among the 0-based
// support variables.
func (m *Manager) maxLevelOf(vars []int) int {
	max := 1
	for _, idx := range vars {
		if level := m.levels[idx+1]; level > max {
			max = level
		}
	}
	return max
}

// scopeSets expands per-level cubes into per-level id sets; nil cubes
// yield nil (scope unknown).
func (m *Manager) scopeSets(cubes []bdd.Node) []map[int]struct{} {
	if cubes == nil {
		return nil
	}
	scope := make([]map[int]struct{}, len(cubes))
	for i, cube := range cubes {
		scope[i] = make(map[int]struct{})
		if cube == nil {
			continue
		}
		for _, idx := range m.bddm.Support(cube) {
			scope[i][idx+1] = struct{}{}
		}
	}
	return scope
}
