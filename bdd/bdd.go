package bdd

import (
	"errors"
	"fmt"
	"sort"

	"github.com/dalzilio/rudd"
)

// ErrEngine is returned (wrapped) when the underlying BDD engine reports an
// internal failure, typically node-table exhaustion.
var ErrEngine = errors.New("bdd: engine failure")

// Node is a handle to a Boolean function owned by a Manager.
type Node = rudd.Node

// Manager owns a rudd instance over a fixed number of variables.
// It is not safe for concurrent use; the solver core is single-threaded.
type Manager struct {
	rb      *rudd.BDD
	numVars int
}

// NewManager creates a BDD manager over numVars variables (indices
// 0..numVars-1). numVars must be positive.
func NewManager(numVars int) (*Manager, error) {
	if numVars <= 0 {
		return nil, fmt.Errorf("bdd: variable count must be positive, got %d", numVars)
	}
	rb, err := rudd.New(numVars)
	if err != nil {
		return nil, fmt.Errorf("bdd: %w", err)
	}
	return &Manager{rb: rb, numVars: numVars}, nil
}

// NumVars returns the number of variables the manager was created with.
func (m *Manager) NumVars() int { return m.numVars }

// Err reports the engine's sticky error state, if any.
func (m *Manager) Err() error {
	if msg := m.rb.Error(); msg != "" {
		return fmt.Errorf("%w: %s", ErrEngine, msg)
	}
	return nil
}

// One returns the constant true.
func (m *Manager) One() Node { return m.rb.True() }

// Zero returns the constant false.
func (m *Manager) Zero() Node { return m.rb.False() }

// Var returns the positive literal of variable i.
func (m *Manager) Var(i int) Node { return m.rb.Ithvar(i) }

// NVar returns the negative literal of variable i.
func (m *Manager) NVar(i int) Node { return m.rb.NIthvar(i) }

// And returns the conjunction of a and b.
func (m *Manager) And(a, b Node) Node { return m.rb.Apply(a, b, rudd.OPand) }

// Or returns the disjunction of a and b.
func (m *Manager) Or(a, b Node) Node { return m.rb.Apply(a, b, rudd.OPor) }

// Not returns the negation of a.
func (m *Manager) Not(a Node) Node { return m.rb.Not(a) }

// Cube returns the conjunction of the positive literals of vars.
// An empty set yields the constant true.
func (m *Manager) Cube(vars []int) Node {
	if len(vars) == 0 {
		return m.One()
	}
	return m.rb.Makeset(vars)
}

// Exists abstracts the variables of cube existentially from n.
func (m *Manager) Exists(n, cube Node) Node { return m.rb.Exist(n, cube) }

// Forall abstracts the variables of cube universally from n,
// via the dual of existential abstraction.
func (m *Manager) Forall(n, cube Node) Node {
	return m.rb.Not(m.rb.Exist(m.rb.Not(n), cube))
}

// Abstract applies existential (universal=false) or universal
// (universal=true) abstraction of cube over n.
func (m *Manager) Abstract(n, cube Node, universal bool) Node {
	if universal {
		return m.Forall(n, cube)
	}
	return m.Exists(n, cube)
}

// Restrict returns the cofactor of n with variable v fixed to val.
func (m *Manager) Restrict(n Node, v int, val bool) Node {
	lit := m.rb.Ithvar(v)
	if !val {
		lit = m.rb.NIthvar(v)
	}
	return m.rb.AppEx(n, lit, rudd.OPand, m.rb.Makeset([]int{v}))
}

// Equal reports whether a and b denote the same function. Handles are
// canonical node ids, so identity of the referenced id is equivalence.
func (m *Manager) Equal(a, b Node) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return *a == *b
}

// IsOne reports whether n is the constant true. The engine pins the
// true terminal at id 1.
func (m *Manager) IsOne(n Node) bool { return n != nil && *n == 1 }

// IsZero reports whether n is the constant false. The false terminal
// is pinned at id 0.
func (m *Manager) IsZero(n Node) bool { return n != nil && *n == 0 }

// Implies reports whether a semantically implies b.
func (m *Manager) Implies(a, b Node) bool {
	if m.IsZero(a) || m.IsOne(b) {
		return true
	}
	return m.IsZero(m.rb.Apply(a, b, rudd.OPdiff))
}

// Size returns the number of nodes reachable from n, terminals included.
func (m *Manager) Size(n Node) int {
	count := 0
	_ = m.rb.Allnodes(func(id, level, low, high int) error {
		count++
		return nil
	}, n)
	return count
}

// TopVar returns the variable tested at the root of n. The second
// result is false when n is a constant.
func (m *Manager) TopVar(n Node) (int, bool) {
	top, found := 0, false
	_ = m.rb.Allnodes(func(id, level, low, high int) error {
		if id > 1 && (!found || level < top) {
			top, found = level, true
		}
		return nil
	}, n)
	return top, found
}

// Support returns the sorted set of variables n depends on.
func (m *Manager) Support(n Node) []int {
	seen := make(map[int]struct{})
	_ = m.rb.Allnodes(func(id, level, low, high int) error {
		if id > 1 {
			seen[level] = struct{}{}
		}
		return nil
	}, n)
	vars := make([]int, 0, len(seen))
	for v := range seen {
		vars = append(vars, v)
	}
	sort.Ints(vars)
	return vars
}

// EachSat invokes f for every satisfying assignment class of n.
// The profile slice holds, per variable index, 0 (false), 1 (true) or
// -1 (don't care); it is reused between calls and must not be retained.
func (m *Manager) EachSat(n Node, f func(profile []int) error) error {
	return m.rb.Allsat(f, n)
}
