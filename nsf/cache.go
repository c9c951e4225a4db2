package nsf

import (
	"github.com/katalvlaran/qbfdp/bdd"
)

// removeCache is the root-level state distinguishing the caching
// computation variant: clauses whose conjunction is deferred until
// their variables are about to be abstracted, per-level bookkeeping of
// variables already abstracted in this subtree (consumed by the simple
// and standard dependency schemes), and removals a scheme refused that
// are retried on later removal operations.
type removeCache struct {
	// clauses maps a 1-based level to the clause BDDs parked there; a
	// clause waits at the maximum level of its variables.
	clauses map[int][]bdd.Node

	// abstracted records, per level (index level-1), the variable ids
	// already abstracted inside this subtree.
	abstracted []map[int]struct{}

	// pending records, per level, refused removals awaiting a retry.
	pending []map[int]struct{}
}

func newRemoveCache(levels int) *removeCache {
	rc := &removeCache{
		clauses:    make(map[int][]bdd.Node),
		abstracted: make([]map[int]struct{}, levels),
		pending:    make([]map[int]struct{}, levels),
	}
	for i := 0; i < levels; i++ {
		rc.abstracted[i] = make(map[int]struct{})
		rc.pending[i] = make(map[int]struct{})
	}
	return rc
}

func (rc *removeCache) clone() *removeCache {
	nc := newRemoveCache(len(rc.abstracted))
	for level, list := range rc.clauses {
		nc.clauses[level] = append([]bdd.Node(nil), list...)
	}
	for i := range rc.abstracted {
		for id := range rc.abstracted[i] {
			nc.abstracted[i][id] = struct{}{}
		}
		for id := range rc.pending[i] {
			nc.pending[i][id] = struct{}{}
		}
	}
	return nc
}

// merge folds other's deferred clauses and bookkeeping into rc when two
// computations are conjoined.
func (rc *removeCache) merge(m *Manager, other *removeCache) {
	for level, list := range other.clauses {
		for _, cl := range list {
			rc.insert(m, level, cl)
		}
	}
	for i := range other.abstracted {
		for id := range other.abstracted[i] {
			rc.abstracted[i][id] = struct{}{}
		}
		for id := range other.pending[i] {
			rc.pending[i][id] = struct{}{}
		}
	}
}

func (rc *removeCache) insert(m *Manager, level int, clause bdd.Node) {
	for _, existing := range rc.clauses[level] {
		if m.bddm.Equal(existing, clause) {
			return
		}
	}
	rc.clauses[level] = append(rc.clauses[level], clause)
}

// insertAll parks incoming clauses at the maximum level of their
// variables. Constant clauses (notably the empty clause) have nothing
// to wait for and are returned for immediate conjunction.
func (rc *removeCache) insertAll(m *Manager, clauses []bdd.Node) []bdd.Node {
	var immediate []bdd.Node
	for _, cl := range clauses {
		vars := m.bddm.Support(cl)
		if len(vars) == 0 {
			immediate = append(immediate, cl)
			continue
		}
		rc.insert(m, m.maxLevelOf(vars), cl)
	}
	return immediate
}

// mentions reports whether any cached clause still refers to v. While
// it does, v must not be abstracted: the clause has to reach the
// leaves first, or its v-occurrences would survive the quantifier.
func (rc *removeCache) mentions(m *Manager, v Variable) bool {
	for _, list := range rc.clauses {
		for _, cl := range list {
			for _, idx := range m.bddm.Support(cl) {
				if idx+1 == v.ID {
					return true
				}
			}
		}
	}
	return false
}

// isPending reports whether v's abstraction was deferred.
func (rc *removeCache) isPending(v Variable) bool {
	_, ok := rc.pending[v.Level-1][v.ID]
	return ok
}

// collectReady drains every cached clause that became ready under the
// current removal sets and scope cubes.
func (rc *removeCache) collectReady(c *Computation, now []map[int]struct{}, cubes []bdd.Node) []bdd.Node {
	var immediate []bdd.Node
	scope := c.m.scopeSets(cubes)
	for level, list := range rc.clauses {
		var waiting []bdd.Node
		for _, cl := range list {
			vars := c.m.bddm.Support(cl)
			if rc.ready(c.m, vars, now, scope) {
				immediate = append(immediate, cl)
				continue
			}
			waiting = append(waiting, cl)
		}
		if len(waiting) == 0 {
			delete(rc.clauses, level)
			continue
		}
		rc.clauses[level] = waiting
	}
	return immediate
}

// ready reports whether a clause may be conjoined now: every one of
// its (0-based) support variables is being removed, was already
// abstracted in this subtree, or is out of scope at the current bag.
func (rc *removeCache) ready(m *Manager, vars []int, now []map[int]struct{}, scope []map[int]struct{}) bool {
	for _, idx := range vars {
		id := idx + 1
		level := m.levels[id]
		if now != nil && level-1 < len(now) {
			if _, ok := now[level-1][id]; ok {
				continue
			}
		}
		if _, ok := rc.abstracted[level-1][id]; ok {
			continue
		}
		if scope != nil && level-1 < len(scope) {
			if _, ok := scope[level-1][id]; !ok {
				// Not in scope at this bag: it cannot be abstracted here.
				continue
			}
		}
		return false
	}
	return true
}

func (rc *removeCache) markAbstracted(v Variable) {
	rc.abstracted[v.Level-1][v.ID] = struct{}{}
	delete(rc.pending[v.Level-1], v.ID)
}

func (rc *removeCache) pend(v Variable) {
	rc.pending[v.Level-1][v.ID] = struct{}{}
}

// drainPending moves deferred removals into the current removal sets.
func (rc *removeCache) drainPending(now []map[int]struct{}) {
	for i := range rc.pending {
		for id := range rc.pending[i] {
			now[i][id] = struct{}{}
		}
		rc.pending[i] = make(map[int]struct{})
	}
}

// abstractedCount returns how many variables of the 1-based level were
// abstracted in this subtree.
func (rc *removeCache) abstractedCount(level int) int {
	return len(rc.abstracted[level-1])
}

// isAbstracted reports whether the variable was abstracted here.
func (rc *removeCache) isAbstracted(v Variable) bool {
	_, ok := rc.abstracted[v.Level-1][v.ID]
	return ok
}
