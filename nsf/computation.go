package nsf

import (
	"fmt"
	"sort"

	"github.com/katalvlaran/qbfdp/bdd"
	"github.com/katalvlaran/qbfdp/qbf"
)

// Computation is a Nested Structure of Formulas: a uniform-depth tree
// whose inner nodes mirror the quantifier prefix and whose leaves hold
// BDDs. A Computation is exclusively owned; Conjunct treats its right
// operand as consumed, and Clone is the only way to share state.
type Computation struct {
	m              *Manager
	root           *node
	leaves         int
	keepFirstLevel bool
	maxBDDSize     int

	// cache is non-nil for computations carrying the removal cache
	// (the CacheComputation variant).
	cache *removeCache
}

// node is one tree node. children == nil marks a leaf carrying value.
type node struct {
	children []*node
	value    bdd.Node
}

func (n *node) isLeaf() bool { return n.children == nil }

// newChain builds the degenerate depth-levels tree with a single leaf
// holding value. With zero levels the root itself is the leaf.
func newChain(levels int, value bdd.Node) *node {
	leaf := &node{value: value}
	cur := leaf
	for d := 0; d < levels; d++ {
		cur = &node{children: []*node{cur}}
	}
	return cur
}

func cloneNode(n *node) *node {
	if n.isLeaf() {
		return &node{value: n.value}
	}
	children := make([]*node, len(n.children))
	for i, c := range n.children {
		children[i] = cloneNode(c)
	}
	return &node{children: children}
}

func countLeaves(n *node) int {
	if n.isLeaf() {
		return 1
	}
	total := 0
	for _, c := range n.children {
		total += countLeaves(c)
	}
	return total
}

func (c *Computation) forEachLeaf(f func(l *node)) {
	var walk func(n *node)
	walk = func(n *node) {
		if n.isLeaf() {
			f(n)
			return
		}
		for _, ch := range n.children {
			walk(ch)
		}
	}
	walk(c.root)
}

// Depth returns the number of inner levels of the tree, equal to the
// number of quantifier blocks of the instance.
func (c *Computation) Depth() int { return len(c.m.prefix) }

// LeavesCount returns the number of leaves.
func (c *Computation) LeavesCount() int { return c.leaves }

// KeepsFirstLevel reports whether the outermost existential block is
// retained for enumeration.
func (c *Computation) KeepsFirstLevel() bool { return c.keepFirstLevel }

// MaxLeafSize returns the node count of the largest leaf BDD.
func (c *Computation) MaxLeafSize() int {
	max := 0
	c.forEachLeaf(func(l *node) {
		if s := c.m.bddm.Size(l.value); s > max {
			max = s
		}
	})
	return max
}

// Clone returns a deep copy; mutating the copy never affects c.
func (c *Computation) Clone() *Computation {
	nc := &Computation{
		m:              c.m,
		root:           cloneNode(c.root),
		leaves:         c.leaves,
		keepFirstLevel: c.keepFirstLevel,
		maxBDDSize:     c.maxBDDSize,
	}
	if c.cache != nil {
		nc.cache = c.cache.clone()
	}
	return nc
}

//–––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––
// Apply
//–––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––

// Apply rewrites every leaf BDD through f. The caller guarantees f
// preserves the alternation invariants (typically conjunction with a
// clause set over in-scope variables). cubes carry, per level, the
// conjunction of variables in scope at the current bag; the removal
// cache revalidates against them.
func (c *Computation) Apply(cubes []bdd.Node, f func(bdd.Node) bdd.Node) {
	c.forEachLeaf(func(l *node) { l.value = f(l.value) })
	if c.cache != nil {
		c.conjoinAtLeaves(c.cache.collectReady(c, nil, cubes))
	}
}

// ApplyClauses conjoins the given clause BDDs into the computation.
// Without a removal cache each clause lands in every leaf immediately;
// with a cache, clauses wait until their variables are about to leave
// scope.
func (c *Computation) ApplyClauses(cubes []bdd.Node, clauses []bdd.Node) {
	if c.cache == nil {
		c.conjoinAtLeaves(clauses)
		return
	}
	immediate := c.cache.insertAll(c.m, clauses)
	immediate = append(immediate, c.cache.collectReady(c, nil, cubes)...)
	c.conjoinAtLeaves(immediate)
}

func (c *Computation) conjoinAtLeaves(clauses []bdd.Node) {
	if len(clauses) == 0 {
		return
	}
	bddm := c.m.bddm
	c.forEachLeaf(func(l *node) {
		for _, cl := range clauses {
			l.value = bddm.And(l.value, cl)
		}
	})
}

//–––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––
// Conjunct
//–––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––

// Conjunct merges other into c. Existential nodes take the union of
// both children multisets; universal nodes expand the cartesian product
// of child pairs, because disjunction distributes over the conjunction
// being formed. other is consumed and must not be used afterwards.
func (c *Computation) Conjunct(other *Computation) error {
	if c.Depth() != other.Depth() || c.keepFirstLevel != other.keepFirstLevel {
		return fmt.Errorf("%w: depth %d/%d, keepFirstLevel %t/%t",
			ErrIncompatible, c.Depth(), other.Depth(), c.keepFirstLevel, other.keepFirstLevel)
	}
	c.conjunctNodes(c.root, other.root, 0)
	c.leaves = countLeaves(c.root)
	if c.cache != nil && other.cache != nil {
		c.cache.merge(c.m, other.cache)
	}
	return nil
}

// conjunctNodes merges read-only src into dst. dst is exclusively owned
// by c; src subtrees are cloned before adoption because the cartesian
// expansion references them several times.
func (c *Computation) conjunctNodes(dst, src *node, depth int) {
	if dst.isLeaf() {
		dst.value = c.m.bddm.And(dst.value, src.value)
		return
	}
	if c.m.prefix[depth] == qbf.Exists {
		for _, sc := range src.children {
			dst.children = append(dst.children, cloneNode(sc))
		}
		return
	}
	// Universal node: zip children pairwise across both operands.
	merged := make([]*node, 0, len(dst.children)*len(src.children))
	for _, dc := range dst.children {
		for _, sc := range src.children {
			pair := cloneNode(dc)
			c.conjunctNodes(pair, sc, depth+1)
			merged = append(merged, pair)
		}
	}
	dst.children = merged
}

//–––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––
// Removal
//–––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––

// Remove abstracts a single variable at its level from every leaf.
func (c *Computation) Remove(v Variable) {
	removed := make([][]Variable, c.Depth())
	if v.Level >= 1 && v.Level <= len(removed) {
		removed[v.Level-1] = []Variable{v}
	}
	c.removeApply(removed, nil, nil)
}

// RemoveAll is the bulk form of Remove: removed holds, per 1-based
// level (index level-1), the variables to abstract.
func (c *Computation) RemoveAll(removed [][]Variable) {
	c.removeApply(removed, nil, nil)
}

// RemoveApply is the fused forget-and-introduce operation issued at a
// forget bag: the clause BDDs newly leaving scope are conjoined before
// the forgotten variables are abstracted. Separating the two steps
// would either lose a clause over a forgotten variable or abstract it
// too early.
func (c *Computation) RemoveApply(removed [][]Variable, cubes []bdd.Node, clauses []bdd.Node) {
	c.removeApply(removed, cubes, clauses)
}

func (c *Computation) removeApply(removed [][]Variable, cubes []bdd.Node, clauses []bdd.Node) {
	now := c.removalSets(removed)

	if c.cache == nil {
		c.conjoinAtLeaves(clauses)
		c.abstractSweep(now, func(Variable) bool { return true })
		return
	}

	// Everything new parks in the cache first; only the fixpoint below
	// decides what reaches the leaves when.
	c.conjoinAtLeaves(c.cache.insertAll(c.m, clauses))

	// Alternate clause flushing and abstraction until neither makes
	// progress. A clause is flushed once all its variables are being
	// removed, already abstracted, or out of scope; a variable is
	// abstracted only when no cached clause mentions it anymore and the
	// dependency scheme agrees. Flushing before abstracting is what
	// keeps a clause's effect inside the leaves before its variables'
	// quantifiers are applied.
	for {
		progress := false
		if flushed := c.cache.collectReady(c, now, cubes); len(flushed) > 0 {
			c.conjoinAtLeaves(flushed)
			progress = true
		}
		if c.abstractSweep(now, func(v Variable) bool {
			return !c.cache.mentions(c.m, v) && c.m.scheme.MayAbstract(c, v)
		}) {
			progress = true
		}
		if !progress {
			break
		}
	}

	// Whatever stayed blocked is retried at later removal operations.
	for level := range now {
		for id := range now[level] {
			c.cache.pend(Variable{ID: id, Level: level + 1})
		}
	}
}

// abstractSweep abstracts the admissible variables of the removal
// sets, innermost level first so the leaf-local quantifier order
// follows the prefix. It reports whether any abstraction happened.
func (c *Computation) abstractSweep(now []map[int]struct{}, admit func(Variable) bool) bool {
	progress := false
	for level := c.Depth(); level >= 1; level-- {
		for _, id := range sortedIDs(now[level-1]) {
			v := Variable{ID: id, Level: level}
			if c.keepFirstLevel && level == 1 {
				// Kept for enumeration; drop the request without
				// abstracting.
				delete(now[level-1], id)
				continue
			}
			if !admit(v) {
				continue
			}
			c.abstractAtLeaves(v)
			delete(now[level-1], id)
			progress = true
		}
	}
	return progress
}

// removalSets merges the requested removals with previously deferred
// ones into per-level id sets.
func (c *Computation) removalSets(removed [][]Variable) []map[int]struct{} {
	now := make([]map[int]struct{}, c.Depth())
	for i := range now {
		now[i] = make(map[int]struct{})
	}
	for i, vars := range removed {
		if i >= len(now) {
			continue
		}
		for _, v := range vars {
			now[i][v.ID] = struct{}{}
		}
	}
	if c.cache != nil {
		c.cache.drainPending(now)
	}
	return now
}

func (c *Computation) abstractAtLeaves(v Variable) {
	bddm := c.m.bddm
	cube := bddm.Cube([]int{v.ID - 1})
	universal := c.m.prefix[v.Level-1] == qbf.Forall
	c.forEachLeaf(func(l *node) {
		l.value = bddm.Abstract(l.value, cube, universal)
	})
	if c.cache != nil {
		c.cache.markAbstracted(v)
	}
	c.m.stats.AbstractCount++
}

func sortedIDs(set map[int]struct{}) []int {
	ids := make([]int, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

//–––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––
// Evaluation
//–––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––

// Evaluate collapses the NSF into a single BDD: children are combined
// by conjunction under an existential node and disjunction under a
// universal one, then that level's cube is abstracted with the level's
// quantifier. With keepFirstLevel the outermost existential abstraction
// is skipped so assignments to the first block survive.
func (c *Computation) Evaluate(cubes []bdd.Node, keepFirstLevel bool) bdd.Node {
	return c.evaluateNode(c.root, 0, cubes, keepFirstLevel)
}

func (c *Computation) evaluateNode(n *node, depth int, cubes []bdd.Node, keepFirstLevel bool) bdd.Node {
	if n.isLeaf() {
		return n.value
	}
	bddm := c.m.bddm
	q := c.m.prefix[depth]
	acc := c.evaluateNode(n.children[0], depth+1, cubes, keepFirstLevel)
	for _, ch := range n.children[1:] {
		v := c.evaluateNode(ch, depth+1, cubes, keepFirstLevel)
		if q == qbf.Exists {
			acc = bddm.And(acc, v)
		} else {
			acc = bddm.Or(acc, v)
		}
	}
	if depth == 0 && keepFirstLevel && q == qbf.Exists {
		return acc
	}
	if depth < len(cubes) && !bddm.IsOne(cubes[depth]) {
		acc = bddm.Abstract(acc, cubes[depth], q == qbf.Forall)
		c.m.stats.InternalAbstractCount++
	}
	return acc
}

// Decide evaluates the computation without abstracting anything beyond
// what removal already abstracted. It reports Sat or Unsat only when
// the tree collapses to a constant.
func (c *Computation) Decide() Result {
	ev := c.Evaluate(c.m.onesCubes(), false)
	switch {
	case c.m.bddm.IsZero(ev):
		return Unsat
	case c.m.bddm.IsOne(ev):
		return Sat
	default:
		return Undecided
	}
}

// Solutions evaluates with the first level kept, yielding the BDD of
// satisfying assignments to the outermost existential block.
func (c *Computation) Solutions() bdd.Node {
	return c.Evaluate(c.m.onesCubes(), true)
}

// IsUnsat is a cheap conservative check: a false leaf poisons its
// conjunctive (existential) context, while a universal context is
// false only when every disjunct is. Non-constant leaves count as
// satisfiable, so a false result proves nothing.
func (c *Computation) IsUnsat() bool {
	return c.isUnsatNode(c.root, 0)
}

func (c *Computation) isUnsatNode(n *node, depth int) bool {
	if n.isLeaf() {
		return c.m.bddm.IsZero(n.value)
	}
	if c.m.prefix[depth] == qbf.Exists {
		for _, ch := range n.children {
			if c.isUnsatNode(ch, depth+1) {
				return true
			}
		}
		return false
	}
	for _, ch := range n.children {
		if !c.isUnsatNode(ch, depth+1) {
			return false
		}
	}
	return true
}

//–––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––
// Optimization
//–––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––

// Optimize performs one optimization round: subset-subsumption
// compression at every innermost node, then at most one leaf split.
// splitLeft alternates which cofactor becomes the left sibling,
// amortizing asymmetric growth. It returns true iff a split happened.
//
// Only productive splits are taken: both shifted cofactors must be
// strictly smaller than the original leaf, so every split shrinks the
// multiset of leaf sizes and the split loop terminates.
func (c *Computation) Optimize(splitLeft bool) bool {
	c.compress(c.root, 0)
	c.leaves = countLeaves(c.root)
	if c.maxBDDSize <= 0 {
		return false
	}
	for _, cand := range c.oversizedLeaves() {
		if c.trySplit(cand.parent, cand.index, splitLeft) {
			c.leaves++
			c.m.stats.ShiftCount++
			return true
		}
	}
	return false
}

// compress drops subsumed leaf children: under an existential node the
// children are conjuncts, so a leaf implied by a sibling is redundant;
// under a universal node the children are disjuncts, so a leaf that
// implies a sibling is. At least one child always survives.
func (c *Computation) compress(n *node, depth int) {
	if n.isLeaf() {
		return
	}
	if !n.children[0].isLeaf() {
		for _, ch := range n.children {
			c.compress(ch, depth+1)
		}
		return
	}
	bddm := c.m.bddm
	existential := c.m.prefix[depth] == qbf.Exists
	removed := make([]bool, len(n.children))
	for i := range n.children {
		if removed[i] {
			continue
		}
		for j := range n.children {
			if i == j || removed[j] {
				continue
			}
			a, b := n.children[i].value, n.children[j].value
			switch {
			case bddm.Equal(a, b):
				// Duplicate; the earlier sibling survives.
				removed[j] = true
			case existential && bddm.Implies(a, b):
				// b is a weaker conjunct, subsumed by a.
				removed[j] = true
			case !existential && bddm.Implies(b, a):
				// b is a stronger disjunct, subsumed by a.
				removed[j] = true
			default:
				continue
			}
			c.m.stats.SubsumedCount++
		}
	}
	kept := make([]*node, 0, len(n.children))
	for i, ch := range n.children {
		if !removed[i] {
			kept = append(kept, ch)
		}
	}
	n.children = kept
}

// leafRef addresses one leaf through its parent.
type leafRef struct {
	parent *node
	index  int
	size   int
}

// oversizedLeaves lists the leaves whose BDD exceeds the size bound,
// smallest first so splitting starts where it is cheapest; ties keep
// tree order.
func (c *Computation) oversizedLeaves() []leafRef {
	var refs []leafRef
	var walk func(n *node)
	walk = func(n *node) {
		if n.isLeaf() {
			return
		}
		for i, ch := range n.children {
			if !ch.isLeaf() {
				walk(ch)
				continue
			}
			if s := c.m.bddm.Size(ch.value); s > c.maxBDDSize {
				refs = append(refs, leafRef{parent: n, index: i, size: s})
			}
		}
	}
	walk(c.root)
	sort.SliceStable(refs, func(a, b int) bool { return refs[a].size < refs[b].size })
	return refs
}

// splitVar picks the split variable: the topmost variable of the BDD.
// A leaf that still carries a variable whose abstraction is deferred
// is not splittable at all: cofactoring would distribute the deferred
// variable's occurrences unevenly over the siblings and its later
// leaf-wise abstraction would stop being exact.
func (c *Computation) splitVar(value bdd.Node) (int, bool) {
	support := c.m.bddm.Support(value)
	if len(support) == 0 {
		return 0, false
	}
	if c.cache != nil {
		for _, idx := range support {
			if c.cache.isPending(Variable{ID: idx + 1, Level: c.m.levels[idx+1]}) {
				return 0, false
			}
		}
	}
	return support[0], true
}

// trySplit replaces parent.children[index] by the two Shannon
// cofactors of its BDD, shifted by the split literal so that the
// sibling combination of the enclosing block reproduces the original
// function: b = (x ∨ b|x=0) ∧ (¬x ∨ b|x=1) under ∃,
// b = (¬x ∧ b|x=0) ∨ (x ∧ b|x=1) under ∀.
// It refuses unproductive splits and reports whether it split.
func (c *Computation) trySplit(parent *node, index int, splitLeft bool) bool {
	bddm := c.m.bddm
	leaf := parent.children[index]
	x, ok := c.splitVar(leaf.value)
	if !ok {
		return false
	}
	b0 := bddm.Restrict(leaf.value, x, false)
	b1 := bddm.Restrict(leaf.value, x, true)

	var low, high *node
	if c.m.prefix[c.Depth()-1] == qbf.Exists {
		low = &node{value: bddm.Or(bddm.Var(x), b0)}
		high = &node{value: bddm.Or(bddm.NVar(x), b1)}
	} else {
		low = &node{value: bddm.And(bddm.NVar(x), b0)}
		high = &node{value: bddm.And(bddm.Var(x), b1)}
	}
	size := bddm.Size(leaf.value)
	if bddm.Size(low.value) >= size || bddm.Size(high.value) >= size {
		return false
	}

	first, second := low, high
	if !splitLeft {
		first, second = high, low
	}
	children := make([]*node, 0, len(parent.children)+1)
	children = append(children, parent.children[:index]...)
	children = append(children, first, second)
	children = append(children, parent.children[index+1:]...)
	parent.children = children
	return true
}

// sortByIncreasingSize orders every node's children by ascending
// maximum leaf BDD size, ties keeping insertion order. Sorting both
// join operands raises the chance that subsumption compression fires.
func (c *Computation) sortByIncreasingSize() {
	var walk func(n *node) int
	walk = func(n *node) int {
		if n.isLeaf() {
			return c.m.bddm.Size(n.value)
		}
		keys := make([]int, len(n.children))
		for i, ch := range n.children {
			keys[i] = walk(ch)
		}
		order := make([]int, len(n.children))
		for i := range order {
			order[i] = i
		}
		sort.SliceStable(order, func(a, b int) bool { return keys[order[a]] < keys[order[b]] })
		sorted := make([]*node, len(n.children))
		max := 0
		for i, idx := range order {
			sorted[i] = n.children[idx]
			if keys[idx] > max {
				max = keys[idx]
			}
		}
		n.children = sorted
		return max
	}
	walk(c.root)
}
