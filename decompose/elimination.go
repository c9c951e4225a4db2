package decompose

import (
	"math/rand"
	"sort"
)

// Decompose builds a tree decomposition of g. It generates
// opts.Iterations candidates with seeded tie-breaking, scores them
// with opts.Fitness, and returns the fittest (fitness values are
// negated raw scores, so larger wins).
func Decompose(g *Graph, opts Options) (*Decomposition, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if g.NumVertices == 0 {
		return nil, ErrEmptyGraph
	}
	fitness := opts.Fitness
	if fitness == nil {
		fitness = EstJoinEffort{}
	}

	var best *Decomposition
	bestScore := 0.0
	for iter := 0; iter < opts.Iterations; iter++ {
		rng := rand.New(rand.NewSource(opts.Seed + int64(iter)))
		cand := buildCandidate(g, opts, rng, iter > 0)
		if opts.Iterations == 1 {
			return cand, nil
		}
		score := fitness.Fitness(g, cand)
		if best == nil || score > bestScore {
			best, bestScore = cand, score
		}
	}
	return best, nil
}

// buildCandidate runs one full construction: ordering, bucket
// elimination, optional fitness-driven root selection, then the
// empty-root and empty-leaves manipulations.
func buildCandidate(g *Graph, opts Options, rng *rand.Rand, shuffleTies bool) *Decomposition {
	order := eliminationOrder(g, opts.Ordering, rng, shuffleTies)
	bags, parents := eliminate(g, order)
	d := rootTree(bags, parents, len(bags)-1)

	if opts.RootFitness != nil {
		d = selectRoot(g, d, opts, rng)
	}
	if opts.EmptyRoot {
		d = addEmptyRoot(d)
	}
	if opts.EmptyLeaves {
		d = addEmptyLeaves(d)
	}
	return d
}

//–––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––
// Elimination orderings
//–––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––

func eliminationOrder(g *Graph, ordering Ordering, rng *rand.Rand, shuffleTies bool) []int {
	switch ordering {
	case Natural:
		order := make([]int, g.NumVertices)
		for v := 1; v <= g.NumVertices; v++ {
			order[v-1] = v
		}
		return order
	case MaxCardinality:
		return mcsOrder(g, rng, shuffleTies)
	case MinDegree:
		return greedyOrder(g, rng, shuffleTies, func(adj []map[int]struct{}, v int) int {
			return len(adj[v])
		})
	default: // MinFill
		return greedyOrder(g, rng, shuffleTies, fillIn)
	}
}

// fillIn counts the missing edges among v's current neighbors.
func fillIn(adj []map[int]struct{}, v int) int {
	neighbors := make([]int, 0, len(adj[v]))
	for u := range adj[v] {
		neighbors = append(neighbors, u)
	}
	missing := 0
	for i := 0; i < len(neighbors); i++ {
		for j := i + 1; j < len(neighbors); j++ {
			if _, ok := adj[neighbors[i]][neighbors[j]]; !ok {
				missing++
			}
		}
	}
	return missing
}

// greedyOrder repeatedly eliminates the vertex minimizing cost,
// breaking ties by id or, after the first iteration, by seeded shuffle.
func greedyOrder(g *Graph, rng *rand.Rand, shuffleTies bool, cost func(adj []map[int]struct{}, v int) int) []int {
	adj := g.cloneAdjacency()
	remaining := make([]int, 0, g.NumVertices)
	for v := 1; v <= g.NumVertices; v++ {
		remaining = append(remaining, v)
	}
	order := make([]int, 0, g.NumVertices)
	for len(remaining) > 0 {
		bestIdx, bestCost := -1, 0
		var ties []int
		for i, v := range remaining {
			c := cost(adj, v)
			switch {
			case bestIdx < 0 || c < bestCost:
				bestIdx, bestCost = i, c
				ties = ties[:0]
				ties = append(ties, i)
			case c == bestCost:
				ties = append(ties, i)
			}
		}
		if shuffleTies && len(ties) > 1 {
			bestIdx = ties[rng.Intn(len(ties))]
		}
		v := remaining[bestIdx]
		order = append(order, v)
		eliminateVertex(adj, v)
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}
	return order
}

// mcsOrder visits vertices by maximum cardinality search and
// eliminates in reverse visit order.
func mcsOrder(g *Graph, rng *rand.Rand, shuffleTies bool) []int {
	weight := make([]int, g.NumVertices+1)
	visited := make([]bool, g.NumVertices+1)
	visit := make([]int, 0, g.NumVertices)
	for len(visit) < g.NumVertices {
		best, bestWeight := -1, -1
		var ties []int
		for v := 1; v <= g.NumVertices; v++ {
			if visited[v] {
				continue
			}
			switch {
			case weight[v] > bestWeight:
				best, bestWeight = v, weight[v]
				ties = ties[:0]
				ties = append(ties, v)
			case weight[v] == bestWeight:
				ties = append(ties, v)
			}
		}
		if shuffleTies && len(ties) > 1 {
			best = ties[rng.Intn(len(ties))]
		}
		visited[best] = true
		visit = append(visit, best)
		for u := range g.Neighbors(best) {
			if !visited[u] {
				weight[u]++
			}
		}
	}
	// Reverse: last visited is eliminated first.
	order := make([]int, len(visit))
	for i, v := range visit {
		order[len(visit)-1-i] = v
	}
	return order
}

// eliminateVertex connects v's neighbors into a clique and removes v.
func eliminateVertex(adj []map[int]struct{}, v int) {
	neighbors := make([]int, 0, len(adj[v]))
	for u := range adj[v] {
		neighbors = append(neighbors, u)
	}
	for i := 0; i < len(neighbors); i++ {
		for j := i + 1; j < len(neighbors); j++ {
			adj[neighbors[i]][neighbors[j]] = struct{}{}
			adj[neighbors[j]][neighbors[i]] = struct{}{}
		}
	}
	for _, u := range neighbors {
		delete(adj[u], v)
	}
	adj[v] = nil
}

//–––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––
// Bucket elimination
//–––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––

// eliminate produces one bag per elimination step. The bag of step i
// is the eliminated vertex plus its not-yet-eliminated neighbors; it
// attaches to the bag of the earliest-eliminated vertex among those
// neighbors. Component roots (bags without such a neighbor) attach to
// the final bag, which keeps coverage and connectedness intact because
// distinct components share no vertices.
func eliminate(g *Graph, order []int) (bags [][]int, parents []int) {
	adj := g.cloneAdjacency()
	pos := make([]int, g.NumVertices+1)
	for i, v := range order {
		pos[v] = i
	}
	n := len(order)
	bags = make([][]int, n)
	parents = make([]int, n)
	for i, v := range order {
		bag := []int{v}
		parentPos := n - 1
		first := -1
		for u := range adj[v] {
			bag = append(bag, u)
			if first < 0 || pos[u] < first {
				first = pos[u]
			}
		}
		if first >= 0 {
			parentPos = first
		}
		sort.Ints(bag)
		bags[i] = bag
		if i == n-1 {
			parents[i] = -1
		} else {
			parents[i] = parentPos
		}
		eliminateVertex(adj, v)
	}
	return bags, parents
}

// rootTree orients the (undirected) bag tree at root.
func rootTree(bags [][]int, parents []int, root int) *Decomposition {
	n := len(bags)
	undirected := make([][]int, n)
	for i, p := range parents {
		if p >= 0 && p != i {
			undirected[i] = append(undirected[i], p)
			undirected[p] = append(undirected[p], i)
		}
	}
	d := &Decomposition{
		root:     root,
		bags:     bags,
		children: make([][]int, n),
		parent:   make([]int, n),
	}
	for i := range d.parent {
		d.parent[i] = -1
	}
	// Iterative DFS from the root.
	stack := []int{root}
	seen := make([]bool, n)
	seen[root] = true
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, next := range undirected[cur] {
			if seen[next] {
				continue
			}
			seen[next] = true
			d.parent[next] = cur
			d.children[cur] = append(d.children[cur], next)
			stack = append(stack, next)
		}
	}
	for n := range d.children {
		sort.Ints(d.children[n])
	}
	return d
}

//–––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––
// Root selection and normalization
//–––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––

// selectRoot re-roots the tree at randomly drawn candidates and keeps
// the fittest orientation under opts.RootFitness.
func selectRoot(g *Graph, d *Decomposition, opts Options, rng *rand.Rand) *Decomposition {
	candidates := opts.RootIterations
	if candidates <= 0 {
		candidates = d.NumNodes()
	}
	best := d
	bestScore := opts.RootFitness.Fitness(g, d)
	for i := 0; i < candidates; i++ {
		root := rng.Intn(d.NumNodes())
		if root == d.root {
			continue
		}
		cand := rootTree(d.bags, d.parent, root)
		if score := opts.RootFitness.Fitness(g, cand); score > bestScore {
			best, bestScore = cand, score
		}
	}
	return best
}

// addEmptyRoot attaches an empty bag above the current root.
func addEmptyRoot(d *Decomposition) *Decomposition {
	n := d.NumNodes()
	d.bags = append(d.bags, nil)
	d.children = append(d.children, []int{d.root})
	d.parent = append(d.parent, -1)
	d.parent[d.root] = n
	d.root = n
	return d
}

// addEmptyLeaves attaches an empty bag below every current leaf.
func addEmptyLeaves(d *Decomposition) *Decomposition {
	leaves := []int{}
	for n := 0; n < d.NumNodes(); n++ {
		if d.IsLeaf(n) {
			leaves = append(leaves, n)
		}
	}
	for _, leaf := range leaves {
		id := d.NumNodes()
		d.bags = append(d.bags, nil)
		d.children = append(d.children, nil)
		d.parent = append(d.parent, leaf)
		d.children[leaf] = append(d.children[leaf], id)
	}
	return d
}
