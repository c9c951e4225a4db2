package decompose

import (
	"github.com/katalvlaran/qbfdp/qbf"
)

// Graph is the primal graph of a QBF matrix: one vertex per variable,
// an edge between any two variables sharing a clause. Vertex ids are
// the 1-based variable ids of the instance; each vertex carries its
// quantifier level for the level-aware fitness functions.
type Graph struct {
	// NumVertices is the number of vertices; ids run 1..NumVertices.
	NumVertices int

	// NumLevels is the quantifier block count of the instance.
	NumLevels int

	adj    []map[int]struct{}
	levels []int
}

// NewGraph builds the primal graph of the instance.
func NewGraph(inst *qbf.Instance) *Graph {
	g := &Graph{
		NumVertices: inst.NumVars,
		NumLevels:   inst.NumLevels(),
		adj:         make([]map[int]struct{}, inst.NumVars+1),
		levels:      append([]int(nil), inst.Level...),
	}
	for v := 1; v <= inst.NumVars; v++ {
		g.adj[v] = make(map[int]struct{})
	}
	for _, clause := range inst.Clauses {
		vars := clause.Vars()
		for i := 0; i < len(vars); i++ {
			for j := i + 1; j < len(vars); j++ {
				g.addEdge(vars[i], vars[j])
			}
		}
	}
	return g
}

func (g *Graph) addEdge(u, v int) {
	g.adj[u][v] = struct{}{}
	g.adj[v][u] = struct{}{}
}

// Neighbors returns the adjacency set of v. Callers must not mutate it.
func (g *Graph) Neighbors(v int) map[int]struct{} { return g.adj[v] }

// Degree returns the number of neighbors of v.
func (g *Graph) Degree(v int) int { return len(g.adj[v]) }

// Level returns the quantifier level of vertex v.
func (g *Graph) Level(v int) int { return g.levels[v] }

// cloneAdjacency deep-copies the adjacency sets, the working state of
// bucket elimination.
func (g *Graph) cloneAdjacency() []map[int]struct{} {
	adj := make([]map[int]struct{}, len(g.adj))
	for v := 1; v < len(g.adj); v++ {
		adj[v] = make(map[int]struct{}, len(g.adj[v]))
		for u := range g.adj[v] {
			adj[v][u] = struct{}{}
		}
	}
	return adj
}
