// Package decompose builds tree decompositions of the primal graph of
// a QBF matrix and scores them with the fitness functions used to pick
// among candidates.
//
// Construction is bucket elimination along a vertex ordering heuristic
// (min-fill by default). Because the solver conjoins a clause when it
// leaves bag coverage and abstracts a vertex when it is forgotten, an
// empty root bag is attached by default so that every vertex is
// forgotten and every clause introduced by the time the driver reaches
// the root.
//
// Candidate selection follows the iterative-improvement pattern:
// several decompositions are generated with seeded tie-breaking, each
// is scored by the selected fitness function (which returns the raw
// score negated, so bigger is better), and the best one wins. A second
// fitness function may steer the choice of the root among random
// candidates.
package decompose
