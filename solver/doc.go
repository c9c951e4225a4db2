// Package solver answers QBF instances by dynamic programming over a
// tree decomposition of the matrix's primal graph.
//
// The driver walks the decomposition in post order. A leaf bag becomes
// a fresh single-leaf NSF seeded with the clauses its bag covers. At
// every edge to a parent bag, the clauses leaving bag coverage are
// conjoined and the forgotten vertices abstracted in one fused
// RemoveApply; siblings are then folded together with Conjunct. All
// policy (splitting, sorting, caching, interval unsat checks) lives in
// the nsf.Manager; an intermediate UNSAT surfaces as
// nsf.ErrIntermediateUnsat and is translated into a normal UNSAT
// result on the way out.
//
// SolveMonolithic is the decomposition-free fallback: one BDD for the
// whole matrix, abstracted block by block from the innermost level
// outward. It serves tiny instances and doubles as a test oracle.
package solver
