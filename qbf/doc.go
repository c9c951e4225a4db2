// Package qbf models closed quantified Boolean formulas in prenex CNF:
// an alternating prefix of existential and universal blocks followed by
// a clause matrix. Variables are integers 1..NumVars; each variable
// carries the 1-based level of its quantifier block. Clauses double as
// hyperedges of the primal graph consumed by package decompose.
//
// ParseQDIMACS reads the standard QDIMACS exchange format:
//
//	p cnf <vars> <clauses>
//	e 1 2 0
//	a 3 0
//	1 -3 0
//	...
//
// Free variables are placed into the outermost existential block, the
// usual QDIMACS convention.
package qbf
