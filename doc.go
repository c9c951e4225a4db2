// Package qbfdp is a BDD-based solver for quantified Boolean formulas
// (QBF) driven by tree decompositions.
//
// A QBF instance — an alternating quantifier prefix over a CNF matrix —
// is decided bottom-up along a tree decomposition of the matrix's
// primal graph. Every bag maintains a Nested Structure of Formulas
// (NSF): a quantifier-shaped tree whose leaves are BDDs, letting the
// solver trade BDD growth for tree growth under a global size budget.
//
// The module is organized into focused subpackages:
//
//	bdd/       — facade over the external BDD engine (dalzilio/rudd)
//	qbf/       — instance model and QDIMACS reader
//	decompose/ — primal graph, bucket-elimination decompositions,
//	             fitness-driven candidate selection
//	nsf/       — the NSF data structure, removal cache, dependency
//	             schemes, and the ComputationManager policy layer
//	solver/    — the post-order driver, enumeration, and the
//	             monolithic single-BDD fallback
//	cmd/qbfdp/ — command line: QDIMACS in, "s cnf" verdict out,
//	             exit codes 10 (SAT) / 20 (UNSAT) / 0 (undecided)
//
// Quick start:
//
//	inst, err := qbf.ParseQDIMACS(r)
//	out, err := solver.Solve(inst, solver.DefaultOptions())
//	switch out.Result { ... }
//
//	go get github.com/katalvlaran/qbfdp
package qbfdp
