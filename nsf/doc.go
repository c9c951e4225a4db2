// Package nsf implements the Nested Structure of Formulas, the symbolic
// intermediate representation of a partially quantified Boolean formula,
// together with the ComputationManager that governs it.
//
// An NSF is a uniform-depth tree mirroring the quantifier prefix
// Q₁X₁ … QₙXₙ of the input: inner nodes at depth d carry quantifier
// Q_{d+1}, leaves carry BDDs. An existential node denotes the
// conjunction of its children, a universal node their disjunction, each
// followed by abstraction of that block's variables. Keeping a set of
// children instead of a single BDD lets the solver trade BDD growth for
// tree growth ("splitting") under a global size budget.
//
// Computation is the tree plus its semantic operators (Apply, Conjunct,
// Remove, RemoveApply, Evaluate, Optimize). A Computation created with
// the removal cache enabled additionally defers clause conjunction until
// the clause's variables are about to be abstracted, and tracks which
// variables were already abstracted per level for the dependency
// schemes.
//
// Manager owns policy and bookkeeping: the global NSF size estimation,
// the optimize and unsat-check intervals, sorting before joins, and the
// dependency scheme deciding when a variable may be abstracted. All
// mutation of live Computations flows through the Manager.
package nsf
