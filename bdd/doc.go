// Package bdd wraps the external binary decision diagram engine
// (github.com/dalzilio/rudd) behind the small algebra the solver core
// needs: conjunction, disjunction, negation, cofactors, existential and
// universal abstraction over cubes, node counting, and satisfying
// assignment iteration.
//
// All functions operate on rudd variable indices in [0..NumVars).
// Callers holding 1-based problem variables subtract one at the border.
//
// The engine keeps its error state internally; Err surfaces it so that
// resource exhaustion inside the engine can be propagated instead of
// silently producing constant-false results.
package bdd
