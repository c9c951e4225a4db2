package qbf

import (
	"errors"
	"fmt"
)

// ErrInvalidInput is returned for malformed or inconsistent QDIMACS input.
var ErrInvalidInput = errors.New("qbf: invalid input")

// Quantifier identifies the kind of a quantifier block.
type Quantifier int

const (
	// Exists marks an existential block (QDIMACS "e").
	Exists Quantifier = iota

	// Forall marks a universal block (QDIMACS "a").
	Forall
)

// String returns the QDIMACS letter of the quantifier.
func (q Quantifier) String() string {
	if q == Forall {
		return "a"
	}
	return "e"
}

// Clause is a disjunction of literals. A positive literal v stands for
// variable v, a negative literal -v for its negation. An empty clause
// is the constant false.
type Clause []int

// Vars returns the distinct variables mentioned by the clause,
// in first-occurrence order.
func (c Clause) Vars() []int {
	vars := make([]int, 0, len(c))
	seen := make(map[int]struct{}, len(c))
	for _, lit := range c {
		v := lit
		if v < 0 {
			v = -v
		}
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			vars = append(vars, v)
		}
	}
	return vars
}

// Instance is a parsed prenex-CNF QBF.
type Instance struct {
	// NumVars is the number of variables; variables are 1..NumVars.
	NumVars int

	// Prefix holds the quantifier of each block, outermost first.
	Prefix []Quantifier

	// Level maps each variable (1-based index) to its block, 1-based.
	// Level[0] is unused.
	Level []int

	// Clauses is the CNF matrix.
	Clauses []Clause
}

// NumLevels returns the number of quantifier blocks.
func (in *Instance) NumLevels() int { return len(in.Prefix) }

// Quantifier returns the quantifier of the given 1-based level.
func (in *Instance) Quantifier(level int) Quantifier { return in.Prefix[level-1] }

// VarLevel returns the 1-based quantifier level of variable v.
func (in *Instance) VarLevel(v int) int { return in.Level[v] }

// VarsAtLevel returns all variables of the given 1-based level,
// in increasing order.
func (in *Instance) VarsAtLevel(level int) []int {
	var vars []int
	for v := 1; v <= in.NumVars; v++ {
		if in.Level[v] == level {
			vars = append(vars, v)
		}
	}
	return vars
}

// CountAtLevels returns, per 1-based level, the number of variables
// quantified there. The result has NumLevels entries.
func (in *Instance) CountAtLevels() []int {
	counts := make([]int, in.NumLevels())
	for v := 1; v <= in.NumVars; v++ {
		counts[in.Level[v]-1]++
	}
	return counts
}

// HasEmptyClause reports whether the matrix contains the empty clause.
func (in *Instance) HasEmptyClause() bool {
	for _, c := range in.Clauses {
		if len(c) == 0 {
			return true
		}
	}
	return false
}

// Validate checks internal consistency: every literal names a declared
// variable, and every variable has a level.
func (in *Instance) Validate() error {
	if in.NumVars < 0 {
		return fmt.Errorf("%w: negative variable count", ErrInvalidInput)
	}
	if len(in.Level) != in.NumVars+1 {
		return fmt.Errorf("%w: level table has %d entries for %d variables", ErrInvalidInput, len(in.Level), in.NumVars)
	}
	for v := 1; v <= in.NumVars; v++ {
		if in.Level[v] < 1 || in.Level[v] > in.NumLevels() {
			return fmt.Errorf("%w: variable %d has no quantifier level", ErrInvalidInput, v)
		}
	}
	for i, c := range in.Clauses {
		for _, lit := range c {
			v := lit
			if v < 0 {
				v = -v
			}
			if v == 0 || v > in.NumVars {
				return fmt.Errorf("%w: clause %d mentions undeclared variable %d", ErrInvalidInput, i+1, v)
			}
		}
	}
	return nil
}
