package nsf

import (
	"errors"
	"fmt"
)

//–––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––
// Sentinel errors
//–––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––

var (
	// ErrIntermediateUnsat signals that an interval unsat check on a
	// partial NSF already proved the instance unsatisfiable. It is the
	// only expected non-local exit; callers translate it into a normal
	// UNSAT result.
	ErrIntermediateUnsat = errors.New("nsf: intermediate unsat")

	// ErrIncompatible indicates a structural mismatch between two
	// computations handed to Conjunct (different depth or enumeration
	// mode). It marks an internal invariant violation.
	ErrIncompatible = errors.New("nsf: incompatible computations")

	// ErrInvalidOption is returned for contradictory manager options.
	ErrInvalidOption = errors.New("nsf: invalid option")
)

//–––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––
// Results
//–––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––

// Result is the verdict of deciding a (possibly partial) computation.
type Result int

const (
	// Undecided means the computation did not collapse to a constant.
	Undecided Result = iota

	// Sat means the computation evaluated to the constant true.
	Sat

	// Unsat means the computation evaluated to the constant false.
	Unsat
)

// String returns the conventional solver spelling of the result.
func (r Result) String() string {
	switch r {
	case Sat:
		return "SAT"
	case Unsat:
		return "UNSAT"
	default:
		return "UNDECIDED"
	}
}

// ExitCode returns the conventional QBF solver exit code:
// 10 for SAT, 20 for UNSAT, 0 otherwise.
func (r Result) ExitCode() int {
	switch r {
	case Sat:
		return 10
	case Unsat:
		return 20
	default:
		return 0
	}
}

//–––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––
// Variables
//–––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––

// Variable pairs a problem variable (1-based id) with its 1-based
// quantifier level. Removal operators receive variables in this form so
// the tree knows which quantifier applies during abstraction.
type Variable struct {
	ID    int
	Level int
}

// String renders the variable as id@level, used in verbose traces.
func (v Variable) String() string { return fmt.Sprintf("%d@%d", v.ID, v.Level) }

//–––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––
// Dependency scheme selection
//–––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––

// SchemeKind selects the dependency scheme used to decide whether a
// variable may be abstracted from a subtree.
type SchemeKind int

const (
	// SchemeNaive permits abstraction unconditionally; the solver's
	// removal discipline (innermost pending level first) keeps it sound.
	SchemeNaive SchemeKind = iota

	// SchemeSimple permits abstraction of v once every variable
	// quantified strictly inside v's level has been abstracted in the
	// subtree (quantifier-prefix dependencies).
	SchemeSimple

	// SchemeStandard consults an external dependency Oracle and permits
	// abstraction when v is independent of all remaining inner
	// variables of the original formula.
	SchemeStandard

	// SchemeDynamic picks SchemeStandard for instances with more than
	// two quantifier blocks (when an Oracle is available) and
	// SchemeNaive otherwise.
	SchemeDynamic
)

// String returns the option spelling of the scheme kind.
func (k SchemeKind) String() string {
	switch k {
	case SchemeSimple:
		return "simple"
	case SchemeStandard:
		return "standard"
	case SchemeDynamic:
		return "dynamic"
	default:
		return "naive"
	}
}

// SchemeKindFromString parses an option value into a SchemeKind.
func SchemeKindFromString(s string) (SchemeKind, error) {
	switch s {
	case "naive":
		return SchemeNaive, nil
	case "simple":
		return SchemeSimple, nil
	case "standard":
		return SchemeStandard, nil
	case "dynamic":
		return SchemeDynamic, nil
	default:
		return SchemeNaive, fmt.Errorf("%w: unknown dependency scheme %q", ErrInvalidOption, s)
	}
}

// Oracle answers semantic dependency queries between variables of the
// original formula, typically backed by a QBF preprocessor's
// resolution-path dependency analysis. Depends reports whether the
// value of outer may influence the optimal choice for inner.
type Oracle interface {
	Depends(outer, inner int) bool
}

//–––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––
// Options & defaults
//–––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––

// Default manager knobs.
const (
	// DefaultMaxGlobalNSFSize bounds the product of leaves counts
	// across live computations during split loops.
	DefaultMaxGlobalNSFSize = 1000

	// DefaultMaxBDDSize is the per-leaf node count beyond which a
	// split is attempted.
	DefaultMaxBDDSize = 3000

	// DefaultOptimizeInterval runs optimize every n-th mutating step.
	DefaultOptimizeInterval = 4

	// DefaultUnsatCheckInterval decides the NSF after every n-th join.
	DefaultUnsatCheckInterval = 2
)

// Options configures a Manager. Zero value is not meaningful; use
// DefaultOptions and override fields as needed.
type Options struct {
	// MaxGlobalNSFSize is the split budget on the estimated product of
	// leaves counts; values <= 0 disable the bound.
	MaxGlobalNSFSize int

	// MaxBDDSize is the per-leaf BDD size beyond which splitting is
	// attempted; 0 disables splitting.
	MaxBDDSize int

	// OptimizeInterval runs optimize once every n-th mutating
	// operation; 0 disables interval optimization.
	OptimizeInterval int

	// UnsatCheckInterval decides the NSF after every n-th conjunct and
	// aborts with ErrIntermediateUnsat on UNSAT; 0 disables the check.
	UnsatCheckInterval int

	// SortBeforeJoining sorts both operands' children by increasing
	// BDD size before a conjunct, improving subsumption hit rates.
	SortBeforeJoining bool

	// Scheme selects the dependency scheme variant.
	Scheme SchemeKind

	// Oracle backs SchemeStandard (and SchemeDynamic on deep
	// prefixes). May be nil, in which case those fall back to naive.
	Oracle Oracle

	// DisableCache forces plain computations without the removal
	// cache; it implies MaxGlobalNSFSize -1, MaxBDDSize 0 and the
	// naive scheme.
	DisableCache bool

	// Enumerate keeps the outermost existential block unabstracted so
	// satisfying assignments to it can be read off the final NSF.
	Enumerate bool

	// Verbose enables progress logging of manager decisions.
	Verbose bool
}

// DefaultOptions returns production defaults matching the option table
// of the solver: e=1000, b=3000, o=4, u=2, naive scheme, cache on.
func DefaultOptions() Options {
	return Options{
		MaxGlobalNSFSize:   DefaultMaxGlobalNSFSize,
		MaxBDDSize:         DefaultMaxBDDSize,
		OptimizeInterval:   DefaultOptimizeInterval,
		UnsatCheckInterval: DefaultUnsatCheckInterval,
		Scheme:             SchemeNaive,
	}
}

// Validate rejects contradictory combinations.
func (o Options) Validate() error {
	if o.OptimizeInterval < 0 {
		return fmt.Errorf("%w: negative optimize interval", ErrInvalidOption)
	}
	if o.UnsatCheckInterval < 0 {
		return fmt.Errorf("%w: negative unsat check interval", ErrInvalidOption)
	}
	if o.MaxBDDSize < 0 {
		return fmt.Errorf("%w: negative max BDD size", ErrInvalidOption)
	}
	if o.DisableCache && o.Scheme != SchemeNaive {
		return fmt.Errorf("%w: cache can only be disabled with the naive dependency scheme", ErrInvalidOption)
	}
	if o.Scheme == SchemeStandard && o.Oracle == nil {
		return fmt.Errorf("%w: standard dependency scheme requires an oracle", ErrInvalidOption)
	}
	return nil
}

//–––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––
// Statistics
//–––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––

// Stats counts the manager's structural operations.
type Stats struct {
	// AbstractCount is the number of variable abstractions performed
	// by removal operators; deferred or dropped removals are not counted.
	AbstractCount int

	// InternalAbstractCount counts abstractions performed during
	// evaluation.
	InternalAbstractCount int

	// ShiftCount is the number of leaf splits performed by optimize.
	ShiftCount int

	// SubsumedCount is the number of children dropped by
	// subset-subsumption compression.
	SubsumedCount int
}
