package solver

import (
	"errors"
	"fmt"
	"log"

	"github.com/katalvlaran/qbfdp/bdd"
	"github.com/katalvlaran/qbfdp/decompose"
	"github.com/katalvlaran/qbfdp/nsf"
	"github.com/katalvlaran/qbfdp/qbf"
)

// Solver runs the decomposition-driven dynamic programming pipeline
// for one instance. It is single-use: construct, Solve, discard.
type Solver struct {
	inst *qbf.Instance
	opts Options

	bddm *bdd.Manager
	man  *nsf.Manager
	td   *decompose.Decomposition

	clauseBDDs []bdd.Node
	clauseVars [][]int
}

// New validates the configuration and prepares a solver for inst.
func New(inst *qbf.Instance, opts Options) (*Solver, error) {
	if inst == nil {
		return nil, ErrNoInstance
	}
	if err := inst.Validate(); err != nil {
		return nil, err
	}
	if err := opts.NSF.Validate(); err != nil {
		return nil, err
	}
	if err := opts.Decompose.Validate(); err != nil {
		return nil, err
	}
	opts.NSF.Enumerate = opts.Enumerate
	opts.NSF.Verbose = opts.NSF.Verbose || opts.Verbose
	return &Solver{inst: inst, opts: opts}, nil
}

// Solve decides the instance and, when enumeration was requested and
// the outermost block is existential, collects its satisfying
// assignments.
func (s *Solver) Solve() (*Output, error) {
	// Boundary behaviors first: an empty clause falsifies the matrix
	// regardless of the prefix, and an empty instance is vacuously true.
	if s.inst.HasEmptyClause() {
		return &Output{Result: nsf.Unsat}, nil
	}
	if s.inst.NumVars == 0 {
		return &Output{Result: nsf.Sat}, nil
	}

	// Without the removal cache, clauses reach the leaves as soon as
	// they are introduced and leaf-wise abstraction of variables shared
	// across joined branches loses precision; the plain computation is
	// only exercised on a single collapsed BDD, the monolithic path.
	if s.opts.NSF.DisableCache {
		return SolveMonolithic(s.inst, s.opts.Enumerate)
	}

	if err := s.prepare(); err != nil {
		return nil, err
	}

	final, err := s.compute(s.td.Root())
	if errors.Is(err, nsf.ErrIntermediateUnsat) {
		return &Output{Result: nsf.Unsat}, nil
	}
	if err != nil {
		return nil, err
	}

	// Forget whatever the root bag still holds; with the default empty
	// root this is a no-op, without it the root acts as its own parent.
	if rootBag := s.td.Bag(s.td.Root()); len(rootBag) > 0 {
		removed := s.groupByLevel(rootBag)
		clauses := s.coveredClauses(s.td.Root(), -1)
		s.man.RemoveApply(final, removed, s.onesCubes(), clauses)
	}

	out := &Output{bddm: s.bddm}
	if s.opts.Enumerate && s.inst.NumLevels() > 0 && s.inst.Quantifier(1) == qbf.Exists {
		sols := s.man.Solutions(final)
		out.solutions = sols
		out.enumVars = s.inst.VarsAtLevel(1)
		if s.bddm.IsZero(sols) {
			out.Result = nsf.Unsat
		} else {
			out.Result = nsf.Sat
		}
	} else {
		out.Result = s.man.Decide(final)
	}
	s.man.Release(final)
	out.Stats = s.man.Stats()

	if err := s.bddm.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// prepare builds the BDD manager, the decomposition and the NSF
// manager, and compiles every clause into a BDD.
func (s *Solver) prepare() error {
	bddm, err := bdd.NewManager(s.inst.NumVars)
	if err != nil {
		return err
	}
	s.bddm = bddm

	graph := decompose.NewGraph(s.inst)
	td, err := decompose.Decompose(graph, s.opts.Decompose)
	if err != nil {
		return err
	}
	s.td = td
	if s.opts.Verbose {
		log.Printf("solver: decomposition with %d nodes, width %d, height %d",
			td.NumNodes(), td.Width(), td.Height())
	}

	man, err := nsf.NewManager(bddm, s.inst, s.opts.NSF)
	if err != nil {
		return err
	}
	s.man = man

	s.clauseBDDs = make([]bdd.Node, len(s.inst.Clauses))
	s.clauseVars = make([][]int, len(s.inst.Clauses))
	for i, clause := range s.inst.Clauses {
		s.clauseBDDs[i] = s.clauseBDD(clause)
		s.clauseVars[i] = clause.Vars()
	}
	return nil
}

// compute implements the post-order contract: compute every child NSF,
// forget and introduce along each child edge, then fold the children
// into one computation.
func (s *Solver) compute(node int) (*nsf.Computation, error) {
	if s.td.IsLeaf(node) {
		c := s.man.NewComputation(s.cubes(node), s.coveredClauses(node, -1))
		return c, nil
	}

	var acc *nsf.Computation
	for _, child := range s.td.Children(node) {
		cc, err := s.compute(child)
		if err != nil {
			if acc != nil {
				s.man.Release(acc)
			}
			return nil, err
		}

		if s.opts.Verbose {
			log.Printf("solver: bag %d <- %d: removing variables, introducing clauses", node, child)
		}
		removed := s.groupByLevel(s.td.Forgotten(node, child))
		clauses := s.introducedClauses(node, child)
		s.man.RemoveApply(cc, removed, s.cubes(node), clauses)
		s.man.Optimize(cc)

		if acc == nil {
			acc = cc
			continue
		}
		if s.opts.Verbose {
			log.Printf("solver: bag %d: joining", node)
		}
		if err := s.man.Conjunct(acc, cc); err != nil {
			s.man.Release(acc)
			return nil, err
		}
		s.man.Optimize(acc)
	}

	if s.opts.CheckUnsat {
		if s.man.Decide(acc) == nsf.Unsat {
			s.man.Release(acc)
			return nil, fmt.Errorf("bag %d: %w", node, nsf.ErrIntermediateUnsat)
		}
	}
	return acc, nil
}

//–––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––
// Bag bookkeeping
//–––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––––

// cubes returns, per quantifier level, the cube of bag variables in
// scope at node.
func (s *Solver) cubes(node int) []bdd.Node {
	perLevel := make([][]int, s.inst.NumLevels())
	for _, v := range s.td.Bag(node) {
		level := s.inst.VarLevel(v)
		perLevel[level-1] = append(perLevel[level-1], v-1)
	}
	cubes := make([]bdd.Node, s.inst.NumLevels())
	for i, vars := range perLevel {
		cubes[i] = s.bddm.Cube(vars)
	}
	return cubes
}

// onesCubes returns constant-true cubes for every level.
func (s *Solver) onesCubes() []bdd.Node {
	cubes := make([]bdd.Node, s.inst.NumLevels())
	for i := range cubes {
		cubes[i] = s.bddm.One()
	}
	return cubes
}

// coveredClauses returns the BDDs of clauses fully covered by node's
// bag but not by exclude's (pass exclude = -1 for no exclusion).
func (s *Solver) coveredClauses(node, exclude int) []bdd.Node {
	var out []bdd.Node
	for i, vars := range s.clauseVars {
		if !s.td.Covers(node, vars) {
			continue
		}
		if exclude >= 0 && s.td.Covers(exclude, vars) {
			continue
		}
		out = append(out, s.clauseBDDs[i])
	}
	return out
}

// introducedClauses returns the clauses leaving coverage on the edge
// child -> node: covered by the child's bag, no longer by node's.
// Conjoining them in the same step that abstracts the forgotten
// vertices is what keeps the late introduction sound.
func (s *Solver) introducedClauses(node, child int) []bdd.Node {
	var out []bdd.Node
	for i, vars := range s.clauseVars {
		if s.td.Covers(child, vars) && !s.td.Covers(node, vars) {
			out = append(out, s.clauseBDDs[i])
		}
	}
	return out
}

// groupByLevel buckets forgotten vertices by their quantifier level.
func (s *Solver) groupByLevel(vars []int) [][]nsf.Variable {
	removed := make([][]nsf.Variable, s.inst.NumLevels())
	for _, v := range vars {
		level := s.inst.VarLevel(v)
		removed[level-1] = append(removed[level-1], nsf.Variable{ID: v, Level: level})
	}
	return removed
}

// clauseBDD compiles one clause into its BDD.
func (s *Solver) clauseBDD(clause qbf.Clause) bdd.Node {
	acc := s.bddm.Zero()
	for _, lit := range clause {
		if lit > 0 {
			acc = s.bddm.Or(acc, s.bddm.Var(lit-1))
		} else {
			acc = s.bddm.Or(acc, s.bddm.NVar(-lit-1))
		}
	}
	return acc
}

// Solve is the package-level convenience wrapper: parse nothing, just
// decide inst under opts.
func Solve(inst *qbf.Instance, opts Options) (*Output, error) {
	s, err := New(inst, opts)
	if err != nil {
		return nil, err
	}
	return s.Solve()
}
