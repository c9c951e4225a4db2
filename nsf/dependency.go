package nsf

// DependencyScheme decides whether a variable is safe to abstract from
// a particular computation subtree at a forget bag. Unsafe variables
// stay pending on the subtree and are retried by later removals.
type DependencyScheme interface {
	// Name returns the option spelling of the scheme.
	Name() string

	// MayAbstract reports whether v may be abstracted from c now.
	MayAbstract(c *Computation, v Variable) bool
}

// naiveScheme permits every abstraction. The removal operators process
// levels innermost-first, which is what keeps this sound.
type naiveScheme struct{}

func (naiveScheme) Name() string                            { return "naive" }
func (naiveScheme) MayAbstract(*Computation, Variable) bool { return true }

// simpleScheme implements the quantifier-prefix dependencies: v may be
// abstracted once every variable quantified strictly inside v's level
// has been abstracted in the subtree.
type simpleScheme struct {
	// countAtLevels holds, per level (index level-1), the total number
	// of variables of the instance quantified there.
	countAtLevels []int
}

func (simpleScheme) Name() string { return "simple" }

func (s simpleScheme) MayAbstract(c *Computation, v Variable) bool {
	if c.cache == nil {
		return true
	}
	for level := v.Level + 1; level <= len(s.countAtLevels); level++ {
		if c.cache.abstractedCount(level) < s.countAtLevels[level-1] {
			return false
		}
	}
	return true
}

// standardScheme consults an external oracle: v may be abstracted when
// it is independent of every inner variable still present in the
// subtree, even if those variables have not been abstracted yet.
type standardScheme struct {
	oracle Oracle

	// varsAtLevels holds, per level (index level-1), the ids of all
	// instance variables quantified there.
	varsAtLevels [][]int
}

func (standardScheme) Name() string { return "standard" }

func (s standardScheme) MayAbstract(c *Computation, v Variable) bool {
	if c.cache == nil {
		return true
	}
	for level := v.Level + 1; level <= len(s.varsAtLevels); level++ {
		for _, inner := range s.varsAtLevels[level-1] {
			if c.cache.isAbstracted(Variable{ID: inner, Level: level}) {
				continue
			}
			if s.oracle.Depends(v.ID, inner) {
				return false
			}
		}
	}
	return true
}

// resolveScheme instantiates the scheme selected by the options.
// SchemeDynamic becomes standard for prefixes deeper than two blocks
// when an oracle is available, naive otherwise.
func resolveScheme(opts Options, numLevels int, countAtLevels []int, varsAtLevels [][]int) DependencyScheme {
	kind := opts.Scheme
	if kind == SchemeDynamic {
		if numLevels > 2 && opts.Oracle != nil {
			kind = SchemeStandard
		} else {
			kind = SchemeNaive
		}
	}
	switch kind {
	case SchemeSimple:
		return simpleScheme{countAtLevels: countAtLevels}
	case SchemeStandard:
		if opts.Oracle == nil {
			return naiveScheme{}
		}
		return standardScheme{oracle: opts.Oracle, varsAtLevels: varsAtLevels}
	default:
		return naiveScheme{}
	}
}
