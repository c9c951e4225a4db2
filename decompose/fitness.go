package decompose

import (
	"fmt"
	"math"
)

// FitnessFunction scores a tree decomposition of a primal graph. The
// returned value is the raw score negated, so that a maximizing
// selector prefers smaller raw scores; "inverse" variants negate once
// more to flip the preference.
type FitnessFunction interface {
	// Name returns the option spelling of the function.
	Name() string

	// Fitness returns the negated raw score of d.
	Fitness(g *Graph, d *Decomposition) float64
}

// Width minimizes the maximum bag size.
type Width struct{}

func (Width) Name() string { return "width" }

func (Width) Fitness(_ *Graph, d *Decomposition) float64 {
	return -float64(d.MaximumBagSize())
}

// Height minimizes the longest root-to-leaf path.
type Height struct{}

func (Height) Name() string { return "height" }

func (Height) Fitness(_ *Graph, d *Decomposition) float64 {
	return -float64(d.Height())
}

// JoinCount minimizes the number of join nodes.
type JoinCount struct{}

func (JoinCount) Name() string { return "join-count" }

func (JoinCount) Fitness(_ *Graph, d *Decomposition) float64 {
	return -float64(len(d.JoinNodes()))
}

// JoinBagSize minimizes the sum of join node bag sizes.
type JoinBagSize struct{}

func (JoinBagSize) Name() string { return "join-bag-size" }

func (JoinBagSize) Fitness(_ *Graph, d *Decomposition) float64 {
	sum := 0.0
	for _, n := range d.JoinNodes() {
		sum += float64(d.BagSize(n))
	}
	return -sum
}

// JoinChildCount minimizes the total number of join node children.
type JoinChildCount struct{}

func (JoinChildCount) Name() string { return "join-child-count" }

func (JoinChildCount) Fitness(_ *Graph, d *Decomposition) float64 {
	sum := 0.0
	for _, n := range d.JoinNodes() {
		sum += float64(len(d.Children(n)))
	}
	return -sum
}

// JoinBagSizeExp minimizes Σ childCount(n)·log(bagSize(n)) over join
// nodes, the logarithm of the bag-size-to-the-child-count product.
type JoinBagSizeExp struct{}

func (JoinBagSizeExp) Name() string { return "join-bag-size-exp" }

func (JoinBagSizeExp) Fitness(_ *Graph, d *Decomposition) float64 {
	sum := 0.0
	for _, n := range d.JoinNodes() {
		if d.BagSize(n) > 0 {
			sum += float64(len(d.Children(n))) * math.Log(float64(d.BagSize(n)))
		}
	}
	return -sum
}

// JoinChildBagSize minimizes the sum of join node children bag sizes.
type JoinChildBagSize struct{}

func (JoinChildBagSize) Name() string { return "join-child-bag-size" }

func (JoinChildBagSize) Fitness(_ *Graph, d *Decomposition) float64 {
	sum := 0.0
	for _, n := range d.JoinNodes() {
		for _, c := range d.Children(n) {
			sum += float64(d.BagSize(c))
		}
	}
	return -sum
}

// EstJoinEffort minimizes the sum over join nodes of the product of
// children bag sizes, a proxy for pairwise join work.
type EstJoinEffort struct{}

func (EstJoinEffort) Name() string { return "est-join-effort" }

func (EstJoinEffort) Fitness(_ *Graph, d *Decomposition) float64 {
	sum := 0.0
	for _, n := range d.JoinNodes() {
		product := 1.0
		for _, c := range d.Children(n) {
			product *= float64(d.BagSize(c))
		}
		sum += product
	}
	return -sum
}

// RemovalImpact minimizes the estimated total number of NSF leaves
// produced over the run: every forgotten vertex may double the leaves
// of the subtree's structure, and sibling structures multiply at
// joins.
type RemovalImpact struct{}

func (RemovalImpact) Name() string { return "removal-impact" }

func (RemovalImpact) Fitness(_ *Graph, d *Decomposition) float64 {
	total, _ := removalEstimates(d)
	return -total
}

// RemovalJoinMin is RemovalImpact restricted to join nodes, minimized.
type RemovalJoinMin struct{}

func (RemovalJoinMin) Name() string { return "removal-join-min" }

func (RemovalJoinMin) Fitness(_ *Graph, d *Decomposition) float64 {
	_, joins := removalEstimates(d)
	return -joins
}

// RemovalJoinMax is RemovalImpact restricted to join nodes, maximized.
type RemovalJoinMax struct{}

func (RemovalJoinMax) Name() string { return "removal-join-max" }

func (RemovalJoinMax) Fitness(_ *Graph, d *Decomposition) float64 {
	_, joins := removalEstimates(d)
	return joins
}

// removalEstimates walks the tree bottom-up, carrying the geometric
// leaves estimate: leaves(n) = Π leaves(child) · 2^{#forgotten at n},
// capped to keep the float finite, and sums the per-node estimates.
func removalEstimates(d *Decomposition) (total, joins float64) {
	const maxEstimate = 1e30
	estimate := make([]float64, d.NumNodes())
	d.PostOrder(func(n int) {
		est := 1.0
		forgotten := 0
		for _, c := range d.Children(n) {
			est *= estimate[c]
			forgotten += len(d.Forgotten(n, c))
		}
		est *= math.Pow(2, float64(forgotten))
		if est > maxEstimate {
			est = maxEstimate
		}
		estimate[n] = est
		total += est
		if d.IsJoin(n) {
			joins += est
		}
	})
	return total, joins
}

// VariablePosition prefers innermost variables to be forgotten early:
// a vertex's relative forget depth should track its relative
// quantifier depth.
type VariablePosition struct{}

func (VariablePosition) Name() string { return "variable-position" }

func (VariablePosition) Fitness(g *Graph, d *Decomposition) float64 {
	height := d.Height()
	if height == 0 || g.NumLevels == 0 {
		return 0
	}
	sum := 0.0
	forEachForgotten(d, func(n, v int) {
		depthRatio := float64(d.Depth(n)) / float64(height)
		levelRatio := float64(g.Level(v)) / float64(g.NumLevels)
		sum += math.Abs(depthRatio - levelRatio)
	})
	return -sum
}

// RemovedLevel punishes forgetting outer (low-level) variables far
// from the root.
type RemovedLevel struct{}

func (RemovedLevel) Name() string { return "removed-level" }

func (RemovedLevel) Fitness(g *Graph, d *Decomposition) float64 {
	sum := 0.0
	forEachForgotten(d, func(n, v int) {
		sum += float64(g.NumLevels-g.Level(v)+1) * float64(d.Depth(n))
	})
	return -sum
}

// forEachForgotten invokes f for every (node, forgotten vertex) pair.
// Vertices left in the root bag count as forgotten at the root.
func forEachForgotten(d *Decomposition, f func(n, v int)) {
	d.PostOrder(func(n int) {
		for _, c := range d.Children(n) {
			for _, v := range d.Forgotten(n, c) {
				f(n, v)
			}
		}
	})
	for _, v := range d.Bag(d.Root()) {
		f(d.Root(), v)
	}
}

// FitnessFunctions lists every available fitness function.
func FitnessFunctions() []FitnessFunction {
	return []FitnessFunction{
		Width{}, Height{}, JoinCount{}, JoinBagSize{}, JoinChildCount{},
		JoinBagSizeExp{}, JoinChildBagSize{}, EstJoinEffort{},
		RemovalImpact{}, RemovalJoinMin{}, RemovalJoinMax{},
		VariablePosition{}, RemovedLevel{},
	}
}

// FitnessByName resolves an option value to a fitness function.
func FitnessByName(name string) (FitnessFunction, error) {
	for _, f := range FitnessFunctions() {
		if f.Name() == name {
			return f, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFitness, name)
}
