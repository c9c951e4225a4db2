package solver_test

import (
	"fmt"
	"strings"

	"github.com/katalvlaran/qbfdp/qbf"
	"github.com/katalvlaran/qbfdp/solver"
)

// ExampleSolve decides a small 2-QBF and prints its verdict.
func ExampleSolve() {
	input := `p cnf 3 2
a 1 0
e 2 3 0
1 2 0
-1 3 0
`
	inst, err := qbf.ParseQDIMACS(strings.NewReader(input))
	if err != nil {
		fmt.Println(err)
		return
	}
	out, err := solver.Solve(inst, solver.DefaultOptions())
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(out.Result)
	// Output: SAT
}

// ExampleOutput_EachModel enumerates the satisfying assignments to the
// outermost existential block.
func ExampleOutput_EachModel() {
	input := `p cnf 2 2
e 1 2 0
1 2 0
-1 -2 0
`
	inst, err := qbf.ParseQDIMACS(strings.NewReader(input))
	if err != nil {
		fmt.Println(err)
		return
	}
	opts := solver.DefaultOptions()
	opts.Enumerate = true
	out, err := solver.Solve(inst, opts)
	if err != nil {
		fmt.Println(err)
		return
	}
	for _, model := range out.Models() {
		fmt.Println(model)
	}
	// Output:
	// [-1 2]
	// [1 -2]
}
