// Package cmd wires the solver pipeline to the command line. Every
// flag maps 1:1 to an option of the computation manager or the
// decomposer; QBFDP_* environment variables override flag defaults
// through viper.
package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/katalvlaran/qbfdp/decompose"
	"github.com/katalvlaran/qbfdp/nsf"
	"github.com/katalvlaran/qbfdp/qbf"
	"github.com/katalvlaran/qbfdp/solver"
)

var (
	flagMaxNSFSize   int
	flagMaxBDDSize   int
	flagOptInterval  int
	flagUnsatCheck   int
	flagSortJoins    bool
	flagDepScheme    string
	flagDisableCache bool
	flagEnumerate    bool

	flagElimination  string
	flagDSIterations int
	flagDSFitness    string
	flagRSFitness    string
	flagRSIterations int
	flagSeed         int64
	flagNoEmptyRoot  bool
	flagEmptyLeaves  bool

	flagVerbose    bool
	flagPrintStats bool

	exitCode int
)

var rootCmd = &cobra.Command{
	Use:   "qbfdp [qdimacs-file]",
	Short: "A BDD-based QBF solver driven by tree decompositions",
	Long: `qbfdp decides quantified Boolean formulas in QDIMACS format by
dynamic programming over a tree decomposition of the matrix's primal
graph, maintaining nested structures of BDDs per bag.

Exit codes: 10 = SAT, 20 = UNSAT, 0 = undecided or error.`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: false,
	RunE:          run,
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		return 0
	}
	return exitCode
}

func init() {
	flags := rootCmd.Flags()

	flags.IntVarP(&flagMaxNSFSize, "max-est-nsf-size", "e", nsf.DefaultMaxGlobalNSFSize,
		"split until the global estimated NSF size is reached, <=0 to disable")
	flags.IntVarP(&flagMaxBDDSize, "max-bdd-size", "b", nsf.DefaultMaxBDDSize,
		"split if a BDD size exceeds this bound, 0 to disable")
	flags.IntVarP(&flagOptInterval, "opt-interval", "o", nsf.DefaultOptimizeInterval,
		"optimize the NSF every n-th computation step, 0 to disable")
	flags.IntVarP(&flagUnsatCheck, "unsat-check", "u", nsf.DefaultUnsatCheckInterval,
		"check for unsatisfiability after every n-th NSF join, 0 to disable")
	flags.BoolVar(&flagSortJoins, "sort-before-joining", false,
		"sort NSFs by increasing size before joining")
	flags.StringVarP(&flagDepScheme, "dep-scheme", "d", "naive",
		"dependency scheme: naive|simple|standard|dynamic")
	flags.BoolVar(&flagDisableCache, "disable-cache", false,
		"disable the removal cache (implies -e -1, -b 0, -d naive)")
	flags.BoolVar(&flagEnumerate, "enumerate", false,
		"enumerate assignments to the outermost existential block")

	flags.StringVar(&flagElimination, "elimination", "min-fill",
		"bucket elimination ordering: min-fill|min-degree|mcs|natural")
	flags.IntVar(&flagDSIterations, "dsi", decompose.DefaultIterations,
		"number of candidate decompositions for fitness selection")
	flags.StringVar(&flagDSFitness, "ds-fitness", "est-join-effort",
		"fitness function for decomposition selection, 'none' to disable")
	flags.StringVar(&flagRSFitness, "rs-fitness", "none",
		"fitness function for root selection, 'none' to disable")
	flags.IntVar(&flagRSIterations, "rsi", decompose.DefaultRootIterations,
		"number of random root candidates, 0 for one per node")
	flags.Int64Var(&flagSeed, "seed", 0, "seed for decomposition tie-breaking")
	flags.BoolVar(&flagNoEmptyRoot, "no-empty-root", false,
		"do not add an empty root to the tree decomposition")
	flags.BoolVar(&flagEmptyLeaves, "empty-leaves", false,
		"add empty leaves to the tree decomposition")

	flags.BoolVarP(&flagVerbose, "verbose", "v", false, "enable progress output")
	flags.BoolVar(&flagPrintStats, "print-stats", false, "print NSF manager statistics")

	viper.SetEnvPrefix("QBFDP")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	_ = viper.BindPFlags(flags)
}

func run(cobraCmd *cobra.Command, args []string) error {
	var in io.Reader = os.Stdin
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	inst, err := qbf.ParseQDIMACS(in)
	if err != nil {
		return err
	}

	opts, err := buildOptions()
	if err != nil {
		return err
	}

	out, err := solver.Solve(inst, opts)
	if err != nil {
		return err
	}

	printResult(cobraCmd.OutOrStdout(), out)
	if viper.GetBool("print-stats") {
		stats := out.Stats
		fmt.Fprintf(os.Stderr, "NSF (abstract count): %d\n", stats.AbstractCount)
		fmt.Fprintf(os.Stderr, "NSF (internal abstract count): %d\n", stats.InternalAbstractCount)
		fmt.Fprintf(os.Stderr, "NSF (shift count): %d\n", stats.ShiftCount)
		fmt.Fprintf(os.Stderr, "NSF (subsumed count): %d\n", stats.SubsumedCount)
	}
	exitCode = out.Result.ExitCode()
	return nil
}

// buildOptions assembles the pipeline configuration from viper-backed
// flag values.
func buildOptions() (solver.Options, error) {
	opts := solver.DefaultOptions()

	opts.NSF.MaxGlobalNSFSize = viper.GetInt("max-est-nsf-size")
	opts.NSF.MaxBDDSize = viper.GetInt("max-bdd-size")
	opts.NSF.OptimizeInterval = viper.GetInt("opt-interval")
	opts.NSF.UnsatCheckInterval = viper.GetInt("unsat-check")
	opts.NSF.SortBeforeJoining = viper.GetBool("sort-before-joining")
	opts.NSF.DisableCache = viper.GetBool("disable-cache")

	scheme, err := nsf.SchemeKindFromString(viper.GetString("dep-scheme"))
	if err != nil {
		return opts, err
	}
	opts.NSF.Scheme = scheme

	ordering, err := decompose.OrderingFromString(viper.GetString("elimination"))
	if err != nil {
		return opts, err
	}
	opts.Decompose.Ordering = ordering
	opts.Decompose.Iterations = viper.GetInt("dsi")
	opts.Decompose.RootIterations = viper.GetInt("rsi")
	opts.Decompose.Seed = viper.GetInt64("seed")
	opts.Decompose.EmptyRoot = !viper.GetBool("no-empty-root")
	opts.Decompose.EmptyLeaves = viper.GetBool("empty-leaves")

	if name := viper.GetString("ds-fitness"); name == "none" {
		opts.Decompose.Iterations = 1
		opts.Decompose.Fitness = nil
	} else {
		fitness, err := decompose.FitnessByName(name)
		if err != nil {
			return opts, err
		}
		opts.Decompose.Fitness = fitness
	}
	if name := viper.GetString("rs-fitness"); name != "none" {
		fitness, err := decompose.FitnessByName(name)
		if err != nil {
			return opts, err
		}
		opts.Decompose.RootFitness = fitness
	}

	opts.Enumerate = viper.GetBool("enumerate")
	opts.Verbose = viper.GetBool("verbose")
	return opts, nil
}

// printResult writes the solver line and, when enumerating, one
// v-line per assignment to the outermost existential block.
func printResult(w io.Writer, out *solver.Output) {
	switch out.Result {
	case nsf.Sat:
		fmt.Fprintln(w, "s cnf 1")
	case nsf.Unsat:
		fmt.Fprintln(w, "s cnf 0")
	default:
		fmt.Fprintln(w, "s cnf -1")
	}
	if out.HasModels() {
		_ = out.EachModel(func(lits []int) error {
			fmt.Fprint(w, "v")
			for _, lit := range lits {
				fmt.Fprintf(w, " %d", lit)
			}
			fmt.Fprintln(w, " 0")
			return nil
		})
	}
}
