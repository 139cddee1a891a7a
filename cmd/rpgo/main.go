package main

import (
	"fmt"
	"log"
	"os"
	"runtime/debug"

	"github.com/google/uuid"
	"github.com/mdlacasse/owlgo/internal/calculation"
	"github.com/mdlacasse/owlgo/internal/config"
	"github.com/mdlacasse/owlgo/internal/domain"
	"github.com/mdlacasse/owlgo/internal/solver"
	"github.com/spf13/cobra"
)

// simpleCLILogger implements domain.Logger using the standard log package.
type simpleCLILogger struct{}

func (simpleCLILogger) Debugf(format string, args ...any) { log.Printf("DEBUG: "+format, args...) }
func (simpleCLILogger) Infof(format string, args ...any)  { log.Printf("INFO: "+format, args...) }
func (simpleCLILogger) Warnf(format string, args ...any)  { log.Printf("WARN: "+format, args...) }
func (simpleCLILogger) Errorf(format string, args ...any) { log.Printf("ERROR: "+format, args...) }

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(os.Stdout, "rpgo %s (commit %s, built %s)\n", version, commit, date)
			if info := buildInfo(); info != "" {
				fmt.Fprintln(os.Stdout, info)
			}
		},
	}
}

func buildInfo() string {
	if bi, ok := debug.ReadBuildInfo(); ok && bi != nil {
		return bi.String()
	}
	return ""
}

func fileExists(filename string) bool {
	_, err := os.Stat(filename)
	return !os.IsNotExist(err)
}

var rootCmd = &cobra.Command{
	Use:   "rpgo",
	Short: "MILP retirement planner CLI",
	Long:  "Solves a household retirement plan as a mixed-integer linear program.",
}

func loadPlan(cmd *cobra.Command, scenarioFile string) (*domain.Plan, error) {
	parser := config.NewInputParser()
	regulatoryFile, _ := cmd.Flags().GetString("regulatory-config")
	if regulatoryFile == "" && fileExists("regulatory.yaml") {
		regulatoryFile = "regulatory.yaml"
	}
	if regulatoryFile != "" {
		return parser.LoadFromFileWithRegulatory(scenarioFile, regulatoryFile)
	}
	return parser.LoadFromFile(scenarioFile)
}

var solveCmd = &cobra.Command{
	Use:   "solve [plan-file]",
	Short: "Solve a single retirement plan",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		plan, err := loadPlan(cmd, args[0])
		if err != nil {
			log.Fatal(err)
		}

		debugMode, _ := cmd.Flags().GetBool("debug")
		if debugMode {
			calculation.SetLogger(simpleCLILogger{})
		}

		var hist *domain.HistoricalSeries
		switch plan.RateParams.Method {
		case domain.RateHistorical, domain.RateHistoricalAverage, domain.RateHistochastic:
			hist, err = loadHistoricalSeries(cmd)
			if err != nil {
				log.Fatal(err)
			}
		}

		rm, err := calculation.NewRateModel(plan.RateParams, hist)
		if err != nil {
			log.Fatal(err)
		}
		nn := plan.Horizon()
		inflation, err := rm.GenSeries(nn)
		if err != nil {
			log.Fatal(err)
		}
		gamma := calculation.InflationMultiplier(inflation[domain.AssetCashInfl])

		adapter := solver.NewBranchAndBoundSolver()
		sc, err := calculation.RunOuterLoop(cmd.Context(), plan, rm, adapter, gamma)
		if err != nil {
			log.Fatal(err)
		}

		status := domain.CaseSuccessful
		switch {
		case sc.Solved.Status != solver.StatusOptimal:
			status = domain.CaseUnsuccessful
		case sc.TimedOut || sc.Cancelled:
			status = domain.CaseTimedOut
		case !sc.Converged:
			status = domain.CasePartial
		}

		agg := calculation.ResultAggregator{}
		sp := agg.Aggregate(sc, status, uuid.NewString(), args[0])

		printSolvedPlan(sp)
	},
}

func printSolvedPlan(sp domain.SolvedPlan) {
	fmt.Printf("status: %s (iterations=%d)\n", sp.Status, sp.Provenance.Iterations)
	if sp.Warning != "" {
		fmt.Printf("warning: %s\n", sp.Warning)
	}
	fmt.Printf("objective: %s\n", sp.ObjectiveValue.StringFixed(2))
	if !sp.Basis.IsZero() {
		fmt.Printf("basis: %s\n", sp.Basis.StringFixed(2))
	}
	if !sp.Bequest.IsZero() {
		fmt.Printf("bequest: %s\n", sp.Bequest.StringFixed(2))
	}
	for n, g := range sp.NetSpending {
		fmt.Printf("  year %2d: netSpending=%-12s medicare=%-10s surplus=%s\n",
			n, g.StringFixed(0), sp.MedicareCost[n].StringFixed(0), sp.Surplus[n].StringFixed(0))
	}
}

var sweepCmd = &cobra.Command{
	Use:   "sweep [plan-file]",
	Short: "Run a historical or Monte Carlo sweep over a plan",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		plan, err := loadPlan(cmd, args[0])
		if err != nil {
			log.Fatal(err)
		}

		adapter := solver.NewBranchAndBoundSolver()
		progress := func(done, total int) {
			fmt.Printf("\rsweep: %d/%d", done, total)
			if done == total {
				fmt.Println()
			}
		}

		mode, _ := cmd.Flags().GetString("mode")
		var summary domain.SweepSummary
		switch mode {
		case "montecarlo":
			n, _ := cmd.Flags().GetInt("count")
			seed, _ := cmd.Flags().GetInt64("seed")
			var hist *domain.HistoricalSeries
			if path, _ := cmd.Flags().GetString("historical-data"); path != "" {
				hist, err = config.NewInputParser().LoadHistoricalSeries(path)
				if err != nil {
					log.Fatal(err)
				}
			}
			summary, err = calculation.MCSweep(cmd.Context(), plan, hist, adapter, n, seed, progress)
		default:
			from, _ := cmd.Flags().GetInt("from")
			to, _ := cmd.Flags().GetInt("to")
			hist, histErr := loadHistoricalSeries(cmd)
			if histErr != nil {
				log.Fatal(histErr)
			}
			summary, err = calculation.HistoricalSweep(cmd.Context(), plan, hist, adapter, from, to, progress)
		}
		if err != nil {
			log.Fatal(err)
		}

		fmt.Printf("requested=%d infeasible=%d successRate=%s\n",
			summary.NumRequested, summary.NumInfeasible, summary.SuccessRate.StringFixed(3))
		fmt.Printf("mean=%s median=%s min=%s max=%s\n",
			summary.MeanObjective.StringFixed(2), summary.MedianObjective.StringFixed(2),
			summary.MinObjective.StringFixed(2), summary.MaxObjective.StringFixed(2))
	},
}

func loadHistoricalSeries(cmd *cobra.Command) (*domain.HistoricalSeries, error) {
	path, _ := cmd.Flags().GetString("historical-data")
	if path == "" {
		return nil, fmt.Errorf("this rate method requires --historical-data")
	}
	return config.NewInputParser().LoadHistoricalSeries(path)
}

func init() {
	solveCmd.Flags().Bool("debug", false, "enable verbose engine logging")
	solveCmd.Flags().String("regulatory-config", "", "path to a regulatory.yaml tax/Medicare schedule (default: regulatory.yaml if present)")
	solveCmd.Flags().String("historical-data", "", "path to historical rate-of-return data (required for historical/histochastic rate methods)")

	sweepCmd.Flags().String("regulatory-config", "", "path to a regulatory.yaml tax/Medicare schedule (default: regulatory.yaml if present)")
	sweepCmd.Flags().String("mode", "historical", "sweep mode: historical or montecarlo")
	sweepCmd.Flags().Int("from", 1950, "first historical starting year (historical mode)")
	sweepCmd.Flags().Int("to", 1990, "last historical starting year (historical mode)")
	sweepCmd.Flags().String("historical-data", "", "path to historical rate-of-return data (historical mode)")
	sweepCmd.Flags().Int("count", 1000, "number of draws (montecarlo mode)")
	sweepCmd.Flags().Int64("seed", 1, "base random seed (montecarlo mode)")

	rootCmd.AddCommand(solveCmd)
	rootCmd.AddCommand(sweepCmd)
	rootCmd.AddCommand(versionCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
