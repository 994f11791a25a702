package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/loopwise/loopwise"
	"github.com/loopwise/loopwise/internal/improve"
)

var improveCmd = &cobra.Command{
	Use:   "improve",
	Short: "Iteratively improve project quality until it converges",
	Long: `Scans the project, scores it against quality criteria, applies model-suggested
file edits, and repeats until the threshold is met, the score converges, the
token budget runs out, or the iteration cap is reached.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loopwise.LoadConfig()
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		if cmd.Flags().Changed("budget") {
			cfg.TokenBudget, _ = cmd.Flags().GetInt("budget")
		}

		agent, err := loopwise.New(cfg)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		defer agent.Close()

		dir, _ := cmd.Flags().GetString("dir")
		threshold, _ := cmd.Flags().GetFloat64("threshold")
		maxIterations, _ := cmd.Flags().GetInt("max-iterations")

		result, err := agent.Improve(cmd.Context(), dir, improve.Config{
			Threshold:     threshold,
			MaxIterations: maxIterations,
		})
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("Final score: %.1f\n", result.FinalScore)
		switch {
		case result.ThresholdMet:
			fmt.Println("Stopped: quality threshold met.")
		case result.Converged:
			fmt.Println("Stopped: score converged.")
		case result.BudgetExceeded:
			fmt.Println("Stopped: token budget exceeded (partial result).")
		default:
			fmt.Println("Stopped: iteration cap reached.")
		}
		for _, it := range result.Iterations {
			fmt.Printf("  iteration %d: %.1f -> %.1f, %d suggestions", it.Iteration, it.ScoreBefore, it.ScoreAfter, it.Suggestions)
			if len(it.FilesModified) > 0 {
				fmt.Printf(", modified %s", strings.Join(it.FilesModified, ", "))
			}
			fmt.Println()
		}
	},
}

func init() {
	rootCmd.AddCommand(improveCmd)

	improveCmd.Flags().Float64("threshold", improve.DefaultThreshold, "Quality score that stops the loop")
	improveCmd.Flags().Int("max-iterations", improve.DefaultMaxIterations, "Maximum improvement iterations")
	improveCmd.Flags().Int("budget", 0, "Token budget for this run (0 = configured default)")
}
