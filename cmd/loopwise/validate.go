package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/loopwise/loopwise/pkg/graph"
)

var validateCmd = &cobra.Command{
	Use:   "validate [config-file]",
	Short: "Check a step graph for consistency",
	Long:  `Loads the step graph and reports broken branch targets and unreachable steps.`,
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runValidate(args); err != nil {
			fmt.Printf("Validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Step graph is valid.")
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(args []string) error {
	path := "config/prompts.yaml"
	if len(args) > 0 {
		path = args[0]
	}

	g, err := graph.Load(path)
	if err != nil {
		return err
	}

	problems := g.Validate()
	if len(problems) == 0 {
		return nil
	}
	for _, p := range problems {
		fmt.Printf("  - %v\n", p)
	}
	return fmt.Errorf("%d problem(s) found", len(problems))
}
