package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/loopwise/loopwise/internal/presentation/mermaid"
	"github.com/loopwise/loopwise/pkg/graph"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph [config-file]",
	Short: "Export the step graph visualization",
	Long:  `Loads the step graph and outputs a Mermaid diagram (graph TD) of its branch logic.`,
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		path := "config/prompts.yaml"
		if len(args) > 0 {
			path = args[0]
		}

		g, err := graph.Load(path)
		if err != nil {
			fmt.Printf("Error loading step graph: %v\n", err)
			os.Exit(1)
		}

		fmt.Print(mermaid.Generate(g.Steps()))
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}
