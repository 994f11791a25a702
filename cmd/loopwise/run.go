package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/loopwise/loopwise/pkg/domain"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run [config-file]",
	Short: "Run a prompt sequence",
	Long: `Loads the step graph from the given YAML file (or the configured default)
and executes it step by step, journaling every prompt and response.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		agent, err := newAgent()
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		defer agent.Close()

		graphPath := agent.Config().DefaultConfig
		if len(args) > 0 {
			graphPath = args[0]
		}
		dir, _ := cmd.Flags().GetString("dir")

		session, err := agent.RunSequence(cmd.Context(), graphPath, dir)
		if err != nil {
			if session != nil {
				fmt.Printf("Session %s ended early: %v\n", session.ID, err)
			} else {
				fmt.Printf("Error: %v\n", err)
			}
			os.Exit(1)
		}

		if session.Status == domain.StatusPaused {
			fmt.Printf("Session %s paused. Continue with 'loopwise resume'.\n", session.ID)
			return
		}
		fmt.Printf("Session %s finished: %s\n", session.ID, session.Status)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
