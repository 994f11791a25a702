package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/loopwise/loopwise"
)

var rootCmd = &cobra.Command{
	Use:   "loopwise",
	Short: "Loopwise is a declarative prompt-sequence engine for LLM workflows",
	Long: `Loopwise runs YAML-defined sequences of prompts with conditional branching,
tracks token budgets, and iterates on project quality until it converges.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("dir", ".", "Project directory to operate on")
}

// newAgent loads configuration and wires the shared collaborators. Commands
// that need the model client or the recorder go through here.
func newAgent() (*loopwise.Agent, error) {
	cfg, err := loopwise.LoadConfig()
	if err != nil {
		return nil, err
	}
	return loopwise.New(cfg)
}
