package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/loopwise/loopwise"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of loopwise",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("loopwise version %s\n", strings.TrimSpace(loopwise.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
