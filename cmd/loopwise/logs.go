package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show recent prompt/response exchanges across sessions",
	Run: func(cmd *cobra.Command, args []string) {
		agent, err := newAgent()
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		defer agent.Close()

		limit, _ := cmd.Flags().GetInt("limit")
		logs, err := agent.Recorder().RecentLogs(cmd.Context(), limit)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}

		if len(logs) == 0 {
			fmt.Println("No logs found.")
			return
		}

		for _, entry := range logs {
			fmt.Printf("[%s] session %s step %s\n", entry.PromptAt.Format("2006-01-02 15:04:05"), entry.SessionID, entry.StepID)
			fmt.Printf("  > %s\n", firstLine(entry.Prompt))
			if entry.Response != "" {
				fmt.Printf("  < %s (%s, %d tokens)\n", firstLine(entry.Response), entry.Model, entry.Tokens)
			}
		}
	},
}

func firstLine(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			return s[:i] + " ..."
		}
	}
	return s
}

func init() {
	rootCmd.AddCommand(logsCmd)

	logsCmd.Flags().IntP("limit", "n", 20, "Maximum number of entries to show")
}
