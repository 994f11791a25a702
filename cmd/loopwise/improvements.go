package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/loopwise/loopwise/pkg/domain"
)

var improvementsCmd = &cobra.Command{
	Use:   "improvements",
	Short: "Review configuration updates suggested by self-analysis",
	Long: `Lists pending improvement suggestions produced after completed sessions.
Approved config_update suggestions can be applied back to the step graph.`,
	Run: func(cmd *cobra.Command, args []string) {
		agent, err := newAgent()
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		defer agent.Close()

		pending, err := agent.Recorder().PendingImprovements(cmd.Context())
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}

		if len(pending) == 0 {
			fmt.Println("No pending improvements.")
			return
		}

		for _, imp := range pending {
			fmt.Printf("#%d [%s] %s\n", imp.ID, imp.Type, imp.Description)
			if imp.SessionID != "" {
				fmt.Printf("    from session %s\n", imp.SessionID)
			}
		}
	},
}

var approveCmd = &cobra.Command{
	Use:   "approve <id>",
	Short: "Approve a pending improvement and apply it to the step graph",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		reviewImprovement(cmd, args[0], domain.ImprovementApproved)
	},
}

var rejectCmd = &cobra.Command{
	Use:   "reject <id>",
	Short: "Reject a pending improvement",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		reviewImprovement(cmd, args[0], domain.ImprovementRejected)
	},
}

func reviewImprovement(cmd *cobra.Command, rawID, status string) {
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		fmt.Printf("Error: invalid improvement id %q\n", rawID)
		os.Exit(1)
	}

	agent, err := newAgent()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	defer agent.Close()

	if err := agent.Recorder().SetImprovementStatus(cmd.Context(), id, status); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Improvement #%d %s\n", id, status)

	if status != domain.ImprovementApproved {
		return
	}
	skipApply, _ := cmd.Flags().GetBool("no-apply")
	if skipApply {
		return
	}

	configPath, _ := cmd.Flags().GetString("config")
	if configPath == "" {
		configPath = agent.Config().DefaultConfig
	}
	if err := agent.SelfAnalyzer().Apply(cmd.Context(), id, configPath); err != nil {
		fmt.Printf("Error applying improvement: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Applied improvement #%d to %s\n", id, configPath)
}

func init() {
	rootCmd.AddCommand(improvementsCmd)
	improvementsCmd.AddCommand(approveCmd)
	improvementsCmd.AddCommand(rejectCmd)

	approveCmd.Flags().String("config", "", "Step graph file to apply the change to (default: configured graph)")
	approveCmd.Flags().Bool("no-apply", false, "Approve without applying the change")
}
