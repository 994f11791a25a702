package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	httpapi "github.com/loopwise/loopwise/internal/adapters/http"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the session inspection API and Prometheus metrics",
	Long: `Exposes stored sessions, journals, and pending improvements as a read-only
JSON API, with Prometheus metrics at /metrics.`,
	Run: func(cmd *cobra.Command, args []string) {
		agent, err := newAgent()
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		defer agent.Close()

		addr, _ := cmd.Flags().GetString("addr")
		if addr == "" {
			addr = agent.Config().ListenAddr
		}

		handler := httpapi.NewHandler(agent.Recorder(), agent.Logger())
		fmt.Printf("Listening on %s\n", addr)
		if err := http.ListenAndServe(addr, handler); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "Listen address (default: configured address)")
}
