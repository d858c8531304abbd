package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fentz26/commandcenter/internal/dashboard"
)

var rootCmd = &cobra.Command{
	Use:   "commandcenter",
	Short: "Command Center - AI and Notion workspace daemon",
	Long: `Command Center audits a Notion workspace for data-quality issues, routes chat
to a hosted or local AI backend, triggers n8n workflows and collects leads.

Run "commandcenter daemon" to serve the dashboard API, then use the other
commands (or the TUI) against it.`,
	SilenceUsage: true,
	// No RunE - defaults to showing help when no subcommand is provided
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(dashboard.Version)
	},
}

var (
	apiAddr    string
	configFile string
	jsonOutput bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&apiAddr, "api", "http://127.0.0.1:7466", "API server address")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default ~/.commandcenter/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Print raw JSON responses")

	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(aiCmd)
	rootCmd.AddCommand(tasksCmd)
	rootCmd.AddCommand(triggerCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(leadsCmd)
	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
