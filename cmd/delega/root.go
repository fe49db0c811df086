package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "delega",
	Short: "Explainable task assignment for project teams",
	Long: `Delega decides who should work on what, and shows its reasoning.

Every assignment runs through a staged pipeline: candidates are scored
and shortlisted, checked for fairness and overload, assessed for
deadline and quality risk, evaluated for growth opportunity, and only
then assigned. Each stage leaves a trace entry, and every completed
decision lands in an append-only audit trail.

Deterministic scoring rules drive the pipeline; when an Anthropic API
key is configured, a model refines the written rationale of each stage.
Without one, delega still decides, it just explains more tersely.`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(assignCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(rosterCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
