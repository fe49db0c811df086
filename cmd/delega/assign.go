package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/delega/delega/pkg/models"
)

var (
	assignJSON      bool
	assignRuleBased bool
)

var assignCmd = &cobra.Command{
	Use:   "assign <task-id>",
	Short: "Decide who should take a task",
	Long: `Run the full decision pipeline for one task and print the decision.

The pipeline scores every eligible candidate, shortlists the best fits,
applies fairness and overload checks, assesses deadline and quality
risk, estimates growth opportunity, and selects the assignee. The
completed decision is appended to the audit trail.

Examples:
  delega assign TASK-001            # Human-readable decision
  delega assign TASK-001 --json     # Machine-readable record
  delega assign TASK-001 --rule-based  # Skip model refinement`,
	Args: cobra.ExactArgs(1),
	RunE: runAssign,
}

func init() {
	assignCmd.Flags().BoolVar(&assignJSON, "json", false, "Output in JSON format")
	assignCmd.Flags().BoolVar(&assignRuleBased, "rule-based", false, "Decide without model refinement")
}

func runAssign(cmd *cobra.Command, args []string) error {
	svc, cleanup, err := newService(assignRuleBased)
	if err != nil {
		return err
	}
	defer cleanup()

	record, err := svc.Assign(context.Background(), args[0])
	if err != nil {
		return err
	}

	if assignJSON {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(record)
	}
	printDecision(record)
	return nil
}

// printDecision renders one decision record for a terminal.
func printDecision(rec *models.DecisionRecord) {
	bold := color.New(color.Bold)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	fmt.Println()
	bold.Printf("Decision %s\n", rec.DecisionID)
	fmt.Printf("Task:       %s (%s)\n", rec.TaskTitle, rec.TaskID)
	green.Printf("Assigned:   %s (%s)\n", rec.AssignedUserName, rec.AssignedUserID)
	fmt.Printf("Confidence: %.2f\n", rec.Confidence)

	if len(rec.PriorityFactors) > 0 {
		fmt.Println("\nPriority factors:")
		for _, f := range rec.PriorityFactors {
			fmt.Printf("  - %s\n", f)
		}
	}
	if len(rec.AlternativeOptions) > 0 {
		fmt.Printf("\nAlternatives: %s\n", strings.Join(rec.AlternativeOptions, ", "))
	}
	if len(rec.ActionItems) > 0 {
		fmt.Println("\nAction items:")
		for _, a := range rec.ActionItems {
			yellow.Printf("  - %s\n", a)
		}
	}

	fmt.Printf("\nRisk: %s (%s)\n", rec.RiskAssessment.OverallRiskLevel, rec.RiskAssessment.Recommendation)
	fmt.Printf("Fairness score: %.2f\n", rec.EthicalAnalysis.FairnessScore)
	for _, c := range rec.EthicalAnalysis.EthicalConcerns {
		yellow.Printf("  concern: %s\n", c)
	}

	fmt.Println("\nReasoning trace:")
	for _, line := range rec.ReasoningTrace {
		fmt.Printf("  %s\n", line)
	}
	if len(rec.DegradedStages) > 0 {
		yellow.Printf("\nDegraded stages (deterministic fallback): %s\n", strings.Join(rec.DegradedStages, ", "))
	}

	fmt.Println()
	fmt.Println("Explanation:")
	fmt.Printf("  %s\n", rec.Explanation)
	fmt.Println()
}
