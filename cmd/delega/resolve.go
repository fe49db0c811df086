package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var resolveJSON bool

var resolveCmd = &cobra.Command{
	Use:   "resolve <task-id> <task-id>...",
	Short: "Resolve tasks contending for the same people",
	Long: `Resolve an assignment conflict between two or more tasks.

Candidates are ranked per task; whenever several tasks prefer the same
person, the highest-priority task wins: harder tasks first, then the
earlier deadline, then the task id. Deferred tasks are listed so they
can be reassigned or rescheduled. The resolution is appended to the
audit trail.

Examples:
  delega resolve TASK-001 TASK-002
  delega resolve TASK-001 TASK-002 TASK-003 --json`,
	Args: cobra.MinimumNArgs(2),
	RunE: runResolve,
}

func init() {
	resolveCmd.Flags().BoolVar(&resolveJSON, "json", false, "Output in JSON format")
}

func runResolve(cmd *cobra.Command, args []string) error {
	svc, cleanup, err := newService(false)
	if err != nil {
		return err
	}
	defer cleanup()

	record, err := svc.ResolveConflicts(context.Background(), args)
	if err != nil {
		return err
	}

	if resolveJSON {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(record)
	}

	bold := color.New(color.Bold)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	fmt.Println()
	bold.Printf("Resolution %s\n", record.ResolutionID)
	fmt.Printf("Tasks: %s\n", strings.Join(record.TaskIDs, ", "))

	if len(record.Outcomes) == 0 {
		green.Println("\nNo conflicts: every task prefers a different candidate.")
	}
	for _, o := range record.Outcomes {
		fmt.Println()
		fmt.Printf("Candidate %s\n", o.CandidateID)
		green.Printf("  wins: %s (%s)\n", o.WinnerTaskID, o.Reason)
		if len(o.LoserTaskIDs) > 0 {
			yellow.Printf("  deferred: %s\n", strings.Join(o.LoserTaskIDs, ", "))
		}
	}

	fmt.Printf("\nRisk: %s (%s)\n", record.RiskAssessment.OverallRiskLevel, record.RiskAssessment.Recommendation)
	fmt.Println("\nReasoning trace:")
	for _, line := range record.ReasoningTrace {
		fmt.Printf("  %s\n", line)
	}
	fmt.Println()
	fmt.Println("Explanation:")
	fmt.Printf("  %s\n", record.Explanation)
	fmt.Println()
	return nil
}
