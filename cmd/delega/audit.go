package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/delega/delega/internal/audit"
)

var (
	auditJSON  bool
	auditType  string
	auditSince string
	auditUntil string
)

var auditCmd = &cobra.Command{
	Use:   "audit [task-id]",
	Short: "Inspect the decision audit trail",
	Long: `Query the append-only audit trail of decisions and resolutions.

Entries come back in the order they were recorded. With a task id, only
entries that concern that task are shown.

Examples:
  delega audit                          # Everything, oldest first
  delega audit TASK-001                 # One task's history
  delega audit --type resolution        # Conflict resolutions only
  delega audit --since 2026-01-01 --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAuditTrail,
}

func init() {
	auditCmd.Flags().BoolVar(&auditJSON, "json", false, "Output in JSON format")
	auditCmd.Flags().StringVar(&auditType, "type", "", "Filter by entry type (decision or resolution)")
	auditCmd.Flags().StringVar(&auditSince, "since", "", "Only entries recorded on or after this date (YYYY-MM-DD)")
	auditCmd.Flags().StringVar(&auditUntil, "until", "", "Only entries recorded before this date (YYYY-MM-DD)")
}

func runAuditTrail(cmd *cobra.Command, args []string) error {
	filter := audit.Filter{}
	if len(args) > 0 {
		filter.TaskID = args[0]
	}
	switch auditType {
	case "":
	case string(audit.EntryDecision), string(audit.EntryResolution):
		filter.Type = audit.EntryType(auditType)
	default:
		return fmt.Errorf("unknown entry type %q: use decision or resolution", auditType)
	}
	if auditSince != "" {
		t, err := time.Parse("2006-01-02", auditSince)
		if err != nil {
			return fmt.Errorf("invalid --since date: %w", err)
		}
		filter.Since = t
	}
	if auditUntil != "" {
		t, err := time.Parse("2006-01-02", auditUntil)
		if err != nil {
			return fmt.Errorf("invalid --until date: %w", err)
		}
		filter.Until = t
	}

	svc, cleanup, err := newService(true)
	if err != nil {
		return err
	}
	defer cleanup()

	entries, err := svc.AuditTrail(context.Background(), filter)
	if err != nil {
		return err
	}

	if auditJSON {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(entries)
	}

	if len(entries) == 0 {
		fmt.Println("No audit entries match.")
		return nil
	}

	bold := color.New(color.Bold)
	for _, e := range entries {
		bold.Printf("#%d %s %s\n", e.Seq, e.Type, e.RefID)
		fmt.Printf("   tasks: %v\n", e.TaskIDs)
		fmt.Printf("   at:    %s\n", e.RecordedAt.Format(time.RFC3339))
	}
	fmt.Printf("\n%d entr%s.\n", len(entries), plural(len(entries), "y", "ies"))
	return nil
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
