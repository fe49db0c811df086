package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/delega/delega/internal/config"
	"github.com/delega/delega/internal/provider"
)

var rosterJSON bool

var rosterCmd = &cobra.Command{
	Use:   "roster [file]",
	Short: "Validate and display a roster file",
	Long: `Load a YAML roster and list its tasks and candidates.

Without an argument the configured roster.path is used. Loading also
validates the file, so this doubles as a lint before pointing assign at
a roster.

Examples:
  delega roster                 # Configured roster
  delega roster ./team.yaml     # A specific file
  delega roster --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRoster,
}

func init() {
	rosterCmd.Flags().BoolVar(&rosterJSON, "json", false, "Output in JSON format")
}

func runRoster(cmd *cobra.Command, args []string) error {
	path := ""
	if len(args) > 0 {
		path = args[0]
	} else {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		path = cfg.Roster.Path
	}
	if path == "" {
		return fmt.Errorf("no roster file: pass a path or set roster.path")
	}

	rp, err := provider.NewRosterProvider(path)
	if err != nil {
		return err
	}
	defer rp.Close()

	tasks, candidates := rp.Snapshot()

	if rosterJSON {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(map[string]any{
			"tasks":      tasks,
			"candidates": candidates,
		})
	}

	bold := color.New(color.Bold)
	yellow := color.New(color.FgYellow)

	bold.Printf("Roster %s\n", path)
	fmt.Printf("\nTasks (%d):\n", len(tasks))
	for _, t := range tasks {
		fmt.Printf("  %-12s %-10s %s\n", t.ID, t.Difficulty, t.Title)
		if len(t.RequiredSkills) > 0 {
			fmt.Printf("               skills: %s\n", strings.Join(t.RequiredSkills, ", "))
		}
	}
	fmt.Printf("\nCandidates (%d):\n", len(candidates))
	for _, c := range candidates {
		fmt.Printf("  %-12s %-20s workload %3.0f", c.ID, c.Name, c.Workload)
		if !c.Availability {
			yellow.Printf("  unavailable")
		}
		fmt.Println()
		if len(c.Skills) > 0 {
			fmt.Printf("               skills: %s\n", strings.Join(c.Skills, ", "))
		}
	}
	return nil
}
