package models

import (
	"strings"
	"time"
)

// Difficulty represents how demanding a task is.
type Difficulty string

const (
	// DifficultyLow indicates a routine task suitable for growth assignments.
	DifficultyLow Difficulty = "LOW"
	// DifficultyMedium indicates a task of average complexity.
	DifficultyMedium Difficulty = "MEDIUM"
	// DifficultyHigh indicates a demanding task requiring proven experience.
	DifficultyHigh Difficulty = "HIGH"
	// DifficultyCritical indicates a task whose failure endangers the project.
	DifficultyCritical Difficulty = "CRITICAL"
)

// Valid returns true if the difficulty is a known value.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyLow, DifficultyMedium, DifficultyHigh, DifficultyCritical:
		return true
	default:
		return false
	}
}

// Rank returns the priority rank of the difficulty, higher is more urgent.
// Used by the conflict resolution priority rule.
func (d Difficulty) Rank() int {
	switch d {
	case DifficultyCritical:
		return 4
	case DifficultyHigh:
		return 3
	case DifficultyMedium:
		return 2
	case DifficultyLow:
		return 1
	default:
		return 0
	}
}

// ParseDifficulty normalizes a difficulty string. Unknown values map to MEDIUM.
func ParseDifficulty(s string) Difficulty {
	d := Difficulty(strings.ToUpper(strings.TrimSpace(s)))
	if !d.Valid() {
		return DifficultyMedium
	}
	return d
}

// TaskStatus represents the current state of a task.
type TaskStatus string

const (
	// TaskStatusPending indicates the task has not started.
	TaskStatusPending TaskStatus = "pending"
	// TaskStatusInProgress indicates the task is being worked on.
	TaskStatusInProgress TaskStatus = "in_progress"
	// TaskStatusBlocked indicates the task cannot proceed.
	TaskStatusBlocked TaskStatus = "blocked"
	// TaskStatusCompleted indicates the task finished successfully.
	TaskStatusCompleted TaskStatus = "completed"
)

// Task represents a unit of project work awaiting assignment.
// A Task is treated as immutable for the duration of a decision.
type Task struct {
	// ID is the unique identifier for this task.
	ID string `json:"id" yaml:"id"`
	// Title is the short description of the task.
	Title string `json:"title" yaml:"title"`
	// Description provides detailed information about the task.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	// Difficulty is the difficulty level used to select scoring weights.
	Difficulty Difficulty `json:"difficulty" yaml:"difficulty"`
	// RequiredSkills lists the skills the assignee should have.
	RequiredSkills []string `json:"required_skills,omitempty" yaml:"required_skills,omitempty"`
	// Deadline is when the task is due, if any.
	Deadline *time.Time `json:"deadline,omitempty" yaml:"deadline,omitempty"`
	// Status is the current state of the task.
	Status TaskStatus `json:"status" yaml:"status"`
	// ProjectID is the project this task belongs to, if any.
	ProjectID string `json:"project_id,omitempty" yaml:"project_id,omitempty"`
	// TeamID is the team this task belongs to, if any.
	TeamID string `json:"team_id,omitempty" yaml:"team_id,omitempty"`
}
