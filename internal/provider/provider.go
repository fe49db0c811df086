// Package provider supplies tasks and candidates to the decision
// pipeline. Two implementations exist: an HTTP client against the
// project management backend, and a local YAML roster for offline use.
package provider

import (
	"context"
	"errors"

	"github.com/delega/delega/pkg/models"
)

// ErrNotFound is returned when a requested task does not exist.
var ErrNotFound = errors.New("not found")

// Provider resolves task ids to tasks and tasks to their candidate
// pools. Implementations return point-in-time snapshots; the pipeline
// never re-reads during a run.
type Provider interface {
	// Task returns the task with the given id, or ErrNotFound.
	Task(ctx context.Context, id string) (models.Task, error)
	// Tasks returns every listed task; a single missing id fails the
	// whole lookup with ErrNotFound.
	Tasks(ctx context.Context, ids []string) ([]models.Task, error)
	// Candidates returns the members eligible for the task. The pool is
	// the task's team when one is set, the whole roster otherwise.
	Candidates(ctx context.Context, task models.Task) ([]models.Candidate, error)
}
