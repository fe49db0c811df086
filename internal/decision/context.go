package decision

import (
	"github.com/delega/delega/pkg/models"
)

// Context is the accumulator threaded through the pipeline for one
// request. The trace and the artifact map are append-only: once a stage
// writes a key, later stages may read but never overwrite it. A Context
// is owned by a single workflow run and must not be shared.
type Context struct {
	task       models.Task
	candidates []models.Candidate
	tasks      []models.Task // set only for conflict resolution runs

	trace     []models.TraceEntry
	artifacts map[string]any
	degraded  []string
}

// NewContext builds the context for a single-task assignment run.
// The candidate slice is copied so concurrent mutation of the caller's
// slice cannot leak into the run.
func NewContext(task models.Task, candidates []models.Candidate) *Context {
	snapshot := make([]models.Candidate, len(candidates))
	copy(snapshot, candidates)
	return &Context{
		task:       task,
		candidates: snapshot,
		artifacts:  make(map[string]any),
	}
}

// NewConflictContext builds the context for a conflict resolution run
// over multiple contending tasks.
func NewConflictContext(tasks []models.Task, candidates []models.Candidate) *Context {
	snapshotT := make([]models.Task, len(tasks))
	copy(snapshotT, tasks)
	snapshotC := make([]models.Candidate, len(candidates))
	copy(snapshotC, candidates)
	c := &Context{
		candidates: snapshotC,
		tasks:      snapshotT,
		artifacts:  make(map[string]any),
	}
	if len(snapshotT) > 0 {
		c.task = snapshotT[0]
	}
	return c
}

// Task returns the task under decision. For conflict runs this is the
// first contending task; use Tasks for the full set.
func (c *Context) Task() models.Task {
	return c.task
}

// Tasks returns the contending tasks of a conflict run.
func (c *Context) Tasks() []models.Task {
	return c.tasks
}

// Candidates returns the candidate snapshot taken at decision start.
func (c *Context) Candidates() []models.Candidate {
	return c.candidates
}

// Put stores a named artifact. Writing a key that already exists
// returns an InvariantViolationError: the context is append-only.
func (c *Context) Put(stage, key string, value any) error {
	if _, ok := c.artifacts[key]; ok {
		return &InvariantViolationError{Key: key, Stage: stage}
	}
	c.artifacts[key] = value
	return nil
}

// Get returns a named artifact written by an earlier stage.
func (c *Context) Get(key string) (any, bool) {
	v, ok := c.artifacts[key]
	return v, ok
}

// AppendTrace adds one narrative entry for the given stage.
func (c *Context) AppendTrace(stage, narrative string) {
	c.trace = append(c.trace, models.TraceEntry{Stage: stage, Narrative: narrative})
}

// MarkDegraded records that a stage fell back to deterministic output.
func (c *Context) MarkDegraded(stage string) {
	c.degraded = append(c.degraded, stage)
}

// Trace returns the accumulated trace in stage order.
func (c *Context) Trace() []models.TraceEntry {
	return c.trace
}

// TraceStrings returns the trace formatted as "Stage: narrative" lines,
// the shape the decision record carries on the wire.
func (c *Context) TraceStrings() []string {
	out := make([]string, len(c.trace))
	for i, e := range c.trace {
		out[i] = e.Stage + ": " + e.Narrative
	}
	return out
}

// DegradedStages returns the stages that used deterministic fallback.
func (c *Context) DegradedStages() []string {
	return c.degraded
}
