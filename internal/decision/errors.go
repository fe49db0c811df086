package decision

import (
	"errors"
	"fmt"
)

// ErrInvariantViolation is the sentinel for append-only context violations.
// It indicates a programming defect, not a bad request, and is surfaced
// distinctly from user-facing errors.
var ErrInvariantViolation = errors.New("decision context invariant violation")

// InvariantViolationError reports an attempt to overwrite an artifact
// key that a previous stage already wrote.
type InvariantViolationError struct {
	// Key is the artifact key that was written twice.
	Key string
	// Stage is the stage that attempted the overwrite.
	Stage string
}

// Error implements the error interface.
func (e *InvariantViolationError) Error() string {
	return fmt.Sprintf("stage %q attempted to overwrite artifact %q", e.Stage, e.Key)
}

// Unwrap makes the error match ErrInvariantViolation under errors.Is.
func (e *InvariantViolationError) Unwrap() error {
	return ErrInvariantViolation
}

// FatalStageError wraps a rule-based stage failure. Unlike reasoner
// failures it aborts the whole pipeline.
type FatalStageError struct {
	// Stage is the stage that failed.
	Stage string
	// Err is the underlying failure.
	Err error
}

// Error implements the error interface.
func (e *FatalStageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

// Unwrap returns the underlying failure.
func (e *FatalStageError) Unwrap() error {
	return e.Err
}
