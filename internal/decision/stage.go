package decision

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/delega/delega/internal/reasoner"
)

// Stage names, in pipeline order. Each stage writes its artifacts under
// its own name and appends exactly one trace entry per run.
const (
	StageReasoning      = "Reasoning"
	StageEthics         = "Ethics"
	StageRisk           = "Risk"
	StagePerformance    = "Performance"
	StageDecision       = "Decision"
	StageExplainability = "Explainability"
)

// StageResult is the structured partial output of one stage run.
type StageResult struct {
	// Artifacts are named intermediate results merged into the context.
	Artifacts map[string]any
	// Narrative is appended verbatim to the reasoning trace.
	Narrative string
	// Degraded is set when a reasoning-backed stage fell back to its
	// deterministic default after a recoverable failure.
	Degraded bool
}

// Stage is one unit of the decision pipeline. Stages are stateless
// between invocations: all per-request state lives in the Context.
// A nil error with Degraded set still advances the pipeline; a non-nil
// error is fatal and aborts the run.
type Stage interface {
	// Name returns the stage name used for artifacts and the trace.
	Name() string
	// Run consumes the accumulated context and produces a partial result.
	Run(ctx context.Context, dc *Context) (*StageResult, error)
}

// inferJSON performs one reasoning call with the pipeline's bounded
// retry policy: on a recoverable failure (timeout or schema mismatch,
// including a reply that decodes but does not fit the stage schema)
// it retries exactly once with stricter formatting constraints, then
// reports the failure so the stage can fall back deterministically.
func inferJSON(ctx context.Context, r reasoner.Reasoner, req reasoner.Request, out any) error {
	err := inferDecode(ctx, r, req, out)
	if recoverable(err) {
		req.Strict = true
		log.Printf("[pipeline] stage %s: %v, retrying with strict formatting", req.Stage, err)
		err = inferDecode(ctx, r, req, out)
	}
	return err
}

// inferDecode is one inference attempt: call the reasoner and decode
// the reply into the stage schema. Any decode failure counts as a
// schema mismatch.
func inferDecode(ctx context.Context, r reasoner.Reasoner, req reasoner.Request, out any) error {
	raw, err := r.Infer(ctx, req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %v", reasoner.ErrSchema, err)
	}
	return nil
}

// recoverable reports whether an inference error should trigger the
// retry-then-fallback path rather than aborting the pipeline.
func recoverable(err error) bool {
	return errors.Is(err, reasoner.ErrTimeout) || errors.Is(err, reasoner.ErrSchema)
}

// stageBudget derives the per-call timeout for one reasoning-backed
// stage from the remaining pipeline deadline, so that a slow early
// stage cannot starve the stages behind it.
func stageBudget(ctx context.Context, stagesLeft int, slice time.Duration) time.Duration {
	if deadline, ok := ctx.Deadline(); ok && stagesLeft > 0 {
		remaining := time.Until(deadline) / time.Duration(stagesLeft)
		if remaining < slice {
			return remaining
		}
	}
	return slice
}
