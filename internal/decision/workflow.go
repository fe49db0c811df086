package decision

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/delega/delega/internal/reasoner"
	"github.com/delega/delega/pkg/models"
)

// RunState is one state of the pipeline state machine. Transitions are
// strictly linear and forward-only.
type RunState string

const (
	StatePending     RunState = "PENDING"
	StateReasoning   RunState = "REASONING"
	StateEthics      RunState = "ETHICS"
	StateRisk        RunState = "RISK"
	StatePerformance RunState = "PERFORMANCE"
	StateDecision    RunState = "DECISION"
	StateExplaining  RunState = "EXPLAINING"
	StateComplete    RunState = "COMPLETE"
	StateFailed      RunState = "FAILED"
)

// stateFor maps a stage name to the state machine state entered when
// that stage begins.
func stateFor(stage string) RunState {
	switch stage {
	case StageReasoning:
		return StateReasoning
	case StageEthics:
		return StateEthics
	case StageRisk:
		return StateRisk
	case StagePerformance:
		return StatePerformance
	case StageDecision:
		return StateDecision
	case StageExplainability:
		return StateExplaining
	default:
		return StateFailed
	}
}

// Config holds the tunables for building workflows.
type Config struct {
	// Reasoner is the inference capability. Nil runs every stage in
	// rule-based mode, which is useful offline and in tests.
	Reasoner reasoner.Reasoner
	// ShortlistSize is the number of candidates the reasoning stage
	// keeps. Zero falls back to 3.
	ShortlistSize int
	// MaxWorkload is the workload ceiling that triggers an ethics
	// demotion. Zero falls back to 90.
	MaxWorkload float64
	// PipelineTimeout bounds a whole run. Zero falls back to 180s.
	PipelineTimeout time.Duration
}

// DefaultPipelineTimeout bounds a full pipeline run.
const DefaultPipelineTimeout = 180 * time.Second

// Workflow is the decision orchestrator: a fixed directed pipeline of
// stages threading one Context per request. A Workflow is stateless
// across requests and safe for concurrent Execute calls; all per-run
// state lives in the Run.
type Workflow struct {
	stages  []Stage
	timeout time.Duration
	now     func() time.Time
	newID   func() string
}

// NewWorkflow builds the standard assignment pipeline:
// Reasoning -> Ethics -> Risk -> Performance -> Decision -> Explainability.
func NewWorkflow(cfg Config) *Workflow {
	timeout := cfg.PipelineTimeout
	if timeout <= 0 {
		timeout = DefaultPipelineTimeout
	}
	// Each reasoning-backed stage gets an equal slice of the pipeline
	// budget; the shared context deadline still caps the whole run.
	slice := timeout / 6

	return &Workflow{
		stages: []Stage{
			NewReasoningStage(cfg.Reasoner, cfg.ShortlistSize, slice),
			NewEthicsStage(cfg.Reasoner, cfg.MaxWorkload, slice),
			NewRiskStage(cfg.Reasoner, slice),
			NewPerformanceStage(cfg.Reasoner, slice),
			NewDecideStage(),
			NewExplainStage(cfg.Reasoner, slice),
		},
		timeout: timeout,
		now:     time.Now,
		newID:   func() string { return "DEC-" + uuid.NewString() },
	}
}

// Run is one pipeline execution over one Context. It is owned by a
// single goroutine and never reused.
type Run struct {
	w      *Workflow
	dc     *Context
	state  RunState
	record *models.DecisionRecord
}

// NewRun prepares a run in the PENDING state with a fresh context built
// from the task and the candidate snapshot.
func (w *Workflow) NewRun(task models.Task, candidates []models.Candidate) *Run {
	return &Run{
		w:     w,
		dc:    NewContext(task, candidates),
		state: StatePending,
	}
}

// State returns the current state of the run.
func (r *Run) State() RunState {
	return r.state
}

// Record returns the decision record after a COMPLETE run, nil otherwise.
func (r *Run) Record() *models.DecisionRecord {
	return r.record
}

// Execute drives the run to a terminal state. It always finishes in
// COMPLETE or FAILED: degraded stages advance the machine, only fatal
// errors (rule-based failures, invariant violations, cancellation)
// abort it. No partial record is ever produced on failure.
func (r *Run) Execute(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.w.timeout)
	defer cancel()

	for _, stage := range r.w.stages {
		r.state = stateFor(stage.Name())

		if err := ctx.Err(); err != nil {
			r.state = StateFailed
			return fmt.Errorf("pipeline aborted before stage %s: %w", stage.Name(), err)
		}

		res, err := stage.Run(ctx, r.dc)
		if err != nil {
			r.state = StateFailed
			return &FatalStageError{Stage: stage.Name(), Err: err}
		}

		for key, value := range res.Artifacts {
			if err := r.dc.Put(stage.Name(), key, value); err != nil {
				r.state = StateFailed
				return err
			}
		}
		r.dc.AppendTrace(stage.Name(), res.Narrative)
		if res.Degraded {
			r.dc.MarkDegraded(stage.Name())
			log.Printf("[pipeline] stage %s degraded to deterministic fallback", stage.Name())
		}
	}

	record, err := r.buildRecord()
	if err != nil {
		r.state = StateFailed
		return err
	}
	r.record = record
	r.state = StateComplete
	return nil
}

// buildRecord reduces the final context to an immutable DecisionRecord.
func (r *Run) buildRecord() (*models.DecisionRecord, error) {
	outcome, err := outcomeFrom(r.dc)
	if err != nil {
		return nil, err
	}
	ethics, err := ethicsFrom(r.dc)
	if err != nil {
		return nil, err
	}
	risk, err := riskFrom(r.dc)
	if err != nil {
		return nil, err
	}

	var perf models.PerformanceMetrics
	if v, ok := r.dc.Get(artifactPerformance); ok {
		if m, ok := v.(models.PerformanceMetrics); ok {
			perf = m
		}
	}
	explanation := ""
	if v, ok := r.dc.Get(artifactExplanation); ok {
		if e, ok := v.(string); ok {
			explanation = e
		}
	}

	task := r.dc.Task()
	return &models.DecisionRecord{
		DecisionID:         r.w.newID(),
		TaskID:             task.ID,
		TaskTitle:          task.Title,
		AssignedUserID:     outcome.CandidateID,
		AssignedUserName:   outcome.CandidateName,
		Confidence:         outcome.Confidence,
		Explanation:        explanation,
		EthicalAnalysis:    ethics.Analysis,
		RiskAssessment:     risk.Assessment,
		PerformanceMetrics: perf,
		ReasoningTrace:     r.dc.TraceStrings(),
		PriorityFactors:    outcome.PriorityFactors,
		AlternativeOptions: outcome.Alternatives,
		ActionItems:        outcome.ActionItems,
		DegradedStages:     r.dc.DegradedStages(),
		Timestamp:          r.w.now().UTC(),
	}, nil
}

// Execute runs the full pipeline for one task and returns the record.
// It is the convenience wrapper around NewRun for callers that do not
// need to observe intermediate states.
func (w *Workflow) Execute(ctx context.Context, task models.Task, candidates []models.Candidate) (*models.DecisionRecord, error) {
	run := w.NewRun(task, candidates)
	if err := run.Execute(ctx); err != nil {
		return nil, err
	}
	return run.Record(), nil
}
