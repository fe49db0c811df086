package decision

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/delega/delega/internal/reasoner"
)

// ExplainStage synthesizes the full trace into a single human-readable
// explanation. It reads every prior artifact but never alters decision
// data; a reasoning failure falls back to a deterministic summary.
type ExplainStage struct {
	llm     reasoner.Reasoner
	timeout time.Duration
}

// NewExplainStage builds the stage.
func NewExplainStage(llm reasoner.Reasoner, timeout time.Duration) *ExplainStage {
	return &ExplainStage{llm: llm, timeout: timeout}
}

// Name implements Stage.
func (s *ExplainStage) Name() string { return StageExplainability }

// Run implements Stage.
func (s *ExplainStage) Run(ctx context.Context, dc *Context) (*StageResult, error) {
	outcome, err := outcomeFrom(dc)
	if err != nil {
		return nil, err
	}

	fallback := deterministicExplanation(dc, outcome)
	result := &StageResult{
		Artifacts: map[string]any{artifactExplanation: fallback},
		Narrative: "Explanation generated.",
	}

	if s.llm == nil {
		return result, nil
	}

	var reply struct {
		Explanation string `json:"explanation"`
	}
	req := reasoner.Request{
		Stage:   StageExplainability,
		System:  "You are an explainability agent in a project management system. You write clear explanations project managers can trust.",
		Prompt:  explainPrompt(dc, outcome),
		Schema:  `{"explanation": "<3-5 paragraphs covering the decision, the key factors, fairness, risks and follow-ups>"}`,
		Timeout: s.timeout,
	}
	if err := inferJSON(ctx, s.llm, req, &reply); err != nil {
		if !recoverable(err) {
			return nil, err
		}
		result.Degraded = true
		result.Narrative = "Explanation generated from deterministic summary (reasoning capability unavailable)."
		return result, nil
	}
	if e := strings.TrimSpace(reply.Explanation); e != "" {
		result.Artifacts[artifactExplanation] = e
	}
	return result, nil
}

// deterministicExplanation composes the fallback explanation from the
// artifacts the earlier stages already wrote.
func deterministicExplanation(dc *Context, outcome Outcome) string {
	var b strings.Builder
	task := dc.Task()
	fmt.Fprintf(&b, "Task %q (%s difficulty) was assigned to %s with confidence %.2f.",
		task.Title, task.Difficulty, outcome.CandidateName, outcome.Confidence)
	if len(outcome.PriorityFactors) > 0 {
		fmt.Fprintf(&b, " Deciding factors: %s.", strings.Join(outcome.PriorityFactors, "; "))
	}
	if ethics, err := ethicsFrom(dc); err == nil {
		if len(ethics.Analysis.EthicalConcerns) > 0 {
			fmt.Fprintf(&b, " Fairness concerns noted: %s.", strings.Join(ethics.Analysis.EthicalConcerns, "; "))
		} else {
			b.WriteString(" No fairness concerns were raised.")
		}
	}
	if risk, err := riskFrom(dc); err == nil {
		fmt.Fprintf(&b, " Overall risk was assessed as %s with recommendation %q.",
			risk.Assessment.OverallRiskLevel, risk.Assessment.Recommendation)
	}
	if len(outcome.Alternatives) > 0 {
		fmt.Fprintf(&b, " Alternatives considered: %s.", strings.Join(outcome.Alternatives, ", "))
	}
	return b.String()
}

// explainPrompt renders everything accumulated so far for the model.
func explainPrompt(dc *Context, outcome Outcome) string {
	task, _ := json.MarshalIndent(dc.Task(), "", "  ")
	decided, _ := json.MarshalIndent(outcome, "", "  ")
	trace, _ := json.MarshalIndent(dc.TraceStrings(), "", "  ")
	return fmt.Sprintf("TASK:\n%s\n\nFINAL DECISION:\n%s\n\nCOMPLETE REASONING TRACE:\n%s\n\nWrite a clear explanation for a project manager: what was decided, why, how fairness was considered, what risks were identified, and any follow-ups.", task, decided, trace)
}

// outcomeFrom reads the decision artifact.
func outcomeFrom(dc *Context) (Outcome, error) {
	v, ok := dc.Get(artifactFinalDecision)
	if !ok {
		return Outcome{}, fmt.Errorf("stage %s: required decision artifact missing", StageExplainability)
	}
	o, ok := v.(Outcome)
	if !ok {
		return Outcome{}, fmt.Errorf("stage %s: decision artifact malformed", StageExplainability)
	}
	return o, nil
}
