package decision

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/delega/delega/internal/reasoner"
)

// Artifact keys written by the pipeline stages.
const (
	artifactCandidateScores   = "candidate_scores"
	artifactShortlist         = "shortlist"
	artifactAdjustedShortlist = "adjusted_shortlist"
	artifactEthicalFlags      = "ethical_flags"
	artifactRiskFactors       = "risk_factors"
	artifactPerformance       = "performance_metrics"
	artifactFinalDecision     = "final_decision"
	artifactExplanation       = "explanation"
)

// ReasoningStage ranks all candidates with the scoring model and keeps
// a shortlist of the top N. The ranking itself is deterministic; the
// reasoner only contributes the narrative rationale.
type ReasoningStage struct {
	llm       reasoner.Reasoner
	shortlist int
	timeout   time.Duration
}

// NewReasoningStage builds the stage. shortlist <= 0 falls back to 3.
func NewReasoningStage(llm reasoner.Reasoner, shortlist int, timeout time.Duration) *ReasoningStage {
	if shortlist <= 0 {
		shortlist = 3
	}
	return &ReasoningStage{llm: llm, shortlist: shortlist, timeout: timeout}
}

// Name implements Stage.
func (s *ReasoningStage) Name() string { return StageReasoning }

// Run implements Stage. An empty candidate list is a fatal input error:
// no later stage can recover a decision from nothing.
func (s *ReasoningStage) Run(ctx context.Context, dc *Context) (*StageResult, error) {
	candidates := dc.Candidates()
	if len(candidates) == 0 {
		return nil, fmt.Errorf("no candidates available for task %s", dc.Task().ID)
	}

	ranked := RankCandidates(candidates, dc.Task())
	top := ranked
	if len(top) > s.shortlist {
		top = top[:s.shortlist]
	}

	result := &StageResult{
		Artifacts: map[string]any{
			artifactCandidateScores: ranked,
			artifactShortlist:       top,
		},
		Narrative: shortlistNarrative(top),
	}

	if s.llm == nil {
		return result, nil
	}

	var reply struct {
		Rationale string `json:"rationale"`
	}
	req := reasoner.Request{
		Stage:   StageReasoning,
		System:  "You are a reasoning agent in a project management system. You analyze task assignment options.",
		Prompt:  reasoningPrompt(dc, top),
		Schema:  `{"rationale": "<why the top-ranked candidates fit this task>"}`,
		Timeout: s.timeout,
	}
	if err := inferJSON(ctx, s.llm, req, &reply); err != nil {
		if !recoverable(err) {
			return nil, err
		}
		result.Degraded = true
		result.Narrative += " (deterministic ranking; reasoning capability unavailable)"
		return result, nil
	}
	if r := strings.TrimSpace(reply.Rationale); r != "" {
		result.Narrative = shortlistNarrative(top) + " " + r
	}
	return result, nil
}

// shortlistNarrative renders the deterministic account of the ranking.
func shortlistNarrative(top []ScoredCandidate) string {
	parts := make([]string, len(top))
	for i, sc := range top {
		parts[i] = fmt.Sprintf("%s (%.2f)", sc.Candidate.Name, sc.Score)
	}
	return fmt.Sprintf("Shortlisted %d candidate(s) by weighted suitability: %s.", len(top), strings.Join(parts, ", "))
}

// reasoningPrompt renders the task and shortlist for the model.
func reasoningPrompt(dc *Context, top []ScoredCandidate) string {
	task, _ := json.MarshalIndent(dc.Task(), "", "  ")
	shortlist, _ := json.MarshalIndent(top, "", "  ")
	return fmt.Sprintf("TASK:\n%s\n\nSHORTLISTED CANDIDATES (best first, with suitability scores):\n%s\n\nExplain in 2-3 sentences why the leading candidates fit, considering workload, experience and skill match.", task, shortlist)
}
