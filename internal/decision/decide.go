package decision

import (
	"context"
	"fmt"
	"strings"

	"github.com/delega/delega/pkg/models"
)

// Outcome is the structured artifact the decision stage writes.
type Outcome struct {
	// CandidateID is the chosen assignee.
	CandidateID string `json:"candidate_id"`
	// CandidateName is the chosen assignee's name.
	CandidateName string `json:"candidate_name"`
	// Confidence is the adjusted score of the winner, in [0,1].
	Confidence float64 `json:"confidence"`
	// RawScore is the winner's score before penalties.
	RawScore float64 `json:"raw_score"`
	// PriorityFactors lists the factors that decided the outcome.
	PriorityFactors []string `json:"priority_factors"`
	// Alternatives lists the other shortlisted candidate ids in order.
	Alternatives []string `json:"alternatives"`
	// ActionItems lists follow-ups derived from the risk assessment.
	ActionItems []string `json:"action_items,omitempty"`
}

// DecideStage selects the final candidate by a deterministic reduction:
// adjusted = score - ethics penalty - risk penalty, clipped to [0,1].
// It is rule-based: any missing input artifact is a fatal error, and no
// reasoning call is made, so the same inputs always yield the same
// assignment.
type DecideStage struct{}

// NewDecideStage builds the stage.
func NewDecideStage() *DecideStage { return &DecideStage{} }

// Name implements Stage.
func (s *DecideStage) Name() string { return StageDecision }

// Run implements Stage.
func (s *DecideStage) Run(ctx context.Context, dc *Context) (*StageResult, error) {
	shortlist, err := shortlistFrom(dc, StageDecision)
	if err != nil {
		return nil, err
	}
	ethics, err := ethicsFrom(dc)
	if err != nil {
		return nil, err
	}
	risk, err := riskFrom(dc)
	if err != nil {
		return nil, err
	}

	type adjusted struct {
		sc    ScoredCandidate
		score float64
	}
	all := make([]adjusted, 0, len(shortlist))
	for _, sc := range shortlist {
		id := sc.Candidate.ID
		a := clamp01(sc.Score - ethics.Penalties[id] - risk.Penalties[id])
		all = append(all, adjusted{sc: sc, score: a})
	}

	// Winner by adjusted score. Equal adjusted scores after penalty
	// application prefer the higher pre-penalty score, then the lower
	// workload, then the candidate id.
	best := all[0]
	for _, a := range all[1:] {
		if a.score > best.score {
			best = a
			continue
		}
		if a.score == best.score {
			if a.sc.Score > best.sc.Score {
				best = a
				continue
			}
			if a.sc.Score == best.sc.Score && lessScored(a.sc, best.sc) {
				best = a
			}
		}
	}

	outcome := Outcome{
		CandidateID:     best.sc.Candidate.ID,
		CandidateName:   best.sc.Candidate.Name,
		Confidence:      best.score,
		RawScore:        best.sc.Score,
		PriorityFactors: priorityFactors(dc.Task(), best.sc, ethics, risk),
	}
	for _, a := range all {
		if a.sc.Candidate.ID != best.sc.Candidate.ID {
			outcome.Alternatives = append(outcome.Alternatives, a.sc.Candidate.ID)
		}
	}
	if risk.Assessment.OverallRiskLevel != models.RiskLevelLow {
		outcome.ActionItems = append(outcome.ActionItems,
			fmt.Sprintf("review %s-risk assignment before the deadline", risk.Assessment.OverallRiskLevel))
	}

	return &StageResult{
		Artifacts: map[string]any{artifactFinalDecision: outcome},
		Narrative: fmt.Sprintf("Selected %s with adjusted score %.2f (raw %.2f, ethics penalty %.2f, risk penalty %.2f).",
			outcome.CandidateName, outcome.Confidence, outcome.RawScore,
			ethics.Penalties[outcome.CandidateID], risk.Penalties[outcome.CandidateID]),
	}, nil
}

// priorityFactors names the dominant weights and any penalties that
// shaped the final reduction.
func priorityFactors(task models.Task, winner ScoredCandidate, ethics EthicsFindings, risk RiskFindings) []string {
	w := WeightsFor(task.Difficulty)
	factors := []string{
		fmt.Sprintf("difficulty %s weights: experience %.2f, skill %.2f, confidence %.2f, workload %.2f",
			task.Difficulty, w.Experience, w.Skill, w.Confidence, w.Workload),
	}
	if p := ethics.Penalties[winner.Candidate.ID]; p > 0 {
		factors = append(factors, fmt.Sprintf("ethics penalty %.2f applied", p))
	}
	if p := risk.Penalties[winner.Candidate.ID]; p > 0 {
		factors = append(factors, fmt.Sprintf("risk penalty %.2f applied", p))
	}
	if match := winner.Candidate.SkillMatch(task.RequiredSkills); match >= 1.0 && len(task.RequiredSkills) > 0 {
		factors = append(factors, fmt.Sprintf("full coverage of required skills (%s)", strings.Join(task.RequiredSkills, ", ")))
	}
	return factors
}

// ethicsFrom reads the ethics artifact; missing means a rule-based
// input defect, which is fatal.
func ethicsFrom(dc *Context) (EthicsFindings, error) {
	v, ok := dc.Get(artifactEthicalFlags)
	if !ok {
		return EthicsFindings{}, fmt.Errorf("stage %s: required ethics artifact missing", StageDecision)
	}
	f, ok := v.(EthicsFindings)
	if !ok {
		return EthicsFindings{}, fmt.Errorf("stage %s: ethics artifact malformed", StageDecision)
	}
	return f, nil
}

// riskFrom reads the risk artifact.
func riskFrom(dc *Context) (RiskFindings, error) {
	v, ok := dc.Get(artifactRiskFactors)
	if !ok {
		return RiskFindings{}, fmt.Errorf("stage %s: required risk artifact missing", StageDecision)
	}
	f, ok := v.(RiskFindings)
	if !ok {
		return RiskFindings{}, fmt.Errorf("stage %s: risk artifact malformed", StageDecision)
	}
	return f, nil
}
