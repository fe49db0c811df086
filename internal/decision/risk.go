package decision

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/delega/delega/internal/reasoner"
	"github.com/delega/delega/pkg/models"
)

// Penalties applied per overall risk level by the Decision stage.
var riskPenalties = map[models.RiskLevel]float64{
	models.RiskLevelLow:    0.0,
	models.RiskLevelMedium: 0.10,
	models.RiskLevelHigh:   0.20,
}

// RiskFindings is the structured artifact the risk stage writes.
type RiskFindings struct {
	// Assessment is the evaluation for the leading candidate, carried
	// into the record.
	Assessment models.RiskAssessment `json:"assessment"`
	// Penalties maps candidate id to the score penalty to apply.
	Penalties map[string]float64 `json:"penalties"`
	// Levels maps candidate id to its overall risk level.
	Levels map[string]models.RiskLevel `json:"levels"`
}

// RiskStage assesses deadline and quality risk for every shortlisted
// candidate and attaches the overall level to the leader. Risk levels
// are pure rules; the reasoner contributes the recommendation prose.
type RiskStage struct {
	llm     reasoner.Reasoner
	now     func() time.Time
	timeout time.Duration
}

// NewRiskStage builds the stage.
func NewRiskStage(llm reasoner.Reasoner, timeout time.Duration) *RiskStage {
	return &RiskStage{llm: llm, now: time.Now, timeout: timeout}
}

// Name implements Stage.
func (s *RiskStage) Name() string { return StageRisk }

// Run implements Stage.
func (s *RiskStage) Run(ctx context.Context, dc *Context) (*StageResult, error) {
	shortlist, err := shortlistFrom(dc, StageRisk)
	if err != nil {
		return nil, err
	}

	findings := s.evaluate(dc.Task(), shortlist)

	result := &StageResult{
		Artifacts: map[string]any{artifactRiskFactors: findings},
		Narrative: riskNarrative(shortlist[0].Candidate, findings),
	}

	if s.llm == nil {
		return result, nil
	}

	var reply struct {
		Recommendation string `json:"recommendation"`
		Reasoning      string `json:"reasoning"`
	}
	req := reasoner.Request{
		Stage:   StageRisk,
		System:  "You are a risk assessment agent in a project management system. You evaluate deadline, quality and workload risk.",
		Prompt:  riskPrompt(dc, shortlist, findings),
		Schema:  `{"recommendation": "<approve|modify|reject>", "reasoning": "<explanation>"}`,
		Timeout: s.timeout,
	}
	if err := inferJSON(ctx, s.llm, req, &reply); err != nil {
		if !recoverable(err) {
			return nil, err
		}
		result.Degraded = true
		result.Narrative += " (deterministic assessment; reasoning capability unavailable)"
		return result, nil
	}

	switch reply.Recommendation {
	case "approve", "modify", "reject":
		findings.Assessment.Recommendation = reply.Recommendation
	}
	if r := strings.TrimSpace(reply.Reasoning); r != "" {
		findings.Assessment.Reasoning = r
		result.Narrative = riskNarrative(shortlist[0].Candidate, findings) + " " + r
	}
	result.Artifacts[artifactRiskFactors] = findings
	return result, nil
}

// evaluate applies the deterministic risk rules per candidate and
// builds the leader's assessment.
func (s *RiskStage) evaluate(task models.Task, shortlist []ScoredCandidate) RiskFindings {
	findings := RiskFindings{
		Penalties: make(map[string]float64),
		Levels:    make(map[string]models.RiskLevel),
	}

	for _, sc := range shortlist {
		level := overallRisk(s.candidateRisks(task, sc.Candidate))
		findings.Levels[sc.Candidate.ID] = level
		findings.Penalties[sc.Candidate.ID] = riskPenalties[level]
	}

	leader := shortlist[0].Candidate
	factors := s.candidateRisks(task, leader)
	level := overallRisk(factors)
	recommendation := "approve"
	if level == models.RiskLevelHigh {
		recommendation = "modify"
	}
	findings.Assessment = models.RiskAssessment{
		OverallRiskLevel: level,
		RiskFactors:      factors,
		Recommendation:   recommendation,
		Reasoning:        "Deterministic deadline, quality and workload rules applied.",
	}
	return findings
}

// candidateRisks computes the deadline, quality and workload factors
// for one candidate.
func (s *RiskStage) candidateRisks(task models.Task, c models.Candidate) []models.RiskFactor {
	factors := []models.RiskFactor{
		{Factor: "deadline", Level: s.deadlineRisk(task), Mitigation: "monitor progress against the deadline"},
		{Factor: "quality", Level: qualityRisk(c, task), Mitigation: "pair with a reviewer holding the missing skills"},
		{Factor: "workload", Level: workloadRisk(c), Mitigation: "rebalance queued work before assignment"},
	}
	return factors
}

func (s *RiskStage) deadlineRisk(task models.Task) models.RiskLevel {
	return deadlineRiskAt(task, s.now())
}

// deadlineRiskAt maps time-to-deadline onto a level. No deadline is low
// risk; under 24 hours is high, under 72 hours medium.
func deadlineRiskAt(task models.Task, now time.Time) models.RiskLevel {
	if task.Deadline == nil {
		return models.RiskLevelLow
	}
	until := task.Deadline.Sub(now)
	switch {
	case until < 24*time.Hour:
		return models.RiskLevelHigh
	case until < 72*time.Hour:
		return models.RiskLevelMedium
	default:
		return models.RiskLevelLow
	}
}

// qualityRisk maps skill coverage onto a level. Two thirds coverage or
// better is low risk, one third medium, anything less high.
func qualityRisk(c models.Candidate, task models.Task) models.RiskLevel {
	match := c.SkillMatch(task.RequiredSkills)
	switch {
	case match >= 2.0/3.0:
		return models.RiskLevelLow
	case match >= 1.0/3.0:
		return models.RiskLevelMedium
	default:
		return models.RiskLevelHigh
	}
}

// workloadRisk maps current workload onto a level.
func workloadRisk(c models.Candidate) models.RiskLevel {
	switch {
	case c.Workload > 90:
		return models.RiskLevelHigh
	case c.Workload > 70:
		return models.RiskLevelMedium
	default:
		return models.RiskLevelLow
	}
}

// overallRisk is the worst of the individual factors.
func overallRisk(factors []models.RiskFactor) models.RiskLevel {
	overall := models.RiskLevelLow
	for _, f := range factors {
		if rank(f.Level) > rank(overall) {
			overall = f.Level
		}
	}
	return overall
}

func rank(l models.RiskLevel) int {
	switch l {
	case models.RiskLevelHigh:
		return 3
	case models.RiskLevelMedium:
		return 2
	default:
		return 1
	}
}

// riskNarrative renders the deterministic account of the assessment.
func riskNarrative(leader models.Candidate, f RiskFindings) string {
	return fmt.Sprintf("Overall %s risk for leading candidate %s; recommendation: %s.",
		f.Assessment.OverallRiskLevel, leader.Name, f.Assessment.Recommendation)
}

// riskPrompt renders the task and per-candidate levels for the model.
func riskPrompt(dc *Context, shortlist []ScoredCandidate, f RiskFindings) string {
	task, _ := json.MarshalIndent(dc.Task(), "", "  ")
	assessment, _ := json.MarshalIndent(f.Assessment, "", "  ")
	list, _ := json.MarshalIndent(shortlist, "", "  ")
	return fmt.Sprintf("TASK:\n%s\n\nSHORTLIST:\n%s\n\nDETERMINISTIC ASSESSMENT FOR THE LEADER:\n%s\n\nAssess the deadline, quality and workload risk of assigning the leading candidate, and recommend approve, modify or reject.", task, list, assessment)
}
