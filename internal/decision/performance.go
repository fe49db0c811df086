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

// PerformanceStage estimates the performance impact and growth
// opportunity of assigning the leading candidate. The numeric defaults
// are pure rules; the reasoner refines the prose and the growth figure.
type PerformanceStage struct {
	llm     reasoner.Reasoner
	timeout time.Duration
}

// NewPerformanceStage builds the stage.
func NewPerformanceStage(llm reasoner.Reasoner, timeout time.Duration) *PerformanceStage {
	return &PerformanceStage{llm: llm, timeout: timeout}
}

// Name implements Stage.
func (s *PerformanceStage) Name() string { return StagePerformance }

// Run implements Stage.
func (s *PerformanceStage) Run(ctx context.Context, dc *Context) (*StageResult, error) {
	shortlist, err := shortlistFrom(dc, StagePerformance)
	if err != nil {
		return nil, err
	}
	leader := shortlist[0].Candidate

	metrics := estimatePerformance(leader, dc.Task())

	result := &StageResult{
		Artifacts: map[string]any{artifactPerformance: metrics},
		Narrative: performanceNarrative(leader, metrics),
	}

	if s.llm == nil {
		return result, nil
	}

	var reply struct {
		PerformanceImpact string  `json:"performance_impact"`
		GrowthOpportunity float64 `json:"growth_opportunity"`
		Reasoning         string  `json:"reasoning"`
	}
	req := reasoner.Request{
		Stage:   StagePerformance,
		System:  "You are a performance recognition agent in a project management system. You evaluate growth opportunity and team balance.",
		Prompt:  performancePrompt(dc, leader, metrics),
		Schema:  `{"performance_impact": "<positive|neutral|negative>", "growth_opportunity": <0-1>, "reasoning": "<explanation>"}`,
		Timeout: s.timeout,
	}
	if err := inferJSON(ctx, s.llm, req, &reply); err != nil {
		if !recoverable(err) {
			return nil, err
		}
		result.Degraded = true
		result.Narrative += " (deterministic estimate; reasoning capability unavailable)"
		return result, nil
	}

	switch models.PerformanceImpact(reply.PerformanceImpact) {
	case models.PerformanceImpactPositive, models.PerformanceImpactNeutral, models.PerformanceImpactNegative:
		metrics.PerformanceImpact = models.PerformanceImpact(reply.PerformanceImpact)
	}
	if reply.GrowthOpportunity > 0 {
		metrics.GrowthOpportunity = clamp01(reply.GrowthOpportunity)
	}
	if r := strings.TrimSpace(reply.Reasoning); r != "" {
		metrics.Reasoning = r
		result.Narrative = performanceNarrative(leader, metrics) + " " + r
	}
	result.Artifacts[artifactPerformance] = metrics
	return result, nil
}

// estimatePerformance derives the deterministic default metrics.
// Growth is higher when the task stretches the candidate (low skill
// coverage) and the candidate has headroom (low workload).
func estimatePerformance(c models.Candidate, task models.Task) models.PerformanceMetrics {
	match := c.SkillMatch(task.RequiredSkills)
	headroom := 1.0 - c.Workload/100.0
	growth := clamp01(0.5*(1.0-match) + 0.5*headroom)

	impact := models.PerformanceImpactNeutral
	switch {
	case c.Workload > 90:
		impact = models.PerformanceImpactNegative
	case c.Workload < 50 && match >= 0.5:
		impact = models.PerformanceImpactPositive
	}

	return models.PerformanceMetrics{
		PerformanceImpact: impact,
		GrowthOpportunity: growth,
		Reasoning:         "Derived from skill coverage and workload headroom.",
	}
}

// performanceNarrative renders the deterministic account of the estimate.
func performanceNarrative(leader models.Candidate, m models.PerformanceMetrics) string {
	return fmt.Sprintf("Expected %s performance impact for %s; growth opportunity %.2f.",
		m.PerformanceImpact, leader.Name, m.GrowthOpportunity)
}

// performancePrompt renders the leader and defaults for the model.
func performancePrompt(dc *Context, leader models.Candidate, m models.PerformanceMetrics) string {
	task, _ := json.MarshalIndent(dc.Task(), "", "  ")
	cand, _ := json.MarshalIndent(leader, "", "  ")
	metrics, _ := json.MarshalIndent(m, "", "  ")
	return fmt.Sprintf("TASK:\n%s\n\nPROPOSED ASSIGNEE:\n%s\n\nDETERMINISTIC ESTIMATE:\n%s\n\nEvaluate the performance impact and growth opportunity of this assignment for the assignee and the team.", task, cand, metrics)
}
