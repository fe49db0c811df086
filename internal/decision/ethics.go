package decision

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/delega/delega/internal/reasoner"
	"github.com/delega/delega/pkg/models"
)

// Penalties applied by the deterministic ethics rules. The Decision
// stage subtracts these from the raw suitability score.
const (
	penaltyOverload    = 0.15
	penaltyUnavailable = 0.25
)

// EthicsFindings is the structured artifact the ethics stage writes.
type EthicsFindings struct {
	// Analysis is the fairness evaluation carried into the record.
	Analysis models.EthicalAnalysis `json:"analysis"`
	// Penalties maps candidate id to the score penalty to apply.
	Penalties map[string]float64 `json:"penalties"`
	// Demoted lists shortlist candidates whose effective rank was
	// lowered by a severe flag. Demotion never removes a candidate.
	Demoted []string `json:"demoted,omitempty"`
}

// EthicsStage evaluates fairness for the shortlist. The flags and
// penalties are pure rules; the reasoner contributes the prose analysis
// and the fairness score, with deterministic defaults on failure.
type EthicsStage struct {
	llm         reasoner.Reasoner
	maxWorkload float64
	timeout     time.Duration
}

// NewEthicsStage builds the stage. maxWorkload <= 0 falls back to 90.
func NewEthicsStage(llm reasoner.Reasoner, maxWorkload float64, timeout time.Duration) *EthicsStage {
	if maxWorkload <= 0 {
		maxWorkload = 90
	}
	return &EthicsStage{llm: llm, maxWorkload: maxWorkload, timeout: timeout}
}

// Name implements Stage.
func (s *EthicsStage) Name() string { return StageEthics }

// Run implements Stage. A missing shortlist is fatal: the stage order
// guarantees Reasoning ran first, so this indicates a defect.
func (s *EthicsStage) Run(ctx context.Context, dc *Context) (*StageResult, error) {
	shortlist, err := shortlistFrom(dc, StageEthics)
	if err != nil {
		return nil, err
	}

	findings := s.evaluate(shortlist)

	// Demotion reorders the shortlist copy the later stages read via
	// the ethics artifact; the original shortlist artifact is untouched.
	adjusted := demote(shortlist, findings.Demoted)

	result := &StageResult{
		Artifacts: map[string]any{
			artifactEthicalFlags:      findings,
			artifactAdjustedShortlist: adjusted,
		},
		Narrative: ethicsNarrative(findings),
	}

	if s.llm == nil {
		return result, nil
	}

	var reply struct {
		FairnessScore float64  `json:"fairness_score"`
		Concerns      []string `json:"ethical_concerns"`
		Reasoning     string   `json:"reasoning"`
	}
	req := reasoner.Request{
		Stage:   StageEthics,
		System:  "You are an ethics and fairness agent in a project management system. You evaluate workload balance, equal opportunity and bias.",
		Prompt:  ethicsPrompt(dc, shortlist, findings),
		Schema:  `{"fairness_score": <0-1>, "ethical_concerns": ["<concern>"], "reasoning": "<explanation>"}`,
		Timeout: s.timeout,
	}
	if err := inferJSON(ctx, s.llm, req, &reply); err != nil {
		if !recoverable(err) {
			return nil, err
		}
		result.Degraded = true
		result.Narrative += " (deterministic flags only; reasoning capability unavailable)"
		return result, nil
	}

	findings.Analysis.FairnessScore = clamp01(reply.FairnessScore)
	findings.Analysis.EthicalConcerns = append(findings.Analysis.EthicalConcerns, reply.Concerns...)
	if r := strings.TrimSpace(reply.Reasoning); r != "" {
		findings.Analysis.Reasoning = r
		result.Narrative = ethicsNarrative(findings) + " " + r
	}
	result.Artifacts[artifactEthicalFlags] = findings
	return result, nil
}

// evaluate applies the deterministic fairness rules to the shortlist.
func (s *EthicsStage) evaluate(shortlist []ScoredCandidate) EthicsFindings {
	findings := EthicsFindings{
		Penalties: make(map[string]float64),
		Analysis: models.EthicalAnalysis{
			FairnessScore:   fairnessScore(shortlist),
			EthicalConcerns: []string{},
			BiasCheck:       "Scoring uses only workload, skills, performance and confidence; no personal attributes considered.",
			WorkloadBalance: "Workload-inverse sub-score favors less loaded members.",
			WellbeingImpact: "No overload detected.",
			Reasoning:       "Deterministic fairness rules applied to the shortlist.",
		},
	}

	for _, sc := range shortlist {
		c := sc.Candidate
		if c.Workload > s.maxWorkload {
			findings.Penalties[c.ID] += penaltyOverload
			findings.Demoted = append(findings.Demoted, c.ID)
			findings.Analysis.EthicalConcerns = append(findings.Analysis.EthicalConcerns,
				fmt.Sprintf("%s is above the workload ceiling (%.0f%%)", c.Name, c.Workload))
			findings.Analysis.WellbeingImpact = "At least one shortlisted member is overloaded; demoted to protect wellbeing."
		}
		if !c.Availability {
			findings.Penalties[c.ID] += penaltyUnavailable
			findings.Analysis.EthicalConcerns = append(findings.Analysis.EthicalConcerns,
				fmt.Sprintf("%s is marked unavailable", c.Name))
		}
	}
	sort.Strings(findings.Demoted)
	return findings
}

// fairnessScore derives a deterministic default fairness score from the
// workload spread of the shortlist: an even spread scores high.
func fairnessScore(shortlist []ScoredCandidate) float64 {
	if len(shortlist) == 0 {
		return 0
	}
	min, max := shortlist[0].Candidate.Workload, shortlist[0].Candidate.Workload
	for _, sc := range shortlist[1:] {
		if sc.Candidate.Workload < min {
			min = sc.Candidate.Workload
		}
		if sc.Candidate.Workload > max {
			max = sc.Candidate.Workload
		}
	}
	return clamp01(1.0 - (max-min)/100.0)
}

// demote moves flagged candidates down one position each without ever
// removing them from the list. The pass runs bottom-up so a clean
// candidate rises past a run of consecutively flagged ones, dropping
// each of them a rank. Flagged candidates with no clean candidate
// below them keep their position.
func demote(shortlist []ScoredCandidate, demoted []string) []ScoredCandidate {
	out := make([]ScoredCandidate, len(shortlist))
	copy(out, shortlist)
	flagged := make(map[string]bool, len(demoted))
	for _, id := range demoted {
		flagged[id] = true
	}
	for i := len(out) - 2; i >= 0; i-- {
		if flagged[out[i].Candidate.ID] && !flagged[out[i+1].Candidate.ID] {
			out[i], out[i+1] = out[i+1], out[i]
			out[i+1].Demoted = true
		}
	}
	return out
}

// ethicsNarrative renders the deterministic account of the evaluation.
func ethicsNarrative(f EthicsFindings) string {
	if len(f.Analysis.EthicalConcerns) == 0 {
		return fmt.Sprintf("No fairness concerns; workload spread fairness %.2f.", f.Analysis.FairnessScore)
	}
	return fmt.Sprintf("Raised %d fairness concern(s): %s.",
		len(f.Analysis.EthicalConcerns), strings.Join(f.Analysis.EthicalConcerns, "; "))
}

// ethicsPrompt renders the shortlist and the deterministic flags for
// the model.
func ethicsPrompt(dc *Context, shortlist []ScoredCandidate, f EthicsFindings) string {
	task, _ := json.MarshalIndent(dc.Task(), "", "  ")
	list, _ := json.MarshalIndent(shortlist, "", "  ")
	flags, _ := json.MarshalIndent(f, "", "  ")
	return fmt.Sprintf("TASK:\n%s\n\nSHORTLIST:\n%s\n\nDETERMINISTIC FLAGS ALREADY RAISED:\n%s\n\nEvaluate workload fairness, equal opportunity and bias for this assignment. Do not consider any personal attributes.", task, list, flags)
}

// shortlistFrom reads the shortlist artifact, preferring the
// ethics-adjusted ordering when a later stage asks for it.
func shortlistFrom(dc *Context, stage string) ([]ScoredCandidate, error) {
	if v, ok := dc.Get(artifactAdjustedShortlist); ok {
		if list, ok := v.([]ScoredCandidate); ok {
			return list, nil
		}
	}
	v, ok := dc.Get(artifactShortlist)
	if !ok {
		return nil, fmt.Errorf("stage %s: required shortlist artifact missing", stage)
	}
	list, ok := v.([]ScoredCandidate)
	if !ok || len(list) == 0 {
		return nil, fmt.Errorf("stage %s: shortlist artifact empty or malformed", stage)
	}
	return list, nil
}
