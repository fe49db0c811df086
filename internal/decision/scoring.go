package decision

import (
	"sort"

	"github.com/delega/delega/pkg/models"
)

// Weights holds the four scoring weights for one difficulty level.
// The weights always sum to 1.0.
type Weights struct {
	// Experience weights the historical performance signal.
	Experience float64
	// Skill weights the required-skill match fraction.
	Skill float64
	// Confidence weights the candidate's certainty signal.
	Confidence float64
	// Workload weights availability (inverse of current workload).
	Workload float64
}

// WeightsFor returns the scoring weights for a task difficulty.
// Higher difficulties weight proven experience and skill fit over
// availability; low difficulty weights availability and confidence to
// spread growth opportunities.
func WeightsFor(d models.Difficulty) Weights {
	switch d {
	case models.DifficultyHigh, models.DifficultyCritical:
		return Weights{Experience: 0.40, Skill: 0.35, Confidence: 0.20, Workload: 0.05}
	case models.DifficultyLow:
		return Weights{Experience: 0.25, Skill: 0.25, Confidence: 0.30, Workload: 0.20}
	default:
		return Weights{Experience: 0.30, Skill: 0.30, Confidence: 0.25, Workload: 0.15}
	}
}

// Score computes the suitability of a candidate for a task as a
// weighted sum of four normalized sub-scores. The result is in [0,1]
// and deterministic for identical inputs. A candidate missing every
// required skill scores 0 on the skill component but is never excluded.
func Score(c models.Candidate, t models.Task) float64 {
	w := WeightsFor(t.Difficulty)

	experience := clamp01(c.Performance)
	skill := clamp01(c.SkillMatch(t.RequiredSkills))
	confidence := clamp01(c.Confidence)
	workload := clamp01(1.0 - c.Workload/100.0)

	return clamp01(w.Experience*experience + w.Skill*skill + w.Confidence*confidence + w.Workload*workload)
}

// ScoredCandidate pairs a candidate with its suitability score.
type ScoredCandidate struct {
	// Candidate is the scored team member.
	Candidate models.Candidate `json:"candidate"`
	// Score is the suitability score in [0,1].
	Score float64 `json:"score"`
	// Demoted is set when the ethics stage lowered the effective rank.
	Demoted bool `json:"demoted,omitempty"`
}

// RankCandidates scores every candidate and returns them best-first.
// Ties are broken by lowest current workload, then by candidate id, so
// the ordering is stable and deterministic.
func RankCandidates(candidates []models.Candidate, t models.Task) []ScoredCandidate {
	ranked := make([]ScoredCandidate, 0, len(candidates))
	for _, c := range candidates {
		ranked = append(ranked, ScoredCandidate{Candidate: c, Score: Score(c, t)})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return lessScored(ranked[i], ranked[j])
	})
	return ranked
}

// lessScored orders two scored candidates best-first: higher score,
// then lower workload, then lexicographic id.
func lessScored(a, b ScoredCandidate) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.Candidate.Workload != b.Candidate.Workload {
		return a.Candidate.Workload < b.Candidate.Workload
	}
	return a.Candidate.ID < b.Candidate.ID
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
