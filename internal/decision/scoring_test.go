package decision

import (
	"testing"

	"github.com/delega/delega/pkg/models"
)

func TestWeightsSumToOne(t *testing.T) {
	difficulties := []models.Difficulty{
		models.DifficultyLow,
		models.DifficultyMedium,
		models.DifficultyHigh,
		models.DifficultyCritical,
	}

	for _, d := range difficulties {
		w := WeightsFor(d)
		sum := w.Experience + w.Skill + w.Confidence + w.Workload
		if sum < 0.999 || sum > 1.001 {
			t.Errorf("weights for %s sum to %v, want 1.0", d, sum)
		}
	}
}

func TestWeightsByDifficulty(t *testing.T) {
	high := WeightsFor(models.DifficultyHigh)
	if high.Experience != 0.40 || high.Skill != 0.35 || high.Confidence != 0.20 || high.Workload != 0.05 {
		t.Errorf("unexpected high weights: %+v", high)
	}
	if WeightsFor(models.DifficultyCritical) != high {
		t.Error("critical should share high-difficulty weights")
	}

	low := WeightsFor(models.DifficultyLow)
	if low.Workload != 0.20 {
		t.Errorf("low difficulty workload weight = %v, want 0.20", low.Workload)
	}

	medium := WeightsFor(models.DifficultyMedium)
	if medium.Experience != 0.30 || medium.Skill != 0.30 {
		t.Errorf("unexpected medium weights: %+v", medium)
	}
}

func TestScoreDeterministic(t *testing.T) {
	task := models.Task{ID: "T1", Difficulty: models.DifficultyHigh, RequiredSkills: []string{"go", "sql"}}
	c := models.Candidate{ID: "U1", Skills: []string{"go"}, Workload: 40, Performance: 0.8, Confidence: 0.7, Availability: true}

	first := Score(c, task)
	for i := 0; i < 10; i++ {
		if got := Score(c, task); got != first {
			t.Fatalf("score changed between runs: %v then %v", first, got)
		}
	}
	if first < 0 || first > 1 {
		t.Errorf("score %v outside [0,1]", first)
	}
}

func TestScoreSkillComponent(t *testing.T) {
	task := models.Task{ID: "T1", Difficulty: models.DifficultyMedium, RequiredSkills: []string{"go", "sql"}}
	base := models.Candidate{ID: "U1", Workload: 50, Performance: 0.5, Confidence: 0.5, Availability: true}

	none := base
	none.Skills = []string{"design"}
	all := base
	all.Skills = []string{"go", "sql"}

	sNone := Score(none, task)
	sAll := Score(all, task)

	// Zero overlap zeroes the skill component only; the candidate
	// still scores through the other signals.
	if sNone <= 0 {
		t.Errorf("zero-overlap candidate scored %v, want > 0", sNone)
	}
	w := WeightsFor(task.Difficulty)
	if diff := sAll - sNone; diff < w.Skill-0.001 || diff > w.Skill+0.001 {
		t.Errorf("full vs zero skill match differs by %v, want %v", diff, w.Skill)
	}
}

func TestScoreNeutralWhenNoSkillsRequired(t *testing.T) {
	task := models.Task{ID: "T1", Difficulty: models.DifficultyMedium}
	a := models.Candidate{ID: "U1", Skills: []string{"go"}, Workload: 50, Performance: 0.5, Confidence: 0.5}
	b := models.Candidate{ID: "U2", Skills: nil, Workload: 50, Performance: 0.5, Confidence: 0.5}

	if Score(a, task) != Score(b, task) {
		t.Error("skill sets must not matter when the task requires none")
	}
}

func TestRankCandidatesTieBreaks(t *testing.T) {
	task := models.Task{ID: "T1", Difficulty: models.DifficultyMedium}
	// Identical signals except workload, which both scores and breaks ties.
	same := func(id string, workload float64) models.Candidate {
		return models.Candidate{ID: id, Workload: workload, Performance: 0.6, Confidence: 0.6, Availability: true}
	}

	ranked := RankCandidates([]models.Candidate{
		same("U3", 50),
		same("U1", 50),
		same("U2", 30),
	}, task)

	if ranked[0].Candidate.ID != "U2" {
		t.Errorf("lowest workload should rank first, got %s", ranked[0].Candidate.ID)
	}
	// Equal score and workload fall back to the id.
	if ranked[1].Candidate.ID != "U1" || ranked[2].Candidate.ID != "U3" {
		t.Errorf("id tie-break failed: got %s then %s", ranked[1].Candidate.ID, ranked[2].Candidate.ID)
	}
}

func TestClamp01(t *testing.T) {
	cases := []struct{ in, want float64 }{
		{-0.5, 0}, {0, 0}, {0.5, 0.5}, {1, 1}, {1.5, 1},
	}
	for _, tc := range cases {
		if got := clamp01(tc.in); got != tc.want {
			t.Errorf("clamp01(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
