package decision

import (
	"errors"
	"testing"

	"github.com/delega/delega/pkg/models"
)

func TestContextArtifactsAppendOnly(t *testing.T) {
	dc := NewContext(models.Task{ID: "T1"}, nil)

	if err := dc.Put(StageReasoning, "shortlist", []string{"a"}); err != nil {
		t.Fatalf("first put failed: %v", err)
	}

	err := dc.Put(StageEthics, "shortlist", []string{"b"})
	if err == nil {
		t.Fatal("overwriting an artifact must fail")
	}
	if !errors.Is(err, ErrInvariantViolation) {
		t.Errorf("error should unwrap to ErrInvariantViolation, got %v", err)
	}
	var iv *InvariantViolationError
	if !errors.As(err, &iv) {
		t.Fatalf("expected *InvariantViolationError, got %T", err)
	}
	if iv.Key != "shortlist" || iv.Stage != StageEthics {
		t.Errorf("violation names key %q stage %q", iv.Key, iv.Stage)
	}

	// The original value survives the rejected write.
	v, ok := dc.Get("shortlist")
	if !ok {
		t.Fatal("artifact vanished")
	}
	if got := v.([]string)[0]; got != "a" {
		t.Errorf("artifact was overwritten to %q", got)
	}
}

func TestContextSnapshotsCandidates(t *testing.T) {
	candidates := []models.Candidate{{ID: "U1", Workload: 10}}
	dc := NewContext(models.Task{ID: "T1"}, candidates)

	candidates[0].Workload = 99
	if dc.Candidates()[0].Workload != 10 {
		t.Error("context must snapshot candidates at creation")
	}
}

func TestContextTrace(t *testing.T) {
	dc := NewContext(models.Task{ID: "T1"}, nil)
	dc.AppendTrace(StageReasoning, "ranked candidates")
	dc.AppendTrace(StageEthics, "no concerns")

	trace := dc.Trace()
	if len(trace) != 2 {
		t.Fatalf("trace length = %d", len(trace))
	}
	if trace[0].Stage != StageReasoning || trace[1].Stage != StageEthics {
		t.Error("trace must preserve stage order")
	}

	lines := dc.TraceStrings()
	if lines[0] != "Reasoning: ranked candidates" {
		t.Errorf("unexpected trace line %q", lines[0])
	}
}

func TestContextDegradedStages(t *testing.T) {
	dc := NewContext(models.Task{ID: "T1"}, nil)
	if len(dc.DegradedStages()) != 0 {
		t.Fatal("new context should have no degraded stages")
	}
	dc.MarkDegraded(StageRisk)
	dc.MarkDegraded(StageExplainability)
	got := dc.DegradedStages()
	if len(got) != 2 || got[0] != StageRisk || got[1] != StageExplainability {
		t.Errorf("degraded stages = %v", got)
	}
}

func TestConflictContextSnapshotsTasks(t *testing.T) {
	tasks := []models.Task{{ID: "T1"}, {ID: "T2"}}
	dc := NewConflictContext(tasks, nil)

	tasks[0].ID = "mutated"
	if dc.Tasks()[0].ID != "T1" {
		t.Error("conflict context must snapshot tasks at creation")
	}
	if dc.Task().ID != "T1" {
		t.Error("Task() should return the first contending task")
	}
}
