package decision

import (
	"context"
	"errors"
	"testing"

	"github.com/delega/delega/internal/audit"
	"github.com/delega/delega/internal/provider"
	"github.com/delega/delega/pkg/models"
)

// fakeProvider serves a fixed set of tasks and candidates.
type fakeProvider struct {
	tasks      map[string]models.Task
	candidates []models.Candidate
}

func (f *fakeProvider) Task(ctx context.Context, id string) (models.Task, error) {
	task, ok := f.tasks[id]
	if !ok {
		return models.Task{}, provider.ErrNotFound
	}
	return task, nil
}

func (f *fakeProvider) Tasks(ctx context.Context, ids []string) ([]models.Task, error) {
	out := make([]models.Task, 0, len(ids))
	for _, id := range ids {
		task, err := f.Task(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, task)
	}
	return out, nil
}

func (f *fakeProvider) Candidates(ctx context.Context, task models.Task) ([]models.Candidate, error) {
	return f.candidates, nil
}

// fakeAudit records appends in memory.
type fakeAudit struct {
	decisions   []*models.DecisionRecord
	resolutions []*models.ResolutionRecord
}

func (f *fakeAudit) AppendDecision(rec *models.DecisionRecord) (int64, error) {
	f.decisions = append(f.decisions, rec)
	return int64(len(f.decisions)), nil
}

func (f *fakeAudit) AppendResolution(rec *models.ResolutionRecord) (int64, error) {
	f.resolutions = append(f.resolutions, rec)
	return int64(len(f.resolutions)), nil
}

func (f *fakeAudit) Query(filter audit.Filter) ([]audit.Entry, error) {
	return nil, nil
}

func newTestService(trail AuditLog) *Service {
	p := &fakeProvider{
		tasks: map[string]models.Task{
			"TASK-001": loginTask(),
			"TASK-002": {ID: "TASK-002", Title: "Harden auth", Difficulty: models.DifficultyHigh, RequiredSkills: []string{"go", "security"}},
		},
		candidates: loginCandidates(),
	}
	return NewService(p, trail, Config{})
}

func TestServiceAssignPersistsDecision(t *testing.T) {
	trail := &fakeAudit{}
	svc := newTestService(trail)

	rec, err := svc.Assign(context.Background(), "TASK-001")
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if rec.AssignedUserID != "USR-001" {
		t.Errorf("assigned %s", rec.AssignedUserID)
	}
	if len(trail.decisions) != 1 || trail.decisions[0].DecisionID != rec.DecisionID {
		t.Error("completed decision must be appended to the audit trail")
	}
}

func TestServiceAssignUnknownTask(t *testing.T) {
	trail := &fakeAudit{}
	svc := newTestService(trail)

	_, err := svc.Assign(context.Background(), "TASK-404")
	if !errors.Is(err, provider.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if len(trail.decisions) != 0 {
		t.Error("failed lookups must persist nothing")
	}
}

func TestServiceResolveConflictsPersistsResolution(t *testing.T) {
	trail := &fakeAudit{}
	svc := newTestService(trail)

	rec, err := svc.ResolveConflicts(context.Background(), []string{"TASK-001", "TASK-002"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(trail.resolutions) != 1 || trail.resolutions[0].ResolutionID != rec.ResolutionID {
		t.Error("completed resolution must be appended to the audit trail")
	}
	// Both tasks want Alice; both are HIGH, TASK-001 has a deadline so
	// it wins the contention.
	if len(rec.Outcomes) != 1 {
		t.Fatalf("outcomes = %d", len(rec.Outcomes))
	}
	if rec.Outcomes[0].WinnerTaskID != "TASK-001" {
		t.Errorf("winner = %s, want TASK-001", rec.Outcomes[0].WinnerTaskID)
	}
}

func TestServiceAuditTrailWithoutStore(t *testing.T) {
	svc := newTestService(nil)
	_, err := svc.AuditTrail(context.Background(), audit.Filter{})
	if !errors.Is(err, ErrAuditDisabled) {
		t.Fatalf("expected ErrAuditDisabled, got %v", err)
	}
}
