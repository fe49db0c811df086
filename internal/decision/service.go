package decision

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/delega/delega/internal/audit"
	"github.com/delega/delega/internal/provider"
	"github.com/delega/delega/pkg/models"
)

// AuditLog is the slice of the audit store the service needs.
// *audit.Log satisfies it.
type AuditLog interface {
	AppendDecision(rec *models.DecisionRecord) (int64, error)
	AppendResolution(rec *models.ResolutionRecord) (int64, error)
	Query(f audit.Filter) ([]audit.Entry, error)
}

// ErrAuditDisabled is returned by AuditTrail when no audit store was
// configured.
var ErrAuditDisabled = errors.New("audit log not configured")

// Service is the entry point for assignment decisions. It resolves
// inputs through the provider, runs the pipeline, and persists every
// completed record to the audit trail. Failed runs persist nothing.
type Service struct {
	provider  provider.Provider
	log       AuditLog
	workflow  *Workflow
	conflicts *ConflictWorkflow
}

// NewService builds a service. A nil log disables auditing, which is
// only intended for tests.
func NewService(p provider.Provider, auditLog AuditLog, cfg Config) *Service {
	return &Service{
		provider:  p,
		log:       auditLog,
		workflow:  NewWorkflow(cfg),
		conflicts: NewConflictWorkflow(cfg),
	}
}

// Assign runs the full decision pipeline for one task and returns the
// completed record. The candidate snapshot is taken once, before the
// first stage.
func (s *Service) Assign(ctx context.Context, taskID string) (*models.DecisionRecord, error) {
	task, err := s.provider.Task(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("resolve task %s: %w", taskID, err)
	}
	candidates, err := s.provider.Candidates(ctx, task)
	if err != nil {
		return nil, fmt.Errorf("resolve candidates for %s: %w", taskID, err)
	}

	record, err := s.workflow.Execute(ctx, task, candidates)
	if err != nil {
		return nil, err
	}

	if s.log != nil {
		seq, err := s.log.AppendDecision(record)
		if err != nil {
			return nil, fmt.Errorf("persist decision %s: %w", record.DecisionID, err)
		}
		log.Printf("[service] decision %s for task %s recorded at seq %d", record.DecisionID, taskID, seq)
	}
	return record, nil
}

// ResolveConflicts runs the conflict resolution pipeline over the
// listed tasks and returns the resolution record.
func (s *Service) ResolveConflicts(ctx context.Context, taskIDs []string) (*models.ResolutionRecord, error) {
	tasks, err := s.provider.Tasks(ctx, taskIDs)
	if err != nil {
		return nil, fmt.Errorf("resolve tasks: %w", err)
	}

	// All contending tasks share one candidate pool. The pool is the
	// union of each task's eligible candidates, deduplicated by id.
	seen := make(map[string]bool)
	var pool []models.Candidate
	for _, t := range tasks {
		candidates, err := s.provider.Candidates(ctx, t)
		if err != nil {
			return nil, fmt.Errorf("resolve candidates for %s: %w", t.ID, err)
		}
		for _, c := range candidates {
			if !seen[c.ID] {
				seen[c.ID] = true
				pool = append(pool, c)
			}
		}
	}

	record, err := s.conflicts.Execute(ctx, tasks, pool)
	if err != nil {
		return nil, err
	}

	if s.log != nil {
		seq, err := s.log.AppendResolution(record)
		if err != nil {
			return nil, fmt.Errorf("persist resolution %s: %w", record.ResolutionID, err)
		}
		log.Printf("[service] resolution %s recorded at seq %d", record.ResolutionID, seq)
	}
	return record, nil
}

// AuditTrail returns matching audit entries in insertion order.
func (s *Service) AuditTrail(ctx context.Context, f audit.Filter) ([]audit.Entry, error) {
	if s.log == nil {
		return nil, ErrAuditDisabled
	}
	return s.log.Query(f)
}
