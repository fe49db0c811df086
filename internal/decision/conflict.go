package decision

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/delega/delega/internal/reasoner"
	"github.com/delega/delega/pkg/models"
)

// Conflict artifacts, keyed like the assignment pipeline's.
const (
	artifactConflictRanking = "conflict_ranking"
	artifactConflicts       = "conflicts"
	artifactResolution      = "resolution"
)

// contention records several tasks whose best candidate is the same
// person.
type contention struct {
	CandidateID   string   `json:"candidate_id"`
	CandidateName string   `json:"candidate_name"`
	TaskIDs       []string `json:"task_ids"`
}

// ConflictWorkflow resolves several tasks contending for the same
// candidate pool. It runs a reduced pipeline over a shared context:
// ranking, risk, a rule-based priority decision, then explanation. Only
// the explanation consults the reasoner, so resolution outcomes are
// fully deterministic.
type ConflictWorkflow struct {
	llm     reasoner.Reasoner
	timeout time.Duration
	now     func() time.Time
	newID   func() string
}

// NewConflictWorkflow builds the conflict resolution pipeline.
func NewConflictWorkflow(cfg Config) *ConflictWorkflow {
	timeout := cfg.PipelineTimeout
	if timeout <= 0 {
		timeout = DefaultPipelineTimeout
	}
	return &ConflictWorkflow{
		llm:     cfg.Reasoner,
		timeout: timeout,
		now:     time.Now,
		newID:   func() string { return "RES-" + uuid.NewString() },
	}
}

// Execute resolves the contending tasks and returns the resolution
// record. At least two tasks and one candidate are required.
func (w *ConflictWorkflow) Execute(ctx context.Context, tasks []models.Task, candidates []models.Candidate) (*models.ResolutionRecord, error) {
	if len(tasks) < 2 {
		return nil, &FatalStageError{Stage: StageReasoning, Err: fmt.Errorf("conflict resolution needs at least two tasks, got %d", len(tasks))}
	}
	if len(candidates) == 0 {
		return nil, &FatalStageError{Stage: StageReasoning, Err: fmt.Errorf("no candidates available")}
	}

	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	dc := NewConflictContext(tasks, candidates)

	conflicts, err := w.rank(dc)
	if err != nil {
		return nil, err
	}
	assessment, err := w.assess(dc)
	if err != nil {
		return nil, err
	}
	outcomes, err := w.decide(dc, conflicts)
	if err != nil {
		return nil, err
	}
	explanation, err := w.explain(ctx, dc, outcomes, assessment)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
	}
	return &models.ResolutionRecord{
		ResolutionID:   w.newID(),
		TaskIDs:        ids,
		Outcomes:       outcomes,
		RiskAssessment: assessment,
		Explanation:    explanation,
		ReasoningTrace: dc.TraceStrings(),
		DegradedStages: dc.DegradedStages(),
		Timestamp:      w.now().UTC(),
	}, nil
}

// rank scores every candidate against every task and detects
// contention: candidates who are the top pick of more than one task.
func (w *ConflictWorkflow) rank(dc *Context) ([]contention, error) {
	ranking := make(map[string][]ScoredCandidate, len(dc.Tasks()))
	topPick := make(map[string][]string)
	names := make(map[string]string)
	for _, t := range dc.Tasks() {
		ranked := RankCandidates(dc.Candidates(), t)
		ranking[t.ID] = ranked
		leader := ranked[0].Candidate
		topPick[leader.ID] = append(topPick[leader.ID], t.ID)
		names[leader.ID] = leader.Name
	}

	var conflicts []contention
	for id, taskIDs := range topPick {
		if len(taskIDs) < 2 {
			continue
		}
		sort.Strings(taskIDs)
		conflicts = append(conflicts, contention{CandidateID: id, CandidateName: names[id], TaskIDs: taskIDs})
	}
	sort.Slice(conflicts, func(i, j int) bool { return conflicts[i].CandidateID < conflicts[j].CandidateID })

	if err := dc.Put(StageReasoning, artifactConflictRanking, ranking); err != nil {
		return nil, err
	}
	if err := dc.Put(StageReasoning, artifactConflicts, conflicts); err != nil {
		return nil, err
	}
	dc.AppendTrace(StageReasoning, fmt.Sprintf("Ranked candidates for %d contending tasks; %d candidate(s) are the top pick of multiple tasks.",
		len(dc.Tasks()), len(conflicts)))
	return conflicts, nil
}

// assess evaluates deadline pressure across the contending tasks. The
// overall level is the worst per-task deadline risk.
func (w *ConflictWorkflow) assess(dc *Context) (models.RiskAssessment, error) {
	now := w.now()
	factors := make([]models.RiskFactor, 0, len(dc.Tasks()))
	for _, t := range dc.Tasks() {
		factors = append(factors, models.RiskFactor{
			Factor:     "deadline for task " + t.ID,
			Level:      deadlineRiskAt(t, now),
			Mitigation: "prioritize the most urgent task when breaking ties",
		})
	}
	assessment := models.RiskAssessment{
		OverallRiskLevel: overallRisk(factors),
		RiskFactors:      factors,
		Recommendation:   "approve",
		Reasoning:        "Deadline pressure evaluated per contending task.",
	}
	if assessment.OverallRiskLevel == models.RiskLevelHigh {
		assessment.Recommendation = "modify"
	}

	if err := dc.Put(StageRisk, artifactRiskFactors, assessment); err != nil {
		return models.RiskAssessment{}, err
	}
	dc.AppendTrace(StageRisk, fmt.Sprintf("Overall %s deadline risk across %d tasks.", assessment.OverallRiskLevel, len(dc.Tasks())))
	return assessment, nil
}

// decide awards each contended candidate to the highest-priority task.
// Priority is difficulty rank first, then the earlier deadline, then
// the task id, so the outcome is deterministic.
func (w *ConflictWorkflow) decide(dc *Context, conflicts []contention) ([]models.ConflictOutcome, error) {
	byID := make(map[string]models.Task, len(dc.Tasks()))
	for _, t := range dc.Tasks() {
		byID[t.ID] = t
	}

	outcomes := make([]models.ConflictOutcome, 0, len(conflicts))
	for _, c := range conflicts {
		contenders := make([]models.Task, 0, len(c.TaskIDs))
		for _, id := range c.TaskIDs {
			contenders = append(contenders, byID[id])
		}
		sort.SliceStable(contenders, func(i, j int) bool {
			return higherPriority(contenders[i], contenders[j])
		})

		winner := contenders[0]
		losers := make([]string, 0, len(contenders)-1)
		for _, t := range contenders[1:] {
			losers = append(losers, t.ID)
		}
		outcomes = append(outcomes, models.ConflictOutcome{
			CandidateID:  c.CandidateID,
			WinnerTaskID: winner.ID,
			LoserTaskIDs: losers,
			Reason:       priorityReason(winner),
		})
	}

	if err := dc.Put(StageDecision, artifactResolution, outcomes); err != nil {
		return nil, err
	}
	dc.AppendTrace(StageDecision, fmt.Sprintf("Resolved %d conflict(s) by task priority.", len(outcomes)))
	return outcomes, nil
}

// higherPriority orders contending tasks: higher difficulty first, then
// the earlier deadline (no deadline sorts last), then the task id.
func higherPriority(a, b models.Task) bool {
	if ra, rb := a.Difficulty.Rank(), b.Difficulty.Rank(); ra != rb {
		return ra > rb
	}
	switch {
	case a.Deadline == nil && b.Deadline == nil:
	case a.Deadline == nil:
		return false
	case b.Deadline == nil:
		return true
	case !a.Deadline.Equal(*b.Deadline):
		return a.Deadline.Before(*b.Deadline)
	}
	return a.ID < b.ID
}

// priorityReason states why the winning task took the candidate.
func priorityReason(winner models.Task) string {
	reason := fmt.Sprintf("task %s has %s difficulty", winner.ID, winner.Difficulty)
	if winner.Deadline != nil {
		reason += fmt.Sprintf(" and a deadline of %s", winner.Deadline.Format(time.RFC3339))
	}
	return reason
}

// explain renders the resolution; the reasoner may replace the
// deterministic summary, falling back to it on a recoverable failure.
func (w *ConflictWorkflow) explain(ctx context.Context, dc *Context, outcomes []models.ConflictOutcome, assessment models.RiskAssessment) (string, error) {
	explanation := conflictSummary(dc, outcomes, assessment)
	narrative := "Resolution explanation generated."

	if w.llm != nil {
		var reply struct {
			Explanation string `json:"explanation"`
		}
		req := reasoner.Request{
			Stage:   StageExplainability,
			System:  "You are an explainability agent in a project management system. You explain how assignment conflicts were resolved.",
			Prompt:  conflictPrompt(dc, outcomes, assessment),
			Schema:  `{"explanation": "<2-4 paragraphs covering each conflict, the winning task and why>"}`,
			Timeout: stageBudget(ctx, 1, w.timeout/4),
		}
		if err := inferJSON(ctx, w.llm, req, &reply); err != nil {
			if !recoverable(err) {
				return "", &FatalStageError{Stage: StageExplainability, Err: err}
			}
			dc.MarkDegraded(StageExplainability)
			narrative = "Resolution explanation generated from deterministic summary (reasoning capability unavailable)."
		} else if e := strings.TrimSpace(reply.Explanation); e != "" {
			explanation = e
		}
	}

	if err := dc.Put(StageExplainability, artifactExplanation, explanation); err != nil {
		return "", err
	}
	dc.AppendTrace(StageExplainability, narrative)
	return explanation, nil
}

// conflictSummary is the deterministic resolution explanation.
func conflictSummary(dc *Context, outcomes []models.ConflictOutcome, assessment models.RiskAssessment) string {
	if len(outcomes) == 0 {
		return fmt.Sprintf("No conflicts detected among %d tasks: each task prefers a different candidate.", len(dc.Tasks()))
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d conflict(s) resolved among %d tasks by task priority.", len(outcomes), len(dc.Tasks()))
	for _, o := range outcomes {
		fmt.Fprintf(&b, " Candidate %s goes to task %s (%s); deferred: %s.",
			o.CandidateID, o.WinnerTaskID, o.Reason, strings.Join(o.LoserTaskIDs, ", "))
	}
	fmt.Fprintf(&b, " Overall deadline risk: %s.", assessment.OverallRiskLevel)
	return b.String()
}

// conflictPrompt renders the contention and the rule-based resolution
// for the model.
func conflictPrompt(dc *Context, outcomes []models.ConflictOutcome, assessment models.RiskAssessment) string {
	tasks, _ := json.MarshalIndent(dc.Tasks(), "", "  ")
	resolved, _ := json.MarshalIndent(outcomes, "", "  ")
	risk, _ := json.MarshalIndent(assessment, "", "  ")
	return fmt.Sprintf("CONTENDING TASKS:\n%s\n\nRESOLUTION:\n%s\n\nRISK ASSESSMENT:\n%s\n\nExplain to a project manager how each conflict was resolved and what the deferred tasks should do next.", tasks, resolved, risk)
}
