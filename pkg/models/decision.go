package models

import "time"

// RiskLevel classifies the overall risk of an assignment.
type RiskLevel string

const (
	RiskLevelLow    RiskLevel = "low"
	RiskLevelMedium RiskLevel = "medium"
	RiskLevelHigh   RiskLevel = "high"
)

// Valid returns true if the risk level is a known value.
func (r RiskLevel) Valid() bool {
	switch r {
	case RiskLevelLow, RiskLevelMedium, RiskLevelHigh:
		return true
	default:
		return false
	}
}

// PerformanceImpact classifies the expected effect of an assignment
// on the assignee's performance.
type PerformanceImpact string

const (
	PerformanceImpactPositive PerformanceImpact = "positive"
	PerformanceImpactNeutral  PerformanceImpact = "neutral"
	PerformanceImpactNegative PerformanceImpact = "negative"
)

// EthicalAnalysis holds the fairness evaluation for a decision.
type EthicalAnalysis struct {
	// FairnessScore rates distribution fairness in [0,1].
	FairnessScore float64 `json:"fairness_score"`
	// EthicalConcerns lists any concerns raised during evaluation.
	EthicalConcerns []string `json:"ethical_concerns"`
	// BiasCheck describes how bias was avoided.
	BiasCheck string `json:"bias_check,omitempty"`
	// WorkloadBalance describes how workload was balanced.
	WorkloadBalance string `json:"workload_balance,omitempty"`
	// WellbeingImpact describes the impact on the assignee's wellbeing.
	WellbeingImpact string `json:"wellbeing_impact,omitempty"`
	// Reasoning explains the ethical considerations.
	Reasoning string `json:"reasoning"`
}

// RiskFactor is a single identified risk with its suggested mitigation.
type RiskFactor struct {
	// Factor names the risk.
	Factor string `json:"factor"`
	// Level is the severity of this factor.
	Level RiskLevel `json:"level"`
	// Mitigation is the suggested mitigation, if any.
	Mitigation string `json:"mitigation,omitempty"`
}

// RiskAssessment holds the risk evaluation for a decision.
type RiskAssessment struct {
	// OverallRiskLevel is the aggregate risk attached to the leading candidate.
	OverallRiskLevel RiskLevel `json:"overall_risk_level"`
	// RiskFactors lists the identified risks.
	RiskFactors []RiskFactor `json:"risk_factors"`
	// Recommendation is approve, modify or reject.
	Recommendation string `json:"recommendation"`
	// Reasoning explains the assessment.
	Reasoning string `json:"reasoning,omitempty"`
}

// PerformanceMetrics holds the performance evaluation for a decision.
type PerformanceMetrics struct {
	// PerformanceImpact is the expected effect on the assignee.
	PerformanceImpact PerformanceImpact `json:"performance_impact"`
	// GrowthOpportunity rates the growth potential in [0,1].
	GrowthOpportunity float64 `json:"growth_opportunity"`
	// Reasoning explains the evaluation.
	Reasoning string `json:"reasoning,omitempty"`
}

// TraceEntry is one step of the reasoning trace: the stage that produced
// it and the narrative it emitted.
type TraceEntry struct {
	// Stage is the name of the stage that wrote this entry.
	Stage string `json:"stage"`
	// Narrative is the human-readable account of what the stage did.
	Narrative string `json:"narrative"`
}

// DecisionRecord is the terminal artifact of a decision pipeline run.
// It is immutable once created and owned by the audit log thereafter.
type DecisionRecord struct {
	// DecisionID is the unique identifier for this decision.
	DecisionID string `json:"decision_id"`
	// TaskID references the task that was assigned.
	TaskID string `json:"task_id"`
	// TaskTitle is the title of the task at decision time.
	TaskTitle string `json:"task_title,omitempty"`
	// AssignedUserID is the chosen candidate.
	AssignedUserID string `json:"assigned_user_id"`
	// AssignedUserName is the chosen candidate's name at decision time.
	AssignedUserName string `json:"assigned_user_name,omitempty"`
	// Confidence is the decision confidence in [0,1].
	Confidence float64 `json:"confidence"`
	// Explanation is the synthesized human-readable explanation.
	Explanation string `json:"explanation"`
	// EthicalAnalysis is the fairness evaluation.
	EthicalAnalysis EthicalAnalysis `json:"ethical_analysis"`
	// RiskAssessment is the risk evaluation.
	RiskAssessment RiskAssessment `json:"risk_assessment"`
	// PerformanceMetrics is the performance evaluation.
	PerformanceMetrics PerformanceMetrics `json:"performance_metrics"`
	// ReasoningTrace is the ordered list of per-stage narratives.
	ReasoningTrace []string `json:"reasoning_trace"`
	// PriorityFactors lists the factors that influenced the decision.
	PriorityFactors []string `json:"priority_factors,omitempty"`
	// AlternativeOptions lists other viable candidates considered.
	AlternativeOptions []string `json:"alternative_options,omitempty"`
	// ActionItems lists follow-up actions, if any.
	ActionItems []string `json:"action_items,omitempty"`
	// DegradedStages lists stages that fell back to deterministic output.
	DegradedStages []string `json:"degraded_stages,omitempty"`
	// Timestamp is when the decision completed.
	Timestamp time.Time `json:"timestamp"`
}

// ConflictOutcome records which task won a contested candidate and why.
type ConflictOutcome struct {
	// CandidateID is the contested team member.
	CandidateID string `json:"candidate_id"`
	// WinnerTaskID is the task the candidate is assigned to.
	WinnerTaskID string `json:"winner_task_id"`
	// LoserTaskIDs are the tasks that must be reassigned or deferred.
	LoserTaskIDs []string `json:"loser_task_ids"`
	// Reason states the priority rule that decided the outcome.
	Reason string `json:"reason"`
}

// ResolutionRecord is the terminal artifact of a conflict resolution run.
// It is structurally analogous to a DecisionRecord but references
// multiple tasks.
type ResolutionRecord struct {
	// ResolutionID is the unique identifier for this resolution.
	ResolutionID string `json:"resolution_id"`
	// TaskIDs lists the contending tasks.
	TaskIDs []string `json:"task_ids"`
	// Outcomes lists the per-candidate resolutions.
	Outcomes []ConflictOutcome `json:"outcomes"`
	// RiskAssessment evaluates the impact of the chosen resolution.
	RiskAssessment RiskAssessment `json:"risk_assessment"`
	// Explanation is the synthesized human-readable explanation.
	Explanation string `json:"explanation"`
	// ReasoningTrace is the ordered list of per-stage narratives.
	ReasoningTrace []string `json:"reasoning_trace"`
	// DegradedStages lists stages that fell back to deterministic output.
	DegradedStages []string `json:"degraded_stages,omitempty"`
	// Timestamp is when the resolution completed.
	Timestamp time.Time `json:"timestamp"`
}
