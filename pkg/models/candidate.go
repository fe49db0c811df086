package models

import "strings"

// Candidate is a read-only snapshot of a team member taken at decision start.
// Workload may drift while a pipeline runs; the snapshot is never re-read.
type Candidate struct {
	// ID is the unique identifier for this team member.
	ID string `json:"id" yaml:"id"`
	// Name is the member's display name.
	Name string `json:"name" yaml:"name"`
	// Skills lists the member's skills.
	Skills []string `json:"skills,omitempty" yaml:"skills,omitempty"`
	// Workload is the current workload on a 0-100 scale.
	Workload float64 `json:"workload" yaml:"workload"`
	// Performance is the historical performance signal in [0,1].
	Performance float64 `json:"performance" yaml:"performance"`
	// Confidence is the self-reported or derived certainty in [0,1].
	Confidence float64 `json:"confidence" yaml:"confidence"`
	// Availability indicates whether the member can take new work.
	Availability bool `json:"availability" yaml:"availability"`
	// Role is the member's role, if known.
	Role string `json:"role,omitempty" yaml:"role,omitempty"`
	// TeamID is the team this member belongs to, if any.
	TeamID string `json:"team_id,omitempty" yaml:"team_id,omitempty"`
}

// HasSkill reports whether the candidate has the given skill,
// compared case-insensitively.
func (c Candidate) HasSkill(skill string) bool {
	for _, s := range c.Skills {
		if strings.EqualFold(s, skill) {
			return true
		}
	}
	return false
}

// SkillMatch returns the fraction of required skills the candidate holds.
// With no required skills the match is a neutral 0.5.
func (c Candidate) SkillMatch(required []string) float64 {
	if len(required) == 0 {
		return 0.5
	}
	matched := 0
	for _, r := range required {
		if c.HasSkill(r) {
			matched++
		}
	}
	return float64(matched) / float64(len(required))
}
