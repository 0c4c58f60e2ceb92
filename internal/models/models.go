package models

import (
	"time"
)

// ChangeEvent represents a single repository change sourced from the
// version-control host. Events are immutable once fetched.
type ChangeEvent struct {
	SHA         string       `json:"sha"`
	RepoID      string       `json:"repo_id"`
	Author      string       `json:"author"`
	AuthorEmail string       `json:"author_email"`
	Message     string       `json:"message"`
	Timestamp   time.Time    `json:"timestamp"`
	Files       []FileChange `json:"files"`
}

// FileChange represents one file touched by a change event.
type FileChange struct {
	Path         string `json:"path"`
	LinesChanged int    `json:"lines_changed"`
}

// FileOwnership captures who owns a file based on change history within
// the lookback window.
type FileOwnership struct {
	FilePath          string    `json:"file_path"`
	PrimaryOwner      string    `json:"primary_owner"`
	SecondaryOwners   []string  `json:"secondary_owners"`
	LastModified      time.Time `json:"last_modified"`
	ModificationCount int       `json:"modification_count"`
	ComplexityScore   float64   `json:"complexity_score"`
}

// DomainExpert is one ranked entry in the domain expertise table.
type DomainExpert struct {
	Developer string `json:"developer"`
	Changes   int    `json:"changes"`
}

// OwnershipModel is the full result of one ownership analysis pass.
// It is built fresh per routing request and never persisted.
type OwnershipModel struct {
	FileOwnership     map[string]*FileOwnership `json:"file_ownership"`
	DeveloperActivity map[string]int            `json:"developer_activity"`
	RepositoryExperts map[string][]DomainExpert `json:"repository_experts"`
}

// BugReport is the inbound request to the routing engine.
type BugReport struct {
	Title         string   `json:"title" yaml:"title"`
	Description   string   `json:"description" yaml:"description"`
	Labels        []string `json:"labels,omitempty" yaml:"labels"`
	Repository    string   `json:"repository" yaml:"repository"`
	AffectedFiles []string `json:"affected_files,omitempty" yaml:"affected_files"`
	StackTrace    string   `json:"stack_trace,omitempty" yaml:"stack_trace"`
	Priority      string   `json:"priority,omitempty" yaml:"priority"`
}

// BugContext holds technical signals extracted from a bug report's free
// text. Immutable once computed.
type BugContext struct {
	MentionedFiles     []string `json:"mentioned_files"`
	MentionedFunctions []string `json:"mentioned_functions"`
	ErrorTypes         []string `json:"error_types"`
	AffectedAreas      []string `json:"affected_areas"`
}

// CandidateAssignee is a scored routing candidate. Computed per request.
type CandidateAssignee struct {
	Developer        string   `json:"developer"`
	OwnershipScore   float64  `json:"ownership_score"`
	ExpertiseScore   float64  `json:"expertise_score"`
	FinalScore       float64  `json:"final_score"`
	FilesOwned       []string `json:"files_owned"`
	AreasOfExpertise []string `json:"areas_of_expertise"`
}

// TotalScore is the raw score before the priority multiplier is applied.
func (c *CandidateAssignee) TotalScore() float64 {
	return c.OwnershipScore + c.ExpertiseScore
}

// Complexity buckets for a bug's estimated effort.
const (
	ComplexityLow      = "low"
	ComplexityMedium   = "medium"
	ComplexityHigh     = "high"
	ComplexityCritical = "critical"
)

// RoutingDecision is the final, fully populated output of one routing
// request. AssignedTo is nil when the request escalates.
type RoutingDecision struct {
	ID                  string               `json:"id"`
	AssignedTo          *CandidateAssignee   `json:"assigned_to"`
	BackupAssignees     []*CandidateAssignee `json:"backup_assignees"`
	ConfidenceScore     float64              `json:"confidence_score"`
	RoutingReason       string               `json:"routing_reason"`
	EscalationNeeded    bool                 `json:"escalation_needed"`
	SuggestedLabels     []string             `json:"suggested_labels"`
	EstimatedComplexity string               `json:"estimated_complexity"`
}
