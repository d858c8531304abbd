// Package models defines the core domain types for Command Center.
package models

import "time"

// Collection identifies which workspace database a record came from.
type Collection string

const (
	CollectionTasks    Collection = "tasks"
	CollectionProjects Collection = "projects"
	CollectionAreas    Collection = "areas"
)

// Task is a workspace task snapshot.
type Task struct {
	ID         string   `json:"id"`
	Title      string   `json:"task"`
	Done       bool     `json:"done"`
	DueDate    *string  `json:"dueDate"`
	Status     string   `json:"status"`
	Priority   *string  `json:"priority"`
	ProjectIDs []string `json:"projectIds"`
}

// Project is a workspace project snapshot.
type Project struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Status   string   `json:"status"`
	Progress int      `json:"progress"` // 0-100
	AreaIDs  []string `json:"areaIds"`
}

// Area is a workspace area of responsibility.
type Area struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Severity ranks an audit finding.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// IssueType categorizes an audit finding.
type IssueType string

const (
	IssueEmptyName       IssueType = "empty_name"
	IssueMissingRelation IssueType = "missing_relation"
	IssueBrokenRelation  IssueType = "broken_relation"
	IssueDuplicateName   IssueType = "duplicate_name"
	IssueMissingStatus   IssueType = "missing_status"
	IssueMissingPriority IssueType = "missing_priority"
	IssueOrphanedTask    IssueType = "orphaned_task"
	IssueEmptyProject    IssueType = "empty_project"
	IssueEmptyArea       IssueType = "empty_area"
	IssueProjectNoArea   IssueType = "project_no_area"
)

// Issue is a single data-quality finding.
type Issue struct {
	Database Collection `json:"database"`
	PageID   string     `json:"pageId"`
	PageName string     `json:"pageName"`
	Severity Severity   `json:"severity"`
	Type     IssueType  `json:"type"`
	Message  string     `json:"message"`
	Details  string     `json:"details,omitempty"`
}

// CollectionSummary counts records and findings for one collection.
type CollectionSummary struct {
	Total  int `json:"total"`
	Issues int `json:"issues"`
}

// AuditSummary holds the per-collection summaries.
type AuditSummary struct {
	Tasks    CollectionSummary `json:"tasks"`
	Projects CollectionSummary `json:"projects"`
	Areas    CollectionSummary `json:"areas"`
}

// AuditResult is the full report of one audit run.
type AuditResult struct {
	RunAt       time.Time    `json:"runAt"`
	TotalIssues int          `json:"totalIssues"`
	Errors      int          `json:"errors"`
	Warnings    int          `json:"warnings"`
	Info        int          `json:"info"`
	Issues      []Issue      `json:"issues"`
	Summary     AuditSummary `json:"summary"`
}

// AuditRun is a persisted audit result.
type AuditRun struct {
	ID          string       `json:"id"`
	RunAt       time.Time    `json:"run_at"`
	TotalIssues int          `json:"total_issues"`
	Errors      int          `json:"errors"`
	Warnings    int          `json:"warnings"`
	Info        int          `json:"info"`
	IssuesHash  string       `json:"issues_hash"`
	Trigger     string       `json:"trigger"` // "api", "scheduler", "mcp"
	Result      *AuditResult `json:"result,omitempty"`
}

// LeadStatus represents where an intake lead is in the funnel.
type LeadStatus string

const (
	LeadStatusNew       LeadStatus = "new"
	LeadStatusContacted LeadStatus = "contacted"
	LeadStatusQualified LeadStatus = "qualified"
	LeadStatusClosed    LeadStatus = "closed"
)

// Valid reports whether s is a known lead status.
func (s LeadStatus) Valid() bool {
	switch s {
	case LeadStatusNew, LeadStatusContacted, LeadStatusQualified, LeadStatusClosed:
		return true
	}
	return false
}

// Lead is a submitted intake form enriched with AI classification.
type Lead struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	Company      string     `json:"company"`
	QuestionType string     `json:"question_type"`
	Description  string     `json:"description"`
	Category     string     `json:"category"`
	Urgency      int        `json:"urgency"`
	AISummary    string     `json:"ai_summary,omitempty"`
	Status       LeadStatus `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}
