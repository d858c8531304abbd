package audit

import (
	"fmt"
	"strings"

	"github.com/fentz26/commandcenter/internal/models"
)

// Display names used when a record has no usable name.
const (
	EmptyNamePlaceholder = "(empty)"
	UnnamedPlaceholder   = "(unnamed)"
)

func displayName(name string) string {
	if n := strings.TrimSpace(name); n != "" {
		return n
	}
	return UnnamedPlaceholder
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// nameCounts counts exact names. Blank names count too, so two unnamed
// records are also duplicates of each other.
func nameCounts(names []string) map[string]int {
	counts := make(map[string]int, len(names))
	for _, n := range names {
		counts[n]++
	}
	return counts
}

// CheckTasks validates tasks against the known projects.
func CheckTasks(tasks []models.Task, projects map[string]models.Project) []models.Issue {
	issues := []models.Issue{}
	for _, t := range tasks {
		name := displayName(t.Title)
		issue := func(sev models.Severity, typ models.IssueType, msg string) models.Issue {
			return models.Issue{Database: models.CollectionTasks, PageID: t.ID, PageName: name, Severity: sev, Type: typ, Message: msg}
		}

		if blank(t.Title) {
			i := issue(models.SeverityError, models.IssueEmptyName, "Task has no name")
			i.PageName = EmptyNamePlaceholder
			issues = append(issues, i)
		}
		if blank(t.Status) {
			issues = append(issues, issue(models.SeverityWarning, models.IssueMissingStatus, "Status is missing or empty"))
		}
		if t.Priority == nil || blank(*t.Priority) {
			issues = append(issues, issue(models.SeverityInfo, models.IssueMissingPriority, "Priority is missing"))
		}
		for _, pid := range t.ProjectIDs {
			if _, ok := projects[pid]; !ok {
				i := issue(models.SeverityWarning, models.IssueOrphanedTask, "Task links to a project that does not exist")
				i.Details = "Project ID: " + pid
				issues = append(issues, i)
			}
		}
	}
	return issues
}

// CheckProjects validates projects against areas and the tasks that reference
// them. Broken area references are only reported when areas is non-empty.
func CheckProjects(projects []models.Project, areas map[string]models.Area, tasks []models.Task) []models.Issue {
	withTasks := make(map[string]bool)
	for _, t := range tasks {
		for _, pid := range t.ProjectIDs {
			withTasks[pid] = true
		}
	}
	names := make([]string, 0, len(projects))
	for _, p := range projects {
		names = append(names, p.Name)
	}
	counts := nameCounts(names)

	issues := []models.Issue{}
	for _, p := range projects {
		name := displayName(p.Name)
		issue := func(sev models.Severity, typ models.IssueType, msg string) models.Issue {
			return models.Issue{Database: models.CollectionProjects, PageID: p.ID, PageName: name, Severity: sev, Type: typ, Message: msg}
		}

		if blank(p.Name) {
			i := issue(models.SeverityError, models.IssueEmptyName, "Project has no name")
			i.PageName = EmptyNamePlaceholder
			issues = append(issues, i)
		}
		if len(p.AreaIDs) == 0 {
			issues = append(issues, issue(models.SeverityWarning, models.IssueProjectNoArea, "No area linked"))
		}
		if blank(p.Status) {
			issues = append(issues, issue(models.SeverityWarning, models.IssueMissingStatus, "Status is missing or empty"))
		}
		if len(areas) > 0 {
			for _, aid := range p.AreaIDs {
				if _, ok := areas[aid]; !ok {
					i := issue(models.SeverityError, models.IssueBrokenRelation, "Areas relation contains an id that does not exist")
					i.Details = "Area ID: " + aid
					issues = append(issues, i)
				}
			}
		}
		if !withTasks[p.ID] {
			issues = append(issues, issue(models.SeverityInfo, models.IssueEmptyProject, "No tasks linked to this project"))
		}
		if counts[p.Name] > 1 {
			issues = append(issues, issue(models.SeverityWarning, models.IssueDuplicateName,
				fmt.Sprintf("Multiple projects share the name %q", p.Name)))
		}
	}
	return issues
}

// CheckAreas validates areas against the projects that reference them.
func CheckAreas(areas []models.Area, projects []models.Project) []models.Issue {
	used := make(map[string]bool)
	for _, p := range projects {
		for _, aid := range p.AreaIDs {
			used[aid] = true
		}
	}
	names := make([]string, 0, len(areas))
	for _, a := range areas {
		names = append(names, a.Name)
	}
	counts := nameCounts(names)

	issues := []models.Issue{}
	for _, a := range areas {
		name := displayName(a.Name)
		issue := func(sev models.Severity, typ models.IssueType, msg string) models.Issue {
			return models.Issue{Database: models.CollectionAreas, PageID: a.ID, PageName: name, Severity: sev, Type: typ, Message: msg}
		}

		if blank(a.Name) {
			i := issue(models.SeverityError, models.IssueEmptyName, "Area has no name")
			i.PageName = EmptyNamePlaceholder
			issues = append(issues, i)
		}
		if !used[a.ID] {
			issues = append(issues, issue(models.SeverityInfo, models.IssueEmptyArea, "No projects linked to this area"))
		}
		if counts[a.Name] > 1 {
			issues = append(issues, issue(models.SeverityWarning, models.IssueDuplicateName,
				fmt.Sprintf("Multiple areas share the name %q", a.Name)))
		}
	}
	return issues
}
