package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/fentz26/commandcenter/internal/models"
)

var (
	severityError   = lipgloss.NewStyle().Foreground(errorColor).Bold(true)
	severityWarning = lipgloss.NewStyle().Foreground(warningColor)
	severityInfo    = lipgloss.NewStyle().Foreground(cyanColor)
)

// IssueItem implements list.Item for the issue list
type IssueItem struct {
	models.Issue
}

func (i IssueItem) FilterValue() string { return i.PageName + " " + string(i.Type) }
func (i IssueItem) Title() string       { return i.PageName }
func (i IssueItem) Description() string {
	return fmt.Sprintf("%s • %s • %s", formatSeverity(i.Severity), i.Database, i.Message)
}

func formatSeverity(s models.Severity) string {
	switch s {
	case models.SeverityError:
		return severityError.Render("● error")
	case models.SeverityWarning:
		return severityWarning.Render("● warning")
	case models.SeverityInfo:
		return severityInfo.Render("● info")
	default:
		return string(s)
	}
}

// Severity filters cycle in this order; the empty filter shows everything.
var severityFilters = []models.Severity{"", models.SeverityError, models.SeverityWarning, models.SeverityInfo}
var severityFilterNames = []string{"ALL", "ERRORS", "WARNINGS", "INFO"}

// filterIssues returns the issues matching severity, or all of them when
// severity is empty.
func filterIssues(issues []models.Issue, severity models.Severity) []IssueItem {
	items := make([]IssueItem, 0, len(issues))
	for _, i := range issues {
		if severity == "" || i.Severity == severity {
			items = append(items, IssueItem{i})
		}
	}
	return items
}

// severityIndex maps a filter argument like "errors" or "warn" to its
// position in severityFilters.
func severityIndex(arg string) (int, bool) {
	switch arg {
	case "", "all":
		return 0, true
	case "error", "errors", "e":
		return 1, true
	case "warning", "warnings", "warn", "w":
		return 2, true
	case "info", "i":
		return 3, true
	}
	return 0, false
}
