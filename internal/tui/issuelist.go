package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fentz26/commandcenter/internal/models"
)

var listTitleStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(primaryColor)

// IssueListModel manages the issue list of the current report
type IssueListModel struct {
	list        list.Model
	issues      []models.Issue
	filterIndex int
	width       int
	height      int
}

// NewIssueListModel creates a new issue list model
func NewIssueListModel() *IssueListModel {
	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(primaryColor).
		BorderForeground(primaryColor)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.
		BorderForeground(primaryColor)

	l := list.New([]list.Item{}, delegate, 80, 20)
	l.Title = "Issues [ALL]"
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)
	l.Styles.Title = listTitleStyle
	l.SetStatusBarItemName("issue", "issues")

	return &IssueListModel{list: l}
}

// SetSize sets the list dimensions
func (m *IssueListModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	m.list.SetSize(w, h)
}

// SetIssues replaces the report shown in the list.
func (m *IssueListModel) SetIssues(issues []models.Issue) {
	m.issues = issues
	m.apply()
}

// Selected returns the highlighted issue
func (m *IssueListModel) Selected() *models.Issue {
	if item, ok := m.list.SelectedItem().(IssueItem); ok {
		issue := item.Issue
		return &issue
	}
	return nil
}

// Severity returns the active severity filter; empty means all.
func (m *IssueListModel) Severity() models.Severity {
	return severityFilters[m.filterIndex]
}

// Len returns how many issues pass the current filter.
func (m *IssueListModel) Len() int {
	return len(m.list.Items())
}

// CycleFilter moves to the next severity filter.
func (m *IssueListModel) CycleFilter() {
	m.SetFilter((m.filterIndex + 1) % len(severityFilters))
}

// SetFilter selects a severity filter by index.
func (m *IssueListModel) SetFilter(idx int) {
	m.filterIndex = idx
	m.apply()
}

// FilterName is the label of the active severity filter.
func (m *IssueListModel) FilterName() string {
	return severityFilterNames[m.filterIndex]
}

func (m *IssueListModel) apply() {
	filtered := filterIssues(m.issues, m.Severity())
	items := make([]list.Item, len(filtered))
	for i, it := range filtered {
		items[i] = it
	}
	m.list.SetItems(items)
	m.list.Title = fmt.Sprintf("Issues [%s]", m.FilterName())
}

// Update handles messages
func (m *IssueListModel) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return cmd
}

// View renders the issue list
func (m *IssueListModel) View() string {
	if len(m.issues) == 0 {
		return lipgloss.NewStyle().Foreground(successColor).Padding(1, 2).Render("✓ No issues in this report")
	}
	return m.list.View()
}
