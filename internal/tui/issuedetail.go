package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/fentz26/commandcenter/internal/models"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(mutedColor)

	labelStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Width(10)

	valueStyle = lipgloss.NewStyle().
			Foreground(fgColor)
)

// renderIssueDetail renders one finding with every field it carries.
func renderIssueDetail(issue *models.Issue, width int) string {
	var b strings.Builder

	name := issue.PageName
	if name == "" {
		name = "(unnamed)"
	}
	b.WriteString(headerStyle.Render(name))
	b.WriteString("\n\n")

	row := func(label, value string) {
		if value == "" {
			return
		}
		b.WriteString("  " + labelStyle.Render(label) + valueStyle.Render(value) + "\n")
	}
	b.WriteString("  " + labelStyle.Render("Severity") + formatSeverity(issue.Severity) + "\n")
	row("Type", string(issue.Type))
	row("Database", string(issue.Database))
	row("Page", issue.PageID)
	b.WriteString("\n")

	wrap := lipgloss.NewStyle().Foreground(fgColor).Width(max(20, width-6)).PaddingLeft(2)
	b.WriteString(wrap.Render(issue.Message))
	b.WriteString("\n")
	if issue.Details != "" {
		b.WriteString(wrap.Foreground(mutedColor).Render(issue.Details))
		b.WriteString("\n")
	}

	b.WriteString("\n  " + helpStyle.Render("Press Esc to go back") + "\n")
	return panelStyle.Render(b.String())
}
