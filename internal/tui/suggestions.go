package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/fentz26/commandcenter/internal/models"
)

const maxSuggestions = 5

// SuggestionItem is one completion candidate.
type SuggestionItem struct {
	Text        string
	Description string
}

// suggestionSource lists the candidates offered after a trigger character.
type suggestionSource struct {
	title string
	items func(s *Suggestions) []SuggestionItem
}

var suggestionSources = map[string]suggestionSource{
	"/": {title: "Commands", items: func(*Suggestions) []SuggestionItem { return commandSuggestions }},
	"@": {title: "Recorded Runs", items: func(s *Suggestions) []SuggestionItem { return s.runs }},
	"!": {title: "Severity", items: func(*Suggestions) []SuggestionItem { return filterSuggestions }},
}

var commandSuggestions = []SuggestionItem{
	{Text: "run", Description: "Audit the workspace now"},
	{Text: "refresh", Description: "Reload the latest report"},
	{Text: "filter", Description: "Filter by severity (all, errors, warnings, info)"},
	{Text: "diff", Description: "Compare the two latest runs"},
	{Text: "history", Description: "List recent audit runs"},
	{Text: "open", Description: "Open a recorded run by id"},
	{Text: "quit", Description: "Leave the viewer"},
}

var filterSuggestions = []SuggestionItem{
	{Text: "errors", Description: "Only error findings"},
	{Text: "warnings", Description: "Only warning findings"},
	{Text: "info", Description: "Only info findings"},
	{Text: "all", Description: "Every finding"},
}

// Suggestions completes the command bar input. A leading "/" completes
// commands, "@" recorded run ids and "!" severities.
type Suggestions struct {
	prefix   string
	query    string
	runs     []SuggestionItem
	matches  []SuggestionItem
	selected int
}

// NewSuggestions creates an empty completer.
func NewSuggestions() *Suggestions {
	return &Suggestions{}
}

// Update recomputes the matches for the current input. The selection is
// kept while the input does not change.
func (s *Suggestions) Update(input string) {
	prefix, query := "", ""
	if input != "" {
		prefix, query = input[:1], strings.ToLower(input[1:])
	}
	if _, ok := suggestionSources[prefix]; !ok {
		prefix, query = "", ""
	}
	if prefix == s.prefix && query == s.query && s.matches != nil {
		return
	}
	s.prefix, s.query = prefix, query
	s.refilter()
}

// SetRuns replaces the run ids offered after "@".
func (s *Suggestions) SetRuns(runs []models.AuditRun) {
	s.runs = make([]SuggestionItem, 0, len(runs))
	for _, run := range runs {
		s.runs = append(s.runs, SuggestionItem{
			Text:        run.ID,
			Description: fmt.Sprintf("%s • %d issues", run.RunAt.Local().Format("Jan 02 15:04"), run.TotalIssues),
		})
	}
	if s.prefix == "@" {
		s.refilter()
	}
}

func (s *Suggestions) refilter() {
	s.selected = 0
	s.matches = nil
	src, ok := suggestionSources[s.prefix]
	if !ok {
		return
	}
	s.matches = []SuggestionItem{}
	for _, item := range src.items(s) {
		if strings.Contains(strings.ToLower(item.Text), s.query) {
			s.matches = append(s.matches, item)
		}
	}
}

// Next moves the selection down, wrapping around.
func (s *Suggestions) Next() {
	if n := len(s.matches); n > 0 {
		s.selected = (s.selected + 1) % n
	}
}

// Prev moves the selection up, wrapping around.
func (s *Suggestions) Prev() {
	if n := len(s.matches); n > 0 {
		s.selected = (s.selected + n - 1) % n
	}
}

// Selected returns the highlighted candidate, or nil when nothing is shown.
func (s *Suggestions) Selected() *SuggestionItem {
	if !s.IsVisible() {
		return nil
	}
	return &s.matches[s.selected]
}

// IsVisible reports whether there is anything to show.
func (s *Suggestions) IsVisible() bool {
	return len(s.matches) > 0
}

// Render draws the dropdown below the command bar.
func (s *Suggestions) Render(width int) string {
	if !s.IsVisible() {
		return ""
	}

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(secondaryColor).
		Padding(0, 1).
		Width(width - 4)
	activeStyle := lipgloss.NewStyle().Background(primaryColor).Foreground(fgColor).Bold(true)
	textStyle := lipgloss.NewStyle().Foreground(fgColor)
	hintStyle := lipgloss.NewStyle().Foreground(mutedColor).Italic(true)

	lines := []string{lipgloss.NewStyle().Bold(true).Foreground(primaryColor).Render(suggestionSources[s.prefix].title)}
	for i, item := range s.matches {
		if i == maxSuggestions {
			lines = append(lines, hintStyle.Render(fmt.Sprintf("  ... and %d more", len(s.matches)-maxSuggestions)))
			break
		}
		if i == s.selected {
			lines = append(lines, activeStyle.Render("▶ "+item.Text+"  "+item.Description))
			continue
		}
		lines = append(lines, textStyle.Render("  "+item.Text)+"  "+hintStyle.Render(item.Description))
	}
	return boxStyle.Render(strings.Join(lines, "\n"))
}
