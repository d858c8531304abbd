// Package tui provides the interactive terminal audit viewer for Command Center.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fentz26/commandcenter/internal/models"
)

var (
	// Colors
	primaryColor   = lipgloss.Color("#7C3AED")
	secondaryColor = lipgloss.Color("#6366F1")
	successColor   = lipgloss.Color("#10B981")
	warningColor   = lipgloss.Color("#F59E0B")
	errorColor     = lipgloss.Color("#EF4444")
	mutedColor     = lipgloss.Color("#6B7280")
	fgColor        = lipgloss.Color("#F9FAFB")
	cyanColor      = lipgloss.Color("#06B6D4")

	// Styles
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			Padding(0, 1)

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#374151")).
			Foreground(fgColor).
			Padding(0, 1)

	inputBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor).
			Padding(0, 1)

	rowStyle = lipgloss.NewStyle().
			Padding(0, 2)

	selectedStyle = lipgloss.NewStyle().
			Background(primaryColor).
			Foreground(fgColor).
			Bold(true).
			Padding(0, 2)

	helpStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Italic(true)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(mutedColor).
			Padding(0, 1)

	onlineStyle = lipgloss.NewStyle().
			Foreground(successColor).
			Bold(true)

	offlineStyle = lipgloss.NewStyle().
			Foreground(errorColor)
)

// View modes.
const (
	modeList    = "list"
	modeDetail  = "detail"
	modeHistory = "history"
	modeDiff    = "diff"
)

// daemonPollInterval is how often the header re-checks the daemon.
const daemonPollInterval = 10 * time.Second

// App is the main TUI application model.
type App struct {
	client       *Client
	issues       *IssueListModel
	cmdbar       *CmdBarModel
	suggestions  *Suggestions
	run          *models.AuditRun
	runs         []models.AuditRun
	runIdx       int
	diff         *RunDiff
	current      *models.Issue
	width        int
	height       int
	mode         string
	message      string
	loading      bool
	daemonOnline bool
}

// New creates a new TUI application.
func New(apiAddr string) *App {
	cmdbar := NewCmdBarModel()
	cmdbar.Focus()

	return &App{
		client:      NewClient(apiAddr),
		issues:      NewIssueListModel(),
		cmdbar:      cmdbar,
		suggestions: NewSuggestions(),
		mode:        modeList,
		loading:     true,
	}
}

// Run starts the TUI application.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// Init implements tea.Model
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		a.cmdbar.Execute(a.client, "refresh"),
		a.fetchRuns(),
		a.checkDaemon(),
		a.tickCmd(),
	)
}

// Update implements tea.Model
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return a, tea.Quit

		case "esc":
			if a.suggestions.IsVisible() {
				a.cmdbar.SetValue("")
				a.suggestions.Update("")
				return a, nil
			}
			if a.mode != modeList {
				a.mode = modeList
				a.current = nil
				return a, nil
			}

		case "up", "k", "down", "j", "pgup", "pgdown":
			if msg.String() == "k" || msg.String() == "j" {
				if a.cmdbar.Value() != "" {
					break
				}
			}
			a.navigate(msg)
			return a, nil

		case "tab":
			if a.acceptSuggestion() {
				return a, nil
			}
			if a.mode == modeList {
				a.issues.CycleFilter()
				a.message = ""
			}
			return a, nil

		case "enter":
			if a.acceptSuggestion() {
				return a, nil
			}
			if input := a.cmdbar.Submit(); input != "" {
				a.suggestions.Update("")
				if cmd, _ := parseCommand(input); cmd == "run" || cmd == "audit" {
					a.message = "Auditing workspace..."
				}
				return a, a.cmdbar.Execute(a.client, input)
			}
			return a, a.open()
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.cmdbar.SetWidth(msg.Width - 6)
		a.issues.SetSize(msg.Width, a.contentHeight()-1)

	case reportLoadedMsg:
		a.loading = false
		a.run = msg.run
		a.current = nil
		a.mode = modeList
		var issues []models.Issue
		if msg.run.Result != nil {
			issues = msg.run.Result.Issues
		}
		a.issues.SetIssues(issues)
		a.message = msg.message
		cmds = append(cmds, a.fetchRuns())

	case runsLoadedMsg:
		a.runs = msg.runs
		a.suggestions.SetRuns(a.runs)
		if a.runIdx >= len(a.runs) {
			a.runIdx = max(0, len(a.runs)-1)
		}
		if msg.show {
			a.mode = modeHistory
		}

	case diffLoadedMsg:
		a.diff = msg.diff
		a.mode = modeDiff

	case filterMsg:
		a.issues.SetFilter(msg.index)
		a.mode = modeList
		a.message = ""

	case daemonStatusMsg:
		a.daemonOnline = msg.online

	case tickMsg:
		cmds = append(cmds, a.checkDaemon(), a.tickCmd())

	case commandResultMsg:
		a.loading = false
		a.message = msg.message

	case errMsg:
		a.loading = false
		a.message = "Error: " + msg.err.Error()
	}

	cmds = append(cmds, a.cmdbar.Update(msg))

	a.suggestions.Update(a.cmdbar.Value())

	return a, tea.Batch(cmds...)
}

func (a *App) navigate(msg tea.KeyMsg) {
	up := msg.String() == "up" || msg.String() == "k" || msg.String() == "pgup"
	if a.suggestions.IsVisible() {
		if up {
			a.suggestions.Prev()
		} else {
			a.suggestions.Next()
		}
		return
	}
	switch a.mode {
	case modeList:
		a.issues.Update(msg)
	case modeHistory:
		if up && a.runIdx > 0 {
			a.runIdx--
		} else if !up && a.runIdx < len(a.runs)-1 {
			a.runIdx++
		}
	}
}

func (a *App) acceptSuggestion() bool {
	if !a.suggestions.IsVisible() {
		return false
	}
	if selected := a.suggestions.Selected(); selected != nil {
		switch a.suggestions.prefix {
		case "/":
			a.cmdbar.SetValue(selected.Text + " ")
		default:
			a.cmdbar.SetValue(a.suggestions.prefix + selected.Text)
		}
		a.suggestions.Update("")
	}
	return true
}

// open acts on the highlighted row: an issue opens its detail, a run in
// the history view opens its report.
func (a *App) open() tea.Cmd {
	switch a.mode {
	case modeList:
		if issue := a.issues.Selected(); issue != nil {
			a.current = issue
			a.mode = modeDetail
		}
	case modeHistory:
		if len(a.runs) > 0 {
			return a.cmdbar.Execute(a.client, "open "+a.runs[a.runIdx].ID)
		}
	}
	return nil
}

// View implements tea.Model
func (a *App) View() string {
	var b strings.Builder

	daemonStatus := onlineStyle.Render("● DAEMON")
	if !a.daemonOnline {
		daemonStatus = offlineStyle.Render("○ DAEMON")
	}

	header := titleStyle.Render("◆ COMMAND CENTER Audit")
	header += "  " + daemonStatus
	if a.run != nil {
		header += "  " + a.renderCounts(a.run)
	}
	b.WriteString(header + "\n")
	b.WriteString(strings.Repeat("─", max(a.width, 1)) + "\n")

	height := a.contentHeight()
	switch a.mode {
	case modeList:
		b.WriteString(a.renderReport())
	case modeDetail:
		b.WriteString(renderIssueDetail(a.current, a.width))
	case modeHistory:
		b.WriteString(a.renderHistory(height))
	case modeDiff:
		b.WriteString(a.renderDiff(height))
	}

	// Message bar
	if a.message != "" {
		msgStyle := lipgloss.NewStyle().Foreground(successColor)
		if strings.HasPrefix(a.message, "Error") {
			msgStyle = lipgloss.NewStyle().Foreground(errorColor)
		}
		b.WriteString("\n" + msgStyle.Render(a.message))
	} else {
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(inputBoxStyle.Render(a.cmdbar.View()))

	if a.suggestions.IsVisible() {
		b.WriteString("\n")
		b.WriteString(a.suggestions.Render(a.width))
	}
	b.WriteString("\n")

	var status string
	switch a.mode {
	case modeList:
		status = fmt.Sprintf(" Issues: %d | ↑↓:nav | Enter:detail | Tab:severity | run | diff | history | Ctrl+C:quit", a.issues.Len())
	case modeHistory:
		status = fmt.Sprintf(" Runs: %d | ↑↓:nav | Enter:open | Esc:back", len(a.runs))
	default:
		status = " Esc:back | Enter:command | Ctrl+C:quit"
	}
	b.WriteString(statusBarStyle.Width(max(a.width, 1)).Render(status))

	return b.String()
}

func (a *App) contentHeight() int {
	return max(5, a.height-8)
}

func (a *App) renderCounts(run *models.AuditRun) string {
	when := lipgloss.NewStyle().Foreground(mutedColor).Render(run.RunAt.Local().Format("Jan 02 15:04"))
	return fmt.Sprintf("%s %s %s  %s",
		severityError.Render(fmt.Sprintf("%d errors", run.Errors)),
		severityWarning.Render(fmt.Sprintf("%d warnings", run.Warnings)),
		severityInfo.Render(fmt.Sprintf("%d info", run.Info)),
		when)
}

func (a *App) renderReport() string {
	if a.loading {
		return "\n  Loading latest audit...\n"
	}
	if a.run == nil {
		return "\n  No audit loaded. Type: run to audit the workspace.\n"
	}
	var b strings.Builder
	if s := a.run.Result; s != nil {
		summary := fmt.Sprintf(" Tasks %d/%d • Projects %d/%d • Areas %d/%d (issues/records)",
			s.Summary.Tasks.Issues, s.Summary.Tasks.Total,
			s.Summary.Projects.Issues, s.Summary.Projects.Total,
			s.Summary.Areas.Issues, s.Summary.Areas.Total)
		b.WriteString(lipgloss.NewStyle().Foreground(mutedColor).Render(summary) + "\n")
	}
	b.WriteString(a.issues.View())
	return b.String()
}

func (a *App) renderHistory(height int) string {
	if len(a.runs) == 0 {
		return "\n  No audit runs recorded yet.\n"
	}
	var lines []string
	for i, run := range a.runs {
		line := fmt.Sprintf("%s  %s  %3d issues (%d errors)  %s",
			shortID(run.ID), run.RunAt.Local().Format("2006-01-02 15:04"), run.TotalIssues, run.Errors, run.Trigger)
		if i == a.runIdx {
			lines = append(lines, selectedStyle.Render("▶ "+line))
		} else {
			lines = append(lines, rowStyle.Render("  "+line))
		}
	}

	// Keep the selection visible.
	if len(lines) > height {
		start := max(0, a.runIdx-height+1)
		lines = lines[start : start+height]
	}
	return "\n" + strings.Join(lines, "\n") + "\n"
}

func (a *App) renderDiff(height int) string {
	if a.diff == nil {
		return "\n  No comparison loaded.\n"
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("\n  Comparing %s → %s\n\n", shortID(a.diff.From), shortID(a.diff.To)))
	if a.diff.Change.Empty() {
		b.WriteString("  " + onlineStyle.Render("No change between runs") + "\n")
		return b.String()
	}
	lines := 0
	write := func(prefix string, style lipgloss.Style, keys []string) {
		for _, k := range keys {
			if lines >= height-4 {
				return
			}
			b.WriteString("  " + style.Render(prefix+" "+k) + "\n")
			lines++
		}
	}
	write("+", severityError, a.diff.Change.Added)
	write("-", lipgloss.NewStyle().Foreground(successColor), a.diff.Change.Resolved)
	b.WriteString("\n  " + helpStyle.Render(fmt.Sprintf("%d added, %d resolved. Press Esc to go back",
		len(a.diff.Change.Added), len(a.diff.Change.Resolved))) + "\n")
	return b.String()
}

type tickMsg time.Time

func (a *App) tickCmd() tea.Cmd {
	return tea.Tick(daemonPollInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (a *App) checkDaemon() tea.Cmd {
	return func() tea.Msg {
		return daemonStatusMsg{online: a.client.Health()}
	}
}

func (a *App) fetchRuns() tea.Cmd {
	return func() tea.Msg {
		runs, err := a.client.Runs(10)
		if err != nil {
			// History is optional in the header; the report view shows errors.
			return nil
		}
		return runsLoadedMsg{runs: runs}
	}
}
