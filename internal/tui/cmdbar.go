package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/fentz26/commandcenter/internal/models"
)

// CmdBarModel manages the command input bar
type CmdBarModel struct {
	input textinput.Model
}

// NewCmdBarModel creates a new command bar
func NewCmdBarModel() *CmdBarModel {
	ti := textinput.New()
	ti.Placeholder = "Type: run | refresh | filter <severity> | diff | history | @<run-id> | !errors"
	ti.CharLimit = 256
	ti.Width = 80
	return &CmdBarModel{input: ti}
}

// Focus focuses the command bar
func (m *CmdBarModel) Focus() tea.Cmd {
	return m.input.Focus()
}

// Value returns the current input.
func (m *CmdBarModel) Value() string {
	return m.input.Value()
}

// SetValue replaces the current input.
func (m *CmdBarModel) SetValue(v string) {
	m.input.SetValue(v)
	m.input.CursorEnd()
}

// SetWidth resizes the input field.
func (m *CmdBarModel) SetWidth(w int) {
	m.input.Width = w
}

// Submit returns the current input and clears it
func (m *CmdBarModel) Submit() string {
	val := strings.TrimSpace(m.input.Value())
	m.input.SetValue("")
	return val
}

// Update handles messages
func (m *CmdBarModel) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return cmd
}

// View renders the command bar
func (m *CmdBarModel) View() string {
	return m.input.View()
}

// parseCommand splits input into a command and its arguments. "@id" is
// shorthand for "open id" and "!severity" for "filter severity"; a leading
// "/" is ignored.
func parseCommand(input string) (string, []string) {
	input = strings.TrimSpace(input)
	switch {
	case strings.HasPrefix(input, "@"):
		return "open", strings.Fields(strings.TrimPrefix(input, "@"))
	case strings.HasPrefix(input, "!"):
		return "filter", strings.Fields(strings.TrimPrefix(input, "!"))
	}
	parts := strings.Fields(strings.TrimPrefix(input, "/"))
	if len(parts) == 0 {
		return "", nil
	}
	return strings.ToLower(parts[0]), parts[1:]
}

// Execute processes a command
func (m *CmdBarModel) Execute(client *Client, input string) tea.Cmd {
	cmd, args := parseCommand(input)
	if cmd == "" {
		return nil
	}

	switch cmd {
	case "q", "quit", "exit":
		return tea.Quit

	case "filter", "f":
		arg := ""
		if len(args) > 0 {
			arg = strings.ToLower(args[0])
		}
		idx, ok := severityIndex(arg)
		if !ok {
			return result("Usage: filter [all|errors|warnings|info]")
		}
		return func() tea.Msg { return filterMsg{idx} }
	}

	return func() tea.Msg {
		switch cmd {
		case "run", "audit":
			run, err := client.RunAudit()
			if err != nil {
				return errMsg{err}
			}
			return reportLoadedMsg{run: run, message: fmt.Sprintf("✓ Audit finished: %d issues", run.TotalIssues)}

		case "refresh", "r":
			run, err := client.LatestRun()
			if errors.Is(err, ErrNoRuns) {
				return commandResultMsg{"No audit recorded yet. Type 'run' to audit the workspace."}
			}
			if err != nil {
				return errMsg{err}
			}
			return reportLoadedMsg{run: run}

		case "open":
			if len(args) < 1 {
				return commandResultMsg{"Usage: open <run-id>"}
			}
			run, err := client.Run(args[0])
			if err != nil {
				return errMsg{err}
			}
			return reportLoadedMsg{run: run, message: "Opened run " + shortID(run.ID)}

		case "diff":
			diff, err := client.Diff()
			if err != nil {
				return errMsg{err}
			}
			return diffLoadedMsg{diff}

		case "history", "runs":
			runs, err := client.Runs(10)
			if err != nil {
				return errMsg{err}
			}
			return runsLoadedMsg{runs: runs, show: true}

		default:
			return commandResultMsg{fmt.Sprintf("Unknown: %s (try: run, refresh, filter, diff, history)", cmd)}
		}
	}
}

func result(message string) tea.Cmd {
	return func() tea.Msg { return commandResultMsg{message} }
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

type commandResultMsg struct {
	message string
}

type errMsg struct {
	err error
}

type filterMsg struct {
	index int
}

type reportLoadedMsg struct {
	run     *models.AuditRun
	message string
}

type runsLoadedMsg struct {
	runs []models.AuditRun
	show bool
}

type diffLoadedMsg struct {
	diff *RunDiff
}

type daemonStatusMsg struct {
	online bool
}
