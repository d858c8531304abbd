// Package assistant builds the AI productivity features on top of the
// workspace tasks: daily briefing, goal breakdown and weekly review.
package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/fentz26/commandcenter/internal/ai"
	"github.com/fentz26/commandcenter/internal/models"
	"github.com/fentz26/commandcenter/internal/observability"
)

const (
	maxBriefingTasks = 20
	maxSubtasks      = 5
	defaultMinutes   = 30
)

const briefingPrompt = "You are a productivity coach. Write a motivating daily briefing based on the tasks. " +
	"Give: 1) the top 3 priorities for today, 2) one short motivating sentence. Max 150 words."

const breakdownPrompt = `You are a productivity assistant. Split goals into concrete, action-oriented subtasks. Always return a JSON array of tasks.
Format: [{"task": "...", "priority": "High|Medium|Low", "estimatedMinutes": 30}]
Max 5 subtasks. Answer ONLY with the JSON array, no explanation.`

const reviewPrompt = "Write a positive weekly review. Structure: 1) what was achieved, 2) proudest moment, " +
	"3) focus for next week. Max 200 words."

// ErrEmptyGoal is returned when Breakdown gets no goal.
var ErrEmptyGoal = errors.New("goal is required")

// Chatter is the part of the AI adapter the assistant needs.
type Chatter interface {
	Configured() bool
	Chat(ctx context.Context, messages []ai.Message, opts ai.Options) (ai.ChatResult, error)
}

// TaskSource lists workspace tasks ordered by priority.
type TaskSource interface {
	Configured() bool
	Tasks(ctx context.Context) ([]models.Task, error)
}

// Subtask is one step of a broken-down goal.
type Subtask struct {
	Task             string `json:"task"`
	Priority         string `json:"priority"`
	EstimatedMinutes int    `json:"estimatedMinutes"`
}

// FallbackSubtasks is returned when the AI cannot split a goal.
var FallbackSubtasks = []Subtask{{Task: "Break the goal down (manually)", Priority: "Medium", EstimatedMinutes: 15}}

// Briefing is a generated daily briefing. Error is set when the text is a fallback.
type Briefing struct {
	Briefing string `json:"briefing"`
	Error    string `json:"error,omitempty"`
}

// Assistant generates briefings, breakdowns and reviews.
type Assistant struct {
	ai    Chatter
	tasks TaskSource
	log   *slog.Logger
}

// New creates an assistant. tasks may be nil.
func New(chatter Chatter, tasks TaskSource, logger *slog.Logger) *Assistant {
	if logger == nil {
		logger = observability.Nop()
	}
	return &Assistant{ai: chatter, tasks: tasks, log: logger}
}

// Briefing summarizes today's open tasks. It only fails with
// ai.ErrNotConfigured; AI failures yield fallback text with Error set.
func (a *Assistant) Briefing(ctx context.Context, model string) (*Briefing, error) {
	if !a.ai.Configured() {
		return nil, ai.ErrNotConfigured
	}

	taskList := a.openTaskList(ctx)
	res, err := a.ai.Chat(ctx, []ai.Message{
		{Role: "system", Content: briefingPrompt},
		{Role: "user", Content: "My open tasks:\n" + taskList},
	}, ai.Options{Model: model})
	if err != nil {
		a.log.Warn("briefing failed", "error", err)
		text := "Briefing could not be generated."
		if ai.IsTimeout(err) {
			text = "Timeout: the AI is not responding."
		}
		return &Briefing{Briefing: text, Error: err.Error()}, nil
	}
	if res.Content == "" {
		return &Briefing{Briefing: "No briefing available."}, nil
	}
	return &Briefing{Briefing: res.Content}, nil
}

func (a *Assistant) openTaskList(ctx context.Context) string {
	if a.tasks == nil || !a.tasks.Configured() {
		return "No tasks found."
	}
	tasks, err := a.tasks.Tasks(ctx)
	if err != nil {
		a.log.Warn("briefing task fetch failed", "error", err)
		return "Could not fetch tasks."
	}
	return FormatOpenTasks(tasks)
}

// FormatOpenTasks renders up to 20 open tasks as "- [priority] task (status)".
func FormatOpenTasks(tasks []models.Task) string {
	var lines []string
	for _, t := range tasks {
		if t.Done {
			continue
		}
		priority := "no priority"
		if t.Priority != nil && *t.Priority != "" {
			priority = *t.Priority
		}
		lines = append(lines, fmt.Sprintf("- [%s] %s (%s)", priority, t.Title, t.Status))
		if len(lines) == maxBriefingTasks {
			break
		}
	}
	if len(lines) == 0 {
		return "No open tasks."
	}
	return strings.Join(lines, "\n")
}

// Breakdown splits goal into at most five subtasks. On AI failure it returns
// FallbackSubtasks together with the error.
func (a *Assistant) Breakdown(ctx context.Context, goal, model string) ([]Subtask, error) {
	goal = strings.TrimSpace(goal)
	if goal == "" {
		return FallbackSubtasks, ErrEmptyGoal
	}
	if !a.ai.Configured() {
		return FallbackSubtasks, ai.ErrNotConfigured
	}
	res, err := a.ai.Chat(ctx, []ai.Message{
		{Role: "system", Content: breakdownPrompt},
		{Role: "user", Content: goal},
	}, ai.Options{Model: model})
	if err != nil {
		return FallbackSubtasks, err
	}
	return ParseSubtasks(res.Content), nil
}

var jsonArray = regexp.MustCompile(`(?s)\[.*\]`)

// ParseSubtasks extracts the JSON array from an AI answer.
func ParseSubtasks(content string) []Subtask {
	content = strings.TrimSpace(content)
	if content == "" {
		return FallbackSubtasks
	}
	if m := jsonArray.FindString(content); m != "" {
		content = m
	}

	var items []map[string]any
	if err := json.Unmarshal([]byte(content), &items); err != nil {
		return FallbackSubtasks
	}
	if len(items) > maxSubtasks {
		items = items[:maxSubtasks]
	}

	subtasks := make([]Subtask, 0, len(items))
	for _, o := range items {
		s := Subtask{Priority: "Medium", EstimatedMinutes: defaultMinutes}
		switch v := o["task"].(type) {
		case string:
			s.Task = v
		case nil:
		default:
			s.Task = fmt.Sprint(v)
		}
		if p, ok := o["priority"].(string); ok {
			s.Priority = p
		}
		if m, ok := o["estimatedMinutes"].(float64); ok && m > 0 {
			s.EstimatedMinutes = int(m)
		}
		subtasks = append(subtasks, s)
	}
	return subtasks
}

// ReviewInput summarizes a week of work.
type ReviewInput struct {
	DoneTasks string `json:"doneTasks"`
	OpenCount int    `json:"openCount"`
	DoneCount int    `json:"doneCount"`
	Model     string `json:"model,omitempty"`
}

// WeeklyReview writes a review of the week's finished tasks.
func (a *Assistant) WeeklyReview(ctx context.Context, in ReviewInput) (string, error) {
	if !a.ai.Configured() {
		return "", ai.ErrNotConfigured
	}
	done := in.DoneTasks
	if done == "" {
		done = "None"
	}
	user := fmt.Sprintf("Finished tasks:\n%s\n\nStill open: %d tasks. Finished this week: %d tasks.", done, in.OpenCount, in.DoneCount)
	res, err := a.ai.Chat(ctx, []ai.Message{
		{Role: "system", Content: reviewPrompt},
		{Role: "user", Content: user},
	}, ai.Options{Model: in.Model})
	if err != nil {
		return "", err
	}
	return res.Content, nil
}
