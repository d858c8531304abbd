package notion

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/fentz26/commandcenter/internal/models"
)

// ErrNotConfigured is returned when the token or a required database id is missing.
var ErrNotConfigured = errors.New("notion not configured (set NOTION_API_KEY, NOTION_TASKS_DB and NOTION_PROJECTS_DB)")

// Task status labels accepted by UpdateTaskStatus.
var TaskStatuses = []string{"Not started", "In progress", "Done"}

// Config addresses the workspace databases.
type Config struct {
	Token      string `yaml:"token"`
	BaseURL    string `yaml:"base_url"`
	TasksDB    string `yaml:"tasks_db"`
	ProjectsDB string `yaml:"projects_db"`
	AreasDB    string `yaml:"areas_db"` // optional
	Schema     Schema `yaml:"schema"`
}

// Configured returns true when tasks and projects can be read.
func (c Config) Configured() bool {
	return c.Token != "" && c.TasksDB != "" && c.ProjectsDB != ""
}

// Workspace reads tasks, projects and areas from their databases.
type Workspace struct {
	cfg    Config
	schema Schema
	client *Client
}

// NewWorkspace creates a workspace reader.
func NewWorkspace(cfg Config) *Workspace {
	return &Workspace{
		cfg:    cfg,
		schema: cfg.Schema.withDefaults(),
		client: NewClient(cfg.Token, cfg.BaseURL),
	}
}

// Configured returns true when tasks and projects can be read.
func (w *Workspace) Configured() bool {
	return w.cfg.Configured()
}

// Tasks returns every task ordered by priority, then due date.
func (w *Workspace) Tasks(ctx context.Context) ([]models.Task, error) {
	if !w.Configured() {
		return nil, ErrNotConfigured
	}
	pages, err := w.client.QueryAll(ctx, w.cfg.TasksDB,
		Sort{Property: w.schema.Priority, Direction: "ascending"},
		Sort{Property: w.schema.DueDate, Direction: "ascending"},
	)
	if err != nil {
		return nil, fmt.Errorf("fetch tasks: %w", err)
	}
	tasks := make([]models.Task, 0, len(pages))
	for _, p := range pages {
		tasks = append(tasks, w.schema.DecodeTask(p))
	}
	return tasks, nil
}

// Projects returns every project.
func (w *Workspace) Projects(ctx context.Context) ([]models.Project, error) {
	if !w.Configured() {
		return nil, ErrNotConfigured
	}
	pages, err := w.client.QueryAll(ctx, w.cfg.ProjectsDB)
	if err != nil {
		return nil, fmt.Errorf("fetch projects: %w", err)
	}
	projects := make([]models.Project, 0, len(pages))
	for _, p := range pages {
		projects = append(projects, w.schema.DecodeProject(p))
	}
	return projects, nil
}

// Areas returns every area, or an empty list when no areas database is set.
func (w *Workspace) Areas(ctx context.Context) ([]models.Area, error) {
	if !w.Configured() {
		return nil, ErrNotConfigured
	}
	if w.cfg.AreasDB == "" {
		return []models.Area{}, nil
	}
	pages, err := w.client.QueryAll(ctx, w.cfg.AreasDB)
	if err != nil {
		return nil, fmt.Errorf("fetch areas: %w", err)
	}
	areas := make([]models.Area, 0, len(pages))
	for _, p := range pages {
		areas = append(areas, w.schema.DecodeArea(p))
	}
	return areas, nil
}

// ErrInvalidStatus is returned for a status label outside TaskStatuses.
var ErrInvalidStatus = errors.New("status must be one of: Not started, In progress, Done")

// UpdateTaskStatus moves a task to one of TaskStatuses.
func (w *Workspace) UpdateTaskStatus(ctx context.Context, taskID, status string) error {
	if !w.Configured() {
		return ErrNotConfigured
	}
	if taskID == "" {
		return errors.New("task id is required")
	}
	if !slices.Contains(TaskStatuses, status) {
		return ErrInvalidStatus
	}
	return w.client.UpdateStatus(ctx, taskID, w.schema.Status, status)
}
