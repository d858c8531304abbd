// Package audit cross-checks workspace tasks, projects and areas and reports
// data-quality issues. It never writes to the workspace.
package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fentz26/commandcenter/internal/models"
	"github.com/fentz26/commandcenter/internal/observability"
)

// Source fetches complete snapshots of the workspace collections.
type Source interface {
	Tasks(ctx context.Context) ([]models.Task, error)
	Projects(ctx context.Context) ([]models.Project, error)
	Areas(ctx context.Context) ([]models.Area, error)
}

// Engine runs audits against a Source.
type Engine struct {
	src Source
	log *slog.Logger
	now func() time.Time
}

// NewEngine creates an audit engine.
func NewEngine(src Source, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = observability.Nop()
	}
	return &Engine{src: src, log: logger, now: time.Now}
}

// Run fetches all three collections concurrently and evaluates them. Any
// fetch failure fails the whole run.
func (e *Engine) Run(ctx context.Context) (*models.AuditResult, error) {
	var (
		tasks    []models.Task
		projects []models.Project
		areas    []models.Area
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		tasks, err = e.src.Tasks(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		projects, err = e.src.Projects(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		areas, err = e.src.Areas(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fetch workspace: %w", err)
	}

	result := Evaluate(tasks, projects, areas, e.now().UTC())
	e.log.Info("audit completed",
		"tasks", len(tasks), "projects", len(projects), "areas", len(areas),
		"issues", result.TotalIssues, "errors", result.Errors)
	return result, nil
}

// Evaluate runs the three validation passes over a snapshot. Issues are
// ordered tasks, projects, areas and follow input order within each pass.
func Evaluate(tasks []models.Task, projects []models.Project, areas []models.Area, runAt time.Time) *models.AuditResult {
	projectMap := make(map[string]models.Project, len(projects))
	for _, p := range projects {
		projectMap[p.ID] = p
	}
	areaMap := make(map[string]models.Area, len(areas))
	for _, a := range areas {
		areaMap[a.ID] = a
	}

	taskIssues := CheckTasks(tasks, projectMap)
	projectIssues := CheckProjects(projects, areaMap, tasks)
	areaIssues := CheckAreas(areas, projects)

	issues := make([]models.Issue, 0, len(taskIssues)+len(projectIssues)+len(areaIssues))
	issues = append(issues, taskIssues...)
	issues = append(issues, projectIssues...)
	issues = append(issues, areaIssues...)

	result := &models.AuditResult{
		RunAt:  runAt,
		Issues: issues,
		Summary: models.AuditSummary{
			Tasks:    models.CollectionSummary{Total: len(tasks), Issues: len(taskIssues)},
			Projects: models.CollectionSummary{Total: len(projects), Issues: len(projectIssues)},
			Areas:    models.CollectionSummary{Total: len(areas), Issues: len(areaIssues)},
		},
	}
	tally(result)
	return result
}

func tally(r *models.AuditResult) {
	r.TotalIssues = len(r.Issues)
	r.Errors, r.Warnings, r.Info = 0, 0, 0
	for _, i := range r.Issues {
		switch i.Severity {
		case models.SeverityError:
			r.Errors++
		case models.SeverityWarning:
			r.Warnings++
		default:
			r.Info++
		}
	}
}
