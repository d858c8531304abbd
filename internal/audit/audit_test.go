package audit

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fentz26/commandcenter/internal/models"
	"github.com/fentz26/commandcenter/internal/store"
)

type fakeSource struct {
	tasks    []models.Task
	projects []models.Project
	areas    []models.Area
	err      error
}

func (f *fakeSource) Tasks(ctx context.Context) ([]models.Task, error) {
	return f.tasks, nil
}

func (f *fakeSource) Projects(ctx context.Context) ([]models.Project, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.projects, nil
}

func (f *fakeSource) Areas(ctx context.Context) ([]models.Area, error) {
	return f.areas, nil
}

func strptr(s string) *string { return &s }

func countIssues(issues []models.Issue, pageID string, typ models.IssueType) int {
	n := 0
	for _, i := range issues {
		if i.PageID == pageID && i.Type == typ {
			n++
		}
	}
	return n
}

func TestReferentialChecks(t *testing.T) {
	projects := []models.Project{{ID: "P1", Name: "Website", Status: "In progress"}}
	tasks := []models.Task{{ID: "T1", Title: "Build", Status: "Not started", Priority: strptr("High"), ProjectIDs: []string{"P1", "P404"}}}

	result := Evaluate(tasks, projects, nil, time.Now())

	if n := countIssues(result.Issues, "P1", models.IssueProjectNoArea); n != 1 {
		t.Errorf("expected 1 project_no_area for P1, got %d", n)
	}
	if n := countIssues(result.Issues, "T1", models.IssueOrphanedTask); n != 1 {
		t.Fatalf("expected 1 orphaned_task for T1, got %d", n)
	}
	if n := countIssues(result.Issues, "P1", models.IssueEmptyProject); n != 0 {
		t.Errorf("P1 is referenced by T1 and must not be reported empty")
	}
	for _, i := range result.Issues {
		if i.Type == models.IssueOrphanedTask {
			if i.Severity != models.SeverityWarning || !strings.Contains(i.Details, "P404") {
				t.Errorf("unexpected orphaned_task issue %+v", i)
			}
		}
	}
}

func TestOrphanedTaskPerBrokenReference(t *testing.T) {
	tasks := []models.Task{{ID: "T1", Title: "x", Status: "Done", Priority: strptr("Low"), ProjectIDs: []string{"A", "B", "C"}}}
	result := Evaluate(tasks, nil, nil, time.Now())
	if n := countIssues(result.Issues, "T1", models.IssueOrphanedTask); n != 3 {
		t.Errorf("expected one issue per broken reference, got %d", n)
	}
}

func TestDuplicateNamesOnePerRecord(t *testing.T) {
	projects := []models.Project{
		{ID: "P1", Name: "Website", Status: "Done", AreaIDs: []string{"A1"}},
		{ID: "P2", Name: "Website", Status: "Done", AreaIDs: []string{"A1"}},
		{ID: "P3", Name: "website", Status: "Done", AreaIDs: []string{"A1"}},
	}
	areas := []models.Area{{ID: "A1", Name: "Work"}, {ID: "A2", Name: "Work"}}

	result := Evaluate(nil, projects, areas, time.Now())

	var projectDupes, areaDupes int
	for _, i := range result.Issues {
		if i.Type != models.IssueDuplicateName {
			continue
		}
		if i.Severity != models.SeverityWarning {
			t.Errorf("duplicate_name must be a warning, got %s", i.Severity)
		}
		switch i.Database {
		case models.CollectionProjects:
			projectDupes++
			if i.PageID == "P3" {
				t.Error("name matching must be case-sensitive")
			}
		case models.CollectionAreas:
			areaDupes++
		}
	}
	if projectDupes != 2 {
		t.Errorf("expected 2 project duplicate warnings, got %d", projectDupes)
	}
	if areaDupes != 2 {
		t.Errorf("expected 2 area duplicate warnings, got %d", areaDupes)
	}
}

func TestBlankNamesAreDuplicates(t *testing.T) {
	projects := []models.Project{
		{ID: "P1", Status: "Done", AreaIDs: []string{"A1"}},
		{ID: "P2", Status: "Done", AreaIDs: []string{"A1"}},
	}
	areas := []models.Area{{ID: "A1"}, {ID: "A2"}}

	result := Evaluate(nil, projects, areas, time.Now())

	for _, id := range []string{"P1", "P2", "A1", "A2"} {
		if n := countIssues(result.Issues, id, models.IssueEmptyName); n != 1 {
			t.Errorf("%s: expected 1 empty_name issue, got %d", id, n)
		}
		if n := countIssues(result.Issues, id, models.IssueDuplicateName); n != 1 {
			t.Errorf("%s: expected 1 duplicate_name issue, got %d", id, n)
		}
	}
}

func TestEmptyNameSeverity(t *testing.T) {
	tasks := []models.Task{{ID: "T1", Title: "   ", Status: "Done", Priority: strptr("Low")}}
	result := Evaluate(tasks, nil, nil, time.Now())

	var found []models.Issue
	for _, i := range result.Issues {
		if i.Type == models.IssueEmptyName {
			found = append(found, i)
		}
	}
	if len(found) != 1 {
		t.Fatalf("expected exactly 1 empty_name issue, got %d", len(found))
	}
	if found[0].Severity != models.SeverityError {
		t.Errorf("severity = %s, want error", found[0].Severity)
	}
	if found[0].PageName != EmptyNamePlaceholder {
		t.Errorf("pageName = %q, want placeholder", found[0].PageName)
	}
}

func TestBrokenAreaRelation(t *testing.T) {
	projects := []models.Project{{ID: "P1", Name: "Site", Status: "Done", AreaIDs: []string{"A1", "A404"}}}
	tasks := []models.Task{{ID: "T1", Title: "t", Status: "Done", Priority: strptr("Low"), ProjectIDs: []string{"P1"}}}

	withAreas := Evaluate(tasks, projects, []models.Area{{ID: "A1", Name: "Work"}}, time.Now())
	if n := countIssues(withAreas.Issues, "P1", models.IssueBrokenRelation); n != 1 {
		t.Errorf("expected 1 broken_relation, got %d", n)
	}

	withoutAreas := Evaluate(tasks, projects, nil, time.Now())
	if n := countIssues(withoutAreas.Issues, "P1", models.IssueBrokenRelation); n != 0 {
		t.Errorf("broken_relation must not be reported without areas, got %d", n)
	}
}

func TestMissingFieldsAndEmptyCollections(t *testing.T) {
	tasks := []models.Task{{ID: "T1", Title: "No status"}}
	projects := []models.Project{{ID: "P1", Name: "Lonely", AreaIDs: []string{"A1"}}}
	areas := []models.Area{{ID: "A1", Name: "Used"}, {ID: "A2", Name: "Unused"}}

	r := Evaluate(tasks, projects, areas, time.Now())

	checks := []struct {
		page string
		typ  models.IssueType
		sev  models.Severity
	}{
		{"T1", models.IssueMissingStatus, models.SeverityWarning},
		{"T1", models.IssueMissingPriority, models.SeverityInfo},
		{"P1", models.IssueMissingStatus, models.SeverityWarning},
		{"P1", models.IssueEmptyProject, models.SeverityInfo},
		{"A2", models.IssueEmptyArea, models.SeverityInfo},
	}
	for _, c := range checks {
		found := false
		for _, i := range r.Issues {
			if i.PageID == c.page && i.Type == c.typ {
				found = true
				if i.Severity != c.sev {
					t.Errorf("%s %s severity = %s, want %s", c.page, c.typ, i.Severity, c.sev)
				}
			}
		}
		if !found {
			t.Errorf("expected %s issue for %s", c.typ, c.page)
		}
	}
	if countIssues(r.Issues, "A1", models.IssueEmptyArea) != 0 {
		t.Error("A1 is referenced and must not be reported empty")
	}
}

func TestSummaryAndOrder(t *testing.T) {
	tasks := []models.Task{{ID: "T1", Title: ""}}
	projects := []models.Project{{ID: "P1", Name: ""}}
	areas := []models.Area{{ID: "A1", Name: ""}}

	r := Evaluate(tasks, projects, areas, time.Now())

	if r.TotalIssues != len(r.Issues) || r.Errors+r.Warnings+r.Info != r.TotalIssues {
		t.Errorf("inconsistent counts %+v", r)
	}
	if r.Errors != 3 {
		t.Errorf("expected 3 empty_name errors, got %d", r.Errors)
	}
	if r.Summary.Tasks.Total != 1 || r.Summary.Projects.Total != 1 || r.Summary.Areas.Total != 1 {
		t.Errorf("unexpected totals %+v", r.Summary)
	}
	if got := r.Summary.Tasks.Issues + r.Summary.Projects.Issues + r.Summary.Areas.Issues; got != r.TotalIssues {
		t.Errorf("summary issues %d != total %d", got, r.TotalIssues)
	}

	rank := map[models.Collection]int{models.CollectionTasks: 0, models.CollectionProjects: 1, models.CollectionAreas: 2}
	for i := 1; i < len(r.Issues); i++ {
		if rank[r.Issues[i].Database] < rank[r.Issues[i-1].Database] {
			t.Fatalf("issues out of collection order at %d", i)
		}
	}
}

func snapshot() *fakeSource {
	return &fakeSource{
		tasks: []models.Task{
			{ID: "T1", Title: "Build", Status: "Not started", ProjectIDs: []string{"P1", "P404"}},
			{ID: "T2", Title: "", Status: "Done", Priority: strptr("Low")},
		},
		projects: []models.Project{
			{ID: "P1", Name: "Website", Status: "In progress"},
			{ID: "P2", Name: "Website", AreaIDs: []string{"A9"}},
		},
		areas: []models.Area{{ID: "A1", Name: "Work"}},
	}
}

func TestRunIsIdempotent(t *testing.T) {
	e := NewEngine(snapshot(), nil)

	first, err := e.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	second, err := e.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	a, _ := json.Marshal(first.Issues)
	b, _ := json.Marshal(second.Issues)
	if string(a) != string(b) {
		t.Errorf("issue lists differ between runs:\n%s\n%s", a, b)
	}
	if Hash(first) != Hash(second) {
		t.Error("expected identical hashes")
	}
}

func TestRunFailsOnFetchError(t *testing.T) {
	src := snapshot()
	src.err = errors.New("notion unavailable")

	result, err := NewEngine(src, nil).Run(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if result != nil {
		t.Error("no partial result may be returned")
	}
	if !errors.Is(err, src.err) {
		t.Errorf("expected wrapped fetch error, got %v", err)
	}
}

func TestDiff(t *testing.T) {
	prev := Evaluate(snapshot().tasks, snapshot().projects, snapshot().areas, time.Now())

	fixed := snapshot()
	fixed.tasks[1].Title = "Named now"
	cur := Evaluate(fixed.tasks, fixed.projects, fixed.areas, time.Now())

	change := Diff(prev, cur)
	if len(change.Added) != 0 {
		t.Errorf("expected no added issues, got %v", change.Added)
	}
	if len(change.Resolved) != 1 || !strings.Contains(change.Resolved[0], "empty_name") {
		t.Errorf("expected the empty_name issue resolved, got %v", change.Resolved)
	}

	if !Diff(prev, prev).Empty() {
		t.Error("diff of identical runs must be empty")
	}
	if got := Diff(nil, prev); len(got.Added) != prev.TotalIssues {
		t.Errorf("diff from nothing should add every issue, got %d", len(got.Added))
	}
}

func TestRecorderPersistsRuns(t *testing.T) {
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer s.Close()

	rec := NewRecorder(NewEngine(snapshot(), nil), s)
	result, run, err := rec.Run(context.Background(), "test")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if run == nil || run.ID == "" {
		t.Fatal("expected a recorded run")
	}
	if run.TotalIssues != result.TotalIssues || run.IssuesHash != Hash(result) || run.Trigger != "test" {
		t.Errorf("unexpected run %+v", run)
	}

	got, err := s.GetAuditRun(context.Background(), run.ID)
	if err != nil {
		t.Fatalf("GetAuditRun failed: %v", err)
	}
	if got.Result == nil || len(got.Result.Issues) != result.TotalIssues {
		t.Errorf("stored result not round-tripped: %+v", got)
	}
}
