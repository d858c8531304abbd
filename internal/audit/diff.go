package audit

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/fentz26/commandcenter/internal/models"
)

// Change summarizes how the issue list moved between two runs.
type Change struct {
	Added    []string `json:"added"`
	Resolved []string `json:"resolved"`
}

// Empty returns true when nothing changed.
func (c Change) Empty() bool {
	return len(c.Added) == 0 && len(c.Resolved) == 0
}

// IssueKey renders an issue as one stable line.
func IssueKey(i models.Issue) string {
	key := fmt.Sprintf("%s/%s %s %s: %s", i.Database, i.PageID, i.Severity, i.Type, i.PageName)
	if i.Details != "" {
		key += " (" + i.Details + ")"
	}
	return key
}

func issueLines(r *models.AuditResult) string {
	if r == nil {
		return ""
	}
	lines := make([]string, 0, len(r.Issues))
	for _, i := range r.Issues {
		lines = append(lines, IssueKey(i))
	}
	sort.Strings(lines)
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

// Diff reports the issues that appeared and disappeared from prev to cur.
func Diff(prev, cur *models.AuditResult) Change {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(issueLines(prev), issueLines(cur))
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	change := Change{Added: []string{}, Resolved: []string{}}
	for _, d := range diffs {
		for _, line := range strings.Split(strings.TrimSuffix(d.Text, "\n"), "\n") {
			if line == "" {
				continue
			}
			switch d.Type {
			case diffmatchpatch.DiffInsert:
				change.Added = append(change.Added, line)
			case diffmatchpatch.DiffDelete:
				change.Resolved = append(change.Resolved, line)
			}
		}
	}
	return change
}
