package notion

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/fentz26/commandcenter/internal/models"
)

// StatusDone is the status label that marks a task complete.
const StatusDone = "Done"

// Schema names the database properties read for each collection. Several
// default names carry a trailing space because the workspace defines them so.
type Schema struct {
	Name         string `yaml:"name"`
	Status       string `yaml:"status"`
	Priority     string `yaml:"priority"`
	DueDate      string `yaml:"due_date"`
	TaskProject  string `yaml:"task_project"`
	Progress     string `yaml:"progress"`
	ProjectAreas string `yaml:"project_areas"`
}

// DefaultSchema returns the property names of the reference workspace.
func DefaultSchema() Schema {
	return Schema{
		Name:         "Name",
		Status:       "Status",
		Priority:     "Priority ",
		DueDate:      "Due Date ",
		TaskProject:  "Project ",
		Progress:     "Progress ",
		ProjectAreas: "Areas",
	}
}

// withDefaults fills unset names from DefaultSchema.
func (s Schema) withDefaults() Schema {
	d := DefaultSchema()
	if s.Name == "" {
		s.Name = d.Name
	}
	if s.Status == "" {
		s.Status = d.Status
	}
	if s.Priority == "" {
		s.Priority = d.Priority
	}
	if s.DueDate == "" {
		s.DueDate = d.DueDate
	}
	if s.TaskProject == "" {
		s.TaskProject = d.TaskProject
	}
	if s.Progress == "" {
		s.Progress = d.Progress
	}
	if s.ProjectAreas == "" {
		s.ProjectAreas = d.ProjectAreas
	}
	return s
}

// The property decoders below never fail. A missing or differently shaped
// property yields the zero value.

// Title returns the trimmed plain text of the first title fragment.
func Title(raw json.RawMessage) string {
	var p struct {
		Title []struct {
			PlainText string `json:"plain_text"`
		} `json:"title"`
	}
	if !decodeProp(raw, &p) || len(p.Title) == 0 {
		return ""
	}
	return strings.TrimSpace(p.Title[0].PlainText)
}

// Status returns the name of a status property.
func Status(raw json.RawMessage) string {
	var p struct {
		Status *struct {
			Name string `json:"name"`
		} `json:"status"`
	}
	if !decodeProp(raw, &p) || p.Status == nil {
		return ""
	}
	return p.Status.Name
}

// Select returns the name of a select property, or nil when unset.
func Select(raw json.RawMessage) *string {
	var p struct {
		Select *struct {
			Name *string `json:"name"`
		} `json:"select"`
	}
	if !decodeProp(raw, &p) || p.Select == nil {
		return nil
	}
	return p.Select.Name
}

// RelationIDs returns the non-empty page ids of a relation property.
func RelationIDs(raw json.RawMessage) []string {
	var p struct {
		Relation []struct {
			ID string `json:"id"`
		} `json:"relation"`
	}
	ids := []string{}
	if !decodeProp(raw, &p) {
		return ids
	}
	for _, r := range p.Relation {
		if r.ID != "" {
			ids = append(ids, r.ID)
		}
	}
	return ids
}

// Date returns the start of a date property, or nil when unset.
func Date(raw json.RawMessage) *string {
	var p struct {
		Date *struct {
			Start *string `json:"start"`
		} `json:"date"`
	}
	if !decodeProp(raw, &p) || p.Date == nil {
		return nil
	}
	return p.Date.Start
}

// FormulaNumber returns a numeric formula result rounded to an int.
func FormulaNumber(raw json.RawMessage) int {
	var p struct {
		Formula *struct {
			Type   string   `json:"type"`
			Number *float64 `json:"number"`
		} `json:"formula"`
	}
	if !decodeProp(raw, &p) || p.Formula == nil || p.Formula.Type != "number" || p.Formula.Number == nil {
		return 0
	}
	return int(math.Round(*p.Formula.Number))
}

func decodeProp(raw json.RawMessage, v any) bool {
	if len(raw) == 0 {
		return false
	}
	return json.Unmarshal(raw, v) == nil
}

// DecodeTask maps a task page onto a models.Task.
func (s Schema) DecodeTask(p Page) models.Task {
	s = s.withDefaults()
	status := Status(p.Properties[s.Status])
	return models.Task{
		ID:         p.ID,
		Title:      Title(p.Properties[s.Name]),
		Done:       status == StatusDone,
		DueDate:    Date(p.Properties[s.DueDate]),
		Status:     status,
		Priority:   Select(p.Properties[s.Priority]),
		ProjectIDs: RelationIDs(p.Properties[s.TaskProject]),
	}
}

// DecodeProject maps a project page onto a models.Project.
func (s Schema) DecodeProject(p Page) models.Project {
	s = s.withDefaults()
	return models.Project{
		ID:       p.ID,
		Name:     Title(p.Properties[s.Name]),
		Status:   Status(p.Properties[s.Status]),
		Progress: FormulaNumber(p.Properties[s.Progress]),
		AreaIDs:  RelationIDs(p.Properties[s.ProjectAreas]),
	}
}

// DecodeArea maps an area page onto a models.Area.
func (s Schema) DecodeArea(p Page) models.Area {
	s = s.withDefaults()
	return models.Area{
		ID:   p.ID,
		Name: Title(p.Properties[s.Name]),
	}
}
