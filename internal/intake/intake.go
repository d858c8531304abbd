// Package intake accepts contact form submissions, classifies them with the
// AI adapter and stores them as leads.
package intake

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/fentz26/commandcenter/internal/ai"
	"github.com/fentz26/commandcenter/internal/connectors"
	"github.com/fentz26/commandcenter/internal/models"
	"github.com/fentz26/commandcenter/internal/observability"
	"github.com/fentz26/commandcenter/internal/store"
)

// WorkflowID is the webhook notified for every new lead.
const WorkflowID = "intake"

// Lead categories.
const (
	CategoryAutomation    = "automation"
	CategoryAIIntegration = "ai-integration"
	CategoryConsulting    = "consulting"
	CategoryOther         = "other"
)

const defaultUrgency = 5

// Form is a submitted contact form.
type Form struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Company      string `json:"company"`
	QuestionType string `json:"questionType"`
	Description  string `json:"description"`
}

// ValidationError reports the first invalid form field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the form field by field.
func (f Form) Validate() error {
	switch {
	case utf8.RuneCountInString(strings.TrimSpace(f.Name)) < 2:
		return &ValidationError{Field: "name", Message: "must be at least 2 characters"}
	case !validEmail(f.Email):
		return &ValidationError{Field: "email", Message: "must be a valid email address"}
	case utf8.RuneCountInString(strings.TrimSpace(f.Company)) < 2:
		return &ValidationError{Field: "company", Message: "must be at least 2 characters"}
	case strings.TrimSpace(f.QuestionType) == "":
		return &ValidationError{Field: "questionType", Message: "is required"}
	case utf8.RuneCountInString(strings.TrimSpace(f.Description)) < 10:
		return &ValidationError{Field: "description", Message: "must be at least 10 characters"}
	}
	return nil
}

func validEmail(s string) bool {
	addr, err := mail.ParseAddress(strings.TrimSpace(s))
	return err == nil && addr.Address == strings.TrimSpace(s)
}

// Classification is the AI's reading of a submission.
type Classification struct {
	Category string `json:"category"`
	Urgency  int    `json:"urgency"`
	Summary  string `json:"summary"`
}

// DefaultClassification is used whenever the AI is unavailable or unclear.
var DefaultClassification = Classification{Category: CategoryOther, Urgency: defaultUrgency}

// Submission is returned to the submitter.
type Submission struct {
	LeadID   string `json:"leadId"`
	Category string `json:"category"`
	Urgency  int    `json:"urgency"`
	Summary  string `json:"summary,omitempty"`
}

// Chatter is the part of the AI adapter the service needs.
type Chatter interface {
	Configured() bool
	Chat(ctx context.Context, messages []ai.Message, opts ai.Options) (ai.ChatResult, error)
}

// Service handles intake submissions.
type Service struct {
	store    *store.Store
	ai       Chatter
	notifier connectors.Connector
	log      *slog.Logger
}

// NewService creates an intake service. ai and notifier may be nil.
func NewService(s *store.Store, chatter Chatter, notifier connectors.Connector, logger *slog.Logger) *Service {
	if logger == nil {
		logger = observability.Nop()
	}
	return &Service{store: s, ai: chatter, notifier: notifier, log: logger}
}

// Submit validates, classifies, stores and announces a form. Classification
// and notification failures never reject the submission.
func (s *Service) Submit(ctx context.Context, f Form) (*Submission, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	f = Form{
		Name:         strings.TrimSpace(f.Name),
		Email:        strings.TrimSpace(f.Email),
		Company:      strings.TrimSpace(f.Company),
		QuestionType: strings.TrimSpace(f.QuestionType),
		Description:  strings.TrimSpace(f.Description),
	}

	c := s.classify(ctx, f)

	lead := &models.Lead{
		Name:         f.Name,
		Email:        f.Email,
		Company:      f.Company,
		QuestionType: f.QuestionType,
		Description:  f.Description,
		Category:     c.Category,
		Urgency:      c.Urgency,
		AISummary:    c.Summary,
	}
	if err := s.store.CreateLead(ctx, lead); err != nil {
		return nil, fmt.Errorf("save lead: %w", err)
	}

	s.notify(ctx, lead)
	return &Submission{LeadID: lead.ID, Category: c.Category, Urgency: c.Urgency, Summary: c.Summary}, nil
}

func (s *Service) classify(ctx context.Context, f Form) Classification {
	if s.ai == nil || !s.ai.Configured() {
		return DefaultClassification
	}
	res, err := s.ai.Chat(ctx, []ai.Message{{Role: "user", Content: classifyPrompt(f)}}, ai.Options{})
	if err != nil {
		s.log.Warn("lead classification failed, using defaults", "error", err)
		return DefaultClassification
	}
	return ParseClassification(res.Content)
}

func (s *Service) notify(ctx context.Context, lead *models.Lead) {
	if s.notifier == nil || !s.notifier.Configured() {
		return
	}
	res, err := s.notifier.Trigger(ctx, WorkflowID, map[string]any{
		"leadId":   lead.ID,
		"name":     lead.Name,
		"email":    lead.Email,
		"company":  lead.Company,
		"category": lead.Category,
		"urgency":  lead.Urgency,
	})
	switch {
	case err != nil:
		s.log.Warn("lead notification failed", "lead", lead.ID, "error", err)
	case !res.OK:
		s.log.Warn("lead notification rejected", "lead", lead.ID, "error", res.Error)
	}
}

func classifyPrompt(f Form) string {
	return fmt.Sprintf(`You are a business analyst. Categorize this customer question and give an urgency score (0-10).

Customer: %s
Company: %s
Type: %s
Question: %s

Return only valid JSON, no other text:
{
  "category": "automation" | "ai-integration" | "consulting" | "other",
  "urgency": 0-10,
  "summary": "one sentence summary"
}`, f.Name, f.Company, f.QuestionType, f.Description)
}

var codeFence = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

// ParseClassification reads the AI answer, which may wrap its JSON in a
// markdown code fence. Unknown categories become other and out of range
// urgencies become 5.
func ParseClassification(raw string) Classification {
	text := strings.TrimSpace(raw)
	if m := codeFence.FindStringSubmatch(text); m != nil && strings.TrimSpace(m[1]) != "" {
		text = strings.TrimSpace(m[1])
	}

	var parsed map[string]any
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return DefaultClassification
	}
	category, ok := parsed["category"]
	if !ok {
		return DefaultClassification
	}

	c := DefaultClassification
	switch v := fmt.Sprint(category); v {
	case CategoryAutomation, CategoryAIIntegration, CategoryConsulting, CategoryOther:
		c.Category = v
	}
	if u, ok := parsed["urgency"].(float64); ok && u >= 0 && u <= 10 {
		c.Urgency = int(math.Round(u))
	}
	if summary, ok := parsed["summary"].(string); ok {
		c.Summary = summary
	}
	return c
}

// Leads lists leads, optionally by status.
func (s *Service) Leads(ctx context.Context, status models.LeadStatus) ([]models.Lead, error) {
	if status != "" && !status.Valid() {
		return nil, &ValidationError{Field: "status", Message: "must be one of new, contacted, qualified, closed"}
	}
	return s.store.ListLeads(ctx, status)
}

// SetStatus moves a lead through the funnel.
func (s *Service) SetStatus(ctx context.Context, id string, status models.LeadStatus) (*models.Lead, error) {
	if !status.Valid() {
		return nil, &ValidationError{Field: "status", Message: "must be one of new, contacted, qualified, closed"}
	}
	if err := s.store.UpdateLeadStatus(ctx, id, status); err != nil {
		return nil, err
	}
	return s.store.GetLead(ctx, id)
}
