// Package dashboard provides the HTTP API and service layer for Command Center.
package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fentz26/commandcenter/internal/ai"
	"github.com/fentz26/commandcenter/internal/assistant"
	"github.com/fentz26/commandcenter/internal/audit"
	"github.com/fentz26/commandcenter/internal/connectors"
	"github.com/fentz26/commandcenter/internal/health"
	"github.com/fentz26/commandcenter/internal/intake"
	"github.com/fentz26/commandcenter/internal/models"
	"github.com/fentz26/commandcenter/internal/notion"
	"github.com/fentz26/commandcenter/internal/observability"
	"github.com/fentz26/commandcenter/internal/store"
)

// Deps are the collaborators of the service. Only Store and Workflows stay
// nil when unset; history, intake and triggers are then unavailable.
type Deps struct {
	Store     *store.Store
	AI        *ai.Adapter
	Workspace *notion.Workspace
	Workflows connectors.Connector
	Health    *health.Checker
	Logger    *slog.Logger
}

// Service provides the dashboard business logic.
type Service struct {
	store     *store.Store
	ai        *ai.Adapter
	workspace *notion.Workspace
	workflows connectors.Connector
	health    *health.Checker
	recorder  *audit.Recorder
	assistant *assistant.Assistant
	intake    *intake.Service
	log       *slog.Logger
}

// NewService wires the dashboard service.
func NewService(d Deps) *Service {
	logger := d.Logger
	if logger == nil {
		logger = observability.Nop()
	}
	if d.AI == nil {
		d.AI = ai.New(ai.Config{}, logger)
	}
	if d.Workspace == nil {
		d.Workspace = notion.NewWorkspace(notion.Config{})
	}
	if d.Health == nil {
		d.Health = health.NewChecker(nil, 0)
	}

	s := &Service{
		store:     d.Store,
		ai:        d.AI,
		workspace: d.Workspace,
		workflows: d.Workflows,
		health:    d.Health,
		log:       logger,
	}
	s.recorder = audit.NewRecorder(audit.NewEngine(d.Workspace, logger), d.Store)
	s.assistant = assistant.New(d.AI, d.Workspace, logger)
	if d.Store != nil {
		s.intake = intake.NewService(d.Store, d.AI, d.Workflows, logger)
	}
	return s
}

// AI returns the adapter used for chat.
func (s *Service) AI() *ai.Adapter {
	return s.ai
}

// Assistant returns the briefing/breakdown helper.
func (s *Service) Assistant() *assistant.Assistant {
	return s.assistant
}

// Workspace returns the Notion workspace.
func (s *Service) Workspace() *notion.Workspace {
	return s.workspace
}

// --- Health ---

// HealthResponse is the daemon liveness report.
type HealthResponse struct {
	OK      bool   `json:"ok"`
	DB      string `json:"db"`
	Version string `json:"version"`
	Time    string `json:"time"`
}

// Health pings the database.
func (s *Service) Health(ctx context.Context) HealthResponse {
	resp := HealthResponse{OK: true, DB: "ok", Version: Version, Time: time.Now().UTC().Format(time.RFC3339)}
	if s.store == nil {
		resp.DB = "disabled"
		return resp
	}
	if err := s.store.Ping(ctx); err != nil {
		resp.OK = false
		resp.DB = "error: " + err.Error()
	}
	return resp
}

// Status probes the configured services.
func (s *Service) Status(ctx context.Context) []health.Result {
	return s.health.Check(ctx)
}

// --- Audit ---

// RunAudit audits the workspace and records the run.
func (s *Service) RunAudit(ctx context.Context, trigger string) (*models.AuditResult, *models.AuditRun, error) {
	if !s.workspace.Configured() {
		return nil, nil, notion.ErrNotConfigured
	}
	result, run, err := s.recorder.Run(ctx, trigger)
	if err != nil {
		if result != nil {
			// The audit itself succeeded; only history failed.
			s.log.Warn("audit run not recorded", "error", err)
			return result, nil, nil
		}
		return nil, nil, err
	}
	if run != nil {
		s.log.Info("audit recorded", "run", run.ID, "issues", run.TotalIssues, "trigger", trigger)
	}
	return result, run, nil
}

// AuditRuns lists recorded runs, newest first.
func (s *Service) AuditRuns(ctx context.Context, limit int) ([]models.AuditRun, error) {
	if s.store == nil {
		return nil, ErrNoStore
	}
	return s.store.ListAuditRuns(ctx, limit)
}

// AuditRun loads a recorded run with its full result.
func (s *Service) AuditRun(ctx context.Context, id string) (*models.AuditRun, error) {
	if s.store == nil {
		return nil, ErrNoStore
	}
	return s.store.GetAuditRun(ctx, id)
}

// RunDiff compares two recorded runs. Empty ids select the two most recent.
type RunDiff struct {
	From   string       `json:"from"`
	To     string       `json:"to"`
	Change audit.Change `json:"change"`
}

// DiffRuns reports the issues added and resolved between two runs.
func (s *Service) DiffRuns(ctx context.Context, fromID, toID string) (*RunDiff, error) {
	if s.store == nil {
		return nil, ErrNoStore
	}
	if fromID == "" || toID == "" {
		runs, err := s.store.ListAuditRuns(ctx, 2)
		if err != nil {
			return nil, err
		}
		if len(runs) < 2 {
			return nil, ErrNotEnoughRuns
		}
		if toID == "" {
			toID = runs[0].ID
		}
		if fromID == "" {
			fromID = runs[1].ID
		}
	}

	from, err := s.store.GetAuditRun(ctx, fromID)
	if err != nil {
		return nil, fmt.Errorf("load run %s: %w", fromID, err)
	}
	to, err := s.store.GetAuditRun(ctx, toID)
	if err != nil {
		return nil, fmt.Errorf("load run %s: %w", toID, err)
	}
	return &RunDiff{From: from.ID, To: to.ID, Change: audit.Diff(from.Result, to.Result)}, nil
}

// --- AI ---

// ChatRequest is a single dashboard chat turn.
type ChatRequest struct {
	Message string `json:"message"`
	Model   string `json:"model,omitempty"`
	Context string `json:"context,omitempty"`
}

// Messages builds the conversation for a chat turn. Context becomes the system message.
func (r ChatRequest) Messages() ([]ai.Message, error) {
	msg := strings.TrimSpace(r.Message)
	if msg == "" {
		return nil, ErrMessageRequired
	}
	var messages []ai.Message
	if r.Context != "" {
		messages = append(messages, ai.Message{Role: "system", Content: r.Context})
	}
	return append(messages, ai.Message{Role: "user", Content: msg}), nil
}

// ChatStream starts a streamed answer.
func (s *Service) ChatStream(ctx context.Context, req ChatRequest) (*ai.Stream, error) {
	messages, err := req.Messages()
	if err != nil {
		return nil, err
	}
	return s.ai.ChatStream(ctx, messages, ai.Options{Model: req.Model})
}

// Ask returns a complete answer.
func (s *Service) Ask(ctx context.Context, req ChatRequest) (ai.ChatResult, error) {
	messages, err := req.Messages()
	if err != nil {
		return ai.ChatResult{}, err
	}
	return s.ai.Chat(ctx, messages, ai.Options{Model: req.Model})
}

// --- Workflows ---

// Trigger starts a workflow and records the outcome.
func (s *Service) Trigger(ctx context.Context, workflowID string, payload map[string]any) (*connectors.TriggerResult, error) {
	workflowID = strings.TrimSpace(workflowID)
	if workflowID == "" {
		return nil, ErrWorkflowRequired
	}
	if s.workflows == nil || !s.workflows.Configured() {
		return nil, connectors.ErrNotConfigured
	}
	if payload == nil {
		payload = map[string]any{}
	}

	started := time.Now()
	res, err := s.workflows.Trigger(ctx, workflowID, payload)
	if err != nil {
		return nil, err
	}

	if s.store != nil {
		rec := &store.TriggerRecord{WorkflowID: workflowID, OK: res.OK, Error: res.Error, StartedAt: started, EndedAt: time.Now()}
		if err := s.store.RecordTrigger(ctx, rec); err != nil {
			s.log.Warn("workflow trigger not recorded", "workflow", workflowID, "error", err)
		}
	}
	s.log.Info("workflow triggered", "workflow", workflowID, "ok", res.OK)
	return res, nil
}

// Triggers lists recent workflow calls.
func (s *Service) Triggers(ctx context.Context, limit int) ([]store.TriggerRecord, error) {
	if s.store == nil {
		return nil, ErrNoStore
	}
	return s.store.ListTriggers(ctx, limit)
}

// --- Leads ---

// Intake returns the lead intake service, nil without a store.
func (s *Service) Intake() *intake.Service {
	return s.intake
}
