package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fentz26/commandcenter/internal/ai"
	"github.com/fentz26/commandcenter/internal/assistant"
	"github.com/fentz26/commandcenter/internal/auth"
	"github.com/fentz26/commandcenter/internal/connectors"
	"github.com/fentz26/commandcenter/internal/intake"
	"github.com/fentz26/commandcenter/internal/models"
	"github.com/fentz26/commandcenter/internal/notion"
	"github.com/fentz26/commandcenter/internal/observability"
	"github.com/fentz26/commandcenter/internal/store"
)

// Version is set at build time via -ldflags.
var Version = "dev"

const maxBodyBytes = 1 << 20

// Server provides the HTTP API for Command Center.
type Server struct {
	service *Service
	guard   *auth.Guard
	addr    string
	log     *slog.Logger
	server  *http.Server
}

// NewServer creates a new HTTP server. A nil guard leaves admin routes open.
func NewServer(service *Service, guard *auth.Guard, addr string, logger *slog.Logger) *Server {
	if guard == nil {
		guard = auth.NewGuard("", "")
	}
	if logger == nil {
		logger = observability.Nop()
	}
	return &Server{
		service: service,
		guard:   guard,
		addr:    addr,
		log:     logger,
	}
}

// Handler returns the routed API with request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/status", s.handleStatus)

	// AI endpoints
	mux.HandleFunc("/ai/chat", s.handleChat)
	mux.HandleFunc("/ai/models", s.handleModels)
	mux.HandleFunc("/ai/briefing", s.handleBriefing)
	mux.HandleFunc("/ai/breakdown", s.handleBreakdown)
	mux.HandleFunc("/ai/review", s.handleReview)

	// Workspace endpoints
	mux.HandleFunc("/notion/tasks", s.handleTasks)
	mux.HandleFunc("/notion/tasks/", s.handleTaskByID)
	mux.HandleFunc("/notion/projects", s.handleProjects)
	mux.HandleFunc("/notion/areas", s.handleAreas)

	// Audit endpoints
	mux.HandleFunc("/audit", s.handleAudit)
	mux.HandleFunc("/audit/runs", s.handleAuditRuns)
	mux.HandleFunc("/audit/runs/", s.handleAuditRunByID)
	mux.HandleFunc("/audit/diff", s.handleAuditDiff)

	// Workflow endpoints
	mux.HandleFunc("/n8n/trigger", s.handleTrigger)
	mux.HandleFunc("/n8n/triggers", s.handleTriggers)

	// Intake endpoints
	mux.HandleFunc("/auth/login", s.handleLogin)
	mux.HandleFunc("/leads", s.handleLeads)
	mux.HandleFunc("/leads/", s.guard.Require(s.handleLeadByID))

	return s.withRequestLog(mux)
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:        s.addr,
		Handler:     s.Handler(),
		ReadTimeout: 10 * time.Second,
		// No WriteTimeout: chat streams last until the backend finishes.
	}

	s.log.Info("starting command center daemon", "addr", s.addr, "version", Version)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (s *Server) withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set("X-Request-ID", id)
		ctx := observability.WithRequestID(r.Context(), id)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r.WithContext(ctx))

		observability.FromContext(ctx, s.log).Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeAIOffline(w http.ResponseWriter, err error, extra map[string]any) {
	body := map[string]any{"error": "AI offline", "details": aiDetails(err)}
	for k, v := range extra {
		body[k] = v
	}
	writeJSON(w, http.StatusServiceUnavailable, body)
}

func aiDetails(err error) string {
	if ai.IsTimeout(err) {
		return "Timeout: the AI backend is not responding."
	}
	return err.Error()
}

func decodeBody(r *http.Request, v any) error {
	return json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	var verr *intake.ValidationError
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, ErrNotEnoughRuns):
		return http.StatusNotFound
	case errors.Is(err, notion.ErrNotConfigured),
		errors.Is(err, notion.ErrInvalidStatus),
		errors.Is(err, ErrWorkflowRequired),
		errors.Is(err, ErrMessageRequired),
		errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.Is(err, ErrNoStore),
		errors.Is(err, ai.ErrNotConfigured),
		errors.Is(err, connectors.ErrNotConfigured):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// upstreamStatus is statusFor, with unexpected failures blamed on the workspace.
func upstreamStatus(err error) int {
	if status := statusFor(err); status != http.StatusInternalServerError {
		return status
	}
	return http.StatusBadGateway
}

func queryLimit(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n <= 0 {
		return 0
	}
	return n
}

// --- Health Handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	resp := s.service.Health(r.Context())
	status := http.StatusOK
	if !resp.OK {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": s.service.Status(r.Context())})
}

// --- AI Handlers ---

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req ChatRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	stream, err := s.service.ChatStream(r.Context(), req)
	if err != nil {
		if errors.Is(err, ErrMessageRequired) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		observability.FromContext(r.Context(), s.log).Warn("chat stream failed", "error", err)
		writeAIOffline(w, err, nil)
		return
	}
	defer stream.Close()

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-AI-Provider", string(stream.Provider))
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	buf := make([]byte, 4096)
	for {
		n, err := stream.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && r.Context().Err() == nil {
				observability.FromContext(r.Context(), s.log).Warn("chat stream interrupted", "error", err)
			}
			return
		}
	}
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	list, err := s.service.AI().LocalModels(r.Context())
	if err != nil {
		writeAIOffline(w, err, map[string]any{"models": []ai.LocalModel{}})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"models": list})
}

type modelRequest struct {
	Model string `json:"model"`
}

func (s *Server) handleBriefing(w http.ResponseWriter, r *http.Request) {
	var req modelRequest
	switch r.Method {
	case http.MethodGet:
		req.Model = r.URL.Query().Get("model")
	case http.MethodPost:
		// An empty body is allowed.
		if err := decodeBody(r, &req); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "invalid json")
			return
		}
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	b, err := s.service.Assistant().Briefing(r.Context(), req.Model)
	if err != nil {
		writeAIOffline(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

type breakdownRequest struct {
	Goal  string `json:"goal"`
	Model string `json:"model"`
}

func (s *Server) handleBreakdown(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req breakdownRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	tasks, err := s.service.Assistant().Breakdown(r.Context(), req.Goal, req.Model)
	switch {
	case errors.Is(err, assistant.ErrEmptyGoal):
		writeError(w, http.StatusBadRequest, err.Error())
	case err != nil:
		writeAIOffline(w, err, map[string]any{"tasks": tasks})
	default:
		writeJSON(w, http.StatusOK, map[string]any{"tasks": tasks})
	}
}

func (s *Server) handleReview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req assistant.ReviewInput
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	review, err := s.service.Assistant().WeeklyReview(r.Context(), req)
	if err != nil {
		writeAIOffline(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"review": review})
}

// --- Workspace Handlers ---

func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	tasks, err := s.service.Workspace().Tasks(r.Context())
	if err != nil {
		writeJSON(w, upstreamStatus(err), map[string]any{"error": err.Error(), "tasks": []models.Task{}})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": tasks, "source": "notion"})
}

type taskStatusRequest struct {
	Status string `json:"status"`
}

// handleTaskByID handles PATCH /notion/tasks/{id}
func (s *Server) handleTaskByID(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/notion/tasks/"), "/")
	if id == "" || strings.Contains(id, "/") {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if r.Method != http.MethodPatch {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req taskStatusRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := s.service.Workspace().UpdateTaskStatus(r.Context(), id, req.Status); err != nil {
		writeError(w, upstreamStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "id": id, "status": req.Status})
}

func (s *Server) handleProjects(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	projects, err := s.service.Workspace().Projects(r.Context())
	if err != nil {
		writeJSON(w, upstreamStatus(err), map[string]any{"error": err.Error(), "projects": []models.Project{}})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"projects": projects, "source": "notion"})
}

func (s *Server) handleAreas(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	areas, err := s.service.Workspace().Areas(r.Context())
	if err != nil {
		writeJSON(w, upstreamStatus(err), map[string]any{"error": err.Error(), "areas": []models.Area{}})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"areas": areas, "source": "notion"})
}

// --- Audit Handlers ---

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	trigger := r.URL.Query().Get("trigger")
	if trigger == "" {
		trigger = "api"
	}
	result, run, err := s.service.RunAudit(r.Context(), trigger)
	if err != nil {
		writeError(w, upstreamStatus(err), err.Error())
		return
	}
	if run != nil {
		w.Header().Set("X-Audit-Run", run.ID)
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleAuditRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	runs, err := s.service.AuditRuns(r.Context(), queryLimit(r))
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

// handleAuditRunByID handles GET /audit/runs/{id}
func (s *Server) handleAuditRunByID(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/audit/runs/"), "/")
	if id == "" {
		http.Error(w, "run id required", http.StatusBadRequest)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	run, err := s.service.AuditRun(r.Context(), id)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleAuditDiff(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()
	diff, err := s.service.DiffRuns(r.Context(), q.Get("from"), q.Get("to"))
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, diff)
}

// --- Workflow Handlers ---

type triggerRequest struct {
	WorkflowID string         `json:"workflowId"`
	Payload    map[string]any `json:"payload"`
}

func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req triggerRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	res, err := s.service.Trigger(r.Context(), req.WorkflowID, req.Payload)
	if err != nil {
		writeJSON(w, statusFor(err), connectors.TriggerResult{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleTriggers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	recs, err := s.service.Triggers(r.Context(), queryLimit(r))
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

// --- Intake Handlers ---

type loginRequest struct {
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	token, err := s.guard.Login(req.Password)
	switch {
	case errors.Is(err, auth.ErrDisabled):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case err != nil:
		writeError(w, http.StatusUnauthorized, err.Error())
	default:
		http.SetCookie(w, auth.SessionCookie(token))
		writeJSON(w, http.StatusOK, map[string]string{"token": token})
	}
}

// handleLeads handles POST /leads (public) and GET /leads (admin).
func (s *Server) handleLeads(w http.ResponseWriter, r *http.Request) {
	svc := s.service.Intake()
	if svc == nil {
		writeError(w, http.StatusServiceUnavailable, ErrNoStore.Error())
		return
	}
	switch r.Method {
	case http.MethodPost:
		var form intake.Form
		if err := decodeBody(r, &form); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json")
			return
		}
		sub, err := svc.Submit(r.Context(), form)
		if err != nil {
			writeError(w, statusFor(err), err.Error())
			return
		}
		writeJSON(w, http.StatusCreated, sub)
	case http.MethodGet:
		s.guard.Require(func(w http.ResponseWriter, r *http.Request) {
			leads, err := svc.Leads(r.Context(), models.LeadStatus(r.URL.Query().Get("status")))
			if err != nil {
				writeError(w, statusFor(err), err.Error())
				return
			}
			writeJSON(w, http.StatusOK, leads)
		})(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

type leadStatusRequest struct {
	Status models.LeadStatus `json:"status"`
}

// handleLeadByID handles POST /leads/{id}/status
func (s *Server) handleLeadByID(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/leads/"), "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] != "status" {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	svc := s.service.Intake()
	if svc == nil {
		writeError(w, http.StatusServiceUnavailable, ErrNoStore.Error())
		return
	}
	var req leadStatusRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	lead, err := svc.SetStatus(r.Context(), parts[0], req.Status)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, lead)
}
