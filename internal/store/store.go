// Package store provides SQLite-backed persistence for Command Center.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/fentz26/commandcenter/internal/models"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// Store provides access to the Command Center SQLite database.
type Store struct {
	db *sql.DB
}

// New creates a new Store and runs migrations.
func New(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate runs idempotent schema migrations.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS audit_runs (
		id TEXT PRIMARY KEY,
		run_at DATETIME NOT NULL,
		total_issues INTEGER NOT NULL,
		errors INTEGER NOT NULL,
		warnings INTEGER NOT NULL,
		info INTEGER NOT NULL,
		issues_hash TEXT NOT NULL,
		triggered_by TEXT NOT NULL,
		result TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS leads (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL,
		company TEXT NOT NULL,
		question_type TEXT NOT NULL,
		description TEXT NOT NULL,
		category TEXT NOT NULL,
		urgency INTEGER NOT NULL,
		ai_summary TEXT,
		status TEXT NOT NULL DEFAULT 'new',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS workflow_triggers (
		id TEXT PRIMARY KEY,
		workflow_id TEXT NOT NULL,
		ok INTEGER NOT NULL,
		error TEXT,
		started_at DATETIME NOT NULL,
		ended_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_audit_runs_run_at ON audit_runs(run_at);
	CREATE INDEX IF NOT EXISTS idx_leads_status ON leads(status);
	CREATE INDEX IF NOT EXISTS idx_workflow_triggers_workflow ON workflow_triggers(workflow_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// --- Audit Runs ---

// SaveAuditRun persists an audit result.
func (s *Store) SaveAuditRun(ctx context.Context, result *models.AuditResult, hash, trigger string) (*models.AuditRun, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("encode audit result: %w", err)
	}

	run := &models.AuditRun{
		ID:          uuid.New().String(),
		RunAt:       result.RunAt.UTC(),
		TotalIssues: result.TotalIssues,
		Errors:      result.Errors,
		Warnings:    result.Warnings,
		Info:        result.Info,
		IssuesHash:  hash,
		Trigger:     trigger,
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO audit_runs (id, run_at, total_issues, errors, warnings, info, issues_hash, triggered_by, result)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.RunAt, run.TotalIssues, run.Errors, run.Warnings, run.Info, run.IssuesHash, run.Trigger, string(data),
	)
	if err != nil {
		return nil, fmt.Errorf("insert audit run: %w", err)
	}
	return run, nil
}

// ListAuditRuns returns recent runs, newest first, without their full results.
func (s *Store) ListAuditRuns(ctx context.Context, limit int) ([]models.AuditRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_at, total_issues, errors, warnings, info, issues_hash, triggered_by
		 FROM audit_runs ORDER BY run_at DESC, rowid DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query audit runs: %w", err)
	}
	defer rows.Close()

	runs := []models.AuditRun{}
	for rows.Next() {
		var r models.AuditRun
		if err := rows.Scan(&r.ID, &r.RunAt, &r.TotalIssues, &r.Errors, &r.Warnings, &r.Info, &r.IssuesHash, &r.Trigger); err != nil {
			return nil, fmt.Errorf("scan audit run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetAuditRun returns a run with its full result.
func (s *Store) GetAuditRun(ctx context.Context, id string) (*models.AuditRun, error) {
	return s.scanAuditRun(s.db.QueryRowContext(ctx,
		`SELECT id, run_at, total_issues, errors, warnings, info, issues_hash, triggered_by, result
		 FROM audit_runs WHERE id = ?`, id))
}

// LatestAuditRun returns the most recent run with its full result.
func (s *Store) LatestAuditRun(ctx context.Context) (*models.AuditRun, error) {
	return s.scanAuditRun(s.db.QueryRowContext(ctx,
		`SELECT id, run_at, total_issues, errors, warnings, info, issues_hash, triggered_by, result
		 FROM audit_runs ORDER BY run_at DESC, rowid DESC LIMIT 1`))
}

func (s *Store) scanAuditRun(row *sql.Row) (*models.AuditRun, error) {
	var r models.AuditRun
	var data string
	err := row.Scan(&r.ID, &r.RunAt, &r.TotalIssues, &r.Errors, &r.Warnings, &r.Info, &r.IssuesHash, &r.Trigger, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query audit run: %w", err)
	}
	r.Result = &models.AuditResult{}
	if err := json.Unmarshal([]byte(data), r.Result); err != nil {
		return nil, fmt.Errorf("decode audit result: %w", err)
	}
	return &r, nil
}

// --- Leads ---

// CreateLead inserts a new lead with status new.
func (s *Store) CreateLead(ctx context.Context, lead *models.Lead) error {
	now := time.Now().UTC()
	lead.ID = uuid.New().String()
	lead.Status = models.LeadStatusNew
	lead.CreatedAt = now
	lead.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO leads (id, name, email, company, question_type, description, category, urgency, ai_summary, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		lead.ID, lead.Name, lead.Email, lead.Company, lead.QuestionType, lead.Description,
		lead.Category, lead.Urgency, lead.AISummary, lead.Status, lead.CreatedAt, lead.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert lead: %w", err)
	}
	return nil
}

const leadColumns = `id, name, email, company, question_type, description, category, urgency, ai_summary, status, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanLead(row scanner) (models.Lead, error) {
	var l models.Lead
	var summary sql.NullString
	err := row.Scan(&l.ID, &l.Name, &l.Email, &l.Company, &l.QuestionType, &l.Description,
		&l.Category, &l.Urgency, &summary, &l.Status, &l.CreatedAt, &l.UpdatedAt)
	if summary.Valid {
		l.AISummary = summary.String
	}
	return l, err
}

// GetLead retrieves a lead by ID.
func (s *Store) GetLead(ctx context.Context, id string) (*models.Lead, error) {
	l, err := scanLead(s.db.QueryRowContext(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query lead: %w", err)
	}
	return &l, nil
}

// ListLeads returns leads newest first, optionally filtered by status.
func (s *Store) ListLeads(ctx context.Context, status models.LeadStatus) ([]models.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads`
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC, rowid DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query leads: %w", err)
	}
	defer rows.Close()

	leads := []models.Lead{}
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lead: %w", err)
		}
		leads = append(leads, l)
	}
	return leads, rows.Err()
}

// UpdateLeadStatus moves a lead to a new funnel status.
func (s *Store) UpdateLeadStatus(ctx context.Context, id string, status models.LeadStatus) error {
	if !status.Valid() {
		return fmt.Errorf("invalid lead status %q", status)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE leads SET status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("update lead: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Workflow Triggers ---

// TriggerRecord is one outbound workflow call.
type TriggerRecord struct {
	ID         string    `json:"id"`
	WorkflowID string    `json:"workflow_id"`
	OK         bool      `json:"ok"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	EndedAt    time.Time `json:"ended_at"`
}

// RecordTrigger stores the outcome of a workflow call.
func (s *Store) RecordTrigger(ctx context.Context, rec *TriggerRecord) error {
	rec.ID = uuid.New().String()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO workflow_triggers (id, workflow_id, ok, error, started_at, ended_at) VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.WorkflowID, rec.OK, rec.Error, rec.StartedAt.UTC(), rec.EndedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert workflow trigger: %w", err)
	}
	return nil
}

// ListTriggers returns recent workflow calls, newest first.
func (s *Store) ListTriggers(ctx context.Context, limit int) ([]TriggerRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, workflow_id, ok, error, started_at, ended_at FROM workflow_triggers
		 ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query workflow triggers: %w", err)
	}
	defer rows.Close()

	recs := []TriggerRecord{}
	for rows.Next() {
		var r TriggerRecord
		var errText sql.NullString
		if err := rows.Scan(&r.ID, &r.WorkflowID, &r.OK, &errText, &r.StartedAt, &r.EndedAt); err != nil {
			return nil, fmt.Errorf("scan workflow trigger: %w", err)
		}
		r.Error = errText.String
		recs = append(recs, r)
	}
	return recs, rows.Err()
}
