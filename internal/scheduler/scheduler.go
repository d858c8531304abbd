package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/fentz26/commandcenter/internal/audit"
	"github.com/fentz26/commandcenter/internal/connectors"
	"github.com/fentz26/commandcenter/internal/models"
	"github.com/fentz26/commandcenter/internal/observability"
)

// Trigger is the name recorded on scheduled audit runs.
const Trigger = "scheduler"

// Runner executes and records one audit.
type Runner interface {
	RunAudit(ctx context.Context, trigger string) (*models.AuditResult, *models.AuditRun, error)
}

// Stats is a snapshot of scheduler activity.
type Stats struct {
	Running   bool      `json:"running"`
	Runs      int       `json:"runs"`
	Failures  int       `json:"failures"`
	Skipped   int       `json:"skipped"`
	LastRun   time.Time `json:"last_run,omitempty"`
	LastError string    `json:"last_error,omitempty"`
	LastRunID string    `json:"last_run_id,omitempty"`
}

// Scheduler runs audits on a fixed interval, one at a time.
type Scheduler struct {
	runner   Runner
	notifier connectors.Connector
	config   *Config
	log      *slog.Logger

	mu    sync.Mutex
	stats Stats
	last  *models.AuditResult

	// Control
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new scheduler. notifier may be nil.
func New(runner Runner, notifier connectors.Connector, cfg *Config, logger *slog.Logger) *Scheduler {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = observability.Nop()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		runner:   runner,
		notifier: notifier,
		config:   cfg,
		log:      logger,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start begins the scheduler loop. It does nothing when no interval is set.
func (sch *Scheduler) Start() {
	if !sch.config.Enabled() {
		sch.log.Info("scheduler disabled")
		return
	}
	sch.wg.Add(1)
	go sch.loop()
	sch.log.Info("scheduler started", "interval", sch.config.Interval)
}

// Stop gracefully stops the scheduler and waits for a running audit.
func (sch *Scheduler) Stop() {
	sch.cancel()
	sch.wg.Wait()
	sch.log.Info("scheduler stopped")
}

func (sch *Scheduler) loop() {
	defer sch.wg.Done()

	if sch.config.RunOnStart {
		sch.RunOnce(sch.ctx)
	}

	ticker := time.NewTicker(sch.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-sch.ctx.Done():
			return
		case <-ticker.C:
			sch.RunOnce(sch.ctx)
		}
	}
}

// RunOnce runs a single audit unless one is already in progress. It returns
// false when the run was skipped.
func (sch *Scheduler) RunOnce(ctx context.Context) bool {
	sch.mu.Lock()
	if sch.stats.Running {
		sch.stats.Skipped++
		sch.mu.Unlock()
		sch.log.Warn("audit still running, skipping tick")
		return false
	}
	sch.stats.Running = true
	prev := sch.last
	sch.mu.Unlock()

	if sch.config.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, sch.config.RunTimeout)
		defer cancel()
	}

	result, run, err := sch.runner.RunAudit(ctx, Trigger)

	sch.mu.Lock()
	sch.stats.Running = false
	sch.stats.Runs++
	sch.stats.LastRun = time.Now()
	if err != nil {
		sch.stats.Failures++
		sch.stats.LastError = err.Error()
		sch.mu.Unlock()
		sch.log.Error("scheduled audit failed", "error", err)
		return true
	}
	sch.stats.LastError = ""
	if run != nil {
		sch.stats.LastRunID = run.ID
	}
	sch.last = result
	sch.mu.Unlock()

	sch.log.Info("scheduled audit finished", "issues", result.TotalIssues, "errors", result.Errors)
	if prev != nil {
		sch.notify(ctx, audit.Diff(prev, result), result)
	}
	return true
}

func (sch *Scheduler) notify(ctx context.Context, change audit.Change, result *models.AuditResult) {
	if len(change.Added) == 0 || sch.config.NotifyWorkflow == "" {
		return
	}
	if sch.notifier == nil || !sch.notifier.Configured() {
		return
	}
	res, err := sch.notifier.Trigger(ctx, sch.config.NotifyWorkflow, map[string]any{
		"added":       change.Added,
		"resolved":    change.Resolved,
		"totalIssues": result.TotalIssues,
		"errors":      result.Errors,
	})
	switch {
	case err != nil:
		sch.log.Warn("audit notification failed", "error", err)
	case !res.OK:
		sch.log.Warn("audit notification rejected", "error", res.Error)
	}
}

// GetStats returns current scheduler statistics.
func (sch *Scheduler) GetStats() Stats {
	sch.mu.Lock()
	defer sch.mu.Unlock()
	return sch.stats
}
