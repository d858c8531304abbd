package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/fentz26/commandcenter/internal/models"
	"github.com/fentz26/commandcenter/internal/store"
)

// Recorder runs audits and keeps their history.
type Recorder struct {
	engine *Engine
	store  *store.Store
}

// NewRecorder creates a recorder. A nil store disables history.
func NewRecorder(e *Engine, s *store.Store) *Recorder {
	return &Recorder{engine: e, store: s}
}

// Run executes an audit and records it under trigger ("api", "scheduler", "mcp", "cli").
func (r *Recorder) Run(ctx context.Context, trigger string) (*models.AuditResult, *models.AuditRun, error) {
	result, err := r.engine.Run(ctx)
	if err != nil {
		return nil, nil, err
	}
	if r.store == nil {
		return result, nil, nil
	}
	run, err := r.store.SaveAuditRun(ctx, result, Hash(result), trigger)
	if err != nil {
		return result, nil, fmt.Errorf("record audit run: %w", err)
	}
	return result, run, nil
}

// Hash fingerprints the issue list so identical snapshots compare equal.
func Hash(result *models.AuditResult) string {
	data, err := json.Marshal(result.Issues)
	if err != nil {
		return "hash_error"
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
