package dashboard

import "errors"

// Sentinel errors for dashboard operations.
var (
	ErrWorkflowRequired = errors.New("workflowId is required")
	ErrMessageRequired  = errors.New(`field "message" is required`)
	ErrNotEnoughRuns    = errors.New("at least two audit runs are needed to diff")
	ErrNoStore          = errors.New("history store not available")
)
