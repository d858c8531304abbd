// Package connectors defines the outbound workflow connector interface.
package connectors

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned by a connector that has no endpoint.
var ErrNotConfigured = errors.New("connector not configured")

// TriggerResult is the outcome of a workflow call. A failed call is reported
// in the result, not as an error.
type TriggerResult struct {
	OK    bool   `json:"ok"`
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

// Connector starts workflows on an external automation engine.
type Connector interface {
	// Name returns the connector identifier.
	Name() string

	// Configured reports whether the connector has an endpoint.
	Configured() bool

	// Trigger starts workflowID with payload. The error is reserved for
	// problems on our side (not configured, bad input).
	Trigger(ctx context.Context, workflowID string, payload map[string]any) (*TriggerResult, error)
}
