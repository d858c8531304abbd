package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/fentz26/commandcenter/internal/dashboard"
)

// Trigger is the name recorded on audit runs started through MCP.
const Trigger = "mcp"

// Tools holds the service the tool handlers call into.
type Tools struct {
	Service *dashboard.Service
}

// --- Input types ---

type RunAuditInput struct{}

type AuditHistoryInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"Maximum number of runs to return (default 10)"`
}

type AskAIInput struct {
	Message string `json:"message" jsonschema:"The question to ask"`
	Context string `json:"context,omitempty" jsonschema:"Optional system instructions"`
	Model   string `json:"model,omitempty" jsonschema:"Optional model override"`
}

type DailyBriefingInput struct {
	Model string `json:"model,omitempty" jsonschema:"Optional model override"`
}

type BreakdownGoalInput struct {
	Goal  string `json:"goal" jsonschema:"The goal to split into subtasks"`
	Model string `json:"model,omitempty" jsonschema:"Optional model override"`
}

type TriggerWorkflowInput struct {
	WorkflowID string         `json:"workflowId" jsonschema:"The n8n webhook id"`
	Payload    map[string]any `json:"payload,omitempty" jsonschema:"JSON payload sent to the workflow"`
}

type ServiceStatusInput struct{}

// --- Handlers ---

func (t *Tools) RunAudit(ctx context.Context, _ *sdk.CallToolRequest, _ RunAuditInput) (*sdk.CallToolResult, any, error) {
	result, _, err := t.Service.RunAudit(ctx, Trigger)
	if err != nil {
		return toolError("Audit failed: %v", err), nil, nil
	}
	return toolJSON(result)
}

func (t *Tools) AuditHistory(ctx context.Context, _ *sdk.CallToolRequest, input AuditHistoryInput) (*sdk.CallToolResult, any, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = 10
	}
	runs, err := t.Service.AuditRuns(ctx, limit)
	if err != nil {
		return toolError("Failed to list audit runs: %v", err), nil, nil
	}
	return toolJSON(runs)
}

func (t *Tools) AskAI(ctx context.Context, _ *sdk.CallToolRequest, input AskAIInput) (*sdk.CallToolResult, any, error) {
	res, err := t.Service.Ask(ctx, dashboard.ChatRequest{Message: input.Message, Context: input.Context, Model: input.Model})
	if err != nil {
		return toolError("AI offline: %v", err), nil, nil
	}
	return toolText(res.Content), nil, nil
}

func (t *Tools) DailyBriefing(ctx context.Context, _ *sdk.CallToolRequest, input DailyBriefingInput) (*sdk.CallToolResult, any, error) {
	b, err := t.Service.Assistant().Briefing(ctx, input.Model)
	if err != nil {
		return toolError("AI offline: %v", err), nil, nil
	}
	if b.Error != "" {
		return toolError("%s (%s)", b.Briefing, b.Error), nil, nil
	}
	return toolText(b.Briefing), nil, nil
}

func (t *Tools) BreakdownGoal(ctx context.Context, _ *sdk.CallToolRequest, input BreakdownGoalInput) (*sdk.CallToolResult, any, error) {
	tasks, err := t.Service.Assistant().Breakdown(ctx, input.Goal, input.Model)
	if err != nil {
		return toolError("Breakdown failed: %v", err), nil, nil
	}
	return toolJSON(tasks)
}

func (t *Tools) TriggerWorkflow(ctx context.Context, _ *sdk.CallToolRequest, input TriggerWorkflowInput) (*sdk.CallToolResult, any, error) {
	res, err := t.Service.Trigger(ctx, input.WorkflowID, input.Payload)
	if err != nil {
		return toolError("Failed to trigger workflow: %v", err), nil, nil
	}
	if !res.OK {
		return toolError("Workflow %s failed: %s", input.WorkflowID, res.Error), nil, nil
	}
	return toolJSON(res)
}

func (t *Tools) ServiceStatus(ctx context.Context, _ *sdk.CallToolRequest, _ ServiceStatusInput) (*sdk.CallToolResult, any, error) {
	return toolJSON(t.Service.Status(ctx))
}

// --- Helpers ---

func toolText(text string) *sdk.CallToolResult {
	return &sdk.CallToolResult{
		Content: []sdk.Content{&sdk.TextContent{Text: text}},
	}
}

func toolError(format string, args ...any) *sdk.CallToolResult {
	return &sdk.CallToolResult{
		Content: []sdk.Content{&sdk.TextContent{Text: fmt.Sprintf(format, args...)}},
		IsError: true,
	}
}

func toolJSON(v any) (*sdk.CallToolResult, any, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return toolError("Failed to marshal result: %v", err), nil, nil
	}
	return &sdk.CallToolResult{
		Content: []sdk.Content{&sdk.TextContent{Text: string(data)}},
	}, nil, nil
}
