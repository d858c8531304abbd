// Package mcp exposes Command Center operations as Model Context Protocol tools.
package mcp

import (
	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/fentz26/commandcenter/internal/dashboard"
)

// ServerName identifies the server to MCP clients.
const ServerName = "commandcenter"

// New creates an MCP server with every tool registered.
func New(svc *dashboard.Service) *sdk.Server {
	t := &Tools{Service: svc}

	srv := sdk.NewServer(&sdk.Implementation{
		Name:    ServerName,
		Version: dashboard.Version,
	}, nil)

	// Audit tools
	sdk.AddTool(srv, &sdk.Tool{
		Name:        "run_audit",
		Description: "Audit the Notion workspace (tasks, projects, areas) for data-quality issues and record the run",
	}, t.RunAudit)

	sdk.AddTool(srv, &sdk.Tool{
		Name:        "audit_history",
		Description: "List recent audit runs with their issue counts, newest first",
	}, t.AuditHistory)

	// AI tools
	sdk.AddTool(srv, &sdk.Tool{
		Name:        "ask_ai",
		Description: "Ask the configured AI backend (hosted or local) a question",
	}, t.AskAI)

	sdk.AddTool(srv, &sdk.Tool{
		Name:        "daily_briefing",
		Description: "Generate a short daily briefing from the open Notion tasks",
	}, t.DailyBriefing)

	sdk.AddTool(srv, &sdk.Tool{
		Name:        "breakdown_goal",
		Description: "Split a goal into at most five concrete subtasks",
	}, t.BreakdownGoal)

	// Operations tools
	sdk.AddTool(srv, &sdk.Tool{
		Name:        "trigger_workflow",
		Description: "Start an n8n workflow through its webhook",
	}, t.TriggerWorkflow)

	sdk.AddTool(srv, &sdk.Tool{
		Name:        "service_status",
		Description: "Probe the configured services and report online/offline with latency",
	}, t.ServiceStatus)

	return srv
}
