package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/fentz26/commandcenter/internal/ai"
	"github.com/fentz26/commandcenter/internal/dashboard"
	"github.com/fentz26/commandcenter/internal/health"
	"github.com/fentz26/commandcenter/internal/store"
)

// setupSession connects an in-memory client to a server backed by deps.
func setupSession(t *testing.T, d dashboard.Deps) *sdk.ClientSession {
	t.Helper()

	st, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	d.Store = st

	srv := New(dashboard.NewService(d))

	ctx := context.Background()
	clientTransport, serverTransport := sdk.NewInMemoryTransports()
	if _, err := srv.Connect(ctx, serverTransport, nil); err != nil {
		t.Fatalf("server connect: %v", err)
	}

	client := sdk.NewClient(&sdk.Implementation{Name: "test-client"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { session.Close() })
	return session
}

// callTool returns the text content and error flag of a tool call.
func callTool(t *testing.T, session *sdk.ClientSession, name string, args map[string]any) (string, bool) {
	t.Helper()
	result, err := session.CallTool(context.Background(), &sdk.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	if len(result.Content) == 0 {
		t.Fatalf("CallTool(%s): empty content", name)
	}
	tc, ok := result.Content[0].(*sdk.TextContent)
	if !ok {
		t.Fatalf("CallTool(%s): expected TextContent, got %T", name, result.Content[0])
	}
	return tc.Text, result.IsError
}

func TestListTools(t *testing.T) {
	session := setupSession(t, dashboard.Deps{})

	res, err := session.ListTools(context.Background(), nil)
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}
	names := map[string]bool{}
	for _, tool := range res.Tools {
		names[tool.Name] = true
	}
	for _, want := range []string{"run_audit", "audit_history", "ask_ai", "daily_briefing", "breakdown_goal", "trigger_workflow", "service_status"} {
		if !names[want] {
			t.Errorf("tool %s not registered", want)
		}
	}
}

func TestRunAuditNotConfigured(t *testing.T) {
	session := setupSession(t, dashboard.Deps{})

	text, isErr := callTool(t, session, "run_audit", map[string]any{})
	if !isErr || !strings.Contains(text, "notion not configured") {
		t.Errorf("expected not-configured error, got %q (isError=%v)", text, isErr)
	}
}

func TestAuditHistoryEmpty(t *testing.T) {
	session := setupSession(t, dashboard.Deps{})

	text, isErr := callTool(t, session, "audit_history", map[string]any{"limit": 5})
	if isErr {
		t.Fatalf("audit_history failed: %s", text)
	}
	if strings.TrimSpace(text) != "[]" {
		t.Errorf("expected empty list, got %s", text)
	}
}

func TestAskAI(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"message":{"role":"assistant","content":"  42  "},"done":true}`)
	}))
	defer backend.Close()

	session := setupSession(t, dashboard.Deps{AI: ai.New(ai.Config{OllamaBaseURL: backend.URL}, nil)})

	text, isErr := callTool(t, session, "ask_ai", map[string]any{"message": "meaning of life?"})
	if isErr || text != "42" {
		t.Errorf("ask_ai = %q (isError=%v)", text, isErr)
	}

	text, isErr = callTool(t, session, "ask_ai", map[string]any{"message": ""})
	if !isErr {
		t.Errorf("empty message must fail, got %q", text)
	}
}

func TestAskAINotConfigured(t *testing.T) {
	session := setupSession(t, dashboard.Deps{})

	text, isErr := callTool(t, session, "ask_ai", map[string]any{"message": "hi"})
	if !isErr || !strings.HasPrefix(text, "AI offline") {
		t.Errorf("expected AI offline, got %q", text)
	}
}

func TestTriggerWorkflowNotConfigured(t *testing.T) {
	session := setupSession(t, dashboard.Deps{})

	text, isErr := callTool(t, session, "trigger_workflow", map[string]any{"workflowId": "sync"})
	if !isErr || !strings.Contains(text, "not configured") {
		t.Errorf("expected not-configured error, got %q", text)
	}
}

func TestServiceStatus(t *testing.T) {
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer up.Close()

	checker := health.NewChecker([]health.Probe{
		{ID: "up", Label: "Up", Target: up.URL, Kind: health.KindHTTP},
		{ID: "down", Label: "Down", Target: "127.0.0.1:1", Kind: health.KindTCP},
	}, 0)
	session := setupSession(t, dashboard.Deps{Health: checker})

	text, isErr := callTool(t, session, "service_status", map[string]any{})
	if isErr {
		t.Fatalf("service_status failed: %s", text)
	}
	var results []health.Result
	if err := json.Unmarshal([]byte(text), &results); err != nil {
		t.Fatalf("decode results: %v", err)
	}
	if len(results) != 2 || results[0].Status != health.StatusOnline || results[1].Status != health.StatusOffline {
		t.Errorf("unexpected results %+v", results)
	}
}
