// Package n8n triggers n8n workflows through their webhook endpoints.
package n8n

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fentz26/commandcenter/internal/connectors"
	"github.com/fentz26/commandcenter/internal/observability"
)

// DefaultTimeout bounds a single webhook call.
const DefaultTimeout = 30 * time.Second

const maxResponseBytes = 1 << 20

// Client implements connectors.Connector for n8n webhooks.
type Client struct {
	baseURL string
	timeout time.Duration
	client  *http.Client
	log     *slog.Logger
}

// New creates a client for the webhook base URL (e.g. https://n8n.example.com).
func New(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = observability.Nop()
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		timeout: timeout,
		client:  &http.Client{},
		log:     logger,
	}
}

var _ connectors.Connector = (*Client)(nil)

// Name returns the connector identifier.
func (c *Client) Name() string {
	return "n8n"
}

// Configured reports whether a base URL is set.
func (c *Client) Configured() bool {
	return c.baseURL != ""
}

// Trigger posts payload to {base}/webhook/{workflowID}.
func (c *Client) Trigger(ctx context.Context, workflowID string, payload map[string]any) (*connectors.TriggerResult, error) {
	if !c.Configured() {
		return nil, connectors.ErrNotConfigured
	}
	workflowID = strings.TrimSpace(workflowID)
	if workflowID == "" {
		return nil, errors.New("workflow id is required")
	}
	if payload == nil {
		payload = map[string]any{}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	endpoint := c.baseURL + "/webhook/" + url.PathEscape(workflowID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return &connectors.TriggerResult{Error: fmt.Sprintf("Timeout (%s)", c.timeout)}, nil
		}
		return &connectors.TriggerResult{Error: err.Error()}, nil
	}
	defer resp.Body.Close()

	data := readData(resp)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.log.Warn("n8n workflow failed", "workflow", workflowID, "status", resp.StatusCode)
		return &connectors.TriggerResult{Error: failureMessage(data, resp.StatusCode)}, nil
	}

	c.log.Info("n8n workflow triggered", "workflow", workflowID)
	return &connectors.TriggerResult{OK: true, Data: data}, nil
}

// readData decodes a JSON body, or returns the body as text for other types.
// A JSON content type with an unparseable body yields nil.
func readData(resp *http.Response) any {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil
	}
	if strings.Contains(resp.Header.Get("Content-Type"), "application/json") {
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil
		}
		return v
	}
	return string(raw)
}

func failureMessage(data any, status int) string {
	if m, ok := data.(map[string]any); ok {
		if msg, ok := m["message"]; ok && msg != nil {
			return fmt.Sprint(msg)
		}
	}
	return fmt.Sprintf("n8n request failed (%d)", status)
}
