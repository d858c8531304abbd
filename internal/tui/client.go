package tui

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fentz26/commandcenter/internal/audit"
	"github.com/fentz26/commandcenter/internal/models"
)

// DefaultClientTimeout is the default timeout for API requests.
const DefaultClientTimeout = 10 * time.Second

// auditTimeout bounds a full workspace audit, which pages through every database.
const auditTimeout = 2 * time.Minute

// ErrNoRuns is returned when the daemon has not recorded any audit yet.
var ErrNoRuns = errors.New("no audit runs recorded")

// Client wraps HTTP calls to the Command Center daemon.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// RunDiff is the issue movement between two recorded runs.
type RunDiff struct {
	From   string       `json:"from"`
	To     string       `json:"to"`
	Change audit.Change `json:"change"`
}

// NewClient creates a new API client with timeout
func NewClient(baseURL string) *Client {
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "http://" + baseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: DefaultClientTimeout,
		},
	}
}

// Health reports whether the daemon answers /health.
func (c *Client) Health() bool {
	resp, err := c.httpClient.Get(c.baseURL + "/health")
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// Runs lists recorded audit runs, newest first.
func (c *Client) Runs(limit int) ([]models.AuditRun, error) {
	var runs []models.AuditRun
	if err := c.get(fmt.Sprintf("/audit/runs?limit=%d", limit), &runs); err != nil {
		return nil, err
	}
	return runs, nil
}

// Run fetches one recorded run including its full report.
func (c *Client) Run(id string) (*models.AuditRun, error) {
	var run models.AuditRun
	if err := c.get("/audit/runs/"+url.PathEscape(id), &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// LatestRun fetches the most recent recorded run.
func (c *Client) LatestRun() (*models.AuditRun, error) {
	runs, err := c.Runs(1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, ErrNoRuns
	}
	return c.Run(runs[0].ID)
}

// RunAudit asks the daemon to audit the workspace now and returns the
// recorded run. The run id comes back in the X-Audit-Run header.
func (c *Client) RunAudit() (*models.AuditRun, error) {
	hc := *c.httpClient
	hc.Timeout = auditTimeout
	resp, err := hc.Post(c.baseURL+"/audit?trigger=tui", "application/json", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, apiError(resp)
	}

	var result models.AuditResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	return &models.AuditRun{
		ID:          resp.Header.Get("X-Audit-Run"),
		RunAt:       result.RunAt,
		TotalIssues: result.TotalIssues,
		Errors:      result.Errors,
		Warnings:    result.Warnings,
		Info:        result.Info,
		Trigger:     "tui",
		Result:      &result,
	}, nil
}

// Diff compares the two most recent runs.
func (c *Client) Diff() (*RunDiff, error) {
	var diff RunDiff
	if err := c.get("/audit/diff", &diff); err != nil {
		return nil, err
	}
	return &diff, nil
}

func (c *Client) get(path string, v any) error {
	resp, err := c.httpClient.Get(c.baseURL + path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return apiError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

func apiError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		return fmt.Errorf("API error: %s", e.Error)
	}
	return fmt.Errorf("API error: %s", strings.TrimSpace(string(body)))
}
