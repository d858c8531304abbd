// Package notion is a minimal read client for Notion databases plus the
// decoders that turn raw pages into workspace entities.
package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultBaseURL = "https://api.notion.com"
	APIVersion     = "2022-06-28"
	pageSize       = 100
	defaultTimeout = 30 * time.Second
	maxErrorBody   = 4096
)

// ErrNoToken is returned when the client has no integration token.
var ErrNoToken = errors.New("notion token not set")

// APIError is a non-2xx answer from the Notion API.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("notion api error %d", e.Status)
	}
	return fmt.Sprintf("notion api error %d (%s): %s", e.Status, e.Code, e.Message)
}

// Page is a database row with its raw property bag.
type Page struct {
	ID         string                     `json:"id"`
	Properties map[string]json.RawMessage `json:"properties"`
}

// Sort orders a database query by one property.
type Sort struct {
	Property  string `json:"property"`
	Direction string `json:"direction"` // ascending, descending
}

// Client talks to the Notion REST API.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewClient creates a client for token. An empty baseURL selects the public API.
func NewClient(token, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: defaultTimeout},
	}
}

type queryRequest struct {
	PageSize    int    `json:"page_size"`
	StartCursor string `json:"start_cursor,omitempty"`
	Sorts       []Sort `json:"sorts,omitempty"`
}

type queryResponse struct {
	Results    []Page  `json:"results"`
	HasMore    bool    `json:"has_more"`
	NextCursor *string `json:"next_cursor"`
}

// QueryAll returns every page of a database, following cursors until the
// result set is exhausted. Results without a property bag are skipped.
func (c *Client) QueryAll(ctx context.Context, databaseID string, sorts ...Sort) ([]Page, error) {
	if databaseID == "" {
		return nil, errors.New("database id is required")
	}

	pages := []Page{}
	cursor := ""
	for {
		var resp queryResponse
		body := queryRequest{PageSize: pageSize, StartCursor: cursor, Sorts: sorts}
		path := "/v1/databases/" + url.PathEscape(databaseID) + "/query"
		if err := c.do(ctx, http.MethodPost, path, body, &resp); err != nil {
			return nil, fmt.Errorf("query database %s: %w", databaseID, err)
		}
		for _, p := range resp.Results {
			if p.Properties != nil {
				pages = append(pages, p)
			}
		}
		if !resp.HasMore || resp.NextCursor == nil || *resp.NextCursor == "" {
			return pages, nil
		}
		cursor = *resp.NextCursor
	}
}

// UpdateStatus sets the status property of a page.
func (c *Client) UpdateStatus(ctx context.Context, pageID, property, status string) error {
	body := map[string]any{
		"properties": map[string]any{
			property: map[string]any{"status": map[string]string{"name": status}},
		},
	}
	if err := c.do(ctx, http.MethodPatch, "/v1/pages/"+url.PathEscape(pageID), body, nil); err != nil {
		return fmt.Errorf("update page %s: %w", pageID, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if c.token == "" {
		return ErrNoToken
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Notion-Version", APIVersion)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	apiErr := &APIError{Status: resp.StatusCode}
	var payload struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if json.Unmarshal(data, &payload) == nil && payload.Message != "" {
		apiErr.Code = payload.Code
		apiErr.Message = payload.Message
	} else {
		apiErr.Message = strings.TrimSpace(string(data))
	}
	return apiErr
}
