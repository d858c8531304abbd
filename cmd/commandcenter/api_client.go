package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fentz26/commandcenter/internal/auth"
	"github.com/fentz26/commandcenter/internal/config"
)

// DefaultClientTimeout is the default timeout for API requests.
const DefaultClientTimeout = 10 * time.Second

// longRequestTimeout covers calls that wait on the AI backend or page
// through the whole workspace.
const longRequestTimeout = 3 * time.Minute

// apiClient is the shared HTTP client with timeout.
var apiClient = &http.Client{
	Timeout: DefaultClientTimeout,
}

// slowClient is used for audits and AI calls.
var slowClient = &http.Client{
	Timeout: longRequestTimeout,
}

func apiURL(path string) string {
	base := strings.TrimRight(apiAddr, "/")
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}
	return base + path
}

// apiGet performs a GET request to the API with timeout.
func apiGet(path string) ([]byte, error) {
	return apiDo(apiClient, http.MethodGet, path, nil)
}

// apiPost performs a POST request to the API with timeout.
func apiPost(path string, data any) ([]byte, error) {
	return apiDo(apiClient, http.MethodPost, path, data)
}

// apiDo sends data as JSON (when non-nil) and returns the response body. The
// stored admin session, if any, is sent as a bearer token.
func apiDo(client *http.Client, method, path string, data any) ([]byte, error) {
	var body io.Reader
	if data != nil {
		jsonData, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequest(method, apiURL(path), body)
	if err != nil {
		return nil, err
	}
	if data != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := sessionToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return respBody, &apiError{Status: resp.StatusCode, Body: respBody}
	}

	return respBody, nil
}

// apiError is a non-2xx API response. Some routes (breakdown, trigger) put a
// usable payload next to the error, so the body is kept.
type apiError struct {
	Status int
	Body   []byte
}

func (e *apiError) Error() string {
	var payload struct {
		Error   string `json:"error"`
		Details string `json:"details"`
	}
	if json.Unmarshal(e.Body, &payload) == nil && payload.Error != "" {
		if payload.Details != "" {
			return fmt.Sprintf("API error (%d): %s: %s", e.Status, payload.Error, payload.Details)
		}
		return fmt.Sprintf("API error (%d): %s", e.Status, payload.Error)
	}
	return fmt.Sprintf("API error (%d): %s", e.Status, strings.TrimSpace(string(e.Body)))
}

func authManager() (*auth.Manager, error) {
	return auth.NewManager(config.Dir())
}

func sessionToken() string {
	m, err := authManager()
	if err != nil {
		return ""
	}
	return m.Token()
}

// CheckHealth checks if the daemon is healthy and returns the health response.
// The parsed payload is returned alongside the error on non-200 responses.
func CheckHealth() (*HealthResponse, error) {
	resp, err := apiClient.Get(apiURL("/health"))
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var health HealthResponse
	if err := json.Unmarshal(body, &health); err != nil {
		return nil, fmt.Errorf("failed to parse health response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return &health, fmt.Errorf("health check failed (status %d): %s", resp.StatusCode, string(body))
	}

	return &health, nil
}

// HealthResponse matches the server's health response structure.
type HealthResponse struct {
	OK      bool   `json:"ok"`
	DB      string `json:"db"`
	Version string `json:"version"`
	Time    string `json:"time"`
}

// printJSON pretty-prints a raw JSON response.
func printJSON(raw []byte) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		_, err = fmt.Println(string(raw))
		return err
	}
	fmt.Println(buf.String())
	return nil
}
